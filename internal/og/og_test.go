package og

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tickpipe/internal/schema"
	"tickpipe/internal/transport"
	"tickpipe/pkg/exception"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	_, err := reg.AddSymbol(schema.SymbolSpec{Name: "BTC/USD", PriceScale: 2, QtyScale: 4})
	require.NoError(t, err)
	return reg
}

func buy(qty schema.Quantity) schema.TradingSignal {
	return schema.TradingSignal{
		SymbolID: 1,
		Side:     schema.OrderSideBuy,
		Qty:      qty,
		Price:    4300000,
		Strategy: "threshold",
		TickSeq:  9,
		TsSignal: 1_000,
	}
}

func TestStateMachineLifecycle(t *testing.T) {
	m := NewStateMachine()
	require.ErrorIs(t, m.Submit(0), exception.ErrUnknownOrder)
	require.NoError(t, m.Submit(1))
	require.ErrorIs(t, m.Submit(1), exception.ErrDuplicateOrder)

	_, err := m.Fill(1)
	require.ErrorIs(t, err, exception.ErrInvalidTransition)

	s, err := m.Ack(1, schema.OrderStatusAcked)
	require.NoError(t, err)
	require.Equal(t, OrderStateAcked, s)
	require.Equal(t, 1, m.Open())

	s, err = m.Fill(1)
	require.NoError(t, err)
	require.Equal(t, OrderStateFilled, s)
	require.Equal(t, 0, m.Open(), "terminal orders are forgotten")

	require.NoError(t, m.Submit(2))
	s, err = m.Ack(2, schema.OrderStatusRejected)
	require.NoError(t, err)
	require.Equal(t, OrderStateRejected, s)
	_, ok := m.State(2)
	require.False(t, ok)
}

func TestLimits(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		name string
		cfg  LimitsConfig
		sig  schema.TradingSignal
		pos  schema.Quantity
		want schema.RejectReason
	}{
		{"allow", LimitsConfig{}, buy(1), 0, schema.RejectReasonNone},
		{"kill switch", LimitsConfig{KillSwitch: true}, buy(1), 0, schema.RejectReasonKillSwitch},
		{"zero qty", LimitsConfig{}, buy(0), 0, schema.RejectReasonInvalidQty},
		{"max qty", LimitsConfig{MaxOrderQty: decimal.NewFromInt(1)}, buy(10001), 0, schema.RejectReasonMaxQty},
		{"max qty boundary", LimitsConfig{MaxOrderQty: decimal.NewFromInt(1)}, buy(10000), 0, schema.RejectReasonNone},
		{"position", LimitsConfig{MaxPosition: decimal.RequireFromString("0.5")}, buy(3000), 3000, schema.RejectReasonPositionLimit},
		{"position reduces", LimitsConfig{MaxPosition: decimal.RequireFromString("0.5")}, buy(3000), -6000, schema.RejectReasonNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := NewLimits(c.cfg, reg).Check(c.sig, c.pos, 1)
			if got != c.want {
				t.Fatalf("Check() = %s, want %s", got, c.want)
			}
		})
	}

	sig := buy(1)
	sig.Price = 0
	require.Equal(t, schema.RejectReasonInvalidPrice, NewLimits(LimitsConfig{}, reg).Check(sig, 0, 1))
}

func TestLimitsRateWindow(t *testing.T) {
	l := NewLimits(LimitsConfig{OrderRateLimit: 2, OrderRateWindow: time.Second}, testRegistry(t))
	require.Equal(t, schema.RejectReasonNone, l.Check(buy(1), 0, 10))
	require.Equal(t, schema.RejectReasonNone, l.Check(buy(1), 0, 20))
	require.Equal(t, schema.RejectReasonRateLimit, l.Check(buy(1), 0, 30))
	require.Equal(t, schema.RejectReasonNone, l.Check(buy(1), 0, 10+int64(time.Second)))
}

func TestLimitsRateWindowCountsAcceptedOnly(t *testing.T) {
	l := NewLimits(LimitsConfig{
		OrderRateLimit:  1,
		OrderRateWindow: time.Second,
		MaxOrderQty:     decimal.NewFromInt(1),
	}, testRegistry(t))
	require.Equal(t, schema.RejectReasonMaxQty, l.Check(buy(20000), 0, 10))
	require.Equal(t, schema.RejectReasonMaxQty, l.Check(buy(20000), 0, 20))
	require.Equal(t, schema.RejectReasonNone, l.Check(buy(1), 0, 30))
	require.Equal(t, schema.RejectReasonRateLimit, l.Check(buy(1), 0, 40))
}

func TestGatewaySubmit(t *testing.T) {
	g := NewGateway(Config{
		AckDelay: time.Millisecond,
		Limits:   LimitsConfig{MaxPosition: decimal.NewFromInt(1)},
		IDSeed:   100,
	}, testRegistry(t))

	order, err := g.Submit(context.Background(), buy(6000))
	require.NoError(t, err)
	require.Equal(t, schema.OrderStatusAcked, order.Status)
	require.Equal(t, uint64(101), order.ID)
	require.NotEmpty(t, order.ClientID)
	require.Equal(t, "threshold", order.Strategy)
	require.GreaterOrEqual(t, order.TsAck-order.TsSubmit, int64(time.Millisecond))
	require.Equal(t, schema.Quantity(6000), g.Position(1))

	order, err = g.Submit(context.Background(), buy(6000))
	require.NoError(t, err)
	require.Equal(t, schema.OrderStatusRejected, order.Status)
	require.Equal(t, schema.RejectReasonPositionLimit, order.Reason)
	require.Equal(t, uint64(102), order.ID)
	require.Equal(t, schema.Quantity(6000), g.Position(1))
	require.Equal(t, 0, g.Open())
}

func TestGatewaySubmitCanceled(t *testing.T) {
	g := NewGateway(Config{AckDelay: time.Hour}, testRegistry(t))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := g.Submit(ctx, buy(1))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, schema.Quantity(0), g.Position(1), "reservation released")
	require.Equal(t, 0, g.Open())

	require.NoError(t, g.Close())
	_, err = g.Submit(context.Background(), buy(1))
	require.ErrorIs(t, err, exception.ErrGatewayClosed)
}

func startServer(t *testing.T, network, addr string, gw Submitter) (string, func()) {
	t.Helper()
	ln, err := transport.Listen(network, addr)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = NewServer(gw).Serve(ctx, ln)
	}()
	return ln.Addr().String(), func() {
		cancel()
		wg.Wait()
	}
}

func TestClientServerRoundTrip(t *testing.T) {
	for _, network := range []string{"tcp", "unix"} {
		t.Run(network, func(t *testing.T) {
			addr := "127.0.0.1:0"
			if network == "unix" {
				addr = filepath.Join(t.TempDir(), "og.sock")
			}
			gw := NewGateway(Config{Limits: LimitsConfig{MaxOrderQty: decimal.NewFromInt(1)}}, testRegistry(t))
			bound, stop := startServer(t, network, addr, gw)
			defer stop()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			client, err := DialClient(ctx, network, bound)
			require.NoError(t, err)
			defer client.Close()

			_, err = client.Ping(ctx, 1)
			require.NoError(t, err)

			order, err := client.Submit(ctx, buy(100))
			require.NoError(t, err)
			require.Equal(t, schema.OrderStatusAcked, order.Status)
			require.Equal(t, schema.SymbolID(1), order.SymbolID)
			require.Equal(t, schema.Price(4300000), order.Price)
			require.Equal(t, int64(1_000), order.TsSignal)
			require.Equal(t, "threshold", order.Strategy)
			require.Len(t, order.ClientID, 20)

			order, err = client.Submit(ctx, buy(20000))
			require.NoError(t, err)
			require.Equal(t, schema.OrderStatusRejected, order.Status)
			require.Equal(t, schema.RejectReasonMaxQty, order.Reason)
		})
	}
}

func TestServerClosesOnMalformedFrame(t *testing.T) {
	gw := NewGateway(Config{}, testRegistry(t))
	addr, stop := startServer(t, "tcp", "127.0.0.1:0", gw)
	defer stop()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("not a frame at all"))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	require.Error(t, err, "server resets the connection")
}

func TestClientClosed(t *testing.T) {
	gw := NewGateway(Config{}, testRegistry(t))
	addr, stop := startServer(t, "tcp", "127.0.0.1:0", gw)
	defer stop()

	client, err := DialClient(context.Background(), "tcp", addr)
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	_, err = client.Submit(context.Background(), buy(1))
	require.ErrorIs(t, err, exception.ErrGatewayClosed)
}
