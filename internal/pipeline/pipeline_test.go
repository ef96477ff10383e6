package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tickpipe/internal/bus"
	"tickpipe/internal/mdg"
	"tickpipe/internal/obs"
	"tickpipe/internal/og"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
	"tickpipe/internal/strategy"
	"tickpipe/internal/transport"
)

func btcRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	_, err := reg.AddSymbol(schema.SymbolSpec{
		Name:       "BTC/USD",
		PriceScale: 2,
		QtyScale:   4,
		BasePrice:  4500000,
		Band:       schema.Band{Low: 4400000, High: 4600000},
	})
	require.NoError(t, err)
	return reg
}

func tickAt(seq uint64, last schema.Price) schema.MarketTick {
	return schema.MarketTick{
		SymbolID: 1,
		Seq:      seq,
		Bid:      last - 100,
		Ask:      last + 100,
		Last:     last,
		Size:     10000,
		TsEvent:  int64(seq) * int64(time.Millisecond),
	}
}

func writeLog(t *testing.T, ticks ...schema.MarketTick) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.log")
	rec, err := recorder.OpenRecorder(recorder.Config{Path: path})
	require.NoError(t, err)
	for _, tk := range ticks {
		require.NoError(t, rec.Record(tk))
	}
	require.NoError(t, rec.Close())
	return path
}

func thresholdConfig(logPath string) Config {
	return Config{
		Source: SourceConfig{
			Mode:   SourceReplay,
			Replay: recorder.PlaybackConfig{Path: logPath},
		},
		Shards:   2,
		Strategy: strategy.Config{Name: strategy.NameThreshold, OrderQty: decimal.RequireFromString("0.01")},
		Gateway: GatewayConfig{
			Local: og.Config{AckDelay: time.Millisecond},
		},
		DrainTimeout: 10 * time.Millisecond,
	}
}

type orderLog struct {
	mu     sync.Mutex
	orders []schema.Order
}

func (l *orderLog) add(o schema.Order) {
	l.mu.Lock()
	l.orders = append(l.orders, o)
	l.mu.Unlock()
}

func TestDispatcherBackpressureDropNewest(t *testing.T) {
	const capacity, burst = 8, 20
	metrics := obs.NewMetrics(0)
	d := newDispatcher(1, capacity, bus.OverflowDropNewest, metrics)

	for i := 1; i <= burst; i++ {
		d.dispatch(schema.EnrichedTick{Tick: tickAt(uint64(i), 4500000)})
	}
	require.Equal(t, uint64(burst-capacity), metrics.Count(obs.DroppedBackpressure))
	require.Equal(t, capacity, d.shards[0].Len())

	d.close()
	var seqs []uint64
	for {
		et, ok := d.shards[0].Pop()
		if !ok {
			break
		}
		seqs = append(seqs, et.Tick.Seq)
	}
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, seqs, "the oldest C survive in order")
}

func TestDispatcherBackpressureDropOldest(t *testing.T) {
	metrics := obs.NewMetrics(0)
	d := newDispatcher(1, 4, bus.OverflowDropOldest, metrics)
	for i := 1; i <= 10; i++ {
		d.dispatch(schema.EnrichedTick{Tick: tickAt(uint64(i), 4500000)})
	}
	require.Equal(t, uint64(6), metrics.Count(obs.DroppedBackpressure))
	et, ok := d.shards[0].TryPop()
	require.True(t, ok)
	require.Equal(t, uint64(7), et.Tick.Seq)
}

func TestShardOfIsStable(t *testing.T) {
	for id := schema.SymbolID(1); id < 100; id++ {
		s := shardOf(id, 4)
		require.GreaterOrEqual(t, s, 0)
		require.Less(t, s, 4)
		require.Equal(t, s, shardOf(id, 4))
	}
}

func TestFeedSequenceChecks(t *testing.T) {
	metrics := obs.NewMetrics(0)
	var got []schema.EnrichedTick
	fd := newFeed(btcRegistry(t), BookConfig{MaxLevels: 5, SnapshotDepth: 5}, nil, true, metrics, func(et schema.EnrichedTick) {
		got = append(got, et)
	})

	now := int64(10 * time.Millisecond)
	fd.handle(tickAt(1, 4500000), now)
	fd.handle(tickAt(1, 4500000), now) // duplicate
	fd.handle(tickAt(4, 4500100), now) // gap
	fd.handle(tickAt(3, 4500000), now) // stale

	crossed := tickAt(5, 4500000)
	crossed.Bid, crossed.Ask = 4500200, 4500100
	fd.handle(crossed, now)

	unknown := tickAt(1, 4500000)
	unknown.SymbolID = 9
	fd.handle(unknown, now)

	require.Len(t, got, 2)
	require.Equal(t, uint64(4), got[1].Tick.Seq)
	require.Equal(t, schema.Price(4500000), got[1].Book.Bids[0].Price)
	require.Equal(t, schema.Price(4500200), got[1].Book.Asks[0].Price)
	require.Equal(t, 9*time.Millisecond, got[0].NetworkLatency)

	require.Equal(t, uint64(2), metrics.Count(obs.StaleTicks))
	require.Equal(t, uint64(1), metrics.Count(obs.SeqGaps))
	require.Equal(t, uint64(1), metrics.Count(obs.CrossedBook))
	require.Equal(t, uint64(1), metrics.Count(obs.Malformed))
	require.Equal(t, uint64(2), metrics.Latency(obs.LatencyNetwork).Count)
}

func TestEndToEndThreshold(t *testing.T) {
	path := writeLog(t, tickAt(1, 4300000), tickAt(2, 4500000))
	orders := &orderLog{}

	rt, err := New(thresholdConfig(path), btcRegistry(t), Deps{OnOrder: orders.add})
	require.NoError(t, err)
	require.NoError(t, rt.Run(context.Background()))

	sum := rt.Summary()
	require.Equal(t, uint64(2), sum.Replayed)
	require.Equal(t, uint64(2), sum.Count(obs.TicksReceived))
	require.Equal(t, uint64(2), sum.Count(obs.Evaluated))
	require.Equal(t, uint64(1), sum.Count(obs.Signals))
	require.Equal(t, uint64(1), sum.Count(obs.OrdersPlaced))
	require.Equal(t, uint64(1), sum.Latency[obs.LatencyOrder].Count)
	require.GreaterOrEqual(t, sum.Latency[obs.LatencyOrder].Max, time.Millisecond)
	require.Equal(t, uint64(2), sum.Latency[obs.LatencyProcessing].Count)

	require.Len(t, orders.orders, 1)
	o := orders.orders[0]
	require.Equal(t, schema.OrderSideBuy, o.Side)
	require.Equal(t, schema.Price(4300000), o.Price)
	require.Equal(t, schema.Quantity(100), o.Qty)
	require.Equal(t, schema.OrderStatusAcked, o.Status)
	require.Equal(t, strategy.NameThreshold, o.Strategy)
}

func TestEndToEndRemoteGateway(t *testing.T) {
	reg := btcRegistry(t)
	ln, err := transport.Listen("unix", filepath.Join(t.TempDir(), "og.sock"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = og.NewServer(og.NewGateway(og.Config{}, reg)).Serve(ctx, ln)
	}()

	cfg := thresholdConfig(writeLog(t, tickAt(1, 4300000), tickAt(2, 4700000), tickAt(3, 4500000)))
	cfg.Gateway = GatewayConfig{Mode: GatewayRemote, Network: "unix", Addr: ln.Addr().String()}
	orders := &orderLog{}

	rt, err := New(cfg, reg, Deps{OnOrder: orders.add})
	require.NoError(t, err)
	require.NoError(t, rt.Run(context.Background()))

	require.Equal(t, uint64(2), rt.Summary().Count(obs.OrdersPlaced))
	require.Len(t, orders.orders, 2)
	require.Equal(t, schema.OrderSideBuy, orders.orders[0].Side)
	require.Equal(t, schema.OrderSideSell, orders.orders[1].Side)

	cancel()
	<-served
}

func TestRunAfterStartupFailure(t *testing.T) {
	cfg := thresholdConfig(writeLog(t, tickAt(1, 4300000)))
	cfg.Gateway = GatewayConfig{Mode: GatewayRemote, Network: "unix", Addr: filepath.Join(t.TempDir(), "missing.sock")}

	rt, err := New(cfg, btcRegistry(t), Deps{})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		err = rt.Run(context.Background())
		require.Error(t, err)
		require.NotContains(t, err.Error(), "already running", "attempt %d", i+1)
	}
	require.Zero(t, rt.Summary().Count(obs.TicksGenerated))
}

func TestLingerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	linger(ctx, time.Hour)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("linger ignored cancellation, waited %s", d)
	}
}

func TestLiveUDPRecordThenReplay(t *testing.T) {
	reg := btcRegistry(t)
	path := filepath.Join(t.TempDir(), "live.log")

	live := Config{
		Source:    SourceConfig{Mode: SourceLive, TicksPerSecond: 5000, MaxTicks: 200, Generator: mdgConfig()},
		Transport: TransportConfig{Mode: TransportUDP},
		Strategy: strategy.Config{
			Name:          strategy.NameMeanReversion,
			OrderQty:      decimal.RequireFromString("0.01"),
			MeanReversion: strategy.MeanReversionParams{Window: 20, ZScore: 2},
		},
		DrainTimeout: 200 * time.Millisecond,
		Record:       recorder.Config{Path: path, SyncEvery: -1},
	}
	rt, err := New(live, reg, Deps{})
	require.NoError(t, err)
	require.NoError(t, rt.Run(context.Background()))

	sum := rt.Summary()
	require.Equal(t, uint64(200), sum.Count(obs.TicksGenerated))
	require.Equal(t, uint64(200), sum.Count(obs.TicksSent))
	received := sum.Count(obs.TicksReceived)
	require.Greater(t, received, uint64(0))
	require.LessOrEqual(t, received, uint64(200))
	require.Equal(t, received, sum.Recorded+sum.Count(obs.StaleTicks))
	require.Greater(t, sum.Latency[obs.LatencyNetwork].Count, uint64(0))

	replay := Config{
		Source:   SourceConfig{Mode: SourceReplay, Replay: recorder.PlaybackConfig{Path: path}},
		Strategy: live.Strategy,
	}
	rt2, err := New(replay, reg, Deps{})
	require.NoError(t, err)
	require.NoError(t, rt2.Run(context.Background()))
	sum2 := rt2.Summary()
	require.Equal(t, sum.Recorded, sum2.Replayed)
	require.False(t, sum2.ReplayTruncated)
	require.Equal(t, sum.Count(obs.Evaluated), sum2.Count(obs.Evaluated))
	require.Equal(t, sum.Count(obs.Signals), sum2.Count(obs.Signals))
	require.Zero(t, sum2.Latency[obs.LatencyNetwork].Count)
}

func TestCancelStopsLiveSource(t *testing.T) {
	cfg := Config{
		Source:       SourceConfig{Mode: SourceLive, TicksPerSecond: 1000, Generator: mdgConfig()},
		Strategy:     strategy.Config{Name: strategy.NameThreshold, OrderQty: decimal.RequireFromString("0.01")},
		DrainTimeout: time.Millisecond,
	}
	rt, err := New(cfg, btcRegistry(t), Deps{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime did not stop after cancel")
	}
	require.Greater(t, rt.Summary().Count(obs.TicksGenerated), uint64(0))
}

func TestConfigValidate(t *testing.T) {
	base := thresholdConfig("x.log")
	require.NoError(t, base.Validate())

	cases := map[string]func(c *Config){
		"blocking shards":  func(c *Config) { c.Overflow = bus.OverflowBlock },
		"unknown strategy": func(c *Config) { c.Strategy.Name = "momentum" },
		"remote no addr":   func(c *Config) { c.Gateway.Mode = GatewayRemote },
		"replay no path":   func(c *Config) { c.Source.Replay.Path = "" },
		"record replayed":  func(c *Config) { c.Record.Path = "x.log" },
		"bad transport":    func(c *Config) { c.Transport.Mode = "carrier-pigeon" },
		"bad chaos":        func(c *Config) { c.Transport.Chaos.DropRate = 2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}

	_, err := New(base, schema.NewRegistry(), Deps{})
	require.Error(t, err)
}

func mdgConfig() mdg.GeneratorConfig {
	return mdg.GeneratorConfig{Seed: 11}
}
