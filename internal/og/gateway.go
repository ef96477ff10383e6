package og

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/yanun0323/errors"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Submitter turns a trading signal into an acknowledged or rejected order.
type Submitter interface {
	Submit(ctx context.Context, sig schema.TradingSignal) (schema.Order, error)
}

// Config controls the simulated venue.
type Config struct {
	// AckDelay is how long an accepted order waits before its ack.
	AckDelay time.Duration
	Limits   LimitsConfig
	// IDSeed seeds order IDs, zero uses the clock.
	IDSeed uint64
}

// Gateway is an in-process simulated venue. Accepted orders are filled in
// full at their limit price when acked.
type Gateway struct {
	cfg Config
	ids *obs.IDGenerator
	now func() time.Time

	mu        sync.Mutex
	limits    *Limits
	positions *Positions
	orders    *StateMachine

	closed atomic.Bool
}

// NewGateway creates a gateway for the symbols in reg.
func NewGateway(cfg Config, reg *schema.Registry) *Gateway {
	if cfg.AckDelay < 0 {
		cfg.AckDelay = 0
	}
	return &Gateway{
		cfg:       cfg,
		ids:       obs.NewIDGenerator(cfg.IDSeed),
		now:       time.Now,
		limits:    NewLimits(cfg.Limits, reg),
		positions: NewPositions(),
		orders:    NewStateMachine(),
	}
}

// Submit implements Submitter. A limit breach is not an error: the order
// comes back rejected with its reason.
func (g *Gateway) Submit(ctx context.Context, sig schema.TradingSignal) (schema.Order, error) {
	if g == nil {
		return schema.Order{}, exception.ErrNilInstance
	}
	if g.closed.Load() {
		return schema.Order{}, exception.ErrGatewayClosed
	}

	order := schema.OrderFromSignal(sig)
	order.ID = g.ids.Next()
	order.ClientID = xid.New().String()
	order.TsSubmit = g.now().UnixNano()

	g.mu.Lock()
	if err := g.orders.Submit(order.ID); err != nil {
		g.mu.Unlock()
		return order, errors.Wrap(err, "register order")
	}
	reason := g.limits.Check(sig, g.positions.Position(sig.SymbolID), order.TsSubmit)
	if reason != schema.RejectReasonNone {
		_, _ = g.orders.Ack(order.ID, schema.OrderStatusRejected)
		g.mu.Unlock()
		order.Status = schema.OrderStatusRejected
		order.Reason = reason
		order.TsAck = g.now().UnixNano()
		return order, nil
	}
	// Reserve the position now so concurrent submits see it.
	g.positions.Apply(sig.SymbolID, sig.Side, sig.Qty)
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		g.mu.Lock()
		_, _ = g.orders.Cancel(order.ID)
		g.positions.Apply(sig.SymbolID, opposite(sig.Side), sig.Qty)
		g.mu.Unlock()
		return order, err
	}

	g.mu.Lock()
	_, _ = g.orders.Ack(order.ID, schema.OrderStatusAcked)
	_, _ = g.orders.Fill(order.ID)
	g.mu.Unlock()

	order.Status = schema.OrderStatusAcked
	order.TsAck = g.now().UnixNano()
	return order, nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.cfg.AckDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.cfg.AckDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Position returns the simulated net position for a symbol.
func (g *Gateway) Position(symbol schema.SymbolID) schema.Quantity {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.positions.Position(symbol)
}

// Open returns the number of orders waiting for an ack.
func (g *Gateway) Open() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders.Open()
}

// Close rejects further submits.
func (g *Gateway) Close() error {
	g.closed.Store(true)
	return nil
}

func opposite(side schema.OrderSide) schema.OrderSide {
	switch side {
	case schema.OrderSideBuy:
		return schema.OrderSideSell
	case schema.OrderSideSell:
		return schema.OrderSideBuy
	default:
		return side
	}
}
