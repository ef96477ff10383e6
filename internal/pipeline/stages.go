package pipeline

import (
	"context"
	"time"

	"tickpipe/internal/bus"
	"tickpipe/internal/journal"
	"tickpipe/internal/obs"
	"tickpipe/internal/og"
	"tickpipe/internal/schema"
	"tickpipe/internal/strategy"
)

// runWorker evaluates one shard until its queue is closed and drained. The
// strategy instance belongs to this worker alone.
func runWorker(in *bus.Queue[schema.EnrichedTick], strat strategy.Strategy, out *bus.Queue[schema.TradingSignal], sink obs.Sink) {
	for {
		et, ok := in.Pop()
		if !ok {
			return
		}
		sig, fire := strat.Process(et)
		sink.Inc(obs.Evaluated)
		sink.Observe(obs.LatencyProcessing, time.Duration(time.Now().UnixNano()-et.TsRecv))
		if !fire {
			continue
		}
		sink.Inc(obs.Signals)
		evicted, err := out.Push(sig)
		if err != nil || evicted {
			sink.Inc(obs.DroppedBackpressure)
		}
	}
}

// orderStage submits signals until the queue is closed and drained.
type orderStage struct {
	in      *bus.Queue[schema.TradingSignal]
	gw      og.Submitter
	journal journal.Journal
	sink    obs.Sink
	onOrder func(schema.Order)
}

func (s *orderStage) run(ctx context.Context) {
	for {
		sig, ok := s.in.Pop()
		if !ok {
			return
		}
		order, err := s.gw.Submit(ctx, sig)
		if err != nil {
			s.sink.Inc(obs.OrderErrors)
			continue
		}
		if order.Status == schema.OrderStatusRejected {
			s.sink.Inc(obs.OrdersRejected)
		} else {
			s.sink.Inc(obs.OrdersPlaced)
			s.sink.Observe(obs.LatencyOrder, time.Duration(order.TsAck-order.TsSignal))
		}
		if s.journal != nil {
			s.journal.Record(order)
		}
		if s.onOrder != nil {
			s.onOrder(order)
		}
	}
}
