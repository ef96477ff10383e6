package mdg

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
)

// Publisher paces a generator at a target tick rate.
type Publisher struct {
	gen     *Generator
	limiter *rate.Limiter
	sink    obs.Sink
	// max stops the publisher after this many ticks when positive.
	max uint64
}

// NewPublisher creates a publisher. ticksPerSecond <= 0 disables pacing.
func NewPublisher(gen *Generator, ticksPerSecond int, maxTicks uint64, sink obs.Sink) *Publisher {
	var limiter *rate.Limiter
	if ticksPerSecond > 0 {
		burst := ticksPerSecond / 100
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(ticksPerSecond), burst)
	}
	return &Publisher{
		gen:     gen,
		limiter: limiter,
		sink:    obs.OrDiscard(sink),
		max:     maxTicks,
	}
}

// Run generates ticks and hands each to emit until ctx is done or the tick
// budget is spent. emit errors are the caller's to count; they do not stop
// the publisher. Run returns nil on cancellation.
func (p *Publisher) Run(ctx context.Context, emit func(schema.MarketTick)) error {
	var n uint64
	for p.max == 0 || n < p.max {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil
			}
		} else if ctx.Err() != nil {
			return nil
		}
		tick := p.gen.Next(time.Now())
		p.sink.Inc(obs.TicksGenerated)
		emit(tick)
		n++
	}
	return nil
}
