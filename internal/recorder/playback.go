package recorder

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"

	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Clock allows deterministic playback control.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays a log through a handler with optional pacing. Pacing only
// affects timing; the tick values and order are those recorded.
type Playback struct {
	cfg       PlaybackConfig
	clock     Clock
	played    uint64
	truncated bool
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run replays the log from the beginning and calls handler for each tick. It
// returns nil at the end of the log, ctx.Err() on cancellation, and the
// first handler or read error otherwise.
func (p *Playback) Run(ctx context.Context, handler func(schema.MarketTick) error) error {
	if handler == nil {
		return exception.ErrPlaybackHandler
	}
	rp, err := OpenReplayer(p.cfg.Path)
	if err != nil {
		return err
	}
	defer rp.Close()

	var limiter *rate.Limiter
	if p.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(p.cfg.Rate), 1)
	}

	p.played, p.truncated = 0, false
	var prevTS int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tick, err := rp.Next()
		if err == io.EOF {
			p.truncated = rp.Truncated()
			return nil
		}
		if err != nil {
			return err
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := p.pace(ctx, tick.TsEvent, &prevTS); err != nil {
			return err
		}
		if err := handler(tick); err != nil {
			return err
		}
		p.played++
	}
}

// Played returns the number of ticks delivered by the last Run.
func (p *Playback) Played() uint64 {
	return p.played
}

// Truncated reports whether the last Run hit a torn trailing record.
func (p *Playback) Truncated() bool {
	return p.truncated
}

func (p *Playback) pace(ctx context.Context, current int64, prevTS *int64) error {
	if p.cfg.Speed <= 0 || current <= 0 {
		return nil
	}
	if *prevTS > 0 {
		delta := current - *prevTS
		if delta > 0 {
			sleep := time.Duration(float64(delta) / p.cfg.Speed)
			if p.cfg.MaxGap > 0 && sleep > p.cfg.MaxGap {
				sleep = p.cfg.MaxGap
			}
			if err := p.clock.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
	}
	*prevTS = current
	return nil
}
