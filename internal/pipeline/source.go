package pipeline

import (
	"context"
	"errors"

	"tickpipe/internal/mdg"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
)

// tickSource emits ticks until it is exhausted or ctx is done. Cancellation
// is a normal stop and returns nil.
type tickSource interface {
	run(ctx context.Context, emit func(schema.MarketTick)) error
}

type liveSource struct {
	publisher *mdg.Publisher
}

func (s *liveSource) run(ctx context.Context, emit func(schema.MarketTick)) error {
	return s.publisher.Run(ctx, emit)
}

type replaySource struct {
	playback *recorder.Playback
}

func (s *replaySource) run(ctx context.Context, emit func(schema.MarketTick)) error {
	err := s.playback.Run(ctx, func(t schema.MarketTick) error {
		emit(t)
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (r *Runtime) source() (tickSource, error) {
	switch r.cfg.Source.Mode {
	case SourceReplay:
		pb, err := recorder.NewPlayback(r.cfg.Source.Replay)
		if err != nil {
			return nil, err
		}
		return &replaySource{playback: pb}, nil
	default:
		gen, err := mdg.NewGenerator(r.reg, r.cfg.Source.Generator)
		if err != nil {
			return nil, err
		}
		return &liveSource{
			publisher: mdg.NewPublisher(gen, r.cfg.Source.TicksPerSecond, r.cfg.Source.MaxTicks, r.sink),
		}, nil
	}
}
