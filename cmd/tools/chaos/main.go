package main

import (
	"context"
	"flag"
	"os"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/chaos"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("chaos: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	in := flag.String("in", "testdata/ticks.log", "Source replay log")
	out := flag.String("out", "testdata/ticks.chaos.log", "Destination replay log")
	seed := flag.Int64("seed", 1, "Random seed")
	drop := flag.Float64("drop", 0, "Drop probability (0..1)")
	dup := flag.Float64("dup", 0, "Duplicate probability (0..1)")
	reorder := flag.Int("reorder", 0, "Reorder window in ticks (0 or 1 disables)")
	maxDelay := flag.Duration("max-delay", 0, "Max event time skew applied to each tick")
	flag.Parse()

	if *in == *out {
		return errors.New("chaos: -in and -out must differ")
	}

	cfg := chaos.Config{
		Seed:          *seed,
		DropRate:      *drop,
		DuplicateRate: *dup,
		ReorderWindow: *reorder,
		MaxDelay:      *maxDelay,
	}
	engine, err := chaos.NewEngine(cfg)
	if err != nil {
		return err
	}

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{Path: *in})
	if err != nil {
		return err
	}
	rec, err := recorder.OpenRecorder(recorder.Config{Path: *out, SyncEvery: -1})
	if err != nil {
		return err
	}

	var buf []schema.MarketTick
	runErr := pb.Run(context.Background(), func(t schema.MarketTick) error {
		buf = engine.Process(buf[:0], t)
		for _, o := range buf {
			if err := rec.Record(o); err != nil {
				return err
			}
		}
		return nil
	})
	if runErr == nil {
		for _, o := range engine.Flush(buf[:0]) {
			if runErr = rec.Record(o); runErr != nil {
				break
			}
		}
	}
	if err := rec.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return errors.Wrap(runErr, "rewrite log")
	}

	st := engine.Stats()
	logs.Infof("chaos: in=%d out=%d dropped=%d duplicated=%d truncated_source=%t",
		st.In, st.Out, st.Dropped, st.Duplicated, pb.Truncated())
	return nil
}
