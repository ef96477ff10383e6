package main

import (
	"context"
	"flag"
	"os"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/chaos"
	"tickpipe/internal/mdg"
	"tickpipe/internal/obs"
	"tickpipe/internal/ops"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
	"tickpipe/internal/transport"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("mdg: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config")
	addr := flag.String("addr", "", "UDP destination (default: transport.udpAddr from config)")
	ticks := flag.Uint64("ticks", 0, "Number of ticks to publish (0=config maxTicks, unlimited when both are 0)")
	tps := flag.Int("rate", 0, "Ticks per second (0=config)")
	seed := flag.Int64("seed", 0, "Generator seed (0=config)")
	recordPath := flag.String("record", "", "Also record every published tick to this log")
	flag.Parse()

	_ = ops.LoadEnv()
	loaded, err := ops.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	src := loaded.Pipeline.Source
	if *ticks > 0 {
		src.MaxTicks = *ticks
	}
	if *tps > 0 {
		src.TicksPerSecond = *tps
	}
	if *seed != 0 {
		src.Generator.Seed = *seed
	}
	target := *addr
	if target == "" {
		target = loaded.Pipeline.Transport.UDPAddr
	}

	metrics := obs.NewMetrics(0)
	gen, err := mdg.NewGenerator(loaded.Registry, src.Generator)
	if err != nil {
		return err
	}
	tx, err := transport.DialTicks(target, metrics)
	if err != nil {
		return err
	}
	defer tx.Close()

	var injector *chaos.Engine
	if loaded.Pipeline.Transport.Chaos.Enabled() {
		if injector, err = chaos.NewEngine(loaded.Pipeline.Transport.Chaos); err != nil {
			return err
		}
	}

	var rec *recorder.Recorder
	if *recordPath != "" {
		if rec, err = recorder.OpenRecorder(recorder.Config{Path: *recordPath, SyncEvery: loaded.Pipeline.Record.SyncEvery}); err != nil {
			return err
		}
	}

	ctx, cancel := ops.ShutdownContext(context.Background())
	defer cancel()

	logs.Infof("mdg: publishing to udp %s at %d ticks/s", target, src.TicksPerSecond)

	var (
		recErr error
		buf    []schema.MarketTick
	)
	publisher := mdg.NewPublisher(gen, src.TicksPerSecond, src.MaxTicks, metrics)
	runErr := publisher.Run(ctx, func(t schema.MarketTick) {
		if rec != nil && recErr == nil {
			if recErr = rec.Record(t); recErr != nil {
				cancel()
				return
			}
		}
		buf = injector.Process(buf[:0], t)
		for _, out := range buf {
			_ = tx.Send(out)
		}
	})
	for _, out := range injector.Flush(buf[:0]) {
		_ = tx.Send(out)
	}

	if rec != nil {
		if err := rec.Close(); err != nil && recErr == nil {
			recErr = err
		}
		logs.Infof("mdg: recorded %d ticks to %s", rec.Records(), *recordPath)
	}
	logs.Infof("mdg: generated %d, sent %d, send errors %d",
		metrics.Count(obs.TicksGenerated), metrics.Count(obs.TicksSent), metrics.Count(obs.SendErrors))

	if runErr != nil {
		return runErr
	}
	if recErr != nil {
		return errors.Wrap(recErr, "record")
	}
	return nil
}
