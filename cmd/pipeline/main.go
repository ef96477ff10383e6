package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/journal"
	"tickpipe/internal/obs"
	"tickpipe/internal/ops"
	"tickpipe/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("pipeline: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "configs/pipeline.yaml", "Path to YAML config")
	envFile := flag.String("env", "", "Optional .env file (default: ./.env when present)")
	replayPath := flag.String("replay", "", "Replay this log instead of the live generator")
	recordPath := flag.String("record", "", "Record received ticks to this log")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop the live generator after this many ticks (0=config)")
	duration := flag.Duration("duration", 0, "Stop after this long (0=until signal or source end)")
	reportEvery := flag.Duration("report-interval", time.Second, "Snapshot log interval (0=disable)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	if *envFile != "" {
		if err := ops.LoadEnv(*envFile); err != nil {
			return err
		}
	} else {
		_ = ops.LoadEnv()
	}

	loaded, err := ops.Load(*configPath)
	if err != nil {
		return errors.Wrap(err, "config")
	}
	cfg := loaded.Pipeline
	if *replayPath != "" {
		cfg.Source.Mode = pipeline.SourceReplay
		cfg.Source.Replay.Path = *replayPath
	}
	if *recordPath != "" {
		cfg.Record.Path = *recordPath
	}
	if *maxTicks > 0 {
		cfg.Source.MaxTicks = *maxTicks
	}

	if *pyroscopeAddr != "" {
		stop, err := ops.StartProfiler("tickpipe.pipeline", *pyroscopeAddr)
		if err != nil {
			return err
		}
		defer stop()
	}

	var deps pipeline.Deps
	if loaded.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink, err := obs.NewPromSink(loaded.Metrics.Namespace, reg)
		if err != nil {
			return errors.Wrap(err, "prometheus sink")
		}
		srv, addr, err := obs.ServeMetrics(loaded.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		defer srv.Close()
		logs.Infof("metrics on http://%s/metrics", addr)
		deps.Sink = sink
	}

	if loaded.Journal.Enabled {
		store, client, err := journal.Open(loaded.Journal.Conn)
		if err != nil {
			return errors.Wrap(err, "journal")
		}
		defer client.Close()
		batcher := journal.NewBatcher(store, loaded.Registry, loaded.Journal.Batch, loaded.Journal.Buffer, deps.Sink)
		go batcher.Run()
		deps.Journal = batcher
	}

	rt, err := pipeline.New(cfg, loaded.Registry, deps)
	if err != nil {
		return err
	}

	ctx, cancel := ops.ShutdownContext(context.Background())
	defer cancel()
	if *duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, *duration)
		defer stop()
	}

	if *reportEvery > 0 {
		go report(ctx, rt, *reportEvery)
	}

	runErr := rt.Run(ctx)
	rt.Summary().Log()
	return runErr
}

func report(ctx context.Context, rt *pipeline.Runtime, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := rt.Summary()
			net := s.Latency[obs.LatencyNetwork]
			ord := s.Latency[obs.LatencyOrder]
			logs.Infof("recv %d eval %d signals %d placed %d dropped %d | net p50 %s p99 %s | order p50 %s p99 %s",
				s.Count(obs.TicksReceived), s.Count(obs.Evaluated), s.Count(obs.Signals),
				s.Count(obs.OrdersPlaced), s.Count(obs.DroppedBackpressure),
				net.P50, net.P99, ord.P50, ord.P99)
		}
	}
}
