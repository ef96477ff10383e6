package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/ops"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("replay: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("log", "testdata/ticks.log", "Replay log to read")
	configPath := flag.String("config", "configs/pipeline.yaml", "Config used to name and scale symbols")
	speed := flag.Float64("speed", 0, "Playback speed (1=recorded spacing, 0=no pacing)")
	tps := flag.Int("rate", 0, "Fixed ticks per second (exclusive with -speed)")
	limit := flag.Uint64("limit", 0, "Stop after this many ticks (0=all)")
	statsOnly := flag.Bool("stats", false, "Print log statistics only")
	flag.Parse()

	reg, err := ops.LoadRegistry(*configPath)
	if err != nil {
		logs.Infof("replay: no symbol config (%v), printing raw ids", err)
		reg = nil
	}

	st, err := recorder.ReadStats(*path)
	if err != nil {
		return errors.Wrap(err, "read stats")
	}
	if *statsOnly {
		printStats(st, reg)
		return nil
	}

	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{Path: *path, Speed: *speed, Rate: *tps})
	if err != nil {
		return err
	}

	ctx, cancel := ops.ShutdownContext(context.Background())
	defer cancel()

	var index uint64
	err = pb.Run(ctx, func(t schema.MarketTick) error {
		index++
		fmt.Printf("%08d %s seq=%d bid=%s ask=%s last=%s size=%s ts_event=%d\n",
			index, symbolName(reg, t.SymbolID), t.Seq,
			price(reg, t.SymbolID, t.Bid), price(reg, t.SymbolID, t.Ask), price(reg, t.SymbolID, t.Last),
			qty(reg, t.SymbolID, t.Size), t.TsEvent)
		if *limit > 0 && index >= *limit {
			cancel()
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	printStats(st, reg)
	return nil
}

func printStats(st recorder.Stats, reg *schema.Registry) {
	fmt.Printf("ticks=%d duration=%s truncated=%t\n", st.TotalTicks, st.Duration, st.Truncated)
	for _, id := range st.Symbols {
		fmt.Printf("  %s: %d\n", symbolName(reg, id), st.PerSymbol[id])
	}
}

func symbolName(reg *schema.Registry, id schema.SymbolID) string {
	if reg != nil {
		if s, ok := reg.Symbol(id); ok {
			return s.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func price(reg *schema.Registry, id schema.SymbolID, p schema.Price) string {
	if reg != nil {
		if s, ok := reg.Symbol(id); ok {
			return p.Decimal(s.PriceScale).String()
		}
	}
	return fmt.Sprintf("%d", p)
}

func qty(reg *schema.Registry, id schema.SymbolID, q schema.Quantity) string {
	if reg != nil {
		if s, ok := reg.Symbol(id); ok {
			return q.Decimal(s.QtyScale).String()
		}
	}
	return fmt.Sprintf("%d", q)
}
