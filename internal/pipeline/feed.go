package pipeline

import (
	"time"

	"github.com/yanun0323/logs"

	"tickpipe/internal/book"
	"tickpipe/internal/obs"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// feed turns received ticks into enriched ticks. It owns the books and the
// per-symbol sequence state, so it must only be driven from one goroutine.
type feed struct {
	reg      *schema.Registry
	books    *book.Manager
	lastSeq  []uint64
	rec      *recorder.Recorder
	recErr   error
	sink     obs.Sink
	network  bool
	dispatch func(schema.EnrichedTick)
}

func newFeed(reg *schema.Registry, cfg BookConfig, rec *recorder.Recorder, network bool, sink obs.Sink, dispatch func(schema.EnrichedTick)) *feed {
	return &feed{
		reg:      reg,
		books:    book.NewManager(reg, cfg.MaxLevels, cfg.SnapshotDepth, sink),
		lastSeq:  make([]uint64, reg.SymbolCount()+1),
		rec:      rec,
		sink:     sink,
		network:  network,
		dispatch: dispatch,
	}
}

// handle runs one received tick through sequence checks, recording and the
// book, then dispatches the enriched result.
func (f *feed) handle(t schema.MarketTick, tsRecv int64) {
	id := int(t.SymbolID)
	if id <= 0 || id >= len(f.lastSeq) {
		f.sink.Inc(obs.Malformed)
		return
	}
	last := f.lastSeq[id]
	if t.Seq <= last {
		f.sink.Inc(obs.StaleTicks)
		return
	}
	if last != 0 && t.Seq > last+1 {
		f.sink.Inc(obs.SeqGaps)
	}
	f.lastSeq[id] = t.Seq

	if f.rec != nil {
		if err := f.rec.Record(t); err != nil {
			f.sink.Inc(obs.RecordErrors)
			logs.Errorf("feed: recording stopped: %+v", err)
			f.recErr = err
			f.rec = nil
		}
	}

	snap, err := f.books.ApplyTick(t)
	if err != nil {
		if err != exception.ErrCrossedBook {
			f.sink.Inc(obs.Malformed)
		}
		return
	}

	et := schema.EnrichedTick{Tick: t, TsRecv: tsRecv, Book: snap}
	if f.network {
		lat := tsRecv - t.TsEvent
		if lat < 0 {
			lat = 0
		}
		et.NetworkLatency = time.Duration(lat)
		f.sink.Observe(obs.LatencyNetwork, et.NetworkLatency)
	}
	f.dispatch(et)
}
