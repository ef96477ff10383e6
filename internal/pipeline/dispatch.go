package pipeline

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"tickpipe/internal/bus"
	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
)

// dispatcher routes enriched ticks to shard queues by symbol so every tick of
// a symbol lands on the same worker in arrival order.
type dispatcher struct {
	shards []*bus.Queue[schema.EnrichedTick]
	sink   obs.Sink
}

func newDispatcher(shards, capacity int, policy bus.OverflowPolicy, sink obs.Sink) *dispatcher {
	d := &dispatcher{
		shards: make([]*bus.Queue[schema.EnrichedTick], shards),
		sink:   sink,
	}
	for i := range d.shards {
		d.shards[i] = bus.NewQueue[schema.EnrichedTick](capacity, policy)
	}
	return d
}

func shardOf(symbol schema.SymbolID, n int) int {
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], uint32(symbol))
	return int(xxhash.Sum64(key[:]) % uint64(n))
}

// dispatch never blocks: a full queue drops per its policy and counts it.
func (d *dispatcher) dispatch(et schema.EnrichedTick) {
	q := d.shards[shardOf(et.Tick.SymbolID, len(d.shards))]
	evicted, err := q.Push(et)
	if err != nil || evicted {
		d.sink.Inc(obs.DroppedBackpressure)
	}
}

func (d *dispatcher) close() {
	for _, q := range d.shards {
		q.Close()
	}
}
