package journal

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"tickpipe/internal/bus"
	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
)

const (
	defaultBatch  = 64
	defaultBuffer = 4096

	writeTimeout = 5 * time.Second
)

// Batcher queues orders and writes them to a Store in batches from its own
// goroutine. A full queue drops the order and counts a journal error.
type Batcher struct {
	store Store
	reg   *schema.Registry
	sink  obs.Sink
	batch int
	queue *bus.Queue[OrderRecord]
	done  chan struct{}
}

// NewBatcher creates a batcher. Call Run to start writing.
func NewBatcher(store Store, reg *schema.Registry, batch, buffer int, sink obs.Sink) *Batcher {
	if batch <= 0 {
		batch = defaultBatch
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Batcher{
		store: store,
		reg:   reg,
		sink:  obs.OrDiscard(sink),
		batch: batch,
		queue: bus.NewQueue[OrderRecord](buffer, bus.OverflowDropNewest),
		done:  make(chan struct{}),
	}
}

// Record implements Journal.
func (b *Batcher) Record(o schema.Order) {
	if _, err := b.queue.Push(NewOrderRecord(o, b.reg)); err != nil {
		b.sink.Inc(obs.JournalErrors)
	}
}

// Run writes batches until Close is called and the queue is drained.
func (b *Batcher) Run() {
	defer close(b.done)
	pending := make([]OrderRecord, 0, b.batch)
	for {
		rec, ok := b.queue.Pop()
		if !ok {
			return
		}
		pending = append(pending[:0], rec)
		for len(pending) < b.batch {
			next, ok := b.queue.TryPop()
			if !ok {
				break
			}
			pending = append(pending, next)
		}
		b.write(pending)
	}
}

func (b *Batcher) write(records []OrderRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := b.store.Insert(ctx, records); err != nil {
		for range records {
			b.sink.Inc(obs.JournalErrors)
		}
		logs.Errorf("journal: insert %d records: %+v", len(records), err)
	}
}

// Close stops accepting orders and waits for Run to flush what is queued.
// Run must have been started.
func (b *Batcher) Close() error {
	b.queue.Close()
	<-b.done
	return nil
}
