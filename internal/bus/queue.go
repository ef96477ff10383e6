package bus

import (
	"strings"
	"sync"

	"tickpipe/pkg/exception"
)

// OverflowPolicy defines queue behavior when full.
type OverflowPolicy uint8

const (
	// OverflowDropNewest drops the incoming item if the queue is full.
	OverflowDropNewest OverflowPolicy = iota
	// OverflowDropOldest drops the oldest item to make room.
	OverflowDropOldest
	// OverflowBlock blocks until space is available.
	OverflowBlock
)

func (p OverflowPolicy) String() string {
	switch p {
	case OverflowDropNewest:
		return "drop_newest"
	case OverflowDropOldest:
		return "drop_oldest"
	case OverflowBlock:
		return "block"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy maps a config value to a policy. Empty selects drop_newest.
func ParseOverflowPolicy(s string) (OverflowPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop_newest", "newest":
		return OverflowDropNewest, true
	case "drop_oldest", "oldest":
		return OverflowDropOldest, true
	case "block":
		return OverflowBlock, true
	default:
		return 0, false
	}
}

// Queue is a bounded FIFO ring buffer safe for multiple producers and consumers.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	buf      []T
	head     int
	tail     int
	size     int
	closed   bool
	policy   OverflowPolicy
}

// NewQueue creates a bounded queue. capacity <= 0 is treated as 1.
func NewQueue[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	q := &Queue[T]{
		buf:    make([]T, capacity),
		policy: policy,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push enqueues v according to the overflow policy. evicted reports that the
// oldest item was discarded to make room. exception.ErrQueueFull means v itself
// was discarded; exception.ErrQueueClosed means the queue no longer accepts items.
func (q *Queue[T]) Push(v T) (evicted bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return evicted, exception.ErrQueueClosed
		}
		if q.size < len(q.buf) {
			q.buf[q.tail] = v
			q.tail = (q.tail + 1) % len(q.buf)
			q.size++
			q.notEmpty.Signal()
			return evicted, nil
		}
		switch q.policy {
		case OverflowBlock:
			q.notFull.Wait()
		case OverflowDropOldest:
			var zero T
			q.buf[q.head] = zero
			q.head = (q.head + 1) % len(q.buf)
			q.size--
			evicted = true
		default:
			return false, exception.ErrQueueFull
		}
	}
}

// Pop dequeues the next item, blocking until one is available. After Close it
// keeps returning buffered items and reports false once the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.size > 0 {
			return q.popLocked(), true
		}
		if q.closed {
			var zero T
			return zero, false
		}
		q.notEmpty.Wait()
	}
}

// TryPop dequeues the next item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

func (q *Queue[T]) popLocked() T {
	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	q.notFull.Signal()
	return v
}

// Close stops the queue from accepting new items and wakes blocked callers.
// Buffered items remain available to Pop.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
	}
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	size := q.size
	q.mu.Unlock()
	return size
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Policy returns the overflow policy.
func (q *Queue[T]) Policy() OverflowPolicy {
	return q.policy
}
