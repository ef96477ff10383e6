package obs

import "time"

// Counter identifies a pipeline event count.
type Counter uint8

const (
	TicksGenerated Counter = iota
	TicksSent
	SendErrors
	TicksReceived
	Malformed
	SeqGaps
	StaleTicks
	CrossedBook
	DroppedBackpressure
	Evaluated
	Signals
	QuotesSkipped
	OrdersPlaced
	OrdersRejected
	OrderErrors
	RecordErrors
	JournalErrors

	counterCount
)

var counterNames = [counterCount]string{
	TicksGenerated:      "ticks_generated",
	TicksSent:           "ticks_sent",
	SendErrors:          "send_errors",
	TicksReceived:       "ticks_received",
	Malformed:           "malformed",
	SeqGaps:             "seq_gaps",
	StaleTicks:          "stale_ticks",
	CrossedBook:         "crossed_book",
	DroppedBackpressure: "dropped_backpressure",
	Evaluated:           "evaluated",
	Signals:             "signals",
	QuotesSkipped:       "quotes_skipped",
	OrdersPlaced:        "orders_placed",
	OrdersRejected:      "orders_rejected",
	OrderErrors:         "order_errors",
	RecordErrors:        "record_errors",
	JournalErrors:       "journal_errors",
}

func (c Counter) String() string {
	if c < counterCount {
		return counterNames[c]
	}
	return "unknown"
}

// Counters returns every defined counter in order.
func Counters() []Counter {
	out := make([]Counter, counterCount)
	for i := range out {
		out[i] = Counter(i)
	}
	return out
}

// LatencyKind tags a latency sample.
type LatencyKind uint8

const (
	// LatencyNetwork is receipt time minus generation time.
	LatencyNetwork LatencyKind = iota
	// LatencyProcessing is strategy completion time minus receipt time.
	LatencyProcessing
	// LatencyOrder is ack time minus signal time.
	LatencyOrder

	latencyKindCount
)

func (k LatencyKind) String() string {
	switch k {
	case LatencyNetwork:
		return "network"
	case LatencyProcessing:
		return "processing"
	case LatencyOrder:
		return "order"
	default:
		return "unknown"
	}
}

// LatencyKinds returns every defined latency kind in order.
func LatencyKinds() []LatencyKind {
	return []LatencyKind{LatencyNetwork, LatencyProcessing, LatencyOrder}
}

// Sink receives counts and latency samples from pipeline stages.
// Implementations must be safe for concurrent use.
type Sink interface {
	Inc(c Counter)
	Observe(kind LatencyKind, d time.Duration)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Inc(Counter)                        {}
func (discard) Observe(LatencyKind, time.Duration) {}

// Multi fans out to several sinks. Nil entries are skipped.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

type multi []Sink

func (m multi) Inc(c Counter) {
	for _, s := range m {
		s.Inc(c)
	}
}

func (m multi) Observe(kind LatencyKind, d time.Duration) {
	for _, s := range m {
		s.Observe(kind, d)
	}
}

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}
