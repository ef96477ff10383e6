package obs

import (
	"sync/atomic"
	"time"

	"github.com/montanaflynn/stats"
)

// DefaultSampleWindow is the number of recent samples kept per latency kind.
const DefaultSampleWindow = 1 << 14

const noMin = ^uint64(0)

// Metrics is an in-memory Sink with atomic counters and latency stats.
type Metrics struct {
	counters [counterCount]atomic.Uint64
	latency  [latencyKindCount]LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds and keeps a ring of
// the most recent samples for percentile estimates. Use NewMetrics to get an
// initialised instance.
type LatencyStats struct {
	count atomic.Uint64
	sum   atomic.Uint64
	min   atomic.Uint64
	max   atomic.Uint64

	ring []atomic.Int64
	mask uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P99   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Counters map[Counter]uint64
	Latency  map[LatencyKind]LatencySnapshot
}

// Count returns the value of c, zero when absent.
func (s Snapshot) Count(c Counter) uint64 {
	return s.Counters[c]
}

// NewMetrics allocates a metrics container. window is rounded up to a power
// of two; window <= 0 uses DefaultSampleWindow.
func NewMetrics(window int) *Metrics {
	if window <= 0 {
		window = DefaultSampleWindow
	}
	size := 1
	for size < window {
		size <<= 1
	}
	m := &Metrics{}
	for i := range m.latency {
		m.latency[i].ring = make([]atomic.Int64, size)
		m.latency[i].mask = uint64(size - 1)
		m.latency[i].min.Store(noMin)
	}
	return m
}

// Inc implements Sink.
func (m *Metrics) Inc(c Counter) {
	if m == nil || c >= counterCount {
		return
	}
	m.counters[c].Add(1)
}

// Observe implements Sink. Negative durations are dropped.
func (m *Metrics) Observe(kind LatencyKind, d time.Duration) {
	if m == nil || kind >= latencyKindCount {
		return
	}
	m.latency[kind].Observe(d)
}

// Count returns the current value of c.
func (m *Metrics) Count(c Counter) uint64 {
	if m == nil || c >= counterCount {
		return 0
	}
	return m.counters[c].Load()
}

// Latency returns the current stats for kind.
func (m *Metrics) Latency(kind LatencyKind) LatencySnapshot {
	if m == nil || kind >= latencyKindCount {
		return LatencySnapshot{}
	}
	return m.latency[kind].Snapshot()
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	counters := make(map[Counter]uint64, counterCount)
	for i := range m.counters {
		if v := m.counters[i].Load(); v > 0 {
			counters[Counter(i)] = v
		}
	}
	latency := make(map[LatencyKind]LatencySnapshot, latencyKindCount)
	for _, k := range LatencyKinds() {
		latency[k] = m.latency[k].Snapshot()
	}
	return Snapshot{Counters: counters, Latency: latency}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	n := l.count.Add(1)
	l.sum.Add(nanos)
	if len(l.ring) > 0 {
		l.ring[(n-1)&l.mask].Store(int64(nanos))
	}

	for {
		min := l.min.Load()
		if nanos >= min {
			break
		}
		if l.min.CompareAndSwap(min, nanos) {
			break
		}
	}

	for {
		max := l.max.Load()
		if nanos <= max {
			break
		}
		if l.max.CompareAndSwap(max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats. Percentiles cover the most
// recent samples only.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := l.count.Load()
	if count == 0 {
		return LatencySnapshot{}
	}
	min := l.min.Load()
	if min == noMin {
		min = 0
	}
	out := LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(l.max.Load()),
		Mean:  time.Duration(l.sum.Load() / count),
	}

	n := count
	if n > uint64(len(l.ring)) {
		n = uint64(len(l.ring))
	}
	if n == 0 {
		return out
	}
	data := make(stats.Float64Data, n)
	for i := range data {
		data[i] = float64(l.ring[i].Load())
	}
	if p, err := stats.Percentile(data, 50); err == nil {
		out.P50 = time.Duration(p)
	}
	if p, err := stats.Percentile(data, 99); err == nil {
		out.P99 = time.Duration(p)
	}
	return out
}
