package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LatencyBucketsMicros are the histogram bucket bounds in microseconds.
var LatencyBucketsMicros = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// PromSink exports counts and latency samples as Prometheus collectors.
type PromSink struct {
	counters [counterCount]prometheus.Counter
	latency  [latencyKindCount]prometheus.Observer
}

// NewPromSink registers the collectors on reg. A nil reg uses the default registerer.
func NewPromSink(namespace string, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Pipeline event counts by kind.",
	}, []string{"event"})
	hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "latency_microseconds",
		Help:      "Pipeline latency samples in microseconds.",
		Buckets:   LatencyBucketsMicros,
	}, []string{"kind"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	if err := reg.Register(hist); err != nil {
		reg.Unregister(events)
		return nil, err
	}

	p := &PromSink{}
	for _, c := range Counters() {
		p.counters[c] = events.WithLabelValues(c.String())
	}
	for _, k := range LatencyKinds() {
		p.latency[k] = hist.WithLabelValues(k.String())
	}
	return p, nil
}

// Inc implements Sink.
func (p *PromSink) Inc(c Counter) {
	if p == nil || c >= counterCount {
		return
	}
	p.counters[c].Inc()
}

// Observe implements Sink.
func (p *PromSink) Observe(kind LatencyKind, d time.Duration) {
	if p == nil || kind >= latencyKindCount || d < 0 {
		return
	}
	p.latency[kind].Observe(float64(d.Nanoseconds()) / 1e3)
}
