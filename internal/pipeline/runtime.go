package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"tickpipe/internal/bus"
	"tickpipe/internal/chaos"
	"tickpipe/internal/journal"
	"tickpipe/internal/obs"
	"tickpipe/internal/og"
	"tickpipe/internal/recorder"
	"tickpipe/internal/schema"
	"tickpipe/internal/strategy"
	"tickpipe/internal/transport"
	"tickpipe/pkg/exception"
)

// Deps are the collaborators injected into a Runtime. All are optional.
type Deps struct {
	// Sink receives every counter and latency sample in addition to the
	// runtime's own Metrics.
	Sink obs.Sink
	// Submitter overrides the configured gateway.
	Submitter og.Submitter
	Journal   journal.Journal
	// OnOrder is called from the order stage for every acked or rejected order.
	OnOrder func(schema.Order)
}

// Runtime wires source, transport, feed, strategy workers and the order stage.
type Runtime struct {
	cfg     Config
	reg     *schema.Registry
	deps    Deps
	metrics *obs.Metrics
	sink    obs.Sink

	strategies []strategy.Strategy

	mu      sync.Mutex
	running bool
	summary Summary
}

// New validates cfg and builds a runtime. Nothing runs until Run.
func New(cfg Config, reg *schema.Registry, deps Deps) (*Runtime, error) {
	if reg == nil || reg.SymbolCount() == 0 {
		return nil, exception.ErrConfigNoSymbols
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	metrics := obs.NewMetrics(cfg.LatencyWindow)
	sink := obs.Sink(metrics)
	if deps.Sink != nil {
		sink = obs.Multi(metrics, deps.Sink)
	}

	r := &Runtime{
		cfg:        cfg,
		reg:        reg,
		deps:       deps,
		metrics:    metrics,
		sink:       sink,
		strategies: make([]strategy.Strategy, cfg.Shards),
	}
	for i := range r.strategies {
		s, err := strategy.Build(cfg.Strategy, reg, sink, nil)
		if err != nil {
			return nil, err
		}
		r.strategies[i] = s
	}
	return r, nil
}

// Metrics returns the runtime's in-memory metrics.
func (r *Runtime) Metrics() *obs.Metrics {
	return r.metrics
}

// Run starts every stage and blocks until the source is exhausted or ctx is
// done, then shuts down in order: source, receiver after DrainTimeout, shard
// queues, order queue. Persistence and startup errors are returned; per-tick
// failures only show up in the counters.
func (r *Runtime) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("pipeline: already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	started := time.Now()

	gw, closeGW, err := r.gateway(ctx)
	if err != nil {
		return err
	}
	defer closeGW()

	injector, err := r.chaos()
	if err != nil {
		return err
	}
	source, err := r.source()
	if err != nil {
		return err
	}
	var rec *recorder.Recorder
	if r.cfg.Record.Path != "" {
		if rec, err = recorder.OpenRecorder(r.cfg.Record); err != nil {
			return errors.Wrap(err, "open recorder")
		}
	}

	disp := newDispatcher(r.cfg.Shards, r.cfg.QueueCapacity, r.cfg.Overflow, r.sink)
	orders := bus.NewQueue[schema.TradingSignal](r.cfg.OrderQueueCapacity, r.cfg.OrderOverflow)
	fd := newFeed(r.reg, r.cfg.Book, rec, r.cfg.Source.Mode == SourceLive, r.sink, disp.dispatch)

	// Orders already in flight finish even when ctx is canceled.
	stage := &orderStage{
		in:      orders,
		gw:      gw,
		journal: r.deps.Journal,
		sink:    r.sink,
		onOrder: r.deps.OnOrder,
	}
	var orderWG sync.WaitGroup
	orderWG.Add(1)
	go func() {
		defer orderWG.Done()
		stage.run(context.WithoutCancel(ctx))
	}()

	var workerWG sync.WaitGroup
	for i, q := range disp.shards {
		workerWG.Add(1)
		go func(q *bus.Queue[schema.EnrichedTick], s strategy.Strategy) {
			defer workerWG.Done()
			runWorker(q, s, orders, r.sink)
		}(q, r.strategies[i])
	}

	logs.Infof("pipeline: started (source %s, transport %s, strategy %s, %d shards)",
		r.cfg.Source.Mode, r.cfg.Transport.Mode, r.cfg.Strategy.Name, r.cfg.Shards)

	ingressErr := r.runIngress(ctx, source, injector, fd)

	disp.close()
	workerWG.Wait()
	orders.Close()
	orderWG.Wait()

	var recorded uint64
	if rec != nil {
		recorded = rec.Records()
		if err := rec.Close(); err != nil && fd.recErr == nil {
			fd.recErr = errors.Wrap(err, "close recorder")
		}
	}
	if r.deps.Journal != nil {
		if err := r.deps.Journal.Close(); err != nil {
			logs.Errorf("pipeline: close journal: %+v", err)
		}
	}

	r.mu.Lock()
	r.summary = Summary{
		Snapshot: r.metrics.Snapshot(),
		Elapsed:  time.Since(started),
		Recorded: recorded,
		Chaos:    injector.Stats(),
	}
	if pb, ok := source.(*replaySource); ok {
		r.summary.Replayed = pb.playback.Played()
		r.summary.ReplayTruncated = pb.playback.Truncated()
	}
	r.running = false
	r.mu.Unlock()

	logs.Infof("pipeline: stopped after %s", r.summary.Elapsed)

	if ingressErr != nil {
		return ingressErr
	}
	if fd.recErr != nil {
		return errors.Wrap(fd.recErr, "record")
	}
	return nil
}

// runIngress drives the source into the feed and returns when the source is
// done and the receiver, if any, has drained.
func (r *Runtime) runIngress(ctx context.Context, src tickSource, injector *chaos.Engine, fd *feed) error {
	g, gctx := errgroup.WithContext(ctx)
	var buf []schema.MarketTick

	switch r.cfg.Transport.Mode {
	case TransportUDP:
		rx, err := transport.ListenTicks(r.cfg.Transport.UDPAddr, r.cfg.Transport.ReadBuffer, r.sink)
		if err != nil {
			return err
		}
		tx, err := transport.DialTicks(rx.Addr().String(), r.sink)
		if err != nil {
			_ = rx.Close()
			return err
		}
		logs.Infof("pipeline: market data on udp %s", rx.Addr())

		recvCtx, stopRecv := context.WithCancel(gctx)
		defer stopRecv()
		g.Go(func() error {
			defer rx.Close()
			return rx.Run(recvCtx, fd.handle)
		})
		g.Go(func() error {
			defer stopRecv()
			defer tx.Close()
			err := src.run(gctx, func(t schema.MarketTick) {
				buf = injector.Process(buf[:0], t)
				for _, out := range buf {
					_ = tx.Send(out)
				}
			})
			for _, out := range injector.Flush(buf[:0]) {
				_ = tx.Send(out)
			}
			linger(gctx, r.cfg.DrainTimeout)
			return err
		})

	default:
		g.Go(func() error {
			deliver := func(t schema.MarketTick) {
				r.sink.Inc(obs.TicksSent)
				r.sink.Inc(obs.TicksReceived)
				fd.handle(t, time.Now().UnixNano())
			}
			err := src.run(gctx, func(t schema.MarketTick) {
				buf = injector.Process(buf[:0], t)
				for _, out := range buf {
					deliver(out)
				}
			})
			for _, out := range injector.Flush(buf[:0]) {
				deliver(out)
			}
			return err
		})
	}
	return g.Wait()
}

// linger gives datagrams still in flight DrainTimeout to reach the receiver.
// Cancellation cuts it short; the receiver stops on ctx then anyway.
func linger(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (r *Runtime) chaos() (*chaos.Engine, error) {
	if !r.cfg.Transport.Chaos.Enabled() {
		return nil, nil
	}
	return chaos.NewEngine(r.cfg.Transport.Chaos)
}

func (r *Runtime) gateway(ctx context.Context) (og.Submitter, func(), error) {
	if r.deps.Submitter != nil {
		return r.deps.Submitter, func() {}, nil
	}
	switch r.cfg.Gateway.Mode {
	case GatewayRemote:
		client, err := og.DialClient(ctx, r.cfg.Gateway.Network, r.cfg.Gateway.Addr)
		if err != nil {
			return nil, nil, errors.Wrap(err, "dial gateway")
		}
		return client, func() { _ = client.Close() }, nil
	default:
		gw := og.NewGateway(r.cfg.Gateway.Local, r.reg)
		return gw, func() { _ = gw.Close() }, nil
	}
}

// Summary is the end-of-run report.
type Summary struct {
	obs.Snapshot
	Elapsed         time.Duration
	Recorded        uint64
	Replayed        uint64
	ReplayTruncated bool
	Chaos           chaos.Stats
}

// Summary returns the report of the last completed Run. While running it
// returns a live metrics snapshot.
func (r *Runtime) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return Summary{Snapshot: r.metrics.Snapshot()}
	}
	return r.summary
}

// Log writes the summary at info level.
func (s Summary) Log() {
	logs.Infof("summary: elapsed %s, recorded %d, replayed %d (truncated %v)",
		s.Elapsed, s.Recorded, s.Replayed, s.ReplayTruncated)
	for _, c := range obs.Counters() {
		logs.Infof("summary: %-22s %d", c, s.Count(c))
	}
	for _, k := range obs.LatencyKinds() {
		l := s.Latency[k]
		logs.Infof("summary: %s latency n=%d p50=%s p99=%s mean=%s max=%s", k, l.Count, l.P50, l.P99, l.Mean, l.Max)
	}
	if s.Chaos.In > 0 {
		logs.Infof("summary: chaos in=%d out=%d dropped=%d duplicated=%d", s.Chaos.In, s.Chaos.Out, s.Chaos.Dropped, s.Chaos.Duplicated)
	}
}
