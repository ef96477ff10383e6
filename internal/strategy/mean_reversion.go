package strategy

import (
	"math"

	"tickpipe/internal/schema"
)

const NameMeanReversion = "mean_reversion"

// minRelStdDev treats a deviation this small relative to the mean as zero.
const minRelStdDev = 1e-7

// MeanReversionParams configure the z-score strategy.
type MeanReversionParams struct {
	Window int
	// ZScore is the entry threshold in standard deviations.
	ZScore float64
	// SizeByDeviation scales quantity by ZScore/|z|.
	SizeByDeviation bool
}

// window is a fixed ring of prices with running mean and variance.
type window struct {
	values []float64
	next   int
	n      int
	mean   float64
	m2     float64
	armed  bool
}

func (w *window) push(x float64) {
	if w.n == len(w.values) {
		w.remove(w.values[w.next])
	}
	w.values[w.next] = x
	w.next = (w.next + 1) % len(w.values)
	w.n++
	d := x - w.mean
	w.mean += d / float64(w.n)
	w.m2 += d * (x - w.mean)
	if w.next == 0 && w.full() {
		w.recompute()
	}
}

// recompute rebuilds mean and m2 from the ring to shed accumulated rounding.
func (w *window) recompute() {
	var sum float64
	for _, v := range w.values[:w.n] {
		sum += v
	}
	mean := sum / float64(w.n)
	var m2 float64
	for _, v := range w.values[:w.n] {
		m2 += (v - mean) * (v - mean)
	}
	w.mean, w.m2 = mean, m2
}

func (w *window) remove(y float64) {
	if w.n <= 1 {
		w.n, w.mean, w.m2 = 0, 0, 0
		return
	}
	w.n--
	d := y - w.mean
	w.mean -= d / float64(w.n)
	w.m2 -= d * (y - w.mean)
	if w.m2 < 0 {
		w.m2 = 0
	}
}

func (w *window) full() bool {
	return w.n == len(w.values)
}

// stddev returns the population standard deviation.
func (w *window) stddev() float64 {
	if w.n == 0 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n))
}

// MeanReversion sells when the last price sits more than ZScore standard
// deviations above the rolling mean and buys when it sits below. The current
// price is part of the window. After a signal it stays quiet until |z| < 1.
type MeanReversion struct {
	params  MeanReversionParams
	qty     []schema.Quantity
	windows []window
	now     Clock
}

// NewMeanReversion creates a mean reversion strategy. qty is indexed by SymbolID-1.
func NewMeanReversion(params MeanReversionParams, qty []schema.Quantity, now Clock) *MeanReversion {
	if now == nil {
		now = wallClock
	}
	if params.Window < 2 {
		params.Window = 2
	}
	windows := make([]window, len(qty))
	for i := range windows {
		windows[i] = window{values: make([]float64, params.Window), armed: true}
	}
	return &MeanReversion{
		params:  params,
		qty:     qty,
		windows: windows,
		now:     now,
	}
}

func (s *MeanReversion) Name() string {
	return NameMeanReversion
}

func (s *MeanReversion) Process(t schema.EnrichedTick) (schema.TradingSignal, bool) {
	i, ok := symbolSlot(t.Tick.SymbolID, len(s.windows))
	if !ok {
		return schema.TradingSignal{}, false
	}
	w := &s.windows[i]
	price := float64(t.Tick.Last)
	w.push(price)
	if !w.full() {
		return schema.TradingSignal{}, false
	}

	std := w.stddev()
	if std <= minRelStdDev*math.Max(1, math.Abs(w.mean)) {
		w.armed = true
		return schema.TradingSignal{}, false
	}
	z := (price - w.mean) / std
	absZ := math.Abs(z)
	if absZ < 1 {
		w.armed = true
	}
	if !w.armed || absZ <= s.params.ZScore {
		return schema.TradingSignal{}, false
	}
	w.armed = false

	qty := s.qty[i]
	if s.params.SizeByDeviation {
		qty = schema.Quantity(float64(qty) * s.params.ZScore / absZ)
		if qty < 1 {
			qty = 1
		}
	}
	side := schema.OrderSideBuy
	if z > 0 {
		side = schema.OrderSideSell
	}

	return schema.TradingSignal{
		SymbolID: t.Tick.SymbolID,
		Side:     side,
		Qty:      qty,
		Price:    t.Tick.Last,
		Strategy: NameMeanReversion,
		TickSeq:  t.Tick.Seq,
		TsSignal: s.now(),
	}, true
}
