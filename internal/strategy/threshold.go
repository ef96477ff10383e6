package strategy

import (
	"tickpipe/internal/schema"
)

const NameThreshold = "threshold"

type zone uint8

const (
	zoneNeutral zone = iota
	zoneBelow
	zoneAbove
)

// Threshold emits a buy when the last price falls below a symbol's low band
// and a sell when it rises above the high band. It fires once per excursion
// and re-arms when the price returns inside the band.
type Threshold struct {
	bands []schema.Band
	qty   []schema.Quantity
	zones []zone
	now   Clock
}

// NewThreshold creates a threshold strategy. bands and qty are indexed by
// SymbolID-1.
func NewThreshold(bands []schema.Band, qty []schema.Quantity, now Clock) *Threshold {
	if now == nil {
		now = wallClock
	}
	return &Threshold{
		bands: bands,
		qty:   qty,
		zones: make([]zone, len(bands)),
		now:   now,
	}
}

func (s *Threshold) Name() string {
	return NameThreshold
}

func (s *Threshold) Process(t schema.EnrichedTick) (schema.TradingSignal, bool) {
	i, ok := symbolSlot(t.Tick.SymbolID, len(s.bands))
	if !ok || !s.bands[i].Valid() {
		return schema.TradingSignal{}, false
	}
	band := s.bands[i]
	last := t.Tick.Last

	var (
		next zone
		side schema.OrderSide
	)
	switch {
	case last < band.Low:
		next, side = zoneBelow, schema.OrderSideBuy
	case last > band.High:
		next, side = zoneAbove, schema.OrderSideSell
	default:
		s.zones[i] = zoneNeutral
		return schema.TradingSignal{}, false
	}
	if s.zones[i] == next {
		return schema.TradingSignal{}, false
	}
	s.zones[i] = next

	return schema.TradingSignal{
		SymbolID: t.Tick.SymbolID,
		Side:     side,
		Qty:      s.qty[i],
		Price:    last,
		Strategy: NameThreshold,
		TickSeq:  t.Tick.Seq,
		TsSignal: s.now(),
	}, true
}
