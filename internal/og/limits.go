package og

import (
	"time"

	"github.com/shopspring/decimal"

	"tickpipe/internal/schema"
)

// LimitsConfig holds the pre-trade checks. Quantities are in display units
// and converted per symbol with its quantity scale. Zero disables a check.
type LimitsConfig struct {
	KillSwitch      bool
	MaxOrderQty     decimal.Decimal
	MaxPosition     decimal.Decimal
	OrderRateLimit  int
	OrderRateWindow time.Duration
}

type symbolLimits struct {
	maxQty schema.Quantity
	maxPos schema.Quantity
}

// Limits evaluates signals against static limits. Not safe for concurrent use.
type Limits struct {
	cfg       LimitsConfig
	perSymbol map[schema.SymbolID]symbolLimits

	rateWindowStart int64
	rateCount       int
}

// NewLimits resolves the configured limits for every registered symbol.
func NewLimits(cfg LimitsConfig, reg *schema.Registry) *Limits {
	l := &Limits{cfg: cfg, perSymbol: make(map[schema.SymbolID]symbolLimits)}
	if reg == nil {
		return l
	}
	for _, spec := range reg.Symbols() {
		l.perSymbol[spec.ID] = symbolLimits{
			maxQty: scaleLimit(cfg.MaxOrderQty, spec.QtyScale),
			maxPos: scaleLimit(cfg.MaxPosition, spec.QtyScale),
		}
	}
	return l
}

func scaleLimit(v decimal.Decimal, scale schema.Scale) schema.Quantity {
	if !v.IsPositive() {
		return 0
	}
	return schema.Quantity(v.Shift(int32(scale)).Round(0).IntPart())
}

// Check returns RejectReasonNone when the signal may trade at position pos.
func (l *Limits) Check(sig schema.TradingSignal, pos schema.Quantity, now int64) schema.RejectReason {
	if l.cfg.KillSwitch {
		return schema.RejectReasonKillSwitch
	}
	if sig.Qty <= 0 {
		return schema.RejectReasonInvalidQty
	}
	if sig.Price <= 0 {
		return schema.RejectReasonInvalidPrice
	}

	limited := l.cfg.OrderRateLimit > 0 && l.cfg.OrderRateWindow > 0
	if limited {
		window := int64(l.cfg.OrderRateWindow)
		if l.rateWindowStart == 0 || now-l.rateWindowStart >= window {
			l.rateWindowStart = now
			l.rateCount = 0
		}
		if l.rateCount >= l.cfg.OrderRateLimit {
			return schema.RejectReasonRateLimit
		}
	}

	sl := l.perSymbol[sig.SymbolID]
	if sl.maxQty > 0 && sig.Qty > sl.maxQty {
		return schema.RejectReasonMaxQty
	}
	if sl.maxPos > 0 && absQuantity(applySide(pos, sig.Side, sig.Qty)) > sl.maxPos {
		return schema.RejectReasonPositionLimit
	}

	// Only accepted orders use up the rate window.
	if limited {
		l.rateCount++
	}
	return schema.RejectReasonNone
}
