package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Config selects and parameterises a strategy. Quantities are in display
// units and scaled per symbol.
type Config struct {
	Name     string
	OrderQty decimal.Decimal

	MarketMaking  MarketMakingConfig
	MeanReversion MeanReversionParams
}

// MarketMakingConfig holds market making parameters in display units.
type MarketMakingConfig struct {
	SpreadBps    int64
	RequoteTicks int64
	MaxInventory decimal.Decimal
}

// Names lists the strategies Build understands.
func Names() []string {
	return []string{NameThreshold, NameMarketMaking, NameMeanReversion}
}

// Known reports whether name is a buildable strategy.
func Known(name string) bool {
	for _, n := range Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Build creates a fresh strategy instance for the registry's symbols. Each
// caller gets independent state.
func Build(cfg Config, reg *schema.Registry, sink obs.Sink, now Clock) (Strategy, error) {
	if reg == nil || reg.SymbolCount() == 0 {
		return nil, exception.ErrConfigNoSymbols
	}
	if !cfg.OrderQty.IsPositive() {
		return nil, errors.Errorf("strategy %s: order qty must be positive", cfg.Name)
	}
	symbols := reg.Symbols()
	qty := make([]schema.Quantity, len(symbols))
	for i, s := range symbols {
		qty[i] = scaleQty(cfg.OrderQty, s.QtyScale)
		if qty[i] <= 0 {
			return nil, errors.Errorf("strategy %s: order qty %s below lot size of %s", cfg.Name, cfg.OrderQty, s.Name)
		}
	}

	switch cfg.Name {
	case NameThreshold:
		bands := make([]schema.Band, len(symbols))
		for i, s := range symbols {
			if !s.Band.Valid() {
				return nil, errors.Errorf("threshold: symbol %s has no valid low/high band", s.Name)
			}
			bands[i] = s.Band
		}
		return NewThreshold(bands, qty, now), nil

	case NameMarketMaking:
		mm := cfg.MarketMaking
		if mm.SpreadBps <= 0 {
			return nil, errors.New("market_making: spreadBps must be positive")
		}
		if mm.RequoteTicks < 0 {
			return nil, errors.New("market_making: requoteTicks must not be negative")
		}
		params := make([]MarketMakingParams, len(symbols))
		for i, s := range symbols {
			maxInv := scaleQty(mm.MaxInventory, s.QtyScale)
			if maxInv < qty[i] {
				return nil, errors.Errorf("market_making: max inventory of %s below one order", s.Name)
			}
			params[i] = MarketMakingParams{
				SpreadBps:    mm.SpreadBps,
				RequoteTicks: schema.Price(mm.RequoteTicks),
				Qty:          qty[i],
				MaxInventory: maxInv,
			}
		}
		return NewMarketMaking(params, sink, now), nil

	case NameMeanReversion:
		mr := cfg.MeanReversion
		if mr.Window < 2 {
			return nil, errors.New("mean_reversion: window must be at least 2")
		}
		if mr.ZScore <= 0 {
			return nil, errors.New("mean_reversion: zScore must be positive")
		}
		return NewMeanReversion(mr, qty, now), nil

	default:
		return nil, exception.ErrConfigUnknownStrategy
	}
}

func scaleQty(d decimal.Decimal, scale schema.Scale) schema.Quantity {
	return schema.Quantity(d.Shift(int32(scale)).Round(0).IntPart())
}
