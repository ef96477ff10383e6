package og

import "tickpipe/internal/schema"

// Positions holds the simulated net position per symbol.
type Positions struct {
	positions map[schema.SymbolID]schema.Quantity
}

// NewPositions creates an empty position table.
func NewPositions() *Positions {
	return &Positions{positions: make(map[schema.SymbolID]schema.Quantity)}
}

// Apply adds a fill and returns the new position.
func (p *Positions) Apply(symbol schema.SymbolID, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	next := applySide(p.positions[symbol], side, qty)
	p.positions[symbol] = next
	return next
}

// Position returns the net position for a symbol.
func (p *Positions) Position(symbol schema.SymbolID) schema.Quantity {
	return p.positions[symbol]
}

// Count returns the number of symbols ever traded.
func (p *Positions) Count() int {
	return len(p.positions)
}

func applySide(pos schema.Quantity, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	switch side {
	case schema.OrderSideBuy:
		return pos + qty
	case schema.OrderSideSell:
		return pos - qty
	default:
		return pos
	}
}

func absQuantity(q schema.Quantity) schema.Quantity {
	if q < 0 {
		return -q
	}
	return q
}
