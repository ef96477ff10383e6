package book

import (
	"github.com/yanun0323/logs"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Manager owns the books of every enabled symbol. It is not safe for
// concurrent use; the feed stage is its only writer.
type Manager struct {
	reg       *schema.Registry
	books     map[schema.SymbolID]*Book
	sink      obs.Sink
	snapDepth int
}

// NewManager creates one book per registered symbol. snapDepth bounds the
// levels copied into each enriched tick.
func NewManager(reg *schema.Registry, maxLevels, snapDepth int, sink obs.Sink) *Manager {
	m := &Manager{
		reg:       reg,
		books:     make(map[schema.SymbolID]*Book, reg.SymbolCount()),
		sink:      obs.OrDiscard(sink),
		snapDepth: snapDepth,
	}
	for _, s := range reg.Symbols() {
		m.books[s.ID] = New(s.ID, maxLevels)
	}
	return m
}

// Book returns the book for symbol.
func (m *Manager) Book(symbol schema.SymbolID) (*Book, bool) {
	b, ok := m.books[symbol]
	return b, ok
}

// Apply forwards a level update to the symbol's book. Crossing updates are
// counted and logged; the prior state is kept.
func (m *Manager) Apply(symbol schema.SymbolID, side schema.Side, price schema.Price, delta schema.Quantity) error {
	b, ok := m.books[symbol]
	if !ok {
		return exception.ErrUnknownSymbol
	}
	err := b.Apply(side, price, delta)
	if err == exception.ErrCrossedBook {
		bid, ask := crossingQuote(b, side, price)
		m.crossed(symbol, bid, ask)
	}
	return err
}

// crossingQuote pairs a rejected level price with the resting best of the
// opposite side.
func crossingQuote(b *Book, side schema.Side, price schema.Price) (bid, ask schema.Price) {
	if side == schema.SideBid {
		best, _ := b.Best(schema.SideAsk)
		return price, best.Price
	}
	best, _ := b.Best(schema.SideBid)
	return best.Price, price
}

// ApplyTick updates the symbol's book from a tick and returns a copy of the
// resulting top levels. On error the snapshot reflects the retained state.
func (m *Manager) ApplyTick(t schema.MarketTick) (schema.BookSnapshot, error) {
	b, ok := m.books[t.SymbolID]
	if !ok {
		return schema.BookSnapshot{}, exception.ErrUnknownSymbol
	}
	err := b.ApplyTick(t)
	if err == exception.ErrCrossedBook {
		m.crossed(t.SymbolID, t.Bid, t.Ask)
	}
	return b.Snapshot(m.snapDepth), err
}

func (m *Manager) crossed(symbol schema.SymbolID, bid, ask schema.Price) {
	m.sink.Inc(obs.CrossedBook)
	logs.Errorf("book %s: rejected crossing update (bid %d, ask %d)", m.reg.Name(symbol), bid, ask)
}
