package book

import (
	"github.com/shopspring/decimal"

	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// DefaultMaxLevels bounds the depth kept per side by ApplyTick.
const DefaultMaxLevels = 5

// Book is an aggregated L2 view of one symbol. Best bid is kept strictly
// below best ask whenever both sides are non-empty. A Book is owned by a
// single goroutine; readers receive copies through Snapshot.
type Book struct {
	symbol    schema.SymbolID
	bids      *ladder
	asks      *ladder
	maxLevels int
}

// New creates an empty book. maxLevels <= 0 uses DefaultMaxLevels.
func New(symbol schema.SymbolID, maxLevels int) *Book {
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}
	return &Book{
		symbol:    symbol,
		bids:      newBidLadder(),
		asks:      newAskLadder(),
		maxLevels: maxLevels,
	}
}

// Symbol returns the book's symbol.
func (b *Book) Symbol() schema.SymbolID {
	return b.symbol
}

func (b *Book) ladder(side schema.Side) (*ladder, error) {
	switch side {
	case schema.SideBid:
		return b.bids, nil
	case schema.SideAsk:
		return b.asks, nil
	default:
		return nil, exception.ErrInvalidSide
	}
}

// Apply adds delta to the level at price, removing it when the resulting size
// is <= 0. An update that would leave best bid >= best ask is rejected with
// exception.ErrCrossedBook and the book is left unchanged.
func (b *Book) Apply(side schema.Side, price schema.Price, delta schema.Quantity) error {
	l, err := b.ladder(side)
	if err != nil {
		return err
	}
	if price <= 0 {
		return exception.ErrInvalidPrice
	}
	next := l.size(price) + delta
	if next > 0 && b.crosses(side, price) {
		return exception.ErrCrossedBook
	}
	l.set(price, next)
	return nil
}

// crosses reports whether a live level at price on side would cross the opposite side.
func (b *Book) crosses(side schema.Side, price schema.Price) bool {
	if side == schema.SideBid {
		ask, ok := b.asks.best()
		return ok && price >= ask.Price
	}
	bid, ok := b.bids.best()
	return ok && price <= bid.Price
}

// ApplyTick replaces the top of book with the tick's bid and ask at the tick
// size. Levels better than the new top are removed; previous tops behind it
// stay as depth, trimmed to the configured number of levels. A tick with
// bid >= ask is rejected with exception.ErrCrossedBook and nothing changes.
func (b *Book) ApplyTick(t schema.MarketTick) error {
	if t.Bid <= 0 || t.Ask <= 0 {
		return exception.ErrInvalidPrice
	}
	if t.Bid >= t.Ask {
		return exception.ErrCrossedBook
	}

	b.bids.removeBetterThan(t.Bid)
	b.asks.removeBetterThan(t.Ask)
	b.bids.set(t.Bid, t.Size)
	b.asks.set(t.Ask, t.Size)
	b.bids.trim(b.maxLevels)
	b.asks.trim(b.maxLevels)
	return nil
}

// Best returns the best level on side.
func (b *Book) Best(side schema.Side) (schema.Level, bool) {
	l, err := b.ladder(side)
	if err != nil {
		return schema.Level{}, false
	}
	return l.best()
}

// Depth returns up to n levels nearest the best on side.
func (b *Book) Depth(side schema.Side, n int) []schema.Level {
	l, err := b.ladder(side)
	if err != nil || n <= 0 {
		return nil
	}
	if ln := l.len(); n > ln {
		n = ln
	}
	return l.depth(make([]schema.Level, 0, n), n)
}

// Levels returns the number of levels on side.
func (b *Book) Levels(side schema.Side) int {
	l, err := b.ladder(side)
	if err != nil {
		return 0
	}
	return l.len()
}

// Snapshot copies up to n levels per side. n <= 0 copies every level.
func (b *Book) Snapshot(n int) schema.BookSnapshot {
	if n <= 0 {
		n = b.bids.len() + b.asks.len()
	}
	return schema.BookSnapshot{
		Bids: b.Depth(schema.SideBid, n),
		Asks: b.Depth(schema.SideAsk, n),
	}
}

// Spread returns best ask minus best bid when both sides exist.
func (b *Book) Spread() (schema.Price, bool) {
	bid, okBid := b.bids.best()
	ask, okAsk := b.asks.best()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Mid returns the midpoint of the best levels, rounded down to a tick.
func (b *Book) Mid() (schema.Price, bool) {
	bid, okBid := b.bids.best()
	ask, okAsk := b.asks.best()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}

// VWAP returns the size-weighted average price of the top n levels on side,
// rounded to the nearest tick.
func (b *Book) VWAP(side schema.Side, n int) (schema.Price, bool) {
	levels := b.Depth(side, n)
	if len(levels) == 0 {
		return 0, false
	}
	notional := decimal.Zero
	total := decimal.Zero
	for _, lv := range levels {
		size := decimal.NewFromInt(int64(lv.Size))
		notional = notional.Add(decimal.NewFromInt(int64(lv.Price)).Mul(size))
		total = total.Add(size)
	}
	if total.IsZero() {
		return 0, false
	}
	return schema.Price(notional.DivRound(total, 0).IntPart()), true
}
