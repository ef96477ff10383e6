package schema

import "time"

// MarketTick is one top-of-book update for a symbol. It is a value type and is
// never mutated after construction.
type MarketTick struct {
	SymbolID SymbolID
	// Seq increases by one per symbol at the source; gaps mean loss.
	Seq  uint64
	Bid  Price
	Ask  Price
	Last Price
	Size Quantity
	// TsEvent is the generation time in nanoseconds since the epoch.
	TsEvent int64
}

// EnrichedTick wraps a received tick with its receipt time and a copy of the
// book state at that moment.
type EnrichedTick struct {
	Tick           MarketTick
	TsRecv         int64
	NetworkLatency time.Duration
	Book           BookSnapshot
}

// Side identifies a book side.
type Side uint8

const (
	SideUnknown Side = iota
	SideBid
	SideAsk
)

func (s Side) String() string {
	switch s {
	case SideBid:
		return "bid"
	case SideAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// Level is one aggregated price level.
type Level struct {
	Price Price
	Size  Quantity
}

// BookSnapshot is a copied view of the top levels of a book.
// Bids are sorted descending, asks ascending.
type BookSnapshot struct {
	Bids []Level
	Asks []Level
}

// BestBid returns the best bid level if any.
func (s BookSnapshot) BestBid() (Level, bool) {
	if len(s.Bids) == 0 {
		return Level{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the best ask level if any.
func (s BookSnapshot) BestAsk() (Level, bool) {
	if len(s.Asks) == 0 {
		return Level{}, false
	}
	return s.Asks[0], true
}

// Spread returns best ask minus best bid when both sides exist.
func (s BookSnapshot) Spread() (Price, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask.Price - bid.Price, true
}

// Mid returns the midpoint of the best levels, rounded down to a tick.
func (s BookSnapshot) Mid() (Price, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return (bid.Price + ask.Price) / 2, true
}
