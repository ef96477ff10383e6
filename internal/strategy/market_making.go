package strategy

import (
	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
)

const NameMarketMaking = "market_making"

// MarketMakingParams are per-symbol parameters in scaled units.
type MarketMakingParams struct {
	// SpreadBps is the full quoted spread in basis points of mid.
	SpreadBps int64
	// RequoteTicks is the minimum quote move, in price ticks, that triggers a new signal.
	RequoteTicks schema.Price
	Qty          schema.Quantity
	MaxInventory schema.Quantity
}

type quoteState struct {
	// quoted, bid and ask describe the last emitted quote.
	quoted bool
	bid    schema.Price
	ask    schema.Price
	// mid is the last observed mid, emitted or not.
	mid       schema.Price
	inventory schema.Quantity
}

// MarketMaking quotes around the observed mid. It emits a signal only when
// the desired quote moves past the re-quote threshold, buying on the bid when
// the mid falls and selling on the ask when it rises. The threshold is
// measured against the last emitted quote. Inventory is tracked as
// if every signal filled and a signal that would breach MaxInventory is skipped.
type MarketMaking struct {
	params []MarketMakingParams
	state  []quoteState
	sink   obs.Sink
	now    Clock
}

// NewMarketMaking creates a market making strategy. params is indexed by SymbolID-1.
func NewMarketMaking(params []MarketMakingParams, sink obs.Sink, now Clock) *MarketMaking {
	if now == nil {
		now = wallClock
	}
	return &MarketMaking{
		params: params,
		state:  make([]quoteState, len(params)),
		sink:   obs.OrDiscard(sink),
		now:    now,
	}
}

func (s *MarketMaking) Name() string {
	return NameMarketMaking
}

// Inventory returns the simulated inventory for symbol.
func (s *MarketMaking) Inventory(symbol schema.SymbolID) schema.Quantity {
	i, ok := symbolSlot(symbol, len(s.state))
	if !ok {
		return 0
	}
	return s.state[i].inventory
}

func (s *MarketMaking) Process(t schema.EnrichedTick) (schema.TradingSignal, bool) {
	i, ok := symbolSlot(t.Tick.SymbolID, len(s.params))
	if !ok {
		return schema.TradingSignal{}, false
	}
	p := s.params[i]
	st := &s.state[i]

	mid, ok := t.Book.Mid()
	if !ok {
		if t.Tick.Bid <= 0 || t.Tick.Ask <= 0 {
			return schema.TradingSignal{}, false
		}
		mid = (t.Tick.Bid + t.Tick.Ask) / 2
	}
	half := mid * schema.Price(p.SpreadBps) / 20000
	if half < 1 {
		half = 1
	}
	bid, ask := mid-half, mid+half

	prev := st.mid
	st.mid = mid

	if st.quoted && absPrice(bid-st.bid) <= p.RequoteTicks && absPrice(ask-st.ask) <= p.RequoteTicks {
		return schema.TradingSignal{}, false
	}

	side, price, delta := schema.OrderSideSell, ask, -p.Qty
	if !st.quoted || mid < prev {
		side, price, delta = schema.OrderSideBuy, bid, p.Qty
	}

	next := st.inventory + delta
	if next > p.MaxInventory || next < -p.MaxInventory {
		s.sink.Inc(obs.QuotesSkipped)
		return schema.TradingSignal{}, false
	}
	st.inventory = next
	st.quoted, st.bid, st.ask = true, bid, ask

	return schema.TradingSignal{
		SymbolID: t.Tick.SymbolID,
		Side:     side,
		Qty:      p.Qty,
		Price:    price,
		Strategy: NameMarketMaking,
		TickSeq:  t.Tick.Seq,
		TsSignal: s.now(),
	}, true
}
