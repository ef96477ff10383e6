package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

func fixedClock() int64 { return 42 }

func tickAt(symbol schema.SymbolID, seq uint64, last schema.Price) schema.EnrichedTick {
	return schema.EnrichedTick{Tick: schema.MarketTick{
		SymbolID: symbol,
		Seq:      seq,
		Bid:      last - 1,
		Ask:      last + 1,
		Last:     last,
		Size:     1,
	}}
}

func run(s Strategy, prices ...schema.Price) []schema.TradingSignal {
	var out []schema.TradingSignal
	for i, p := range prices {
		if sig, ok := s.Process(tickAt(1, uint64(i+1), p)); ok {
			out = append(out, sig)
		}
	}
	return out
}

func TestThresholdEdgeTriggered(t *testing.T) {
	s := NewThreshold([]schema.Band{{Low: 4400000, High: 4600000}}, []schema.Quantity{10000}, fixedClock)

	signals := run(s, 4500000, 4390000, 4380000, 4300000, 4399999)
	require.Len(t, signals, 1)
	require.Equal(t, schema.OrderSideBuy, signals[0].Side)
	require.Equal(t, schema.Price(4390000), signals[0].Price)
	require.Equal(t, uint64(2), signals[0].TickSeq)
	require.Equal(t, int64(42), signals[0].TsSignal)
	require.Equal(t, NameThreshold, signals[0].Strategy)

	signals = run(s, 4500000, 4300000)
	require.Len(t, signals, 1, "re-entering the band re-arms")

	signals = run(s, 4700000, 4700000, 4300000)
	require.Len(t, signals, 2)
	require.Equal(t, schema.OrderSideSell, signals[0].Side)
	require.Equal(t, schema.OrderSideBuy, signals[1].Side)
}

func TestThresholdBoundaryIsNeutral(t *testing.T) {
	s := NewThreshold([]schema.Band{{Low: 100, High: 200}}, []schema.Quantity{1}, fixedClock)
	require.Empty(t, run(s, 100, 200, 150))
	_, ok := s.Process(tickAt(7, 1, 1))
	require.False(t, ok, "unknown symbol")
}

func TestMarketMakingRequoteAndSide(t *testing.T) {
	s := NewMarketMaking([]MarketMakingParams{{
		SpreadBps:    10,
		RequoteTicks: 5,
		Qty:          1,
		MaxInventory: 100,
	}}, nil, fixedClock)

	sig, ok := s.Process(tickAt(1, 1, 100000))
	require.True(t, ok)
	require.Equal(t, schema.OrderSideBuy, sig.Side)
	require.Equal(t, schema.Price(100000-50), sig.Price)

	_, ok = s.Process(tickAt(1, 2, 100003))
	require.False(t, ok, "sub-threshold move")

	sig, ok = s.Process(tickAt(1, 3, 100100))
	require.True(t, ok)
	require.Equal(t, schema.OrderSideSell, sig.Side)
	require.Equal(t, schema.Price(100100+50), sig.Price)

	sig, ok = s.Process(tickAt(1, 4, 99000))
	require.True(t, ok)
	require.Equal(t, schema.OrderSideBuy, sig.Side)
	require.Equal(t, schema.Quantity(1), s.Inventory(1))
}

func TestMarketMakingUsesBookMid(t *testing.T) {
	s := NewMarketMaking([]MarketMakingParams{{SpreadBps: 20, Qty: 1, MaxInventory: 10}}, nil, fixedClock)
	et := tickAt(1, 1, 500)
	et.Book = schema.BookSnapshot{
		Bids: []schema.Level{{Price: 10000, Size: 1}},
		Asks: []schema.Level{{Price: 10002, Size: 1}},
	}
	sig, ok := s.Process(et)
	require.True(t, ok)
	require.Equal(t, schema.Price(10001-10), sig.Price)
}

func TestMarketMakingInventoryBound(t *testing.T) {
	metrics := obs.NewMetrics(0)
	s := NewMarketMaking([]MarketMakingParams{{
		SpreadBps:    10,
		RequoteTicks: 0,
		Qty:          2,
		MaxInventory: 6,
	}}, metrics, fixedClock)

	price := schema.Price(1000000)
	buys := 0
	for i := 0; i < 20; i++ {
		sig, ok := s.Process(tickAt(1, uint64(i+1), price))
		if ok {
			require.Equal(t, schema.OrderSideBuy, sig.Side)
			buys++
		}
		inv := s.Inventory(1)
		require.LessOrEqual(t, int64(inv), int64(6))
		price -= 1000
	}
	require.Equal(t, 3, buys)
	require.Equal(t, uint64(17), metrics.Count(obs.QuotesSkipped))
}

func TestMarketMakingSkippedQuoteKeepsReference(t *testing.T) {
	s := NewMarketMaking([]MarketMakingParams{{
		SpreadBps:    10,
		RequoteTicks: 5,
		Qty:          1,
		MaxInventory: 1,
	}}, nil, fixedClock)

	sig, ok := s.Process(tickAt(1, 1, 100000))
	require.True(t, ok)
	require.Equal(t, schema.OrderSideBuy, sig.Side)

	_, ok = s.Process(tickAt(1, 2, 99000))
	require.False(t, ok, "buy past the inventory bound")

	sig, ok = s.Process(tickAt(1, 3, 99003))
	require.True(t, ok, "quote moved from the last emitted one")
	require.Equal(t, schema.OrderSideSell, sig.Side)
	require.Equal(t, schema.Price(99003+49), sig.Price)
	require.Equal(t, schema.Quantity(0), s.Inventory(1))
}

func TestMeanReversionConstantSeriesNeverSignals(t *testing.T) {
	s := NewMeanReversion(MeanReversionParams{Window: 20, ZScore: 2}, []schema.Quantity{1}, fixedClock)
	prices := make([]schema.Price, 500)
	for i := range prices {
		prices[i] = 4500000
	}
	require.Empty(t, run(s, prices...))
}

func TestMeanReversionSingleOutlier(t *testing.T) {
	s := NewMeanReversion(MeanReversionParams{Window: 20, ZScore: 2}, []schema.Quantity{10}, fixedClock)
	prices := make([]schema.Price, 0, 80)
	for i := 0; i < 30; i++ {
		prices = append(prices, 10000)
	}
	prices = append(prices, 12000)
	for i := 0; i < 49; i++ {
		prices = append(prices, 10000)
	}
	signals := run(s, prices...)
	require.Len(t, signals, 1)
	require.Equal(t, schema.OrderSideSell, signals[0].Side)
	require.Equal(t, schema.Price(12000), signals[0].Price)
	require.Equal(t, schema.Quantity(10), signals[0].Qty)
}

func TestMeanReversionNeedsFullWindow(t *testing.T) {
	s := NewMeanReversion(MeanReversionParams{Window: 5, ZScore: 1}, []schema.Quantity{1}, fixedClock)
	require.Empty(t, run(s, 100, 100, 100, 1000))
}

func TestMeanReversionResetGate(t *testing.T) {
	s := NewMeanReversion(MeanReversionParams{Window: 10, ZScore: 1.5, SizeByDeviation: true}, []schema.Quantity{100}, fixedClock)
	prices := []schema.Price{100, 101, 99, 100, 101, 99, 100, 101, 99, 100}
	require.Empty(t, run(s, prices...))

	sig, ok := s.Process(tickAt(1, 11, 60))
	require.True(t, ok)
	require.Equal(t, schema.OrderSideBuy, sig.Side)
	require.Less(t, int64(sig.Qty), int64(100))
	require.GreaterOrEqual(t, int64(sig.Qty), int64(1))

	_, ok = s.Process(tickAt(1, 12, 50))
	require.False(t, ok, "sustained excursion stays gated")
}

func TestWindowMatchesDirectComputation(t *testing.T) {
	w := window{values: make([]float64, 4)}
	for _, x := range []float64{1, 2, 3, 4, 10, 20} {
		w.push(x)
	}
	// window holds 3, 4, 10, 20
	require.InDelta(t, 9.25, w.mean, 1e-9)
	require.InDelta(t, 6.7592529172978875, w.stddev(), 1e-9)
}

func testRegistry(t *testing.T, band bool) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	spec := schema.SymbolSpec{Name: "BTC/USD", PriceScale: 2, QtyScale: 4}
	if band {
		spec.Band = schema.Band{Low: 4400000, High: 4600000}
	}
	_, err := reg.AddSymbol(spec)
	require.NoError(t, err)
	return reg
}

func TestBuild(t *testing.T) {
	qty := decimal.RequireFromString("0.5")

	s, err := Build(Config{Name: NameThreshold, OrderQty: qty}, testRegistry(t, true), nil, nil)
	require.NoError(t, err)
	require.Equal(t, NameThreshold, s.Name())
	sig, ok := s.Process(tickAt(1, 1, 4300000))
	require.True(t, ok)
	require.Equal(t, schema.Quantity(5000), sig.Qty)

	_, err = Build(Config{Name: NameThreshold, OrderQty: qty}, testRegistry(t, false), nil, nil)
	require.Error(t, err)

	_, err = Build(Config{Name: "momentum", OrderQty: qty}, testRegistry(t, true), nil, nil)
	require.ErrorIs(t, err, exception.ErrConfigUnknownStrategy)

	_, err = Build(Config{Name: NameMeanReversion, OrderQty: qty}, testRegistry(t, true), nil, nil)
	require.Error(t, err)

	s, err = Build(Config{
		Name:          NameMeanReversion,
		OrderQty:      qty,
		MeanReversion: MeanReversionParams{Window: 20, ZScore: 2},
	}, testRegistry(t, false), nil, nil)
	require.NoError(t, err)
	require.Equal(t, NameMeanReversion, s.Name())

	s, err = Build(Config{
		Name:     NameMarketMaking,
		OrderQty: qty,
		MarketMaking: MarketMakingConfig{
			SpreadBps:    10,
			RequoteTicks: 1,
			MaxInventory: decimal.RequireFromString("2"),
		},
	}, testRegistry(t, false), nil, nil)
	require.NoError(t, err)
	require.Equal(t, NameMarketMaking, s.Name())

	_, err = Build(Config{Name: NameThreshold}, testRegistry(t, true), nil, nil)
	require.Error(t, err)
	require.True(t, Known(NameMarketMaking))
	require.False(t, Known("x"))
}
