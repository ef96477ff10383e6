package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	p, err := ParsePrice("45000.25", 2)
	require.NoError(t, err)
	require.Equal(t, Price(4500025), p)
	require.Equal(t, "45000.25", p.Decimal(2).String())

	p, err = ParsePrice("0.005", 2)
	require.NoError(t, err)
	require.Equal(t, Price(1), p)

	_, err = ParsePrice("abc", 2)
	require.Error(t, err)

	_, err = ParsePrice("1", 40)
	require.Error(t, err)
}

func TestPriceFromFloat(t *testing.T) {
	if got := PriceFromFloat(100.456, 2); got != 10046 {
		t.Fatalf("unexpected price: %d", got)
	}
	if got := Price(4300000).Float(2); got != 43000 {
		t.Fatalf("unexpected float: %v", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	btc, err := r.AddSymbol(SymbolSpec{Name: "BTC/USD", PriceScale: 2, QtyScale: 4})
	require.NoError(t, err)
	eth, err := r.AddSymbol(SymbolSpec{Name: "ETH/USD", PriceScale: 2, QtyScale: 4})
	require.NoError(t, err)
	require.Equal(t, SymbolID(1), btc)
	require.Equal(t, SymbolID(2), eth)

	_, err = r.AddSymbol(SymbolSpec{Name: "BTC/USD"})
	require.Error(t, err)
	_, err = r.AddSymbol(SymbolSpec{})
	require.Error(t, err)

	id, ok := r.SymbolIDByName("ETH/USD")
	require.True(t, ok)
	require.Equal(t, eth, id)

	spec, ok := r.Symbol(btc)
	require.True(t, ok)
	require.Equal(t, "BTC/USD", spec.Name)
	require.Equal(t, btc, spec.ID)

	_, ok = r.Symbol(0)
	require.False(t, ok)
	require.Equal(t, "?", r.Name(9))
	require.Len(t, r.Symbols(), 2)
}

func TestBookSnapshotHelpers(t *testing.T) {
	s := BookSnapshot{
		Bids: []Level{{Price: 100, Size: 1}, {Price: 99, Size: 2}},
		Asks: []Level{{Price: 103, Size: 1}},
	}
	spread, ok := s.Spread()
	require.True(t, ok)
	require.Equal(t, Price(3), spread)
	mid, ok := s.Mid()
	require.True(t, ok)
	require.Equal(t, Price(101), mid)

	_, ok = BookSnapshot{}.Mid()
	require.False(t, ok)
}

func TestEnumStrings(t *testing.T) {
	require.Equal(t, "BUY", OrderSideBuy.String())
	require.Equal(t, "SELL", OrderSideSell.String())
	require.True(t, MsgOrderAck.IsKnown())
	require.False(t, MessageType(99).IsKnown())
	require.False(t, MsgUnknown.IsKnown())
}
