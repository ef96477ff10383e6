package mdg

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tickpipe/internal/obs"
	"tickpipe/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	for _, s := range []schema.SymbolSpec{
		{Name: "BTC/USD", PriceScale: 2, QtyScale: 4, BasePrice: 4500000},
		{Name: "ETH/USD", PriceScale: 2, QtyScale: 4, BasePrice: 250000},
		{Name: "SOL/USD", PriceScale: 2, QtyScale: 4, BasePrice: 10000},
		{Name: "AVAX/USD", PriceScale: 2, QtyScale: 4, BasePrice: 2500},
	} {
		_, err := reg.AddSymbol(s)
		require.NoError(t, err)
	}
	return reg
}

func TestGeneratorTicks(t *testing.T) {
	reg := testRegistry(t)
	gen, err := NewGenerator(reg, GeneratorConfig{Seed: 1})
	require.NoError(t, err)

	lastSeq := map[schema.SymbolID]uint64{}
	now := time.Unix(1700000000, 0)
	for i := 0; i < 5000; i++ {
		tick := gen.Next(now)
		spec, ok := reg.Symbol(tick.SymbolID)
		require.True(t, ok)

		require.Equal(t, lastSeq[tick.SymbolID]+1, tick.Seq)
		lastSeq[tick.SymbolID] = tick.Seq

		require.Less(t, int64(tick.Bid), int64(tick.Ask))
		require.LessOrEqual(t, int64(tick.Bid), int64(tick.Last))
		require.GreaterOrEqual(t, int64(tick.Ask), int64(tick.Last))
		band := int64(spec.BasePrice) / 100
		require.InDelta(t, float64(spec.BasePrice), float64(tick.Last), float64(band))
		require.GreaterOrEqual(t, int64(tick.Size), int64(10000))
		require.Equal(t, now.UnixNano(), tick.TsEvent)
	}
	require.Len(t, lastSeq, 4)
}

func TestGeneratorDeterministicForSeed(t *testing.T) {
	reg := testRegistry(t)
	a, err := NewGenerator(reg, GeneratorConfig{Seed: 9})
	require.NoError(t, err)
	b, err := NewGenerator(reg, GeneratorConfig{Seed: 9})
	require.NoError(t, err)
	now := time.Unix(0, 1)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Next(now), b.Next(now))
	}
}

func TestGeneratorRequiresBasePrice(t *testing.T) {
	reg := schema.NewRegistry()
	_, err := reg.AddSymbol(schema.SymbolSpec{Name: "BTC/USD", PriceScale: 2, QtyScale: 4})
	require.NoError(t, err)
	_, err = NewGenerator(reg, GeneratorConfig{})
	require.Error(t, err)
	_, err = NewGenerator(schema.NewRegistry(), GeneratorConfig{})
	require.Error(t, err)
}

func TestPublisherBudget(t *testing.T) {
	gen, err := NewGenerator(testRegistry(t), GeneratorConfig{Seed: 3})
	require.NoError(t, err)
	metrics := obs.NewMetrics(0)
	p := NewPublisher(gen, 0, 250, metrics)

	n := 0
	require.NoError(t, p.Run(context.Background(), func(schema.MarketTick) { n++ }))
	require.Equal(t, 250, n)
	require.Equal(t, uint64(250), metrics.Count(obs.TicksGenerated))
}

func TestPublisherStopsOnCancel(t *testing.T) {
	gen, err := NewGenerator(testRegistry(t), GeneratorConfig{Seed: 3})
	require.NoError(t, err)
	p := NewPublisher(gen, 1000, 0, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	n := 0
	require.NoError(t, p.Run(ctx, func(schema.MarketTick) { n++ }))
	require.Greater(t, n, 0)
	require.Less(t, n, 1000)
}
