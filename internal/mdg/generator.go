package mdg

import (
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Defaults for the synthetic feed.
const (
	DefaultJitterBps = 100
	DefaultSpreadBps = 10
	DefaultMaxVolume = 99
)

// GeneratorConfig shapes the synthetic feed.
type GeneratorConfig struct {
	// Seed makes the tick stream reproducible. Zero uses the current time.
	Seed int64
	// JitterBps bounds the last price around each symbol's base price.
	JitterBps int64
	// SpreadBps is the quoted spread around the last price.
	SpreadBps int64
	// MaxVolume is the largest tick size in whole units.
	MaxVolume int64
}

func (c GeneratorConfig) withDefaults() GeneratorConfig {
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	if c.JitterBps <= 0 {
		c.JitterBps = DefaultJitterBps
	}
	if c.SpreadBps <= 0 {
		c.SpreadBps = DefaultSpreadBps
	}
	if c.MaxVolume <= 0 {
		c.MaxVolume = DefaultMaxVolume
	}
	return c
}

type symbolFeed struct {
	id       schema.SymbolID
	base     schema.Price
	lotScale schema.Quantity
	seq      uint64
}

// Generator creates synthetic market ticks. Each tick picks a random enabled
// symbol and jitters its price around the symbol's base price. Sequence
// numbers start at 1 and increase by one per symbol.
type Generator struct {
	symbols []symbolFeed
	cfg     GeneratorConfig
	rng     *rand.Rand
}

// NewGenerator creates a generator for all symbols in the registry.
func NewGenerator(reg *schema.Registry, cfg GeneratorConfig) (*Generator, error) {
	if reg == nil || reg.SymbolCount() == 0 {
		return nil, exception.ErrConfigNoSymbols
	}
	cfg = cfg.withDefaults()
	symbols := make([]symbolFeed, 0, reg.SymbolCount())
	for _, s := range reg.Symbols() {
		if s.BasePrice <= 0 {
			return nil, errors.Errorf("symbol %s has no base price", s.Name)
		}
		lot := schema.Quantity(1)
		for i := schema.Scale(0); i < s.QtyScale; i++ {
			lot *= 10
		}
		symbols = append(symbols, symbolFeed{id: s.ID, base: s.BasePrice, lotScale: lot})
	}
	return &Generator{
		symbols: symbols,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Next creates the next tick stamped with now.
func (g *Generator) Next(now time.Time) schema.MarketTick {
	f := &g.symbols[g.rng.Intn(len(g.symbols))]
	f.seq++

	jitter := int64(f.base) * g.cfg.JitterBps / 10000
	last := f.base
	if jitter > 0 {
		last += schema.Price(g.rng.Int63n(2*jitter+1) - jitter)
	}
	half := last * schema.Price(g.cfg.SpreadBps) / 20000
	if half < 1 {
		half = 1
	}
	volume := 1 + g.rng.Int63n(g.cfg.MaxVolume)

	return schema.MarketTick{
		SymbolID: f.id,
		Seq:      f.seq,
		Bid:      last - half,
		Ask:      last + half,
		Last:     last,
		Size:     schema.Quantity(volume) * f.lotScale,
		TsEvent:  now.UnixNano(),
	}
}
