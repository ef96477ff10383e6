package chaos

import (
	"math/rand"
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Config controls fault injection. The zero value passes ticks through.
type Config struct {
	Seed          int64
	DropRate      float64
	DuplicateRate float64
	// ReorderWindow holds up to this many ticks and releases them in random
	// order. 1 keeps arrival order.
	ReorderWindow int
	// MaxDelay ages each tick's event timestamp by a random amount up to this
	// value, which shows up as added network latency downstream.
	MaxDelay time.Duration
}

// Enabled reports whether the config injects anything.
func (c Config) Enabled() bool {
	return c.DropRate > 0 || c.DuplicateRate > 0 || c.ReorderWindow > 1 || c.MaxDelay > 0
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return errors.Wrap(exception.ErrConfigInvalid, "dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return errors.Wrap(exception.ErrConfigInvalid, "duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow < 0 {
		return errors.Wrap(exception.ErrConfigInvalid, "reorderWindow must be >= 0")
	}
	if c.MaxDelay < 0 {
		return errors.Wrap(exception.ErrConfigInvalid, "maxDelay must be >= 0")
	}
	return nil
}

// Stats counts what the engine did.
type Stats struct {
	In         uint64
	Out        uint64
	Dropped    uint64
	Duplicated uint64
}

// Engine applies chaos rules to ticks. Not safe for concurrent use; the same
// seed and input always give the same output.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []schema.MarketTick
	stats   Stats
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.ReorderWindow <= 0 {
		cfg.ReorderWindow = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Process applies chaos to one tick and appends any released ticks to dst.
func (e *Engine) Process(dst []schema.MarketTick, t schema.MarketTick) []schema.MarketTick {
	if e == nil {
		return append(dst, t)
	}
	e.stats.In++
	if e.shouldDrop() {
		e.stats.Dropped++
		return dst
	}
	t = e.applyDelay(t)
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(dst, t)
	}
	e.pending = append(e.pending, t)
	if len(e.pending) < e.cfg.ReorderWindow {
		return dst
	}
	return e.applyDuplicate(dst, e.takeRandom())
}

// Flush releases every held tick.
func (e *Engine) Flush(dst []schema.MarketTick) []schema.MarketTick {
	if e == nil {
		return dst
	}
	for len(e.pending) > 0 {
		dst = e.applyDuplicate(dst, e.takeRandom())
	}
	return dst
}

// Stats returns the running counts.
func (e *Engine) Stats() Stats {
	if e == nil {
		return Stats{}
	}
	return e.stats
}

func (e *Engine) takeRandom() schema.MarketTick {
	idx := e.rng.Intn(len(e.pending))
	t := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return t
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(dst []schema.MarketTick, t schema.MarketTick) []schema.MarketTick {
	dst = append(dst, t)
	e.stats.Out++
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		dst = append(dst, t)
		e.stats.Out++
		e.stats.Duplicated++
	}
	return dst
}

func (e *Engine) applyDelay(t schema.MarketTick) schema.MarketTick {
	maxDelay := e.cfg.MaxDelay.Nanoseconds()
	if maxDelay <= 0 || t.TsEvent <= 0 {
		return t
	}
	t.TsEvent -= e.rng.Int63n(maxDelay + 1)
	return t
}
