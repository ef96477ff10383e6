package strategy

import (
	"time"

	"tickpipe/internal/schema"
)

// Strategy turns enriched ticks into optional trading signals.
//
// A Strategy instance owns its per-symbol state and is driven by exactly one
// goroutine, so implementations do not lock. Process must not retain the
// tick or its book slices after returning.
type Strategy interface {
	Name() string
	Process(t schema.EnrichedTick) (schema.TradingSignal, bool)
}

// Clock returns the current time in nanoseconds since the epoch.
type Clock func() int64

func wallClock() int64 {
	return time.Now().UnixNano()
}

// symbolSlot maps a symbol ID onto a dense per-symbol slice index.
func symbolSlot(id schema.SymbolID, n int) (int, bool) {
	if id == 0 || int(id) > n {
		return 0, false
	}
	return int(id) - 1, true
}

func absPrice(p schema.Price) schema.Price {
	if p < 0 {
		return -p
	}
	return p
}
