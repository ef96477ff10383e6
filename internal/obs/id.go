package obs

import (
	"sync/atomic"
	"time"
)

// IDGenerator creates monotonically increasing identifiers.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator returns a generator seeded with the given value. The first
// ID is seed+1. A zero seed uses the current time.
func NewIDGenerator(seed uint64) *IDGenerator {
	if seed == 0 {
		seed = uint64(time.Now().UTC().UnixNano())
	}
	g := &IDGenerator{}
	g.next.Store(seed)
	return g
}

// Next returns the next ID.
func (g *IDGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return g.next.Add(1)
}
