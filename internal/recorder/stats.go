package recorder

import (
	"io"
	"sort"
	"time"

	"tickpipe/internal/schema"
)

// Stats summarises a replay log.
type Stats struct {
	TotalTicks uint64
	FirstTs    int64
	LastTs     int64
	Duration   time.Duration
	Symbols    []schema.SymbolID
	PerSymbol  map[schema.SymbolID]uint64
	Truncated  bool
}

// ReadStats scans the log at path.
func ReadStats(path string) (Stats, error) {
	rp, err := OpenReplayer(path)
	if err != nil {
		return Stats{}, err
	}
	defer rp.Close()

	st := Stats{PerSymbol: make(map[schema.SymbolID]uint64)}
	for {
		tick, err := rp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		if st.TotalTicks == 0 {
			st.FirstTs = tick.TsEvent
		}
		st.LastTs = tick.TsEvent
		st.TotalTicks++
		st.PerSymbol[tick.SymbolID]++
	}
	st.Truncated = rp.Truncated()
	if st.TotalTicks > 0 {
		st.Duration = time.Duration(st.LastTs - st.FirstTs)
	}
	for id := range st.PerSymbol {
		st.Symbols = append(st.Symbols, id)
	}
	sort.Slice(st.Symbols, func(i, j int) bool { return st.Symbols[i] < st.Symbols[j] })
	return st, nil
}
