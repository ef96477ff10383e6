package codec

import (
	"encoding/binary"

	"tickpipe/internal/schema"
)

const TickPayloadSize = 52

// EncodeTick serializes a market tick into a fixed-size payload.
func EncodeTick(dst []byte, t schema.MarketTick) []byte {
	if cap(dst) < TickPayloadSize {
		dst = make([]byte, TickPayloadSize)
	} else {
		dst = dst[:TickPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(t.SymbolID))
	binary.LittleEndian.PutUint64(dst[4:12], t.Seq)
	binary.LittleEndian.PutUint64(dst[12:20], uint64(t.Bid))
	binary.LittleEndian.PutUint64(dst[20:28], uint64(t.Ask))
	binary.LittleEndian.PutUint64(dst[28:36], uint64(t.Last))
	binary.LittleEndian.PutUint64(dst[36:44], uint64(t.Size))
	binary.LittleEndian.PutUint64(dst[44:52], uint64(t.TsEvent))

	return dst
}

// AppendTick appends the tick payload to dst.
func AppendTick(dst []byte, t schema.MarketTick) []byte {
	n := len(dst)
	dst = grow(dst, TickPayloadSize)
	EncodeTick(dst[n:], t)
	return dst
}

// DecodeTick parses a fixed-size market tick payload.
func DecodeTick(src []byte) (schema.MarketTick, bool) {
	if len(src) < TickPayloadSize {
		return schema.MarketTick{}, false
	}
	return schema.MarketTick{
		SymbolID: schema.SymbolID(binary.LittleEndian.Uint32(src[0:4])),
		Seq:      binary.LittleEndian.Uint64(src[4:12]),
		Bid:      schema.Price(int64(binary.LittleEndian.Uint64(src[12:20]))),
		Ask:      schema.Price(int64(binary.LittleEndian.Uint64(src[20:28]))),
		Last:     schema.Price(int64(binary.LittleEndian.Uint64(src[28:36]))),
		Size:     schema.Quantity(int64(binary.LittleEndian.Uint64(src[36:44]))),
		TsEvent:  int64(binary.LittleEndian.Uint64(src[44:52])),
	}, true
}

// grow extends dst by n bytes, reallocating when capacity is short.
func grow(dst []byte, n int) []byte {
	if cap(dst)-len(dst) >= n {
		return dst[:len(dst)+n]
	}
	out := make([]byte, len(dst)+n, 2*len(dst)+n)
	copy(out, dst)
	return out
}
