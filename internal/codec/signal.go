package codec

import (
	"encoding/binary"

	"tickpipe/internal/schema"
)

// SignalFixedSize is the size of the signal payload before the strategy name.
const SignalFixedSize = 40

// SignalMaxPayloadSize bounds an encoded signal.
const SignalMaxPayloadSize = SignalFixedSize + schema.MaxStrategyNameLen

// EncodeSignal serializes a trading signal. Strategy names longer than
// schema.MaxStrategyNameLen are truncated.
func EncodeSignal(dst []byte, s schema.TradingSignal) []byte {
	name := s.Strategy
	if len(name) > schema.MaxStrategyNameLen {
		name = name[:schema.MaxStrategyNameLen]
	}
	size := SignalFixedSize + len(name)
	if cap(dst) < size {
		dst = make([]byte, size)
	} else {
		dst = dst[:size]
	}

	binary.LittleEndian.PutUint32(dst[0:4], uint32(s.SymbolID))
	binary.LittleEndian.PutUint16(dst[4:6], uint16(s.Side))
	binary.LittleEndian.PutUint16(dst[6:8], uint16(len(name)))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(s.Qty))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(s.Price))
	binary.LittleEndian.PutUint64(dst[24:32], s.TickSeq)
	binary.LittleEndian.PutUint64(dst[32:40], uint64(s.TsSignal))
	copy(dst[SignalFixedSize:], name)

	return dst
}

// DecodeSignal parses a trading signal payload.
func DecodeSignal(src []byte) (schema.TradingSignal, bool) {
	if len(src) < SignalFixedSize {
		return schema.TradingSignal{}, false
	}
	nameLen := int(binary.LittleEndian.Uint16(src[6:8]))
	if nameLen > schema.MaxStrategyNameLen || len(src) < SignalFixedSize+nameLen {
		return schema.TradingSignal{}, false
	}
	return schema.TradingSignal{
		SymbolID: schema.SymbolID(binary.LittleEndian.Uint32(src[0:4])),
		Side:     schema.OrderSide(binary.LittleEndian.Uint16(src[4:6])),
		Qty:      schema.Quantity(int64(binary.LittleEndian.Uint64(src[8:16]))),
		Price:    schema.Price(int64(binary.LittleEndian.Uint64(src[16:24]))),
		TickSeq:  binary.LittleEndian.Uint64(src[24:32]),
		TsSignal: int64(binary.LittleEndian.Uint64(src[32:40])),
		Strategy: string(src[SignalFixedSize : SignalFixedSize+nameLen]),
	}, true
}
