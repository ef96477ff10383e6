package frame

import (
	"tickpipe/internal/codec"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

const (
	DatagramHeaderSize = 4
	// DatagramSize is the exact length of a market-data datagram.
	DatagramSize = DatagramHeaderSize + codec.TickPayloadSize
)

var datagramMagic = [2]byte{'M', 'D'}

// EncodeDatagram writes one tick as a fixed-layout datagram into dst.
func EncodeDatagram(dst []byte, t schema.MarketTick) []byte {
	if cap(dst) < DatagramSize {
		dst = make([]byte, DatagramSize)
	} else {
		dst = dst[:DatagramSize]
	}
	dst[0], dst[1] = datagramMagic[0], datagramMagic[1]
	dst[2] = schema.SchemaVersion
	dst[3] = byte(schema.MsgTick)
	codec.EncodeTick(dst[DatagramHeaderSize:], t)
	return dst
}

// DecodeDatagram parses a market-data datagram. It never panics on arbitrary input.
func DecodeDatagram(src []byte) (schema.MarketTick, error) {
	if len(src) != DatagramSize {
		return schema.MarketTick{}, exception.ErrDatagramInvalidSize
	}
	if src[0] != datagramMagic[0] || src[1] != datagramMagic[1] ||
		src[2] != schema.SchemaVersion || src[3] != byte(schema.MsgTick) {
		return schema.MarketTick{}, exception.ErrDatagramInvalidMagic
	}
	t, ok := codec.DecodeTick(src[DatagramHeaderSize:])
	if !ok {
		return schema.MarketTick{}, exception.ErrDatagramInvalidSize
	}
	return t, nil
}

// TickFrame wraps an encoded tick in a checksummed stream frame.
func TickFrame(buf []byte, t schema.MarketTick) Frame {
	return Frame{Type: schema.MsgTick, Flags: FlagChecksum, Payload: codec.EncodeTick(buf, t)}
}
