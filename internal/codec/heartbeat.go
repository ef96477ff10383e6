package codec

import (
	"encoding/binary"

	"tickpipe/internal/schema"
)

const HeartbeatPayloadSize = 10

// EncodeHeartbeat serializes a heartbeat into a fixed-size payload.
func EncodeHeartbeat(dst []byte, hb schema.Heartbeat) []byte {
	if cap(dst) < HeartbeatPayloadSize {
		dst = make([]byte, HeartbeatPayloadSize)
	} else {
		dst = dst[:HeartbeatPayloadSize]
	}
	binary.LittleEndian.PutUint16(dst[0:2], hb.Sender)
	binary.LittleEndian.PutUint64(dst[2:10], uint64(hb.Ts))
	return dst
}

// DecodeHeartbeat parses a heartbeat payload.
func DecodeHeartbeat(src []byte) (schema.Heartbeat, bool) {
	if len(src) < HeartbeatPayloadSize {
		return schema.Heartbeat{}, false
	}
	return schema.Heartbeat{
		Sender: binary.LittleEndian.Uint16(src[0:2]),
		Ts:     int64(binary.LittleEndian.Uint64(src[2:10])),
	}, true
}
