package frame

import (
	"encoding/binary"
	"hash/crc32"

	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

const (
	// HeaderSize is magic(2) | type(2) | flags(2) | length(4).
	HeaderSize   = 10
	ChecksumSize = 4

	// DefaultMaxPayload is the largest payload accepted by Decode.
	DefaultMaxPayload = 64 << 10
)

// FlagChecksum marks a frame followed by a CRC-32C of header and payload.
const FlagChecksum uint16 = 1 << 0

var (
	streamMagic = [2]byte{'T', 'P'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

// Frame is a typed message on a connection-oriented stream.
type Frame struct {
	Type    schema.MessageType
	Flags   uint16
	Payload []byte
}

// Size returns the encoded length of f.
func (f Frame) Size() int {
	n := HeaderSize + len(f.Payload)
	if f.Flags&FlagChecksum != 0 {
		n += ChecksumSize
	}
	return n
}

// Encode appends the encoded frame to dst. Encoding is deterministic.
func Encode(dst []byte, f Frame) []byte {
	start := len(dst)
	size := f.Size()
	if cap(dst)-start < size {
		out := make([]byte, start, start+size)
		copy(out, dst)
		dst = out
	}
	dst = dst[:start+size]
	b := dst[start:]

	b[0], b[1] = streamMagic[0], streamMagic[1]
	binary.LittleEndian.PutUint16(b[2:4], uint16(f.Type))
	binary.LittleEndian.PutUint16(b[4:6], f.Flags)
	binary.LittleEndian.PutUint32(b[6:10], uint32(len(f.Payload)))
	copy(b[HeaderSize:], f.Payload)

	if f.Flags&FlagChecksum != 0 {
		end := HeaderSize + len(f.Payload)
		binary.LittleEndian.PutUint32(b[end:end+ChecksumSize], crc32.Checksum(b[:end], crcTable))
	}
	return dst
}

// Decode parses one frame from the front of buf using DefaultMaxPayload.
// See DecodeLimit.
func Decode(buf []byte) (Frame, int, error) {
	return DecodeLimit(buf, DefaultMaxPayload)
}

// DecodeLimit parses one frame from the front of buf. It returns the frame and
// the number of bytes consumed. exception.ErrFrameIncomplete means more bytes
// are needed; any other error means the stream is unusable (see IsMalformed).
// The returned payload aliases buf.
func DecodeLimit(buf []byte, maxPayload int) (Frame, int, error) {
	if len(buf) >= 1 && buf[0] != streamMagic[0] || len(buf) >= 2 && buf[1] != streamMagic[1] {
		return Frame{}, 0, exception.ErrFrameInvalidMagic
	}
	if len(buf) < HeaderSize {
		return Frame{}, 0, exception.ErrFrameIncomplete
	}

	typ := schema.MessageType(binary.LittleEndian.Uint16(buf[2:4]))
	if !typ.IsKnown() {
		return Frame{}, 0, exception.ErrFrameUnknownType
	}
	flags := binary.LittleEndian.Uint16(buf[4:6])
	length := binary.LittleEndian.Uint32(buf[6:10])
	if uint64(length) > uint64(maxPayload) {
		return Frame{}, 0, exception.ErrFrameTooLarge
	}

	end := HeaderSize + int(length)
	total := end
	if flags&FlagChecksum != 0 {
		total += ChecksumSize
	}
	if len(buf) < total {
		return Frame{}, 0, exception.ErrFrameIncomplete
	}
	if flags&FlagChecksum != 0 {
		want := binary.LittleEndian.Uint32(buf[end:total])
		if crc32.Checksum(buf[:end], crcTable) != want {
			return Frame{}, 0, exception.ErrFrameChecksum
		}
	}

	return Frame{
		Type:    typ,
		Flags:   flags,
		Payload: buf[HeaderSize:end],
	}, total, nil
}

// IsMalformed reports whether err is a terminal framing error.
func IsMalformed(err error) bool {
	switch err {
	case exception.ErrFrameMalformed,
		exception.ErrFrameTooLarge,
		exception.ErrFrameUnknownType,
		exception.ErrFrameInvalidMagic,
		exception.ErrFrameChecksum:
		return true
	}
	return false
}
