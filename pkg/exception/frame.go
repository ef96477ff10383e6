package exception

import "github.com/yanun0323/errors"

// Frame errors
var (
	// ErrFrameIncomplete is returned when the buffer does not yet hold a whole frame.
	// It is recoverable: feed more bytes and try again.
	ErrFrameIncomplete = errors.New("frame: incomplete")

	// ErrFrameMalformed is returned for frames that can never be decoded.
	ErrFrameMalformed = errors.New("frame: malformed")

	ErrFrameTooLarge        = errors.New("frame: payload too large")
	ErrFrameUnknownType     = errors.New("frame: unknown message type")
	ErrFrameInvalidMagic    = errors.New("frame: invalid magic")
	ErrFrameChecksum        = errors.New("frame: checksum mismatch")
	ErrDatagramInvalidSize  = errors.New("datagram: invalid size")
	ErrDatagramInvalidMagic = errors.New("datagram: invalid magic")
)
