package frame

import (
	"tickpipe/pkg/exception"
)

// Decoder reassembles frames from arbitrarily split input. Feeding the same
// bytes in one call or many yields the same frame sequence.
type Decoder struct {
	buf        []byte
	off        int
	maxPayload int
	err        error
}

// NewDecoder creates a decoder. maxPayload <= 0 uses DefaultMaxPayload.
func NewDecoder(maxPayload int) *Decoder {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Decoder{maxPayload: maxPayload}
}

// Feed appends p to the internal buffer. p may be reused after the call.
func (d *Decoder) Feed(p []byte) {
	if d.off > 0 && d.off == len(d.buf) {
		d.buf = d.buf[:0]
		d.off = 0
	} else if d.off > 0 && d.off >= cap(d.buf)/2 {
		n := copy(d.buf, d.buf[d.off:])
		d.buf = d.buf[:n]
		d.off = 0
	}
	d.buf = append(d.buf, p...)
}

// Next returns the next complete frame. exception.ErrFrameIncomplete means
// the decoder needs more input. A malformed frame poisons the decoder and
// every later call returns the same error. The returned payload is valid
// until the next Feed.
func (d *Decoder) Next() (Frame, error) {
	if d.err != nil {
		return Frame{}, d.err
	}
	f, n, err := DecodeLimit(d.buf[d.off:], d.maxPayload)
	if err != nil {
		if err != exception.ErrFrameIncomplete {
			d.err = err
		}
		return Frame{}, err
	}
	d.off += n
	return f, nil
}

// Buffered returns the number of unconsumed bytes.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.off
}

// Reset clears buffered input and any terminal error.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.off = 0
	d.err = nil
}
