package frame

import (
	"io"

	"github.com/yanun0323/errors"

	"tickpipe/pkg/exception"
)

const readChunk = 4 << 10

// Reader reads frames from a byte stream, tolerating partial reads.
type Reader struct {
	r     io.Reader
	dec   *Decoder
	chunk []byte
}

// NewReader wraps r. maxPayload <= 0 uses DefaultMaxPayload.
func NewReader(r io.Reader, maxPayload int) *Reader {
	return &Reader{
		r:     r,
		dec:   NewDecoder(maxPayload),
		chunk: make([]byte, readChunk),
	}
}

// ReadFrame returns the next frame. It returns io.EOF at a clean end of
// stream and io.ErrUnexpectedEOF when the stream ends inside a frame.
// The payload is only valid until the next call.
func (r *Reader) ReadFrame() (Frame, error) {
	for {
		f, err := r.dec.Next()
		if err == nil {
			return f, nil
		}
		if err != exception.ErrFrameIncomplete {
			return Frame{}, err
		}
		n, rerr := r.r.Read(r.chunk)
		if n > 0 {
			r.dec.Feed(r.chunk[:n])
			continue
		}
		if rerr == nil {
			continue
		}
		if rerr == io.EOF {
			if r.dec.Buffered() > 0 {
				return Frame{}, io.ErrUnexpectedEOF
			}
			return Frame{}, io.EOF
		}
		return Frame{}, rerr
	}
}

// Writer writes whole frames to a byte stream.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame encodes f and writes it, looping over short writes until the
// frame is complete or the underlying writer fails.
func (w *Writer) WriteFrame(f Frame) error {
	w.buf = Encode(w.buf[:0], f)
	b := w.buf
	for len(b) > 0 {
		n, err := w.w.Write(b)
		if err != nil {
			return errors.Wrap(err, "write frame")
		}
		if n == 0 {
			return errors.Wrap(io.ErrShortWrite, "write frame")
		}
		b = b[n:]
	}
	return nil
}
