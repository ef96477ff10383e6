package recorder

import (
	"io"
	"os"

	"github.com/yanun0323/errors"

	"tickpipe/internal/codec"
	"tickpipe/internal/frame"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Replayer reads ticks back from a replay log in recorded order.
type Replayer struct {
	src       io.ReadSeeker
	r         *frame.Reader
	offset    int64
	count     uint64
	truncated bool
	err       error
}

// NewReplayer reads the log from the current position of src.
func NewReplayer(src io.ReadSeeker) *Replayer {
	return &Replayer{
		src: src,
		r:   frame.NewReader(src, codec.TickPayloadSize),
	}
}

// OpenReplayer opens the log at path. The caller closes it with Close.
func OpenReplayer(path string) (*Replayer, error) {
	if path == "" {
		return nil, exception.ErrEmptyPathReplay
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open log")
	}
	return NewReplayer(file), nil
}

// Next returns the next recorded tick. io.EOF marks the normal end of the
// log, including a torn trailing record (see Truncated). Any other error
// means the log is corrupt and replay cannot continue.
func (r *Replayer) Next() (schema.MarketTick, error) {
	if r.err != nil {
		return schema.MarketTick{}, r.err
	}
	f, err := r.r.ReadFrame()
	if err != nil {
		switch {
		case err == io.EOF:
			r.err = io.EOF
		case err == io.ErrUnexpectedEOF:
			r.truncated = true
			r.err = io.EOF
		case frame.IsMalformed(err):
			r.err = exception.ErrReplayCorrupted
		default:
			r.err = errors.Wrap(err, "read log")
		}
		return schema.MarketTick{}, r.err
	}
	if f.Type != schema.MsgTick || f.Flags&frame.FlagChecksum == 0 || len(f.Payload) != codec.TickPayloadSize {
		r.err = exception.ErrReplayNotTick
		return schema.MarketTick{}, r.err
	}
	tick, _ := codec.DecodeTick(f.Payload)
	r.offset += int64(f.Size())
	r.count++
	return tick, nil
}

// Offset returns the byte offset just past the last valid record.
func (r *Replayer) Offset() int64 {
	return r.offset
}

// Count returns the number of ticks returned so far.
func (r *Replayer) Count() uint64 {
	return r.count
}

// Truncated reports whether the log ended inside a record.
func (r *Replayer) Truncated() bool {
	return r.truncated
}

// Reset rewinds to the beginning of the log.
func (r *Replayer) Reset() error {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "rewind log")
	}
	r.r = frame.NewReader(r.src, codec.TickPayloadSize)
	r.offset, r.count, r.truncated, r.err = 0, 0, false, nil
	return nil
}

// Close closes the underlying source when it is closable.
func (r *Replayer) Close() error {
	if c, ok := r.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
