package recorder

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"tickpipe/internal/frame"
	"tickpipe/internal/schema"
	"tickpipe/pkg/exception"
)

// Recorder appends ticks to a replay log. Each record is a checksummed tick
// frame written with a single write call, so a crash leaves at most one torn
// record at the tail.
type Recorder struct {
	mu        sync.Mutex
	cfg       Config
	file      *os.File
	buf       []byte
	pending   int
	records   uint64
	truncated int64
	closed    bool
}

// OpenRecorder opens or creates the log at cfg.Path for appending. An
// existing log is scanned first: a torn trailing record is truncated away,
// while corruption before the tail is returned as an error.
func OpenRecorder(cfg Config) (*Recorder, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create log dir")
		}
	}
	file, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log")
	}

	rp := NewReplayer(file)
	for {
		_, err := rp.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = file.Close()
			return nil, errors.Errorf("scan %s at offset %d: %s", cfg.Path, rp.Offset(), err)
		}
	}

	r := &Recorder{
		cfg:     cfg,
		file:    file,
		buf:     make([]byte, 0, frame.HeaderSize+frame.ChecksumSize+64),
		records: rp.Count(),
	}
	if rp.Truncated() {
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return nil, errors.Wrap(err, "stat log")
		}
		r.truncated = info.Size() - rp.Offset()
		if err := file.Truncate(rp.Offset()); err != nil {
			_ = file.Close()
			return nil, errors.Wrap(err, "truncate torn record")
		}
		logs.Infof("recorder: truncated %d bytes of torn record from %s", r.truncated, cfg.Path)
	}
	if _, err := file.Seek(rp.Offset(), io.SeekStart); err != nil {
		_ = file.Close()
		return nil, errors.Wrap(err, "seek log end")
	}
	return r, nil
}

// Record appends one tick. The record is fully written, and synced per
// SyncEvery, before Record returns.
func (r *Recorder) Record(t schema.MarketTick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return exception.ErrRecorderClosed
	}

	var payload [64]byte
	r.buf = frame.Encode(r.buf[:0], frame.TickFrame(payload[:0], t))
	if _, err := r.file.Write(r.buf); err != nil {
		return errors.Wrap(err, "append record")
	}
	r.records++
	r.pending++
	if r.cfg.SyncEvery > 0 && r.pending >= r.cfg.SyncEvery {
		if err := r.file.Sync(); err != nil {
			return errors.Wrap(err, "sync log")
		}
		r.pending = 0
	}
	return nil
}

// Sync flushes written records to stable storage.
func (r *Recorder) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return exception.ErrRecorderClosed
	}
	r.pending = 0
	return r.file.Sync()
}

// Records returns the number of records in the log, including those found at open.
func (r *Recorder) Records() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

// TruncatedBytes returns the size of the torn record removed at open.
func (r *Recorder) TruncatedBytes() int64 {
	return r.truncated
}

// Close syncs and closes the log.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.file.Sync(); err != nil {
		_ = r.file.Close()
		return errors.Wrap(err, "sync log")
	}
	return r.file.Close()
}
