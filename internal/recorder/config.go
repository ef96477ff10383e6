package recorder

import (
	"time"

	"github.com/yanun0323/errors"

	"tickpipe/pkg/exception"
)

const defaultSyncEvery = 1

// Config controls the replay log writer.
type Config struct {
	Path string
	// SyncEvery fsyncs after this many records. 1 syncs every record, a
	// negative value leaves syncing to Close.
	SyncEvery int
}

func (c Config) withDefaults() Config {
	if c.SyncEvery == 0 {
		c.SyncEvery = defaultSyncEvery
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.Wrap(exception.ErrInvalidRecording, "Path is empty")
	}
	return nil
}

// PlaybackConfig controls replay pacing. With neither Speed nor Rate set,
// ticks are delivered as fast as the handler accepts them.
type PlaybackConfig struct {
	Path string
	// Speed replays the recorded event spacing scaled by this factor.
	Speed float64
	// Rate replays at a fixed number of ticks per second.
	Rate int
	// MaxGap caps a single speed-paced sleep. Zero means no cap.
	MaxGap time.Duration
}

// Validate checks if the config is usable.
func (c PlaybackConfig) Validate() error {
	if c.Path == "" {
		return errors.Wrap(exception.ErrInvalidPlayback, "Path is empty")
	}
	if c.Speed < 0 {
		return errors.Wrap(exception.ErrInvalidPlayback, "Speed must be >= 0")
	}
	if c.Rate < 0 {
		return errors.Wrap(exception.ErrInvalidPlayback, "Rate must be >= 0")
	}
	if c.Speed > 0 && c.Rate > 0 {
		return errors.Wrap(exception.ErrInvalidPlayback, "Speed and Rate are exclusive")
	}
	if c.MaxGap < 0 {
		return errors.Wrap(exception.ErrInvalidPlayback, "MaxGap must be >= 0")
	}
	return nil
}
