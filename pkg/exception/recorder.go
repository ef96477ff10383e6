package exception

import "github.com/yanun0323/errors"

// Replay log errors
var (
	ErrRecorderClosed   = errors.New("recorder: closed")
	ErrReplayCorrupted  = errors.New("replay: corrupted record")
	ErrReplayNotTick    = errors.New("replay: record is not a tick")
	ErrEmptyPathReplay  = errors.New("replay: empty path")
	ErrPlaybackHandler  = errors.New("playback: handler is nil")
	ErrInvalidPlayback  = errors.New("playback: invalid config")
	ErrInvalidRecording = errors.New("recorder: invalid config")
)
