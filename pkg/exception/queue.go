package exception

import "github.com/yanun0323/errors"

// Queue errors
var (
	ErrQueueFull   = errors.New("queue: full")
	ErrQueueClosed = errors.New("queue: closed")
)
