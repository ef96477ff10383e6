package exception

import "github.com/yanun0323/errors"

// Transport errors
var (
	// ErrEmptyAddress is returned when a socket address or path is empty.
	ErrEmptyAddress = errors.New("transport: empty address")

	// ErrPathNotSocket is returned when an existing unix path is not a socket.
	ErrPathNotSocket = errors.New("transport: path exists and is not a socket")

	ErrUnsupportedNetwork = errors.New("transport: unsupported network")
	ErrConnectionClosed   = errors.New("transport: connection closed")
)
