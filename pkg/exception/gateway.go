package exception

import "github.com/yanun0323/errors"

// Order gateway errors
var (
	ErrGatewayClosed        = errors.New("gateway: closed")
	ErrGatewayUnexpectedMsg = errors.New("gateway: unexpected message")
	ErrGatewayAckMismatch   = errors.New("gateway: ack does not match request")
)

// Order lifecycle errors
var (
	ErrDuplicateOrder    = errors.New("order: already exists")
	ErrUnknownOrder      = errors.New("order: not found")
	ErrInvalidTransition = errors.New("order: invalid state transition")
)
