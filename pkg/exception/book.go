package exception

import "github.com/yanun0323/errors"

// Order book errors
var (
	ErrCrossedBook   = errors.New("book: update would cross the book")
	ErrInvalidSide   = errors.New("book: invalid side")
	ErrInvalidPrice  = errors.New("book: invalid price")
	ErrUnknownSymbol = errors.New("book: unknown symbol")
)
