package exception

import "github.com/yanun0323/errors"

// Configuration errors
var (
	ErrConfigInvalid         = errors.New("config: invalid")
	ErrConfigNoSymbols       = errors.New("config: no symbols enabled")
	ErrConfigMissingSymbol   = errors.New("config: missing per-symbol parameter")
	ErrConfigUnknownStrategy = errors.New("config: unknown strategy")
)
