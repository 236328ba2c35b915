package cantp

import "errors"

// Programmer-facing failures: illegal configuration, illegal handles, calls
// made out of sequence. These are distinct from the OK/ERROR/OVERFLOW
// protocol taxonomy in result.go, which describes outcomes the protocol
// itself defines (spec §7).
var (
	ErrIllegalArgument = errors.New("error in function arguments")
	ErrInvalidState    = errors.New("channel not ready")
	ErrUnknownChannel  = errors.New("no channel configured for this id/handle")
)
