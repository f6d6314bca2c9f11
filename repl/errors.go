package repl

import "errors"

var (
	// ErrConnConfigNil indicates that a nil ConnConfig was provided.
	ErrConnConfigNil = errors.New("repl: connection config is nil")

	// ErrInvalidTransition indicates a connection state transition that
	// is not allowed from the current state.
	ErrInvalidTransition = errors.New("repl: invalid connection state transition")

	// ErrOKTimeout indicates that the remote did not echo the raw-mode
	// acknowledgement marker within the configured bound. The exchange
	// is aborted; the engine does not retry on its own.
	ErrOKTimeout = errors.New("repl: timeout waiting for raw-mode acknowledgement")

	// ErrExchangeInProgress indicates that a file-transfer or run
	// request was issued while another exchange was still in flight.
	ErrExchangeInProgress = errors.New("repl: another exchange is in flight")
)
