package history

import "errors"

var (
	// ErrInvalidEntry is returned when an entry lacks a binding id or has an
	// unknown direction.
	ErrInvalidEntry = errors.New("history: invalid entry")

	// ErrClosed is returned when recording after Close.
	ErrClosed = errors.New("history: recorder closed")
)
