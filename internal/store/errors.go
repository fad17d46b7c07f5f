package store

import "errors"

var (
	// ErrNotFound is returned when the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownKind is returned when appending a message with a kind
	// the store does not recognize.
	ErrUnknownKind = errors.New("unknown message kind")
)
