package session

import "errors"

var (
	// ErrNotFound is returned by Get for session ids never created.
	ErrNotFound = errors.New("session not found")
)
