package a2a

import "errors"

var (
	// ErrUnknownAgent is returned when a dispatch targets an agent name
	// that was never registered.
	ErrUnknownAgent = errors.New("a2a: unknown agent")

	// ErrClientUnavailable is returned when an agent is registered but no
	// usable client handle is held for it.
	ErrClientUnavailable = errors.New("a2a: client unavailable")

	// ErrTaskCanceled is returned when the remote agent reports the
	// delegated task as canceled.
	ErrTaskCanceled = errors.New("a2a: remote task canceled")

	// ErrTaskFailed is returned when the remote agent reports the delegated
	// task as failed.
	ErrTaskFailed = errors.New("a2a: remote task failed")
)
