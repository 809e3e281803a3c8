package recorder

import "errors"

var (
	// ErrSequenceExhausted is returned when every sequence tag for the
	// current millisecond is already taken and retries ran out.
	ErrSequenceExhausted = errors.New("recorder: sequence tags exhausted")
)
