package dialogue

import "errors"

var (
	// ErrRecordNotFound is returned by point lookups for absent records.
	ErrRecordNotFound = errors.New("dialogue: record not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("dialogue: store closed")
)
