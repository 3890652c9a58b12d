// Package apperr defines the error taxonomy shared across the import pipeline.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedOrder marks an order document that cannot be imported at all:
	// empty input, invalid XML, or a missing required section. Fatal to the import.
	ErrMalformedOrder = errors.New("malformed order document")

	// ErrInvalidRequest marks a card lookup that was never sent because the
	// request itself was unusable (empty identifier). Fails that card only.
	ErrInvalidRequest = errors.New("invalid lookup request")

	// ErrCorruptResponse marks a lookup response whose body could not be
	// decoded. Retrying will not help; the card is marked failed.
	ErrCorruptResponse = errors.New("corrupt lookup response")

	// ErrUnsupportedImage marks bytes that are not a recognized raster format.
	ErrUnsupportedImage = errors.New("unsupported image format")

	ErrNotFound        = errors.New("not found")
	ErrDuplicateID     = errors.New("duplicate card id")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// TransientFetchError wraps a network or HTTP failure from the image lookup
// service. Callers may retry; the pipeline itself does not.
type TransientFetchError struct {
	Cause error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch failure: %v", e.Cause)
}

func (e *TransientFetchError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is (or wraps) a TransientFetchError.
func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}
