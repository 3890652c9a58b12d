// Package fetch resolves card identifiers to encoded image bytes via the
// remote lookup service.
package fetch

import "context"

// Fetcher is the interface for card image acquisition. Implementations
// return the raw encoded image bytes for one card identifier.
type Fetcher interface {
	// Fetch returns the encoded image bytes for the given card identifier.
	// Errors follow the apperr taxonomy: ErrInvalidRequest for an unusable
	// identifier, TransientFetchError for network/HTTP failures, and
	// ErrCorruptResponse for an undecodable body.
	Fetch(ctx context.Context, id string) ([]byte, error)
}
