package domain

import "errors"

var (
	// ErrContentNotFound signals a missing content record.
	ErrContentNotFound = errors.New("content not found")
	// ErrInvalidInput signals a malformed request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrRateLimited signals a rate limit or resource exhaustion at a provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a language model failure.
	ErrGenerationProviderError = errors.New("generation provider error")
	// ErrStoreUnavailable signals that the candidate store could not be reached.
	ErrStoreUnavailable = errors.New("candidate store unavailable")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// IsRateLimited reports whether err is classified as a rate-limit or resource-exhaustion failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
