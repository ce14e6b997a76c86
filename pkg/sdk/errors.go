package visiolingua

import "github.com/blinderchief/visiolingua/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidInput            = domain.ErrInvalidInput
	ErrContentNotFound         = domain.ErrContentNotFound
	ErrVectorDimMismatch       = domain.ErrVectorDimMismatch
	ErrRateLimited             = domain.ErrRateLimited
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrGenerationProviderError = domain.ErrGenerationProviderError
	ErrStoreUnavailable        = domain.ErrStoreUnavailable
)
