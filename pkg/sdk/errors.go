package catalogd

import "github.com/kailas-cloud/catalogd/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrValidation        = domain.ErrValidation
	ErrUnknownFacetValue = domain.ErrUnknownFacetValue
	ErrUpstreamStore     = domain.ErrUpstreamStore
	ErrInvalidTransition = domain.ErrInvalidTransition
	ErrAlreadyExists     = domain.ErrAlreadyExists
	ErrMetricsRegression = domain.ErrMetricsRegression
)

// ValidationError names the input field that failed validation.
type ValidationError = domain.ValidationError
