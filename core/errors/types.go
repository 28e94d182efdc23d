// Package errors implements a tiered error taxonomy with classification and
// handling behavior for AI-backed operations.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorTier represents the classification tier for errors.
// Each tier has defined behavior for retry policy and user messaging.
type ErrorTier int

const (
	// TierBreakerOpen indicates a call rejected by an open circuit breaker.
	// Never retried immediately; the user sees a "temporarily unavailable" message.
	TierBreakerOpen ErrorTier = iota

	// TierTimeout indicates an aborted or timed-out request. Retryable.
	TierTimeout

	// TierRateLimit indicates rate limiting from the completion provider.
	// Retryable with backoff, honoring Retry-After when present.
	TierRateLimit

	// TierSchema indicates the model returned output that failed schema
	// validation. Retryable, but logged distinctly since it may indicate a
	// prompt/schema mismatch rather than a transient outage.
	TierSchema

	// TierValidation indicates insufficient or invalid input data.
	// Never retried automatically; surfaced directly to the user.
	TierValidation
)

var tierNames = map[ErrorTier]string{
	TierBreakerOpen: "breaker_open",
	TierTimeout:     "timeout",
	TierRateLimit:   "rate_limit",
	TierSchema:      "schema",
	TierValidation:  "validation",
}

func (t ErrorTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// TierBehavior defines the handling behavior for an error tier.
type TierBehavior struct {
	// ShouldRetry indicates whether errors of this tier should be retried.
	ShouldRetry bool

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// BaseBackoff is the initial backoff duration.
	BaseBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// ShouldNotify indicates whether to surface the failure to the user.
	ShouldNotify bool
}

// DefaultBehaviors returns the default behavior for each error tier.
func DefaultBehaviors() map[ErrorTier]TierBehavior {
	return map[ErrorTier]TierBehavior{
		TierBreakerOpen: {
			ShouldRetry:  false,
			ShouldNotify: true,
		},
		TierTimeout: {
			ShouldRetry:  true,
			MaxRetries:   3,
			BaseBackoff:  500 * time.Millisecond,
			MaxBackoff:   10 * time.Second,
			ShouldNotify: false,
		},
		TierRateLimit: {
			ShouldRetry:  true,
			MaxRetries:   5,
			BaseBackoff:  1 * time.Second,
			MaxBackoff:   60 * time.Second,
			ShouldNotify: true,
		},
		TierSchema: {
			ShouldRetry:  true,
			MaxRetries:   2,
			BaseBackoff:  250 * time.Millisecond,
			MaxBackoff:   5 * time.Second,
			ShouldNotify: false,
		},
		TierValidation: {
			ShouldRetry:  false,
			ShouldNotify: true,
		},
	}
}

// TieredError wraps an error with tier classification.
type TieredError struct {
	Tier       ErrorTier
	Message    string
	Underlying error
	StatusCode int
	RetryAfter time.Duration
	Context    map[string]string
}

// Error implements the error interface.
func (e *TieredError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Tier, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s] %s", e.Tier, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *TieredError) Unwrap() error {
	return e.Underlying
}

// Is checks if the target error matches this TieredError's tier.
func (e *TieredError) Is(target error) bool {
	var te *TieredError
	if errors.As(target, &te) {
		return e.Tier == te.Tier
	}
	return false
}

// NewTieredError creates a new TieredError with the given tier and message.
func NewTieredError(tier ErrorTier, message string, underlying error) *TieredError {
	return &TieredError{
		Tier:       tier,
		Message:    message,
		Underlying: underlying,
		Context:    make(map[string]string),
	}
}

// WithStatusCode adds an HTTP status code to the error.
func (e *TieredError) WithStatusCode(code int) *TieredError {
	e.StatusCode = code
	return e
}

// WithRetryAfter adds a retry-after duration to the error.
func (e *TieredError) WithRetryAfter(d time.Duration) *TieredError {
	e.RetryAfter = d
	return e
}

// WithContext adds a context key-value pair to the error.
func (e *TieredError) WithContext(key, value string) *TieredError {
	e.Context[key] = value
	return e
}

// GetTier extracts the ErrorTier from an error, defaulting to Validation.
func GetTier(err error) ErrorTier {
	var te *TieredError
	if errors.As(err, &te) {
		return te.Tier
	}
	return TierValidation
}

// GetBehavior returns the behavior for an error's tier.
func GetBehavior(err error) TierBehavior {
	tier := GetTier(err)
	behaviors := DefaultBehaviors()
	return behaviors[tier]
}

// IsRetryable checks if an error should be retried based on its tier.
func IsRetryable(err error) bool {
	return GetBehavior(err).ShouldRetry
}

// Common sentinel errors for each tier.
var (
	ErrBreakerOpen = NewTieredError(TierBreakerOpen, "circuit breaker is open", nil)

	ErrTimeout = NewTieredError(TierTimeout, "operation timed out", nil)
	ErrAborted = NewTieredError(TierTimeout, "operation aborted", nil)

	ErrRateLimited = NewTieredError(TierRateLimit, "rate limited", nil).WithStatusCode(http.StatusTooManyRequests)

	ErrInvalidSchema = NewTieredError(TierSchema, "response failed schema validation", nil)
	ErrEmptyResponse = NewTieredError(TierSchema, "empty model response", nil)

	ErrInsufficientInput = NewTieredError(TierValidation, "insufficient input data", nil)
	ErrMissingAPIKey     = NewTieredError(TierValidation, "missing API key", nil)
)

// WrapWithTier wraps an error with a tier classification.
// Existing TieredErrors keep their tier.
func WrapWithTier(tier ErrorTier, message string, err error) error {
	if err == nil {
		return nil
	}

	var te *TieredError
	if errors.As(err, &te) {
		return &TieredError{
			Tier:       te.Tier,
			Message:    message,
			Underlying: err,
			StatusCode: te.StatusCode,
			RetryAfter: te.RetryAfter,
			Context:    te.Context,
		}
	}

	return NewTieredError(tier, message, err)
}
