package errors

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var rateLimitStatuses = map[int]struct{}{
	http.StatusTooManyRequests: {},
}

var timeoutStatuses = map[int]struct{}{
	http.StatusRequestTimeout: {},
	http.StatusGatewayTimeout: {},
}

// Classify maps an arbitrary failure from a completion call into the tiered
// taxonomy. Context cancellation and deadline expiry become timeout-tier
// errors; provider rate-limit signals become rate-limit-tier errors;
// everything unrecognized stays a validation-tier error so it is never
// retried blindly.
func Classify(err error) *TieredError {
	if err == nil {
		return nil
	}

	var te *TieredError
	if errors.As(err, &te) {
		return te
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTieredError(TierTimeout, "request deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewTieredError(TierTimeout, "request aborted", err)
	}

	if code, ok := statusCode(err); ok {
		if _, rl := rateLimitStatuses[code]; rl {
			return NewTieredError(TierRateLimit, "provider rate limited", err).WithStatusCode(code)
		}
		if _, to := timeoutStatuses[code]; to {
			return NewTieredError(TierTimeout, "provider timeout", err).WithStatusCode(code)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "overloaded"):
		return NewTieredError(TierRateLimit, "provider rate limited", err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return NewTieredError(TierTimeout, "provider timeout", err)
	}

	return NewTieredError(TierValidation, "completion call failed", err)
}

// statusCoder is implemented by SDK errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

func statusCode(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}
