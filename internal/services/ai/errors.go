package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels for provider failures. Handlers map them to generic messages so
// upstream error bodies never reach clients; ErrMisconfigured and
// ErrThrottled carry just enough to distinguish an operator problem from a
// transient one.
var (
	ErrUnavailable   = errors.New("AI service unavailable")
	ErrMisconfigured = errors.New("AI provider rejected the configured credentials")
	ErrThrottled     = errors.New("AI service is busy")
)

// APIError represents an error response from a provider API
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

// IsAuthError checks if an error indicates a bad or missing API key
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403
	}
	return false
}
