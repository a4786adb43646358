package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrTokenNotConfigured is returned when no upstream credential
	// was configured. This is a startup misconfiguration, never retried.
	ErrTokenNotConfigured = errors.New("marketplace token not configured")

	// ErrRateLimitExceeded is returned when all retry attempts against
	// a rate-limited upstream are exhausted.
	ErrRateLimitExceeded = errors.New("upstream rate limit exceeded")

	// ErrMalformedResponse is returned when a response body cannot be
	// decoded. Callers treat this as "no data" for that call.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UpstreamError represents a non-retryable HTTP error from the
// marketplace API (any non-2xx status other than 429). It is returned
// as-is so the caller can apply domain-specific fallback.
type UpstreamError struct {
	Status   int
	Endpoint string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d) on %s", e.Status, e.Endpoint)
}

// NetworkError represents a transport-level failure (DNS, connection,
// timeout). Network errors are retried with the same backoff as 429
// responses; the wrapped transport error survives for errors.Is/As.
type NetworkError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
