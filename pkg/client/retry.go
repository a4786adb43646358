package client

import (
	"time"
)

// RetryConfig holds the backoff policy for rate-limited requests.
// The policy is exponential: retry i (0-indexed) waits
// min(BaseBackoff * 2^i, MaxBackoff) before the next attempt.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// BaseBackoff is the wait before the first retry.
	BaseBackoff time.Duration

	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
	}
}

// Delay returns the backoff before retry i (0-indexed).
func (c RetryConfig) Delay(i int) time.Duration {
	backoff := c.BaseBackoff << uint(i)
	if backoff > c.MaxBackoff || backoff <= 0 {
		return c.MaxBackoff
	}
	return backoff
}
