// Package client provides the marketplace HTTP fetcher with bounded
// retry on rate-limit responses and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/logging"
)

// Prometheus metrics for marketplace fetch operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vinylscout_upstream_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vinylscout_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vinylscout_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})

	upstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinylscout_upstream_retries_total",
		Help: "Total number of retry attempts after rate-limited or failed requests",
	})

	upstreamRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vinylscout_upstream_retry_backoff_seconds",
		Help:    "Backoff duration before retry attempts",
		Buckets: []float64{0.5, 1, 2, 5, 10},
	})

	upstreamRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vinylscout_upstream_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents non-retryable 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Config holds the fetcher configuration.
type Config struct {
	// BaseURL of the marketplace API.
	BaseURL string

	// Token is the personal access token sent on every request.
	// A missing token surfaces as ErrTokenNotConfigured on first use.
	Token string

	// UserAgent is the fixed client identifier string (required by
	// the marketplace API terms).
	UserAgent string

	// Retry is the backoff policy for 429 and transport failures.
	Retry RetryConfig

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   "https://api.discogs.com",
		Token:     token,
		UserAgent: "vinylscout/0.1.0 +https://github.com/vinylscout/vinylscout",
		Retry:     DefaultRetryConfig(),
		Timeout:   15 * time.Second,
	}
}

// Fetcher issues GET requests against the marketplace API.
//
// Only 429 responses and transport failures are retried, with
// exponential backoff per Config.Retry. All other non-2xx statuses are
// returned as *UpstreamError without retry, so callers can apply
// domain-specific fallback.
type Fetcher struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger

	// sleep waits between retry attempts. Replaced in tests to make
	// backoff deterministic.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new marketplace fetcher.
func New(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.discogs.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logging.NewLogger("fetcher"),
		sleep:      waitWithContext,
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Fetcher) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}

// Get fetches an endpoint and returns the raw response body.
// The query may be nil.
func (f *Fetcher) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if f.config.Token == "" {
		return nil, ErrTokenNotConfigured
	}

	reqURL := f.config.BaseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	metricLabel := metricEndpoint(endpoint)

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(metricLabel).Observe(time.Since(startTime).Seconds())
	}()

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Discogs token="+f.config.Token)
		req.Header.Set("User-Agent", f.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			upstreamRequestsTotal.WithLabelValues(metricLabel, "network_error").Inc()

			// Transport failures are retried like 429s.
			if attempt >= f.config.Retry.MaxRetries {
				upstreamRetryExhaustedTotal.Inc()
				f.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Request failed after retries")
				return nil, &NetworkError{Endpoint: endpoint, Err: err}
			}
			if waitErr := f.backoff(ctx, endpoint, attempt); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			upstreamRequestsTotal.WithLabelValues(metricLabel, "429").Inc()

			if attempt >= f.config.Retry.MaxRetries {
				upstreamRetryExhaustedTotal.Inc()
				f.logger.Warn().
					Str("endpoint", endpoint).
					Int("max_retries", f.config.Retry.MaxRetries).
					Msg("Rate limit retries exhausted")
				return nil, fmt.Errorf("%w: %s after %d retries", ErrRateLimitExceeded, endpoint, f.config.Retry.MaxRetries)
			}
			if waitErr := f.backoff(ctx, endpoint, attempt); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		upstreamRequestsTotal.WithLabelValues(metricLabel, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			upstreamErrorsTotal.WithLabelValues(string(classifyStatus(resp.StatusCode))).Inc()
			f.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("Upstream request error")
			return nil, &UpstreamError{Status: resp.StatusCode, Endpoint: endpoint}
		}

		if readErr != nil {
			upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return nil, &NetworkError{Endpoint: endpoint, Err: readErr}
		}

		if attempt > 0 {
			f.logger.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Msg("Request succeeded after retry")
		}
		return body, nil
	}
}

// GetJSON fetches an endpoint and decodes the JSON response into v.
// Decoding failures are reported as ErrMalformedResponse; callers
// treat them as "no data" for that call.
func (f *Fetcher) GetJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	body, err := f.Get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		f.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to decode upstream response")
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// backoff waits before the next attempt, honoring context cancellation.
func (f *Fetcher) backoff(ctx context.Context, endpoint string, attempt int) error {
	delay := f.config.Retry.Delay(attempt)
	upstreamRetriesTotal.Inc()
	upstreamRetryBackoffSeconds.Observe(delay.Seconds())

	f.logger.Debug().
		Str("endpoint", endpoint).
		Int("attempt", attempt+1).
		Dur("backoff", delay).
		Msg("Retrying request after backoff")

	return f.sleep(ctx, delay)
}

// classifyStatus categorizes an HTTP status for observability.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// waitWithContext blocks for d or until the context is cancelled.
func waitWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var numericSegment = regexp.MustCompile(`/\d+`)

// metricEndpoint collapses numeric path segments so release-scoped
// endpoints share one metric series.
func metricEndpoint(endpoint string) string {
	return numericSegment.ReplaceAllString(endpoint, "/{id}")
}
