package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// newTestFetcher builds a fetcher against srv with recorded sleeps
// instead of real backoff waits.
func newTestFetcher(srv *httptest.Server) (*Fetcher, *sleepRecorder) {
	cfg := DefaultConfig("test-token")
	cfg.BaseURL = srv.URL
	f := New(cfg)

	rec := &sleepRecorder{}
	f.sleep = rec.sleep
	return f, rec
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, d := range r.delays {
		sum += d
	}
	return sum
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Discogs token=test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header not set")
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f, rec := newTestFetcher(srv)

	body, err := f.Get(context.Background(), "/database/search", url.Values{"style": {"Techno"}})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if len(rec.delays) != 0 {
		t.Errorf("expected no backoff waits, got %v", rec.delays)
	}
}

func TestGet_RetriesOnRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f, rec := newTestFetcher(srv)

	_, err := f.Get(context.Background(), "/releases/123", nil)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	// Two 429s wait the first two exponential delays, the successful
	// third attempt adds no wait.
	want := 500*time.Millisecond + 1*time.Second
	if got := rec.total(); got != want {
		t.Errorf("total backoff = %v, want %v", got, want)
	}
}

func TestGet_RateLimitExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f, _ := newTestFetcher(srv)

	_, err := f.Get(context.Background(), "/releases/123", nil)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("Get() error = %v, want ErrRateLimitExceeded", err)
	}
	// Initial attempt plus MaxRetries retries.
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestGet_NoRetryOnUpstreamError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f, rec := newTestFetcher(srv)

	_, err := f.Get(context.Background(), "/releases/999", nil)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Get() error = %v, want *UpstreamError", err)
	}
	if upstreamErr.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", upstreamErr.Status)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", calls)
	}
	if len(rec.delays) != 0 {
		t.Errorf("expected no backoff waits, got %v", rec.delays)
	}
}

func TestGet_RetriesNetworkErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening: every attempt fails at transport level

	f, rec := newTestFetcher(srv)

	_, err := f.Get(context.Background(), "/releases/123", nil)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Get() error = %v, want *NetworkError", err)
	}
	if len(rec.delays) != 3 {
		t.Errorf("backoff waits = %d, want 3", len(rec.delays))
	}
}

func TestGet_TokenNotConfigured(t *testing.T) {
	cfg := DefaultConfig("")
	f := New(cfg)

	_, err := f.Get(context.Background(), "/releases/123", nil)
	if !errors.Is(err, ErrTokenNotConfigured) {
		t.Fatalf("Get() error = %v, want ErrTokenNotConfigured", err)
	}
}

func TestGetJSON_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [`)) // truncated JSON
	}))
	defer srv.Close()

	f, _ := newTestFetcher(srv)

	var out map[string]any
	err := f.GetJSON(context.Background(), "/database/search", nil, &out)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("GetJSON() error = %v, want ErrMalformedResponse", err)
	}
}

func TestGetJSON_Decodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": [{"id": 7}]}`))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(srv)

	var out struct {
		Results []struct {
			ID int `json:"id"`
		} `json:"results"`
	}
	if err := f.GetJSON(context.Background(), "/database/search", nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(out.Results) != 1 || out.Results[0].ID != 7 {
		t.Errorf("decoded %+v", out)
	}
}

func TestMetricEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/releases/12345", "/releases/{id}"},
		{"/marketplace/stats/9", "/marketplace/stats/{id}"},
		{"/database/search", "/database/search"},
	}
	for _, tt := range tests {
		if got := metricEndpoint(tt.in); got != tt.want {
			t.Errorf("metricEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
