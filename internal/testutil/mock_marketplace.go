// Package testutil provides testing utilities for the vinylscout pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock marketplace endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockMarketplace is a configurable mock of the upstream marketplace
// API for testing the fetcher, sampler, enricher, and pipeline.
type MockMarketplace struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	PathCounts   map[string]int
}

// NewMockMarketplace creates a new mock marketplace server.
func NewMockMarketplace() *MockMarketplace {
	mock := &MockMarketplace{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Unconfigured paths look like upstream 404s.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "not found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockMarketplace) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockMarketplace) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockMarketplace) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PathCounts = make(map[string]int)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockMarketplace) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathCount returns the number of requests made to a specific path.
func (m *MockMarketplace) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockMarketplace) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockMarketplace) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SearchRow is a convenience builder for one search result row.
type SearchRow struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
	Cover string `json:"cover_image,omitempty"`
	Have  int    `json:"-"`
	Want  int    `json:"-"`
}

// SetSearchResults configures the database search endpoint to return
// the given rows for any query.
func (m *MockMarketplace) SetSearchResults(rows []SearchRow) {
	results := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		result := map[string]any{
			"id":    row.ID,
			"title": row.Title,
		}
		if row.Year != 0 {
			result["year"] = row.Year
		}
		if row.Cover != "" {
			result["cover_image"] = row.Cover
		}
		if row.Have != 0 || row.Want != 0 {
			result["community"] = map[string]any{"have": row.Have, "want": row.Want}
		}
		results = append(results, result)
	}

	body, _ := json.Marshal(map[string]any{"results": results})
	m.SetResponse("/database/search", MockResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// SetRelease configures the release detail endpoint for a release id.
// Pass an empty videoURI to omit the videos array, and a nil rating to
// omit the rating block.
func (m *MockMarketplace) SetRelease(id int, videoURI string, have, want int, rating *float64) {
	release := map[string]any{}
	if videoURI != "" {
		release["videos"] = []map[string]any{{"uri": videoURI}}
	}
	community := map[string]any{"have": have, "want": want}
	if rating != nil {
		community["rating"] = map[string]any{"average": *rating}
	}
	release["community"] = community

	body, _ := json.Marshal(release)
	m.SetResponse(fmt.Sprintf("/releases/%d", id), MockResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// SetPriceStats configures the marketplace stats endpoint for a
// release id. A nil price means nothing is for sale.
func (m *MockMarketplace) SetPriceStats(id int, price *float64) {
	stats := map[string]any{"num_for_sale": 0, "lowest_price": nil}
	if price != nil {
		stats["num_for_sale"] = 1
		stats["lowest_price"] = map[string]any{"currency": "USD", "value": *price}
	}

	body, _ := json.Marshal(stats)
	m.SetResponse(fmt.Sprintf("/marketplace/stats/%d", id), MockResponse{StatusCode: http.StatusOK, Body: string(body)})
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "You are making requests too quickly."}`,
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
	}
}

// Float returns a pointer to v, for optional response fields.
func Float(v float64) *float64 {
	return &v
}
