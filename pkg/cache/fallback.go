package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/record"
)

// FallbackStore is a capacity-bounded degraded tier: a single
// multi-key map with its own (longer) TTL horizon.
//
// A write that would exceed MaxEntries evicts the single oldest entry
// by timestamp and retries once; if the retry still does not fit, the
// write is dropped silently. Writes are best-effort and never surface
// as request failures.
type FallbackStore struct {
	mu      sync.Mutex
	entries map[string]*Entry

	maxEntries int
	now        func() time.Time
	logger     zerolog.Logger
}

// DefaultFallbackCapacity bounds the fallback tier.
const DefaultFallbackCapacity = 50

// NewFallbackStore creates a bounded fallback store. maxEntries <= 0
// selects the default capacity.
func NewFallbackStore(maxEntries int) *FallbackStore {
	if maxEntries <= 0 {
		maxEntries = DefaultFallbackCapacity
	}
	return &FallbackStore{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		now:        time.Now,
		logger:     logging.NewLogger("fallback-cache"),
	}
}

// Get implements Store.
func (s *FallbackStore) Get(_ context.Context, style string) (*Entry, error) {
	s.mu.Lock()
	entry, ok := s.entries[style]
	s.mu.Unlock()

	if !ok {
		cacheMisses.WithLabelValues("fallback").Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.WithLabelValues("fallback", freshnessLabel(entry)).Inc()
	return entry, nil
}

// Put implements Store. It never returns an error: capacity pressure
// is resolved by evicting the oldest entry, and a write that still
// does not fit is dropped.
func (s *FallbackStore) Put(_ context.Context, style string, records []record.Record) error {
	entry := &Entry{
		Style:    style,
		CachedAt: s.now(),
		Records:  records,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if s.fits(style) {
			s.entries[style] = entry
			return nil
		}
		s.evictOldest()
	}

	cacheDroppedWrites.Inc()
	s.logger.Warn().Str("style", style).Msg("Dropping cache write, capacity eviction did not free space")
	return nil
}

// SetClock replaces the store's clock (for testing eviction order).
func (s *FallbackStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Len returns the number of cached styles.
func (s *FallbackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// fits reports whether a write for style fits within capacity.
// Overwrites of an existing style always fit.
func (s *FallbackStore) fits(style string) bool {
	if _, exists := s.entries[style]; exists {
		return true
	}
	return len(s.entries) < s.maxEntries
}

// evictOldest removes the single entry with the oldest timestamp.
func (s *FallbackStore) evictOldest() {
	var (
		oldestStyle string
		oldestAt    time.Time
	)
	for style, entry := range s.entries {
		if oldestStyle == "" || entry.CachedAt.Before(oldestAt) {
			oldestStyle = style
			oldestAt = entry.CachedAt
		}
	}
	if oldestStyle == "" {
		return
	}

	delete(s.entries, oldestStyle)
	cacheEvictions.Inc()
	s.logger.Debug().
		Str("style", oldestStyle).
		Time("cached_at", oldestAt).
		Msg("Evicted oldest fallback entry")
}
