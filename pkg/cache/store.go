package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vinylscout/vinylscout/pkg/record"
)

// ErrCacheMiss indicates the requested style was not found in the store.
var ErrCacheMiss = errors.New("cache miss")

// Store is the keyed result cache the pipeline reads and writes.
// Implementations replace entries whole per key; they never merge.
type Store interface {
	// Get retrieves the entry for a style, fresh or stale.
	// Returns ErrCacheMiss if the style has never been written.
	Get(ctx context.Context, style string) (*Entry, error)

	// Put overwrites the entry for a style with a fresh timestamp.
	Put(ctx context.Context, style string, records []record.Record) error
}

// MemoryStore is the process-memory server tier. Entries live until
// overwritten; staleness is the caller's concern via Entry.Fresh.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	// now is replaceable for TTL tests.
	now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, style string) (*Entry, error) {
	s.mu.RLock()
	entry, ok := s.entries[style]
	s.mu.RUnlock()

	if !ok {
		cacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	cacheHits.WithLabelValues("memory", freshnessLabel(entry)).Inc()
	return entry, nil
}

// Put implements Store.
func (s *MemoryStore) Put(_ context.Context, style string, records []record.Record) error {
	entry := &Entry{
		Style:    style,
		CachedAt: s.now(),
		Records:  records,
	}

	s.mu.Lock()
	s.entries[style] = entry
	s.mu.Unlock()
	return nil
}

// SetClock replaces the store's clock (for testing passive expiry).
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Len returns the number of cached styles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// freshnessLabel maps an entry to the hit metric's freshness label,
// using the server TTL as the reference window.
func freshnessLabel(entry *Entry) string {
	if entry.Fresh(ServerTTL) {
		return "fresh"
	}
	return "stale"
}
