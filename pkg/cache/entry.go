package cache

import (
	"time"

	"github.com/vinylscout/vinylscout/pkg/record"
)

// Default TTLs for the two cache tiers.
const (
	// ServerTTL is the freshness window for the authoritative tier.
	ServerTTL = 24 * time.Hour

	// FallbackTTL is the freshness window for the bounded fallback
	// tier, and the horizon after which Redis entries expire outright.
	FallbackTTL = 7 * 24 * time.Hour
)

// Entry is a timestamped record set for one style.
type Entry struct {
	// Style is the cache key, echoed for self-describing payloads.
	Style string `json:"style"`

	// CachedAt is when the records were written.
	CachedAt time.Time `json:"cached_at"`

	// Records is the ordered enriched record set.
	Records []record.Record `json:"records"`
}

// Fresh reports whether the entry is within its TTL. Stale entries
// remain readable as degraded fallback values.
func (e *Entry) Fresh(ttl time.Duration) bool {
	return time.Since(e.CachedAt) < ttl
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
