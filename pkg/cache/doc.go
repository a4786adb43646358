// Package cache provides the TTL-based result store for enriched
// record sets, keyed by style.
//
// Freshness is time-based: an entry written more than the tier's TTL
// ago is stale but stays readable, so the pipeline can serve degraded
// data instead of failing. Entries are only ever replaced whole per
// key; concurrent writes to the same style are last-write-wins, which
// is acceptable because every write is an individually valid
// enrichment of that style.
//
// Three Store implementations exist:
//
//   - MemoryStore: process-memory map, the default server tier.
//     Lost on restart by design.
//   - RedisStore: Redis-backed server tier for deployments where the
//     cache should survive process restarts. Redis expiry is set to
//     the stale horizon, not the freshness TTL, so stale reads remain
//     possible.
//   - FallbackStore: capacity-bounded degraded tier. On a write that
//     exceeds capacity it evicts the single oldest entry and retries
//     once; a second failure drops the write silently. Writes are
//     always best-effort.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore()
//
//	if err := store.Put(ctx, "Techno", records); err != nil {
//		// best-effort, log and continue
//	}
//
//	entry, err := store.Get(ctx, "Techno")
//	if err == cache.ErrCacheMiss {
//		// run the pipeline
//	} else if !entry.Fresh(24 * time.Hour) {
//		// stale: usable as degraded fallback only
//	}
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - vinylscout_cache_hits_total{tier,freshness} - hits by tier
//   - vinylscout_cache_misses_total{tier} - misses by tier
//   - vinylscout_cache_evictions_total - fallback-tier evictions
//   - vinylscout_cache_errors_total{operation} - store operation errors
package cache
