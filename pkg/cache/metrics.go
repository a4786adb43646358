package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks cache hits by tier and freshness.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"tier", "freshness"},
	)

	// cacheMisses tracks cache misses by tier.
	cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"tier"},
	)

	// cacheEvictions tracks capacity evictions in the fallback tier.
	cacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinylscout_cache_evictions_total",
			Help: "Total number of fallback-tier capacity evictions",
		},
	)

	// cacheDroppedWrites tracks silently dropped best-effort writes.
	cacheDroppedWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vinylscout_cache_dropped_writes_total",
			Help: "Total number of cache writes dropped after eviction retry",
		},
	)

	// cacheErrors tracks store operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vinylscout_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put"
	)
)
