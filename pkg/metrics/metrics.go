// Package metrics provides centralized Prometheus metrics registry for vinylscout.
// All metrics are defined in their respective packages (client, cache, enrich,
// pipeline) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the service.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Upstream Request Metrics (pkg/client):
//   - vinylscout_upstream_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - vinylscout_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - vinylscout_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//   - vinylscout_upstream_retries_total (Counter): Retry attempts after rate-limited or failed requests
//   - vinylscout_upstream_retry_backoff_seconds (Histogram): Backoff duration before retry attempts
//   - vinylscout_upstream_retry_exhausted_total (Counter): Requests that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - vinylscout_cache_hits_total{tier, freshness} (Counter): Cache hits by tier and fresh/stale
//   - vinylscout_cache_misses_total{tier} (Counter): Cache misses by tier
//   - vinylscout_cache_evictions_total (Counter): Fallback-tier capacity evictions
//   - vinylscout_cache_dropped_writes_total (Counter): Writes dropped after eviction retry
//   - vinylscout_cache_errors_total{operation} (Counter): Cache operation errors
//
// Enrichment Metrics (pkg/enrich):
//   - vinylscout_enrich_calls_total{call, outcome} (Counter): Detail/price calls by ok/degraded outcome
//   - vinylscout_enrich_batch_duration_seconds (Histogram): Full batch enrichment duration
//
// Pipeline Metrics (pkg/pipeline):
//   - vinylscout_pipeline_runs_total{outcome} (Counter): Runs by outcome (cache_hit, complete, basic, stale_fallback, error)
//   - vinylscout_pipeline_duration_seconds (Histogram): Full pipeline run duration
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(vinylscout_cache_hits_total[5m])) /
//   (sum(rate(vinylscout_cache_hits_total[5m])) + sum(rate(vinylscout_cache_misses_total[5m])))
//
//   # Degraded Enrichment Share
//   sum(rate(vinylscout_enrich_calls_total{outcome="degraded"}[5m])) /
//   sum(rate(vinylscout_enrich_calls_total[5m]))
//
//   # Stale Fallback Serves
//   rate(vinylscout_pipeline_runs_total{outcome="stale_fallback"}[5m])
//
//   # P95 Pipeline Latency
//   histogram_quantile(0.95, rate(vinylscout_pipeline_duration_seconds_bucket[5m]))
