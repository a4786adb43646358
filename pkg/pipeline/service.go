// Package pipeline orchestrates the sample -> enrich -> cache flow and
// exposes it over HTTP.
package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vinylscout/vinylscout/pkg/cache"
	"github.com/vinylscout/vinylscout/pkg/enrich"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/record"
	"github.com/vinylscout/vinylscout/pkg/sampler"
)

// Prometheus metrics for pipeline runs.
var (
	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vinylscout_pipeline_runs_total",
		Help: "Total pipeline runs by outcome",
	}, []string{"outcome"}) // "cache_hit", "complete", "basic", "stale_fallback", "error"

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vinylscout_pipeline_duration_seconds",
		Help:    "Duration of full pipeline runs",
		Buckets: []float64{0.01, 0.1, 1, 5, 15, 30, 60},
	})
)

// sampleHandleTTL bounds how long a basic-phase sample stays reusable
// by the complete phase.
const sampleHandleTTL = 5 * time.Minute

// Result is a pipeline response.
type Result struct {
	// Records is the ordered record set.
	Records []record.Record

	// IsComplete is false only for basic-phase responses whose
	// enrichment has not run yet.
	IsComplete bool

	// SampleHandle is set on basic-phase responses; passing it to the
	// complete phase guarantees the same sample is enriched.
	SampleHandle string

	// Stale marks records served past their TTL after a pipeline
	// failure. Degraded reads are tracked, never silent.
	Stale bool
}

// Config holds pipeline tuning knobs.
type Config struct {
	// TargetSize bounds the per-style sample.
	TargetSize int

	// TTL is the freshness window of the authoritative store.
	TTL time.Duration
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		TargetSize: sampler.DefaultTargetSize,
		TTL:        cache.ServerTTL,
	}
}

// Service runs the record pipeline for styles.
//
// The authoritative store decides freshness; the optional fallback
// store is consulted (and written) as a degraded last resort when the
// pipeline itself fails. Concurrent requests for the same stale style
// share one pipeline run via singleflight.
type Service struct {
	sampler  *sampler.Sampler
	batch    *enrich.Coordinator
	store    cache.Store
	fallback cache.Store
	config   Config
	logger   zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	handles map[string]sampleHandle
}

// sampleHandle keeps a basic-phase sample alive for the complete phase.
type sampleHandle struct {
	style     string
	records   []record.Record
	expiresAt time.Time
}

// New creates a pipeline service. fallback may be nil to disable the
// degraded tier.
func New(s *sampler.Sampler, batch *enrich.Coordinator, store cache.Store, fallback cache.Store, cfg Config) *Service {
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = sampler.DefaultTargetSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = cache.ServerTTL
	}
	return &Service{
		sampler:  s,
		batch:    batch,
		store:    store,
		fallback: fallback,
		config:   cfg,
		logger:   logging.NewLogger("pipeline"),
		handles:  make(map[string]sampleHandle),
	}
}

// Records runs the full pipeline for a style: fresh cache hit, or
// sample + enrich + cache write. On failure it falls back to a stale
// entry when one exists.
func (s *Service) Records(ctx context.Context, style string) (*Result, error) {
	if entry, err := s.store.Get(ctx, style); err == nil && entry.Fresh(s.config.TTL) {
		pipelineRunsTotal.WithLabelValues("cache_hit").Inc()
		s.logger.Debug().Str("style", style).Dur("age", entry.Age()).Msg("Serving fresh cache entry")
		return &Result{Records: entry.Records, IsComplete: true}, nil
	}

	// Stale or missing: run the pipeline once per style, however many
	// requests arrive while it is in flight.
	v, err, _ := s.group.Do(style, func() (any, error) {
		return s.run(ctx, style)
	})
	if err != nil {
		if fallback := s.staleFallback(ctx, style, err); fallback != nil {
			return fallback, nil
		}
		pipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	return v.(*Result), nil
}

// RecordsBasic runs only the sampling stage and returns the basic
// records immediately, with a handle the complete phase can redeem.
func (s *Service) RecordsBasic(ctx context.Context, style string) (*Result, error) {
	if entry, err := s.store.Get(ctx, style); err == nil && entry.Fresh(s.config.TTL) {
		pipelineRunsTotal.WithLabelValues("cache_hit").Inc()
		return &Result{Records: entry.Records, IsComplete: true}, nil
	}

	sample, err := s.sampler.Sample(ctx, style, s.config.TargetSize)
	if err != nil {
		pipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	handle := s.putHandle(style, sample)
	pipelineRunsTotal.WithLabelValues("basic").Inc()
	s.logger.Info().
		Str("style", style).
		Int("records", len(sample)).
		Msg("Served basic phase, enrichment deferred")

	return &Result{Records: sample, IsComplete: false, SampleHandle: handle}, nil
}

// RecordsComplete finishes a phased request. When the handle is still
// alive it enriches exactly the sample the caller was shown; an
// expired or unknown handle falls back to a full pipeline run.
func (s *Service) RecordsComplete(ctx context.Context, style, handle string) (*Result, error) {
	sample, ok := s.takeHandle(style, handle)
	if !ok {
		s.logger.Debug().Str("style", style).Msg("Sample handle expired, re-sampling")
		return s.Records(ctx, style)
	}

	enriched := s.batch.Run(ctx, sample)
	s.writeCache(ctx, style, enriched)

	pipelineRunsTotal.WithLabelValues("complete").Inc()
	return &Result{Records: enriched, IsComplete: true}, nil
}

// run executes sample -> enrich -> cache write.
func (s *Service) run(ctx context.Context, style string) (*Result, error) {
	start := time.Now()
	defer func() {
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	sample, err := s.sampler.Sample(ctx, style, s.config.TargetSize)
	if err != nil {
		return nil, err
	}

	enriched := s.batch.Run(ctx, sample)
	s.writeCache(ctx, style, enriched)

	pipelineRunsTotal.WithLabelValues("complete").Inc()
	s.logger.Info().
		Str("style", style).
		Int("records", len(enriched)).
		Dur("duration", time.Since(start)).
		Msg("Pipeline run complete")

	return &Result{Records: enriched, IsComplete: true}, nil
}

// writeCache stores the enriched set in both tiers. Cache writes are
// best-effort and never fail the request.
func (s *Service) writeCache(ctx context.Context, style string, records []record.Record) {
	if err := s.store.Put(ctx, style, records); err != nil {
		s.logger.Warn().Err(err).Str("style", style).Msg("Cache write failed")
	}
	if s.fallback != nil {
		if err := s.fallback.Put(ctx, style, records); err != nil {
			s.logger.Warn().Err(err).Str("style", style).Msg("Fallback cache write failed")
		}
	}
}

// staleFallback serves a stale entry after a pipeline failure, if any
// tier has one. NoResults is a terminal contract on its own and is
// never masked by stale data.
func (s *Service) staleFallback(ctx context.Context, style string, cause error) *Result {
	if errors.Is(cause, sampler.ErrNoResults) {
		return nil
	}

	for _, store := range []cache.Store{s.store, s.fallback} {
		if store == nil {
			continue
		}
		entry, err := store.Get(ctx, style)
		if err != nil {
			continue
		}
		pipelineRunsTotal.WithLabelValues("stale_fallback").Inc()
		s.logger.Warn().
			Err(cause).
			Str("style", style).
			Dur("age", entry.Age()).
			Msg("Pipeline failed, serving stale cache entry")
		return &Result{Records: entry.Records, IsComplete: true, Stale: true}
	}
	return nil
}

// putHandle stores a basic-phase sample and returns its token.
func (s *Service) putHandle(style string, records []record.Record) string {
	buf := make([]byte, 16)
	rand.Read(buf)
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneHandlesLocked()
	s.handles[token] = sampleHandle{
		style:     style,
		records:   records,
		expiresAt: time.Now().Add(sampleHandleTTL),
	}
	return token
}

// takeHandle redeems a handle. A handle bound to a different style or
// past its expiry is a miss.
func (s *Service) takeHandle(style, token string) ([]record.Record, bool) {
	if token == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.handles[token]
	if !ok {
		return nil, false
	}
	delete(s.handles, token)

	if handle.style != style || time.Now().After(handle.expiresAt) {
		return nil, false
	}
	return handle.records, true
}

// pruneHandlesLocked drops expired handles. Caller holds s.mu.
func (s *Service) pruneHandlesLocked() {
	now := time.Now()
	for token, handle := range s.handles {
		if now.After(handle.expiresAt) {
			delete(s.handles, token)
		}
	}
}
