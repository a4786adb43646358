// Package enrich completes sampled records with release detail and
// current price data, degrading per field instead of failing.
package enrich

import (
	"context"
	"math"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/marketplace"
	"github.com/vinylscout/vinylscout/pkg/record"
)

// Prometheus metrics for enrichment operations.
var (
	enrichCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vinylscout_enrich_calls_total",
		Help: "Total per-record enrichment calls by kind and outcome",
	}, []string{"call", "outcome"})
)

// Enricher fetches extended detail and price data for single records.
//
// Enrich never fails: every upstream failure degrades to "field
// absent, keep the basic value."
type Enricher struct {
	api    *marketplace.API
	logger zerolog.Logger
}

// New creates an enricher over the marketplace API.
func New(api *marketplace.API) *Enricher {
	return &Enricher{
		api:    api,
		logger: logging.NewLogger("enricher"),
	}
}

// Enrich fetches the release detail and price stats for rec
// concurrently and merges them into a completed record. The two calls
// fail independently; neither blocks the other.
func (e *Enricher) Enrich(ctx context.Context, rec record.Record) record.Record {
	var (
		wg      sync.WaitGroup
		release *marketplace.Release
		stats   *marketplace.PriceStats
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		detail, err := e.api.Release(ctx, rec.ID)
		if err != nil {
			enrichCallsTotal.WithLabelValues("detail", "degraded").Inc()
			e.logger.Warn().
				Err(err).
				Int("release_id", rec.ID).
				Msg("Detail fetch failed, keeping basic fields")
			return
		}
		enrichCallsTotal.WithLabelValues("detail", "ok").Inc()
		release = detail
	}()
	go func() {
		defer wg.Done()
		prices, err := e.api.PriceStats(ctx, rec.ID)
		if err != nil {
			enrichCallsTotal.WithLabelValues("price", "degraded").Inc()
			e.logger.Warn().
				Err(err).
				Int("release_id", rec.ID).
				Msg("Price fetch failed, leaving price absent")
			return
		}
		enrichCallsTotal.WithLabelValues("price", "ok").Inc()
		stats = prices
	}()
	wg.Wait()

	if release != nil {
		mergeDetail(&rec, release)
	}
	if stats != nil && stats.LowestPrice != nil {
		price := stats.LowestPrice.Value
		rec.LowestPrice = &price
	}

	return rec
}

// mergeDetail applies the release detail payload onto the record.
func mergeDetail(rec *record.Record, release *marketplace.Release) {
	for _, video := range release.Videos {
		if id, ok := ExtractYoutubeID(video.URI); ok {
			rec.YoutubeID = &id
			break
		}
	}

	if release.Community != nil {
		rec.Haves = release.Community.Have
		rec.Wants = release.Community.Want

		// A rating of exactly 0 is a real value; only a missing or
		// non-finite average stays absent.
		if r := release.Community.Rating; r != nil && isFinite(r.Average) {
			avg := r.Average
			rec.CommunityRating = &avg
		}
	}
}

// isFinite reports whether f is a usable rating value.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
