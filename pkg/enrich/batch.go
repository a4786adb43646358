package enrich

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/ratelimit"
	"github.com/vinylscout/vinylscout/pkg/record"
)

var (
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vinylscout_enrich_batch_duration_seconds",
		Help:    "Duration of full batch enrichment runs",
		Buckets: []float64{1, 2, 5, 10, 30, 60},
	})
)

// Coordinator drives the enricher over a sample under a pacing policy.
//
// The policy exists solely to stay under the upstream's implicit rate
// limit; the coordinator never retries (that is the fetcher's job),
// never reorders, and never drops entries — a record whose enrichment
// calls all failed comes back unchanged from its basic form.
type Coordinator struct {
	enricher *Enricher
	policy   ratelimit.Policy
	logger   zerolog.Logger
}

// NewCoordinator creates a batch coordinator. A nil policy selects the
// default chunked-parallel pacing.
func NewCoordinator(enricher *Enricher, policy ratelimit.Policy) *Coordinator {
	if policy == nil {
		policy = ratelimit.DefaultChunkedParallel()
	}
	return &Coordinator{
		enricher: enricher,
		policy:   policy,
		logger:   logging.NewLogger("batch"),
	}
}

// Run enriches every record in the sample, preserving input order in
// the output.
func (c *Coordinator) Run(ctx context.Context, sample []record.Record) []record.Record {
	start := time.Now()
	defer func() {
		batchDuration.Observe(time.Since(start).Seconds())
	}()

	enriched := make([]record.Record, len(sample))
	c.policy.Pace(ctx, len(sample), func(i int) {
		enriched[i] = c.enricher.Enrich(ctx, sample[i])
	})

	c.logger.Info().
		Int("records", len(enriched)).
		Dur("duration", time.Since(start)).
		Msg("Batch enrichment complete")

	return enriched
}
