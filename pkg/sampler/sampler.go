// Package sampler selects a bounded, artist-deduplicated sample of
// catalog records for a style from one upstream search page.
package sampler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/logging"
	"github.com/vinylscout/vinylscout/pkg/marketplace"
	"github.com/vinylscout/vinylscout/pkg/record"
)

// ErrNoResults is returned when the upstream search finds nothing at
// all for a style. A short sample (fewer distinct artists than the
// target) is not an error.
var ErrNoResults = errors.New("no results found")

// DefaultTargetSize bounds the sample.
const DefaultTargetSize = 20

// pageFactor oversizes the single search page relative to the target
// so one round trip usually yields enough distinct artists. The
// sampler never paginates further; a short page means a short sample.
const pageFactor = 5

// Sampler samples basic records for a style.
type Sampler struct {
	api    *marketplace.API
	logger zerolog.Logger
}

// New creates a sampler over the marketplace API.
func New(api *marketplace.API) *Sampler {
	return &Sampler{
		api:    api,
		logger: logging.NewLogger("sampler"),
	}
}

// Sample returns up to targetSize records with pairwise-distinct
// artists, in upstream order (first occurrence of each artist wins).
//
// Search failures propagate to the caller; an empty upstream result
// set yields ErrNoResults.
func (s *Sampler) Sample(ctx context.Context, style string, targetSize int) ([]record.Record, error) {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}

	resp, err := s.api.Search(ctx, style, targetSize*pageFactor)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	seen := make(map[string]bool, targetSize)
	sample := make([]record.Record, 0, targetSize)

	for _, result := range resp.Results {
		artist, title := record.SplitComposite(result.Title)
		key := record.NormalizeArtist(artist)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		rec := record.Record{
			ID:        result.ID,
			Artist:    artist,
			Title:     title,
			Style:     style,
			Year:      result.Year,
			Image:     result.CoverImage,
			SourceURL: marketplace.ReleaseURL(result.ID),
		}
		if result.Community != nil {
			rec.Haves = result.Community.Have
			rec.Wants = result.Community.Want
		}

		sample = append(sample, rec)
		if len(sample) == targetSize {
			break
		}
	}

	s.logger.Debug().
		Str("style", style).
		Int("raw_results", len(resp.Results)).
		Int("sample_size", len(sample)).
		Msg("Sample selected")

	return sample, nil
}
