// Package marketplace provides typed access to the upstream catalog
// API endpoints the pipeline consumes: database search, release
// detail, and marketplace price statistics.
//
// Only the fields the pipeline reads are modeled; the upstream schema
// is much larger.
package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/vinylscout/vinylscout/pkg/client"
	"github.com/vinylscout/vinylscout/pkg/logging"
)

// releaseURLTemplate derives the public source URL from a release id.
const releaseURLTemplate = "https://www.discogs.com/release/%d"

// Community holds the have/want counts and the optional rating block.
// Rating is a pointer so a missing rating stays distinguishable from
// a rating of zero.
type Community struct {
	Have   int     `json:"have"`
	Want   int     `json:"want"`
	Rating *Rating `json:"rating,omitempty"`
}

// Rating is the community rating block.
type Rating struct {
	Average float64 `json:"average"`
}

// SearchResult is one row of a database search response.
type SearchResult struct {
	ID         int        `json:"id"`
	Title      string     `json:"title"` // "Artist - Title" composite
	Year       int        `json:"year"`
	CoverImage string     `json:"cover_image"`
	Community  *Community `json:"community,omitempty"`
}

// SearchResponse is the database search payload.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Video is a single release video reference.
type Video struct {
	URI string `json:"uri"`
}

// Release is the release detail payload.
type Release struct {
	Videos    []Video    `json:"videos,omitempty"`
	Community *Community `json:"community,omitempty"`
}

// Price is a currency-tagged amount.
type Price struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// PriceStats is the marketplace statistics payload for a release.
// LowestPrice is null when nothing is for sale.
type PriceStats struct {
	LowestPrice *Price `json:"lowest_price"`
	NumForSale  int    `json:"num_for_sale"`
}

// API wraps the fetcher with the three upstream endpoints.
type API struct {
	fetcher *client.Fetcher
	logger  zerolog.Logger
}

// New creates a marketplace API over the given fetcher.
func New(fetcher *client.Fetcher) *API {
	return &API{
		fetcher: fetcher,
		logger:  logging.NewLogger("marketplace"),
	}
}

// Search queries the database search endpoint for vinyl releases in a
// style, requesting an oversized page so the sampler can find enough
// distinct artists in one round trip.
func (a *API) Search(ctx context.Context, style string, perPage int) (*SearchResponse, error) {
	query := url.Values{
		"style":    {style},
		"format":   {"Vinyl"},
		"type":     {"release"},
		"per_page": {strconv.Itoa(perPage)},
	}

	var resp SearchResponse
	if err := a.fetcher.GetJSON(ctx, "/database/search", query, &resp); err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("style", style).
		Int("results", len(resp.Results)).
		Msg("Search complete")
	return &resp, nil
}

// Release fetches the release detail payload for a release id.
func (a *API) Release(ctx context.Context, id int) (*Release, error) {
	var release Release
	if err := a.fetcher.GetJSON(ctx, fmt.Sprintf("/releases/%d", id), nil, &release); err != nil {
		return nil, err
	}
	return &release, nil
}

// PriceStats fetches the marketplace statistics for a release id.
// This is the stats endpoint variant: the lowest price arrives
// pre-computed as lowest_price rather than as a sorted listings array.
func (a *API) PriceStats(ctx context.Context, id int) (*PriceStats, error) {
	var stats PriceStats
	if err := a.fetcher.GetJSON(ctx, fmt.Sprintf("/marketplace/stats/%d", id), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ReleaseURL derives the public source URL for a release id.
func ReleaseURL(id int) string {
	return fmt.Sprintf(releaseURLTemplate, id)
}
