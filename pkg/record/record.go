// Package record defines the catalog record model shared by the
// sampler, the enricher, and the cache.
package record

import "strings"

// Record is a single catalog entry for a style. A freshly sampled
// record carries only the search-derived fields; enrichment fills in
// YoutubeID, LowestPrice and CommunityRating and may overwrite
// Haves/Wants with detail-call values.
//
// The enrichment fields are pointers so that "absent" and "zero" stay
// distinguishable: a community rating of exactly 0 is a real value,
// not a missing one.
type Record struct {
	// ID is the upstream release identifier. It is stable across
	// the basic -> enriched transformation.
	ID int `json:"id"`

	// Artist is derived from the upstream "Artist - Title" composite.
	Artist string `json:"artist"`

	// Title is the remainder of the composite field.
	Title string `json:"title"`

	// Style echoes the query category verbatim.
	Style string `json:"style"`

	// Year is the release year, 0 if the upstream omits it.
	Year int `json:"year"`

	// Image is the cover image URL, empty if absent.
	Image string `json:"image,omitempty"`

	// SourceURL is derived deterministically from ID.
	SourceURL string `json:"sourceUrl"`

	// YoutubeID is the first video identifier extracted from the
	// release detail payload, nil if no video matched.
	YoutubeID *string `json:"youtubeId,omitempty"`

	// LowestPrice is the cheapest current listing price, nil if the
	// release has no listings or the price call failed.
	LowestPrice *float64 `json:"lowestPrice,omitempty"`

	// CommunityRating is the upstream average rating, nil unless the
	// upstream provided a finite numeric value.
	CommunityRating *float64 `json:"communityRating,omitempty"`

	// Haves and Wants are community counts, best-effort from the
	// search payload and overwritten by detail-call values when
	// available. Default 0.
	Haves int `json:"haves"`
	Wants int `json:"wants"`
}

// SplitComposite splits an upstream "Artist - Title" composite field on
// the first " - " separator and trims both sides. When no separator is
// present the whole field becomes the title and the artist is the
// trimmed field itself, so dedup still has a usable key.
func SplitComposite(composite string) (artist, title string) {
	if idx := strings.Index(composite, " - "); idx >= 0 {
		return strings.TrimSpace(composite[:idx]), strings.TrimSpace(composite[idx+3:])
	}
	trimmed := strings.TrimSpace(composite)
	return trimmed, trimmed
}

// NormalizeArtist returns the dedup key for an artist name.
// Two records with the same normalized artist are duplicates.
func NormalizeArtist(artist string) string {
	return strings.TrimSpace(artist)
}
