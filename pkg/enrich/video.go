package enrich

import "regexp"

// youtubeIDPattern extracts the video identifier from the two YouTube
// URL shapes the upstream emits in release video references.
var youtubeIDPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\s]+)`)

// ExtractYoutubeID returns the video identifier embedded in uri.
// The second return value is false when the URI is not a recognizable
// YouTube link.
func ExtractYoutubeID(uri string) (string, bool) {
	match := youtubeIDPattern.FindStringSubmatch(uri)
	if match == nil || match[1] == "" {
		return "", false
	}
	return match[1], true
}
