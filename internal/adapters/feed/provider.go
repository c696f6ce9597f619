package feed

import (
	"strings"
	"time"

	"review_feed/internal/domain"
)

// Open picks a provider for source: an http(s) URL, a file path, or the
// built-in fixture when source is empty.
func Open(source, apiKey string, rps int, minLatency, maxLatency time.Duration) (domain.FeedProvider, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return NewHTTPProvider(source, rps, WithAPIKey(apiKey))
	}
	return NewFileProvider(source, minLatency, maxLatency), nil
}
