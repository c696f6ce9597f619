package feed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"review_feed/internal/adapters/observability"
	"review_feed/internal/domain"
)

//go:embed fixtures/reviews.json
var fixture []byte

const (
	DefaultMinLatency = 100 * time.Millisecond
	DefaultMaxLatency = time.Second
)

// FileProvider serves the feed from a JSON document on disk, or from the
// built-in fixture when no path is set. Every call sleeps a random latency
// to behave like a network source.
type FileProvider struct {
	path       string
	minLatency time.Duration
	maxLatency time.Duration
}

func NewFileProvider(path string, minLatency, maxLatency time.Duration) *FileProvider {
	if minLatency < 0 {
		minLatency = 0
	}
	if maxLatency < minLatency {
		maxLatency = minLatency
	}
	return &FileProvider{path: path, minLatency: minLatency, maxLatency: maxLatency}
}

func (p *FileProvider) GetFeed(ctx context.Context) (domain.Feed, error) {
	if !sleepCtx(ctx, p.latency()) {
		observability.ObserveFeedLoad("unavailable")
		return domain.Feed{}, domain.SourceUnavailable(ctx.Err())
	}

	data := fixture
	if p.path != "" {
		b, err := os.ReadFile(p.path)
		if err != nil {
			observability.ObserveFeedLoad("unavailable")
			return domain.Feed{}, domain.SourceUnavailable(err)
		}
		data = b
	}

	f, err := Decode(data)
	if err != nil {
		observability.ObserveFeedLoad("decode_failure")
		return domain.Feed{}, err
	}
	observability.ObserveFeedLoad("ok")
	return f, nil
}

func (p *FileProvider) latency() time.Duration {
	span := p.maxLatency - p.minLatency
	if span <= 0 {
		return p.minLatency
	}
	return p.minLatency + rand.N(span+1)
}

// Decode parses a feed document. Any failure is a DecodeFailure.
func Decode(data []byte) (domain.Feed, error) {
	var f domain.Feed
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Feed{}, domain.DecodeFailure(fmt.Errorf("decode feed: %w", err))
	}
	if f.Items == nil {
		return domain.Feed{}, domain.DecodeFailure(fmt.Errorf("decode feed: missing items"))
	}
	if f.Total < 0 {
		return domain.Feed{}, domain.DecodeFailure(fmt.Errorf("decode feed: negative count %d", f.Total))
	}
	return f, nil
}

// Fixture returns a copy of the built-in feed document.
func Fixture() []byte { return append([]byte(nil), fixture...) }

var _ domain.FeedProvider = (*FileProvider)(nil)
