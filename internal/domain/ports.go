package domain

import "context"

// FeedProvider returns the entire review set in one call; paging is client side.
type FeedProvider interface {
	GetFeed(ctx context.Context) (Feed, error)
}

// ResponseStore is the durable tier of the image cache: raw response bodies by URL.
// Put keeps the first body written for a URL.
type ResponseStore interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

// TextMeasurer is the text-measurement boundary owned by the rendering layer.
type TextMeasurer interface {
	Measure(t StyledText, maxWidth float64) Size
	LineHeight(style TextStyle) float64
}

// RatingRenderer maps a 1..5 rating onto its glyph.
type RatingRenderer interface {
	Glyph(rating int) Glyph
}

// Executor runs functions on the single-writer context, in submission order.
type Executor interface {
	Post(fn func())
}

// Task is a handle on one in-flight image fetch.
type Task interface {
	Cancel()
	Done() <-chan struct{}
}

// ImageFetcher resolves an image by URL. done runs on the fetcher's Executor,
// exactly once, unless the task was cancelled first.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string, done func(Image, error)) Task
}
