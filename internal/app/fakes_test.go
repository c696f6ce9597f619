package app_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"review_feed/internal/app"
	"review_feed/internal/domain"
)

// ---- feed ----

// scriptedFeed answers GetFeed from a queue of results. When gated, each call
// blocks until release() is called.
type scriptedFeed struct {
	mu      sync.Mutex
	results []feedResult
	last    feedResult
	gate    chan struct{}
	calls   atomic.Int32
}

type feedResult struct {
	feed domain.Feed
	err  error
}

func newFeed(n int) domain.Feed {
	items := make([]domain.RawReview, n)
	for i := range items {
		items[i] = domain.RawReview{
			FirstName: "User",
			LastName:  fmt.Sprint(i),
			Rating:    i%5 + 1,
			Text:      fmt.Sprintf("review %d", i),
			Created:   "1 March",
		}
	}
	return domain.Feed{Items: items, Total: n}
}

func alwaysFeed(f domain.Feed) *scriptedFeed {
	return &scriptedFeed{last: feedResult{feed: f}}
}

func (s *scriptedFeed) gated() *scriptedFeed {
	s.gate = make(chan struct{})
	return s
}

func (s *scriptedFeed) then(f domain.Feed, err error) *scriptedFeed {
	s.mu.Lock()
	s.results = append(s.results, feedResult{feed: f, err: err})
	s.mu.Unlock()
	return s
}

func (s *scriptedFeed) release() { s.gate <- struct{}{} }

func (s *scriptedFeed) GetFeed(ctx context.Context) (domain.Feed, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return domain.Feed{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) > 0 {
		r := s.results[0]
		s.results = s.results[1:]
		return r.feed, r.err
	}
	return s.last.feed, s.last.err
}

// ---- images ----

type fakeTask struct {
	url       string
	done      func(domain.Image, error)
	cancelled atomic.Bool
	finished  atomic.Bool
	ch        chan struct{}
}

func (t *fakeTask) Cancel()               { t.cancelled.Store(true) }
func (t *fakeTask) Done() <-chan struct{} { return t.ch }

// fakeImages records fetches; the test decides when and how each completes.
type fakeImages struct {
	loop *app.Loop
	mu   sync.Mutex
	reqs []*fakeTask
}

func (f *fakeImages) Fetch(_ context.Context, url string, done func(domain.Image, error)) domain.Task {
	t := &fakeTask{url: url, done: done, ch: make(chan struct{})}
	f.mu.Lock()
	f.reqs = append(f.reqs, t)
	f.mu.Unlock()
	return t
}

func (f *fakeImages) requests(url string) []*fakeTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeTask
	for _, t := range f.reqs {
		if t.url == url {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeImages) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

// complete delivers a result for the oldest unfinished request of url on the
// loop, the way the real cache does.
func (f *fakeImages) complete(url string, img domain.Image, err error) bool {
	for _, t := range f.requests(url) {
		if t.finished.CompareAndSwap(false, true) {
			close(t.ch)
			f.loop.Post(func() {
				if !t.cancelled.Load() {
					t.done(img, err)
				}
			})
			return true
		}
	}
	return false
}

// ---- glyphs ----

type fixedGlyphs struct{}

func (fixedGlyphs) Glyph(r int) domain.Glyph {
	return domain.Glyph{Text: fmt.Sprint(r), Size: domain.Size{W: 80, H: 16}}
}

// ---- harness ----

type harness struct {
	loop   *app.Loop
	list   *app.FeedList
	feed   *scriptedFeed
	images *fakeImages
}

func newHarness(t *testing.T, feed *scriptedFeed, limit int) *harness {
	t.Helper()
	loop := startLoop(t)
	images := &fakeImages{loop: loop}
	list := app.NewFeedList(loop, feed, images, fixedGlyphs{}, app.Options{Limit: limit, MaxLines: 3})
	t.Cleanup(list.Close)
	return &harness{loop: loop, list: list, feed: feed, images: images}
}

func (h *harness) snapshot(t *testing.T) app.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := h.list.Snapshot(ctx)
	require.NoError(t, err)
	return s
}

// waitFor polls the state until cond holds.
func (h *harness) waitFor(t *testing.T, cond func(app.State) bool) app.State {
	t.Helper()
	var last app.State
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s, err := h.list.Snapshot(ctx)
		if err != nil {
			return false
		}
		last = s
		return cond(s)
	}, 2*time.Second, 5*time.Millisecond, "state never reached")
	return last
}

func rowCount(n int) func(app.State) bool {
	return func(s app.State) bool { return len(s.Rows) == n && s.Phase != app.PhaseLoading }
}

func reviewAt(t *testing.T, s app.State, i int) domain.ReviewRow {
	t.Helper()
	r, ok := s.Rows[i].(domain.ReviewRow)
	require.True(t, ok, "row %d is %s", i, s.Rows[i].Kind())
	return r
}

func ptr[T any](v T) *T { return &v }
