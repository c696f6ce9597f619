package app

import (
	"context"

	"github.com/rs/zerolog"

	"review_feed/internal/domain"
)

const (
	DefaultPageLimit = 20
	DefaultMaxLines  = 3
)

// Phase is the coarse state of the pagination machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseExhausted Phase = "exhausted"
)

// State is an immutable snapshot handed to listeners.
type State struct {
	Rows         []domain.Row
	Offset       int
	Limit        int
	ShouldLoad   bool
	IsRefreshing bool
	Phase        Phase
}

// Review returns the review row with the given id.
func (s State) Review(id domain.RowID) (domain.ReviewRow, bool) {
	for _, r := range s.Rows {
		if rr, ok := r.(domain.ReviewRow); ok && rr.ID == id {
			return rr, true
		}
	}
	return domain.ReviewRow{}, false
}

// ReviewCount is the number of review rows, excluding the total row.
func (s State) ReviewCount() int {
	n := 0
	for _, r := range s.Rows {
		if r.Kind() == domain.KindReview {
			n++
		}
	}
	return n
}

// PhotoSelection is what the photo viewer needs after a tap.
type PhotoSelection struct {
	RowID  domain.RowID
	Photos []domain.Image
	Index  int
}

type Options struct {
	Limit int
	// MaxLines is the initial truncation limit of every row; 0 disables
	// truncation and a negative value selects DefaultMaxLines.
	MaxLines int
	Logger   zerolog.Logger
}

// FeedList owns the ordered display list. Every exported method is safe to
// call from any goroutine; the work itself happens on the Loop.
type FeedList struct {
	loop   *Loop
	feed   domain.FeedProvider
	images domain.ImageFetcher
	glyphs domain.RatingRenderer
	log    zerolog.Logger

	limit    int
	maxLines int

	ctx    context.Context
	cancel context.CancelFunc

	// loop-confined below
	rows       []domain.Row
	index      map[domain.RowID]int
	fetches    map[domain.RowID]*rowFetches
	offset     int
	shouldLoad bool
	loading    bool
	exhausted  bool
	refreshing bool
	generation uint64

	stateListeners   []func(State)
	refreshListeners []func()
	photoListeners   []func(PhotoSelection)
}

// rowFetches tracks the image work attached to one row.
type rowFetches struct {
	avatar     domain.Task
	avatarGen  uint64
	avatarDone bool
	photos     []domain.Task
	photosDone bool
	batch      uint64
	hidden     bool
}

func NewFeedList(loop *Loop, feed domain.FeedProvider, images domain.ImageFetcher, glyphs domain.RatingRenderer, opts Options) *FeedList {
	if opts.Limit <= 0 {
		opts.Limit = DefaultPageLimit
	}
	if opts.MaxLines < 0 {
		opts.MaxLines = DefaultMaxLines
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FeedList{
		loop:       loop,
		feed:       feed,
		images:     images,
		glyphs:     glyphs,
		log:        opts.Logger,
		limit:      opts.Limit,
		maxLines:   opts.MaxLines,
		ctx:        ctx,
		cancel:     cancel,
		index:      make(map[domain.RowID]int),
		fetches:    make(map[domain.RowID]*rowFetches),
		shouldLoad: true,
	}
}

// ---- presentation boundary ----

func (l *FeedList) LoadNextPage() { l.loop.Post(l.loadNextPage) }

func (l *FeedList) Refresh() { l.loop.Post(l.refresh) }

func (l *FeedList) ShowMore(id domain.RowID) { l.loop.Post(func() { l.showMore(id) }) }

func (l *FeedList) OnPhotoTapped(id domain.RowID, index int) {
	l.loop.Post(func() {
		sel, ok := l.photoAt(id, index)
		if !ok {
			return
		}
		for _, fn := range l.photoListeners {
			fn(sel)
		}
	})
}

// OnRowVisible resumes unresolved image fetches for a row scrolled into view.
func (l *FeedList) OnRowVisible(id domain.RowID) { l.loop.Post(func() { l.setVisible(id, true) }) }

// OnRowHidden cancels in-flight image fetches for a row scrolled out of view.
func (l *FeedList) OnRowHidden(id domain.RowID) { l.loop.Post(func() { l.setVisible(id, false) }) }

func (l *FeedList) OnStateChanged(fn func(State)) {
	l.loop.Post(func() { l.stateListeners = append(l.stateListeners, fn) })
}

func (l *FeedList) OnRefreshComplete(fn func()) {
	l.loop.Post(func() { l.refreshListeners = append(l.refreshListeners, fn) })
}

func (l *FeedList) OnPhotoOpened(fn func(PhotoSelection)) {
	l.loop.Post(func() { l.photoListeners = append(l.photoListeners, fn) })
}

// Snapshot returns the current state, read on the loop.
func (l *FeedList) Snapshot(ctx context.Context) (State, error) {
	var s State
	err := l.loop.Do(ctx, func() { s = l.snapshot() })
	return s, err
}

// Photo returns the resolved photos of a row and the tapped index.
func (l *FeedList) Photo(ctx context.Context, id domain.RowID, index int) (PhotoSelection, bool, error) {
	var (
		sel PhotoSelection
		ok  bool
	)
	err := l.loop.Do(ctx, func() { sel, ok = l.photoAt(id, index) })
	return sel, ok, err
}

// Close cancels all outstanding fetches. The list is unusable afterwards.
func (l *FeedList) Close() {
	l.cancel()
	l.loop.Post(l.cancelAllFetches)
}

// ---- state transitions (loop only) ----

func (l *FeedList) loadNextPage() {
	if !l.shouldLoad {
		return
	}
	l.shouldLoad = false
	l.loading = true

	gen := l.generation
	ctx := l.ctx
	go func() {
		feed, err := l.feed.GetFeed(ctx)
		l.loop.Post(func() { l.gotFeed(gen, feed, err) })
	}()
}

func (l *FeedList) gotFeed(gen uint64, feed domain.Feed, err error) {
	if gen != l.generation {
		l.log.Debug().Uint64("generation", gen).Msg("dropping feed result from before refresh")
		return
	}
	l.loading = false

	if err != nil {
		l.log.Error().Err(err).Int("offset", l.offset).Msg("feed load failed")
		l.shouldLoad = true
	} else {
		l.appendPage(feed)
	}

	wasRefreshing := l.refreshing
	l.refreshing = false
	l.notify()
	if wasRefreshing {
		for _, fn := range l.refreshListeners {
			fn()
		}
	}
}

func (l *FeedList) appendPage(feed domain.Feed) {
	total := feed.Total
	if total > len(feed.Items) {
		l.log.Warn().Int("count", total).Int("items", len(feed.Items)).Msg("feed count exceeds items; clamping")
		total = len(feed.Items)
	}

	n := min(l.limit, total-l.offset)
	if n < 0 {
		n = 0
	}
	if n > 0 {
		for _, raw := range feed.Items[l.offset : l.offset+n] {
			row := mapReviewRow(raw, l.glyphs, l.maxLines)
			l.index[row.ID] = len(l.rows)
			l.rows = append(l.rows, row)
			l.startFetches(row)
		}
		l.offset += n
	}
	l.shouldLoad = l.reviewCount() < total

	l.log.Info().Int("page", n).Int("offset", l.offset).Int("total", total).Msg("page appended")

	if !l.shouldLoad && !l.exhausted {
		l.rows = append(l.rows, mapTotalRow(total))
		l.exhausted = true
	}
}

func (l *FeedList) refresh() {
	l.generation++
	l.cancelAllFetches()

	l.rows = nil
	l.index = make(map[domain.RowID]int)
	l.fetches = make(map[domain.RowID]*rowFetches)
	l.offset = 0
	l.shouldLoad = true
	l.loading = false
	l.exhausted = false
	l.refreshing = true

	l.notify()
	l.loadNextPage()
}

func (l *FeedList) showMore(id domain.RowID) {
	l.patch(id, func(r *domain.ReviewRow) bool {
		if r.MaxLines == 0 {
			return false
		}
		r.MaxLines = 0
		return true
	})
}

func (l *FeedList) photoAt(id domain.RowID, index int) (PhotoSelection, bool) {
	i, ok := l.index[id]
	if !ok {
		return PhotoSelection{}, false
	}
	r := l.rows[i].(domain.ReviewRow)
	if !r.HasPhotos() || index < 0 || index >= len(r.Photos) {
		return PhotoSelection{}, false
	}
	return PhotoSelection{RowID: id, Photos: append([]domain.Image(nil), r.Photos...), Index: index}, true
}

// patch applies fn to the review row with the given id. Lookup goes through
// the id index, never a position captured earlier.
func (l *FeedList) patch(id domain.RowID, fn func(*domain.ReviewRow) bool) {
	i, ok := l.index[id]
	if !ok {
		return
	}
	r, ok := l.rows[i].(domain.ReviewRow)
	if !ok {
		return
	}
	if !fn(&r) {
		return
	}
	r.Revision++
	l.rows[i] = r
	l.notify()
}

func (l *FeedList) notify() {
	if len(l.stateListeners) == 0 {
		return
	}
	s := l.snapshot()
	for _, fn := range l.stateListeners {
		fn(s)
	}
}

func (l *FeedList) snapshot() State {
	phase := PhaseIdle
	switch {
	case l.loading:
		phase = PhaseLoading
	case l.exhausted:
		phase = PhaseExhausted
	}
	return State{
		Rows:         append([]domain.Row(nil), l.rows...),
		Offset:       l.offset,
		Limit:        l.limit,
		ShouldLoad:   l.shouldLoad,
		IsRefreshing: l.refreshing,
		Phase:        phase,
	}
}

func (l *FeedList) reviewCount() int {
	if l.exhausted {
		return len(l.rows) - 1
	}
	return len(l.rows)
}
