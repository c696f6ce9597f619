package layout

import (
	"math"
	"sync"

	"github.com/golang/groupcache/lru"

	"review_feed/internal/domain"
)

// Frames are the positioned parts of a row. Absent parts have a zero Rect.
type Frames struct {
	Avatar      domain.Rect   `json:"avatar"`
	Username    domain.Rect   `json:"username"`
	Rating      domain.Rect   `json:"rating"`
	Photos      domain.Rect   `json:"photos"`
	PhotoFrames []domain.Rect `json:"photo_frames,omitempty"`
	Text        domain.Rect   `json:"text"`
	ShowMore    domain.Rect   `json:"show_more"`
	Created     domain.Rect   `json:"created"`
	Count       domain.Rect   `json:"count"`
}

// Result is the geometry of one row at one width.
type Result struct {
	Frames   Frames  `json:"frames"`
	Height   float64 `json:"height"`
	ShowMore bool    `json:"show_more"`
}

type memoEntry struct {
	revision uint64
	width    float64
	result   Result
}

// Engine computes row layouts. The computation is pure; review rows are
// memoized by id and invalidated by revision or width change. Safe for
// concurrent use.
type Engine struct {
	cfg  Config
	text domain.TextMeasurer

	mu   sync.Mutex
	memo *lru.Cache
}

func NewEngine(cfg Config, text domain.TextMeasurer) *Engine {
	if cfg.MemoEntries <= 0 {
		cfg.MemoEntries = DefaultConfig().MemoEntries
	}
	return &Engine{cfg: cfg, text: text, memo: lru.New(cfg.MemoEntries)}
}

func (e *Engine) Config() Config { return e.cfg }

// Compute returns the frames and total height of row at maxWidth.
// A non-positive or NaN width yields zero geometry and zero height.
func (e *Engine) Compute(row domain.Row, maxWidth float64) Result {
	if !(maxWidth > 0) || math.IsInf(maxWidth, 0) {
		return Result{}
	}
	switch r := row.(type) {
	case domain.ReviewRow:
		return e.review(r, maxWidth)
	case domain.TotalRow:
		return e.total(r, maxWidth)
	}
	return Result{}
}

// Height is Compute(row, maxWidth).Height.
func (e *Engine) Height(row domain.Row, maxWidth float64) float64 {
	return e.Compute(row, maxWidth).Height
}

func (e *Engine) review(r domain.ReviewRow, maxWidth float64) Result {
	e.mu.Lock()
	if v, ok := e.memo.Get(r.ID); ok {
		m := v.(memoEntry)
		if m.revision == r.Revision && m.width == maxWidth {
			e.mu.Unlock()
			return m.result.clone()
		}
	}
	e.mu.Unlock()

	res := computeReview(e.cfg, e.text, r, maxWidth)

	e.mu.Lock()
	e.memo.Add(r.ID, memoEntry{revision: r.Revision, width: maxWidth, result: res})
	e.mu.Unlock()
	return res.clone()
}

func (e *Engine) total(r domain.TotalRow, maxWidth float64) Result {
	in := e.cfg.Insets
	width := math.Max(0, maxWidth-in.Left-in.Right)
	size := e.text.Measure(r.CountText, width)

	var f Frames
	f.Count = domain.Rect{X: (maxWidth - size.W) / 2, Y: in.Top, W: size.W, H: size.H}
	return Result{Frames: f, Height: in.Top + size.H + in.Bottom}
}

func computeReview(cfg Config, text domain.TextMeasurer, r domain.ReviewRow, maxWidth float64) Result {
	in := cfg.Insets
	width := math.Max(0, maxWidth-in.Left-in.Right-cfg.AvatarSize.W-cfg.AvatarToUsername)

	var (
		f   Frames
		res Result
	)
	f.Avatar = domain.Rect{X: in.Left, Y: in.Top, W: cfg.AvatarSize.W, H: cfg.AvatarSize.H}
	x := f.Avatar.MaxX() + cfg.AvatarToUsername

	f.Username = at(x, in.Top, text.Measure(r.Username, width))
	y := f.Username.MaxY() + cfg.UsernameToRating

	f.Rating = at(x, y, r.Rating.Size)

	if r.HasPhotos() {
		y = f.Rating.MaxY() + cfg.RatingToPhotos
		n := float64(len(r.Photos))
		f.Photos = domain.Rect{
			X: x, Y: y,
			W: cfg.PhotoSize.W*n + cfg.PhotoSpacing*(n-1),
			H: cfg.PhotoSize.H,
		}
		f.PhotoFrames = make([]domain.Rect, len(r.Photos))
		for i := range r.Photos {
			f.PhotoFrames[i] = at(x+float64(i)*(cfg.PhotoSize.W+cfg.PhotoSpacing), y, cfg.PhotoSize)
		}
		y = f.Photos.MaxY() + cfg.PhotosToText
	} else {
		y = f.Rating.MaxY() + cfg.RatingToText
	}

	if !r.Text.IsEmpty() {
		full := text.Measure(r.Text, width)
		h := full.H
		if r.MaxLines != 0 {
			truncated := text.LineHeight(r.Text.Style) * float64(r.MaxLines)
			res.ShowMore = full.H > truncated
			h = math.Min(full.H, truncated)
		}
		f.Text = domain.Rect{X: x, Y: y, W: full.W, H: h}
		y = f.Text.MaxY() + cfg.TextToCreated
	}

	if res.ShowMore {
		label := domain.StyledText{Text: cfg.ShowMoreLabel, Style: domain.StyleShowMore}
		f.ShowMore = at(x, y, text.Measure(label, width))
		y = f.ShowMore.MaxY() + cfg.ShowMoreToCreated
	}

	f.Created = at(x, y, text.Measure(r.Created, width))

	res.Frames = f
	res.Height = f.Created.MaxY() + in.Bottom
	return res
}

func at(x, y float64, s domain.Size) domain.Rect {
	return domain.Rect{X: x, Y: y, W: s.W, H: s.H}
}

func (r Result) clone() Result {
	if r.Frames.PhotoFrames != nil {
		r.Frames.PhotoFrames = append([]domain.Rect(nil), r.Frames.PhotoFrames...)
	}
	return r
}
