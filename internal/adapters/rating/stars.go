package rating

import (
	"strings"

	"review_feed/internal/domain"
)

const maxRating = 5

// Stars renders a rating as five filled or empty stars.
type Stars struct {
	StarSize float64
	Spacing  float64
}

func New() Stars { return Stars{StarSize: 16, Spacing: 1} }

func (s Stars) Glyph(r int) domain.Glyph {
	r = min(max(r, 0), maxRating)
	return domain.Glyph{
		Text: strings.Repeat("★", r) + strings.Repeat("☆", maxRating-r),
		Size: domain.Size{W: s.StarSize*maxRating + s.Spacing*(maxRating-1), H: s.StarSize},
	}
}

var _ domain.RatingRenderer = Stars{}
