package app

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"review_feed/internal/domain"
)

/********** raw review -> display rows **********/

// newRowID returns a time-ordered id; v7 keeps ids sortable in logs.
func newRowID() domain.RowID {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.RowID(uuid.NewString())
	}
	return domain.RowID(id.String())
}

// mapReviewRow renders the synchronous parts of a review. Avatar and photos
// start unresolved and are filled in by image fetches.
func mapReviewRow(r domain.RawReview, glyphs domain.RatingRenderer, maxLines int) domain.ReviewRow {
	return domain.ReviewRow{
		ID:        newRowID(),
		Avatar:    domain.PlaceholderAvatar(),
		Username:  domain.StyledText{Text: joinNonEmpty(r.FirstName, r.LastName), Style: domain.StyleUsername},
		Rating:    glyphs.Glyph(r.Rating),
		Text:      domain.StyledText{Text: strings.TrimSpace(r.Text), Style: domain.StyleText},
		Created:   domain.StyledText{Text: r.Created, Style: domain.StyleCreated},
		MaxLines:  maxLines,
		AvatarURL: strings.TrimSpace(deref(r.AvatarURL)),
		PhotoURLs: nonEmpty(r.PhotoURLs),
	}
}

func mapTotalRow(total int) domain.TotalRow {
	return domain.TotalRow{CountText: domain.StyledText{Text: countText(total), Style: domain.StyleReviewCount}}
}

func countText(n int) string {
	if n == 1 {
		return "1 review"
	}
	return fmt.Sprintf("%d reviews", n)
}

/********** tiny helpers **********/

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func joinNonEmpty(parts ...string) string {
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, " ")
}

func nonEmpty(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
