package httpserver

import (
	"review_feed/internal/app"
	"review_feed/internal/domain"
	"review_feed/internal/layout"
)

type imageView struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Format      string `json:"format,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

type rowView struct {
	ID        domain.RowID  `json:"id,omitempty"`
	Kind      domain.RowKind `json:"kind"`
	Avatar    *imageView    `json:"avatar,omitempty"`
	Username  string        `json:"username,omitempty"`
	Rating    string        `json:"rating,omitempty"`
	Text      string        `json:"text,omitempty"`
	Created   string        `json:"created,omitempty"`
	MaxLines  *int          `json:"max_lines,omitempty"`
	Photos    *[]imageView  `json:"photos,omitempty"`
	CountText string        `json:"count_text,omitempty"`
	Revision  uint64        `json:"revision,omitempty"`
	Layout    layout.Result `json:"layout"`
}

type listView struct {
	Offset        int       `json:"offset"`
	Limit         int       `json:"limit"`
	ShouldLoad    bool      `json:"should_load"`
	IsRefreshing  bool      `json:"is_refreshing"`
	Phase         app.Phase `json:"phase"`
	Width         float64   `json:"width"`
	ContentHeight float64   `json:"content_height"`
	Rows          []rowView `json:"rows"`
}

func toImageView(img domain.Image) imageView {
	return imageView{
		URL:         img.URL,
		Width:       img.Width,
		Height:      img.Height,
		Format:      img.Format,
		Placeholder: img.IsPlaceholder(),
	}
}

// buildListView renders every row at width. Rows are dispatched by type; the
// set is closed.
func buildListView(s app.State, engine *layout.Engine, width float64) listView {
	out := listView{
		Offset:       s.Offset,
		Limit:        s.Limit,
		ShouldLoad:   s.ShouldLoad,
		IsRefreshing: s.IsRefreshing,
		Phase:        s.Phase,
		Width:        width,
		Rows:         make([]rowView, 0, len(s.Rows)),
	}
	for _, row := range s.Rows {
		v := rowView{Kind: row.Kind(), Layout: engine.Compute(row, width)}
		switch r := row.(type) {
		case domain.ReviewRow:
			avatar := toImageView(r.Avatar)
			maxLines := r.MaxLines
			v.ID = r.ID
			v.Avatar = &avatar
			v.Username = r.Username.Text
			v.Rating = r.Rating.Text
			v.Text = r.Text.Text
			v.Created = r.Created.Text
			v.MaxLines = &maxLines
			v.Revision = r.Revision
			if r.PhotosResolved {
				photos := make([]imageView, len(r.Photos))
				for i, p := range r.Photos {
					photos[i] = toImageView(p)
				}
				v.Photos = &photos
			}
		case domain.TotalRow:
			v.CountText = r.CountText.Text
		}
		out.ContentHeight += v.Layout.Height
		out.Rows = append(out.Rows, v)
	}
	return out
}
