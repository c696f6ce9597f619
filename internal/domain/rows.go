package domain

import "image"

// Size is a width/height pair in points.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned frame in points.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) MaxX() float64 { return r.X + r.W }
func (r Rect) MaxY() float64 { return r.Y + r.H }

// TextStyle names the font a piece of text is rendered with.
type TextStyle string

const (
	StyleUsername    TextStyle = "username"
	StyleText        TextStyle = "text"
	StyleCreated     TextStyle = "created"
	StyleShowMore    TextStyle = "show_more"
	StyleReviewCount TextStyle = "review_count"
)

// StyledText is text bound to the style it is measured and drawn with.
type StyledText struct {
	Text  string    `json:"text"`
	Style TextStyle `json:"style"`
}

func (s StyledText) IsEmpty() bool { return s.Text == "" }

// Glyph is the rendered rating image.
type Glyph struct {
	Text string `json:"text"`
	Size Size   `json:"size"`
}

// Image is a decoded picture. Pixels is nil for the placeholder.
type Image struct {
	URL    string      `json:"url,omitempty"`
	Format string      `json:"format,omitempty"`
	Width  int         `json:"width"`
	Height int         `json:"height"`
	Pixels image.Image `json:"-"`
}

const placeholderAvatar = "placeholder:userpick"

// PlaceholderAvatar is shown until the real avatar resolves.
func PlaceholderAvatar() Image {
	return Image{URL: placeholderAvatar, Width: 36, Height: 36}
}

func (i Image) IsPlaceholder() bool { return i.URL == placeholderAvatar }

// RowID identifies a ReviewRow for its whole lifetime. Ids are never reused.
type RowID string

// RowKind is the tag of the Row sum type.
type RowKind string

const (
	KindReview RowKind = "review"
	KindTotal  RowKind = "total"
)

// Row is a displayable list entry: either ReviewRow or TotalRow.
// The set is closed; callers dispatch with a type switch.
type Row interface {
	Kind() RowKind
	sealed()
}

// ReviewRow is one rendered review.
type ReviewRow struct {
	ID       RowID
	Avatar   Image
	Username StyledText
	Rating   Glyph
	Text     StyledText
	Created  StyledText

	// Photos is meaningful only once PhotosResolved is set; a resolved row
	// may still carry zero photos.
	Photos         []Image
	PhotosResolved bool

	// MaxLines is the truncation limit; 0 means unlimited.
	MaxLines int

	AvatarURL string
	PhotoURLs []string

	// Revision is bumped on every content change and keys the layout memo.
	Revision uint64
}

func (ReviewRow) Kind() RowKind { return KindReview }
func (ReviewRow) sealed()       {}

// AvatarResolved reports whether the placeholder has been replaced.
func (r ReviewRow) AvatarResolved() bool { return !r.Avatar.IsPlaceholder() }

// HasPhotos reports whether a photo strip should be laid out.
func (r ReviewRow) HasPhotos() bool { return r.PhotosResolved && len(r.Photos) > 0 }

// TotalRow closes an exhausted list with the aggregate count.
type TotalRow struct {
	CountText StyledText
}

func (TotalRow) Kind() RowKind { return KindTotal }
func (TotalRow) sealed()       {}
