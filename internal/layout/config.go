package layout

import "review_feed/internal/domain"

// Insets are the row's padding.
type Insets struct {
	Top    float64 `yaml:"top"`
	Left   float64 `yaml:"left"`
	Bottom float64 `yaml:"bottom"`
	Right  float64 `yaml:"right"`
}

// Config holds the fixed sizes and spacings of the review row. Values are
// points; nothing here is computed.
type Config struct {
	Insets     Insets      `yaml:"insets"`
	AvatarSize domain.Size `yaml:"avatar_size"`
	PhotoSize  domain.Size `yaml:"photo_size"`

	AvatarToUsername  float64 `yaml:"avatar_to_username"`
	UsernameToRating  float64 `yaml:"username_to_rating"`
	RatingToText      float64 `yaml:"rating_to_text"`
	RatingToPhotos    float64 `yaml:"rating_to_photos"`
	PhotoSpacing      float64 `yaml:"photo_spacing"`
	PhotosToText      float64 `yaml:"photos_to_text"`
	TextToCreated     float64 `yaml:"text_to_created"`
	ShowMoreToCreated float64 `yaml:"show_more_to_created"`

	ShowMoreLabel string `yaml:"show_more_label"`

	// MemoEntries bounds the number of rows whose layout is memoized.
	MemoEntries int `yaml:"memo_entries"`
}

func DefaultConfig() Config {
	return Config{
		Insets:     Insets{Top: 9, Left: 12, Bottom: 9, Right: 12},
		AvatarSize: domain.Size{W: 36, H: 36},
		PhotoSize:  domain.Size{W: 55, H: 66},

		AvatarToUsername:  10,
		UsernameToRating:  6,
		RatingToText:      6,
		RatingToPhotos:    10,
		PhotoSpacing:      8,
		PhotosToText:      10,
		TextToCreated:     6,
		ShowMoreToCreated: 6,

		ShowMoreLabel: "Show more...",
		MemoEntries:   512,
	}
}
