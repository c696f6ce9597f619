package domain

// RawReview is one entry of the feed document. Identity is its position in the feed.
type RawReview struct {
	AvatarURL *string  `json:"avatar_url,omitempty"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Rating    int      `json:"rating"`
	Text      string   `json:"text"`
	Created   string   `json:"created"`
	PhotoURLs []string `json:"photo_urls,omitempty"`
}

// Feed is the whole review set as returned by a FeedProvider.
type Feed struct {
	Items []RawReview `json:"items"`
	Total int         `json:"count"`
}
