package imagecache

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"review_feed/internal/domain"
)

// decode turns a response body into an Image. Any registered format is
// accepted: png, jpeg, gif and webp.
func decode(url string, body []byte) (domain.Image, error) {
	if len(body) == 0 {
		return domain.Image{}, fmt.Errorf("empty body")
	}
	px, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return domain.Image{}, err
	}
	b := px.Bounds()
	return domain.Image{
		URL:    url,
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Pixels: px,
	}, nil
}
