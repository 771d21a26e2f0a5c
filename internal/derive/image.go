package derive

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Image derives thumbnail and preview renditions from an uploaded image.
// The two operations are independent; callers treat each failure in
// isolation.
type Image struct {
	ThumbSize    int // square cover crop, default 400
	PreviewBound int // longest side of the preview, default 1920
	Quality      int // JPEG quality, default 85
}

func NewImage() *Image {
	return &Image{ThumbSize: 400, PreviewBound: 1920, Quality: 85}
}

// Thumbnail produces a fixed-size square crop (cover fit) as JPEG.
func (d *Image) Thumbnail(data []byte) ([]byte, error) {
	img, err := d.decode(data)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Fill(img, d.ThumbSize, d.ThumbSize, imaging.Center, imaging.Lanczos)
	return d.encodeJPEG(thumb)
}

// Preview bounds the image to PreviewBound on its longer side, preserving
// aspect ratio. Sources already within the bound are re-encoded without
// resizing; nothing is ever upscaled.
func (d *Image) Preview(data []byte) ([]byte, error) {
	img, err := d.decode(data)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() > d.PreviewBound || b.Dy() > d.PreviewBound {
		img = imaging.Fit(img, d.PreviewBound, d.PreviewBound, imaging.Lanczos)
	}
	return d.encodeJPEG(img)
}

func (d *Image) decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (d *Image) encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(d.Quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
