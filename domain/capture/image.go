package capture

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// BackendImage serves regions of a still image, for offline detection runs.
const BackendImage = "image"

// ImageBackend treats a decoded image as the whole screen. The image's
// bounds are the screen bounds.
type ImageBackend struct {
	img image.Image
}

// NewImageBackend wraps img. It fails on an empty image.
func NewImageBackend(img image.Image) (*ImageBackend, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("image backend: empty image")
	}
	return &ImageBackend{img: img}, nil
}

// OpenImage decodes path (any format imaging understands) into a backend.
func OpenImage(path string) (*ImageBackend, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image backend: %w", err)
	}
	return NewImageBackend(img)
}

func (b *ImageBackend) Name() string { return BackendImage }

func (b *ImageBackend) Bounds() (image.Rectangle, error) { return b.img.Bounds(), nil }

// Grab copies r, clamped to the image, into a pooled frame whose origin is (0,0).
func (b *ImageBackend) Grab(r image.Rectangle) (*image.RGBA, error) {
	r = r.Intersect(b.img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("image backend: region outside image")
	}
	out := acquireFrame(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), b.img, r.Min, draw.Src)
	return out, nil
}
