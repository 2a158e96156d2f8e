package detect

import (
	"image"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// Transformer rewrites a frame before detection.
type Transformer interface {
	Transform(img image.Image) image.Image
}

// TransformFunc adapts a function to Transformer.
type TransformFunc func(img image.Image) image.Image

func (f TransformFunc) Transform(img image.Image) image.Image { return f(img) }

// Toggle wraps a Transformer with an enabled flag that may be flipped while
// detection runs. New toggles are enabled.
type Toggle struct {
	t        Transformer
	disabled atomic.Bool
}

func NewToggle(t Transformer) *Toggle { return &Toggle{t: t} }

func (t *Toggle) Enabled() bool { return !t.disabled.Load() }
func (t *Toggle) SetEnabled(enabled bool) { t.disabled.Store(!enabled) }

func (t *Toggle) Transform(img image.Image) image.Image {
	if t.disabled.Load() {
		return img
	}
	return t.t.Transform(img)
}

// Grayscale converts the frame to gray levels (kept in an NRGBA image).
func Grayscale() Transformer {
	return TransformFunc(func(img image.Image) image.Image { return imaging.Grayscale(img) })
}

// Resize scales the frame; a zero dimension preserves the aspect ratio.
// Group maps boxes back to the captured size.
func Resize(width, height int) Transformer {
	return TransformFunc(func(img image.Image) image.Image {
		return imaging.Resize(img, width, height, imaging.Linear)
	})
}

// Contrast adjusts contrast by percentage in [-100, 100].
func Contrast(percentage float64) Transformer {
	return TransformFunc(func(img image.Image) image.Image { return imaging.AdjustContrast(img, percentage) })
}

// Blur applies a gaussian blur with the given sigma.
func Blur(sigma float64) Transformer {
	return TransformFunc(func(img image.Image) image.Image { return imaging.Blur(img, sigma) })
}

// Invert produces the negative of the frame.
func Invert() Transformer {
	return TransformFunc(func(img image.Image) image.Image { return imaging.Invert(img) })
}
