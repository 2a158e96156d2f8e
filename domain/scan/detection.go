package scan

import (
	"context"
	"image"
)

// DefaultColor is the draw colour used when a detector does not set one.
const DefaultColor = "#000000"

// Detection is one labelled, confidence-scored box. Box is relative to the
// scanner's region. Detections are values and are never mutated after a cycle commits.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Region  `json:"box"`
	Color      string  `json:"color,omitempty"`
}

// Area of the bounding box.
func (d Detection) Area() int { return d.Box.Area() }

// Center of the bounding box, relative to the scanner region.
func (d Detection) Center() image.Point {
	return image.Pt(d.Box.X+d.Box.Width/2, d.Box.Y+d.Box.Height/2)
}

// Absolute returns the box in screen coordinates given the scanner's region.
func (d Detection) Absolute(origin Region) image.Rectangle {
	return d.Box.Offset(origin).Rect()
}

// Detector converts an image into detections. Implementations may block
// (inference); they should honour ctx where the backend allows it.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, img image.Image) ([]Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

// FrameSource captures the current pixels of a screen region.
type FrameSource interface {
	Capture(ctx context.Context, r Region) (image.Image, error)
}

// Recycler is implemented by frame sources that pool frame buffers. The
// scheduler returns a frame once the cycle that used it has finished.
type Recycler interface {
	Recycle(img image.Image)
}

// ScannerSource lists the scanners to drive. The returned slice must not be
// mutated by the provider after it is handed out (copy-on-write).
type ScannerSource interface {
	Scanners() []*Scanner
}
