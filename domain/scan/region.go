package scan

import (
	"fmt"
	"image"
)

// Region is an immutable screen rectangle in absolute screen coordinates.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRegion validates and returns a Region.
func NewRegion(x, y, w, h int) (Region, error) {
	r := Region{X: x, Y: y, Width: w, Height: h}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// RegionFromRect converts an image rectangle.
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Validate checks the coordinate invariants. Screen bounds are the FrameSource's concern.
func (r Region) Validate() error {
	if r.X < 0 || r.Y < 0 {
		return ConfigError("region %v has negative origin", r)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return ConfigError("region %v has non-positive size", r)
	}
	return nil
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Area is Width*Height.
func (r Region) Area() int { return r.Width * r.Height }

// Offset translates r by the origin of other.
func (r Region) Offset(other Region) Region {
	return Region{X: r.X + other.X, Y: r.Y + other.Y, Width: r.Width, Height: r.Height}
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
