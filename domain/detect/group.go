package detect

import (
	"context"
	"fmt"
	"image"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Filter post-processes the detections of one cycle.
type Filter interface {
	Filter(dets []scan.Detection) []scan.Detection
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(dets []scan.Detection) []scan.Detection

func (f FilterFunc) Filter(dets []scan.Detection) []scan.Detection { return f(dets) }

// Group transforms a frame, runs every child detector on the result,
// concatenates their detections and applies the filters in order.
type Group struct {
	Detectors    []scan.Detector
	Transformers []Transformer
	Filters      []Filter
}

var _ scan.Detector = (*Group)(nil)

func (g *Group) Detect(ctx context.Context, img image.Image) ([]scan.Detection, error) {
	src := img.Bounds()
	frame := img
	for _, t := range g.Transformers {
		frame = t.Transform(frame)
	}
	var out []scan.Detection
	for i, d := range g.Detectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dets, err := d.Detect(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("detector %d: %w", i, err)
		}
		out = append(out, dets...)
	}
	if dst := frame.Bounds(); dst.Size() != src.Size() {
		out = rescale(out, dst, src)
	}
	for _, f := range g.Filters {
		out = f.Filter(out)
	}
	return out, nil
}

// rescale maps boxes found on a resized frame back onto the captured frame.
func rescale(dets []scan.Detection, from, to image.Rectangle) []scan.Detection {
	if from.Dx() == 0 || from.Dy() == 0 {
		return dets
	}
	sx := float64(to.Dx()) / float64(from.Dx())
	sy := float64(to.Dy()) / float64(from.Dy())
	out := make([]scan.Detection, len(dets))
	for i, d := range dets {
		d.Box = scan.Region{
			X:      int(float64(d.Box.X) * sx),
			Y:      int(float64(d.Box.Y) * sy),
			Width:  int(float64(d.Box.Width) * sx),
			Height: int(float64(d.Box.Height) * sy),
		}
		out[i] = d
	}
	return out
}
