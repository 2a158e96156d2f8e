package detect

import (
	"context"
	"image"
	"slices"

	"github.com/soocke/cverlay-go/domain/scan"
)

// None never detects anything. It is the placeholder for scanners whose
// detector has not been configured yet.
type None struct{}

func (None) Detect(context.Context, image.Image) ([]scan.Detection, error) { return nil, nil }

// Static returns the same detections for every frame, clipped to the frame.
type Static struct {
	Detections []scan.Detection
}

func (s Static) Detect(_ context.Context, img image.Image) ([]scan.Detection, error) {
	b := img.Bounds()
	frame := scan.Region{Width: b.Dx(), Height: b.Dy()}.Rect()
	out := make([]scan.Detection, 0, len(s.Detections))
	for _, d := range s.Detections {
		if d.Box.Rect().In(frame) {
			out = append(out, d)
		}
	}
	return slices.Clip(out), nil
}
