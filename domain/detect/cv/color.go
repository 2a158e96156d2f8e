package cv

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Method selects the colour space ColorRange bounds are expressed in.
type Method string

const (
	MethodHSV Method = "hsv"
	MethodRGB Method = "rgb"
	MethodBGR Method = "bgr"
)

// Color detects connected areas inside a colour range. Each external
// contour becomes one detection whose confidence is the fraction of
// matching pixels in its bounding box.
type Color struct {
	Label        string
	Lower, Upper [3]int
	Method       Method
	Color        string
}

var _ scan.Detector = (*Color)(nil)

// NewColor validates the method. A zero Upper means the range is Lower only.
func NewColor(label string, lower, upper [3]int, method Method, color string) (*Color, error) {
	if method == "" {
		method = MethodHSV
	}
	switch method {
	case MethodHSV, MethodRGB, MethodBGR:
	default:
		return nil, fmt.Errorf("unexpected color method %q", method)
	}
	if upper == ([3]int{}) {
		upper = lower
	}
	return &Color{Label: label, Lower: lower, Upper: upper, Method: method, Color: color}, nil
}

func (c *Color) Detect(ctx context.Context, img image.Image) ([]scan.Detection, error) {
	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("color: convert frame: %w", err)
	}
	defer bgr.Close()

	space := gocv.NewMat()
	defer space.Close()
	switch c.Method {
	case MethodHSV:
		gocv.CvtColor(bgr, &space, gocv.ColorBGRToHSV)
	case MethodRGB:
		gocv.CvtColor(bgr, &space, gocv.ColorBGRToRGB)
	default:
		bgr.CopyTo(&space)
	}

	mask := gocv.NewMat()
	defer mask.Close()
	lower := gocv.NewScalar(float64(c.Lower[0]), float64(c.Lower[1]), float64(c.Lower[2]), 0)
	upper := gocv.NewScalar(float64(c.Upper[0]), float64(c.Upper[1]), float64(c.Upper[2]), 0)
	gocv.InRangeWithScalar(space, lower, upper, &mask)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	dets := make([]scan.Detection, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rect := gocv.BoundingRect(contours.At(i))
		if rect.Empty() {
			continue
		}
		dets = append(dets, scan.Detection{
			Label:      c.Label,
			Confidence: fillRatio(mask, rect),
			Box:        scan.RegionFromRect(rect),
			Color:      c.Color,
		})
	}
	return dets, nil
}

func fillRatio(mask gocv.Mat, rect image.Rectangle) float64 {
	roi := mask.Region(rect)
	defer roi.Close()
	return float64(gocv.CountNonZero(roi)) / float64(rect.Dx()*rect.Dy())
}
