package cv

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/soocke/cverlay-go/domain/scan"
)

// GroupRectangles merges similar boxes per label with cv::groupRectangles.
// Every input box is counted twice so isolated boxes survive a threshold
// of 1. A merged box takes the most common colour of its label and the
// highest confidence among the inputs it overlaps.
type GroupRectangles struct {
	Threshold int
	Eps       float64
}

func (g GroupRectangles) Filter(dets []scan.Detection) []scan.Detection {
	eps := g.Eps
	if eps <= 0 {
		eps = 0.5
	}
	var order []string
	byLabel := map[string][]scan.Detection{}
	for _, d := range dets {
		if _, ok := byLabel[d.Label]; !ok {
			order = append(order, d.Label)
		}
		byLabel[d.Label] = append(byLabel[d.Label], d)
	}

	var out []scan.Detection
	for _, label := range order {
		group := byLabel[label]
		rects := make([]image.Rectangle, 0, 2*len(group))
		for _, d := range group {
			r := d.Box.Rect()
			rects = append(rects, r, r)
		}
		color := commonColor(group)
		for _, r := range gocv.GroupRectangles(rects, g.Threshold, eps) {
			conf := 0.0
			for _, d := range group {
				if d.Box.Rect().Overlaps(r) {
					conf = max(conf, d.Confidence)
				}
			}
			out = append(out, scan.Detection{Label: label, Confidence: conf, Box: scan.RegionFromRect(r), Color: color})
		}
	}
	return out
}

func commonColor(dets []scan.Detection) string {
	counts := map[string]int{}
	best, bestN := "", 0
	for _, d := range dets {
		counts[d.Color]++
		if n := counts[d.Color]; n > bestN {
			best, bestN = d.Color, n
		}
	}
	return best
}
