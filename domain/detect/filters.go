package detect

import (
	"slices"

	"github.com/soocke/cverlay-go/domain/scan"
)

// AreaFilter keeps detections whose box area is within [Min, Max].
// Max <= 0 means unbounded.
type AreaFilter struct {
	Min, Max int
}

func (f AreaFilter) Filter(dets []scan.Detection) []scan.Detection {
	out := make([]scan.Detection, 0, len(dets))
	for _, d := range dets {
		a := d.Area()
		if a < f.Min || (f.Max > 0 && a > f.Max) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// ConfidenceFilter keeps detections at or above Threshold.
type ConfidenceFilter struct {
	Threshold float64
}

func (f ConfidenceFilter) Filter(dets []scan.Detection) []scan.Detection {
	out := make([]scan.Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= f.Threshold {
			out = append(out, d)
		}
	}
	return out
}

// BestFilter keeps the N most confident detections, most confident first.
type BestFilter struct {
	N int
}

func (f BestFilter) Filter(dets []scan.Detection) []scan.Detection {
	out := slices.Clone(dets)
	slices.SortStableFunc(out, func(a, b scan.Detection) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	n := max(f.N, 1)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// LabelFilter keeps detections whose label is listed.
type LabelFilter struct {
	Labels []string
}

func (f LabelFilter) Filter(dets []scan.Detection) []scan.Detection {
	out := make([]scan.Detection, 0, len(dets))
	for _, d := range dets {
		if slices.Contains(f.Labels, d.Label) {
			out = append(out, d)
		}
	}
	return out
}
