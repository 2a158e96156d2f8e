package cv

import (
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

func init() {
	detect.Register("color", func(s detect.Spec) (scan.Detector, error) {
		return NewColor(s.Label, s.Lower, s.Upper, Method(s.Method), s.Color)
	})
	detect.Register("net", func(s detect.Spec) (scan.Detector, error) {
		opts := DefaultNetOptions()
		opts.Classes = s.Classes
		opts.Colors = s.Colors
		if s.Threshold > 0 {
			opts.Threshold = s.Threshold
		}
		return NewNet(s.Path, s.Config, opts)
	})
	detect.RegisterFilter("group_rectangles", func(f detect.FilterSpec) (detect.Filter, error) {
		return GroupRectangles{Threshold: max(f.N, 1), Eps: f.Eps}, nil
	})
}
