package detect

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Spec is the serialisable description of a detector pipeline, as found
// in the configuration file. Fields apply per Kind.
type Spec struct {
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`

	// template, net (model), ocr (tessdata prefix)
	Path string `json:"path,omitempty"`
	// net: model config file (optional for single-file formats)
	Config  string   `json:"config,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Colors  []string `json:"colors,omitempty"`

	// color: range in Method space (hsv, rgb, bgr)
	Method string `json:"method,omitempty"`
	Lower  [3]int `json:"lower,omitzero"`
	Upper  [3]int `json:"upper,omitzero"`

	// detector-internal acceptance threshold (template NCC, net confidence)
	Threshold float64 `json:"threshold,omitempty"`
	MinScale  float64 `json:"min_scale,omitempty"`
	MaxScale  float64 `json:"max_scale,omitempty"`
	ScaleStep float64 `json:"scale_step,omitempty"`
	Stride    int     `json:"stride,omitempty"`

	// ocr
	Language string `json:"language,omitempty"`

	// static
	Detections []scan.Detection `json:"detections,omitempty"`

	// group
	Children   []Spec          `json:"children,omitempty"`
	Transforms []TransformSpec `json:"transforms,omitempty"`
	Filters    []FilterSpec    `json:"filters,omitempty"`
}

// TransformSpec selects one Transformer.
type TransformSpec struct {
	Kind     string  `json:"kind"` // grayscale, resize, contrast, blur, invert
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Disabled bool    `json:"disabled,omitempty"`
}

// FilterSpec selects one Filter.
type FilterSpec struct {
	Kind      string   `json:"kind"` // area, confidence, best, label, group_rectangles
	Min       int      `json:"min,omitempty"`
	Max       int      `json:"max,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	N         int      `json:"n,omitempty"`
	Eps       float64  `json:"eps,omitempty"`
	Labels    []string `json:"labels,omitempty"`
}

// Constructor builds a detector from its spec.
type Constructor func(spec Spec) (scan.Detector, error)

// FilterConstructor builds a filter from its spec.
type FilterConstructor func(spec FilterSpec) (Filter, error)

var (
	registryMu sync.RWMutex
	detectors  = map[string]Constructor{}
	filters    = map[string]FilterConstructor{}
)

// Register makes a detector kind available to Build. Backends that need
// native libraries register from their own packages.
func Register(kind string, c Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if c == nil {
		panic("detect: Register constructor is nil")
	}
	if _, dup := detectors[kind]; dup {
		panic("detect: Register called twice for " + kind)
	}
	detectors[kind] = c
}

// RegisterFilter makes a filter kind available to Build.
func RegisterFilter(kind string, c FilterConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if c == nil {
		panic("detect: RegisterFilter constructor is nil")
	}
	if _, dup := filters[kind]; dup {
		panic("detect: RegisterFilter called twice for " + kind)
	}
	filters[kind] = c
}

// Kinds lists registered detector kinds.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]string, 0, len(detectors))
	for k := range detectors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs the detector described by spec. Unknown kinds and
// invalid parameters fail with scan.ErrConfig.
func Build(spec Spec) (scan.Detector, error) {
	registryMu.RLock()
	c, ok := detectors[spec.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, scan.ConfigError("unknown detector kind %q (registered: %v)", spec.Kind, Kinds())
	}
	d, err := c(spec)
	if err != nil {
		return nil, scan.ConfigError("detector %q: %v", spec.Kind, err)
	}
	if len(spec.Transforms) == 0 && len(spec.Filters) == 0 {
		return d, nil
	}
	g := &Group{Detectors: []scan.Detector{d}}
	if err := addStages(g, spec); err != nil {
		return nil, err
	}
	return g, nil
}

func addStages(g *Group, spec Spec) error {
	for _, ts := range spec.Transforms {
		t, err := buildTransform(ts)
		if err != nil {
			return err
		}
		g.Transformers = append(g.Transformers, t)
	}
	for _, fs := range spec.Filters {
		f, err := buildFilter(fs)
		if err != nil {
			return err
		}
		g.Filters = append(g.Filters, f)
	}
	return nil
}

func buildTransform(ts TransformSpec) (Transformer, error) {
	var t Transformer
	switch ts.Kind {
	case "grayscale":
		t = Grayscale()
	case "resize":
		if ts.Width <= 0 && ts.Height <= 0 {
			return nil, scan.ConfigError("resize needs width or height")
		}
		t = Resize(ts.Width, ts.Height)
	case "contrast":
		t = Contrast(ts.Amount)
	case "blur":
		t = Blur(ts.Amount)
	case "invert":
		t = Invert()
	default:
		return nil, scan.ConfigError("unknown transform %q", ts.Kind)
	}
	tg := NewToggle(t)
	tg.SetEnabled(!ts.Disabled)
	return tg, nil
}

func buildFilter(fs FilterSpec) (Filter, error) {
	registryMu.RLock()
	c, ok := filters[fs.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, scan.ConfigError("unknown filter %q", fs.Kind)
	}
	f, err := c(fs)
	if err != nil {
		return nil, scan.ConfigError("filter %q: %v", fs.Kind, err)
	}
	return f, nil
}

func init() {
	Register("none", func(Spec) (scan.Detector, error) { return None{}, nil })
	Register("static", func(s Spec) (scan.Detector, error) {
		return Static{Detections: slices.Clone(s.Detections)}, nil
	})
	Register("template", func(s Spec) (scan.Detector, error) {
		if s.Path == "" {
			return nil, fmt.Errorf("template needs a path")
		}
		return LoadTemplate(s.Path, TemplateOptions{
			Label:     s.Label,
			Color:     s.Color,
			NCC:       NCCOptions{Threshold: s.Threshold, Stride: s.Stride, Refine: s.Stride > 1},
			MinScale:  s.MinScale,
			MaxScale:  s.MaxScale,
			ScaleStep: s.ScaleStep,
		})
	})
	Register("group", func(s Spec) (scan.Detector, error) {
		g := &Group{}
		for _, child := range s.Children {
			d, err := Build(child)
			if err != nil {
				return nil, err
			}
			g.Detectors = append(g.Detectors, d)
		}
		return g, nil
	})

	RegisterFilter("area", func(f FilterSpec) (Filter, error) { return AreaFilter{Min: f.Min, Max: f.Max}, nil })
	RegisterFilter("confidence", func(f FilterSpec) (Filter, error) {
		return ConfidenceFilter{Threshold: f.Threshold}, nil
	})
	RegisterFilter("best", func(f FilterSpec) (Filter, error) { return BestFilter{N: f.N}, nil })
	RegisterFilter("label", func(f FilterSpec) (Filter, error) { return LabelFilter{Labels: f.Labels}, nil })
}
