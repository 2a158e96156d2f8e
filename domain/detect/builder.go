package detect

import (
	"github.com/soocke/cverlay-go/domain/scan"
)

// Builder assembles a Group fluently:
//
//	det, err := detect.NewBuilder().
//		TemplateFile("chest", "assets/chest.png", detect.TemplateOptions{Color: "#E60012"}).
//		MinArea(100).
//		Best(3).
//		Build()
type Builder struct {
	g   Group
	err error
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Detector(d scan.Detector) *Builder {
	b.g.Detectors = append(b.g.Detectors, d)
	return b
}

func (b *Builder) Transform(t Transformer) *Builder {
	b.g.Transformers = append(b.g.Transformers, t)
	return b
}

func (b *Builder) Filter(f Filter) *Builder {
	b.g.Filters = append(b.g.Filters, f)
	return b
}

// Template adds an NCC template detector for an in-memory image.
func (b *Builder) Template(t *Template) *Builder { return b.Detector(t) }

// TemplateFile loads a template image from disk. Load errors surface from Build.
func (b *Builder) TemplateFile(label, path string, opts TemplateOptions) *Builder {
	opts.Label = label
	t, err := LoadTemplate(path, opts)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return b
	}
	return b.Detector(t)
}

func (b *Builder) MinArea(area int) *Builder { return b.Filter(AreaFilter{Min: area}) }

func (b *Builder) Area(minArea, maxArea int) *Builder {
	return b.Filter(AreaFilter{Min: minArea, Max: maxArea})
}

func (b *Builder) Threshold(threshold float64) *Builder {
	return b.Filter(ConfidenceFilter{Threshold: threshold})
}

func (b *Builder) Best(n int) *Builder { return b.Filter(BestFilter{N: n}) }

// Build returns the assembled group, or the first error recorded while building.
func (b *Builder) Build() (*Group, error) {
	if b.err != nil {
		return nil, scan.ConfigError("detector: %v", b.err)
	}
	g := b.g
	return &g, nil
}
