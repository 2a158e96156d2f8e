package detect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soocke/cverlay-go/domain/scan"
)

const defaultScaleCacheSize = 64

// TemplateOptions configures multi-scale template matching. Scale factors
// are generated from MinScale..MaxScale using ScaleStep; StopOnScore
// disables when set to 0.
type TemplateOptions struct {
	Label       string
	Color       string
	NCC         NCCOptions
	MinScale    float64
	MaxScale    float64
	ScaleStep   float64
	StopOnScore float64
	CacheSize   int
}

// MultiScaleResult is the best match found across scales.
type MultiScaleResult struct {
	X, Y            int
	Score           float64
	Scale           float64
	Found           bool
	Duration        time.Duration
	ScalesEvaluated int
}

// Template finds one template image in frames with masked NCC over a range
// of scales. Scaled template statistics are cached per factor.
type Template struct {
	opts   TemplateOptions
	base   *templatePrecomp
	scales []float64
	cache  *lru.Cache[float64, *templatePrecomp]
}

var _ scan.Detector = (*Template)(nil)

// NewTemplate precomputes tmpl. Transparent template pixels are masked.
func NewTemplate(tmpl image.Image, opts TemplateOptions) (*Template, error) {
	if tmpl == nil {
		return nil, errors.New("template: nil image")
	}
	base := newTemplatePrecomp(tmpl)
	if base == nil {
		return nil, errors.New("template: empty image")
	}
	if opts.Label == "" {
		opts.Label = "template"
	}
	if opts.NCC.Threshold <= 0 {
		opts.NCC.Threshold = 0.80
	}
	if opts.NCC.Stride <= 0 {
		opts.NCC.Stride = 1
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultScaleCacheSize
	}
	cache, err := lru.New[float64, *templatePrecomp](size)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return &Template{opts: opts, base: base, scales: scaleFactors(opts), cache: cache}, nil
}

// LoadTemplate reads a template image from disk.
func LoadTemplate(path string, opts TemplateOptions) (*Template, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	if opts.Label == "" {
		opts.Label = path
	}
	return NewTemplate(img, opts)
}

func scaleFactors(opts TemplateOptions) []float64 {
	if opts.MinScale <= 0 || opts.MaxScale <= 0 || opts.ScaleStep <= 0 || opts.MaxScale < opts.MinScale {
		return []float64{1.0}
	}
	maxSteps := min(1+int((opts.MaxScale-opts.MinScale)/opts.ScaleStep+0.5), 200)
	scales := make([]float64, 0, maxSteps)
	for s := opts.MinScale; s <= opts.MaxScale+1e-9 && len(scales) < maxSteps; s += opts.ScaleStep {
		scales = append(scales, s)
	}
	return scales
}

func (t *Template) scaled(factor float64) *templatePrecomp {
	if factor == 1.0 {
		return t.base
	}
	if pc, ok := t.cache.Get(factor); ok {
		return pc
	}
	pc := scaleTemplatePrecomp(t.base, factor)
	if pc != nil {
		t.cache.Add(factor, pc)
	}
	return pc
}

// Detect reports the best match as a single detection when its score
// reaches the NCC threshold.
func (t *Template) Detect(ctx context.Context, img image.Image) ([]scan.Detection, error) {
	if img == nil {
		return nil, errors.New("template: nil frame")
	}
	res := t.Match(ctx, img)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, nil
	}
	b := img.Bounds()
	w := int(float64(t.base.W) * res.Scale)
	h := int(float64(t.base.H) * res.Scale)
	return []scan.Detection{{
		Label:      t.opts.Label,
		Confidence: math.Max(0, math.Min(1, res.Score)),
		Box:        scan.Region{X: res.X - b.Min.X, Y: res.Y - b.Min.Y, Width: w, Height: h},
		Color:      t.opts.Color,
	}}, nil
}

// Match evaluates every scale in parallel and returns the best match.
// Scales not yet started when ctx is done are skipped.
func (t *Template) Match(ctx context.Context, frame image.Image) MultiScaleResult {
	preGray := buildGrayPrecomp(frame)
	if preGray == nil {
		return MultiScaleResult{}
	}
	opts := t.opts

	var earlyStop int32
	results := make(chan MultiScaleResult, len(t.scales))
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	var totalDur int64
	var scalesCount uint64

	for _, scale := range t.scales {
		if scale <= 0 || ctx.Err() != nil {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(factor float64) {
			defer wg.Done()
			defer func() { <-sem }()
			if atomic.LoadInt32(&earlyStop) == 1 || ctx.Err() != nil {
				return
			}
			scaledPc := t.scaled(factor)
			if scaledPc == nil {
				return
			}
			res := matchNCC(frame, scaledPc, opts.NCC, preGray)
			msr := MultiScaleResult{X: res.X, Y: res.Y, Score: res.Score, Scale: factor, Found: res.Found}
			if opts.NCC.DebugTiming && res.Dur > 0 {
				atomic.AddInt64(&totalDur, res.Dur.Nanoseconds())
			}
			atomic.AddUint64(&scalesCount, 1)
			if opts.StopOnScore > 0 && res.Score >= opts.StopOnScore {
				if atomic.CompareAndSwapInt32(&earlyStop, 0, 1) {
					results <- msr
				}
				return
			}
			results <- msr
		}(scale)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	best := MultiScaleResult{Score: -1}
	for r := range results {
		if r.Score > best.Score {
			best = r
		}
	}
	if dur := atomic.LoadInt64(&totalDur); dur > 0 {
		best.Duration = time.Duration(dur)
	}
	best.ScalesEvaluated = int(atomic.LoadUint64(&scalesCount))
	return best
}
