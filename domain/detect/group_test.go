package detect

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/soocke/cverlay-go/domain/scan"
)

func det(label string, conf float64, w, h int) scan.Detection {
	return scan.Detection{Label: label, Confidence: conf, Box: scan.Region{Width: w, Height: h}}
}

func TestGroup_ConcatenatesAndFilters(t *testing.T) {
	g := &Group{
		Detectors: []scan.Detector{
			Static{Detections: []scan.Detection{det("a", 0.9, 10, 10), det("b", 0.2, 10, 10)}},
			Static{Detections: []scan.Detection{det("c", 0.7, 2, 2)}},
		},
		Filters: []Filter{ConfidenceFilter{Threshold: 0.5}},
	}
	got, err := g.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 20)))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Label != "a" || got[1].Label != "c" {
		t.Fatalf("got %+v", got)
	}
}

func TestGroup_ChildErrorFailsCycle(t *testing.T) {
	boom := errors.New("boom")
	g := &Group{Detectors: []scan.Detector{
		None{},
		scan.DetectorFunc(func(context.Context, image.Image) ([]scan.Detection, error) { return nil, boom }),
	}}
	if _, err := g.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1))); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestGroup_ResizeMapsBoxesBack(t *testing.T) {
	var seen image.Rectangle
	probe := scan.DetectorFunc(func(_ context.Context, img image.Image) ([]scan.Detection, error) {
		seen = img.Bounds()
		return []scan.Detection{{Label: "x", Confidence: 1, Box: scan.Region{X: 5, Y: 5, Width: 10, Height: 10}}}, nil
	})
	g := &Group{Detectors: []scan.Detector{probe}, Transformers: []Transformer{Resize(50, 50)}}
	got, err := g.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)))
	if err != nil {
		t.Fatal(err)
	}
	if seen.Dx() != 50 {
		t.Fatalf("detector saw %v", seen)
	}
	if got[0].Box != (scan.Region{X: 10, Y: 10, Width: 20, Height: 20}) {
		t.Fatalf("box = %v", got[0].Box)
	}
}

func TestToggle_Disabled(t *testing.T) {
	calls := 0
	tg := NewToggle(TransformFunc(func(img image.Image) image.Image {
		calls++
		return img
	}))
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	tg.Transform(img)
	tg.SetEnabled(false)
	tg.Transform(img)
	if calls != 1 || tg.Enabled() {
		t.Fatalf("calls=%d enabled=%v", calls, tg.Enabled())
	}
}

func TestFilters(t *testing.T) {
	dets := []scan.Detection{det("a", 0.5, 10, 10), det("b", 0.9, 2, 2), det("c", 0.7, 5, 5)}

	if got := (AreaFilter{Min: 20}).Filter(dets); len(got) != 2 {
		t.Fatalf("area min: %+v", got)
	}
	if got := (AreaFilter{Min: 0, Max: 30}).Filter(dets); len(got) != 2 || got[0].Label != "b" {
		t.Fatalf("area max: %+v", got)
	}
	best := (BestFilter{N: 2}).Filter(dets)
	if len(best) != 2 || best[0].Label != "b" || best[1].Label != "c" {
		t.Fatalf("best: %+v", best)
	}
	if dets[0].Label != "a" {
		t.Fatalf("best reordered its input")
	}
	if got := (LabelFilter{Labels: []string{"c"}}).Filter(dets); len(got) != 1 || got[0].Label != "c" {
		t.Fatalf("label: %+v", got)
	}
}

func TestStatic_ClipsToFrame(t *testing.T) {
	s := Static{Detections: []scan.Detection{
		{Label: "in", Box: scan.Region{X: 0, Y: 0, Width: 5, Height: 5}},
		{Label: "out", Box: scan.Region{X: 8, Y: 8, Width: 5, Height: 5}},
	}}
	got, _ := s.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if len(got) != 1 || got[0].Label != "in" {
		t.Fatalf("got %+v", got)
	}
}

func TestBuilder(t *testing.T) {
	g, err := NewBuilder().
		Detector(Static{Detections: []scan.Detection{det("a", 0.9, 10, 10), det("b", 0.95, 1, 1)}}).
		MinArea(4).
		Best(1).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	got, _ := g.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 20, 20)))
	if len(got) != 1 || got[0].Label != "a" {
		t.Fatalf("got %+v", got)
	}

	if _, err := NewBuilder().TemplateFile("x", "does/not/exist.png", TemplateOptions{}).Build(); !errors.Is(err, scan.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestBuild_FromSpec(t *testing.T) {
	d, err := Build(Spec{
		Kind: "group",
		Children: []Spec{
			{Kind: "static", Detections: []scan.Detection{det("a", 0.3, 4, 4), det("b", 0.8, 4, 4)}},
			{Kind: "none"},
		},
		Transforms: []TransformSpec{{Kind: "grayscale"}},
		Filters:    []FilterSpec{{Kind: "confidence", Threshold: 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8)))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Label != "b" {
		t.Fatalf("got %+v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	cases := []Spec{
		{Kind: "nope"},
		{Kind: "template"},
		{Kind: "none", Filters: []FilterSpec{{Kind: "nope"}}},
		{Kind: "none", Transforms: []TransformSpec{{Kind: "resize"}}},
	}
	for _, spec := range cases {
		if _, err := Build(spec); !errors.Is(err, scan.ErrConfig) {
			t.Fatalf("spec %+v: expected config error, got %v", spec, err)
		}
	}
}
