package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
)

func snapshot(mode overlay.Mode) overlay.Snapshot {
	return overlay.Snapshot{
		Mode: mode,
		Scanners: []overlay.ScannerView{{
			ID:     "bar",
			Region: scan.Region{X: 20, Y: 30, Width: 100, Height: 60},
			State:  scan.StateRunning.String(),
			Detections: []scan.Detection{{
				Label:      "hp",
				Confidence: 0.9,
				Box:        scan.Region{X: 10, Y: 20, Width: 30, Height: 20},
				Color:      "#ff0000",
			}},
		}},
	}
}

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestPainter_HiddenPaintsOnlyKey(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	img := p.Paint(snapshot(overlay.Mode{Hidden: true}))
	if got := countColor(img, keyColor); got != 200*150 {
		t.Fatalf("expected fully transparent frame, %d/%d key pixels", got, 200*150)
	}
}

func TestPainter_DrawsDetectionBoxInScreenCoordinates(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	img := p.Paint(snapshot(overlay.Mode{Locked: true}))
	red := color.RGBA{R: 0xff, A: 0xff}
	// box absolute = (30,50)-(60,70)
	if img.RGBAAt(30, 50) != red || img.RGBAAt(59, 69) != red {
		t.Fatalf("box corners not drawn: %v %v", img.RGBAAt(30, 50), img.RGBAAt(59, 69))
	}
	if img.RGBAAt(45, 60) != keyColor {
		t.Fatalf("box interior should stay transparent, got %v", img.RGBAAt(45, 60))
	}
	if countColor(img, regionColor) != 0 {
		t.Fatalf("locked overlay must not draw region outlines")
	}
}

func TestPainter_UnlockedDrawsRegions(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	img := p.Paint(snapshot(overlay.Mode{}))
	if img.RGBAAt(20, 30) != regionColor || img.RGBAAt(119, 89) != regionColor {
		t.Fatalf("region outline missing: %v %v", img.RGBAAt(20, 30), img.RGBAAt(119, 89))
	}
}

func TestPainter_PausedScannerRegionDimmed(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	snap := snapshot(overlay.Mode{})
	snap.Scanners[0].State = scan.StatePaused.String()
	img := p.Paint(snap)
	if img.RGBAAt(20, 30) != pausedColor {
		t.Fatalf("paused region should use dimmed colour, got %v", img.RGBAAt(20, 30))
	}
	// last result still drawn
	if img.RGBAAt(30, 50) != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Fatalf("paused scanner lost its detections")
	}
}

func TestPainter_NegativeScreenOrigin(t *testing.T) {
	p := NewPainter(image.Rect(-100, 0, 100, 150))
	snap := snapshot(overlay.Mode{Locked: true})
	snap.Scanners[0].Region = scan.Region{X: -50, Y: 0, Width: 80, Height: 80}
	img := p.Paint(snap)
	// box absolute (-40,20) -> canvas (60,20)
	if img.RGBAAt(60, 20) != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Fatalf("expected box at canvas (60,20), got %v", img.RGBAAt(60, 20))
	}
}

func TestPainter_KeyColouredDetectionStaysVisible(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	snap := snapshot(overlay.Mode{Locked: true})
	snap.Scanners[0].Detections[0].Color = TransparentKey
	img := p.Paint(snap)
	if img.RGBAAt(30, 50) == keyColor {
		t.Fatalf("detection drawn in key colour would be invisible")
	}
}

func TestPainter_CanvasReusedAcrossFrames(t *testing.T) {
	p := NewPainter(image.Rect(0, 0, 200, 150))
	first := p.Paint(snapshot(overlay.Mode{Locked: true}))
	second := p.Paint(snapshot(overlay.Mode{Hidden: true}))
	if first != second {
		t.Fatalf("expected the same canvas")
	}
	if second.RGBAAt(30, 50) != keyColor {
		t.Fatalf("previous frame not cleared")
	}
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.RGBA
		ok   bool
	}{
		{"#ff0000", color.RGBA{R: 0xff, A: 0xff}, true},
		{"#0f0", color.RGBA{G: 0xff, A: 0xff}, true},
		{"03C03C", color.RGBA{R: 0x03, G: 0xc0, B: 0x3c, A: 0xff}, true},
		{"#12", color.RGBA{}, false},
		{"#zzzzzz", color.RGBA{}, false},
	}
	for _, c := range cases {
		got, err := ParseColor(c.in)
		if (err == nil) != c.ok {
			t.Fatalf("%q: unexpected error state %v", c.in, err)
		}
		if c.ok && got != c.want {
			t.Fatalf("%q: got %v want %v", c.in, got, c.want)
		}
	}
	if Hex(color.RGBA{R: 0x03, G: 0xc0, B: 0x3c}) != "#03c03c" {
		t.Fatalf("hex formatting mismatch")
	}
}

func TestScaleToFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	if got := ScaleToFit(src, 500, 500); got != image.Image(src) {
		t.Fatalf("image that fits should be returned unchanged")
	}
	got := ScaleToFit(src, 100, 100)
	if got.Bounds().Dx() != 100 || got.Bounds().Dy() != 50 {
		t.Fatalf("expected 100x50, got %v", got.Bounds())
	}
}

func TestEncodePNG(t *testing.T) {
	if EncodePNG(nil) != nil {
		t.Fatalf("nil image should encode to nil")
	}
	data := EncodePNG(image.NewRGBA(image.Rect(0, 0, 4, 3)))
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil || img.Bounds().Dx() != 4 {
		t.Fatalf("decode failed: %v", err)
	}
}
