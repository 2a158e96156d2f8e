package images

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
)

// TransparentKey is painted wherever nothing is drawn. The overlay window
// registers it as its transparent colour.
const TransparentKey = "#008080"

var (
	keyColor    = color.RGBA{R: 0x00, G: 0x80, B: 0x80, A: 0xff}
	regionColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	pausedColor = color.RGBA{R: 0x94, G: 0xa3, B: 0xb8, A: 0xff}
	// used when a detection colour collides with the key
	keyFallback = color.RGBA{R: 0x00, G: 0x81, B: 0x80, A: 0xff}
)

const (
	boxThickness    = 2
	regionThickness = 1
	labelPad        = 2
)

// Painter draws overlay snapshots into a reusable canvas covering screen.
// A Painter is owned by one render loop and is not safe for concurrent use.
type Painter struct {
	screen image.Rectangle
	canvas *image.RGBA
	face   font.Face
	colors map[string]color.RGBA
}

// NewPainter returns a painter for the given screen rectangle. The canvas
// origin maps to screen.Min so multi-monitor layouts with negative
// coordinates work.
func NewPainter(screen image.Rectangle) *Painter {
	if screen.Empty() {
		screen = image.Rect(0, 0, 1, 1)
	}
	return &Painter{
		screen: screen,
		canvas: image.NewRGBA(image.Rect(0, 0, screen.Dx(), screen.Dy())),
		face:   basicfont.Face7x13,
		colors: make(map[string]color.RGBA),
	}
}

// Screen returns the screen rectangle the canvas covers.
func (p *Painter) Screen() image.Rectangle { return p.screen }

// Paint renders snap and returns the canvas, which is overwritten by the
// next call. Hidden overlays produce an all-key frame. Unlocked overlays
// also draw each scanner's region and id so it can be arranged.
func (p *Painter) Paint(snap overlay.Snapshot) *image.RGBA {
	draw.Draw(p.canvas, p.canvas.Bounds(), image.NewUniform(keyColor), image.Point{}, draw.Src)
	if snap.Mode.Hidden {
		return p.canvas
	}
	for _, sv := range snap.Scanners {
		if !snap.Mode.Locked {
			c := regionColor
			name := sv.ID
			if sv.State != scan.StateRunning.String() {
				c = pausedColor
				name += " (" + sv.State + ")"
			}
			r := p.local(sv.Region.Rect())
			p.outline(r, c, regionThickness)
			p.text(image.Pt(r.Min.X+labelPad, r.Max.Y-labelPad-p.descent()), name, c)
		}
		for _, d := range sv.Detections {
			c := p.color(d.Color)
			r := p.local(d.Absolute(sv.Region))
			p.outline(r, c, boxThickness)
			p.label(r, fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100), c)
		}
	}
	return p.canvas
}

func (p *Painter) local(r image.Rectangle) image.Rectangle {
	return r.Sub(p.screen.Min)
}

func (p *Painter) color(s string) color.RGBA {
	if c, ok := p.colors[s]; ok {
		return c
	}
	c, err := ParseColor(s)
	if err != nil {
		c, _ = ParseColor(scan.DefaultColor)
	}
	if c == keyColor {
		c = keyFallback
	}
	p.colors[s] = c
	return c
}

func (p *Painter) outline(r image.Rectangle, c color.RGBA, t int) {
	if r.Empty() {
		return
	}
	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(p.canvas.Bounds())
		if !e.Empty() {
			draw.Draw(p.canvas, e, src, image.Point{}, draw.Src)
		}
	}
}

// label places s above box, or just inside it when there is no room above.
func (p *Painter) label(box image.Rectangle, s string, c color.RGBA) {
	y := box.Min.Y - labelPad - p.descent()
	if y-p.ascent() < 0 {
		y = box.Min.Y + boxThickness + labelPad + p.ascent()
	}
	p.text(image.Pt(box.Min.X, y), s, c)
}

// text draws s with its baseline at dot.
func (p *Painter) text(dot image.Point, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  p.canvas,
		Src:  image.NewUniform(c),
		Face: p.face,
		Dot:  fixed.P(dot.X, dot.Y),
	}
	d.DrawString(s)
}

func (p *Painter) ascent() int { return p.face.Metrics().Ascent.Ceil() }
func (p *Painter) descent() int { return p.face.Metrics().Descent.Ceil() }
