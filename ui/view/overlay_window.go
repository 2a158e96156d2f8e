package view

import (
	"image"
	"runtime"

	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// OverlayWindow is a borderless, topmost toplevel covering the screen. Pixels
// painted in images.TransparentKey are see-through.
type OverlayWindow struct {
	win   *ToplevelWidget
	label *LabelWidget
	photo *Img
}

// NewOverlayWindow creates the window over screen.
func NewOverlayWindow(screen image.Rectangle) *OverlayWindow {
	win := App.Toplevel(Borderwidth(0), Background(images.TransparentKey))
	win.WmTitle("cverlay")
	WmGeometry(win.Window, model.FormatGeometry(screen))
	WmAttributes(win.Window, "-topmost", 1)
	if runtime.GOOS == "windows" {
		WmAttributes(win.Window, "-toolwindow", true)
		WmAttributes(win.Window, "-transparentcolor", images.TransparentKey)
	}
	blank := images.EncodePNG(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	photo := NewPhoto(Data(blank))
	label := win.Label(Image(photo), Borderwidth(0), Background(images.TransparentKey))
	Grid(label, Row(0), Column(0), Sticky("nsew"))
	return &OverlayWindow{win: win, label: label, photo: photo}
}

// ShowOverlay replaces the displayed frame. The previous photo is deleted so
// obsolete pixel buffers are not retained by Tk.
func (v *OverlayWindow) ShowOverlay(img image.Image) {
	if v == nil || v.label == nil || img == nil {
		return
	}
	next := NewPhoto(Data(images.EncodePNG(img)))
	v.label.Configure(Image(next))
	if v.photo != nil {
		v.photo.Delete()
	}
	v.photo = next
}

// Close destroys the window.
func (v *OverlayWindow) Close() {
	if v != nil && v.win != nil {
		Destroy(v.win)
		v.win = nil
		v.label = nil
	}
}
