package view

import (
	"image"
	"runtime"

	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// RegionPicker is a resizable see-through frame the user drags over the
// screen area a new scanner should watch.
type RegionPicker struct {
	screen   image.Rectangle
	win      *ToplevelWidget
	onPick   func(image.Rectangle)
	selected image.Rectangle
}

// NewRegionPicker creates a picker; onPick receives each confirmed rectangle.
func NewRegionPicker(screen image.Rectangle, onPick func(image.Rectangle)) *RegionPicker {
	return &RegionPicker{screen: screen, onPick: onPick}
}

// Selected returns the last confirmed rectangle, empty when none.
func (v *RegionPicker) Selected() image.Rectangle { return v.selected }

// OpenOrFocus shows the picker centred on the screen.
func (v *RegionPicker) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background(images.TransparentKey))
	win.WmTitle("Pick Region")
	v.win = win
	w, h := max(v.screen.Dx()/3, 1), max(v.screen.Dy()/3, 1)
	start := image.Rect(0, 0, w, h).Add(v.screen.Min).Add(image.Pt((v.screen.Dx()-w)/2, (v.screen.Dy()-h)/2))
	if !v.selected.Empty() {
		start = v.selected
	}
	WmGeometry(win.Window, model.FormatGeometry(start))
	WmAttributes(win.Window, "-topmost", 1)
	if runtime.GOOS == "windows" {
		WmAttributes(win.Window, "-toolwindow", true)
		WmAttributes(win.Window, "-transparentcolor", images.TransparentKey)
	}
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(0))
	GridColumnConfigure(win.Window, 1, Weight(1))
	GridColumnConfigure(win.Window, 2, Weight(0))
	left := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(left, Row(0), Column(0), Sticky("ns"))
	center := win.Frame(Background(images.TransparentKey))
	Grid(center, Row(0), Column(1), Sticky("nsew"))
	right := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(right, Row(0), Column(2), Sticky("ns"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Columnspan(3), Sticky("we"))
	confirm := win.Button(Txt("Use Region [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.close))
	Grid(cancel, In(controls), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.close))
}

func (v *RegionPicker) confirm() {
	if v.win == nil {
		return
	}
	if rect, ok := model.ParseGeometry(WmGeometry(v.win.Window)); ok {
		v.selected = rect
		if v.onPick != nil {
			v.onPick(rect)
		}
	}
	v.close()
}

func (v *RegionPicker) close() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}
