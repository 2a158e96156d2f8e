package view

import (
	"image"
	"log/slog"
	"strconv"
	"strings"

	"github.com/soocke/cverlay-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ScannerActions are the scanner commands the panel triggers.
type ScannerActions struct {
	Pick   func()
	Add    func(model.ScannerForm) error
	Remove func(id string) error
	Toggle func(id string) error
}

// ScannerPanel is the add/remove form for scanners. Adding uses the
// region confirmed in the RegionPicker.
type ScannerPanel struct {
	logger  *slog.Logger
	actions ScannerActions
	region  func() image.Rectangle

	kinds    []string
	ids      []string
	kind     *TComboboxWidget
	list     *TComboboxWidget
	widgets  map[string]*TextWidget
	regionLb *LabelWidget
	buttons  []*ButtonWidget
}

func NewScannerPanel(kinds []string, region func() image.Rectangle, actions ScannerActions, logger *slog.Logger) *ScannerPanel {
	return &ScannerPanel{kinds: kinds, region: region, actions: actions, logger: logger, widgets: make(map[string]*TextWidget)}
}

// Build constructs widgets starting at startRow and returns the next free row.
func (v *ScannerPanel) Build(startRow int) (row int) {
	row = startRow
	makeRow := func(id, label, value string) {
		lbl := Label(Txt(label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(24))
		Grid(w, Row(row), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Delete("1.0", END)
		w.Insert("1.0", value)
		v.widgets[id] = w
		row++
	}

	Grid(Label(Txt("Detector"), Anchor("w")), Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
	kinds := v.kinds
	if len(kinds) == 0 {
		kinds = []string{"none"}
	}
	v.kind = TCombobox(Values(kinds), Width(22))
	Grid(v.kind, Row(row), Column(1), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
	v.kind.Current(0)
	row++

	makeRow("id", "Id (optional)", "")
	makeRow("path", "Template / model path", "")
	makeRow("label", "Label", "")
	makeRow("color", "Colour", "")
	makeRow("threshold", "Threshold", strconv.FormatFloat(model.DefaultFormThreshold, 'f', 2, 64))

	pick := Button(Txt("Pick Region"), Command(v.pick))
	Grid(pick, Row(row), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	v.regionLb = Label(Txt("Region: <none>"), Anchor("w"))
	Grid(v.regionLb, Row(row), Column(1), Sticky("w"), Padx("0.4m"))
	add := Button(Txt("Add Scanner"), Command(v.add))
	Grid(add, Row(row), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++

	v.list = TCombobox(Values([]string{"<none>"}), Width(22))
	Grid(v.list, Row(row), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	toggle := Button(Txt("Pause/Resume"), Command(v.toggle))
	Grid(toggle, Row(row), Column(1), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	remove := Button(Txt("Remove"), Command(v.remove))
	Grid(remove, Row(row), Column(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	row++
	v.buttons = []*ButtonWidget{pick, add, toggle, remove}
	return row
}

// SetScanners refreshes the scanner selection list.
func (v *ScannerPanel) SetScanners(ids []string) {
	if v == nil || v.list == nil {
		return
	}
	v.ids = ids
	values := ids
	if len(values) == 0 {
		values = []string{"<none>"}
	}
	v.list.Configure(Values(values))
	v.list.Current(0)
}

// SetRegion shows the picked region.
func (v *ScannerPanel) SetRegion(r image.Rectangle) {
	if v != nil && v.regionLb != nil {
		v.regionLb.Configure(Txt("Region: " + model.FormatGeometry(r)))
	}
}

// SetEditable disables the form while the overlay is locked.
func (v *ScannerPanel) SetEditable(enabled bool) {
	state := "disabled"
	if enabled {
		state = "normal"
	}
	for _, w := range v.widgets {
		if w != nil {
			w.Configure(State(state))
		}
	}
	for _, b := range v.buttons {
		if b != nil {
			b.Configure(State(state))
		}
	}
}

func (v *ScannerPanel) text(id string) string {
	w := v.widgets[id]
	if w == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
}

func (v *ScannerPanel) selectedKind() string {
	idx, err := strconv.Atoi(v.kind.Current(nil))
	if err != nil || idx < 0 || idx >= len(v.kinds) {
		return ""
	}
	return v.kinds[idx]
}

func (v *ScannerPanel) selectedID() string {
	if v.list == nil {
		return ""
	}
	idx, err := strconv.Atoi(v.list.Current(nil))
	if err != nil || idx < 0 || idx >= len(v.ids) {
		return ""
	}
	return v.ids[idx]
}

func (v *ScannerPanel) pick() {
	if v.actions.Pick != nil {
		v.actions.Pick()
	}
}

func (v *ScannerPanel) add() {
	if v.actions.Add == nil {
		return
	}
	form := model.ScannerForm{
		ID:        v.text("id"),
		Kind:      v.selectedKind(),
		Path:      v.text("path"),
		Label:     v.text("label"),
		Color:     v.text("color"),
		Threshold: v.text("threshold"),
	}
	if v.region != nil {
		form.Region = v.region()
	}
	if err := v.actions.Add(form); err != nil {
		v.logError("add scanner", err)
	}
}

func (v *ScannerPanel) remove() {
	if id := v.selectedID(); id != "" && v.actions.Remove != nil {
		if err := v.actions.Remove(id); err != nil {
			v.logError("remove scanner", err)
		}
	}
}

func (v *ScannerPanel) toggle() {
	if id := v.selectedID(); id != "" && v.actions.Toggle != nil {
		if err := v.actions.Toggle(id); err != nil {
			v.logError("toggle scanner", err)
		}
	}
}

func (v *ScannerPanel) logError(what string, err error) {
	if v.logger != nil {
		v.logger.Error(what, "error", err)
	}
}
