package view

import (
	"image"
	"log/slog"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ControlHandlers are invoked on user actions in the control window.
type ControlHandlers struct {
	TogglePlay func()
	ToggleLock func()
	ToggleHide func()
	Exit       func()
	Scanners   ScannerActions
}

// ControlView is the small always-available window with play/pause, lock,
// hide and exit buttons, the state label, session timing and the scanner
// panel. It implements presenter.StateView and presenter.SessionView.
type ControlView struct {
	logger *slog.Logger

	Session *SessionStats
	Panel   *ScannerPanel

	stateLabel  *LabelWidget
	statusLabel *LabelWidget
	playBtn     *ButtonWidget
	lockBtn     *ButtonWidget
	hideBtn     *ButtonWidget
}

func NewControlView(logger *slog.Logger) *ControlView {
	return &ControlView{logger: logger}
}

// Build constructs the layout on the App root window.
func (v *ControlView) Build(kinds []string, region func() image.Rectangle, h ControlHandlers) {
	if v == nil {
		return
	}
	theme.InitStyles()
	App.WmTitle("cverlay")
	WmProtocol(App, "WM_DELETE_WINDOW", h.Exit)

	// Row 0: state and session
	top := Frame()
	Grid(top, Row(0), Column(0), Columnspan(3), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	v.stateLabel = top.Label(Txt("State: <none>"), Borderwidth(1), Relief("ridge"), Foreground("white"))
	Grid(v.stateLabel, In(top), Row(0), Column(0), Sticky("we"), Padx("0.4m"))
	v.Session = NewSessionStats(top, 0, 1)

	// Row 1: mode buttons
	btns := Frame()
	Grid(btns, Row(1), Column(0), Columnspan(3), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	v.playBtn = btns.Button(Txt("Play [Ctrl+R]"), Command(h.TogglePlay))
	Grid(v.playBtn, In(btns), Row(0), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	v.lockBtn = btns.Button(Txt("Lock [Ctrl+L]"), Command(h.ToggleLock))
	Grid(v.lockBtn, In(btns), Row(0), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	v.hideBtn = btns.Button(Txt("Hide [Ctrl+H]"), Command(h.ToggleHide))
	Grid(v.hideBtn, In(btns), Row(0), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	exitBtn := btns.Button(Txt("Exit [Ctrl+Q]"), Command(h.Exit))
	Grid(exitBtn, In(btns), Row(0), Column(3), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	darkBtn := btns.Button(Txt("Theme"), Command(func() { theme.ToggleDark() }))
	Grid(darkBtn, In(btns), Row(0), Column(4), Sticky("we"), Padx("0.2m"), Pady("0.2m"))

	// Rows 2+: scanner panel, then the status line
	v.Panel = NewScannerPanel(kinds, region, h.Scanners, v.logger)
	row := v.Panel.Build(2)
	v.statusLabel = Label(Txt(""), Anchor("w"), Foreground(theme.Current().Danger))
	Grid(v.statusLabel, Row(row), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
}

// SetStateLabel updates the state label text.
func (v *ControlView) SetStateLabel(text string) {
	if v != nil && v.stateLabel != nil {
		v.stateLabel.Configure(Txt(text))
	}
}

// SetMode relabels the toggle buttons after a mode change.
func (v *ControlView) SetMode(m overlay.Mode) {
	if v == nil || v.playBtn == nil {
		return
	}
	v.stateLabel.Configure(Background(theme.StateColor(m.Playing)))
	v.playBtn.Configure(Txt(pick(m.Playing, "Pause", "Play") + " [Ctrl+R]"))
	v.lockBtn.Configure(Txt(pick(m.Locked, "Unlock", "Lock") + " [Ctrl+L]"))
	v.hideBtn.Configure(Txt(pick(m.Hidden, "Show", "Hide") + " [Ctrl+H]"))
	if v.Panel != nil {
		v.Panel.SetEditable(!m.Locked)
	}
}

// SetStatus shows the last failure, or clears it.
func (v *ControlView) SetStatus(text string) {
	if v != nil && v.statusLabel != nil {
		v.statusLabel.Configure(Txt(text))
	}
}

// SetScanners refreshes the scanner list.
func (v *ControlView) SetScanners(ids []string) {
	if v != nil && v.Panel != nil {
		v.Panel.SetScanners(ids)
	}
}

// SetRegion shows the picked region in the scanner panel.
func (v *ControlView) SetRegion(r image.Rectangle) {
	if v != nil && v.Panel != nil {
		v.Panel.SetRegion(r)
	}
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
