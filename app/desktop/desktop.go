// Package desktop is the Tk frontend: the transparent overlay window plus
// the control window, driven by a render tick on the Tk event loop.
package desktop

import (
	"image"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/cverlay-go/app"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"
	"github.com/soocke/cverlay-go/ui/presenter"
	"github.com/soocke/cverlay-go/ui/view"
)

// Desktop implements app.Frontend on top of Tk.
type Desktop struct {
	c       *app.Container
	afterID string
	closed  bool
}

var _ app.Frontend = (*Desktop)(nil)

func New(c *app.Container) *Desktop { return &Desktop{c: c} }

// Run builds the windows and blocks in the Tk main loop until the overlay
// is quit.
func (d *Desktop) Run() {
	c := d.c
	ctrl := view.NewControlView(c.Logger)
	picker := view.NewRegionPicker(c.Screen, func(r image.Rectangle) { ctrl.SetRegion(r) })
	ctrl.Build(detect.Kinds(), picker.Selected, view.ControlHandlers{
		TogglePlay: c.Commands.TogglePlay,
		ToggleLock: c.Commands.ToggleLock,
		ToggleHide: c.Commands.ToggleHide,
		Exit:       c.Commands.Exit,
		Scanners: view.ScannerActions{
			Pick: picker.OpenOrFocus,
			Add: func(f model.ScannerForm) error {
				sc, err := f.Parse()
				if err != nil {
					return err
				}
				return c.AddScanner(sc)
			},
			Remove: c.RemoveScanner,
			Toggle: c.ToggleScanner,
		},
	})
	win := view.NewOverlayWindow(c.Screen)

	state := presenter.NewStatePresenter(c.State.Mode(), ctrl, c.ScannerIDs)
	unsubscribe := c.State.Subscribe(state.OnEvent)
	defer unsubscribe()
	removeSink := c.OnFailure(state.OnFailure)
	defer removeSink()

	interval, err := scan.FPSInterval(c.Config.AppMaxFPS)
	if err != nil {
		c.Logger.Warn("render fps invalid, using 30", "error", err)
		interval = time.Second / 30
	}
	loop := presenter.NewLoop(
		presenter.NewOverlayPresenter(c.State, images.NewPainter(c.Screen), model.NewRenderModel(), win),
		presenter.NewSessionPresenter(c.Session, c.State, ctrl.Session),
		state,
		nil,
	)
	loop.Schedule = func() {
		d.afterID = TclAfter(interval, func() { d.tick(loop, win) })
	}
	d.tick(loop, win)
	App.Wait()
}

// tick renders one frame, or tears the windows down once quit.
func (d *Desktop) tick(loop *presenter.Loop, win *view.OverlayWindow) {
	if d.closed {
		return
	}
	select {
	case <-d.c.State.Done():
		d.closed = true
		if d.afterID != "" {
			TclAfterCancel(d.afterID)
		}
		win.Close()
		Destroy(App)
		return
	default:
	}
	loop.Tick()
}
