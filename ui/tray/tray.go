// Package tray is the system tray command surface used when the overlay
// runs without windows. It needs cgo on Linux.
package tray

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/getlantern/systray"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"
)

const tooltipInterval = time.Second

// Tray shows play state in its icon and session timing in its tooltip, and
// forwards menu clicks to handle.
type Tray struct {
	state   *overlay.State
	session *model.SessionModel
	handle  func(command string)
	logger  *slog.Logger
}

func New(state *overlay.State, session *model.SessionModel, handle func(string), logger *slog.Logger) *Tray {
	return &Tray{state: state, session: session, handle: handle, logger: logger}
}

// Run blocks on the tray event loop until Quit. It must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit ends Run.
func (t *Tray) Quit() { systray.Quit() }

func icon(playing bool) []byte {
	if runtime.GOOS == "windows" {
		return images.TrayIconICO(playing)
	}
	return images.TrayIcon(playing)
}

func (t *Tray) onReady() {
	mode := t.state.Mode()
	systray.SetIcon(icon(mode.Playing))
	systray.SetTitle("cverlay")
	systray.SetTooltip("cverlay")

	mPlay := systray.AddMenuItemCheckbox("Playing", "Run or pause detection (Ctrl+R)", mode.Playing)
	mLock := systray.AddMenuItemCheckbox("Locked", "Lock the overlay (Ctrl+L)", mode.Locked)
	mHide := systray.AddMenuItemCheckbox("Hidden", "Hide the overlay (Ctrl+H)", mode.Hidden)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit cverlay (Ctrl+Q)")

	apply := func(m overlay.Mode) {
		setChecked(mPlay, m.Playing)
		setChecked(mLock, m.Locked)
		setChecked(mHide, m.Hidden)
		systray.SetIcon(icon(m.Playing))
	}
	modes := make(chan overlay.Mode, 8)
	unsubscribe := t.state.Subscribe(func(ev overlay.Event) {
		select {
		case modes <- ev.Mode:
		default:
		}
	})

	go func() {
		defer unsubscribe()
		ticker := time.NewTicker(tooltipInterval)
		defer ticker.Stop()
		for {
			select {
			case <-mPlay.ClickedCh:
				t.handle(overlay.CmdTogglePlay)
			case <-mLock.ClickedCh:
				t.handle(overlay.CmdToggleLock)
			case <-mHide.ClickedCh:
				t.handle(overlay.CmdToggleHide)
			case <-mQuit.ClickedCh:
				t.handle(overlay.CmdQuit)
			case m := <-modes:
				apply(m)
			case now := <-ticker.C:
				m := t.state.Mode()
				t.session.OnTick(m.Playing, now)
				s, total := t.session.Values()
				systray.SetTooltip(model.SessionSummary(s, total, t.session.Sessions(), m.String()))
			case <-t.state.Done():
				systray.Quit()
				return
			}
		}
	}()
	if t.logger != nil {
		t.logger.Info("tray ready")
	}
}

func (t *Tray) onExit() {
	if t.logger != nil {
		t.logger.Info("tray closed")
	}
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}
