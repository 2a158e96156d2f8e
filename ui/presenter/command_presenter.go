package presenter

import (
	"log/slog"

	"github.com/soocke/cverlay-go/domain/overlay"
)

// CommandPresenter is the single entry for user commands coming from the
// control window buttons, hotkeys and the tray menu.
type CommandPresenter struct {
	cmds   overlay.Commands
	logger *slog.Logger
}

func NewCommandPresenter(cmds overlay.Commands, logger *slog.Logger) *CommandPresenter {
	return &CommandPresenter{cmds: cmds, logger: logger}
}

// Handle runs a named command. Unknown names are logged and ignored.
func (c *CommandPresenter) Handle(name string) {
	if c == nil || c.cmds == nil {
		return
	}
	mode, err := overlay.Run(c.cmds, name)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("command rejected", "command", name, "error", err)
		}
		return
	}
	if c.logger != nil {
		c.logger.Debug("command", "command", name, "mode", mode.String())
	}
}

// Handler returns a func bound to name, for button and menu callbacks.
func (c *CommandPresenter) Handler(name string) func() {
	return func() { c.Handle(name) }
}

func (c *CommandPresenter) TogglePlay() { c.Handle(overlay.CmdTogglePlay) }
func (c *CommandPresenter) ToggleLock() { c.Handle(overlay.CmdToggleLock) }
func (c *CommandPresenter) ToggleHide() { c.Handle(overlay.CmdToggleHide) }
func (c *CommandPresenter) Exit() { c.Handle(overlay.CmdQuit) }
