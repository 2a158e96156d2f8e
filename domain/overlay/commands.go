package overlay

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownCommand is returned by Run for names outside CommandNames.
var ErrUnknownCommand = errors.New("unknown command")

// Command names shared by hotkeys, tray, control window and the web API.
const (
	CmdPlay       = "play"
	CmdPause      = "pause"
	CmdTogglePlay = "toggle_play"
	CmdLock       = "lock"
	CmdUnlock     = "unlock"
	CmdToggleLock = "toggle_lock"
	CmdHide       = "hide"
	CmdShow       = "show"
	CmdToggleHide = "toggle_hide"
	CmdQuit       = "quit"
)

var commandTable = map[string]func(Commands){
	CmdPlay:       func(c Commands) { c.Play() },
	CmdPause:      func(c Commands) { c.Pause() },
	CmdTogglePlay: func(c Commands) { c.TogglePlay() },
	CmdLock:       func(c Commands) { c.Lock() },
	CmdUnlock:     func(c Commands) { c.Unlock() },
	CmdToggleLock: func(c Commands) { c.ToggleLock() },
	CmdHide:       func(c Commands) { c.Hide() },
	CmdShow:       func(c Commands) { c.Show() },
	CmdToggleHide: func(c Commands) { c.ToggleHide() },
	CmdQuit:       func(c Commands) { c.Quit() },
}

// CommandNames lists the names Run accepts, sorted.
func CommandNames() []string {
	names := make([]string, 0, len(commandTable))
	for n := range commandTable {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Run executes the named mode command and returns the resulting mode.
func Run(c Commands, name string) (Mode, error) {
	fn, ok := commandTable[name]
	if !ok {
		return Mode{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	fn(c)
	return c.Snapshot().Mode, nil
}
