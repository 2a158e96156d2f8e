// Package hotkey maps global key combinations onto overlay commands.
package hotkey

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soocke/cverlay-go/domain/overlay"
)

// Binding triggers Command when all Keys are held.
type Binding struct {
	Combo   string   // as written by the user, e.g. "Ctrl+H"
	Keys    []string // normalised: main key first, then modifiers
	Command string
}

// Defaults are the overlay hotkeys.
var Defaults = []struct{ Combo, Command string }{
	{"Ctrl+H", overlay.CmdToggleHide},
	{"Ctrl+L", overlay.CmdToggleLock},
	{"Ctrl+R", overlay.CmdTogglePlay},
	{"Ctrl+Q", overlay.CmdQuit},
}

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"win":     "cmd",
	"cmd":     "cmd",
	"super":   "cmd",
}

// Parse normalises a combo like "Ctrl+Shift+h". Exactly one non-modifier
// key is required.
func Parse(combo, command string) (Binding, error) {
	var key string
	var mods []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("hotkey %q: empty key", combo)
		}
		if m, ok := modifiers[part]; ok {
			if !slices.Contains(mods, m) {
				mods = append(mods, m)
			}
			continue
		}
		if key != "" {
			return Binding{}, fmt.Errorf("hotkey %q: more than one key", combo)
		}
		key = part
	}
	if key == "" {
		return Binding{}, fmt.Errorf("hotkey %q: no key", combo)
	}
	return Binding{Combo: combo, Keys: append([]string{key}, mods...), Command: command}, nil
}

// DefaultBindings parses Defaults.
func DefaultBindings() []Binding {
	out := make([]Binding, 0, len(Defaults))
	for _, d := range Defaults {
		b, err := Parse(d.Combo, d.Command)
		if err != nil {
			panic(err)
		}
		out = append(out, b)
	}
	return out
}
