package hotkey

import (
	"slices"
	"testing"

	"github.com/soocke/cverlay-go/domain/overlay"
)

func TestParse(t *testing.T) {
	cases := []struct {
		combo string
		keys  []string
		ok    bool
	}{
		{"Ctrl+H", []string{"h", "ctrl"}, true},
		{"shift + CTRL + f5", []string{"f5", "shift", "ctrl"}, true},
		{"Control+Ctrl+q", []string{"q", "ctrl"}, true},
		{"Win+Space", []string{"space", "cmd"}, true},
		{"Ctrl+", nil, false},
		{"Ctrl+Shift", nil, false},
		{"a+b", nil, false},
	}
	for _, c := range cases {
		b, err := Parse(c.combo, "x")
		if (err == nil) != c.ok {
			t.Fatalf("%q: err = %v", c.combo, err)
		}
		if c.ok && !slices.Equal(b.Keys, c.keys) {
			t.Fatalf("%q: keys = %v want %v", c.combo, b.Keys, c.keys)
		}
	}
}

func TestDefaultBindings(t *testing.T) {
	got := DefaultBindings()
	want := map[string]string{
		"h": overlay.CmdToggleHide,
		"l": overlay.CmdToggleLock,
		"r": overlay.CmdTogglePlay,
		"q": overlay.CmdQuit,
	}
	if len(got) != len(want) {
		t.Fatalf("bindings = %+v", got)
	}
	for _, b := range got {
		if want[b.Keys[0]] != b.Command || b.Keys[1] != "ctrl" {
			t.Fatalf("unexpected binding %+v", b)
		}
	}
	known := overlay.CommandNames()
	for _, b := range got {
		if !slices.Contains(known, b.Command) {
			t.Fatalf("binding %q maps to unknown command %q", b.Combo, b.Command)
		}
	}
}
