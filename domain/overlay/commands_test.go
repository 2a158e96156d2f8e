package overlay

import (
	"errors"
	"testing"
)

func TestRun_NamedCommands(t *testing.T) {
	s := newTestState(t, false)
	steps := []struct {
		name string
		want Mode
	}{
		{CmdPlay, Mode{Playing: true}},
		{CmdToggleLock, Mode{Playing: true, Locked: true}},
		{CmdHide, Mode{Playing: true, Locked: true, Hidden: true}},
		{CmdTogglePlay, Mode{Locked: true, Hidden: true}},
		{CmdShow, Mode{Locked: true}},
		{CmdUnlock, Mode{}},
		{CmdToggleHide, Mode{Hidden: true}},
	}
	for _, st := range steps {
		got, err := Run(s, st.name)
		if err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if got != st.want {
			t.Fatalf("%s: mode = %+v want %+v", st.name, got, st.want)
		}
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	s := newTestState(t, false)
	before := s.Mode()
	if _, err := Run(s, "explode"); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if s.Mode() != before {
		t.Fatalf("unknown command changed mode")
	}
}

func TestRun_Quit(t *testing.T) {
	s := newTestState(t, false)
	if _, err := Run(s, CmdQuit); err != nil {
		t.Fatalf("quit: %v", err)
	}
	select {
	case <-s.Done():
	default:
		t.Fatalf("quit did not close Done")
	}
}

func TestCommandNames_Sorted(t *testing.T) {
	names := CommandNames()
	if len(names) != 10 || names[0] != CmdHide || names[len(names)-1] != CmdUnlock {
		t.Fatalf("names = %v", names)
	}
}
