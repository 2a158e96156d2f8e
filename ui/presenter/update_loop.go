package presenter

import "time"

// Loop aggregates feature presenters and drives one render tick.
//
// It is called on the UI thread at the app render cadence and invokes a
// scheduler callback for the next tick. The zero value is usable (methods
// are nil-safe).
type Loop struct {
	Overlay  *OverlayPresenter
	Session  *SessionPresenter
	State    *StatePresenter
	Schedule func()
}

func NewLoop(overlay *OverlayPresenter, sess *SessionPresenter, state *StatePresenter, schedule func()) *Loop {
	return &Loop{Overlay: overlay, Session: sess, State: state, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.State != nil {
		l.State.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Overlay != nil {
		l.Overlay.Render()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
