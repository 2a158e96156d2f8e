package presenter

import (
	"time"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/ui/model"
)

// ModeSource reports the current overlay mode.
type ModeSource interface{ Mode() overlay.Mode }

// SessionView displays formatted session and total durations.
type SessionView interface {
	SetSession(session, total time.Duration)
}

// SessionPresenter feeds the playing flag into the session model and pushes
// the durations to the view.
type SessionPresenter struct {
	sess  *model.SessionModel
	modes ModeSource
	view  SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, modes ModeSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, modes: modes, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.modes == nil {
		return
	}
	p.sess.OnTick(p.modes.Mode().Playing, now)
	if p.view == nil {
		return
	}
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
}
