package view

import (
	"time"

	"github.com/soocke/cverlay-go/ui/model"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows the playing time of the current session and in total.
type SessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
}

// NewSessionStats grids the session label at (row, startCol) and the total
// label next to it, inside parent.
func NewSessionStats(parent *FrameWidget, row, startCol int) *SessionStats {
	s := &SessionStats{sessionLbl: parent.Label(Width(18), Anchor("w")), totalLbl: parent.Label(Width(18), Anchor("w"))}
	Grid(s.sessionLbl, In(parent), Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
	Grid(s.totalLbl, In(parent), Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	s.SetSession(0, 0)
	return s
}

// SetSession implements presenter.SessionView.
func (s *SessionStats) SetSession(session, total time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Session: " + model.FormatClock(session)))
	s.totalLbl.Configure(Txt("Total: " + model.FormatClock(total)))
}
