package model

import (
	"sync"
	"time"
)

// SessionModel tracks how long detection has been playing: the current (or
// last) session and the accumulated total. The control window and the tray
// read it from different goroutines, so it is mutex guarded.
// The zero value is ready to use.
type SessionModel struct {
	mu       sync.Mutex
	active   bool
	start    time.Time
	last     time.Duration
	total    time.Duration
	sessions int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model with the current playing flag.
// Call periodically (for example, from a presenter tick).
func (m *SessionModel) OnTick(playing bool, now time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case playing && !m.active:
		m.active = true
		m.start = now
		m.last = 0
		m.sessions++
	case playing:
		m.last = now.Sub(m.start)
	case m.active:
		m.last = now.Sub(m.start)
		m.total += m.last
		m.active = false
	}
}

// Values returns the current session duration and the total playing time.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session = m.last
	total = m.total
	if m.active {
		total += session
	}
	return
}

// Sessions counts play periods started so far.
func (m *SessionModel) Sessions() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions
}
