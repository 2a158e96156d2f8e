package presenter

import (
	"fmt"
	"sync"
	"time"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
)

// failureShown is how long the last failure stays in the status line.
const failureShown = 5 * time.Second

// StateView shows the overlay mode in the control window.
type StateView interface {
	SetStateLabel(string)
	SetMode(overlay.Mode)
	SetStatus(string)
	SetScanners([]string)
}

// StatePresenter receives overlay events and failures from any goroutine
// and reflects the latest of each on the next Tick, which runs on the UI
// thread.
type StatePresenter struct {
	view StateView
	list func() []string

	mu          sync.Mutex
	pending     *overlay.Mode
	failure     *scan.Failure
	latest      overlay.Mode
	primed      bool
	listDirty   bool
	statusUntil time.Time
}

// NewStatePresenter shows initial on the first Tick. list supplies the
// scanner ids whenever scanners are added, removed or change state.
func NewStatePresenter(initial overlay.Mode, view StateView, list func() []string) *StatePresenter {
	return &StatePresenter{view: view, list: list, pending: &initial, listDirty: true}
}

// OnEvent is an overlay.Listener. It only queues; it never touches the view.
func (p *StatePresenter) OnEvent(ev overlay.Event) {
	if p == nil {
		return
	}
	p.mu.Lock()
	m := ev.Mode
	p.pending = &m
	switch ev.Kind {
	case overlay.EventScannerAdded, overlay.EventScannerRemoved, overlay.EventScannerState:
		p.listDirty = true
	}
	p.mu.Unlock()
}

// OnFailure queues a scheduler failure for the status line.
func (p *StatePresenter) OnFailure(f scan.Failure) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.failure = &f
	p.mu.Unlock()
}

// Tick flushes queued changes to the view.
func (p *StatePresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	pending, failure, listDirty := p.pending, p.failure, p.listDirty
	p.pending, p.failure, p.listDirty = nil, nil, false
	p.mu.Unlock()

	if listDirty && p.list != nil {
		p.view.SetScanners(p.list())
	}

	if pending != nil && (!p.primed || *pending != p.latest) {
		p.latest = *pending
		p.primed = true
		p.view.SetStateLabel("State: " + p.latest.String())
		p.view.SetMode(p.latest)
	}
	if failure != nil {
		p.view.SetStatus(fmt.Sprintf("%s: %v", failure.ScannerID, failure.Err))
		p.statusUntil = now.Add(failureShown)
		return
	}
	if !p.statusUntil.IsZero() && now.After(p.statusUntil) {
		p.view.SetStatus("")
		p.statusUntil = time.Time{}
	}
}
