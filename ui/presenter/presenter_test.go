package presenter

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
	"github.com/soocke/cverlay-go/ui/images"
	"github.com/soocke/cverlay-go/ui/model"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeSource struct {
	mu    sync.Mutex
	snap  overlay.Snapshot
	reads int
}

func (f *fakeSource) Snapshot() overlay.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.snap
}

func (f *fakeSource) Mode() overlay.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap.Mode
}

func (f *fakeSource) set(s overlay.Snapshot) {
	f.mu.Lock()
	f.snap = s
	f.mu.Unlock()
}

type fakeOverlayView struct{ shown []image.Image }

func (v *fakeOverlayView) ShowOverlay(img image.Image) { v.shown = append(v.shown, img) }

type fakeStateView struct {
	labels   []string
	modes    []overlay.Mode
	status   []string
	scanners [][]string
}

func (v *fakeStateView) SetStateLabel(s string) { v.labels = append(v.labels, s) }
func (v *fakeStateView) SetMode(m overlay.Mode) { v.modes = append(v.modes, m) }
func (v *fakeStateView) SetStatus(s string) { v.status = append(v.status, s) }
func (v *fakeStateView) SetScanners(ids []string) { v.scanners = append(v.scanners, ids) }

type fakeSessionView struct{ session, total time.Duration }

func (v *fakeSessionView) SetSession(s, t time.Duration) {
	v.session, v.total = s, t
}

func newState(t *testing.T) *overlay.State {
	t.Helper()
	s, err := overlay.NewState(overlay.Options{TargetFPS: 5, Logger: discardLogger})
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	return s
}

func TestOverlayPresenter_RepaintsOnlyOnChange(t *testing.T) {
	src := &fakeSource{snap: overlay.Snapshot{Scanners: []overlay.ScannerView{{ID: "a", State: "running", Sequence: 1}}}}
	view := &fakeOverlayView{}
	p := NewOverlayPresenter(src, images.NewPainter(image.Rect(0, 0, 64, 64)), nil, view)

	p.Render()
	p.Render()
	if src.reads != 2 {
		t.Fatalf("expected one snapshot read per render, got %d", src.reads)
	}
	if len(view.shown) != 1 {
		t.Fatalf("unchanged snapshot repainted: %d frames", len(view.shown))
	}
	next := src.Snapshot()
	next.Scanners = []overlay.ScannerView{{ID: "a", State: "running", Sequence: 2}}
	src.set(next)
	p.Render()
	if len(view.shown) != 2 {
		t.Fatalf("new result not painted")
	}
	p.Invalidate()
	p.Render()
	if len(view.shown) != 3 {
		t.Fatalf("invalidate did not force a repaint")
	}
}

func TestOverlayPresenter_NilSafe(t *testing.T) {
	var p *OverlayPresenter
	p.Render()
	p.Invalidate()
	NewOverlayPresenter(nil, nil, model.NewRenderModel(), nil).Render()
}

func TestStatePresenter_FlushesLatestOnTick(t *testing.T) {
	view := &fakeStateView{}
	p := NewStatePresenter(overlay.Mode{}, view, nil)
	now := time.Unix(100, 0)
	p.Tick(now)
	if len(view.labels) != 1 || view.labels[0] != "State: paused" {
		t.Fatalf("initial label = %v", view.labels)
	}
	p.OnEvent(overlay.Event{Kind: overlay.EventPlay, Mode: overlay.Mode{Playing: true}})
	p.OnEvent(overlay.Event{Kind: overlay.EventLock, Mode: overlay.Mode{Playing: true, Locked: true}})
	if len(view.labels) != 1 {
		t.Fatalf("events must not touch the view before Tick")
	}
	p.Tick(now)
	if len(view.labels) != 2 || view.labels[1] != "State: playing,locked" {
		t.Fatalf("labels = %v", view.labels)
	}
	if !view.modes[1].Locked {
		t.Fatalf("mode not forwarded")
	}
	// same mode again: no update
	p.OnEvent(overlay.Event{Kind: overlay.EventScannerAdded, Mode: overlay.Mode{Playing: true, Locked: true}})
	p.Tick(now)
	if len(view.labels) != 2 {
		t.Fatalf("unchanged mode re-rendered")
	}
}

func TestStatePresenter_FailureStatusExpires(t *testing.T) {
	view := &fakeStateView{}
	p := NewStatePresenter(overlay.Mode{}, view, nil)
	now := time.Unix(100, 0)
	p.OnFailure(scan.Failure{ScannerID: "bar", Err: errors.New("boom")})
	p.Tick(now)
	if len(view.status) != 1 || view.status[0] != "bar: boom" {
		t.Fatalf("status = %v", view.status)
	}
	p.Tick(now.Add(time.Second))
	if len(view.status) != 1 {
		t.Fatalf("status cleared too early")
	}
	p.Tick(now.Add(failureShown + time.Second))
	if len(view.status) != 2 || view.status[1] != "" {
		t.Fatalf("status not cleared: %v", view.status)
	}
}

func TestStatePresenter_SubscribedToState(t *testing.T) {
	s := newState(t)
	view := &fakeStateView{}
	list := func() []string {
		var ids []string
		for _, sc := range s.Scanners() {
			ids = append(ids, sc.ID())
		}
		return ids
	}
	p := NewStatePresenter(s.Mode(), view, list)
	unsubscribe := s.Subscribe(p.OnEvent)
	defer unsubscribe()

	p.Tick(time.Now())
	if len(view.scanners) != 1 || len(view.scanners[0]) != 0 {
		t.Fatalf("initial scanner list = %v", view.scanners)
	}
	s.Hide()
	p.Tick(time.Now())
	if got := view.modes[len(view.modes)-1]; !got.Hidden {
		t.Fatalf("hide not reflected: %+v", got)
	}
	if len(view.scanners) != 1 {
		t.Fatalf("mode change should not refresh the scanner list")
	}
	det := scan.DetectorFunc(func(context.Context, image.Image) ([]scan.Detection, error) { return nil, nil })
	if _, err := s.CreateScanner("bar", det, scan.Region{Width: 10, Height: 10}, 0.5); err != nil {
		t.Fatalf("create: %v", err)
	}
	p.Tick(time.Now())
	if len(view.scanners) != 2 || len(view.scanners[1]) != 1 || view.scanners[1][0] != "bar" {
		t.Fatalf("scanner list not refreshed: %v", view.scanners)
	}
}

func TestCommandPresenter_Handle(t *testing.T) {
	s := newState(t)
	c := NewCommandPresenter(s, discardLogger)

	c.TogglePlay()
	c.ToggleLock()
	c.ToggleHide()
	if m := s.Mode(); !m.Playing || !m.Locked || !m.Hidden {
		t.Fatalf("mode = %+v", m)
	}
	c.Handler(overlay.CmdShow)()
	if s.Mode().Hidden {
		t.Fatalf("handler not bound")
	}
	c.Handle("nope")
	if m := s.Mode(); !m.Playing || !m.Locked {
		t.Fatalf("unknown command changed mode: %+v", m)
	}
	c.Exit()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatalf("exit did not quit")
	}
}

func TestCommandPresenter_NilSafe(t *testing.T) {
	var c *CommandPresenter
	c.Handle(overlay.CmdPlay)
	NewCommandPresenter(nil, nil).Handle(overlay.CmdPlay)
}

func TestFailureWatcher_DrainsAndForwards(t *testing.T) {
	ch := make(chan scan.Failure, 4)
	var mu sync.Mutex
	var seen []string
	w := NewFailureWatcher(ch, discardLogger, func(f scan.Failure) {
		mu.Lock()
		seen = append(seen, f.ScannerID)
		mu.Unlock()
	})
	w.Start()
	w.Start()
	ch <- scan.Failure{ScannerID: "a", Err: errors.New("one")}
	ch <- scan.Failure{ScannerID: "a", Err: errors.New("two")}
	ch <- scan.Failure{ScannerID: "b", Err: errors.New("three")}

	deadline := time.Now().Add(time.Second)
	for w.Count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()
	if w.Count() != 3 {
		t.Fatalf("count = %d", w.Count())
	}
	if f, ok := w.Latest("a"); !ok || f.Err.Error() != "two" {
		t.Fatalf("latest a = %+v %v", f, ok)
	}
	if _, ok := w.Latest("c"); ok {
		t.Fatalf("unexpected failure for c")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("forwarded %v", seen)
	}
}

func TestFailureWatcher_RestartAfterStop(t *testing.T) {
	ch := make(chan scan.Failure, 1)
	w := NewFailureWatcher(ch, nil, nil)
	w.Start()
	w.Stop()
	w.Start()
	ch <- scan.Failure{ScannerID: "x", Err: errors.New("late")}
	deadline := time.Now().Add(time.Second)
	for w.Count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	if w.Count() != 1 {
		t.Fatalf("restarted watcher did not drain")
	}
}

func TestSessionPresenter_TracksPlaying(t *testing.T) {
	src := &fakeSource{}
	view := &fakeSessionView{}
	p := NewSessionPresenter(model.NewSessionModel(), src, view)
	base := time.Unix(0, 0)
	src.set(overlay.Snapshot{Mode: overlay.Mode{Playing: true}})
	p.Tick(base)
	p.Tick(base.Add(4 * time.Second))
	src.set(overlay.Snapshot{})
	p.Tick(base.Add(6 * time.Second))
	if view.session != 6*time.Second || view.total != 6*time.Second {
		t.Fatalf("session=%v total=%v", view.session, view.total)
	}
}

func TestLoop_TickDrivesPresenters(t *testing.T) {
	src := &fakeSource{snap: overlay.Snapshot{Mode: overlay.Mode{Playing: true}}}
	ov := &fakeOverlayView{}
	sv := &fakeStateView{}
	scheduled := 0
	l := NewLoop(
		NewOverlayPresenter(src, images.NewPainter(image.Rect(0, 0, 16, 16)), nil, ov),
		NewSessionPresenter(model.NewSessionModel(), src, &fakeSessionView{}),
		NewStatePresenter(overlay.Mode{Playing: true}, sv, nil),
		func() { scheduled++ },
	)
	l.Tick()
	if len(ov.shown) != 1 || len(sv.labels) != 1 || scheduled != 1 {
		t.Fatalf("shown=%d labels=%d scheduled=%d", len(ov.shown), len(sv.labels), scheduled)
	}
	var nilLoop *Loop
	nilLoop.Tick()
}
