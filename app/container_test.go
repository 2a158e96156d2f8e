package app

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/capture"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type fakeHotkeys struct{ started, stopped atomic.Int32 }

func (f *fakeHotkeys) Start() { f.started.Add(1) }
func (f *fakeHotkeys) Stop() { f.stopped.Add(1) }

func staticScanner(id string, region scan.Region) config.ScannerConfig {
	return config.ScannerConfig{
		ID:        id,
		Region:    region,
		Threshold: 0.5,
		Detector: detect.Spec{Kind: "static", Detections: []scan.Detection{{
			Label:      "hp",
			Confidence: 0.9,
			Box:        scan.Region{X: 2, Y: 2, Width: 10, Height: 5},
		}}},
	}
}

func newContainer(t *testing.T, cfg *config.Config, path string) *Container {
	t.Helper()
	backend, err := capture.NewImageBackend(image.NewRGBA(image.Rect(0, 0, 200, 100)))
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	c, err := BuildContainer(cfg, path, discardLogger, capture.NewSource(backend, nil))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuildContainer_RegistersConfiguredScanners(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanners = []config.ScannerConfig{
		staticScanner("a", scan.Region{X: 0, Y: 0, Width: 50, Height: 50}),
		staticScanner("b", scan.Region{X: 60, Y: 0, Width: 50, Height: 50}),
	}
	cfg.Scanners[1].Paused = true
	c := newContainer(t, cfg, "")
	if ids := c.ScannerIDs(); len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v", ids)
	}
	if s, _ := c.State.Scanner("b"); s.State() != scan.StatePaused {
		t.Fatalf("paused flag not applied")
	}
	if c.Screen != image.Rect(0, 0, 200, 100) {
		t.Fatalf("screen = %v", c.Screen)
	}
	if c.Web != nil {
		t.Fatalf("dashboard should be off by default")
	}
}

func TestBuildContainer_RejectsBadScanner(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scanners = []config.ScannerConfig{{ID: "x", Region: scan.Region{Width: 5, Height: 5}, Detector: detect.Spec{Kind: "laser"}}}
	backend, _ := capture.NewImageBackend(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if _, err := BuildContainer(cfg, "", discardLogger, capture.NewSource(backend, nil)); !errors.Is(err, scan.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRun_DetectsUntilContextCancelled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxFPS = 50
	cfg.StartPlaying = true
	cfg.Scanners = []config.ScannerConfig{staticScanner("a", scan.Region{X: 10, Y: 10, Width: 40, Height: 20})}
	c := newContainer(t, cfg, "")
	hk := &fakeHotkeys{}
	c.Hotkeys = hk

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, c, nil) }()

	s, _ := c.State.Scanner("a")
	waitFor(t, "a committed result", func() bool { return s.LastResult().Sequence > 0 })
	if r := s.LastResult(); !r.Found || len(r.Detections) != 1 {
		t.Fatalf("result = %+v", r)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if hk.started.Load() != 1 || hk.stopped.Load() != 1 {
		t.Fatalf("hotkeys started=%d stopped=%d", hk.started.Load(), hk.stopped.Load())
	}
	if c.Scheduler.State() != scan.SchedStopped {
		t.Fatalf("scheduler still %v", c.Scheduler.State())
	}
}

func TestRun_StartsPausedByDefault(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxFPS = 50
	cfg.Scanners = []config.ScannerConfig{staticScanner("a", scan.Region{Width: 40, Height: 20})}
	c := newContainer(t, cfg, "")
	done := make(chan error, 1)
	go func() { done <- Run(context.Background(), c, nil) }()

	waitFor(t, "scheduler paused", func() bool { return c.Scheduler.State() == scan.SchedPaused })
	time.Sleep(60 * time.Millisecond)
	if s, _ := c.State.Scanner("a"); s.LastResult().Sequence != 0 {
		t.Fatalf("paused overlay ran detection")
	}
	c.Commands.TogglePlay()
	s, _ := c.State.Scanner("a")
	waitFor(t, "detection after play", func() bool { return s.LastResult().Sequence > 0 })

	c.Commands.Exit()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestContainer_FailuresReachSinks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxFPS = 50
	cfg.StartPlaying = true
	// outside the 200x100 screen
	cfg.Scanners = []config.ScannerConfig{staticScanner("off", scan.Region{X: 300, Y: 0, Width: 10, Height: 10})}
	c := newContainer(t, cfg, "")

	var mu sync.Mutex
	var got []scan.Failure
	remove := c.OnFailure(func(f scan.Failure) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	})
	defer remove()

	c.Start()
	waitFor(t, "failure", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	})
	if err := c.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if got[0].ScannerID != "off" || !errors.Is(got[0].Err, scan.ErrCapture) {
		t.Fatalf("failure = %+v", got[0])
	}
	if c.Failures.Count() == 0 {
		t.Fatalf("watcher did not count failures")
	}
}

func TestContainer_AddRemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := newContainer(t, config.DefaultConfig(), path)

	sc := staticScanner("", scan.Region{Width: 20, Height: 20})
	if err := c.AddScanner(sc); err != nil {
		t.Fatalf("add: %v", err)
	}
	ids := c.ScannerIDs()
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("ids = %v", ids)
	}
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Scanners) != 1 || loaded.Scanners[0].ID != ids[0] {
		t.Fatalf("persisted %+v", loaded.Scanners)
	}

	if err := c.ToggleScanner(ids[0]); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s, _ := c.State.Scanner(ids[0]); s.State() != scan.StatePaused {
		t.Fatalf("toggle did not pause")
	}
	if err := c.ToggleScanner("nope"); !errors.Is(err, scan.ErrUnknownScanner) {
		t.Fatalf("toggle unknown: %v", err)
	}

	if err := c.RemoveScanner(ids[0]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := c.RemoveScanner(ids[0]); !errors.Is(err, scan.ErrUnknownScanner) {
		t.Fatalf("second remove: %v", err)
	}
	loaded, _ = config.Load(path)
	if len(loaded.Scanners) != 0 {
		t.Fatalf("removal not persisted: %+v", loaded.Scanners)
	}
}

func TestContainer_DashboardWired(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dashboard = "127.0.0.1:0"
	c := newContainer(t, cfg, "")
	if c.Web == nil {
		t.Fatalf("dashboard not built")
	}
}
