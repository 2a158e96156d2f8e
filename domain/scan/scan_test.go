package scan

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// staticDetector always returns the same detections.
func staticDetector(dets ...Detection) Detector {
	return DetectorFunc(func(context.Context, image.Image) ([]Detection, error) {
		return dets, nil
	})
}

// fakeFrames is a FrameSource returning a blank frame and counting calls.
type fakeFrames struct {
	captures atomic.Int64
	recycled atomic.Int64
	err      error
}

func (f *fakeFrames) Capture(_ context.Context, r Region) (image.Image, error) {
	f.captures.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)), nil
}

func (f *fakeFrames) Recycle(image.Image) { f.recycled.Add(1) }

// scannerList is a minimal ScannerSource.
type scannerList struct {
	mu   sync.Mutex
	list []*Scanner
}

func (l *scannerList) Scanners() []*Scanner {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list
}

func mustRegion(t *testing.T, x, y, w, h int) Region {
	t.Helper()
	r, err := NewRegion(x, y, w, h)
	if err != nil {
		t.Fatalf("region: %v", err)
	}
	return r
}

func mustScanner(t *testing.T, id string, d Detector, threshold float64, opts ...ScannerOption) *Scanner {
	t.Helper()
	s, err := NewScanner(id, mustRegion(t, 0, 0, 64, 64), d, threshold, opts...)
	if err != nil {
		t.Fatalf("scanner %s: %v", id, err)
	}
	return s
}

// waitFor polls cond until it holds or timeout elapses.
func waitFor(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}
