package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"testing"

	"github.com/soocke/cverlay-go/domain/scan"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// mockBackend serves pooled frames for a fixed screen.
type mockBackend struct {
	screen image.Rectangle
	grabs  int
	err    error
}

func (m *mockBackend) Name() string { return "mock" }
func (m *mockBackend) Bounds() (image.Rectangle, error) { return m.screen, nil }

func (m *mockBackend) Grab(r image.Rectangle) (*image.RGBA, error) {
	m.grabs++
	if m.err != nil {
		return nil, m.err
	}
	return acquireFrame(image.Rect(0, 0, r.Dx(), r.Dy())), nil
}

func TestSource_CaptureWithinBounds(t *testing.T) {
	b := &mockBackend{screen: image.Rect(0, 0, 1920, 1080)}
	s := NewSource(b, discardLogger)
	img, err := s.Capture(context.Background(), scan.Region{X: 100, Y: 100, Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	s.Recycle(img)
	st := s.Stats()
	if st.Captures != 1 || st.Recycled != 1 || st.Backend != "mock" || st.LastCapture.IsZero() {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSource_OutOfBoundsIsCaptureError(t *testing.T) {
	b := &mockBackend{screen: image.Rect(0, 0, 800, 600)}
	s := NewSource(b, discardLogger)
	_, err := s.Capture(context.Background(), scan.Region{X: 790, Y: 0, Width: 20, Height: 20})
	if !errors.Is(err, scan.ErrCapture) {
		t.Fatalf("expected capture error, got %v", err)
	}
	if b.grabs != 0 {
		t.Fatalf("backend grabbed an out of bounds region")
	}
}

func TestSource_BackendErrorWrapped(t *testing.T) {
	boom := errors.New("device lost")
	s := NewSource(&mockBackend{screen: image.Rect(0, 0, 100, 100), err: boom}, nil)
	_, err := s.Capture(context.Background(), scan.Region{Width: 10, Height: 10})
	if !errors.Is(err, scan.ErrCapture) || !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
	if s.Stats().Failures != 1 {
		t.Fatalf("failure not counted")
	}
}

func TestSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSource(&mockBackend{screen: image.Rect(0, 0, 100, 100)}, nil)
	if _, err := s.Capture(ctx, scan.Region{Width: 10, Height: 10}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestAcquireFrame_ReusesRecycledBuffer(t *testing.T) {
	f := acquireFrame(image.Rect(0, 0, 10, 10))
	if len(f.Pix) != 400 || f.Stride != 40 {
		t.Fatalf("frame geometry pix=%d stride=%d", len(f.Pix), f.Stride)
	}
	recycleFrame(f)
	g := acquireFrame(image.Rect(0, 0, 5, 5))
	if len(g.Pix) != 100 || g.Stride != 20 || g.Rect != image.Rect(0, 0, 5, 5) {
		t.Fatalf("resized frame pix=%d stride=%d rect=%v", len(g.Pix), g.Stride, g.Rect)
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	if _, err := NewBackend("bogus", false); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
