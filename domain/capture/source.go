package capture

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/cverlay-go/domain/scan"
)

const captureStatsLogInterval = 5 * time.Second

// CaptureStats summarises capture behaviour for instrumentation.
type CaptureStats struct {
	Backend          string        `json:"backend"`
	Captures         uint64        `json:"captures"`
	Failures         uint64        `json:"failures"`
	Recycled         uint64        `json:"recycled"`
	AvgCapture       time.Duration `json:"avg_capture"`
	AvgCaptureMicros float64       `json:"avg_capture_micros"`
	LastCapture      time.Time     `json:"last_capture"`
}

// Source is a scan.FrameSource over a screen Backend. It is safe for
// concurrent use by scheduler workers.
type Source struct {
	backend Backend
	logger  *slog.Logger

	captures     atomic.Uint64
	failures     atomic.Uint64
	recycled     atomic.Uint64
	captureNanos atomic.Uint64
	lastCapture  atomic.Int64
	lastLog      atomic.Int64
}

var (
	_ scan.FrameSource = (*Source)(nil)
	_ scan.Recycler    = (*Source)(nil)
)

// NewSource wraps backend. A nil logger disables logging.
func NewSource(backend Backend, logger *slog.Logger) *Source {
	return &Source{backend: backend, logger: logger}
}

// Open resolves the named backend and wraps it.
func Open(name string, hardwareAccel bool, logger *slog.Logger) (*Source, error) {
	b, err := NewBackend(name, hardwareAccel)
	if err != nil {
		if hardwareAccel && name == "" {
			if logger != nil {
				logger.Warn("hardware capture unavailable, falling back", "error", err)
			}
			b, err = NewBackend(BackendScreen, false)
		}
		if err != nil {
			return nil, err
		}
	}
	if logger != nil {
		logger.Info("capture backend", "backend", b.Name())
	}
	return NewSource(b, logger), nil
}

func (s *Source) Backend() string { return s.backend.Name() }

// Bounds is the capturable screen rectangle.
func (s *Source) Bounds() (image.Rectangle, error) { return s.backend.Bounds() }

// Capture grabs region r. Regions outside the screen bounds fail with
// scan.ErrCapture.
func (s *Source) Capture(ctx context.Context, r scan.Region) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, scan.CaptureError(r, err)
	}
	if err := r.Validate(); err != nil {
		return nil, scan.CaptureError(r, err)
	}
	bounds, err := s.backend.Bounds()
	if err != nil {
		s.failures.Add(1)
		return nil, scan.CaptureError(r, err)
	}
	rect := r.Rect()
	if !rect.In(bounds) {
		s.failures.Add(1)
		return nil, scan.CaptureError(r, errors.New("region outside screen "+bounds.String()))
	}

	start := time.Now()
	img, err := s.backend.Grab(rect)
	if err != nil {
		s.failures.Add(1)
		if s.logger != nil {
			s.logger.Error("capture region", "region", r.String(), "error", err)
		}
		return nil, scan.CaptureError(r, err)
	}
	s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.captures.Add(1)
	s.lastCapture.Store(time.Now().UnixNano())
	s.maybeLogStats()
	return img, nil
}

// Recycle returns a frame produced by Capture to the pool.
func (s *Source) Recycle(img image.Image) {
	if rgba, ok := img.(*image.RGBA); ok {
		recycleFrame(rgba)
		s.recycled.Add(1)
	}
}

func (s *Source) Stats() CaptureStats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	var last time.Time
	if ns := s.lastCapture.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return CaptureStats{
		Backend:          s.backend.Name(),
		Captures:         captures,
		Failures:         s.failures.Load(),
		Recycled:         s.recycled.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      last,
	}
}

func (s *Source) maybeLogStats() {
	if s.logger == nil {
		return
	}
	now := time.Now().UnixNano()
	last := s.lastLog.Load()
	if now-last < int64(captureStatsLogInterval) || !s.lastLog.CompareAndSwap(last, now) {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"backend", stats.Backend,
		"captures", stats.Captures,
		"failures", stats.Failures,
		"recycled", stats.Recycled,
		"avg_capture", stats.AvgCapture,
	)
}
