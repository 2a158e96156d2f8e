package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"sync/atomic"
	"time"
)

// State is the per-scanner run state.
type State int32

const (
	StateRunning State = iota
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Result is one committed detection cycle. A Result is immutable once
// published; readers must not modify Detections.
type Result struct {
	Detections  []Detection
	Found       bool    // len(Detections) >= the scanner's MinDetections
	Confidence  float64 // highest confidence in Detections
	CommittedAt time.Time
	Sequence    uint64
}

// ScannerStats summarises a scanner's cycle history for instrumentation.
type ScannerStats struct {
	Cycles              uint64        `json:"cycles"`
	Failures            uint64        `json:"failures"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	Skipped             uint64        `json:"skipped"`
	AvgCycle            time.Duration `json:"avg_cycle"`
	LastError           string        `json:"last_error,omitempty"`
	LastFailure         time.Time     `json:"last_failure"`
}

// Stale reports whether the most recent cycle failed; the last committed
// result is still shown but is not fresh.
func (s ScannerStats) Stale() bool { return s.ConsecutiveFailures > 0 }

type failureInfo struct {
	msg string
	at  time.Time
}

// Scanner binds a Region to a Detector and owns the most recent result.
// Only the scheduler writes results; any goroutine may read them.
type Scanner struct {
	id            string
	region        Region
	detector      Detector
	threshold     float64
	minDetections int

	state    atomic.Int32
	last     atomic.Pointer[Result]
	inFlight atomic.Bool
	sequence atomic.Uint64

	cycles      atomic.Uint64
	failures    atomic.Uint64
	consecutive atomic.Uint64
	skipped     atomic.Uint64
	cycleNanos  atomic.Uint64
	lastErr     atomic.Pointer[failureInfo]
}

// ScannerOption customises a Scanner at construction.
type ScannerOption func(*Scanner)

// WithMinDetections sets how many detections make Result.Found true (default 1).
func WithMinDetections(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.minDetections = n
		}
	}
}

// NewScanner returns a Running scanner with an empty result.
func NewScanner(id string, region Region, detector Detector, threshold float64, opts ...ScannerOption) (*Scanner, error) {
	if id == "" {
		return nil, ConfigError("scanner id is empty")
	}
	if err := region.Validate(); err != nil {
		return nil, fmt.Errorf("scanner %q: %w", id, err)
	}
	if detector == nil {
		return nil, ConfigError("scanner %q has no detector", id)
	}
	if !(threshold >= 0 && threshold <= 1) {
		return nil, ConfigError("scanner %q threshold %v outside [0,1]", id, threshold)
	}
	s := &Scanner{id: id, region: region, detector: detector, threshold: threshold, minDetections: 1}
	for _, opt := range opts {
		opt(s)
	}
	s.last.Store(&Result{})
	return s, nil
}

func (s *Scanner) ID() string { return s.id }
func (s *Scanner) Region() Region { return s.region }
func (s *Scanner) Threshold() float64 { return s.threshold }
func (s *Scanner) Detector() Detector { return s.detector }
func (s *Scanner) State() State { return State(s.state.Load()) }
func (s *Scanner) InFlight() bool { return s.inFlight.Load() }
func (s *Scanner) SetState(state State) { s.state.Store(int32(state)) }
func (s *Scanner) LastResult() Result { return *s.last.Load() }
func (s *Scanner) Detections() []Detection { return s.last.Load().Detections }

// RunCycle runs the detector on img, keeps detections at or above the
// threshold and atomically replaces the last result. Confidences above 1 are
// clamped to 1; NaN confidences are dropped. On failure, or when
// ctx has expired by the time the detector returns, the last result is left
// untouched and a DetectionError is returned.
func (s *Scanner) RunCycle(ctx context.Context, img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, s.fail(errors.New("nil image"))
	}
	start := time.Now()
	dets, err := s.detect(ctx, img)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, s.fail(err)
	}

	kept := make([]Detection, 0, len(dets))
	best := 0.0
	for _, d := range dets {
		if !(d.Confidence >= s.threshold) {
			continue
		}
		d.Confidence = min(d.Confidence, 1)
		if d.Color == "" {
			d.Color = DefaultColor
		}
		best = max(best, d.Confidence)
		kept = append(kept, d)
	}
	res := &Result{
		Detections:  kept,
		Found:       len(kept) >= s.minDetections,
		Confidence:  best,
		CommittedAt: time.Now(),
		Sequence:    s.sequence.Add(1),
	}
	s.last.Store(res)

	s.cycles.Add(1)
	s.cycleNanos.Add(uint64(time.Since(start).Nanoseconds()))
	s.consecutive.Store(0)
	return slices.Clone(kept), nil
}

func (s *Scanner) detect(ctx context.Context, img image.Image) (dets []Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panic: %v", r)
		}
	}()
	return s.detector.Detect(ctx, img)
}

func (s *Scanner) fail(err error) error {
	s.recordFailure(err)
	return DetectionError(s.id, err)
}

// tryBegin claims the scanner's single in-flight slot.
func (s *Scanner) tryBegin() bool { return s.inFlight.CompareAndSwap(false, true) }

func (s *Scanner) end() { s.inFlight.Store(false) }

func (s *Scanner) skip() { s.skipped.Add(1) }

// recordFailure counts a failure that happened outside RunCycle (capture).
func (s *Scanner) recordFailure(err error) {
	s.failures.Add(1)
	s.consecutive.Add(1)
	s.lastErr.Store(&failureInfo{msg: err.Error(), at: time.Now()})
}

// Stats returns a point-in-time copy of the scanner counters.
func (s *Scanner) Stats() ScannerStats {
	cycles := s.cycles.Load()
	var avg time.Duration
	if cycles > 0 {
		avg = time.Duration(s.cycleNanos.Load() / cycles)
	}
	st := ScannerStats{
		Cycles:              cycles,
		Failures:            s.failures.Load(),
		ConsecutiveFailures: s.consecutive.Load(),
		Skipped:             s.skipped.Load(),
		AvgCycle:            avg,
	}
	if fi := s.lastErr.Load(); fi != nil {
		st.LastError, st.LastFailure = fi.msg, fi.at
	}
	return st
}
