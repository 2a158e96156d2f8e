package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	DefaultShutdownTimeout = 2 * time.Second
	DefaultFailureBuffer   = 64

	schedulerStatsLogInterval = 5 * time.Second
)

// SchedState is the scheduler lifecycle state.
type SchedState int32

const (
	SchedStopped SchedState = iota
	SchedRunning
	SchedPaused
)

func (s SchedState) String() string {
	switch s {
	case SchedStopped:
		return "stopped"
	case SchedRunning:
		return "running"
	case SchedPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Failure is one dropped cycle, reported on the scheduler's failure channel.
type Failure struct {
	ScannerID string
	Err       error
	At        time.Time
}

// SchedulerOptions configures NewScheduler.
type SchedulerOptions struct {
	TargetFPS       float64       // detection ticks per second, must be > 0
	Workers         int           // concurrent capture+detect units; defaults to NumCPU
	CycleTimeout    time.Duration // per-cycle deadline; 0 disables it
	ShutdownTimeout time.Duration // how long Stop waits for in-flight cycles
	FailureBuffer   int           // capacity of the Failures channel
	Logger          *slog.Logger
}

// SchedulerStats is a point-in-time view of scheduler counters.
type SchedulerStats struct {
	State           SchedState `json:"state"`
	Ticks           uint64     `json:"ticks"`
	Dispatched      uint64     `json:"dispatched"`
	Skipped         uint64     `json:"skipped"`
	Failures        uint64     `json:"failures"`
	DroppedFailures uint64     `json:"dropped_failures"`
	Abandoned       uint64     `json:"abandoned"`
	InFlight        int64      `json:"in_flight"`
}

// run holds what belongs to one Start..Stop lifetime.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Scheduler drives capture and detection for every Running scanner at
// TargetFPS, independent of any render loop. Use NewScheduler to construct.
type Scheduler struct {
	source   ScannerSource
	frames   FrameSource
	opts     SchedulerOptions
	interval time.Duration
	logger   *slog.Logger
	sem      chan struct{}
	failures chan Failure

	mu       sync.Mutex // serialises lifecycle transitions
	state    atomic.Int32
	cur      *run
	loopStop chan struct{}
	loopDone chan struct{}

	ticks      atomic.Uint64
	dispatched atomic.Uint64
	skipped    atomic.Uint64
	failed     atomic.Uint64
	dropped    atomic.Uint64
	abandoned  atomic.Uint64
	inFlight   atomic.Int64
}

// NewScheduler validates opts and returns a Stopped scheduler.
func NewScheduler(source ScannerSource, frames FrameSource, opts SchedulerOptions) (*Scheduler, error) {
	if source == nil {
		return nil, ConfigError("scheduler has no scanner source")
	}
	if frames == nil {
		return nil, ConfigError("scheduler has no frame source")
	}
	interval, err := FPSInterval(opts.TargetFPS)
	if err != nil {
		return nil, err
	}
	if opts.CycleTimeout < 0 {
		return nil, ConfigError("cycle timeout must be >= 0, got %v", opts.CycleTimeout)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	if opts.FailureBuffer <= 0 {
		opts.FailureBuffer = DefaultFailureBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		source:   source,
		frames:   frames,
		opts:     opts,
		interval: interval,
		logger:   logger,
		sem:      make(chan struct{}, opts.Workers),
		failures: make(chan Failure, opts.FailureBuffer),
	}, nil
}

// FPSInterval converts a rate into a tick period. Rates that are not finite
// and positive, or so high that the period rounds to zero, fail with ErrConfig.
func FPSInterval(fps float64) (time.Duration, error) {
	if !(fps > 0) || math.IsInf(fps, 0) {
		return 0, ConfigError("fps must be finite and > 0, got %v", fps)
	}
	d := time.Duration(float64(time.Second) / fps)
	if d <= 0 {
		return 0, ConfigError("fps %v is too high", fps)
	}
	return d, nil
}

// Interval is the detection tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

func (s *Scheduler) State() SchedState { return SchedState(s.state.Load()) }

// Failures delivers dropped-cycle reports. Reports are discarded (and
// counted) when nobody drains the channel.
func (s *Scheduler) Failures() <-chan Failure { return s.failures }

// Start begins ticking. It is a no-op unless the scheduler is Stopped.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != SchedStopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cur = &run{ctx: ctx, cancel: cancel}
	s.state.Store(int32(SchedRunning))
	s.startLoop()
	s.logger.Info("scheduler started", "fps", s.opts.TargetFPS, "workers", s.opts.Workers)
}

// Pause suppresses future ticks. In-flight cycles keep running and commit.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != SchedRunning {
		return
	}
	s.stopLoop()
	s.state.Store(int32(SchedPaused))
	s.logger.Info("scheduler paused")
}

// Resume restarts ticking with a fresh ticker; ticks missed while paused are
// not replayed.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() != SchedPaused {
		return
	}
	s.state.Store(int32(SchedRunning))
	s.startLoop()
	s.logger.Info("scheduler resumed")
}

// Stop halts ticking and waits for in-flight cycles, bounded by
// ShutdownTimeout and ctx. Cycles still running afterwards are cancelled and
// their results discarded. Stopping a stopped scheduler returns nil.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State() == SchedStopped {
		return nil
	}
	if s.State() == SchedRunning {
		s.stopLoop()
	}
	s.state.Store(int32(SchedStopped))
	r := s.cur
	s.cur = nil

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	timer := time.NewTimer(s.opts.ShutdownTimeout)
	defer timer.Stop()

	var err error
	select {
	case <-drained:
	case <-timer.C:
		err = fmt.Errorf("scheduler stop: %d cycles still in flight after %v", s.inFlight.Load(), s.opts.ShutdownTimeout)
	case <-ctx.Done():
		err = fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
	r.cancel()
	s.logger.Info("scheduler stopped", "error", err)
	return err
}

// Stats returns current counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		State:           s.State(),
		Ticks:           s.ticks.Load(),
		Dispatched:      s.dispatched.Load(),
		Skipped:         s.skipped.Load(),
		Failures:        s.failed.Load(),
		DroppedFailures: s.dropped.Load(),
		Abandoned:       s.abandoned.Load(),
		InFlight:        s.inFlight.Load(),
	}
}

// startLoop and stopLoop require s.mu.
func (s *Scheduler) startLoop() {
	s.loopStop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.loop(s.cur, s.loopStop, s.loopDone)
}

func (s *Scheduler) stopLoop() {
	close(s.loopStop)
	<-s.loopDone
}

func (s *Scheduler) loop(r *run, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logTicker := time.NewTicker(schedulerStatsLogInterval)
	defer logTicker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick(r)
		case <-logTicker.C:
			s.logStats()
		}
	}
}

// tick dispatches one unit per idle Running scanner. It never blocks on
// workers: the semaphore is acquired inside the unit.
func (s *Scheduler) tick(r *run) {
	s.ticks.Add(1)
	for _, sc := range s.source.Scanners() {
		if sc.State() != StateRunning {
			continue
		}
		if !sc.tryBegin() {
			sc.skip()
			s.skipped.Add(1)
			continue
		}
		s.dispatched.Add(1)
		r.wg.Add(1)
		go s.runOne(r, sc)
	}
}

func (s *Scheduler) runOne(r *run, sc *Scanner) {
	defer r.wg.Done()

	select {
	case s.sem <- struct{}{}:
	case <-r.ctx.Done():
		sc.end()
		return
	}
	s.inFlight.Add(1)
	// release frees the worker slot and the scanner. It runs once, on
	// whichever goroutine finishes the detector.
	release := func() {
		s.inFlight.Add(-1)
		<-s.sem
		sc.end()
	}
	handedOff := false
	defer func() {
		if !handedOff {
			release()
		}
	}()
	defer s.recoverCycle(sc)

	ctx := r.ctx
	if s.opts.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CycleTimeout)
		defer cancel()
	}

	img, err := s.frames.Capture(ctx, sc.Region())
	if err != nil {
		if !errors.Is(err, ErrCapture) {
			err = CaptureError(sc.Region(), err)
		}
		sc.recordFailure(err)
		s.fail(r, sc, err)
		return
	}

	if s.opts.CycleTimeout <= 0 {
		_, err = sc.RunCycle(ctx, img)
		s.recycle(img)
		if err != nil {
			s.fail(r, sc, err)
		}
		return
	}
	handedOff = true
	if err := s.cycle(ctx, sc, img, release); err != nil {
		s.fail(r, sc, err)
	}
}

// cycle runs the detector under the cycle deadline. A detector that ignores
// ctx is abandoned when the deadline passes: the failure is reported at once
// and RunCycle refuses to commit the late result. The abandoned goroutine
// keeps the frame, the worker slot and the scanner's in-flight claim until
// the detector returns, so later ticks for the scanner are skipped.
func (s *Scheduler) cycle(ctx context.Context, sc *Scanner, img image.Image, release func()) error {
	done := make(chan error, 1)
	go func() {
		defer release()
		defer s.recoverCycle(sc)
		_, err := sc.RunCycle(ctx, img)
		s.recycle(img)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// RunCycle may have committed just before the deadline.
		select {
		case err := <-done:
			return err
		default:
		}
		s.abandoned.Add(1)
		return DetectionError(sc.ID(), ctx.Err())
	}
}

func (s *Scheduler) recoverCycle(sc *Scanner) {
	if rec := recover(); rec != nil {
		err := fmt.Errorf("cycle panic: %v", rec)
		sc.recordFailure(err)
		s.report(sc, DetectionError(sc.ID(), err))
	}
}

func (s *Scheduler) recycle(img image.Image) {
	if rc, ok := s.frames.(Recycler); ok {
		rc.Recycle(img)
	}
}

// fail reports err unless the whole run is shutting down.
func (s *Scheduler) fail(r *run, sc *Scanner, err error) {
	if r.ctx.Err() != nil {
		s.logger.Debug("scan.cycle discarded", "scanner", sc.ID(), "error", err)
		return
	}
	s.report(sc, err)
}

func (s *Scheduler) report(sc *Scanner, err error) {
	s.failed.Add(1)
	s.logger.Warn("scan.cycle failed", "scanner", sc.ID(), "error", err)
	select {
	case s.failures <- Failure{ScannerID: sc.ID(), Err: err, At: time.Now()}:
	default:
		s.dropped.Add(1)
	}
}

func (s *Scheduler) logStats() {
	st := s.Stats()
	s.logger.Debug("scan.stats",
		"ticks", st.Ticks,
		"dispatched", st.Dispatched,
		"skipped", st.Skipped,
		"failures", st.Failures,
		"dropped_failures", st.DroppedFailures,
		"in_flight", st.InFlight,
	)
}
