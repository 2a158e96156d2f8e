package overlay

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Options configures NewState.
type Options struct {
	TargetFPS     float64
	HardwareAccel bool
	Playing       bool
	Locked        bool
	Hidden        bool
	Logger        *slog.Logger
}

// State is the process-wide overlay state. The scanner list is replaced,
// never mutated, under mu so the scheduler and renderers iterate a stable slice.
type State struct {
	mu        sync.RWMutex
	scanners  []*scan.Scanner
	mode      Mode
	targetFPS float64
	hwAccel   bool
	logger    *slog.Logger

	// playMu orders play/pause commands with their forwarding to playback.
	// It is never held together with mu while calling into playback.
	playMu   sync.Mutex
	playback Playback

	subMu  sync.Mutex
	subs   map[int]Listener
	nextID int

	quitOnce sync.Once
	done     chan struct{}
}

var _ Commands = (*State)(nil)
var _ scan.ScannerSource = (*State)(nil)

// NewState validates opts and returns an empty overlay state.
func NewState(opts Options) (*State, error) {
	if _, err := scan.FPSInterval(opts.TargetFPS); err != nil {
		return nil, fmt.Errorf("target fps: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &State{
		mode:      Mode{Playing: opts.Playing, Locked: opts.Locked, Hidden: opts.Hidden},
		targetFPS: opts.TargetFPS,
		hwAccel:   opts.HardwareAccel,
		logger:    logger,
		subs:      make(map[int]Listener),
		done:      make(chan struct{}),
	}, nil
}

func (s *State) TargetFPS() float64 { return s.targetFPS }
func (s *State) HardwareAccel() bool { return s.hwAccel }

func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Scanners returns the current scanner list. Callers must not modify it.
func (s *State) Scanners() []*scan.Scanner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanners
}

// Scanner looks up a scanner by id.
func (s *State) Scanner(id string) (*scan.Scanner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.scanners[i], true
	}
	return nil, false
}

// index requires mu.
func (s *State) index(id string) int {
	return slices.IndexFunc(s.scanners, func(sc *scan.Scanner) bool { return sc.ID() == id })
}

// AddScanner appends sc in registration order.
func (s *State) AddScanner(sc *scan.Scanner) error {
	if sc == nil {
		return scan.ConfigError("nil scanner")
	}
	s.mu.Lock()
	if s.index(sc.ID()) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", scan.ErrDuplicateScanner, sc.ID())
	}
	next := make([]*scan.Scanner, len(s.scanners), len(s.scanners)+1)
	copy(next, s.scanners)
	s.scanners = append(next, sc)
	mode := s.mode
	s.mu.Unlock()

	s.logger.Info("scanner added", "scanner", sc.ID(), "region", sc.Region().String())
	s.notify(Event{Kind: EventScannerAdded, Mode: mode, ScannerID: sc.ID()})
	return nil
}

// CreateScanner builds and registers a scanner in one command.
func (s *State) CreateScanner(id string, detector scan.Detector, region scan.Region, threshold float64, opts ...scan.ScannerOption) (*scan.Scanner, error) {
	sc, err := scan.NewScanner(id, region, detector, threshold, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.AddScanner(sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// RemoveScanner drops the scanner with id. An in-flight cycle for it may
// still finish; its result is simply no longer rendered.
func (s *State) RemoveScanner(id string) error {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", scan.ErrUnknownScanner, id)
	}
	s.scanners = slices.Delete(slices.Clone(s.scanners), i, i+1)
	mode := s.mode
	s.mu.Unlock()

	s.logger.Info("scanner removed", "scanner", id)
	s.notify(Event{Kind: EventScannerRemoved, Mode: mode, ScannerID: id})
	return nil
}

// SetScannerState pauses or resumes a single scanner.
func (s *State) SetScannerState(id string, state scan.State) error {
	sc, ok := s.Scanner(id)
	if !ok {
		return fmt.Errorf("%w: %q", scan.ErrUnknownScanner, id)
	}
	if sc.State() == state {
		return nil
	}
	sc.SetState(state)
	s.notify(Event{Kind: EventScannerState, Mode: s.Mode(), ScannerID: id})
	return nil
}

// AttachPlayback connects the detection side and brings it in line with
// the current play flag.
func (s *State) AttachPlayback(p Playback) {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.mu.Lock()
	s.playback = p
	playing := s.mode.Playing
	s.mu.Unlock()
	if p == nil {
		return
	}
	if playing {
		p.Resume()
	} else {
		p.Pause()
	}
}

func (s *State) Play() { s.setPlaying(func(bool) bool { return true }) }
func (s *State) Pause() { s.setPlaying(func(bool) bool { return false }) }

// TogglePlay flips the play flag and returns the new value.
func (s *State) TogglePlay() bool { return s.setPlaying(func(on bool) bool { return !on }) }

func (s *State) setPlaying(next func(bool) bool) bool {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	s.mu.Lock()
	prev := s.mode.Playing
	s.mode.Playing = next(prev)
	mode := s.mode
	p := s.playback
	s.mu.Unlock()

	if p != nil {
		if mode.Playing {
			p.Resume()
		} else {
			p.Pause()
		}
	}
	if prev != mode.Playing {
		s.logger.Info("overlay play", "playing", mode.Playing)
		s.notify(Event{Kind: EventPlay, Mode: mode})
	}
	return mode.Playing
}

func (s *State) Lock() { s.setFlag(EventLock, func(m *Mode) { m.Locked = true }) }
func (s *State) Unlock() { s.setFlag(EventLock, func(m *Mode) { m.Locked = false }) }
func (s *State) Hide() { s.setFlag(EventHide, func(m *Mode) { m.Hidden = true }) }
func (s *State) Show() { s.setFlag(EventHide, func(m *Mode) { m.Hidden = false }) }

func (s *State) ToggleLock() bool {
	return s.setFlag(EventLock, func(m *Mode) { m.Locked = !m.Locked }).Locked
}

func (s *State) ToggleHide() bool {
	return s.setFlag(EventHide, func(m *Mode) { m.Hidden = !m.Hidden }).Hidden
}

func (s *State) setFlag(kind EventKind, apply func(*Mode)) Mode {
	s.mu.Lock()
	prev := s.mode
	apply(&s.mode)
	mode := s.mode
	s.mu.Unlock()
	if prev != mode {
		s.logger.Info("overlay mode", "event", kind.String(), "mode", mode.String())
		s.notify(Event{Kind: kind, Mode: mode})
	}
	return mode
}

// Quit closes Done. Only the first call has an effect.
func (s *State) Quit() {
	s.quitOnce.Do(func() {
		close(s.done)
		s.logger.Info("overlay quit")
		s.notify(Event{Kind: EventQuit, Mode: s.Mode()})
	})
}

// Done is closed once Quit has been called.
func (s *State) Done() <-chan struct{} { return s.done }

// Snapshot copies the state for rendering. Each scanner contributes one
// committed result; detection slices are copies. Stats are read before the
// result, so they may lag it but never count a cycle the result predates.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	scanners := s.scanners
	mode := s.mode
	s.mu.RUnlock()

	views := make([]ScannerView, 0, len(scanners))
	for _, sc := range scanners {
		stats := sc.Stats()
		res := sc.LastResult()
		views = append(views, ScannerView{
			ID:          sc.ID(),
			Region:      sc.Region(),
			State:       sc.State().String(),
			Threshold:   sc.Threshold(),
			Detections:  slices.Clone(res.Detections),
			Found:       res.Found,
			Confidence:  res.Confidence,
			Sequence:    res.Sequence,
			CommittedAt: res.CommittedAt,
			Stats:       stats,
		})
	}
	return Snapshot{
		Mode:          mode,
		TargetFPS:     s.targetFPS,
		HardwareAccel: s.hwAccel,
		Scanners:      views,
		TakenAt:       time.Now(),
	}
}

// Subscribe registers l and returns a function that removes it.
func (s *State) Subscribe(l Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = l
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *State) notify(ev Event) {
	s.subMu.Lock()
	ls := make([]Listener, 0, len(s.subs))
	for _, l := range s.subs {
		ls = append(ls, l)
	}
	s.subMu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}
