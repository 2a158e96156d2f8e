package app

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/capture"
	"github.com/soocke/cverlay-go/domain/overlay"
	"github.com/soocke/cverlay-go/domain/scan"
	"github.com/soocke/cverlay-go/ui/model"
	"github.com/soocke/cverlay-go/ui/presenter"
	"github.com/soocke/cverlay-go/web"
)

// Hotkeys is a global key listener started and stopped with the app.
type Hotkeys interface {
	Start()
	Stop()
}

// Container assembles the detection side, overlay state and the
// frontend-independent services.
type Container struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger

	Source    *capture.Source
	Screen    image.Rectangle
	State     *overlay.State
	Scheduler *scan.Scheduler
	Session   *model.SessionModel
	Commands  *presenter.CommandPresenter
	Failures  *presenter.FailureWatcher
	Web       *web.Server
	Hotkeys   Hotkeys

	cfgMu sync.Mutex

	sinkMu sync.Mutex
	sinks  map[int]func(scan.Failure)
	nextID int
}

// BuildContainer constructs all components from cfg. When src is nil the
// configured capture backend is opened. Nothing is started.
func BuildContainer(cfg *config.Config, cfgPath string, logger *slog.Logger, src *capture.Source) (*Container, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Container{Config: cfg, ConfigPath: cfgPath, Logger: logger, sinks: make(map[int]func(scan.Failure))}

	if src == nil {
		var err error
		if src, err = capture.Open(cfg.CaptureBackend, cfg.HardwareAccel, logger); err != nil {
			return nil, fmt.Errorf("open capture: %w", err)
		}
	}
	c.Source = src
	screen, err := src.Bounds()
	if err != nil {
		return nil, fmt.Errorf("screen bounds: %w", err)
	}
	c.Screen = screen

	c.State, err = overlay.NewState(overlay.Options{
		TargetFPS:     cfg.MaxFPS,
		HardwareAccel: cfg.HardwareAccel,
		Playing:       cfg.StartPlaying,
		Locked:        cfg.StartLocked,
		Hidden:        cfg.StartHidden,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	opts := cfg.SchedulerOptions()
	opts.Logger = logger
	if c.Scheduler, err = scan.NewScheduler(c.State, src, opts); err != nil {
		return nil, err
	}
	for _, sc := range cfg.Scanners {
		s, err := config.BuildScanner(sc)
		if err != nil {
			return nil, err
		}
		if err := c.State.AddScanner(s); err != nil {
			return nil, err
		}
	}

	c.Session = model.NewSessionModel()
	c.Commands = presenter.NewCommandPresenter(c.State, logger)
	c.Failures = presenter.NewFailureWatcher(c.Scheduler.Failures(), logger, c.dispatchFailure)

	if cfg.Dashboard != "" {
		c.Web = web.NewServer(c.State, web.Options{
			Addr:             cfg.Dashboard,
			StreamFPS:        cfg.AppMaxFPS,
			Screen:           screen,
			Logger:           logger,
			Scheduler:        c.Scheduler,
			Capture:          src,
			Failures:         c.Failures.Count,
			OnScannerAdded:   c.persistAdd,
			OnScannerRemoved: c.persistRemove,
		})
	}
	return c, nil
}

// AddScanner builds sc, registers it and persists it to the config file.
func (c *Container) AddScanner(sc config.ScannerConfig) error {
	sc.EnsureID()
	s, err := config.BuildScanner(sc)
	if err != nil {
		return err
	}
	if err := c.State.AddScanner(s); err != nil {
		return err
	}
	return c.persistAdd(sc)
}

// RemoveScanner unregisters id and drops it from the config file.
func (c *Container) RemoveScanner(id string) error {
	if err := c.State.RemoveScanner(id); err != nil {
		return err
	}
	return c.persistRemove(id)
}

// ToggleScanner pauses a running scanner or resumes a paused one.
func (c *Container) ToggleScanner(id string) error {
	s, ok := c.State.Scanner(id)
	if !ok {
		return fmt.Errorf("%w: %q", scan.ErrUnknownScanner, id)
	}
	next := scan.StatePaused
	if s.State() == scan.StatePaused {
		next = scan.StateRunning
	}
	return c.State.SetScannerState(id, next)
}

// ScannerIDs lists registered scanners in order.
func (c *Container) ScannerIDs() []string {
	scanners := c.State.Scanners()
	ids := make([]string, 0, len(scanners))
	for _, s := range scanners {
		ids = append(ids, s.ID())
	}
	return ids
}

// OnFailure registers fn for every reported cycle failure. The returned
// func removes it.
func (c *Container) OnFailure(fn func(scan.Failure)) (remove func()) {
	c.sinkMu.Lock()
	id := c.nextID
	c.nextID++
	c.sinks[id] = fn
	c.sinkMu.Unlock()
	return func() {
		c.sinkMu.Lock()
		delete(c.sinks, id)
		c.sinkMu.Unlock()
	}
}

func (c *Container) dispatchFailure(f scan.Failure) {
	c.sinkMu.Lock()
	sinks := make([]func(scan.Failure), 0, len(c.sinks))
	for _, fn := range c.sinks {
		sinks = append(sinks, fn)
	}
	c.sinkMu.Unlock()
	for _, fn := range sinks {
		fn(f)
	}
}

func (c *Container) persistAdd(sc config.ScannerConfig) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	if err := c.Config.AddScanner(sc); err != nil {
		return err
	}
	return c.save()
}

func (c *Container) persistRemove(id string) error {
	c.cfgMu.Lock()
	defer c.cfgMu.Unlock()
	if !c.Config.RemoveScanner(id) {
		return nil
	}
	return c.save()
}

func (c *Container) save() error {
	if c.ConfigPath == "" {
		return nil
	}
	if err := c.Config.Save(c.ConfigPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	c.Logger.Debug("config saved", "path", c.ConfigPath)
	return nil
}
