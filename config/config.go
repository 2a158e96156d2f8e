package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"

	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

const appName = "cverlay"

// ScannerConfig describes one scanner: where to look and how to detect.
type ScannerConfig struct {
	ID            string      `json:"id"`
	Region        scan.Region `json:"region"`
	Threshold     float64     `json:"threshold"`
	MinDetections int         `json:"min_detections,omitempty"`
	Paused        bool        `json:"paused,omitempty"`
	Detector      detect.Spec `json:"detector"`
}

// Config holds runtime configuration. It is loaded from a JSON file,
// overridden by environment variables and command-line flags, and consumed
// once at startup.
type Config struct {
	Debug bool `json:"debug"`

	// Detection cadence and workers
	MaxFPS            float64 `json:"max_fps"`
	Workers           int     `json:"workers"`
	CycleTimeoutMS    int     `json:"cycle_timeout_ms"`
	ShutdownTimeoutMS int     `json:"shutdown_timeout_ms"`

	// Capture
	HardwareAccel  bool   `json:"hardware_accel"`
	CaptureBackend string `json:"capture_backend"`

	// Rendering and initial overlay mode
	AppMaxFPS    float64 `json:"app_max_fps"`
	StartPlaying bool    `json:"start_playing"`
	StartLocked  bool    `json:"start_locked"`
	StartHidden  bool    `json:"start_hidden"`

	// Command surfaces
	Hotkeys   bool   `json:"hotkeys"`
	Dashboard string `json:"dashboard"` // listen address; empty disables the web dashboard

	Scanners []ScannerConfig `json:"scanners"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		MaxFPS:            1,
		Workers:           0,
		CycleTimeoutMS:    0,
		ShutdownTimeoutMS: 2000,
		HardwareAccel:     false,
		AppMaxFPS:         30,
		StartPlaying:      false,
		Hotkeys:           true,
	}
}

// Validate reports the first invalid field as a scan.ErrConfig error.
// Values are never clamped.
func (c *Config) Validate() error {
	if _, err := scan.FPSInterval(c.MaxFPS); err != nil {
		return fmt.Errorf("max_fps: %w", err)
	}
	if _, err := scan.FPSInterval(c.AppMaxFPS); err != nil {
		return fmt.Errorf("app_max_fps: %w", err)
	}
	if c.Workers < 0 {
		return scan.ConfigError("workers must be >= 0, got %d", c.Workers)
	}
	if c.CycleTimeoutMS < 0 || c.ShutdownTimeoutMS < 0 {
		return scan.ConfigError("timeouts must be >= 0")
	}
	seen := make(map[string]bool, len(c.Scanners))
	for i, s := range c.Scanners {
		if s.ID == "" {
			return scan.ConfigError("scanner %d has no id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: %q", scan.ErrDuplicateScanner, s.ID)
		}
		seen[s.ID] = true
		if err := s.Region.Validate(); err != nil {
			return fmt.Errorf("scanner %q: %w", s.ID, err)
		}
		if !(s.Threshold >= 0 && s.Threshold <= 1) {
			return scan.ConfigError("scanner %q threshold %v outside [0,1]", s.ID, s.Threshold)
		}
		if s.Detector.Kind == "" {
			return scan.ConfigError("scanner %q has no detector kind", s.ID)
		}
	}
	return nil
}

// CycleTimeout is the per-cycle deadline, zero when disabled.
func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutMS) * time.Millisecond
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// SchedulerOptions maps the detection settings onto the scheduler.
func (c *Config) SchedulerOptions() scan.SchedulerOptions {
	return scan.SchedulerOptions{
		TargetFPS:       c.MaxFPS,
		Workers:         c.Workers,
		CycleTimeout:    c.CycleTimeout(),
		ShutdownTimeout: c.ShutdownTimeout(),
	}
}

// BuildScanner constructs the detector and scanner for sc.
func BuildScanner(sc ScannerConfig) (*scan.Scanner, error) {
	det, err := detect.Build(sc.Detector)
	if err != nil {
		return nil, fmt.Errorf("scanner %q: %w", sc.ID, err)
	}
	s, err := scan.NewScanner(sc.ID, sc.Region, det, sc.Threshold, scan.WithMinDetections(sc.MinDetections))
	if err != nil {
		return nil, err
	}
	if sc.Paused {
		s.SetState(scan.StatePaused)
	}
	return s, nil
}

// AddScanner appends sc after validating it against the existing set.
func (c *Config) AddScanner(sc ScannerConfig) error {
	next := *c
	next.Scanners = append(slices.Clone(c.Scanners), sc)
	if err := next.Validate(); err != nil {
		return err
	}
	c.Scanners = next.Scanners
	return nil
}

// RemoveScanner drops the scanner with id and reports whether it existed.
func (c *Config) RemoveScanner(id string) bool {
	i := slices.IndexFunc(c.Scanners, func(s ScannerConfig) bool { return s.ID == id })
	if i < 0 {
		return false
	}
	c.Scanners = slices.Delete(slices.Clone(c.Scanners), i, i+1)
	return true
}

// DefaultPath returns the per-user config file location, creating its
// directory if needed.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appName, "config.json"))
}

// Load attempts to read configuration from the given JSON file path. If the
// file does not exist it returns DefaultConfig(). Invalid JSON or values
// return defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), scan.ConfigError("%s: %v", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
