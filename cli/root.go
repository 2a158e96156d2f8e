// Package cli holds the cobra command tree. Frontends are injected by
// main so the commands stay testable without a display.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/cverlay-go/app"
	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/debug"
)

const (
	debugGoroutineInterval = 5 * time.Second
	debugMemInterval       = 10 * time.Second
)

// Options are the root command flags.
type Options struct {
	ConfigPath    string
	Debug         bool
	Headless      bool
	Dashboard     string
	FPS           float64
	AppFPS        float64
	Backend       string
	HardwareAccel bool
	NoHotkeys     bool
}

// Launcher runs the assembled container with a frontend until quit.
type Launcher func(ctx context.Context, c *app.Container, opts Options) error

// NewRootCmd builds the command tree. launch is called by the root
// command once configuration is resolved.
func NewRootCmd(launch Launcher) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           "cverlay",
		Short:         "Transparent screen overlay driven by computer vision scanners",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, *opts, launch)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigPath, "config", "", "Path to the JSON config (default: per-user config dir)")
	f.BoolVar(&opts.Debug, "debug", false, "Debug logging and runtime stats")
	f.StringVar(&opts.Backend, "backend", "", "Capture backend: screen, displays or gdi")
	f.BoolVar(&opts.HardwareAccel, "hardware-accel", false, "Prefer the hardware capture backend")

	cmd.Flags().BoolVar(&opts.Headless, "headless", false, "Run without overlay windows (tray and web dashboard only)")
	cmd.Flags().StringVar(&opts.Dashboard, "dashboard", "", "Web dashboard listen address, e.g. 127.0.0.1:8088")
	cmd.Flags().Float64Var(&opts.FPS, "fps", 0, "Detection cycles per second")
	cmd.Flags().Float64Var(&opts.AppFPS, "app-fps", 0, "Overlay render frames per second")
	cmd.Flags().BoolVar(&opts.NoHotkeys, "no-hotkeys", false, "Disable global hotkeys")

	cmd.AddCommand(newDetectCmd(opts), newDetectorsCmd())
	return cmd
}

// Execute runs the command tree with args (without the program name).
func Execute(ctx context.Context, args []string, launch Launcher) error {
	cmd := NewRootCmd(launch)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func runRoot(cmd *cobra.Command, opts Options, launch Launcher) error {
	cfg, path, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := NewLogger(cmd.ErrOrStderr(), level)
	logger.Info("config", "path", path, "max_fps", cfg.MaxFPS, "app_max_fps", cfg.AppMaxFPS, "scanners", len(cfg.Scanners))

	ctx := cmd.Context()
	if cfg.Debug {
		debug.StartGoroutineLogger(ctx, debugGoroutineInterval, logger)
		debug.StartMemLogger(ctx, debugMemInterval, logger)
	}

	c, err := app.BuildContainer(cfg, path, logger, nil)
	if err != nil {
		return err
	}
	if launch == nil {
		return app.Run(ctx, c, nil)
	}
	return launch(ctx, c, opts)
}

// resolveConfig layers defaults, the config file, .env and CVERLAY_*
// variables, then explicitly set flags.
func resolveConfig(cmd *cobra.Command, opts Options) (*config.Config, string, error) {
	if err := config.LoadDotenv(".env"); err != nil {
		return nil, "", fmt.Errorf("load .env: %w", err)
	}
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", err
	}

	changed := cmd.Flags().Changed
	if changed("debug") {
		cfg.Debug = opts.Debug
	}
	if changed("backend") {
		cfg.CaptureBackend = opts.Backend
	}
	if changed("hardware-accel") {
		cfg.HardwareAccel = opts.HardwareAccel
	}
	if changed("dashboard") {
		cfg.Dashboard = opts.Dashboard
	}
	if changed("fps") {
		cfg.MaxFPS = opts.FPS
	}
	if changed("app-fps") {
		cfg.AppMaxFPS = opts.AppFPS
	}
	if changed("no-hotkeys") {
		cfg.Hotkeys = !opts.NoHotkeys
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
