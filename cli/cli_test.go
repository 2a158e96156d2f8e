package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/soocke/cverlay-go/app"
	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

func writeConfig(t *testing.T, dir string, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return path
}

func writeImage(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{R: 20, G: 20, B: 20, A: 255})
		}
	}
	path := filepath.Join(dir, "screen.png")
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save image: %v", err)
	}
	return path
}

func staticScanner(id string, region scan.Region) config.ScannerConfig {
	return config.ScannerConfig{
		ID:        id,
		Region:    region,
		Threshold: 0.5,
		Detector: detect.Spec{Kind: "static", Detections: []scan.Detection{
			{Label: "hit", Confidence: 0.8, Box: scan.Region{X: 1, Y: 1, Width: 5, Height: 5}},
			{Label: "weak", Confidence: 0.2, Box: scan.Region{X: 1, Y: 1, Width: 5, Height: 5}},
		}},
	}
}

func runCmd(t *testing.T, args []string, launch Launcher) (string, error) {
	t.Helper()
	cmd := NewRootCmd(launch)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDetectCommand_ReportsPerScanner(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Scanners = []config.ScannerConfig{
		staticScanner("in", scan.Region{X: 10, Y: 10, Width: 40, Height: 40}),
		staticScanner("out", scan.Region{X: 100, Y: 60, Width: 40, Height: 40}),
	}
	path := writeConfig(t, dir, cfg)
	img := writeImage(t, dir)

	out, err := runCmd(t, []string{"detect", "--config", path, "--image", img}, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var reports []DetectReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %+v", reports)
	}
	if !reports[0].Found || len(reports[0].Detections) != 1 || reports[0].Detections[0].Label != "hit" {
		t.Fatalf("in: %+v", reports[0])
	}
	// clipped by the image bounds
	if reports[1].Error == "" || reports[1].Found {
		t.Fatalf("out should fail to capture: %+v", reports[1])
	}
}

func TestDetectCommand_SelectsScanners(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Scanners = []config.ScannerConfig{
		staticScanner("a", scan.Region{Width: 20, Height: 20}),
		staticScanner("b", scan.Region{Width: 20, Height: 20}),
	}
	path := writeConfig(t, dir, cfg)
	img := writeImage(t, dir)

	out, err := runCmd(t, []string{"detect", "--config", path, "--image", img, "--scanner", "b"}, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var reports []DetectReport
	if err := json.Unmarshal([]byte(out), &reports); err != nil || len(reports) != 1 || reports[0].Scanner != "b" {
		t.Fatalf("reports = %s (%v)", out, err)
	}

	_, err = runCmd(t, []string{"detect", "--config", path, "--image", img, "--scanner", "zzz"}, nil)
	if !errors.Is(err, scan.ErrUnknownScanner) {
		t.Fatalf("expected unknown scanner, got %v", err)
	}
	if _, err := runCmd(t, []string{"detect", "--config", path}, nil); err == nil {
		t.Fatalf("missing --image should fail")
	}
}

func TestDetectorsCommand(t *testing.T) {
	out, err := runCmd(t, []string{"detectors"}, nil)
	if err != nil {
		t.Fatalf("detectors: %v", err)
	}
	if !strings.Contains(out, "static\n") || !strings.Contains(out, "template\n") {
		t.Fatalf("out = %q", out)
	}
}

func TestRootCommand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, config.DefaultConfig())
	img := writeImage(t, dir)
	t.Setenv(config.EnvMaxFPS, "4")

	var got *config.Config
	var gotOpts Options
	launch := func(ctx context.Context, c *app.Container, opts Options) error {
		got, gotOpts = c.Config, opts
		return nil
	}
	// the image backend keeps the test off the real screen
	_, err := runCmd(t, []string{"--config", path, "--backend", "image:" + img, "--app-fps", "12", "--no-hotkeys", "--headless"}, launch)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if got == nil {
		t.Fatalf("launcher not called")
	}
	if got.MaxFPS != 4 || got.AppMaxFPS != 12 || got.Hotkeys || !gotOpts.Headless {
		t.Fatalf("config = %+v opts = %+v", got, gotOpts)
	}
}

func TestRootCommand_InvalidFlagValue(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, config.DefaultConfig())
	_, err := runCmd(t, []string{"--config", path, "--fps", "0"}, func(context.Context, *app.Container, Options) error {
		t.Fatalf("launcher must not run")
		return nil
	})
	if !errors.Is(err, scan.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
