package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/capture"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

// DetectReport is one scanner's result from the detect command.
type DetectReport struct {
	Scanner    string           `json:"scanner"`
	Region     scan.Region      `json:"region"`
	Found      bool             `json:"found"`
	Detections []scan.Detection `json:"detections"`
	Elapsed    time.Duration    `json:"elapsed"`
	Error      string           `json:"error,omitempty"`
}

func newDetectCmd(root *Options) *cobra.Command {
	var imagePath string
	var scanners []string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run configured scanners once against an image file and print JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolveConfig(cmd, *root)
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if cfg.Debug {
				level = slog.LevelDebug
			}
			logger := NewLogger(cmd.ErrOrStderr(), level)

			backend, err := capture.OpenImage(imagePath)
			if err != nil {
				return err
			}
			src := capture.NewSource(backend, logger)

			selected := cfg.Scanners
			if len(scanners) > 0 {
				selected = nil
				for _, id := range scanners {
					i := slices.IndexFunc(cfg.Scanners, func(s config.ScannerConfig) bool { return s.ID == id })
					if i < 0 {
						return fmt.Errorf("%w: %q", scan.ErrUnknownScanner, id)
					}
					selected = append(selected, cfg.Scanners[i])
				}
			}
			if len(selected) == 0 {
				return scan.ConfigError("no scanners configured")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			reports := make([]DetectReport, 0, len(selected))
			for _, sc := range selected {
				reports = append(reports, detectOnce(cmd, src, sc))
			}
			return enc.Encode(reports)
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "PNG or JPEG standing in for the screen")
	cmd.Flags().StringSliceVar(&scanners, "scanner", nil, "Scanner ids to run (default: all)")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func detectOnce(cmd *cobra.Command, src *capture.Source, sc config.ScannerConfig) (rep DetectReport) {
	rep = DetectReport{Scanner: sc.ID, Region: sc.Region, Detections: []scan.Detection{}}
	start := time.Now()
	defer func() { rep.Elapsed = time.Since(start) }()

	s, err := config.BuildScanner(sc)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	img, err := src.Capture(cmd.Context(), s.Region())
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	defer src.Recycle(img)
	dets, err := s.RunCycle(cmd.Context(), img)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Detections = dets
	rep.Found = s.LastResult().Found
	return rep
}

func newDetectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detectors",
		Short: "List registered detector kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range detect.Kinds() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}
