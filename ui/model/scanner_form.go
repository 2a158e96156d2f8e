package model

import (
	"image"
	"strconv"
	"strings"

	"github.com/soocke/cverlay-go/config"
	"github.com/soocke/cverlay-go/domain/detect"
	"github.com/soocke/cverlay-go/domain/scan"
)

// DefaultFormThreshold is used when the threshold field is left empty.
const DefaultFormThreshold = 0.5

// ScannerForm holds the raw text of the add-scanner form.
type ScannerForm struct {
	ID        string
	Kind      string
	Path      string
	Label     string
	Color     string
	Threshold string
	Region    image.Rectangle
}

// Parse converts the form into a scanner config. An empty id is generated.
func (f ScannerForm) Parse() (config.ScannerConfig, error) {
	kind := strings.TrimSpace(f.Kind)
	if kind == "" {
		return config.ScannerConfig{}, scan.ConfigError("detector kind is required")
	}
	threshold := DefaultFormThreshold
	if t := strings.TrimSpace(f.Threshold); t != "" {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return config.ScannerConfig{}, scan.ConfigError("threshold %q is not a number", t)
		}
		threshold = v
	}
	if threshold < 0 || threshold > 1 {
		return config.ScannerConfig{}, scan.ConfigError("threshold %v outside [0,1]", threshold)
	}
	region := scan.RegionFromRect(f.Region)
	if err := region.Validate(); err != nil {
		return config.ScannerConfig{}, err
	}
	sc := config.ScannerConfig{
		ID:        strings.TrimSpace(f.ID),
		Region:    region,
		Threshold: threshold,
		Detector: detect.Spec{
			Kind:  kind,
			Path:  strings.TrimSpace(f.Path),
			Label: strings.TrimSpace(f.Label),
			Color: strings.TrimSpace(f.Color),
		},
	}
	sc.EnsureID()
	return sc, nil
}
