package config

import (
	"strings"

	"github.com/google/uuid"
)

// NewScannerID returns a generated scanner id such as "template-1b4e28ba".
func NewScannerID(kind string) string {
	if kind == "" {
		kind = "scanner"
	}
	return kind + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// EnsureID fills in a generated id when sc has none.
func (sc *ScannerConfig) EnsureID() {
	if strings.TrimSpace(sc.ID) == "" {
		sc.ID = NewScannerID(sc.Detector.Kind)
	}
}
