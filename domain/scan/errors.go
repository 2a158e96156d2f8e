package scan

import (
	"errors"
	"fmt"
)

// Error taxonomy. Concrete errors wrap one of these sentinels; match with errors.Is.
var (
	// ErrCapture reports an unreadable region or an unavailable capture backend.
	ErrCapture = errors.New("capture error")
	// ErrDetection reports a detector failure or an abandoned cycle.
	ErrDetection = errors.New("detection error")
	// ErrConfig reports invalid construction parameters (fps, region, threshold).
	ErrConfig = errors.New("config error")
	// ErrDuplicateScanner reports an id that is already registered.
	ErrDuplicateScanner = errors.New("duplicate scanner")
	// ErrUnknownScanner reports a lookup or removal of an id that is not registered.
	ErrUnknownScanner = errors.New("unknown scanner")
)

// ConfigError wraps ErrConfig with a formatted reason.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// CaptureError wraps err as a capture failure for region r.
func CaptureError(r Region, err error) error {
	return fmt.Errorf("%w: region %v: %w", ErrCapture, r, err)
}

// DetectionError wraps err as a detection failure of the named scanner.
func DetectionError(scanner string, err error) error {
	return fmt.Errorf("%w: scanner %q: %w", ErrDetection, scanner, err)
}
