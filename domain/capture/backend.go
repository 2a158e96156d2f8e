package capture

import (
	"fmt"
	"image"
	"runtime"
	"strings"

	"github.com/kbinani/screenshot"
	vscreenshot "github.com/vova616/screenshot"
)

// Backend grabs raw screen pixels. Rectangles are absolute screen coordinates.
type Backend interface {
	Name() string
	Bounds() (image.Rectangle, error)
	Grab(r image.Rectangle) (*image.RGBA, error)
}

const (
	BackendScreen   = "screen"
	BackendDisplays = "displays"
	BackendGDI      = "gdi"
)

// NewBackend resolves a backend by name. An empty name picks the GDI path
// when hardware acceleration is requested on Windows, otherwise screen.
// "image:<path>" replays a screenshot file as the screen.
func NewBackend(name string, hardwareAccel bool) (Backend, error) {
	if path, ok := strings.CutPrefix(name, BackendImage+":"); ok {
		b, err := OpenImage(path)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	if name == "" {
		name = BackendScreen
		if hardwareAccel && runtime.GOOS == "windows" {
			name = BackendGDI
		}
	}
	switch name {
	case BackendScreen:
		return screenBackend{}, nil
	case BackendDisplays:
		return displaysBackend{}, nil
	case BackendGDI:
		return newGDIBackend()
	default:
		return nil, fmt.Errorf("unknown capture backend %q", name)
	}
}

// screenBackend captures the primary screen.
type screenBackend struct{}

func (screenBackend) Name() string { return BackendScreen }

func (screenBackend) Bounds() (image.Rectangle, error) { return vscreenshot.ScreenRect() }

func (screenBackend) Grab(r image.Rectangle) (*image.RGBA, error) {
	return vscreenshot.CaptureRect(r)
}

// displaysBackend captures across the union of all active displays.
type displaysBackend struct{}

func (displaysBackend) Name() string { return BackendDisplays }

func (displaysBackend) Bounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

func (displaysBackend) Grab(r image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(r)
}
