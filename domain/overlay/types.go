package overlay

import (
	"time"

	"github.com/soocke/cverlay-go/domain/scan"
)

// Mode holds the three independent overlay flags. Playing drives detection;
// Locked and Hidden only affect rendering.
type Mode struct {
	Playing bool `json:"playing"`
	Locked  bool `json:"locked"`
	Hidden  bool `json:"hidden"`
}

func (m Mode) String() string {
	s := "paused"
	if m.Playing {
		s = "playing"
	}
	if m.Locked {
		s += ",locked"
	}
	if m.Hidden {
		s += ",hidden"
	}
	return s
}

// EventKind enumerates state change notifications.
type EventKind int

const (
	EventPlay EventKind = iota
	EventLock
	EventHide
	EventScannerAdded
	EventScannerRemoved
	EventScannerState
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventPlay:
		return "play"
	case EventLock:
		return "lock"
	case EventHide:
		return "hide"
	case EventScannerAdded:
		return "scanner_added"
	case EventScannerRemoved:
		return "scanner_removed"
	case EventScannerState:
		return "scanner_state"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event describes one committed command. ScannerID is set for scanner events.
type Event struct {
	Kind      EventKind
	Mode      Mode
	ScannerID string
}

// Listener receives events synchronously after the state lock is released.
// Listeners must not block.
type Listener func(Event)

// ScannerView is the render-side copy of one scanner.
type ScannerView struct {
	ID          string            `json:"id"`
	Region      scan.Region       `json:"region"`
	State       string            `json:"state"`
	Threshold   float64           `json:"threshold"`
	Detections  []scan.Detection  `json:"detections"`
	Found       bool              `json:"found"`
	Confidence  float64           `json:"confidence"`
	Sequence    uint64            `json:"sequence"`
	CommittedAt time.Time         `json:"committed_at"`
	Stats       scan.ScannerStats `json:"stats"`
}

// Snapshot is an immutable, tear-free view of the whole overlay.
type Snapshot struct {
	Mode          Mode          `json:"mode"`
	TargetFPS     float64       `json:"target_fps"`
	HardwareAccel bool          `json:"hardware_accel"`
	Scanners      []ScannerView `json:"scanners"`
	TakenAt       time.Time     `json:"taken_at"`
}

// Scanner returns the view with the given id.
func (s Snapshot) Scanner(id string) (ScannerView, bool) {
	for _, v := range s.Scanners {
		if v.ID == id {
			return v, true
		}
	}
	return ScannerView{}, false
}

// Playback is the detection side that play/pause commands drive.
type Playback interface {
	Pause()
	Resume()
}

// Commands is the command surface used by hotkeys, the control window,
// the tray and the web API. Each call is a single atomic command.
type Commands interface {
	Play()
	Pause()
	TogglePlay() bool
	Lock()
	Unlock()
	ToggleLock() bool
	Hide()
	Show()
	ToggleHide() bool
	Quit()
	AddScanner(s *scan.Scanner) error
	CreateScanner(id string, detector scan.Detector, region scan.Region, threshold float64, opts ...scan.ScannerOption) (*scan.Scanner, error)
	RemoveScanner(id string) error
	SetScannerState(id string, state scan.State) error
	Snapshot() Snapshot
}
