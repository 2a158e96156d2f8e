// Package hook registers hotkey bindings with the OS keyboard hook. It
// needs cgo and a desktop session.
package hook

import (
	"log/slog"
	"sync"

	gohook "github.com/robotn/gohook"

	"github.com/soocke/cverlay-go/ui/hotkey"
)

// Listener delivers bound key combinations to handle, on the hook goroutine.
type Listener struct {
	bindings []hotkey.Binding
	handle   func(command string)
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewListener(bindings []hotkey.Binding, handle func(command string), logger *slog.Logger) *Listener {
	return &Listener{bindings: bindings, handle: handle, logger: logger}
}

// Start registers the bindings and begins processing key events.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	for _, b := range l.bindings {
		gohook.Register(gohook.KeyDown, b.Keys, func(gohook.Event) {
			if l.logger != nil {
				l.logger.Debug("hotkey", "combo", b.Combo, "command", b.Command)
			}
			l.handle(b.Command)
		})
	}
	events := gohook.Start()
	l.done = make(chan struct{})
	l.running = true
	go func(done chan struct{}) {
		defer close(done)
		defer func() {
			if r := recover(); r != nil && l.logger != nil {
				l.logger.Error("hotkey loop panic", "panic", r)
			}
		}()
		<-gohook.Process(events)
	}(l.done)
	if l.logger != nil {
		l.logger.Info("hotkeys registered", "count", len(l.bindings))
	}
}

// Stop ends the hook and waits for the processing goroutine.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	done := l.done
	l.mu.Unlock()
	gohook.End()
	<-done
}
