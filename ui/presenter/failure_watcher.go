package presenter

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/soocke/cverlay-go/domain/scan"
)

// FailureWatcher drains the scheduler's failure channel, keeps the latest
// report per scanner and forwards each report to OnFailure.
type FailureWatcher struct {
	Failures  <-chan scan.Failure
	Logger    *slog.Logger
	OnFailure func(scan.Failure)

	mu      sync.Mutex
	latest  map[string]scan.Failure
	count   atomic.Uint64
	running bool
	done    chan struct{}
	exited  chan struct{}
}

func NewFailureWatcher(failures <-chan scan.Failure, logger *slog.Logger, onFailure func(scan.Failure)) *FailureWatcher {
	return &FailureWatcher{Failures: failures, Logger: logger, OnFailure: onFailure, latest: make(map[string]scan.Failure)}
}

// Start begins draining. Calling Start on a running watcher is a no-op.
func (w *FailureWatcher) Start() {
	if w == nil || w.Failures == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.done = make(chan struct{})
	w.exited = make(chan struct{})
	go w.loop(w.done, w.exited)
}

// Stop halts draining and waits for the loop to exit.
func (w *FailureWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	exited := w.exited
	w.mu.Unlock()
	<-exited
}

// Latest returns the most recent failure for scanner id.
func (w *FailureWatcher) Latest(id string) (scan.Failure, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, ok := w.latest[id]
	return f, ok
}

// Count is the number of failures drained so far.
func (w *FailureWatcher) Count() uint64 { return w.count.Load() }

func (w *FailureWatcher) loop(done <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)
	for {
		select {
		case f := <-w.Failures:
			w.mu.Lock()
			w.latest[f.ScannerID] = f
			w.mu.Unlock()
			w.count.Add(1)
			if w.Logger != nil {
				w.Logger.Debug("failure observed", "scanner", f.ScannerID, "error", f.Err)
			}
			if w.OnFailure != nil {
				w.OnFailure(f)
			}
		case <-done:
			return
		}
	}
}
