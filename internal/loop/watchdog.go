package loop

import (
	"context"
	"sync"
	"time"
)

// watchdog cancels an agent run that has produced no output for timeout.
type watchdog struct {
	timeout time.Duration

	mu   sync.Mutex
	last time.Time
	hung bool
}

func newWatchdog(timeout time.Duration) *watchdog {
	return &watchdog{timeout: timeout, last: time.Now()}
}

// touch records output activity.
func (w *watchdog) touch() {
	w.mu.Lock()
	w.last = time.Now()
	w.mu.Unlock()
}

// Hung reports whether the watchdog fired.
func (w *watchdog) Hung() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hung
}

// run calls fn with a context that is cancelled once the agent goes
// silent. A non-positive timeout disables detection.
func (w *watchdog) run(ctx context.Context, fn func(context.Context) error) error {
	if w.timeout <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.timeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				w.mu.Lock()
				silent := time.Since(w.last)
				if silent >= w.timeout {
					w.hung = true
				}
				hung := w.hung
				w.mu.Unlock()
				if hung {
					cancel()
					return
				}
			}
		}
	}()

	err := fn(runCtx)
	cancel()
	<-done
	return err
}
