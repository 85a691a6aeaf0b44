package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/config"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui"
)

// runFunc is the blocking body of a run.
type runFunc func(ctx context.Context) error

// loopRun adapts lp.Run to a runFunc. Overrides are already folded into
// lp.Config.
func loopRun(lp *loop.Loop) runFunc {
	return func(ctx context.Context) error {
		return lp.Run(ctx, 0, 0)
	}
}

// recorder persists events to the session log. The first write error is
// kept and later writes are still attempted.
type recorder struct {
	w   store.Writer
	mu  sync.Mutex
	err error
}

func (r *recorder) record(entry loop.LogEntry) {
	if err := r.w.Append(entry); err != nil {
		r.mu.Lock()
		if r.err == nil {
			r.err = err
		}
		r.mu.Unlock()
	}
}

func (r *recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// runHeadless runs the loop without the TUI. Events are persisted and
// written to logger.
func runHeadless(ctx context.Context, lp *loop.Loop, w store.Writer, logger *log.Logger) error {
	return drainRun(ctx, lp, w, logger, loopRun(lp))
}

func drainRun(ctx context.Context, lp *loop.Loop, w store.Writer, logger *log.Logger, run runFunc) error {
	events := make(chan loop.LogEntry, 128)
	lp.Events = events
	rec := &recorder{w: w}

	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for entry := range events {
			rec.record(entry)
			loop.Print(logger, entry)
		}
	}()

	runErr := run(ctx)
	close(events)
	<-drainDone

	if err := rec.Err(); err != nil {
		logger.Warn("session log incomplete", "err", err)
	}
	return runErr
}

// runWithTUI runs the loop behind the TUI. Loop events are persisted, then
// forwarded to the TUI. Quitting the TUI cancels the run; 's' lets the
// current iteration finish first.
func runWithTUI(ctx context.Context, lp *loop.Loop, st store.Store, cfg *config.Config) error {
	stopCh := make(chan struct{})
	var stopOnce sync.Once
	requestStop := func() { stopOnce.Do(func() { close(stopCh) }) }
	lp.StopAfter = stopCh

	tuiEvents := make(chan loop.LogEntry, 128)
	model := tui.New(tuiEvents, lp.State, st, cfg.TUI.AccentColor, cfg.Project.Name, lp.Dir, requestStop)
	program := tea.NewProgram(model, tea.WithAltScreen())

	return superviseTUI(ctx, lp, st, tuiEvents, func() error { return finishTUI(program) }, program.Quit, loopRun(lp))
}

// superviseTUI runs the loop and the display side by side. display blocks
// until the user quits; quit asks it to return early.
func superviseTUI(ctx context.Context, lp *loop.Loop, w store.Writer, tuiEvents chan<- loop.LogEntry, display func() error, quit func(), run runFunc) error {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	loopEvents := make(chan loop.LogEntry, 128)
	lp.Events = loopEvents
	rec := &recorder{w: w}

	displayDone := make(chan struct{})
	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for entry := range loopEvents {
			rec.record(entry)
			if entry.Kind == loop.LogPreview {
				select {
				case tuiEvents <- entry:
				default:
				}
				continue
			}
			select {
			case tuiEvents <- entry:
			case <-displayDone:
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		defer close(tuiEvents)
		runErr := run(runCtx)
		close(loopEvents)
		<-forwardDone
		errCh <- runErr
	}()

	// A signal ends the display too.
	go func() {
		select {
		case <-ctx.Done():
			quit()
		case <-displayDone:
		}
	}()

	displayErr := display()
	close(displayDone)
	cancelRun()
	runErr := <-errCh

	if displayErr != nil {
		return displayErr
	}
	if err := rec.Err(); err != nil {
		log.Warn("session log incomplete", "err", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// finishTUI runs the bubbletea program until the user quits.
func finishTUI(program *tea.Program) error {
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
