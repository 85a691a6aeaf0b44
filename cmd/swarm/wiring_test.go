package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
)

type memWriter struct {
	mu      sync.Mutex
	entries []loop.LogEntry
	err     error
}

func (m *memWriter) Append(e loop.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memWriter) Close() error { return nil }

func (m *memWriter) kinds() []loop.LogKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]loop.LogKind, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Kind
	}
	return out
}

func emitAll(lp *loop.Loop, entries ...loop.LogEntry) {
	for _, e := range entries {
		lp.Events <- e
	}
}

func TestRecorderKeepsFirstError(t *testing.T) {
	first := errors.New("disk full")
	w := &memWriter{err: first}
	rec := &recorder{w: w}

	rec.record(loop.LogEntry{Kind: loop.LogInfo})
	w.err = errors.New("later")
	rec.record(loop.LogEntry{Kind: loop.LogInfo})

	if !errors.Is(rec.Err(), first) {
		t.Errorf("Err() = %v, want %v", rec.Err(), first)
	}
}

func TestDrainRunPersistsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	w := &memWriter{}
	lp := &loop.Loop{}

	err := drainRun(context.Background(), lp, w, logger, func(ctx context.Context) error {
		emitAll(lp,
			loop.LogEntry{Kind: loop.LogIterStart, Iteration: 1, Message: "Iteration 1"},
			loop.LogEntry{Kind: loop.LogIterComplete, Iteration: 1, Message: "Iteration 1 success"},
			loop.LogEntry{Kind: loop.LogDone, Message: "Loop complete"},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("drainRun: %v", err)
	}

	got := w.kinds()
	want := []loop.LogKind{loop.LogIterStart, loop.LogIterComplete, loop.LogDone}
	if len(got) != len(want) {
		t.Fatalf("persisted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
	if !strings.Contains(buf.String(), "Loop complete") {
		t.Errorf("log output missing final entry:\n%s", buf.String())
	}
}

func TestDrainRunReportsStoreFailure(t *testing.T) {
	var buf bytes.Buffer
	w := &memWriter{err: errors.New("disk full")}
	lp := &loop.Loop{}
	runErr := errors.New("agent failed")

	err := drainRun(context.Background(), lp, w, log.New(&buf), func(ctx context.Context) error {
		emitAll(lp, loop.LogEntry{Kind: loop.LogError, Message: "boom"})
		return runErr
	})
	if !errors.Is(err, runErr) {
		t.Errorf("drainRun = %v, want %v", err, runErr)
	}
	if !strings.Contains(buf.String(), "session log incomplete") {
		t.Errorf("expected store warning, got:\n%s", buf.String())
	}
}

func TestSuperviseTUIForwardsAndPersists(t *testing.T) {
	w := &memWriter{}
	lp := &loop.Loop{}
	tuiEvents := make(chan loop.LogEntry, 8)

	var shown []loop.LogEntry
	display := func() error {
		for e := range tuiEvents {
			shown = append(shown, e)
		}
		return nil
	}
	run := func(ctx context.Context) error {
		emitAll(lp,
			loop.LogEntry{Kind: loop.LogIterStart, Iteration: 1},
			loop.LogEntry{Kind: loop.LogDone},
		)
		return nil
	}

	if err := superviseTUI(context.Background(), lp, w, tuiEvents, display, func() {}, run); err != nil {
		t.Fatalf("superviseTUI: %v", err)
	}
	if len(shown) != 2 {
		t.Errorf("display received %d entries, want 2", len(shown))
	}
	if len(w.kinds()) != 2 {
		t.Errorf("store received %d entries, want 2", len(w.kinds()))
	}
}

func TestSuperviseTUIQuitCancelsRun(t *testing.T) {
	lp := &loop.Loop{}
	tuiEvents := make(chan loop.LogEntry, 8)
	cancelled := make(chan struct{})

	run := func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}
	display := func() error { return nil }

	if err := superviseTUI(context.Background(), lp, &memWriter{}, tuiEvents, display, func() {}, run); err != nil {
		t.Fatalf("superviseTUI = %v, want nil after user quit", err)
	}
	select {
	case <-cancelled:
	default:
		t.Error("run was not cancelled when the display quit")
	}
}

func TestSuperviseTUISignalQuitsDisplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lp := &loop.Loop{}
	tuiEvents := make(chan loop.LogEntry, 8)

	quitCh := make(chan struct{})
	var once sync.Once
	quit := func() { once.Do(func() { close(quitCh) }) }
	display := func() error {
		select {
		case <-quitCh:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("display was never asked to quit")
		}
	}
	run := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	cancel()
	if err := superviseTUI(ctx, lp, &memWriter{}, tuiEvents, display, quit, run); err != nil {
		t.Fatalf("superviseTUI: %v", err)
	}
}

func TestSuperviseTUIReturnsLoopError(t *testing.T) {
	lp := &loop.Loop{}
	tuiEvents := make(chan loop.LogEntry, 8)
	loopErr := errors.New("loop: iteration 1: agent crashed")

	display := func() error {
		for range tuiEvents {
		}
		return nil
	}
	run := func(ctx context.Context) error { return loopErr }

	err := superviseTUI(context.Background(), lp, &memWriter{}, tuiEvents, display, func() {}, run)
	if !errors.Is(err, loopErr) {
		t.Errorf("superviseTUI = %v, want %v", err, loopErr)
	}
}

func TestSuperviseTUIDropsPreviewsWhenDisplayLags(t *testing.T) {
	lp := &loop.Loop{}
	tuiEvents := make(chan loop.LogEntry) // unbuffered and never read until run ends
	release := make(chan struct{})

	run := func(ctx context.Context) error {
		for i := 0; i < 5; i++ {
			lp.Events <- loop.LogEntry{Kind: loop.LogPreview}
		}
		close(release)
		return nil
	}
	display := func() error {
		<-release
		for range tuiEvents {
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- superviseTUI(context.Background(), lp, &memWriter{}, tuiEvents, display, func() {}, run)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("superviseTUI: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("previews blocked the forwarder")
	}
}
