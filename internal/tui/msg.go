package tui

import (
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
)

// logEntryMsg wraps a LogEntry received from the loop.
type logEntryMsg loop.LogEntry

// loopDoneMsg signals the event channel closed.
type loopDoneMsg struct{}

// snapshotMsg carries a fresh copy of the run state.
type snapshotMsg runstate.Snapshot

// tickMsg is sent every second for the clock.
type tickMsg time.Time

// iterationLogLoadedMsg carries a past iteration read from the session log.
type iterationLogLoadedMsg struct {
	Number  int
	Entries []loop.LogEntry
	Record  store.IterationRecord
	Err     error
}
