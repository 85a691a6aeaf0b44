// Package store persists loop events to a JSONL session log and provides
// indexed read-back of past iterations. One store instance is created per
// swarm run in cmd/swarm; past sessions are reopened read-only for
// `swarm history`.
package store

import (
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// Writer persists loop events to durable storage.
type Writer interface {
	Append(entry loop.LogEntry) error
	Close() error
}

// Reader retrieves past iteration data from storage.
type Reader interface {
	Iterations() ([]IterationRecord, error)
	IterationLog(n int) ([]loop.LogEntry, error)
	SessionSummary() (SessionSummary, error)
}

// Store combines Writer and Reader into a single session-scoped handle.
type Store interface {
	Writer
	Reader
}

// IterationRecord summarises one completed loop iteration.
type IterationRecord struct {
	Number   int
	Agents   int
	Retries  int
	Usage    provider.UsageSummary
	Duration float64
	Outcome  string // "success" or "failed"
	Stop     bool   // an agent reported no remaining tasks
	Commit   string
	StartAt  time.Time
	EndAt    time.Time
}

// SessionSummary summarises one session.
type SessionSummary struct {
	SessionID  string
	StartedAt  time.Time
	Provider   string
	Iterations int
	Failed     int
	Retries    int
	Usage      provider.UsageSummary
	LastCommit string
	Branch     string
}
