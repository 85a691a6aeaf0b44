// Package runstate holds the live, shared state of a swarm run. Agent
// workers write to it concurrently; the render layer reads immutable
// snapshots from it.
package runstate

import (
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// Tab is a per-agent view selection.
type Tab string

const (
	TabDev    Tab = "dev"
	TabReview Tab = "review"
)

// Phase is the step an agent is at inside its review sub-loop.
type Phase string

const (
	PhaseReviewing Phase = "reviewing"
	PhaseFixing    Phase = "fixing"
)

// ReviewPhase describes an agent's nested review/fix sub-loop.
type ReviewPhase struct {
	Phase      Phase  `json:"phase"`
	FixAttempt int    `json:"fix_attempt"`
	BeadID     string `json:"bead_id,omitempty"`
}

// AgentSelector is the UI selection state of one agent. RestoreTab is
// empty when nothing is waiting to be restored.
type AgentSelector struct {
	ActiveTab  Tab          `json:"active_tab"`
	RestoreTab Tab          `json:"restore_tab,omitempty"`
	Review     *ReviewPhase `json:"review,omitempty"`
}

// Task is the work item an agent picked for an iteration.
type Task struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// RunContext describes one iteration's invocation. AgentLogPaths maps an
// agent slot to the file its raw output is teed into.
type RunContext struct {
	StartedAt     time.Time      `json:"started_at"`
	Command       string         `json:"command"`
	Batch         string         `json:"batch"`
	Provider      string         `json:"provider"`
	Project       string         `json:"project"`
	ProjectKey    string         `json:"project_key"`
	Branch        string         `json:"branch,omitempty"`
	AgentLogPaths map[int]string `json:"agent_log_paths"`
}

func (rc RunContext) clone() RunContext {
	rc.AgentLogPaths = cloneMap(rc.AgentLogPaths)
	return rc
}

// NoticeTone colours IterationSummary.Notice.
type NoticeTone string

const (
	ToneInfo    NoticeTone = "info"
	ToneSuccess NoticeTone = "success"
	ToneWarning NoticeTone = "warning"
	ToneError   NoticeTone = "error"
)

// IterationSummary is the result of one completed iteration. It is always
// replaced as a whole.
type IterationSummary struct {
	Usage              *provider.UsageSummary `json:"usage,omitempty"`
	PickedBeadsByAgent map[int]Task           `json:"picked_beads_by_agent,omitempty"`
	Notice             string                 `json:"notice,omitempty"`
	NoticeTone         NoticeTone             `json:"notice_tone,omitempty"`
}

func (s IterationSummary) clone() IterationSummary {
	if s.Usage != nil {
		u := *s.Usage
		s.Usage = &u
	}
	s.PickedBeadsByAgent = cloneMap(s.PickedBeadsByAgent)
	return s
}

// Outcome is the terminal result of an iteration.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// IterationMarker is one entry of the iteration timeline.
type IterationMarker struct {
	Iteration  int  `json:"iteration"`
	RetryCount int  `json:"retry_count"`
	Succeeded  bool `json:"succeeded"`
	Failed     bool `json:"failed"`
	IsCurrent  bool `json:"is_current"`
}

// Timeline is the bounded iteration history with totals summed over the
// retained markers.
type Timeline struct {
	CurrentIteration int               `json:"current_iteration"`
	TotalRetries     int               `json:"total_retries"`
	TotalFailed      int               `json:"total_failed"`
	Markers          []IterationMarker `json:"markers"`
}

// AgentView is everything the render layer shows for one agent.
type AgentView struct {
	Slot     int                             `json:"slot"`
	Selector AgentSelector                   `json:"selector"`
	Status   string                          `json:"status"`
	Preview  map[Tab][]provider.PreviewEntry `json:"preview"`
}

// Snapshot is a point-in-time copy of the store. Nothing in it aliases
// store memory.
type Snapshot struct {
	Iteration      int               `json:"iteration"`
	MaxIterations  int               `json:"max_iterations"`
	PreviewLines   int               `json:"preview_lines"`
	Run            *RunContext       `json:"run,omitempty"`
	Summary        *IterationSummary `json:"summary,omitempty"`
	PauseRemaining *time.Duration    `json:"pause_remaining,omitempty"`
	RetrySeconds   *float64          `json:"retry_seconds,omitempty"`
	Agents         []AgentView       `json:"agents"`
	Timeline       Timeline          `json:"timeline"`
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
