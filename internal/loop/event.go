package loop

import (
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// LogKind identifies the type of a loop log event.
type LogKind int

const (
	LogInfo         LogKind = iota // General informational message
	LogIterStart                   // Iteration starting
	LogAgentStart                  // Agent process launched
	LogPreview                     // Normalized agent output
	LogRetry                       // Agent run failed or was rate limited; retrying
	LogReview                      // Review sub-loop phase change
	LogAgentDone                   // Agent finished its iteration
	LogIterComplete                // Iteration finished
	LogError                       // Error from an agent or the loop
	LogDone                        // Loop finished normally
	LogStopped                     // Loop stopped (context cancelled)
)

var kindNames = [...]string{
	LogInfo:         "info",
	LogIterStart:    "iter_start",
	LogAgentStart:   "agent_start",
	LogPreview:      "preview",
	LogRetry:        "retry",
	LogReview:       "review",
	LogAgentDone:    "agent_done",
	LogIterComplete: "iter_complete",
	LogError:        "error",
	LogDone:         "done",
	LogStopped:      "stopped",
}

func (k LogKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// NoAgent marks a LogEntry that is not tied to one agent slot.
const NoAgent = -1

// LogEntry is a structured event emitted by the loop.
// When the Loop.Events channel is set, entries are sent there for TUI and
// session-log consumption. Otherwise they are written to Loop.Logger.
type LogEntry struct {
	Kind      LogKind
	Timestamp time.Time
	Message   string

	// Iteration state
	Iteration int
	MaxIter   int

	// Agent is the agent slot, or NoAgent.
	Agent    int
	Provider string
	LogPath  string
	BeadID   string

	// Git state
	Branch string
	Commit string

	// Preview fields
	Entry *provider.PreviewEntry `json:",omitempty"`

	// Retry fields
	Attempt      int
	RetrySeconds float64
	ExitCode     int

	// Review fields
	ReviewPhase string
	FixAttempt  int

	// Completion fields
	Usage    *provider.UsageSummary `json:",omitempty"`
	Duration float64                // seconds
	Outcome  string                 // "success" or "failed" on LogIterComplete
	Stop     bool                   // an agent reported no remaining work
}
