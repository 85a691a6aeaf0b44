package tui

// FocusTarget identifies which panel currently holds keyboard focus.
type FocusTarget int

const (
	FocusAgents     FocusTarget = iota // Left sidebar, agent list
	FocusIterations                    // Left sidebar, iteration timeline
	FocusMain                          // Right top, selected agent output
	FocusEvents                        // Right bottom, event log
)

const focusCount = 4

// Next returns the next focus target in forward tab order.
func (f FocusTarget) Next() FocusTarget {
	return (f + 1) % focusCount
}

// Prev returns the previous focus target in reverse tab order.
func (f FocusTarget) Prev() FocusTarget {
	return (f + focusCount - 1) % focusCount
}

// String returns the human-readable name of the focus target.
func (f FocusTarget) String() string {
	switch f {
	case FocusAgents:
		return "agents"
	case FocusIterations:
		return "iterations"
	case FocusMain:
		return "main"
	case FocusEvents:
		return "events"
	default:
		return "unknown"
	}
}

// LoopState represents the lifecycle of the run as seen from its events.
type LoopState int

const (
	StateIdle    LoopState = iota // Nothing started yet
	StateRunning                  // An iteration is in flight
	StateFailed                   // An agent or the loop reported an error
	StateDone                     // The loop ran to completion or found no work
	StateStopped                  // The loop was stopped before completion
)

var validTransitions = map[LoopState][]LoopState{
	StateIdle:    {StateRunning, StateFailed, StateDone, StateStopped},
	StateRunning: {StateFailed, StateDone, StateStopped},
	StateFailed:  {StateRunning, StateDone, StateStopped},
	StateDone:    {},
	StateStopped: {},
}

// CanTransitionTo reports whether transitioning from s to next is valid.
func (s LoopState) CanTransitionTo(next LoopState) bool {
	for _, valid := range validTransitions[s] {
		if valid == next {
			return true
		}
	}
	return false
}

// Label returns a short uppercase label for the state.
func (s LoopState) Label() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateFailed:
		return "FAILED"
	case StateDone:
		return "DONE"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns a single-character symbol representing the state.
func (s LoopState) Symbol() string {
	switch s {
	case StateIdle:
		return "○"
	case StateRunning:
		return "●"
	case StateFailed:
		return "✗"
	case StateDone:
		return "✓"
	case StateStopped:
		return "⏹"
	default:
		return "?"
	}
}
