package runstate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// DefaultPreviewLines is used when Options.PreviewLines is not positive.
const DefaultPreviewLines = 20

// Options configures a Store.
type Options struct {
	InitialIteration int
	MaxIterations    int // 0 means unlimited
	Agents           []int
	PreviewLines     int
}

type agentState struct {
	selector AgentSelector
	status   string
	preview  map[Tab][]provider.PreviewEntry
}

// Store is the single owner of mutable run state. Every method is safe for
// concurrent use; each call is applied atomically.
type Store struct {
	mu sync.RWMutex

	iteration     int
	maxIterations int
	previewLines  int
	order         []int
	agents        map[int]*agentState

	run     *RunContext
	summary *IterationSummary
	pause   *time.Duration
	retry   *float64
	markers []IterationMarker

	updated chan struct{}
}

// New returns a Store positioned at opts.InitialIteration.
func New(opts Options) *Store {
	s := &Store{
		iteration:     opts.InitialIteration,
		maxIterations: opts.MaxIterations,
		previewLines:  opts.PreviewLines,
		agents:        make(map[int]*agentState, len(opts.Agents)),
		updated:       make(chan struct{}, 1),
	}
	if s.previewLines <= 0 {
		s.previewLines = DefaultPreviewLines
	}
	for _, a := range opts.Agents {
		s.agentLocked(a)
	}
	s.touchMarkerLocked(s.iteration)
	return s
}

// Updated delivers a value after any mutation. Notifications coalesce: a
// reader that falls behind sees a single pending value.
func (s *Store) Updated() <-chan struct{} { return s.updated }

// update applies fn under the write lock. When ctx is already done the
// mutation is dropped.
func (s *Store) update(ctx context.Context, fn func()) bool {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	fn()
	s.mu.Unlock()

	select {
	case s.updated <- struct{}{}:
	default:
	}
	return true
}

func (s *Store) agentLocked(slot int) *agentState {
	a, ok := s.agents[slot]
	if !ok {
		a = &agentState{
			selector: AgentSelector{ActiveTab: TabDev},
			preview:  make(map[Tab][]provider.PreviewEntry),
		}
		s.agents[slot] = a
		s.order = append(s.order, slot)
	}
	return a
}

// SetIteration moves the run to iteration n.
func (s *Store) SetIteration(n int) {
	s.update(context.Background(), func() { s.setIterationLocked(n) })
}

func (s *Store) setIterationLocked(n int) {
	s.iteration = n
	s.touchMarkerLocked(n)
}

// SetRunContext records the invocation details of the current iteration.
func (s *Store) SetRunContext(rc RunContext) {
	c := rc.clone()
	s.update(context.Background(), func() { s.run = &c })
}

// SetIterationSummary replaces the stored summary. The store keeps its own
// copy, so later changes to summary's map do not leak in.
func (s *Store) SetIterationSummary(summary IterationSummary) {
	s.setIterationSummary(context.Background(), summary)
}

func (s *Store) setIterationSummary(ctx context.Context, summary IterationSummary) {
	c := summary.clone()
	s.update(ctx, func() { s.summary = &c })
}

// SetPauseState sets the between-iterations countdown; nil clears it.
func (s *Store) SetPauseState(remaining *time.Duration) {
	var c *time.Duration
	if remaining != nil {
		v := *remaining
		c = &v
	}
	s.update(context.Background(), func() { s.pause = c })
}

// SetRetryState sets the retry countdown in seconds; nil clears it.
func (s *Store) SetRetryState(seconds *float64) {
	s.setRetryState(context.Background(), seconds)
}

func (s *Store) setRetryState(ctx context.Context, seconds *float64) {
	var c *float64
	if seconds != nil {
		v := *seconds
		c = &v
	}
	s.update(ctx, func() { s.retry = c })
}

// SetAgentActiveTab is manual navigation. RestoreTab is left alone.
func (s *Store) SetAgentActiveTab(agent int, tab Tab) {
	s.update(context.Background(), func() { s.agentLocked(agent).selector.ActiveTab = tab })
}

// SetAgentReviewPhase enters or advances the agent's review sub-loop. On
// entry the current tab is remembered in RestoreTab and the review tab is
// selected; while already in review only the phase payload changes.
func (s *Store) SetAgentReviewPhase(agent int, phase ReviewPhase) {
	s.setAgentReviewPhase(context.Background(), agent, phase)
}

func (s *Store) setAgentReviewPhase(ctx context.Context, agent int, phase ReviewPhase) {
	s.update(ctx, func() {
		sel := &s.agentLocked(agent).selector
		if sel.Review == nil {
			sel.RestoreTab = sel.ActiveTab
			sel.ActiveTab = TabReview
		}
		p := phase
		sel.Review = &p
	})
}

// ClearAgentReviewPhase leaves the review sub-loop. The active tab stays on
// review and RestoreTab is cleared; the viewer navigates back explicitly.
func (s *Store) ClearAgentReviewPhase(agent int) {
	s.clearAgentReviewPhase(context.Background(), agent)
}

func (s *Store) clearAgentReviewPhase(ctx context.Context, agent int) {
	s.update(ctx, func() {
		sel := &s.agentLocked(agent).selector
		sel.Review = nil
		sel.RestoreTab = ""
	})
}

// SetAgentStatus sets the one-line status shown for an agent.
func (s *Store) SetAgentStatus(agent int, status string) {
	s.setAgentStatus(context.Background(), agent, status)
}

func (s *Store) setAgentStatus(ctx context.Context, agent int, status string) {
	s.update(ctx, func() { s.agentLocked(agent).status = status })
}

// SetAgentPreview replaces the preview buffer of one agent tab, keeping the
// last PreviewLines entries.
func (s *Store) SetAgentPreview(agent int, tab Tab, entries []provider.PreviewEntry) {
	s.setAgentPreview(context.Background(), agent, tab, entries)
}

func (s *Store) setAgentPreview(ctx context.Context, agent int, tab Tab, entries []provider.PreviewEntry) {
	s.update(ctx, func() {
		s.agentLocked(agent).preview[tab] = s.tailLocked(nil, entries)
	})
}

// AppendAgentPreview adds entries to one agent tab, keeping the last
// PreviewLines entries.
func (s *Store) AppendAgentPreview(agent int, tab Tab, entries ...provider.PreviewEntry) {
	s.appendAgentPreview(context.Background(), agent, tab, entries)
}

func (s *Store) appendAgentPreview(ctx context.Context, agent int, tab Tab, entries []provider.PreviewEntry) {
	if len(entries) == 0 {
		return
	}
	s.update(ctx, func() {
		a := s.agentLocked(agent)
		a.preview[tab] = s.tailLocked(a.preview[tab], entries)
	})
}

func (s *Store) tailLocked(existing, extra []provider.PreviewEntry) []provider.PreviewEntry {
	total := len(existing) + len(extra)
	skip := 0
	if total > s.previewLines {
		skip = total - s.previewLines
	}
	out := make([]provider.PreviewEntry, 0, total-skip)
	for i, e := range existing {
		if i >= skip {
			out = append(out, e)
		}
	}
	for i, e := range extra {
		if len(existing)+i >= skip {
			out = append(out, e)
		}
	}
	return out
}

// MarkIterationRetry increments the retry counter of iteration.
func (s *Store) MarkIterationRetry(iteration int) {
	s.markIterationRetry(context.Background(), iteration)
}

func (s *Store) markIterationRetry(ctx context.Context, iteration int) {
	s.update(ctx, func() { s.touchMarkerLocked(iteration).RetryCount++ })
}

// SetIterationOutcome records how iteration ended. Exactly one of
// Succeeded and Failed is set afterwards.
func (s *Store) SetIterationOutcome(iteration int, outcome Outcome) {
	s.setIterationOutcome(context.Background(), iteration, outcome)
}

func (s *Store) setIterationOutcome(ctx context.Context, iteration int, outcome Outcome) {
	s.update(ctx, func() {
		m := s.touchMarkerLocked(iteration)
		m.Succeeded = outcome == OutcomeSuccess
		m.Failed = !m.Succeeded
	})
}

// AgentSelector returns a copy of agent's selection state.
func (s *Store) AgentSelector(agent int) AgentSelector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agent]
	if !ok {
		return AgentSelector{ActiveTab: TabDev}
	}
	return copySelector(a.selector)
}

// IterationTimeline returns the timeline with freshly summed totals.
func (s *Store) IterationTimeline() Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timelineLocked()
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Iteration:     s.iteration,
		MaxIterations: s.maxIterations,
		PreviewLines:  s.previewLines,
		Timeline:      s.timelineLocked(),
	}
	if s.run != nil {
		rc := s.run.clone()
		snap.Run = &rc
	}
	if s.summary != nil {
		sum := s.summary.clone()
		snap.Summary = &sum
	}
	if s.pause != nil {
		v := *s.pause
		snap.PauseRemaining = &v
	}
	if s.retry != nil {
		v := *s.retry
		snap.RetrySeconds = &v
	}

	slots := append([]int(nil), s.order...)
	sort.Ints(slots)
	snap.Agents = make([]AgentView, 0, len(slots))
	for _, slot := range slots {
		a := s.agents[slot]
		view := AgentView{
			Slot:     slot,
			Selector: copySelector(a.selector),
			Status:   a.status,
			Preview:  make(map[Tab][]provider.PreviewEntry, len(a.preview)),
		}
		for tab, entries := range a.preview {
			view.Preview[tab] = append([]provider.PreviewEntry(nil), entries...)
		}
		snap.Agents = append(snap.Agents, view)
	}
	return snap
}

func copySelector(sel AgentSelector) AgentSelector {
	if sel.Review != nil {
		r := *sel.Review
		sel.Review = &r
	}
	return sel
}
