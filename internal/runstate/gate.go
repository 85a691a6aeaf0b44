package runstate

import (
	"context"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// Gated is the view of a Store handed to an agent worker. Once its context
// is done every mutation made through it is silently dropped, so a
// cancelled worker cannot touch the run state. Reads go straight to the
// store.
type Gated struct {
	ctx   context.Context
	store *Store
}

// Gate returns a view of s whose mutations stop once ctx is done.
func (s *Store) Gate(ctx context.Context) *Gated {
	return &Gated{ctx: ctx, store: s}
}

// Store returns the underlying store.
func (g *Gated) Store() *Store { return g.store }

// Active reports whether mutations are still accepted.
func (g *Gated) Active() bool { return g.ctx.Err() == nil }

func (g *Gated) SetIterationSummary(summary IterationSummary) {
	g.store.setIterationSummary(g.ctx, summary)
}

func (g *Gated) SetRetryState(seconds *float64) {
	g.store.setRetryState(g.ctx, seconds)
}

func (g *Gated) SetAgentReviewPhase(agent int, phase ReviewPhase) {
	g.store.setAgentReviewPhase(g.ctx, agent, phase)
}

func (g *Gated) ClearAgentReviewPhase(agent int) {
	g.store.clearAgentReviewPhase(g.ctx, agent)
}

func (g *Gated) SetAgentStatus(agent int, status string) {
	g.store.setAgentStatus(g.ctx, agent, status)
}

func (g *Gated) SetAgentPreview(agent int, tab Tab, entries []provider.PreviewEntry) {
	g.store.setAgentPreview(g.ctx, agent, tab, entries)
}

func (g *Gated) AppendAgentPreview(agent int, tab Tab, entries ...provider.PreviewEntry) {
	g.store.appendAgentPreview(g.ctx, agent, tab, entries)
}

func (g *Gated) MarkIterationRetry(iteration int) {
	g.store.markIterationRetry(g.ctx, iteration)
}

func (g *Gated) SetIterationOutcome(iteration int, outcome Outcome) {
	g.store.setIterationOutcome(g.ctx, iteration, outcome)
}
