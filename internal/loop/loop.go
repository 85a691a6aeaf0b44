// Package loop drives coding agents in iterations: N agents run side by
// side each iteration, failed or rate-limited runs are retried, an optional
// review sub-loop checks each agent's work, and the run ends when an agent
// reports that no tasks remain.
package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/config"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
)

// TaskSource hands out work items for agents. *beads.Client satisfies it.
type TaskSource interface {
	Ready(ctx context.Context, limit int) ([]runstate.Task, error)
}

// Repo reports version-control state for events. *git.Runner satisfies it.
type Repo interface {
	CurrentBranch() (string, error)
	LastCommit() (string, error)
}

// Loop orchestrates the prompt -> agents -> review -> summary cycle.
type Loop struct {
	Config *config.Config

	// Settings is the resolved provider. When Settings.Adapter is nil it is
	// derived from Config.
	Settings config.ProviderSettings

	Runner Runner          // defaults to ExecRunner
	State  *runstate.Store // created by Run when nil
	Tasks  TaskSource      // optional
	Repo   Repo            // optional
	Logger *log.Logger     // used when Events is nil; defaults to log.Default()
	Dir    string          // agent working directory; defaults to Config.Dir

	Events           chan<- LogEntry // optional; receives every entry
	NotificationHook func(LogEntry)  // optional; called for every entry

	// StopAfter, when closed, ends the run once the current iteration
	// finishes.
	StopAfter <-chan struct{}

	emitMu sync.Mutex
}

// session holds what stays fixed for one Run.
type session struct {
	*Loop
	adapter    provider.Adapter
	dev        string
	review     string
	fix        string
	agents     int
	maxIter    int
	batch      string
	projectKey string
	branch     string
	dir        string
	hang       time.Duration
}

type iterResult struct {
	usage *provider.UsageSummary
	stop  bool
}

// Run executes iterations until the ceiling is reached, an agent reports
// that no tasks remain, StopAfter is closed, or ctx is cancelled. When
// maxOverride or agentsOverride is positive it replaces the configured
// value.
func (l *Loop) Run(ctx context.Context, maxOverride, agentsOverride int) error {
	s, err := l.newSession(maxOverride, agentsOverride)
	if err != nil {
		return err
	}

	s.emit(LogEntry{
		Kind:     LogInfo,
		Agent:    NoAgent,
		MaxIter:  s.maxIter,
		Provider: s.adapter.Name(),
		Branch:   s.branch,
		Message: fmt.Sprintf("Starting %s loop with %d agent(s) (max: %s)",
			s.adapter.DisplayName(), s.agents, iterLabel(s.maxIter)),
	})

	var total *provider.UsageSummary
	for i := 1; s.maxIter == 0 || i <= s.maxIter; i++ {
		if ctx.Err() != nil {
			s.stopped(i-1, ctx.Err())
			return ctx.Err()
		}

		res, iterErr := s.iteration(ctx, i)
		if ctx.Err() != nil {
			s.stopped(i, ctx.Err())
			return ctx.Err()
		}
		total = addUsage(total, res.usage)
		if iterErr != nil {
			s.emit(LogEntry{Kind: LogError, Agent: NoAgent, Iteration: i, MaxIter: s.maxIter, Message: iterErr.Error()})
			return fmt.Errorf("loop: iteration %d: %w", i, iterErr)
		}
		if res.stop {
			s.emit(LogEntry{
				Kind: LogDone, Agent: NoAgent, Iteration: i, MaxIter: s.maxIter,
				Usage: total, Stop: true,
				Message: fmt.Sprintf("No tasks available after %d iteration(s)", i),
			})
			return nil
		}
		if s.stopRequested() {
			s.emit(LogEntry{Kind: LogStopped, Agent: NoAgent, Iteration: i, MaxIter: s.maxIter, Usage: total,
				Message: fmt.Sprintf("Stopped after iteration %d", i)})
			return nil
		}
		if s.maxIter == 0 || i < s.maxIter {
			if err := s.pause(ctx); err != nil {
				s.stopped(i, err)
				return err
			}
		}
	}

	s.emit(LogEntry{Kind: LogDone, Agent: NoAgent, Iteration: s.maxIter, MaxIter: s.maxIter, Usage: total,
		Message: fmt.Sprintf("Loop complete: %d iteration(s) done", s.maxIter)})
	return nil
}

func (l *Loop) newSession(maxOverride, agentsOverride int) (*session, error) {
	if l.Config == nil {
		return nil, errors.New("loop: no config")
	}
	cfg := l.Config
	s := &session{
		Loop:    l,
		maxIter: cfg.Loop.MaxIterations,
		agents:  cfg.Loop.Agents,
		hang:    time.Duration(cfg.Loop.HangTimeoutSeconds) * time.Second,
		batch:   uuid.NewString()[:8],
		dir:     l.Dir,
	}
	if maxOverride > 0 {
		s.maxIter = maxOverride
	}
	if agentsOverride > 0 {
		s.agents = agentsOverride
	}
	if s.agents < 1 {
		s.agents = 1
	}
	if s.dir == "" {
		s.dir = cfg.Dir
	}
	if s.dir == "" {
		s.dir = "."
	}

	if l.Settings.Adapter == nil {
		settings, err := cfg.ProviderSettings()
		if err != nil {
			return nil, fmt.Errorf("loop: %w", err)
		}
		l.Settings = settings
	}
	s.adapter = l.Settings.Adapter

	var err error
	if s.dev, err = readPrompt(cfg, cfg.Loop.PromptFile); err != nil {
		return nil, err
	}
	if cfg.Review.Enabled {
		if s.review, err = readPrompt(cfg, cfg.Review.PromptFile); err != nil {
			return nil, err
		}
		if cfg.Review.MaxFixAttempts > 0 {
			if s.fix, err = readPrompt(cfg, cfg.Review.FixPromptFile); err != nil {
				return nil, err
			}
		}
	}

	if l.Runner == nil {
		l.Runner = &ExecRunner{}
	}
	if l.State == nil {
		l.State = runstate.New(runstate.Options{
			InitialIteration: 1,
			MaxIterations:    s.maxIter,
			Agents:           agentSlots(s.agents),
			PreviewLines:     cfg.Loop.PreviewLines,
		})
	}
	s.projectKey = ProjectKey(s.dir)
	if l.Repo != nil {
		if branch, err := l.Repo.CurrentBranch(); err == nil {
			s.branch = branch
		}
	}
	return s, nil
}

func readPrompt(cfg *config.Config, file string) (string, error) {
	data, err := os.ReadFile(cfg.Path(file))
	if err != nil {
		return "", fmt.Errorf("loop: read prompt %s: %w", file, err)
	}
	return string(data), nil
}

// agentSlots numbers agents from 1.
func agentSlots(n int) []int {
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i + 1
	}
	return slots
}

func (s *session) iteration(ctx context.Context, n int) (iterResult, error) {
	start := time.Now()
	s.State.SetIteration(n)

	tasks := s.pickTasks(ctx, n)
	logPaths := make(map[int]string, s.agents)
	for slot := 1; slot <= s.agents; slot++ {
		logPaths[slot] = AgentLogPath(s.Settings.LogDir, s.projectKey, s.batch, n, slot)
	}
	s.State.SetRunContext(runstate.RunContext{
		StartedAt:     start,
		Command:       s.Settings.Command,
		Batch:         s.batch,
		Provider:      s.adapter.Name(),
		Project:       s.Config.Project.Name,
		ProjectKey:    s.projectKey,
		Branch:        s.branch,
		AgentLogPaths: logPaths,
	})
	s.emit(LogEntry{Kind: LogIterStart, Agent: NoAgent, Iteration: n, MaxIter: s.maxIter,
		Provider: s.adapter.Name(), Branch: s.branch, Message: fmt.Sprintf("Iteration %d", n)})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.agents)
	gate := s.State.Gate(gctx)
	results := make([]agentResult, s.agents)
	for slot := 1; slot <= s.agents; slot++ {
		var task *runstate.Task
		if t, ok := tasks[slot]; ok {
			task = &t
		}
		g.Go(func() error {
			r, err := s.runAgent(gctx, gate, n, slot, task, logPaths[slot])
			results[slot-1] = r
			return err
		})
	}
	waitErr := g.Wait()
	if ctx.Err() != nil {
		return iterResult{}, ctx.Err()
	}

	var res iterResult
	failed := 0
	for _, r := range results {
		res.usage = addUsage(res.usage, r.usage)
		if r.failed {
			failed++
		}
		if r.stop {
			res.stop = true
		}
	}

	summary := runstate.IterationSummary{Usage: res.usage, PickedBeadsByAgent: tasks}
	outcome := runstate.OutcomeSuccess
	switch {
	case waitErr != nil:
		outcome = runstate.OutcomeFailed
		summary.Notice, summary.NoticeTone = waitErr.Error(), runstate.ToneError
	case failed > 0:
		outcome = runstate.OutcomeFailed
		summary.Notice = fmt.Sprintf("%d of %d agent(s) failed", failed, s.agents)
		summary.NoticeTone = runstate.ToneWarning
	case res.stop:
		summary.Notice, summary.NoticeTone = "No tasks available", runstate.ToneInfo
	default:
		summary.Notice = fmt.Sprintf("%d agent(s) finished", s.agents)
		summary.NoticeTone = runstate.ToneSuccess
	}
	final := s.State.Gate(ctx)
	final.SetIterationSummary(summary)
	final.SetIterationOutcome(n, outcome)

	var commit string
	if s.Repo != nil {
		commit, _ = s.Repo.LastCommit()
	}
	elapsed := time.Since(start)
	s.emit(LogEntry{
		Kind: LogIterComplete, Agent: NoAgent, Iteration: n, MaxIter: s.maxIter,
		Provider: s.adapter.Name(), Branch: s.branch, Commit: commit,
		Usage: res.usage, Duration: elapsed.Seconds(), Outcome: string(outcome), Stop: res.stop,
		Message: fmt.Sprintf("Iteration %d %s in %.1fs", n, outcome, elapsed.Seconds()),
	})
	return res, waitErr
}

// pickTasks asks the task source for one task per agent. A failing source
// is reported and the iteration runs without assignments.
func (s *session) pickTasks(ctx context.Context, n int) map[int]runstate.Task {
	if s.Tasks == nil {
		return nil
	}
	tasks, err := s.Tasks.Ready(ctx, s.agents)
	if err != nil {
		s.emit(LogEntry{Kind: LogError, Agent: NoAgent, Iteration: n, MaxIter: s.maxIter,
			Message: fmt.Sprintf("Picking tasks failed: %v (running without assignments)", err)})
		return nil
	}
	picked := make(map[int]runstate.Task, len(tasks))
	for i, t := range tasks {
		if i >= s.agents {
			break
		}
		picked[i+1] = t
	}
	return picked
}

func (s *session) pause(ctx context.Context) error {
	d := time.Duration(s.Config.Loop.PauseSeconds) * time.Second
	if d <= 0 {
		return nil
	}
	defer s.State.SetPauseState(nil)
	return countdown(ctx, d, func(remaining time.Duration) {
		s.State.SetPauseState(&remaining)
	})
}

func (s *session) stopped(n int, err error) {
	s.emit(LogEntry{Kind: LogStopped, Agent: NoAgent, Iteration: n, MaxIter: s.maxIter,
		Message: fmt.Sprintf("Loop stopped: %v", err)})
}

func (l *Loop) stopRequested() bool {
	if l.StopAfter == nil {
		return false
	}
	select {
	case <-l.StopAfter:
		return true
	default:
		return false
	}
}

// countdown waits d, calling tick about once a second with the time left.
func countdown(ctx context.Context, d time.Duration, tick func(remaining time.Duration)) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		tick(remaining)
		timer := time.NewTimer(min(remaining, time.Second))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// emit stamps entry and fans it out to the hook and either Events or the
// logger. Preview entries are dropped rather than block when Events is
// full; everything else is delivered.
func (l *Loop) emit(entry LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.emitMu.Lock()
	defer l.emitMu.Unlock()

	if l.NotificationHook != nil {
		l.NotificationHook(entry)
	}
	if l.Events == nil {
		l.logEntry(entry)
		return
	}
	if entry.Kind == LogPreview {
		select {
		case l.Events <- entry:
		default:
		}
		return
	}
	l.Events <- entry
}

func (l *Loop) logEntry(e LogEntry) {
	Print(l.Logger, e)
}

// Print writes e to logger as one structured line. A nil logger means
// log.Default().
func Print(logger *log.Logger, e LogEntry) {
	if logger == nil {
		logger = log.Default()
	}
	var kv []any
	if e.Iteration > 0 {
		kv = append(kv, "iter", e.Iteration)
	}
	if e.Agent > 0 {
		kv = append(kv, "agent", e.Agent)
	}
	switch e.Kind {
	case LogPreview:
		if e.Entry != nil {
			logger.Info(e.Entry.Text, append(kv, "kind", e.Entry.Kind, "label", e.Entry.Label)...)
		}
	case LogRetry:
		logger.Warn(e.Message, append(kv, "attempt", e.Attempt, "wait", fmt.Sprintf("%.1fs", e.RetrySeconds))...)
	case LogError:
		logger.Error(e.Message, kv...)
	case LogStopped:
		logger.Warn(e.Message, kv...)
	case LogIterComplete, LogDone:
		if e.Usage != nil {
			kv = append(kv, "in", e.Usage.InputTokens, "cached", e.Usage.CachedInputTokens, "out", e.Usage.OutputTokens)
		}
		if e.Commit != "" {
			kv = append(kv, "commit", e.Commit)
		}
		logger.Info(e.Message, kv...)
	default:
		logger.Info(e.Message, kv...)
	}
}

func addUsage(total, u *provider.UsageSummary) *provider.UsageSummary {
	if u == nil {
		return total
	}
	if total == nil {
		c := *u
		return &c
	}
	sum := total.Add(*u)
	return &sum
}

func iterLabel(max int) string {
	if max == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", max)
}

// commandHint decorates a start failure for a missing binary.
func (s *session) commandHint(err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", err, s.adapter.FormatCommandHint(s.Settings.Command))
	}
	return err
}
