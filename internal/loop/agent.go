package loop

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
)

type agentResult struct {
	usage  *provider.UsageSummary
	failed bool
	stop   bool
}

// attempt is the outcome of one invocation after retries.
type attempt struct {
	entries     []provider.PreviewEntry
	lastMessage string
	usage       *provider.UsageSummary
	failed      bool
}

// runAgent runs one agent slot for iteration n. Only errors that should end
// the whole run (a missing binary, cancellation) are returned; an agent
// that exhausts its retries is reported through agentResult.failed.
func (s *session) runAgent(ctx context.Context, gate *runstate.Gated, n, slot int, task *runstate.Task, logPath string) (agentResult, error) {
	var res agentResult
	prompt, beadID := s.dev, ""
	if task != nil {
		prompt, beadID = withTask(s.dev, *task), task.ID
	}

	gate.SetAgentPreview(slot, runstate.TabDev, nil)
	gate.SetAgentStatus(slot, "running")
	s.emit(LogEntry{Kind: LogAgentStart, Iteration: n, MaxIter: s.maxIter, Agent: slot,
		Provider: s.adapter.Name(), LogPath: logPath, BeadID: beadID,
		Message: fmt.Sprintf("Agent %d started%s", slot, taskSuffix(task))})
	start := time.Now()

	out, err := s.invokeWithRetry(ctx, gate, n, slot, runstate.TabDev, prompt, logPath, "dev")
	res.usage = out.usage
	if err != nil {
		res.failed = true
		gate.SetAgentStatus(slot, "error")
		return res, err
	}
	res.failed = out.failed
	if !out.failed {
		res.stop = ShouldStopFromProviderOutput(s.adapter, out.entries, out.lastMessage)
	}

	if s.Config.Review.Enabled && !res.failed && !res.stop {
		passed, usage, err := s.reviewLoop(ctx, gate, n, slot, beadID, logPath)
		res.usage = addUsage(res.usage, usage)
		if err != nil {
			res.failed = true
			gate.SetAgentStatus(slot, "error")
			return res, err
		}
		res.failed = !passed
	}

	status := "done"
	switch {
	case res.failed:
		status = "failed"
	case res.stop:
		status = "no tasks"
	}
	gate.SetAgentStatus(slot, status)
	s.emit(LogEntry{Kind: LogAgentDone, Iteration: n, MaxIter: s.maxIter, Agent: slot,
		Provider: s.adapter.Name(), LogPath: logPath, BeadID: beadID, Usage: res.usage,
		Duration: time.Since(start).Seconds(), Stop: res.stop,
		Message: fmt.Sprintf("Agent %d %s", slot, status)})
	return res, nil
}

// reviewLoop alternates review and fix runs until the review passes or the
// fix attempts run out. The review phase is cleared on the way out.
func (s *session) reviewLoop(ctx context.Context, gate *runstate.Gated, n, slot int, beadID, logPath string) (bool, *provider.UsageSummary, error) {
	var usage *provider.UsageSummary
	defer gate.ClearAgentReviewPhase(slot)

	for fix := 0; ; fix++ {
		s.setReviewPhase(gate, n, slot, runstate.ReviewPhase{Phase: runstate.PhaseReviewing, FixAttempt: fix, BeadID: beadID})
		out, err := s.invokeWithRetry(ctx, gate, n, slot, runstate.TabReview, s.review, logPath, fmt.Sprintf("review%d", fix))
		usage = addUsage(usage, out.usage)
		if err != nil {
			return false, usage, err
		}
		if !out.failed && reviewPassed(s.Config.Review.PassMarker, out.entries, out.lastMessage) {
			s.emit(LogEntry{Kind: LogReview, Iteration: n, MaxIter: s.maxIter, Agent: slot, BeadID: beadID,
				FixAttempt: fix, Message: fmt.Sprintf("Agent %d review passed", slot)})
			return true, usage, nil
		}
		if out.failed || fix >= s.Config.Review.MaxFixAttempts {
			s.emit(LogEntry{Kind: LogReview, Iteration: n, MaxIter: s.maxIter, Agent: slot, BeadID: beadID,
				FixAttempt: fix, Message: fmt.Sprintf("Agent %d review did not pass after %d fix attempt(s)", slot, fix)})
			return false, usage, nil
		}

		s.setReviewPhase(gate, n, slot, runstate.ReviewPhase{Phase: runstate.PhaseFixing, FixAttempt: fix + 1, BeadID: beadID})
		out, err = s.invokeWithRetry(ctx, gate, n, slot, runstate.TabReview, s.fix, logPath, fmt.Sprintf("fix%d", fix+1))
		usage = addUsage(usage, out.usage)
		if err != nil {
			return false, usage, err
		}
		if out.failed {
			return false, usage, nil
		}
	}
}

func (s *session) setReviewPhase(gate *runstate.Gated, n, slot int, phase runstate.ReviewPhase) {
	gate.SetAgentReviewPhase(slot, phase)
	gate.SetAgentStatus(slot, string(phase.Phase))
	s.emit(LogEntry{Kind: LogReview, Iteration: n, MaxIter: s.maxIter, Agent: slot, BeadID: phase.BeadID,
		ReviewPhase: string(phase.Phase), FixAttempt: phase.FixAttempt,
		Message: fmt.Sprintf("Agent %d %s (fix attempt %d)", slot, phase.Phase, phase.FixAttempt)})
}

// invokeWithRetry runs prompt until it succeeds or max_retries is spent.
// A run is retried when it exits non-zero, or when it carries a rate-limit
// hint and produced no assistant output. The hint, when present, replaces
// the configured backoff.
func (s *session) invokeWithRetry(ctx context.Context, gate *runstate.Gated, n, slot int, tab runstate.Tab, prompt, logPath, phase string) (attempt, error) {
	var out attempt
	for try := 1; ; try++ {
		res, last, err := s.invoke(ctx, gate, slot, tab, prompt, logPath, phase)
		if err != nil {
			return out, err
		}
		out.entries = s.adapter.CollectMessages(res.Output)
		out.lastMessage = last
		out.usage = addUsage(out.usage, s.adapter.ExtractUsageSummary(res.Output))

		hint, hinted := s.adapter.ExtractRetryDelaySeconds(res.Output + "\n" + res.Stderr)
		if res.ExitCode == 0 && !(hinted && !hasAssistant(out.entries)) {
			out.failed = false
			return out, nil
		}
		out.failed = true
		if try > s.Config.Loop.MaxRetries {
			s.emit(LogEntry{Kind: LogError, Iteration: n, MaxIter: s.maxIter, Agent: slot, LogPath: logPath,
				ExitCode: res.ExitCode, Attempt: try,
				Message: fmt.Sprintf("Agent %d failed after %d attempt(s) (exit %d)", slot, try, res.ExitCode)})
			return out, nil
		}

		wait := float64(s.Config.Loop.RetryBackoffSeconds)
		if hinted {
			wait = hint
		}
		gate.MarkIterationRetry(n)
		gate.SetAgentStatus(slot, "retrying")
		s.emit(LogEntry{Kind: LogRetry, Iteration: n, MaxIter: s.maxIter, Agent: slot, LogPath: logPath,
			Attempt: try, RetrySeconds: wait, ExitCode: res.ExitCode,
			Message: fmt.Sprintf("Agent %d retrying in %.1fs (attempt %d, exit %d)", slot, wait, try, res.ExitCode)})

		err = countdown(ctx, time.Duration(wait*float64(time.Second)), func(remaining time.Duration) {
			secs := remaining.Seconds()
			gate.SetRetryState(&secs)
		})
		gate.SetRetryState(nil)
		if err != nil {
			return out, err
		}
		gate.SetAgentStatus(slot, "running")
	}
}

// invoke runs the agent once, streaming normalized lines into the preview
// of tab. A run killed by the watchdog is reported as exit -1.
func (s *session) invoke(ctx context.Context, gate *runstate.Gated, slot int, tab runstate.Tab, prompt, logPath, phase string) (Result, string, error) {
	var lastPath string
	if logPath != "" {
		lastPath = lastMessagePath(logPath, phase)
		_ = os.Remove(lastPath)
	}

	inv := Invocation{
		Command: s.Settings.Command,
		Args:    s.adapter.BuildExecArgs(prompt, lastPath, s.Settings.Options),
		Dir:     s.dir,
		LogPath: logPath,
	}
	wd := newWatchdog(s.hang)
	inv.OnLine = func(line string) {
		wd.touch()
		entries := s.adapter.PreviewEntriesFromLine(line)
		if len(entries) == 0 {
			return
		}
		gate.AppendAgentPreview(slot, tab, entries...)
		for i := range entries {
			s.emit(LogEntry{Kind: LogPreview, Agent: slot, Entry: &entries[i], LogPath: logPath})
		}
	}

	var res Result
	err := wd.run(ctx, func(runCtx context.Context) error {
		var runErr error
		res, runErr = s.Runner.Run(runCtx, inv)
		return runErr
	})
	if err != nil {
		if ctx.Err() == nil && wd.Hung() {
			s.emit(LogEntry{Kind: LogError, Agent: slot, LogPath: logPath,
				Message: fmt.Sprintf("Agent %d produced no output for %s; killed", slot, s.hang)})
			res.ExitCode = -1
			return res, "", nil
		}
		return res, "", fmt.Errorf("agent %d: %w", slot, s.commandHint(err))
	}

	var last string
	if lastPath != "" {
		if data, readErr := os.ReadFile(lastPath); readErr == nil {
			last = string(data)
		}
	}
	return res, last, nil
}

func withTask(prompt string, t runstate.Task) string {
	return fmt.Sprintf("%s\n\n## Assigned task\n\n%s: %s\n\nWork only on this task.\n", prompt, t.ID, t.Title)
}

func taskSuffix(t *runstate.Task) string {
	if t == nil {
		return ""
	}
	return fmt.Sprintf(" on %s", t.ID)
}
