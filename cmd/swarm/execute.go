package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/beads"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/config"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/git"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/notify"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
)

// sessionsDir holds one JSONL session log per run, relative to the
// directory swarm.toml lives in.
const sessionsDir = ".swarm/sessions"

// notifyFlushTimeout bounds how long exit waits for in-flight notifications.
const notifyFlushTimeout = 5 * time.Second

type runOptions struct {
	Max      int
	Agents   int
	Provider string
	NoTUI    bool
}

// executeRun loads config, builds the loop, and runs it with or without
// the TUI.
func executeRun(opts runOptions) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}
	settings, err := cfg.ProviderSettings()
	if err != nil {
		return err
	}

	registerQuitHandler()
	ctx, cancel := signalContext()
	defer cancel()

	lp := newLoop(cfg, settings)
	if repo, ok := lp.Repo.(*git.Runner); ok {
		warnDirtyTree(repo, log.Default())
	}

	sessionDir := cfg.Path(sessionsDir)
	session, err := store.NewJSONL(sessionDir)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Warn("close session log", "err", closeErr)
		}
		if retErr := store.EnforceRetention(sessionDir, cfg.TUI.LogRetention); retErr != nil {
			log.Warn("session log retention", "err", retErr)
		}
	}()

	notifier := notify.New(cfg.Notifications, cfg.Project.Name)
	lp.NotificationHook = notifier.Hook
	defer notifier.Wait(notifyFlushTimeout)

	if opts.NoTUI {
		return runHeadless(ctx, lp, session, log.Default())
	}
	return runWithTUI(ctx, lp, session, cfg)
}

// applyOverrides folds command-line flags into cfg and validates the
// result.
func applyOverrides(cfg *config.Config, opts runOptions) error {
	if opts.Max < 0 {
		return errors.New("--max must be >= 0")
	}
	if opts.Agents < 0 {
		return errors.New("--agents must be >= 0")
	}
	if opts.Provider != "" {
		cfg.Provider.Name = opts.Provider
	}
	if opts.Max > 0 {
		cfg.Loop.MaxIterations = opts.Max
	}
	if opts.Agents > 0 {
		cfg.Loop.Agents = opts.Agents
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid %s:\n%w", config.FileName, err)
	}
	return nil
}

// newLoop wires the loop to its optional collaborators. Git state is read
// only when the project is a repository; beads only when enabled.
func newLoop(cfg *config.Config, settings config.ProviderSettings) *loop.Loop {
	dir := cfg.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	lp := &loop.Loop{
		Config:   cfg,
		Settings: settings,
		Dir:      dir,
		State: runstate.New(runstate.Options{
			InitialIteration: 1,
			MaxIterations:    cfg.Loop.MaxIterations,
			Agents:           agentSlots(cfg.Loop.Agents),
			PreviewLines:     cfg.Loop.PreviewLines,
		}),
	}
	if repo := git.NewRunner(dir); repo.IsRepo() {
		lp.Repo = repo
	}
	if cfg.Beads.Enabled {
		lp.Tasks = beads.New(cfg.Beads.Command, dir)
	}
	return lp
}

func agentSlots(n int) []int {
	slots := make([]int, max(n, 1))
	for i := range slots {
		slots[i] = i + 1
	}
	return slots
}

// warnDirtyTree notes uncommitted changes the agents will start from.
func warnDirtyTree(repo *git.Runner, logger *log.Logger) {
	dirty, err := repo.HasUncommittedChanges()
	if err != nil {
		logger.Debug("git status", "err", err)
		return
	}
	if dirty {
		logger.Warn("working tree has uncommitted changes; agents will start from them", "dir", repo.Dir)
	}
}
