package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/config"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui/panels"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{}
			opts.Max, _ = cmd.Flags().GetInt("max")
			opts.Agents, _ = cmd.Flags().GetInt("agents")
			opts.Provider, _ = cmd.Flags().GetString("provider")
			opts.NoTUI, _ = cmd.Flags().GetBool("no-tui")
			return executeRun(opts)
		},
	}
	cmd.Flags().Int("max", 0, "override max iterations (0 = use config)")
	cmd.Flags().Int("agents", 0, "override agents per iteration (0 = use config)")
	cmd.Flags().String("provider", "", "override provider ("+strings.Join(provider.Names(), ", ")+")")
	return cmd
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Scaffold swarm project (config and prompt files)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}
			created, err := config.ScaffoldProject(dir)
			fmt.Print(formatScaffoldResult(created))
			return err
		},
	}
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported agent providers and their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(formatProviders(provider.All()))
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [session]",
		Short: "List past sessions, or show one session's iterations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			dir := cfg.Path(sessionsDir)
			if len(args) == 1 {
				return showSession(dir, args[0])
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return listSessions(dir, limit)
		},
	}
	cmd.Flags().Int("limit", 10, "number of sessions to list (0 = all)")
	return cmd
}

func listSessions(dir string, limit int) error {
	paths, err := store.Sessions(dir)
	if err != nil {
		return err
	}
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	summaries := make([]store.SessionSummary, 0, len(paths))
	for _, path := range paths {
		sum, err := readSummary(path)
		if err != nil {
			return err
		}
		summaries = append(summaries, sum)
	}
	fmt.Print(formatHistory(summaries))
	return nil
}

func readSummary(path string) (store.SessionSummary, error) {
	j, err := store.OpenJSONL(path)
	if err != nil {
		return store.SessionSummary{}, err
	}
	defer j.Close()
	return j.SessionSummary()
}

// showSession prints one session's iterations. id may be any unique
// prefix of the session name.
func showSession(dir, id string) error {
	path, err := findSession(dir, id)
	if err != nil {
		return err
	}
	j, err := store.OpenJSONL(path)
	if err != nil {
		return err
	}
	defer j.Close()

	sum, err := j.SessionSummary()
	if err != nil {
		return err
	}
	records, err := j.Iterations()
	if err != nil {
		return err
	}
	fmt.Print(formatSession(sum, records))
	return nil
}

func findSession(dir, id string) (string, error) {
	paths, err := store.Sessions(dir)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, p := range paths {
		if strings.HasPrefix(filepath.Base(p), id) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no session matching %q in %s", id, dir)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session %q is ambiguous (%d matches)", id, len(matches))
	}
}

func formatScaffoldResult(created []string) string {
	if len(created) == 0 {
		return "All files already exist, nothing to create.\n"
	}
	var b strings.Builder
	for _, path := range created {
		fmt.Fprintf(&b, "Created %s\n", path)
	}
	return b.String()
}

func formatProviders(adapters []provider.Adapter) string {
	var b strings.Builder
	b.WriteString("Providers\n")
	b.WriteString("─────────\n")
	for _, a := range adapters {
		d := a.Defaults()
		model := d.Model
		if model == "" {
			model = "(tool default)"
		}
		fmt.Fprintf(&b, "  %-10s %-10s %-20s %s\n", a.Name(), d.Command, model, a.DisplayName())
	}
	return b.String()
}

func formatHistory(summaries []store.SessionSummary) string {
	if len(summaries) == 0 {
		return "No sessions found. Run 'swarm run' first.\n"
	}
	var b strings.Builder
	b.WriteString("Sessions\n")
	b.WriteString("────────\n")
	for _, s := range summaries {
		started := "-"
		if !s.StartedAt.IsZero() {
			started = s.StartedAt.Local().Format("2006-01-02 15:04")
		}
		result := fmt.Sprintf("%d iter", s.Iterations)
		if s.Failed > 0 {
			result += fmt.Sprintf(" (%d failed)", s.Failed)
		}
		fmt.Fprintf(&b, "  %-20s %-16s %-9s %-16s %s\n",
			s.SessionID, started, orDash(s.Provider), result, panels.FormatUsage(s.Usage))
	}
	return b.String()
}

func formatSession(s store.SessionSummary, records []store.IterationRecord) string {
	var b strings.Builder
	b.WriteString("Session " + s.SessionID + "\n")
	b.WriteString(strings.Repeat("─", len("Session "+s.SessionID)) + "\n")

	if !s.StartedAt.IsZero() {
		fmt.Fprintf(&b, "  %-20s %s\n", "Started:", s.StartedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if s.Provider != "" {
		fmt.Fprintf(&b, "  %-20s %s\n", "Provider:", s.Provider)
	}
	if s.Branch != "" {
		fmt.Fprintf(&b, "  %-20s %s\n", "Branch:", s.Branch)
	}
	if s.LastCommit != "" {
		fmt.Fprintf(&b, "  %-20s %s\n", "Last commit:", s.LastCommit)
	}
	fmt.Fprintf(&b, "  %-20s %d\n", "Iterations:", s.Iterations)
	fmt.Fprintf(&b, "  %-20s %d\n", "Failed:", s.Failed)
	fmt.Fprintf(&b, "  %-20s %d\n", "Retries:", s.Retries)
	fmt.Fprintf(&b, "  %-20s %s\n", "Usage:", panels.FormatUsage(s.Usage))

	if len(records) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	for _, r := range records {
		mark := "✓"
		if r.Outcome != "success" {
			mark = "✗"
		}
		line := fmt.Sprintf("  #%-4d %s %6.1fs  %s", r.Number, mark, r.Duration, panels.FormatUsage(r.Usage))
		if r.Retries > 0 {
			line += fmt.Sprintf("  ⟳%d", r.Retries)
		}
		if r.Stop {
			line += "  no tasks"
		}
		if r.Commit != "" {
			line += "  " + r.Commit
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
