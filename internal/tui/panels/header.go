// Package panels provides the panel components for the swarm TUI.
package panels

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// HeaderProps holds all data needed to render the header bar.
// State is passed as strings so this package does not import tui.
type HeaderProps struct {
	ProjectName string
	WorkDir     string
	Provider    string
	Branch      string
	Iteration   int
	MaxIter     int
	Agents      int
	Usage       provider.UsageSummary
	StateSymbol string
	StateLabel  string
	Countdown   string // pause or retry countdown, empty when idle
	Elapsed     time.Duration
	Clock       time.Time
}

// AbbreviatePath returns a display-friendly path, replacing the home directory
// with "~" and converting backslashes to forward slashes.
func AbbreviatePath(path string) string {
	if path == "" {
		return ""
	}
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(path, home) {
		path = "~" + path[len(home):]
	}
	return strings.ReplaceAll(path, "\\", "/")
}

// FormatElapsed renders a duration as a compact string: "5s", "2m30s", "1h15m".
func FormatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatTokens renders a token count compactly: "950", "12.3k", "1.20M".
func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatUsage renders token counters as "in 12.3k (cached 4.0k) / out 800".
func FormatUsage(u provider.UsageSummary) string {
	s := "in " + FormatTokens(u.InputTokens)
	if u.CachedInputTokens > 0 {
		s += " (cached " + FormatTokens(u.CachedInputTokens) + ")"
	}
	return s + " / out " + FormatTokens(u.OutputTokens)
}

// RenderHeader renders the header bar. accentStyle is applied to the full
// header width.
func RenderHeader(props HeaderProps, width int, accentStyle lipgloss.Style) string {
	maxLabel := "∞"
	if props.MaxIter > 0 {
		maxLabel = fmt.Sprintf("%d", props.MaxIter)
	}

	name := "swarm"
	if props.ProjectName != "" {
		name = props.ProjectName
	}

	parts := []string{"🐝 " + name}
	if props.WorkDir != "" {
		parts = append(parts, "dir: "+AbbreviatePath(props.WorkDir))
	}
	if props.Provider != "" {
		parts = append(parts, props.Provider)
	}
	if props.Branch != "" {
		parts = append(parts, "branch: "+props.Branch)
	}
	parts = append(parts,
		fmt.Sprintf("iter: %d/%s", props.Iteration, maxLabel),
		fmt.Sprintf("agents: %d", props.Agents),
		"tokens: "+FormatUsage(props.Usage),
	)

	state := props.StateLabel
	if props.StateSymbol != "" && state != "" {
		state = props.StateSymbol + " " + state
	}
	if state != "" {
		parts = append(parts, state)
	}
	if props.Countdown != "" {
		parts = append(parts, props.Countdown)
	}
	if props.Elapsed > 0 {
		parts = append(parts, "elapsed: "+FormatElapsed(props.Elapsed))
	}
	if !props.Clock.IsZero() {
		parts = append(parts, props.Clock.Format("15:04"))
	}

	content := strings.Join(parts, "  │  ")
	return accentStyle.Width(width).MaxHeight(1).Render(content)
}
