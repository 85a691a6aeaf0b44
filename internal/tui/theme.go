package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/loop"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui/panels"
)

// Theme holds accent-color-derived styles for the TUI.
type Theme struct {
	accentStyle     lipgloss.Style // header background
	agentStyle      lipgloss.Style // agent tags in the event log
	borderFocused   lipgloss.Style
	borderUnfocused lipgloss.Style
}

// NewTheme creates a Theme from a hex accent color string (e.g. "#E0A526").
// If accentColor is empty, the default accent color is used.
func NewTheme(accentColor string) Theme {
	color := defaultAccentColor
	if accentColor != "" {
		color = accentColor
	}
	c := lipgloss.Color(color)
	return Theme{
		accentStyle: lipgloss.NewStyle().
			Background(c).
			Foreground(lipgloss.Color("#1A1A1A")).
			Bold(true),
		agentStyle: lipgloss.NewStyle().
			Foreground(c).
			Bold(true),
		borderFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(c),
		borderUnfocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray),
	}
}

// AccentHeaderStyle returns the style for the header bar.
func (t Theme) AccentHeaderStyle() lipgloss.Style {
	return t.accentStyle
}

// PanelBorderStyle returns the border style for a panel based on whether it
// currently holds keyboard focus.
func (t Theme) PanelBorderStyle(focused bool) lipgloss.Style {
	if focused {
		return t.borderFocused
	}
	return t.borderUnfocused
}

// RenderLogLine renders a loop.LogEntry as a single terminal line.
func (t Theme) RenderLogLine(entry loop.LogEntry, width int) string {
	ts := timestampStyle.Render(fmt.Sprintf("[%s]", entry.Timestamp.Format("15:04:05")))
	prefix := ts + "  "
	if entry.Kind == loop.LogPreview && entry.Agent > 0 {
		prefix += t.agentStyle.Render(fmt.Sprintf("a%d", entry.Agent)) + " "
	}
	avail := width - lipgloss.Width(prefix) - 3
	if avail < 20 {
		avail = 20
	}
	msg := truncate(singleLine(entry.Message), avail)

	switch entry.Kind {
	case loop.LogIterStart:
		return fmt.Sprintf("%s── iteration %d ──", prefix, entry.Iteration)

	case loop.LogAgentStart:
		return prefix + readStyle.Render("▶ "+msg)

	case loop.LogPreview:
		if entry.Entry == nil {
			return prefix + infoStyle.Render(msg)
		}
		return prefix + t.RenderPreviewEntry(*entry.Entry, avail)

	case loop.LogRetry:
		return prefix + retryStyle.Render("⟳ "+msg)

	case loop.LogReview:
		return prefix + reviewStyle.Render("◆ "+msg)

	case loop.LogAgentDone:
		return prefix + infoStyle.Render("■ "+msg)

	case loop.LogIterComplete:
		line := fmt.Sprintf("✅ iteration %d complete  %.1fs", entry.Iteration, entry.Duration)
		if entry.Usage != nil {
			line += "  " + panels.FormatUsage(*entry.Usage)
		}
		if entry.Outcome != "" && entry.Outcome != "success" {
			return prefix + errorStyle.Render(line+"  "+entry.Outcome)
		}
		return prefix + resultStyle.Render(line)

	case loop.LogError:
		return prefix + errorStyle.Render("❌ "+msg)

	case loop.LogDone:
		return prefix + resultStyle.Render("✅ "+msg)

	case loop.LogStopped:
		return prefix + errorStyle.Render("⏹ "+msg)

	default:
		return prefix + infoStyle.Render(msg)
	}
}

// RenderPreviewEntry renders one normalized agent output entry.
func (t Theme) RenderPreviewEntry(e provider.PreviewEntry, width int) string {
	text := singleLine(e.Text)
	switch e.Kind {
	case provider.KindTool:
		label := e.Label
		if runewidth.StringWidth(label) > 14 {
			label = runewidth.Truncate(label, 14, "…")
		}
		name := toolStyle(e.Label).Render(runewidth.FillRight(label, 14))
		return fmt.Sprintf("%s %s %s", toolIcon(e.Label), name, truncate(text, width-18))
	case provider.KindReasoning:
		return reasoningStyle.Render("💭 " + truncate(text, width-3))
	case provider.KindError:
		return errorStyle.Render("❌ " + truncate(text, width-3))
	case provider.KindMessage:
		return timestampStyle.Render(e.Label+": ") + infoStyle.Render(truncate(text, width-len(e.Label)-2))
	default:
		return infoStyle.Render(truncate(text, width))
	}
}

// singleLine collapses newlines so each entry occupies one row.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, width int) string {
	if width < 1 {
		width = 1
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
