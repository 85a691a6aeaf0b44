package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	noticeStyles = map[string]lipgloss.Style{
		"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("#5B9BD5")),
		"success": lipgloss.NewStyle().Foreground(lipgloss.Color("#6BCB77")),
		"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA54F")),
		"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
)

// FooterProps holds all data needed to render the footer bar.
type FooterProps struct {
	Focus         string // "agents", "iterations", "main", "events"
	LastCommit    string
	Notice        string // last iteration notice
	NoticeTone    string // info, success, warning, error
	StopRequested bool
}

// RenderFooter renders the context-sensitive footer bar.
// Left side: the latest notice and last commit. Right side: key hints.
func RenderFooter(props FooterProps, width int) string {
	commit := props.LastCommit
	if commit == "" {
		commit = "—"
	}
	left := fmt.Sprintf("last commit: %s", commit)
	leftRendered := footerStyle.Render(left)
	if props.Notice != "" {
		style, ok := noticeStyles[props.NoticeTone]
		if !ok {
			style = noticeStyles["info"]
		}
		leftRendered = style.Render(props.Notice) + footerStyle.Render("  "+left)
	}

	var right string
	if props.StopRequested {
		right = "⏹ stopping after iteration…  q to force quit"
	} else {
		right = panelHints(props.Focus) + "  q:quit  1-4:panel  s:stop"
	}

	gap := width - lipgloss.Width(leftRendered) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}

	line := leftRendered + footerStyle.Render(strings.Repeat(" ", gap)+right)
	return lipgloss.NewStyle().Width(width).MaxWidth(width).MaxHeight(1).Render(line)
}

// panelHints returns the keybinding hints for a given focus.
func panelHints(focus string) string {
	switch focus {
	case "agents":
		return "j/k:agent  tab:next panel"
	case "iterations":
		return "j/k:navigate  enter:view  tab:next panel"
	case "main":
		return "[/]:dev/review  f:follow  ctrl+u/d:scroll"
	case "events":
		return "[/]:tab  f:follow  j/k:scroll"
	default:
		return "tab:next panel"
	}
}
