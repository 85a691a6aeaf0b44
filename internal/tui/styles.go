// Package tui provides a bubbletea + lipgloss terminal UI for a swarm run.
package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// defaultAccentColor is the default accent color (amber).
const defaultAccentColor = "#E0A526"

var (
	colorWhite  = lipgloss.Color("#FAFAFA")
	colorGray   = lipgloss.Color("#888888")
	colorBlue   = lipgloss.Color("#5B9BD5")
	colorGreen  = lipgloss.Color("#6BCB77")
	colorYellow = lipgloss.Color("#FFD93D")
	colorRed    = lipgloss.Color("#FF6B6B")
	colorOrange = lipgloss.Color("#FFA54F")
	colorPurple = lipgloss.Color("#B48EF0")
)

// Styles used across the TUI. Accent-dependent styles live on Theme.
var (
	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	readStyle = lipgloss.NewStyle().
			Foreground(colorBlue)

	writeStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	bashStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	retryStyle = lipgloss.NewStyle().
			Foreground(colorOrange)

	reviewStyle = lipgloss.NewStyle().
			Foreground(colorPurple)

	reasoningStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)

// toolIcon returns the icon for a tool label. Labels come from every
// provider, so both Claude tool names and Codex item types are listed.
func toolIcon(label string) string {
	switch normalizeTool(label) {
	case "read", "read_file", "glob", "grep", "list":
		return "📖"
	case "write", "write_file", "edit", "notebookedit", "file_change", "patch":
		return "✏️ "
	case "bash", "command", "shell":
		return "🔧"
	case "webfetch", "websearch", "web_search":
		return "🌐"
	case "task", "todo_list", "todowrite":
		return "🔀"
	default:
		return "⚡"
	}
}

// toolStyle returns the lipgloss style for a tool label.
func toolStyle(label string) lipgloss.Style {
	switch normalizeTool(label) {
	case "read", "read_file", "glob", "grep", "list":
		return readStyle
	case "write", "write_file", "edit", "notebookedit", "file_change", "patch":
		return writeStyle
	case "bash", "command", "shell":
		return bashStyle
	default:
		return infoStyle
	}
}

func normalizeTool(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
