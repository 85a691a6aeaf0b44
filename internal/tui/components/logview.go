package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultMaxLines bounds a LogView's history; the oldest lines go first.
const DefaultMaxLines = 2000

// LogView is a scrollable log panel that wraps bubbles/viewport.
// In follow mode (default), new lines cause the view to auto-scroll to the bottom.
type LogView struct {
	vp       viewport.Model
	lines    []string // pre-styled
	follow   bool
	maxLines int
}

// NewLogView creates a LogView with the given dimensions, initially in follow mode.
func NewLogView(w, h int) LogView {
	return LogView{
		vp:       viewport.New(w, h),
		follow:   true,
		maxLines: DefaultMaxLines,
	}
}

// SetMaxLines changes the history bound. n <= 0 keeps every line.
func (v LogView) SetMaxLines(n int) LogView {
	v.maxLines = n
	v.lines = v.trim(v.lines)
	v.refresh()
	return v
}

// AppendLine appends a pre-rendered line to the log.
func (v LogView) AppendLine(rendered string) LogView {
	lines := make([]string, len(v.lines), len(v.lines)+1)
	copy(lines, v.lines)
	v.lines = v.trim(append(lines, rendered))
	v.refresh()
	return v
}

// SetContent replaces all log lines with the given slice.
func (v LogView) SetContent(lines []string) LogView {
	v.lines = v.trim(append([]string(nil), lines...))
	v.refresh()
	return v
}

// Len returns the number of retained lines.
func (v LogView) Len() int {
	return len(v.lines)
}

// ToggleFollow switches follow mode on or off.
// When turned on, scrolls immediately to the bottom.
func (v LogView) ToggleFollow() LogView {
	v.follow = !v.follow
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

// SetSize resizes the log view to the given dimensions.
func (v LogView) SetSize(w, h int) LogView {
	v.vp.Width = w
	v.vp.Height = h
	if v.follow {
		v.vp.GotoBottom()
	}
	return v
}

// Following reports whether follow mode is currently active.
func (v LogView) Following() bool {
	return v.follow
}

// Update handles scroll keys and mouse events. Scrolling away from the
// bottom leaves follow mode.
func (v LogView) Update(msg tea.Msg) (LogView, tea.Cmd) {
	var cmd tea.Cmd
	v.vp, cmd = v.vp.Update(msg)
	if v.follow && !v.vp.AtBottom() {
		switch msg.(type) {
		case tea.KeyMsg, tea.MouseMsg:
			v.follow = false
		}
	}
	return v, cmd
}

// View renders the log view content.
func (v LogView) View() string {
	return v.vp.View()
}

func (v LogView) trim(lines []string) []string {
	if v.maxLines > 0 && len(lines) > v.maxLines {
		return lines[len(lines)-v.maxLines:]
	}
	return lines
}

func (v *LogView) refresh() {
	v.vp.SetContent(strings.Join(v.lines, "\n"))
	if v.follow {
		v.vp.GotoBottom()
	}
}
