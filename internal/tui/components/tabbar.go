// Package components provides reusable widgets for the swarm TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	tabActiveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0A526"))
	tabInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	tabBadgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B48EF0"))
)

// TabBar renders a row of labelled tabs. The active tab is bold and accented.
// A tab may carry a badge, shown after its label (e.g. a review phase).
type TabBar struct {
	tabs   []string
	badges map[int]string
	active int
	width  int
}

// NewTabBar creates a TabBar with the given tab titles. The first tab is active.
func NewTabBar(tabs []string) TabBar {
	return TabBar{tabs: tabs}
}

// Active returns the index of the currently active tab.
func (t TabBar) Active() int {
	return t.active
}

// SetActive selects tab i. Out-of-range indices are ignored.
func (t TabBar) SetActive(i int) TabBar {
	if i >= 0 && i < len(t.tabs) {
		t.active = i
	}
	return t
}

// Next returns a TabBar with the next tab active (wraps around).
func (t TabBar) Next() TabBar {
	if len(t.tabs) == 0 {
		return t
	}
	t.active = (t.active + 1) % len(t.tabs)
	return t
}

// Prev returns a TabBar with the previous tab active (wraps around).
func (t TabBar) Prev() TabBar {
	if len(t.tabs) == 0 {
		return t
	}
	t.active = (t.active + len(t.tabs) - 1) % len(t.tabs)
	return t
}

// SetBadge attaches badge to tab i; an empty badge removes it.
func (t TabBar) SetBadge(i int, badge string) TabBar {
	next := make(map[int]string, len(t.badges)+1)
	for k, v := range t.badges {
		next[k] = v
	}
	if badge == "" {
		delete(next, i)
	} else {
		next[i] = badge
	}
	t.badges = next
	return t
}

// SetWidth returns a TabBar configured for the given render width.
func (t TabBar) SetWidth(w int) TabBar {
	t.width = w
	return t
}

// View renders the tab bar as a single line, truncated to the width.
func (t TabBar) View() string {
	if len(t.tabs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(t.tabs))
	for i, label := range t.tabs {
		var rendered string
		if i == t.active {
			rendered = tabActiveStyle.Render(label)
		} else {
			rendered = tabInactiveStyle.Render(label)
		}
		if b := t.badges[i]; b != "" {
			rendered += " " + tabBadgeStyle.Render("("+b+")")
		}
		parts = append(parts, rendered)
	}

	line := strings.Join(parts, "  │  ")
	if t.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(t.width).Render(line)
	}
	return line
}
