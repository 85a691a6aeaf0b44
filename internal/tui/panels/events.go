package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/tui/components"
)

// EventsTab identifies the active content tab in the events panel.
type EventsTab int

const (
	TabEvents    EventsTab = iota // Live loop events
	TabIteration                  // A past iteration loaded from the session log
	TabUsage                      // Per-iteration token table
)

var eventsTabLabels = []string{"Events", "Iteration", "Usage"}

// EventsPanel is the right-bottom panel.
type EventsPanel struct {
	tabbar    components.TabBar
	events    components.LogView
	iteration components.LogView
	records   []store.IterationRecord
	width     int
	height    int
	activeTab EventsTab
}

// NewEventsPanel creates an events panel.
func NewEventsPanel(w, h int) EventsPanel {
	contentH := contentHeight(h, 1)
	return EventsPanel{
		tabbar:    components.NewTabBar(eventsTabLabels).SetWidth(w),
		events:    components.NewLogView(w, contentH),
		iteration: components.NewLogView(w, contentH),
		width:     w,
		height:    h,
		activeTab: TabEvents,
	}
}

// AppendLine appends a pre-rendered event line.
func (p EventsPanel) AppendLine(rendered string) EventsPanel {
	p.events = p.events.AppendLine(rendered)
	return p
}

// AddRecord records a completed iteration for the usage tab. A record for
// an iteration already present replaces it.
func (p EventsPanel) AddRecord(rec store.IterationRecord) EventsPanel {
	records := make([]store.IterationRecord, 0, len(p.records)+1)
	for _, r := range p.records {
		if r.Number != rec.Number {
			records = append(records, r)
		}
	}
	p.records = append(records, rec)
	return p
}

// ShowIteration loads a past iteration and switches to its tab. lines are
// pre-rendered log entries.
func (p EventsPanel) ShowIteration(rec store.IterationRecord, lines []string) EventsPanel {
	header := []string{fmt.Sprintf("iteration %d  %s  agents %d  retries %d  %.1fs  %s",
		rec.Number, orDash(rec.Outcome), rec.Agents, rec.Retries, rec.Duration, FormatUsage(rec.Usage))}
	if rec.Commit != "" {
		header = append(header, "commit "+rec.Commit)
	}
	p.iteration = p.iteration.SetContent(append(header, lines...))
	p.activeTab = TabIteration
	p.tabbar = p.tabbar.SetActive(int(TabIteration))
	return p
}

// ActiveTab returns the displayed tab.
func (p EventsPanel) ActiveTab() EventsTab {
	return p.activeTab
}

// SetSize resizes all internal viewports.
func (p EventsPanel) SetSize(w, h int) EventsPanel {
	p.width = w
	p.height = h
	contentH := contentHeight(h, 1)
	p.tabbar = p.tabbar.SetWidth(w)
	p.events = p.events.SetSize(w, contentH)
	p.iteration = p.iteration.SetSize(w, contentH)
	return p
}

// Update handles key messages for the events panel.
func (p EventsPanel) Update(msg tea.Msg) (EventsPanel, tea.Cmd) {
	var cmd tea.Cmd
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "]":
			p.tabbar = p.tabbar.Next()
			p.activeTab = EventsTab(p.tabbar.Active())
			return p, nil
		case "[":
			p.tabbar = p.tabbar.Prev()
			p.activeTab = EventsTab(p.tabbar.Active())
			return p, nil
		case "f":
			switch p.activeTab {
			case TabEvents:
				p.events = p.events.ToggleFollow()
			case TabIteration:
				p.iteration = p.iteration.ToggleFollow()
			}
			return p, nil
		}
	}
	switch p.activeTab {
	case TabEvents:
		p.events, cmd = p.events.Update(msg)
	case TabIteration:
		p.iteration, cmd = p.iteration.Update(msg)
	}
	return p, cmd
}

// View renders the events panel: tab bar + active tab content.
func (p EventsPanel) View() string {
	var content string
	switch p.activeTab {
	case TabEvents:
		content = p.events.View()
	case TabIteration:
		if p.iteration.Len() == 0 {
			content = p.placeholder("Select an iteration and press enter")
		} else {
			content = p.iteration.View()
		}
	case TabUsage:
		content = p.renderUsageTable()
	}
	return lipgloss.JoinVertical(lipgloss.Left, p.tabbar.View(), content)
}

func (p EventsPanel) placeholder(msg string) string {
	return lipgloss.NewStyle().
		Width(p.width).Height(contentHeight(p.height, 1)).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(lipgloss.Color("#888888")).
		Render(msg)
}

// renderUsageTable renders per-iteration token counts with a total row.
func (p EventsPanel) renderUsageTable() string {
	if len(p.records) == 0 {
		return p.placeholder("No iterations yet")
	}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	var sb strings.Builder
	header := fmt.Sprintf("  %-4s %-8s %8s %8s %8s %9s", "#", "Result", "Input", "Cached", "Output", "Duration")
	divider := strings.Repeat("─", min(p.width, 52))
	sb.WriteString(dim.Render(header) + "\n")
	sb.WriteString(dim.Render(divider) + "\n")

	var total provider.UsageSummary
	var totalDur float64
	for _, r := range p.records {
		sb.WriteString(fmt.Sprintf("  %-4d %-8s %8s %8s %8s %8.1fs\n", r.Number, orDash(r.Outcome),
			FormatTokens(r.Usage.InputTokens), FormatTokens(r.Usage.CachedInputTokens),
			FormatTokens(r.Usage.OutputTokens), r.Duration))
		total = total.Add(r.Usage)
		totalDur += r.Duration
	}

	sb.WriteString(dim.Render(divider) + "\n")
	sb.WriteString(dim.Render(fmt.Sprintf("  %-13s %8s %8s %8s %8.1fs", "Total",
		FormatTokens(total.InputTokens), FormatTokens(total.CachedInputTokens),
		FormatTokens(total.OutputTokens), totalDur)))

	return lipgloss.NewStyle().
		Width(p.width).Height(contentHeight(p.height, 1)).
		Render(sb.String())
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
