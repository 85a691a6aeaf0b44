package panels

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
)

// agentItem is one agent slot in the sidebar.
type agentItem struct {
	view runstate.AgentView
	task *runstate.Task
}

func (a agentItem) symbol() string {
	switch a.view.Status {
	case "running", "reviewing", "fixing":
		return "●"
	case "retrying":
		return "⟳"
	case "failed", "error":
		return "✗"
	case "done", "no tasks":
		return "✓"
	default:
		return "○"
	}
}

func (a agentItem) Title() string {
	status := a.view.Status
	if status == "" {
		status = "idle"
	}
	return fmt.Sprintf("%s agent %d  %s", a.symbol(), a.view.Slot, status)
}

func (a agentItem) Description() string {
	if r := a.view.Selector.Review; r != nil {
		return ReviewBadge(*r)
	}
	if a.task != nil {
		return a.task.ID
	}
	return ""
}

func (a agentItem) FilterValue() string {
	return fmt.Sprintf("agent %d", a.view.Slot)
}

// ReviewBadge renders a review phase compactly: "reviewing", "fixing 2".
func ReviewBadge(r runstate.ReviewPhase) string {
	if r.Phase == runstate.PhaseFixing {
		return fmt.Sprintf("%s %d", r.Phase, r.FixAttempt)
	}
	return string(r.Phase)
}

type agentDelegate struct{}

func (d agentDelegate) Height() int                             { return 1 }
func (d agentDelegate) Spacing() int                            { return 0 }
func (d agentDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d agentDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ai, ok := item.(agentItem)
	if !ok {
		return
	}
	s := ai.Title()
	if desc := ai.Description(); desc != "" {
		s += "  " + lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(desc)
	}
	if index == m.Index() {
		s = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0A526")).Render("> ") + s
	} else {
		s = "  " + s
	}
	_, _ = fmt.Fprint(w, s)
}

// AgentsPanel lists the agent slots with their live status.
type AgentsPanel struct {
	list   list.Model
	width  int
	height int
}

// NewAgentsPanel creates an empty agents panel.
func NewAgentsPanel(w, h int) AgentsPanel {
	l := list.New(nil, agentDelegate{}, w, h)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return AgentsPanel{list: l, width: w, height: h}
}

// SetAgents replaces the listed agents. tasks maps a slot to its picked
// task for the last completed iteration and may be nil. The cursor stays
// on the same slot.
func (p AgentsPanel) SetAgents(agents []runstate.AgentView, tasks map[int]runstate.Task) AgentsPanel {
	selected, hasSel := p.SelectedSlot()
	items := make([]list.Item, len(agents))
	cursor := 0
	for i, a := range agents {
		it := agentItem{view: a}
		if t, ok := tasks[a.Slot]; ok {
			it.task = &t
		}
		items[i] = it
		if hasSel && a.Slot == selected {
			cursor = i
		}
	}
	p.list.SetItems(items)
	if len(items) > 0 {
		p.list.Select(cursor)
	}
	return p
}

// SelectedSlot returns the slot under the cursor.
func (p AgentsPanel) SelectedSlot() (int, bool) {
	if item, ok := p.list.SelectedItem().(agentItem); ok {
		return item.view.Slot, true
	}
	return 0, false
}

// SetSize resizes the panel.
func (p AgentsPanel) SetSize(w, h int) AgentsPanel {
	p.width = w
	p.height = h
	p.list.SetSize(w, h)
	return p
}

// Update moves the cursor on j/k.
func (p AgentsPanel) Update(msg tea.Msg) (AgentsPanel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyDown})
		case "k", "up":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyUp})
		default:
			p.list, cmd = p.list.Update(msg)
		}
	default:
		p.list, cmd = p.list.Update(msg)
	}
	return p, cmd
}

// View renders the agent list, or a placeholder before the first snapshot.
func (p AgentsPanel) View() string {
	if len(p.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(p.width).Height(p.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(lipgloss.Color("#888888")).
			Render("No agents")
	}
	return p.list.View()
}
