package panels

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
)

// IterationSelectedMsg is emitted when the user selects an iteration.
type IterationSelectedMsg struct{ Number int }

// iterItem joins a timeline marker with the completed record, when known.
type iterItem struct {
	marker runstate.IterationMarker
	record *store.IterationRecord
}

func (i iterItem) status() string {
	switch {
	case i.marker.Failed:
		return "✗"
	case i.marker.Succeeded:
		return "✓"
	case i.marker.IsCurrent:
		return "●"
	default:
		return "·"
	}
}

func (i iterItem) Title() string {
	return fmt.Sprintf("#%d %s", i.marker.Iteration, i.status())
}

func (i iterItem) Description() string {
	var desc string
	if i.record != nil {
		desc = fmt.Sprintf("%s tok  %.1fs", FormatTokens(i.record.Usage.InputTokens+i.record.Usage.OutputTokens), i.record.Duration)
	} else if i.marker.IsCurrent && !i.marker.Succeeded && !i.marker.Failed {
		desc = "running…"
	}
	if i.marker.RetryCount > 0 {
		desc = fmt.Sprintf("%s  ⟳%d", desc, i.marker.RetryCount)
	}
	return desc
}

func (i iterItem) FilterValue() string {
	return fmt.Sprintf("#%d", i.marker.Iteration)
}

// IterationsPanel displays the iteration timeline, newest last.
type IterationsPanel struct {
	list     list.Model
	timeline runstate.Timeline
	records  map[int]store.IterationRecord
	width    int
	height   int
}

type iterDelegate struct{}

func (d iterDelegate) Height() int                             { return 1 }
func (d iterDelegate) Spacing() int                            { return 0 }
func (d iterDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d iterDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(iterItem)
	if !ok {
		return
	}
	s := item.Title()
	if desc := item.Description(); desc != "" {
		s += "  " + desc
	}
	if index == m.Index() {
		s = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0A526")).Render("> " + s)
	} else {
		s = "  " + s
	}
	_, _ = fmt.Fprint(w, s)
}

// NewIterationsPanel creates an empty iterations panel.
func NewIterationsPanel(w, h int) IterationsPanel {
	l := list.New(nil, iterDelegate{}, w, h)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return IterationsPanel{
		list:    l,
		records: make(map[int]store.IterationRecord),
		width:   w,
		height:  h,
	}
}

// SetTimeline replaces the markers shown. The selection stays on the same
// iteration number when it is still present.
func (p IterationsPanel) SetTimeline(tl runstate.Timeline) IterationsPanel {
	p.timeline = tl
	return p.rebuild()
}

// AddRecord attaches a completed iteration's record to its marker.
func (p IterationsPanel) AddRecord(rec store.IterationRecord) IterationsPanel {
	records := make(map[int]store.IterationRecord, len(p.records)+1)
	for k, v := range p.records {
		records[k] = v
	}
	records[rec.Number] = rec
	p.records = records
	return p.rebuild()
}

// Totals returns the retry and failure totals of the retained timeline.
func (p IterationsPanel) Totals() (retries, failed int) {
	return p.timeline.TotalRetries, p.timeline.TotalFailed
}

func (p IterationsPanel) rebuild() IterationsPanel {
	selected := -1
	if sel := p.SelectedIteration(); sel != nil {
		selected = *sel
	}
	items := make([]list.Item, len(p.timeline.Markers))
	cursor := len(items) - 1
	for i, m := range p.timeline.Markers {
		it := iterItem{marker: m}
		if rec, ok := p.records[m.Iteration]; ok {
			it.record = &rec
		}
		items[i] = it
		if m.Iteration == selected {
			cursor = i
		}
	}
	p.list.SetItems(items)
	if cursor >= 0 {
		p.list.Select(cursor)
	}
	return p
}

// SelectedIteration returns the selected iteration number, or nil.
func (p IterationsPanel) SelectedIteration() *int {
	if item, ok := p.list.SelectedItem().(iterItem); ok {
		n := item.marker.Iteration
		return &n
	}
	return nil
}

// SetSize resizes the panel.
func (p IterationsPanel) SetSize(w, h int) IterationsPanel {
	p.width = w
	p.height = h
	p.list.SetSize(w, h)
	return p
}

// Update handles key/mouse messages for the panel.
func (p IterationsPanel) Update(msg tea.Msg) (IterationsPanel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyDown})
		case "k", "up":
			p.list, cmd = p.list.Update(tea.KeyMsg{Type: tea.KeyUp})
		case "enter":
			if sel := p.SelectedIteration(); sel != nil {
				n := *sel
				return p, func() tea.Msg { return IterationSelectedMsg{Number: n} }
			}
		default:
			p.list, cmd = p.list.Update(msg)
		}
	default:
		p.list, cmd = p.list.Update(msg)
	}
	return p, cmd
}

// View renders the timeline, or a placeholder before the first iteration.
func (p IterationsPanel) View() string {
	if len(p.timeline.Markers) == 0 {
		return lipgloss.NewStyle().
			Width(p.width).Height(p.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(lipgloss.Color("#888888")).
			Render("No iterations yet")
	}
	return p.list.View()
}
