package panels

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
)

func TestNewEventsPanel(t *testing.T) {
	p := NewEventsPanel(80, 10)
	if p.ActiveTab() != TabEvents {
		t.Errorf("ActiveTab() = %v, want TabEvents", p.ActiveTab())
	}
}

func TestEventsPanel_AppendLine(t *testing.T) {
	p := NewEventsPanel(80, 10).AppendLine("iteration 1 started")
	if !strings.Contains(p.View(), "iteration 1 started") {
		t.Errorf("View() = %q", p.View())
	}
}

func TestEventsPanel_TabCycle(t *testing.T) {
	p := NewEventsPanel(80, 10)
	want := []EventsTab{TabIteration, TabUsage, TabEvents}
	for _, w := range want {
		p, _ = p.Update(keyMsg("]"))
		if p.ActiveTab() != w {
			t.Errorf("after ]: ActiveTab() = %v, want %v", p.ActiveTab(), w)
		}
	}
	p, _ = p.Update(keyMsg("["))
	if p.ActiveTab() != TabUsage {
		t.Errorf("after [: ActiveTab() = %v, want TabUsage", p.ActiveTab())
	}
}

func TestEventsPanel_IterationPlaceholder(t *testing.T) {
	p := NewEventsPanel(80, 10)
	p, _ = p.Update(keyMsg("]"))
	if !strings.Contains(p.View(), "Select an iteration") {
		t.Errorf("View() = %q", p.View())
	}
}

func TestEventsPanel_ShowIteration(t *testing.T) {
	rec := store.IterationRecord{Number: 4, Agents: 2, Retries: 1, Outcome: "success", Duration: 12.5, Commit: "abc123 done"}
	p := NewEventsPanel(120, 10).ShowIteration(rec, []string{"agent 1 started"})
	if p.ActiveTab() != TabIteration {
		t.Fatalf("ActiveTab() = %v, want TabIteration", p.ActiveTab())
	}
	view := p.View()
	for _, want := range []string{"iteration 4", "success", "agents 2", "retries 1", "commit abc123", "agent 1 started"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestEventsPanel_UsageTable(t *testing.T) {
	p := NewEventsPanel(80, 10)
	p, _ = p.Update(keyMsg("["))
	if !strings.Contains(p.View(), "No iterations yet") {
		t.Errorf("empty usage View() = %q", p.View())
	}

	p = p.AddRecord(store.IterationRecord{Number: 1, Outcome: "success", Usage: provider.UsageSummary{InputTokens: 1000, OutputTokens: 10}, Duration: 1})
	p = p.AddRecord(store.IterationRecord{Number: 2, Outcome: "failed", Usage: provider.UsageSummary{InputTokens: 500, OutputTokens: 5}, Duration: 2})
	p = p.AddRecord(store.IterationRecord{Number: 2, Outcome: "failed", Usage: provider.UsageSummary{InputTokens: 2000, OutputTokens: 5}, Duration: 2})

	if len(p.records) != 2 {
		t.Fatalf("records = %d, want 2 (replace by number)", len(p.records))
	}
	view := p.View()
	for _, want := range []string{"Total", "3.0k", "failed", "3.0s"} {
		if !strings.Contains(view, want) {
			t.Errorf("usage View() missing %q:\n%s", want, view)
		}
	}
}

func TestEventsPanel_FollowAndScroll(t *testing.T) {
	p := NewEventsPanel(80, 10)
	p, _ = p.Update(keyMsg("f"))
	if p.events.Following() {
		t.Error("f should toggle follow on the events tab")
	}
	p, _ = p.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	p = p.SetSize(100, 12)
	if p.width != 100 || p.height != 12 {
		t.Errorf("SetSize: got %dx%d", p.width, p.height)
	}
}
