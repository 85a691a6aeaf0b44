package panels

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/runstate"
	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/store"
)

func timeline(current int, markers ...runstate.IterationMarker) runstate.Timeline {
	tl := runstate.Timeline{CurrentIteration: current}
	for _, m := range markers {
		m.IsCurrent = m.Iteration == current
		tl.Markers = append(tl.Markers, m)
		tl.TotalRetries += m.RetryCount
		if m.Failed {
			tl.TotalFailed++
		}
	}
	return tl
}

func TestNewIterationsPanel(t *testing.T) {
	p := NewIterationsPanel(80, 20)
	if p.SelectedIteration() != nil {
		t.Error("expected nil selection on empty panel")
	}
}

func TestIterationsPanel_SetTimeline_SelectsNewest(t *testing.T) {
	p := NewIterationsPanel(80, 20).SetTimeline(timeline(3,
		runstate.IterationMarker{Iteration: 1, Succeeded: true},
		runstate.IterationMarker{Iteration: 2, Failed: true, RetryCount: 2},
		runstate.IterationMarker{Iteration: 3},
	))
	sel := p.SelectedIteration()
	if sel == nil || *sel != 3 {
		t.Fatalf("SelectedIteration() = %v, want 3", sel)
	}
	retries, failed := p.Totals()
	if retries != 2 || failed != 1 {
		t.Errorf("Totals() = %d, %d; want 2, 1", retries, failed)
	}
}

func TestIterationsPanel_SetTimeline_KeepsSelection(t *testing.T) {
	p := NewIterationsPanel(80, 20).SetTimeline(timeline(2,
		runstate.IterationMarker{Iteration: 1, Succeeded: true},
		runstate.IterationMarker{Iteration: 2},
	))
	p, _ = p.Update(keyMsg("k"))
	if sel := p.SelectedIteration(); sel == nil || *sel != 1 {
		t.Fatalf("after k: SelectedIteration() = %v, want 1", sel)
	}

	p = p.SetTimeline(timeline(3,
		runstate.IterationMarker{Iteration: 1, Succeeded: true},
		runstate.IterationMarker{Iteration: 2, Succeeded: true},
		runstate.IterationMarker{Iteration: 3},
	))
	if sel := p.SelectedIteration(); sel == nil || *sel != 1 {
		t.Errorf("selection should stay on #1 across updates, got %v", sel)
	}
}

func TestIterationsPanel_AddRecord(t *testing.T) {
	p := NewIterationsPanel(80, 20).SetTimeline(timeline(2,
		runstate.IterationMarker{Iteration: 1, Succeeded: true},
		runstate.IterationMarker{Iteration: 2},
	))
	before := p
	p = p.AddRecord(store.IterationRecord{Number: 1, Usage: provider.UsageSummary{InputTokens: 1500, OutputTokens: 500}, Duration: 3.4})

	if len(before.records) != 0 {
		t.Error("AddRecord must not mutate the receiver")
	}
	item, ok := p.list.Items()[0].(iterItem)
	if !ok || item.record == nil {
		t.Fatal("record not attached to marker #1")
	}
	if desc := item.Description(); !strings.Contains(desc, "2.0k tok") || !strings.Contains(desc, "3.4s") {
		t.Errorf("Description() = %q", desc)
	}
}

func TestIterItem_Title(t *testing.T) {
	tests := []struct {
		name   string
		marker runstate.IterationMarker
		want   string
	}{
		{"success", runstate.IterationMarker{Iteration: 1, Succeeded: true}, "#1 ✓"},
		{"failed", runstate.IterationMarker{Iteration: 2, Failed: true}, "#2 ✗"},
		{"running", runstate.IterationMarker{Iteration: 3, IsCurrent: true}, "#3 ●"},
		{"pending", runstate.IterationMarker{Iteration: 4}, "#4 ·"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (iterItem{marker: tt.marker}).Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIterItem_Description(t *testing.T) {
	tests := []struct {
		name string
		item iterItem
		want string
	}{
		{"running", iterItem{marker: runstate.IterationMarker{Iteration: 1, IsCurrent: true}}, "running…"},
		{"running with retries", iterItem{marker: runstate.IterationMarker{Iteration: 1, IsCurrent: true, RetryCount: 2}}, "running…  ⟳2"},
		{"finished without record", iterItem{marker: runstate.IterationMarker{Iteration: 1, Failed: true}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Description(); got != tt.want {
				t.Errorf("Description() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIterItem_FilterValue(t *testing.T) {
	item := iterItem{marker: runstate.IterationMarker{Iteration: 3}}
	if got := item.FilterValue(); got != "#3" {
		t.Errorf("FilterValue() = %q, want %q", got, "#3")
	}
}

func TestIterDelegate_Render(t *testing.T) {
	d := iterDelegate{}
	l := list.New(nil, d, 80, 20)
	if cmd := d.Update(nil, &l); cmd != nil {
		t.Error("iterDelegate.Update() should return nil cmd")
	}

	var buf bytes.Buffer
	d.Render(&buf, l, 1, iterItem{marker: runstate.IterationMarker{Iteration: 1, Succeeded: true}})
	if !strings.Contains(buf.String(), "#1") {
		t.Errorf("Render() = %q", buf.String())
	}

	buf.Reset()
	d.Render(&buf, l, 0, agentItem{})
	if buf.Len() != 0 {
		t.Error("Render() with wrong item type should not write anything")
	}
}

func TestIterationsPanel_Enter(t *testing.T) {
	p := NewIterationsPanel(80, 20)
	if _, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter on empty panel should not emit")
	}

	p = p.SetTimeline(timeline(2,
		runstate.IterationMarker{Iteration: 1, Succeeded: true},
		runstate.IterationMarker{Iteration: 2},
	))
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter on non-empty panel should return cmd")
	}
	msg, ok := cmd().(IterationSelectedMsg)
	if !ok || msg.Number != 2 {
		t.Errorf("enter emitted %#v, want IterationSelectedMsg{2}", msg)
	}
}

func TestIterationsPanel_View(t *testing.T) {
	p := NewIterationsPanel(40, 5)
	if !strings.Contains(p.View(), "No iterations yet") {
		t.Errorf("empty View() = %q", p.View())
	}
	p = p.SetSize(60, 8)
	if p.width != 60 || p.height != 8 {
		t.Errorf("SetSize: got %dx%d", p.width, p.height)
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
