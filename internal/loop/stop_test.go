package loop

import (
	"testing"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

func TestShouldStopFromProviderOutput(t *testing.T) {
	tests := []struct {
		name        string
		entries     []provider.PreviewEntry
		lastMessage string
		want        bool
	}{
		{
			name: "marker only inside tool output",
			entries: []provider.PreviewEntry{
				{Kind: provider.KindTool, Label: "exec", Text: "grep -r no_tasks_available ."},
				{Kind: provider.KindAssistant, Label: "assistant", Text: "done"},
			},
			want: false,
		},
		{
			name: "marker in assistant entry",
			entries: []provider.PreviewEntry{
				{Kind: provider.KindTool, Label: "exec", Text: "bd ready"},
				{Kind: provider.KindAssistant, Label: "assistant", Text: "NO_TASKS_AVAILABLE"},
			},
			want: true,
		},
		{
			name:        "marker only in last message",
			lastMessage: "There are no tasks available.",
			want:        true,
		},
		{
			name: "marker in reasoning does not count",
			entries: []provider.PreviewEntry{
				{Kind: provider.KindReasoning, Label: "reasoning", Text: "maybe no tasks available?"},
			},
			want: false,
		},
		{
			name: "marker split across assistant entries does not join",
			entries: []provider.PreviewEntry{
				{Kind: provider.KindAssistant, Text: "no tasks"},
				{Kind: provider.KindAssistant, Text: "available"},
			},
			want: false,
		},
		{
			name:    "marker only in a claude user prompt",
			entries: provider.Claude.PreviewEntriesFromLine(`{"type":"user","message":{"role":"user","content":"If the queue is empty print no_tasks_available"}}`),
			want:    false,
		},
		{
			name:    "marker only in claude subagent traffic",
			entries: provider.Claude.PreviewEntriesFromLine(`{"type":"assistant","parent_tool_use_id":"toolu_1","message":{"content":[{"type":"text","text":"NO_TASKS_AVAILABLE"}]}}`),
			want:    false,
		},
		{
			name:    "marker in claude top-level assistant text",
			entries: provider.Claude.PreviewEntriesFromLine(`{"type":"assistant","message":{"content":[{"type":"text","text":"NO_TASKS_AVAILABLE"}]}}`),
			want:    true,
		},
		{
			name: "nothing",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range provider.All() {
				if got := ShouldStopFromProviderOutput(a, tt.entries, tt.lastMessage); got != tt.want {
					t.Errorf("%s: got %v, want %v", a.Name(), got, tt.want)
				}
			}
		})
	}
}

func TestReviewPassed(t *testing.T) {
	assistant := []provider.PreviewEntry{{Kind: provider.KindAssistant, Text: "All good. review_pass"}}
	tool := []provider.PreviewEntry{{Kind: provider.KindTool, Text: "cat REVIEW.md # prints REVIEW_PASS"}}

	if !reviewPassed("REVIEW_PASS", assistant, "") {
		t.Error("expected pass from assistant text (case-insensitive)")
	}
	if reviewPassed("REVIEW_PASS", tool, "") {
		t.Error("tool output must not pass a review")
	}
	if !reviewPassed("REVIEW_PASS", nil, "REVIEW_PASS") {
		t.Error("expected pass from last message")
	}
	if reviewPassed("", assistant, "anything") {
		t.Error("empty marker must never pass")
	}
}
