package panels

import (
	"strings"
	"testing"
)

func TestRenderFooter_EachFocusTarget(t *testing.T) {
	tests := []struct {
		focus string
		hints []string
	}{
		{"agents", []string{"j/k:agent"}},
		{"iterations", []string{"j/k:navigate", "enter:view"}},
		{"main", []string{"[/]:dev/review", "f:follow", "ctrl+u/d:scroll"}},
		{"events", []string{"[/]:tab", "j/k:scroll"}},
		{"", []string{"tab:next panel"}},
	}

	for _, tt := range tests {
		t.Run(tt.focus, func(t *testing.T) {
			rendered := RenderFooter(FooterProps{Focus: tt.focus, LastCommit: "abc1234"}, 200)
			for _, hint := range tt.hints {
				if !strings.Contains(rendered, hint) {
					t.Errorf("RenderFooter(focus=%q) missing hint %q; got %q", tt.focus, hint, rendered)
				}
			}
		})
	}
}

func TestRenderFooter_GlobalHintsAlwaysShown(t *testing.T) {
	rendered := RenderFooter(FooterProps{Focus: "main"}, 200)
	for _, global := range []string{"q:quit", "1-4:panel", "s:stop"} {
		if !strings.Contains(rendered, global) {
			t.Errorf("global hint %q missing; got %q", global, rendered)
		}
	}
}

func TestRenderFooter_StopRequested(t *testing.T) {
	rendered := RenderFooter(FooterProps{StopRequested: true, Focus: "main"}, 200)
	if !strings.Contains(rendered, "stopping after iteration") {
		t.Errorf("stop requested footer missing message; got %q", rendered)
	}
	if strings.Contains(rendered, "s:stop") {
		t.Errorf("stop hint should be replaced once requested; got %q", rendered)
	}
}

func TestRenderFooter_LastCommit(t *testing.T) {
	tests := []struct {
		name   string
		commit string
		want   string
	}{
		{"set", "abc1234 fix parser", "abc1234 fix parser"},
		{"empty", "", "last commit: —"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := RenderFooter(FooterProps{LastCommit: tt.commit}, 200)
			if !strings.Contains(rendered, tt.want) {
				t.Errorf("RenderFooter() missing %q; got %q", tt.want, rendered)
			}
		})
	}
}

func TestRenderFooter_Notice(t *testing.T) {
	for _, tone := range []string{"info", "success", "warning", "error", "bogus"} {
		t.Run(tone, func(t *testing.T) {
			rendered := RenderFooter(FooterProps{Notice: "1 of 2 agent(s) failed", NoticeTone: tone}, 200)
			if !strings.Contains(rendered, "1 of 2 agent(s) failed") {
				t.Errorf("notice missing; got %q", rendered)
			}
		})
	}
}
