package panels

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

func TestRenderHeader_BasicFields(t *testing.T) {
	accent := lipgloss.NewStyle().Background(lipgloss.Color("#E0A526"))
	now := time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC)

	props := HeaderProps{
		ProjectName: "MyProject",
		Provider:    "codex",
		Branch:      "main",
		Iteration:   3,
		MaxIter:     10,
		Agents:      2,
		Usage:       provider.UsageSummary{InputTokens: 12_300, OutputTokens: 800},
		StateSymbol: "●",
		StateLabel:  "RUNNING",
		Countdown:   "retry 2.0s",
		Clock:       now,
	}

	rendered := RenderHeader(props, 200, accent)

	for _, want := range []string{"MyProject", "codex", "branch: main", "3/10", "agents: 2", "in 12.3k / out 800", "● RUNNING", "retry 2.0s", "15:30"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("RenderHeader() missing %q; output: %q", want, rendered)
		}
	}
}

func TestRenderHeader_EmptyFieldFallbacks(t *testing.T) {
	rendered := RenderHeader(HeaderProps{}, 200, lipgloss.NewStyle())

	if !strings.Contains(rendered, "swarm") {
		t.Errorf("RenderHeader() with empty props should name the tool; got %q", rendered)
	}
	for _, absent := range []string{"branch:", "dir:"} {
		if strings.Contains(rendered, absent) {
			t.Errorf("RenderHeader() should omit %q; got %q", absent, rendered)
		}
	}
}

func TestRenderHeader_WorkDir(t *testing.T) {
	rendered := RenderHeader(HeaderProps{WorkDir: "/home/user/myproject"}, 200, lipgloss.NewStyle())
	if !strings.Contains(rendered, "dir:") {
		t.Errorf("RenderHeader() missing 'dir:' with non-empty WorkDir; got %q", rendered)
	}
}

func TestRenderHeader_UnlimitedIter(t *testing.T) {
	rendered := RenderHeader(HeaderProps{Iteration: 5, MaxIter: 0}, 200, lipgloss.NewStyle())
	if !strings.Contains(rendered, "5/∞") {
		t.Errorf("RenderHeader() MaxIter=0 should show ∞; got %q", rendered)
	}
}

func TestRenderHeader_Elapsed(t *testing.T) {
	rendered := RenderHeader(HeaderProps{Elapsed: 95 * time.Second}, 200, lipgloss.NewStyle())
	if !strings.Contains(rendered, "elapsed: 1m35s") {
		t.Errorf("RenderHeader() should show elapsed time; got %q", rendered)
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{3*time.Hour + 15*time.Minute, "3h15m"},
		{0, "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatElapsed(tt.d); got != tt.want {
				t.Errorf("FormatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{1_000, "1.0k"},
		{12_345, "12.3k"},
		{1_200_000, "1.20M"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatTokens(tt.n); got != tt.want {
				t.Errorf("FormatTokens(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestFormatUsage(t *testing.T) {
	tests := []struct {
		name string
		u    provider.UsageSummary
		want string
	}{
		{"zero", provider.UsageSummary{}, "in 0 / out 0"},
		{"no cache", provider.UsageSummary{InputTokens: 1500, OutputTokens: 20}, "in 1.5k / out 20"},
		{"cached", provider.UsageSummary{InputTokens: 10, CachedInputTokens: 4000, OutputTokens: 2}, "in 10 (cached 4.0k) / out 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatUsage(tt.u); got != tt.want {
				t.Errorf("FormatUsage() = %q, want %q", got, tt.want)
			}
		})
	}
}
