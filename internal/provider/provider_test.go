package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"codex", "Claude", " opencode "} {
		a, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q) error: %v", name, err)
		}
		if a.Name() != strings.ToLower(strings.TrimSpace(name)) {
			t.Errorf("Lookup(%q).Name() = %q", name, a.Name())
		}
	}
	if _, err := Lookup("gemini"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Lookup(gemini) error = %v, want ErrUnknownProvider", err)
	}
	if got := strings.Join(Names(), ","); got != "claude,codex,opencode" {
		t.Errorf("Names() = %q", got)
	}
	if len(All()) != 3 {
		t.Errorf("All() returned %d adapters, want 3", len(All()))
	}
}

func TestDefaultsAreValid(t *testing.T) {
	for _, a := range All() {
		d := a.Defaults()
		if d.Command == "" || d.LogDir == "" || d.Model == "" {
			t.Errorf("%s: incomplete defaults %+v", a.Name(), d)
		}
		if !d.ReasoningEffort.Valid() {
			t.Errorf("%s: default effort %q invalid", a.Name(), d.ReasoningEffort)
		}
	}
}

func TestBuildExecArgs(t *testing.T) {
	opts := Options{Model: "m1", ReasoningEffort: EffortHigh, Yolo: true, ExtraArgs: []string{"--x"}}
	tests := []struct {
		adapter Adapter
		opts    Options
		want    string
	}{
		{
			adapter: Codex,
			opts:    opts,
			want:    `exec --json --skip-git-repo-check -m m1 -c model_reasoning_effort="high" --dangerously-bypass-approvals-and-sandbox --output-last-message /tmp/last.txt --x do it`,
		},
		{
			adapter: Codex,
			opts:    Options{},
			want:    `exec --json --skip-git-repo-check --full-auto --output-last-message /tmp/last.txt do it`,
		},
		{
			adapter: Claude,
			opts:    opts,
			want:    `-p do it --output-format stream-json --verbose --model m1 --dangerously-skip-permissions --settings {"alwaysThinkingEnabled":true} --x`,
		},
		{
			adapter: Claude,
			opts:    Options{ReasoningEffort: EffortLow},
			want:    `-p do it --output-format stream-json --verbose --permission-mode acceptEdits`,
		},
		{
			adapter: OpenCode,
			opts:    opts,
			want:    `run --format json --model m1 --variant high --x do it`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.adapter.Name(), func(t *testing.T) {
			got := tt.adapter.BuildExecArgs("do it", "/tmp/last.txt", tt.opts)
			again := tt.adapter.BuildExecArgs("do it", "/tmp/last.txt", tt.opts)
			if strings.Join(got, " ") != tt.want {
				t.Errorf("BuildExecArgs() =\n  %s\nwant\n  %s", strings.Join(got, " "), tt.want)
			}
			if strings.Join(got, "\x00") != strings.Join(again, "\x00") {
				t.Errorf("BuildExecArgs() not deterministic")
			}
		})
	}
}

func TestCollectRawJSONLines(t *testing.T) {
	output := "{\"n\":1}\n{\"n\":2}\nplain\n\n{\"n\":3}\r\n{\"n\":4}\n  {\"n\":5}  \n"
	for _, a := range All() {
		got := a.CollectRawJSONLines(output, 2)
		if strings.Join(got, "|") != `{"n":4}|{"n":5}` {
			t.Errorf("%s: CollectRawJSONLines(_, 2) = %v", a.Name(), got)
		}
		if got := a.CollectRawJSONLines(output, 0); got != nil {
			t.Errorf("%s: CollectRawJSONLines(_, 0) = %v, want nil", a.Name(), got)
		}
		if got := a.CollectRawJSONLines(output, 10); len(got) != 5 {
			t.Errorf("%s: CollectRawJSONLines(_, 10) returned %d lines, want 5", a.Name(), len(got))
		}
	}
}

func TestExtractUsageStopsAtFirstMatch(t *testing.T) {
	tests := []struct {
		adapter Adapter
		output  string
		want    *UsageSummary
	}{
		{
			adapter: Codex,
			output: `{"type":"turn.completed","usage":{"input_tokens":5,"cached_input_tokens":2,"output_tokens":3}}` + "\n" +
				`{"type":"turn.completed","usage":{"inputTokens":7}}`,
			want: &UsageSummary{InputTokens: 5, CachedInputTokens: 2, OutputTokens: 3},
		},
		{
			adapter: Codex,
			output:  `{"id":"0","msg":{"type":"token_count","info":{"total_token_usage":{"input_tokens":11,"output_tokens":4}}}}`,
			want:    &UsageSummary{InputTokens: 11, OutputTokens: 4},
		},
		{
			adapter: Claude,
			output: `{"type":"assistant","message":{"content":[]}}` + "\n" +
				`{"type":"result","result":{"usage":{"input_tokens":0,"inputTokens":9,"cache_read_input_tokens":1}}}`,
			want: &UsageSummary{InputTokens: 9, CachedInputTokens: 1},
		},
		{
			adapter: OpenCode,
			output:  `{"type":"step_finish","part":{"tokens":{"input":20,"output":6,"cache":{"read":4}}}}`,
			want:    &UsageSummary{InputTokens: 20, CachedInputTokens: 4, OutputTokens: 6},
		},
		{
			adapter: OpenCode,
			output:  `{"type":"text","part":{"tokens":{"input":20}}}`,
			want:    nil,
		},
		{
			adapter: Claude,
			output: `{"type":"assistant","message":{"content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":2,"output_tokens":1}}}` + "\n" +
				`{"type":"result","subtype":"success","result":"hi","usage":{"input_tokens":40,"output_tokens":12}}`,
			want: &UsageSummary{InputTokens: 40, OutputTokens: 12},
		},
		{
			adapter: Claude,
			output:  `{"type":"assistant","message":{"content":[],"usage":{"input_tokens":2,"output_tokens":1}}}`,
			want:    nil,
		},
		{
			adapter: Claude,
			output:  "no json here\n",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.adapter.Name(), func(t *testing.T) {
			got := tt.adapter.ExtractUsageSummary(tt.output)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Fatalf("ExtractUsageSummary() = %v, want %v", got, tt.want)
			case *got != *tt.want:
				t.Errorf("ExtractUsageSummary() = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestUsageFieldSelection(t *testing.T) {
	// Non-positive and non-numeric spellings are skipped, not taken as zero.
	rec := ToJSONCandidates(`{"input_tokens":-1,"inputTokens":"8","prompt_tokens":6,"output_tokens":0}`)[0]
	got := usageFromRecord(rec)
	want := UsageSummary{InputTokens: 6}
	if got != want {
		t.Errorf("usageFromRecord() = %+v, want %+v", got, want)
	}
}

func TestHasStopMarker(t *testing.T) {
	tests := []struct {
		output string
		want   bool
	}{
		{"", false},
		{"All done. No tasks available.", true},
		{"echo NO_TASKS_AVAILABLE", true},
		{"tasks are available", false},
		{`{"type":"text","part":{"text":"no tasks available"}}`, true},
	}
	for _, tt := range tests {
		for _, a := range All() {
			if got := a.HasStopMarker(tt.output); got != tt.want {
				t.Errorf("%s.HasStopMarker(%q) = %v, want %v", a.Name(), tt.output, got, tt.want)
			}
		}
	}
}

func TestFormatCommandHint(t *testing.T) {
	if got := formatCommandHint("windows", "Codex", "codex", "npm i"); !strings.Contains(got, "where.exe codex") {
		t.Errorf("windows hint = %q", got)
	}
	if got := formatCommandHint("linux", "Codex", "codex", "npm i"); !strings.Contains(got, "which codex") {
		t.Errorf("linux hint = %q", got)
	}
	if got := Claude.FormatCommandHint(" "); !strings.Contains(got, "<unset>") {
		t.Errorf("empty command hint = %q", got)
	}
}

func TestNonJSONFallbackPolicy(t *testing.T) {
	lines := []string{"plain progress text", "  } stray {  ", "warning: retrying"}
	for _, line := range lines {
		if got := Codex.PreviewEntriesFromLine(line); len(got) != 0 {
			t.Errorf("Codex(%q) = %v, want none", line, got)
		}
		if got := Claude.PreviewEntriesFromLine(line); len(got) != 0 {
			t.Errorf("Claude(%q) = %v, want none", line, got)
		}
		got := OpenCode.PreviewEntriesFromLine(line)
		if len(got) != 1 || got[0].Kind != KindAssistant || got[0].Text != strings.TrimSpace(line) {
			t.Errorf("OpenCode(%q) = %v, want one assistant entry", line, got)
		}
	}
	for _, a := range All() {
		if got := a.PreviewEntriesFromLine("   "); len(got) != 0 {
			t.Errorf("%s: blank line produced %v", a.Name(), got)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  a\n\tb   c "); got != "a b c" {
		t.Errorf("normalizeText() = %q", got)
	}
	long := normalizeText(strings.Repeat("x", MaxPreviewTextWidth*2))
	if !strings.HasSuffix(long, "…") || len([]rune(long)) != MaxPreviewTextWidth {
		t.Errorf("long text not bounded: %d runes", len([]rune(long)))
	}
}

func TestClassifyTypeTag(t *testing.T) {
	tests := []struct {
		tag       string
		wantKind  Kind
		wantLabel string
	}{
		{"tool_call", KindTool, "tool"},
		{"thinking", KindReasoning, "reasoning"},
		{"agent_reasoning", KindReasoning, "reasoning"},
		{"stream_error", KindError, "error"},
		{"assistant_delta", KindAssistant, "assistant"},
		{"final_result", KindAssistant, "assistant"},
		{"banner", KindMessage, "banner"},
	}
	for _, tt := range tests {
		kind, label := classifyTypeTag(tt.tag)
		if kind != tt.wantKind || label != tt.wantLabel {
			t.Errorf("classifyTypeTag(%q) = (%s, %s), want (%s, %s)", tt.tag, kind, label, tt.wantKind, tt.wantLabel)
		}
	}
}
