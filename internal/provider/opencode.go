package provider

import (
	"runtime"
	"strings"
)

const openCodeName = "opencode"

// OpenCode drives `opencode run --format json`. Unlike the other adapters
// it keeps plain-text lines: opencode falls back to printing raw text when
// a provider streams without structure.
var OpenCode Adapter = openCodeAdapter{}

type openCodeAdapter struct{}

var openCodeTextKeys = []string{"text", "content", "message", "output", "error"}

func (openCodeAdapter) Name() string        { return openCodeName }
func (openCodeAdapter) DisplayName() string { return "OpenCode" }

func (openCodeAdapter) Defaults() Defaults {
	return Defaults{
		Command:         "opencode",
		LogDir:          ".swarm/logs",
		Model:           "anthropic/claude-sonnet-4-5",
		ReasoningEffort: EffortMedium,
		Yolo:            true,
	}
}

// BuildExecArgs ignores lastMessagePath and Yolo; opencode run has no
// equivalent flags and always runs non-interactively.
func (openCodeAdapter) BuildExecArgs(prompt, _ string, opts Options) []string {
	args := []string{"run", "--format", "json"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.ReasoningEffort.Valid() {
		args = append(args, "--variant", string(opts.ReasoningEffort))
	}
	args = append(args, opts.ExtraArgs...)
	return append(args, prompt)
}

func (openCodeAdapter) PreviewEntriesFromLine(line string) []PreviewEntry {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if len(ToJSONCandidates(trimmed)) == 0 {
		return appendEntry(nil, newEntry(KindAssistant, "assistant", trimmed))
	}
	return classifyCandidates(trimmed, classifyOpenCode)
}

func (a openCodeAdapter) CollectMessages(output string) []PreviewEntry {
	return collectMessages(output, a.PreviewEntriesFromLine)
}

func (openCodeAdapter) CollectRawJSONLines(output string, previewCount int) []string {
	return collectRawJSONLines(output, previewCount)
}

func (openCodeAdapter) ExtractUsageSummary(output string) *UsageSummary {
	return extractUsage(output, locateOpenCodeUsage)
}

func (openCodeAdapter) ExtractRetryDelaySeconds(output string) (float64, bool) {
	return ExtractRetryDelaySeconds(output)
}

func (openCodeAdapter) HasStopMarker(output string) bool { return hasStopPhrase(output) }

func (a openCodeAdapter) FormatCommandHint(command string) string {
	return formatCommandHint(runtime.GOOS, a.DisplayName(), command, "npm install -g opencode-ai")
}

func locateOpenCodeUsage(v any) any {
	for _, key := range []string{"usage", "tokens"} {
		if u := field(v, key); isObject(u) {
			return u
		}
	}
	if stringField(v, "type") == "step_finish" {
		if u := field(v, "part", "tokens"); isObject(u) {
			return u
		}
	}
	return nil
}

func classifyOpenCode(v any) []PreviewEntry {
	if !isObject(v) {
		return nil
	}
	part := field(v, "part")
	tag := stringField(v, "type")
	switch tag {
	case "step_start", "step_finish":
		return nil
	case "text":
		return appendEntry(nil, newEntry(KindAssistant, "assistant", stringField(part, "text")))
	case "reasoning":
		return appendEntry(nil, newEntry(KindReasoning, "reasoning", stringField(part, "text")))
	case "tool_use":
		return appendEntry(nil, openCodeTool(part))
	case "error":
		text := FirstStringValue(field(v, "error"), []string{"message", "data", "name"})
		if text == "" {
			text = bodyText(v, openCodeTextKeys)
		}
		return appendEntry(nil, newEntry(KindError, "error", text))
	}
	if isObject(part) {
		if partType := stringField(part, "type"); partType != "" && tag == "" {
			kind, label := classifyTypeTag(partType)
			return appendEntry(nil, newEntry(kind, label, bodyText(part, openCodeTextKeys)))
		}
	}
	kind, label := classifyTypeTag(tag)
	return appendEntry(nil, newEntry(kind, label, bodyText(v, openCodeTextKeys)))
}

func openCodeTool(part any) *PreviewEntry {
	name := stringField(part, "tool")
	if name == "" {
		name = "tool"
	}
	state := field(part, "state")
	if stringField(state, "status") == "error" {
		return newEntry(KindError, name, FirstStringValue(field(state, "error"), nil))
	}
	text := stringField(state, "title")
	if text == "" {
		text = FirstStringValue(field(state, "input"), claudeToolInputKeys)
	}
	if text == "" {
		text = FirstStringValue(field(state, "output"), nil)
	}
	if text == "" {
		text = name
	}
	return newEntry(KindTool, name, text)
}
