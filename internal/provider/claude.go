package provider

import (
	"runtime"
	"strings"
)

const claudeName = "claude"

// Claude drives `claude -p --output-format stream-json --verbose`.
var Claude Adapter = claudeAdapter{}

type claudeAdapter struct{}

var claudeTextKeys = []string{"text", "thinking", "content", "result", "message", "error"}

// claudeToolInputKeys pick the most telling argument of a tool call.
var claudeToolInputKeys = []string{"command", "file_path", "path", "pattern", "url", "query", "description", "prompt"}

func (claudeAdapter) Name() string        { return claudeName }
func (claudeAdapter) DisplayName() string { return "Claude" }

func (claudeAdapter) Defaults() Defaults {
	return Defaults{
		Command:         "claude",
		LogDir:          ".swarm/logs",
		Model:           "sonnet",
		ReasoningEffort: EffortMedium,
		Yolo:            true,
	}
}

// BuildExecArgs ignores lastMessagePath: the final assistant text arrives in
// the result event instead.
func (claudeAdapter) BuildExecArgs(prompt, _ string, opts Options) []string {
	args := []string{"-p", prompt, "--output-format", "stream-json", "--verbose"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.Yolo {
		args = append(args, "--dangerously-skip-permissions")
	} else {
		args = append(args, "--permission-mode", "acceptEdits")
	}
	if opts.ReasoningEffort == EffortHigh {
		args = append(args, "--settings", `{"alwaysThinkingEnabled":true}`)
	}
	return append(args, opts.ExtraArgs...)
}

func (claudeAdapter) PreviewEntriesFromLine(line string) []PreviewEntry {
	return classifyCandidates(line, classifyClaude)
}

func (a claudeAdapter) CollectMessages(output string) []PreviewEntry {
	return collectMessages(output, a.PreviewEntriesFromLine)
}

func (claudeAdapter) CollectRawJSONLines(output string, previewCount int) []string {
	return collectRawJSONLines(output, previewCount)
}

func (claudeAdapter) ExtractUsageSummary(output string) *UsageSummary {
	return extractUsage(output, locateClaudeUsage)
}

func (claudeAdapter) ExtractRetryDelaySeconds(output string) (float64, bool) {
	return ExtractRetryDelaySeconds(output)
}

func (claudeAdapter) HasStopMarker(output string) bool { return hasStopPhrase(output) }

func (a claudeAdapter) FormatCommandHint(command string) string {
	return formatCommandHint(runtime.GOOS, a.DisplayName(), command, "npm install -g @anthropic-ai/claude-code")
}

// locateClaudeUsage skips message.usage on assistant events; the result
// event carries the run totals.
func locateClaudeUsage(v any) any {
	if u := field(v, "usage"); isObject(u) {
		return u
	}
	if u := field(v, "result", "usage"); isObject(u) {
		return u
	}
	return nil
}

func classifyClaude(v any) []PreviewEntry {
	if !isObject(v) {
		return nil
	}
	tag := stringField(v, "type")
	switch tag {
	case "system":
		if stringField(v, "subtype") != "error" {
			return nil
		}
		return appendEntry(nil, newEntry(KindError, "error", bodyText(v, []string{"error", "message"})))
	case "assistant", "user":
		// Only the top-level agent's own messages are assistant text. Prompts
		// and subagent traffic are shown but never count as the agent's words.
		speaker := "assistant"
		if tag == "user" {
			speaker = "user"
		} else if stringField(v, "parent_tool_use_id") != "" {
			speaker = "subagent"
		}
		return classifyClaudeBlocks(field(v, "message", "content"), speaker)
	case "result":
		if isErr, _ := field(v, "is_error").(bool); isErr || strings.HasPrefix(stringField(v, "subtype"), "error") {
			text := FirstStringValue(field(v, "result"), nil)
			if text == "" {
				text = stringField(v, "subtype")
			}
			return appendEntry(nil, newEntry(KindError, "result", text))
		}
		return appendEntry(nil, newEntry(KindAssistant, "result", FirstStringValue(field(v, "result"), claudeTextKeys)))
	case "stream_event":
		return nil
	}
	kind, label := classifyTypeTag(tag)
	return appendEntry(nil, newEntry(kind, label, bodyText(v, claudeTextKeys)))
}

// classifyClaudeBlocks yields one entry per content block, in order.
// Text is KindAssistant only when speaker is "assistant".
func classifyClaudeBlocks(content any, speaker string) []PreviewEntry {
	textKind := KindMessage
	if speaker == "assistant" {
		textKind = KindAssistant
	}
	switch t := content.(type) {
	case string:
		return appendEntry(nil, newEntry(textKind, speaker, t))
	case []any:
		var entries []PreviewEntry
		for _, block := range t {
			entries = appendEntry(entries, classifyClaudeBlock(block, textKind, speaker))
		}
		return entries
	}
	return nil
}

func classifyClaudeBlock(block any, textKind Kind, speaker string) *PreviewEntry {
	if !isObject(block) {
		return nil
	}
	blockType := stringField(block, "type")
	switch blockType {
	case "text":
		return newEntry(textKind, speaker, stringField(block, "text"))
	case "thinking", "redacted_thinking":
		return newEntry(KindReasoning, "thinking", stringField(block, "thinking"))
	case "tool_use", "server_tool_use":
		name := stringField(block, "name")
		if name == "" {
			name = "tool"
		}
		text := FirstStringValue(field(block, "input"), claudeToolInputKeys)
		if text == "" {
			text = name
		}
		return newEntry(KindTool, name, text)
	case "tool_result":
		if isErr, _ := field(block, "is_error").(bool); isErr {
			return newEntry(KindError, "tool_result", FirstStringValue(field(block, "content"), []string{"text"}))
		}
		return newEntry(KindTool, "tool_result", FirstStringValue(field(block, "content"), []string{"text"}))
	}
	kind, label := classifyTypeTag(blockType)
	if kind == KindAssistant && textKind != KindAssistant {
		kind, label = textKind, speaker
	}
	return newEntry(kind, label, bodyText(block, claudeTextKeys))
}
