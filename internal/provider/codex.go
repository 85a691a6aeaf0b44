package provider

import (
	"fmt"
	"runtime"
	"strings"
)

const codexName = "codex"

// Codex drives `codex exec --json`.
var Codex Adapter = codexAdapter{}

type codexAdapter struct{}

var codexTextKeys = []string{"text", "message", "content", "summary"}

func (codexAdapter) Name() string        { return codexName }
func (codexAdapter) DisplayName() string { return "Codex" }

func (codexAdapter) Defaults() Defaults {
	return Defaults{
		Command:         "codex",
		LogDir:          ".swarm/logs",
		Model:           "gpt-5-codex",
		ReasoningEffort: EffortHigh,
		Yolo:            true,
	}
}

func (codexAdapter) BuildExecArgs(prompt, lastMessagePath string, opts Options) []string {
	args := []string{"exec", "--json", "--skip-git-repo-check"}
	if opts.Model != "" {
		args = append(args, "-m", opts.Model)
	}
	if opts.ReasoningEffort.Valid() {
		args = append(args, "-c", fmt.Sprintf("model_reasoning_effort=%q", string(opts.ReasoningEffort)))
	}
	if opts.Yolo {
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	} else {
		args = append(args, "--full-auto")
	}
	if lastMessagePath != "" {
		args = append(args, "--output-last-message", lastMessagePath)
	}
	args = append(args, opts.ExtraArgs...)
	return append(args, prompt)
}

// PreviewEntriesFromLine emits nothing for lines without JSON: codex
// prints its non-event chatter to stderr.
func (codexAdapter) PreviewEntriesFromLine(line string) []PreviewEntry {
	return classifyCandidates(line, classifyCodex)
}

func (a codexAdapter) CollectMessages(output string) []PreviewEntry {
	return collectMessages(output, a.PreviewEntriesFromLine)
}

func (codexAdapter) CollectRawJSONLines(output string, previewCount int) []string {
	return collectRawJSONLines(output, previewCount)
}

func (codexAdapter) ExtractUsageSummary(output string) *UsageSummary {
	return extractUsage(output, locateCodexUsage)
}

func (codexAdapter) ExtractRetryDelaySeconds(output string) (float64, bool) {
	return ExtractRetryDelaySeconds(output)
}

func (codexAdapter) HasStopMarker(output string) bool { return hasStopPhrase(output) }

func (a codexAdapter) FormatCommandHint(command string) string {
	return formatCommandHint(runtime.GOOS, a.DisplayName(), command, "npm install -g @openai/codex")
}

func locateCodexUsage(v any) any {
	// turn.completed carries the usage record at the top level.
	if u := field(v, "usage"); isObject(u) {
		return u
	}
	if msg := field(v, "msg"); stringField(msg, "type") == "token_count" {
		if u := field(msg, "info", "total_token_usage"); isObject(u) {
			return u
		}
	}
	return nil
}

func classifyCodex(v any) []PreviewEntry {
	if !isObject(v) {
		return nil
	}
	// Older codex builds wrap every event as {"id":..., "msg":{...}}.
	if msg := field(v, "msg"); isObject(msg) && stringField(v, "type") == "" {
		v = msg
	}
	tag := stringField(v, "type")
	switch tag {
	case "thread.started", "turn.started", "turn.completed", "item.updated",
		"token_count", "task_started", "task_complete", "session_configured":
		return nil
	case "turn.failed":
		return appendEntry(nil, newEntry(KindError, tag, bodyText(field(v, "error"), codexTextKeys)))
	case "error":
		return appendEntry(nil, newEntry(KindError, "error", bodyText(v, codexTextKeys)))
	case "item.started", "item.completed":
		return classifyCodexItem(tag, field(v, "item"))
	}
	if strings.HasPrefix(tag, "exec_command") || strings.HasPrefix(tag, "patch_apply") {
		return appendEntry(nil, newEntry(KindTool, tag, bodyText(v, []string{"command", "stdout", "changes"})))
	}
	kind, label := classifyTypeTag(tag)
	return appendEntry(nil, newEntry(kind, label, bodyText(v, codexTextKeys)))
}

func classifyCodexItem(phase string, item any) []PreviewEntry {
	if !isObject(item) {
		return nil
	}
	itemType := stringField(item, "type")
	started := phase == "item.started"
	switch itemType {
	case "agent_message", "assistant_message":
		if started {
			return nil
		}
		return appendEntry(nil, newEntry(KindAssistant, "assistant", bodyText(item, codexTextKeys)))
	case "reasoning":
		if started {
			return nil
		}
		return appendEntry(nil, newEntry(KindReasoning, "reasoning", bodyText(item, codexTextKeys)))
	case "command_execution":
		cmd := FirstStringValue(field(item, "command"), nil)
		text := "$ " + cmd
		if !started {
			if code, ok := field(item, "exit_code").(interface{ String() string }); ok {
				text = fmt.Sprintf("%s (exit %s)", text, code.String())
			}
		}
		return appendEntry(nil, newEntry(KindTool, "command", text))
	case "file_change":
		if started {
			return nil
		}
		return appendEntry(nil, newEntry(KindTool, "file_change", FirstStringValue(field(item, "changes"), []string{"path"})))
	case "mcp_tool_call":
		label := strings.Trim(stringField(item, "server")+"."+stringField(item, "tool"), ".")
		if label == "" {
			label = "mcp"
		}
		return appendEntry(nil, newEntry(KindTool, label, FirstStringValue(field(item, "arguments"), nil)))
	case "web_search":
		return appendEntry(nil, newEntry(KindTool, "web_search", stringField(item, "query")))
	case "todo_list":
		return appendEntry(nil, newEntry(KindMessage, "todo_list", FirstStringValue(field(item, "items"), []string{"text"})))
	case "error":
		return appendEntry(nil, newEntry(KindError, "error", bodyText(item, codexTextKeys)))
	}
	if started {
		return nil
	}
	kind, label := classifyTypeTag(itemType)
	return appendEntry(nil, newEntry(kind, label, bodyText(item, codexTextKeys)))
}
