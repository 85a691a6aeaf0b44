package provider

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// MaxPreviewTextWidth bounds PreviewEntry.Text, in terminal cells.
const MaxPreviewTextWidth = 400

// stopPhrases are matched case-insensitively anywhere in the output. The
// underscored spelling is what older prompt templates asked agents to print.
var stopPhrases = []string{
	"no tasks available",
	"no_tasks_available",
}

var (
	inputTokenKeys  = [][]string{{"input_tokens"}, {"inputTokens"}, {"prompt_tokens"}, {"promptTokens"}, {"input"}}
	cachedTokenKeys = [][]string{
		{"cached_input_tokens"}, {"cachedInputTokens"},
		{"cache_read_input_tokens"}, {"cacheReadInputTokens"},
		{"cached_tokens"}, {"cachedTokens"},
		{"cache", "read"},
	}
	outputTokenKeys = [][]string{{"output_tokens"}, {"outputTokens"}, {"completion_tokens"}, {"completionTokens"}, {"output"}}
)

// normalizeText collapses whitespace and bounds the result to
// MaxPreviewTextWidth cells.
func normalizeText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= MaxPreviewTextWidth {
		return s
	}
	return runewidth.Truncate(s, MaxPreviewTextWidth, "…")
}

// newEntry builds a PreviewEntry, or nil when text is empty after
// normalization.
func newEntry(kind Kind, label, text string) *PreviewEntry {
	text = normalizeText(text)
	if text == "" {
		return nil
	}
	if label == "" {
		label = string(kind)
	}
	return &PreviewEntry{Kind: kind, Label: label, Text: text}
}

// classifyTypeTag maps a free-form event type string onto a Kind.
func classifyTypeTag(tag string) (Kind, string) {
	lower := strings.ToLower(tag)
	switch {
	case strings.Contains(lower, "tool"):
		return KindTool, string(KindTool)
	case strings.Contains(lower, "think"), strings.Contains(lower, "reason"):
		return KindReasoning, string(KindReasoning)
	case strings.Contains(lower, "error"):
		return KindError, string(KindError)
	case strings.Contains(lower, "assistant"), strings.Contains(lower, "message"), strings.Contains(lower, "result"):
		return KindAssistant, string(KindAssistant)
	}
	return KindMessage, tag
}

// splitLines splits on "\n", treating "\r\n" the same way.
func splitLines(output string) []string {
	if output == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
}

// classifyCandidates runs classify over every structured value in line,
// flattening top-level lists so each element is classified on its own.
func classifyCandidates(line string, classify func(any) []PreviewEntry) []PreviewEntry {
	var entries []PreviewEntry
	for _, cand := range ToJSONCandidates(line) {
		if list, ok := cand.([]any); ok {
			for _, item := range list {
				entries = append(entries, classify(item)...)
			}
			continue
		}
		entries = append(entries, classify(cand)...)
	}
	return entries
}

func collectMessages(output string, fromLine func(string) []PreviewEntry) []PreviewEntry {
	var entries []PreviewEntry
	for _, line := range splitLines(output) {
		entries = append(entries, fromLine(line)...)
	}
	return entries
}

func collectRawJSONLines(output string, previewCount int) []string {
	if previewCount <= 0 {
		return nil
	}
	var lines []string
	for _, line := range splitLines(output) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || !strings.ContainsAny(trimmed, "{}") {
			continue
		}
		lines = append(lines, trimmed)
	}
	if len(lines) > previewCount {
		lines = lines[len(lines)-previewCount:]
	}
	return lines
}

// extractUsage scans lines top to bottom and returns the summary built from
// the first usage record that locate finds. It does not look further.
func extractUsage(output string, locate func(any) any) *UsageSummary {
	for _, line := range splitLines(output) {
		for _, cand := range ToJSONCandidates(line) {
			values := []any{cand}
			if list, ok := cand.([]any); ok {
				values = list
			}
			for _, v := range values {
				rec := locate(v)
				if !isObject(rec) {
					continue
				}
				u := usageFromRecord(rec)
				return &u
			}
		}
	}
	return nil
}

// usageFromRecord reads token counts from rec. For each counter the first
// spelling holding a positive number wins; counters with no such spelling
// are reported as zero.
func usageFromRecord(rec any) UsageSummary {
	return UsageSummary{
		InputTokens:       int64(pickPositive(rec, inputTokenKeys)),
		CachedInputTokens: int64(pickPositive(rec, cachedTokenKeys)),
		OutputTokens:      int64(pickPositive(rec, outputTokenKeys)),
	}
}

func pickPositive(rec any, paths [][]string) float64 {
	for _, path := range paths {
		if n, ok := positiveNumber(field(rec, path...)); ok {
			return n
		}
	}
	return 0
}

func hasStopPhrase(output string) bool {
	if output == "" {
		return false
	}
	lower := strings.ToLower(output)
	for _, phrase := range stopPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func formatCommandHint(goos, displayName, command, install string) string {
	if strings.TrimSpace(command) == "" {
		command = "<unset>"
	}
	lookup := fmt.Sprintf("which %s", command)
	if goos == "windows" {
		lookup = fmt.Sprintf("where.exe %s", command)
	}
	return fmt.Sprintf("%s command %q could not be started. Check it is installed (%s) and on PATH (%s), or set provider.command in swarm.toml.",
		displayName, command, install, lookup)
}

// appendEntry appends e when it is non-nil.
func appendEntry(entries []PreviewEntry, e *PreviewEntry) []PreviewEntry {
	if e == nil {
		return entries
	}
	return append(entries, *e)
}

// metadataKeys never carry display text; they are skipped when an event
// body falls back to scanning every value.
var metadataKeys = map[string]bool{
	"type": true, "subtype": true, "id": true, "uuid": true,
	"session_id": true, "sessionID": true, "thread_id": true,
	"parent_tool_use_id": true, "call_id": true, "status": true,
	"timestamp": true, "usage": true, "tokens": true,
}

// bodyText is FirstStringValue over v with metadata keys removed.
func bodyText(v any, keys []string) string {
	obj, ok := v.(*Object)
	if !ok || obj == nil {
		return FirstStringValue(v, keys)
	}
	trimmed := &Object{vals: make(map[string]any, len(obj.keys))}
	for _, k := range obj.keys {
		if metadataKeys[k] {
			continue
		}
		trimmed.set(k, obj.vals[k])
	}
	return FirstStringValue(trimmed, keys)
}
