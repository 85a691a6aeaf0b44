// Package provider normalizes the output of external coding-agent CLIs
// (Codex, Claude, OpenCode) into a uniform event model.
//
// Every function in this package is pure and safe for concurrent use. Agent
// output is untrusted, semi-structured text: parsing is best-effort and a
// line that cannot be understood yields no entries rather than an error.
package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a PreviewEntry.
type Kind string

const (
	KindAssistant Kind = "assistant"
	KindTool      Kind = "tool"
	KindReasoning Kind = "reasoning"
	KindError     Kind = "error"
	KindMessage   Kind = "message"
)

// PreviewEntry is one normalized, displayable unit of agent output.
type PreviewEntry struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// UsageSummary holds token counters for one agent run.
type UsageSummary struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
}

// Add returns the element-wise sum of u and other.
func (u UsageSummary) Add(other UsageSummary) UsageSummary {
	return UsageSummary{
		InputTokens:       u.InputTokens + other.InputTokens,
		CachedInputTokens: u.CachedInputTokens + other.CachedInputTokens,
		OutputTokens:      u.OutputTokens + other.OutputTokens,
	}
}

// ReasoningEffort is the reasoning hint passed to tools that support one.
type ReasoningEffort string

const (
	EffortLow    ReasoningEffort = "low"
	EffortMedium ReasoningEffort = "medium"
	EffortHigh   ReasoningEffort = "high"
)

// Valid reports whether e is one of low, medium, or high.
func (e ReasoningEffort) Valid() bool {
	switch e {
	case EffortLow, EffortMedium, EffortHigh:
		return true
	}
	return false
}

// Defaults is the baseline configuration of one agent tool. Values are
// constant for the life of the process.
type Defaults struct {
	Command         string
	LogDir          string
	Model           string
	ReasoningEffort ReasoningEffort
	Yolo            bool
}

// Options carries per-run invocation settings into BuildExecArgs.
type Options struct {
	Model           string
	ReasoningEffort ReasoningEffort
	Yolo            bool
	ExtraArgs       []string
}

// Adapter is the capability set implemented once per agent tool. Callers
// never need to know which tool is behind it.
type Adapter interface {
	Name() string
	DisplayName() string
	Defaults() Defaults

	// BuildExecArgs returns the argument list for one invocation. It does
	// no I/O and depends only on its inputs.
	BuildExecArgs(prompt, lastMessagePath string, opts Options) []string

	// PreviewEntriesFromLine classifies a single line of output.
	PreviewEntriesFromLine(line string) []PreviewEntry

	// CollectMessages classifies every line of output, in order.
	CollectMessages(output string) []PreviewEntry

	// CollectRawJSONLines returns the last previewCount brace-bearing lines.
	CollectRawJSONLines(output string, previewCount int) []string

	// ExtractUsageSummary returns the first usage record found, or nil.
	ExtractUsageSummary(output string) *UsageSummary

	// ExtractRetryDelaySeconds returns a rate-limit wait hint, if any.
	ExtractRetryDelaySeconds(output string) (float64, bool)

	// HasStopMarker reports whether output contains a no-more-work phrase.
	HasStopMarker(output string) bool

	// FormatCommandHint tells the operator how to locate a missing binary.
	FormatCommandHint(command string) string
}

// ErrUnknownProvider is returned by Lookup for unregistered names.
var ErrUnknownProvider = errors.New("unknown provider")

var registry = map[string]Adapter{
	codexName:    Codex,
	claudeName:   Claude,
	openCodeName: OpenCode,
}

// Lookup returns the adapter registered under name (case-insensitive).
func Lookup(name string) (Adapter, error) {
	a, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("provider: %w %q (known: %s)", ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
	return a, nil
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every registered adapter, ordered by name.
func All() []Adapter {
	names := Names()
	out := make([]Adapter, len(names))
	for i, n := range names {
		out[i] = registry[n]
	}
	return out
}
