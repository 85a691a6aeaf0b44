package loop

import (
	"strings"

	"github.com/LISSConsulting/LISSTech.RalphSwarm/internal/provider"
)

// ShouldStopFromProviderOutput reports whether an agent signalled that no
// work remains. Only assistant entries and the separately captured last
// message are consulted: a stop phrase echoed by a tool (a grep hit, a
// shell command) must not end the run.
func ShouldStopFromProviderOutput(adapter provider.Adapter, entries []provider.PreviewEntry, lastMessage string) bool {
	if adapter.HasStopMarker(assistantText(entries)) {
		return true
	}
	return adapter.HasStopMarker(lastMessage)
}

// reviewPassed applies the same assistant-only rule to the review pass marker.
func reviewPassed(marker string, entries []provider.PreviewEntry, lastMessage string) bool {
	if marker == "" {
		return false
	}
	m := strings.ToLower(marker)
	return strings.Contains(strings.ToLower(assistantText(entries)), m) ||
		strings.Contains(strings.ToLower(lastMessage), m)
}

func assistantText(entries []provider.PreviewEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e.Kind != provider.KindAssistant {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Text)
	}
	return b.String()
}

func hasAssistant(entries []provider.PreviewEntry) bool {
	for _, e := range entries {
		if e.Kind == provider.KindAssistant {
			return true
		}
	}
	return false
}
