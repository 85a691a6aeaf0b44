package provider

import "testing"

func TestExtractRetryDelaySeconds(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   float64
		ok     bool
	}{
		{name: "empty", output: "", ok: false},
		{name: "no hint", output: "all good, nothing to wait for", ok: false},
		{name: "retry after seconds", output: "429: please retry after 30 seconds", want: 30, ok: true},
		{name: "retry-after header", output: "Retry-After: 12", want: 12, ok: true},
		{name: "try again minutes", output: "Rate limit reached. Try again in 2 minutes.", want: 120, ok: true},
		{name: "try again fractional", output: "try again in 1.5s", want: 1.5, ok: true},
		{name: "resets in hours", output: "usage limit resets in 1h", want: 3600, ok: true},
		{name: "json ms", output: `{"error":{"retry_after_ms":2500}}`, want: 2.5, ok: true},
		{name: "json camel ms", output: `{"retryAfterMs": 500}`, want: 0.5, ok: true},
		{name: "json seconds", output: `{"retry_after_seconds":7}`, want: 7, ok: true},
		{name: "json retryDelay", output: `{"retryDelay":"45s"}`, want: 45, ok: true},
		{name: "json retry_after", output: `{"retry_after": 9}`, want: 9, ok: true},
		{name: "zero skipped", output: "retry after 0 seconds; try again in 5s", want: 5, ok: true},
		{name: "earliest wins", output: "try again in 10s. Retry-After: 99", want: 10, ok: true},
		{name: "waiting", output: "waiting 3 minutes before next request", want: 180, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractRetryDelaySeconds(tt.output)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExtractRetryDelaySeconds(%q) = (%v, %v), want (%v, %v)", tt.output, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAdaptersShareRetryExtractor(t *testing.T) {
	const output = "Rate limited. try again in 20s"
	for _, a := range All() {
		got, ok := a.ExtractRetryDelaySeconds(output)
		if !ok || got != 20 {
			t.Errorf("%s.ExtractRetryDelaySeconds() = (%v, %v), want (20, true)", a.Name(), got, ok)
		}
	}
}
