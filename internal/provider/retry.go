package provider

import (
	"regexp"
	"strconv"
	"strings"
)

const unitPattern = `(milliseconds?|ms|hours?|hrs?|h|minutes?|mins?|m|seconds?|secs?|s)\b`

type retryPattern struct {
	re          *regexp.Regexp
	defaultUnit string
}

// retryPatterns recognise rate-limit and backoff hints. Group 1 is the
// amount, group 2 (when present) the unit.
var retryPatterns = []retryPattern{
	{regexp.MustCompile(`(?i)"?retry[_-]?after[_-]?ms"?\s*[:=]\s*"?(\d+(?:\.\d+)?)`), "ms"},
	{regexp.MustCompile(`(?i)"?retry[_-]?after[_-]?seconds"?\s*[:=]\s*"?(\d+(?:\.\d+)?)`), "s"},
	{regexp.MustCompile(`(?i)"?retry[_-]?delay"?\s*[:=]\s*"?(\d+(?:\.\d+)?)\s*` + unitPattern + `?`), "s"},
	{regexp.MustCompile(`(?i)retry[-_ ]?after["']?\s*[:=]?\s*"?(\d+(?:\.\d+)?)\s*` + unitPattern + `?`), "s"},
	{regexp.MustCompile(`(?i)try again in\s+(?:about\s+)?(\d+(?:\.\d+)?)\s*` + unitPattern + `?`), "s"},
	{regexp.MustCompile(`(?i)resets?\s+in\s+(\d+(?:\.\d+)?)\s*` + unitPattern + `?`), "s"},
	{regexp.MustCompile(`(?i)\bwait(?:ing)?\s+(\d+(?:\.\d+)?)\s*` + unitPattern), "s"},
}

// ExtractRetryDelaySeconds scans raw output for a rate-limit or backoff
// hint and returns the suggested wait in seconds. When several hints are
// present the one appearing first in the text wins; non-positive amounts
// are skipped. The result does not depend on which tool produced output.
func ExtractRetryDelaySeconds(output string) (float64, bool) {
	if output == "" {
		return 0, false
	}
	bestPos := -1
	var best float64
	for _, p := range retryPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(output, -1) {
			if bestPos >= 0 && m[0] >= bestPos {
				break
			}
			amount, err := strconv.ParseFloat(output[m[2]:m[3]], 64)
			if err != nil {
				continue
			}
			unit := p.defaultUnit
			if len(m) > 5 && m[4] >= 0 {
				unit = output[m[4]:m[5]]
			}
			secs := toSeconds(amount, unit)
			if secs <= 0 {
				continue
			}
			bestPos = m[0]
			best = secs
			break
		}
	}
	if bestPos < 0 {
		return 0, false
	}
	return best, true
}

func toSeconds(amount float64, unit string) float64 {
	switch u := strings.ToLower(unit); {
	case u == "ms" || strings.HasPrefix(u, "milli"):
		return amount / 1000
	case u == "h" || strings.HasPrefix(u, "h"):
		return amount * 3600
	case u == "m" || strings.HasPrefix(u, "min"):
		return amount * 60
	default:
		return amount
	}
}
