package gate

import (
	"fmt"
	"strings"
)

// Signal severities.
const (
	SeverityMajor = "major"
	SeverityMinor = "minor"
)

// Signal is a detected escalation signal in model output.
type Signal struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

var refusalPhrases = []string{
	"i cannot help with",
	"i can't help with",
	"i am unable to",
	"i'm unable to",
	"i won't be able to",
	"i'm sorry, but i",
	"as an ai",
	"i cannot assist",
	"i can't assist",
}

const (
	thrashMinChunkLen = 30
	thrashRepeats     = 3
)

// DetectEscalationSignals flags output that should bypass the normal checks:
// empty output, explicit refusals, and repeated-chunk thrashing.
func DetectEscalationSignals(output string) []Signal {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return []Signal{{
			Kind:     "empty_output",
			Severity: SeverityMajor,
			Detail:   "output is empty or whitespace-only",
		}}
	}

	var signals []Signal
	lower := strings.ToLower(trimmed)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			signals = append(signals, Signal{
				Kind:     "refusal",
				Severity: SeverityMajor,
				Detail:   fmt.Sprintf("output contains refusal phrase %q", phrase),
			})
			break
		}
	}

	if chunk, count := dominantRepeatedChunk(trimmed); count >= thrashRepeats {
		signals = append(signals, Signal{
			Kind:     "thrashing",
			Severity: SeverityMajor,
			Detail:   fmt.Sprintf("chunk repeated %d times: %q", count, truncate(chunk, 60)),
		})
	}

	return signals
}

// dominantRepeatedChunk finds the most repeated substantial line in output.
func dominantRepeatedChunk(output string) (string, int) {
	counts := make(map[string]int)
	best := ""
	bestCount := 0
	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < thrashMinChunkLen {
			continue
		}
		counts[line]++
		if counts[line] > bestCount {
			best = line
			bestCount = counts[line]
		}
	}
	return best, bestCount
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
