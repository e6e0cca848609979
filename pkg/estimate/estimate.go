package estimate

import (
	"math"

	"github.com/zen-systems/localgate/pkg/metrics"
)

// Estimate sizes the local generation budget for a task.
type Estimate struct {
	Tokens     int     `json:"tokens"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"` // "historical" or "heuristic"
	SampleSize int     `json:"sample_size,omitempty"`
}

// buffer is the safety margin applied over both historical means and static
// baselines: too small risks a length failure, too large wastes local compute.
const buffer = 1.25

// minHistoricalSamples is how many matching records it takes before history
// outweighs the static baseline table.
const minHistoricalSamples = 3

// baselines maps tool -> per-level (1..6) expected output tokens.
var baselines = map[string][6]int{
	"generate_code": {300, 600, 1000, 1500, 2100, 2800},
	"edit_file":     {150, 300, 500, 800, 1200, 1700},
	"write_tests":   {400, 700, 1100, 1600, 2200, 2900},
	"explain":       {200, 350, 550, 800, 1100, 1500},
	"summarize":     {120, 200, 320, 480, 680, 920},
	"review":        {250, 450, 700, 1000, 1400, 1900},
}

var defaultBaseline = [6]int{200, 400, 700, 1100, 1600, 2200}

// OutputTokens estimates the output token budget for a tool at a complexity
// level. With at least three matching historical entries the estimate comes
// from the observed mean; otherwise from the static baseline table. Level is
// clamped to [1, 6]; an unknown tool falls back to the default table.
func OutputTokens(tool string, level int, history []metrics.DelegationRecord) Estimate {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}

	var samples []int
	for _, rec := range history {
		if rec.Tool != tool {
			continue
		}
		// Prefer the explicit output-token count when recorded.
		if rec.OutputTokens > 0 {
			samples = append(samples, rec.OutputTokens)
		} else if rec.TokensUsed > 0 {
			samples = append(samples, rec.TokensUsed)
		}
	}

	if n := len(samples); n >= minHistoricalSamples {
		sum := 0
		for _, v := range samples {
			sum += v
		}
		mean := float64(sum) / float64(n)
		return Estimate{
			Tokens:     int(math.Ceil(mean * buffer)),
			Confidence: math.Min(0.9, 0.5+0.05*float64(n)),
			Source:     "historical",
			SampleSize: n,
		}
	}

	table, ok := baselines[tool]
	if !ok {
		table = defaultBaseline
	}
	return Estimate{
		Tokens:     int(math.Ceil(float64(table[level-1]) * buffer)),
		Confidence: 0.4,
		Source:     "heuristic",
		SampleSize: len(samples),
	}
}
