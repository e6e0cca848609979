package learn

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/zen-systems/localgate/pkg/metrics"
)

// Recommendation is the learner's advisory output for a (task_type, level)
// pair. ConfidenceAdjustment is zero unless enough history supports a nudge;
// it never hard-overrides a classification.
type Recommendation struct {
	TaskType             string  `json:"task_type"`
	Level                int     `json:"level"`
	RecommendedLevel     int     `json:"recommended_level"`
	ConfidenceAdjustment float64 `json:"confidence_adjustment"`
	SampleSize           int     `json:"sample_size"`
	SuccessRate          float64 `json:"success_rate,omitempty"`
	Reason               string  `json:"reason"`
}

// successRateThreshold is the observed local success rate above which the
// learner recommends running a level lower.
const successRateThreshold = 0.85

// adjustment is the confidence boost attached to a supported recommendation.
const adjustment = 0.05

// Fingerprint derives an order- and case-insensitive identity for task text:
// case-fold, tokenize, sort the tokens, and rejoin.
func Fingerprint(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Recommend evaluates history for a (task_type, level) pair. Below minSamples
// matching records, or with learning disabled, the result is neutral with an
// explanatory reason.
func Recommend(taskType string, level int, history []metrics.HistoryRecord, enabled bool, minSamples int) Recommendation {
	rec := Recommendation{
		TaskType:         taskType,
		Level:            level,
		RecommendedLevel: level,
	}

	if !enabled {
		rec.Reason = "learning is disabled"
		return rec
	}
	if minSamples <= 0 {
		minSamples = 50
	}

	successes := 0
	for _, h := range history {
		if h.TaskType != taskType || h.LevelUsed != level {
			continue
		}
		rec.SampleSize++
		if h.Outcome == "success" {
			successes++
		}
	}

	if rec.SampleSize < minSamples {
		rec.Reason = fmt.Sprintf("insufficient history: %d of %d required samples", rec.SampleSize, minSamples)
		return rec
	}

	rec.SuccessRate = float64(successes) / float64(rec.SampleSize)
	if rec.SuccessRate >= successRateThreshold && level > 1 {
		rec.RecommendedLevel = level - 1
		rec.ConfidenceAdjustment = adjustment
		rec.Reason = fmt.Sprintf("local success rate %.0f%% over %d samples supports one level lower",
			rec.SuccessRate*100, rec.SampleSize)
		return rec
	}

	rec.Reason = fmt.Sprintf("local success rate %.0f%% over %d samples does not support adjustment",
		rec.SuccessRate*100, rec.SampleSize)
	return rec
}
