package route

import (
	"fmt"
	"math"
	"strings"
)

// Layer-2 heuristic signal scoring. Each category contributes a weighted
// score; the sum maps onto a complexity level and the category spread onto a
// confidence. The categories are the contract; the weights are calibration.

type signalCategory struct {
	name     string
	weight   float64
	keywords []string
}

var signalCategories = []signalCategory{
	{
		name:   "multi_file_scope",
		weight: 1.5,
		keywords: []string{
			"multiple files", "across files", "all files", "every file",
			"entire codebase", "whole codebase", "codebase", "project-wide",
			"module", "modules", "end to end", "end-to-end",
		},
	},
	{
		name:   "reasoning",
		weight: 1.0,
		keywords: []string{
			"why", "how should", "consider", "tradeoff", "trade-off",
			"approach", "decide", "investigate", "figure out", "root cause",
			"compare", "evaluate",
		},
	},
	{
		name:   "cost_of_wrong",
		weight: 2.0,
		keywords: []string{
			"security", "payment", "production", "infrastructure",
			"credentials", "secrets", "billing", "data loss",
		},
	},
	{
		name:   "novelty",
		weight: 1.0,
		keywords: []string{
			"custom", "from scratch", "novel", "greenfield", "new framework",
			"invent", "design a",
		},
	},
}

type signalScore struct {
	complexity  int
	confidence  float64
	costOfWrong string
	category    string
	reason      string
	matched     int // distinct categories that fired
}

// scoreSignals evaluates the layer-2 heuristic over task text. It is total:
// text with no signals yields the moderate-complexity default.
func scoreSignals(task string) signalScore {
	lower := strings.ToLower(task)

	total := 0.0
	costHits := 0
	var firing []string
	for _, cat := range signalCategories {
		hits := 0
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		if hits > 3 {
			hits = 3 // a category saturates; repeated mentions stop adding signal
		}
		total += cat.weight * float64(hits)
		firing = append(firing, cat.name)
		if cat.name == "cost_of_wrong" {
			costHits = hits
		}
	}

	if len(firing) == 0 {
		return signalScore{
			complexity:  3,
			confidence:  0.4,
			costOfWrong: CostLow,
			category:    "general",
			reason:      "no heuristic signals matched; defaulting to moderate complexity",
		}
	}

	complexity := clampComplexity(1 + int(math.Round(total)))
	confidence := 0.4 + 0.1*float64(len(firing))
	if confidence > 0.8 {
		confidence = 0.8
	}

	cost := CostLow
	switch {
	case costHits >= 2:
		cost = CostCritical
	case costHits == 1:
		cost = CostHigh
	case complexity >= 4:
		cost = CostMedium
	}

	return signalScore{
		complexity:  complexity,
		confidence:  confidence,
		costOfWrong: cost,
		category:    firing[0],
		reason:      fmt.Sprintf("heuristic signals %s scored %.1f", strings.Join(firing, "+"), total),
		matched:     len(firing),
	}
}
