package route

import (
	"strings"

	"github.com/zen-systems/localgate/pkg/config"
)

// RuleSet holds the compiled layer-1 pattern table. Rules keep their input
// order; the first case-insensitive substring match wins.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	pattern     string
	route       string
	complexity  int
	confidence  float64
	costOfWrong string
	category    string
}

// NewRuleSet compiles a rule set from configuration.
func NewRuleSet(rules []config.PatternRule) *RuleSet {
	rs := &RuleSet{}
	for _, r := range rules {
		pattern := strings.ToLower(strings.TrimSpace(r.Pattern))
		if pattern == "" {
			continue
		}
		cost := r.CostOfWrong
		if cost == "" {
			cost = CostMedium
		}
		rs.rules = append(rs.rules, compiledRule{
			pattern:     pattern,
			route:       r.Route,
			complexity:  clampComplexity(r.Complexity),
			confidence:  clampConfidence(r.Confidence),
			costOfWrong: cost,
			category:    r.Category,
		})
	}
	return rs
}

// Match returns the first matching rule for the task, or nil.
func (rs *RuleSet) Match(task string) *compiledRule {
	taskLower := strings.ToLower(task)
	for i := range rs.rules {
		if strings.Contains(taskLower, rs.rules[i].pattern) {
			return &rs.rules[i]
		}
	}
	return nil
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Rules returns a snapshot of the compiled table for display.
func (rs *RuleSet) Rules() []config.PatternRule {
	out := make([]config.PatternRule, 0, len(rs.rules))
	for _, r := range rs.rules {
		out = append(out, config.PatternRule{
			Pattern:     r.pattern,
			Route:       r.route,
			Complexity:  r.complexity,
			Confidence:  r.confidence,
			CostOfWrong: r.costOfWrong,
			Category:    r.category,
		})
	}
	return out
}
