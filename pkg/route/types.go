package route

// Route is the destination a task is sent to.
type Route string

const (
	RouteNoLLM Route = "no_llm"
	RouteLocal Route = "local"
	RouteCloud Route = "cloud"
)

// EscalationPolicy controls how readily the executor abandons a local attempt.
type EscalationPolicy string

const (
	PolicyNone      EscalationPolicy = "none"      // nothing to escalate: the task never ran locally
	PolicyImmediate EscalationPolicy = "immediate" // any failure escalates, no retry
	PolicyStandard  EscalationPolicy = "standard"  // soft failures earn one retry
	PolicyTolerant  EscalationPolicy = "tolerant"  // soft failures earn one retry, generous budgets
	PolicyMinimal   EscalationPolicy = "minimal"   // escalate on soft failure, keep budgets tight
	PolicyNever     EscalationPolicy = "never"     // level 5: local output is final wherever possible
)

// Cost-of-wrong severities.
const (
	CostTrivial  = "trivial"
	CostLow      = "low"
	CostMedium   = "medium"
	CostHigh     = "high"
	CostCritical = "critical"
)

// Classification layers, recorded on every decision.
const (
	LayerLevelGate = "level_gate"
	LayerPattern   = "1"
	LayerHeuristic = "2"
	LayerTriage    = "3"
	LayerLearner   = "learner-adjusted"
)

// Decision is the routing outcome for one task.
type Decision struct {
	Route            Route            `json:"route"`
	TaskComplexity   int              `json:"task_complexity"` // 0..6
	Confidence       float64          `json:"confidence"`      // (0, 1]
	Reason           string           `json:"reason"`
	Layer            string           `json:"classification_layer"`
	EscalationPolicy EscalationPolicy `json:"escalation_policy"`
	SpecialistKey    string           `json:"specialist_key,omitempty"`
	SuggestedModel   string           `json:"suggested_model,omitempty"`
	CostOfWrong      string           `json:"cost_of_wrong"`
}

// AllowsRetry reports whether the policy permits a second local attempt
// after a soft-only gate failure.
func (p EscalationPolicy) AllowsRetry() bool {
	switch p {
	case PolicyStandard, PolicyTolerant, PolicyNever:
		return true
	default:
		return false
	}
}

// levelCeiling maps delegation levels 1-4 to the maximum task complexity
// executed locally. Levels 0 and 5 are handled by the level gate and never
// reach a ceiling test.
func levelCeiling(level int) int {
	switch level {
	case 1:
		return 2
	case 2:
		return 3
	case 3:
		return 4
	case 4:
		return 6
	default:
		return 6
	}
}

// policyForCost derives the escalation policy from the cost of being wrong.
func policyForCost(costOfWrong string) EscalationPolicy {
	switch costOfWrong {
	case CostCritical:
		return PolicyImmediate
	case CostHigh:
		return PolicyMinimal
	case CostTrivial:
		return PolicyTolerant
	default:
		return PolicyStandard
	}
}

// suggestedCloudModel picks the cloud model for an escalated or
// cloud-routed task.
func suggestedCloudModel(complexity int, costOfWrong string) string {
	if complexity >= 5 || costOfWrong == CostCritical {
		return "claude-opus-4-20250514"
	}
	return "claude-sonnet-4-20250514"
}

func clampComplexity(c int) int {
	if c < 0 {
		return 0
	}
	if c > 6 {
		return 6
	}
	return c
}

func clampConfidence(c float64) float64 {
	if c <= 0 {
		return 0.05
	}
	if c > 1 {
		return 1
	}
	return c
}
