package route

import (
	"context"
	"fmt"
	"log"

	"github.com/zen-systems/localgate/pkg/config"
	"github.com/zen-systems/localgate/pkg/learn"
	"github.com/zen-systems/localgate/pkg/localmodel"
	"github.com/zen-systems/localgate/pkg/metrics"
)

// Classifier turns task text and a delegation level into a routing decision.
// It is layered: an absolute level gate, the pattern table, heuristic signal
// scoring, optional local-model triage, and an advisory historical nudge.
// Classification is total: no input produces an error.
type Classifier struct {
	cfg    *config.DelegationConfig
	rules  *RuleSet
	triage localmodel.Chatter
	store  *metrics.Store
	debug  bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTriage enables the layer-3 local-model triage call.
func WithTriage(chatter localmodel.Chatter) Option {
	return func(c *Classifier) { c.triage = chatter }
}

// WithHistory enables the learner adjustment from stored history.
func WithHistory(store *metrics.Store) Option {
	return func(c *Classifier) { c.store = store }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(c *Classifier) { c.debug = debug }
}

// NewClassifier creates a classifier over the delegation configuration.
func NewClassifier(cfg *config.DelegationConfig, opts ...Option) *Classifier {
	if cfg == nil {
		cfg = config.DefaultDelegationConfig()
	}
	c := &Classifier{cfg: cfg, rules: NewRuleSet(cfg.Rules)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify routes a task at the configured delegation level.
func (c *Classifier) Classify(ctx context.Context, task string) *Decision {
	return c.ClassifyAt(ctx, task, c.cfg.Level)
}

// ClassifyAt routes a task at an explicit delegation level.
func (c *Classifier) ClassifyAt(ctx context.Context, task string, level int) *Decision {
	if level < 0 {
		level = 0
	}
	if level > 5 {
		level = 5
	}

	rule := c.rules.Match(task)
	scored := scoreSignals(task)
	specialist := scored.category
	if rule != nil && rule.category != "" {
		specialist = rule.category
	}

	// Level gate: absolute, overrides every other layer.
	if level == 0 {
		return &Decision{
			Route:            RouteCloud,
			TaskComplexity:   scored.complexity,
			Confidence:       1.0,
			Reason:           "delegation level 0 sends every task to the cloud",
			Layer:            LayerLevelGate,
			EscalationPolicy: PolicyNone,
			SpecialistKey:    specialist,
			SuggestedModel:   suggestedCloudModel(scored.complexity, scored.costOfWrong),
			CostOfWrong:      scored.costOfWrong,
		}
	}
	if level == 5 {
		return &Decision{
			Route:            RouteLocal,
			TaskComplexity:   scored.complexity,
			Confidence:       1.0,
			Reason:           "delegation level 5 keeps every task local",
			Layer:            LayerLevelGate,
			EscalationPolicy: PolicyNever,
			SpecialistKey:    specialist,
			CostOfWrong:      scored.costOfWrong,
		}
	}

	var decision *Decision
	if rule != nil {
		decision = c.decideFromRule(rule, level)
	} else {
		decision = c.decideFromSignals(ctx, task, scored, level)
	}

	c.applyLearner(decision, level)
	if c.debug {
		log.Printf("[route] level=%d route=%s layer=%s complexity=%d confidence=%.2f reason=%s",
			level, decision.Route, decision.Layer, decision.TaskComplexity, decision.Confidence, decision.Reason)
	}
	return decision
}

func (c *Classifier) decideFromRule(rule *compiledRule, level int) *Decision {
	d := &Decision{
		TaskComplexity:   rule.complexity,
		Confidence:       rule.confidence,
		Layer:            LayerPattern,
		SpecialistKey:    rule.category,
		CostOfWrong:      rule.costOfWrong,
		EscalationPolicy: policyForCost(rule.costOfWrong),
	}

	switch rule.route {
	case "no_llm":
		d.Route = RouteNoLLM
		d.EscalationPolicy = PolicyNone
		d.Reason = fmt.Sprintf("pattern %q resolves deterministically without a model", rule.pattern)
	case "cloud_recommended":
		d.Route = RouteCloud
		d.Reason = fmt.Sprintf("pattern %q is cloud-recommended", rule.pattern)
		d.SuggestedModel = suggestedCloudModel(rule.complexity, rule.costOfWrong)
	default: // local
		if ceiling := levelCeiling(level); rule.complexity > ceiling {
			d.Route = RouteCloud
			d.Reason = fmt.Sprintf("pattern %q complexity %d exceeds ceiling %d at level %d",
				rule.pattern, rule.complexity, ceiling, level)
			d.SuggestedModel = suggestedCloudModel(rule.complexity, rule.costOfWrong)
		} else {
			d.Route = RouteLocal
			d.Reason = fmt.Sprintf("pattern %q fits locally at complexity %d", rule.pattern, rule.complexity)
		}
	}
	return d
}

func (c *Classifier) decideFromSignals(ctx context.Context, task string, scored signalScore, level int) *Decision {
	complexity := scored.complexity
	confidence := scored.confidence
	layer := LayerHeuristic
	reason := scored.reason
	costOfWrong := scored.costOfWrong

	// Heuristics that barely fired are not worth trusting; ask the local
	// model to triage when that option exists.
	inconclusive := scored.matched == 0 || scored.confidence < 0.5
	if inconclusive && c.triage != nil && c.cfg.EnableTriage != nil && *c.cfg.EnableTriage {
		t := runTriage(ctx, c.triage, task, c.cfg.Ollama.TriageModel, c.cfg.Ollama.TriageTimeoutMs)
		complexity = t.complexity
		confidence = t.confidence
		layer = LayerTriage
		reason = t.reason
	}

	d := &Decision{
		TaskComplexity:   complexity,
		Confidence:       clampConfidence(confidence),
		Layer:            layer,
		Reason:           reason,
		SpecialistKey:    scored.category,
		CostOfWrong:      costOfWrong,
		EscalationPolicy: policyForCost(costOfWrong),
	}

	if ceiling := levelCeiling(level); complexity > ceiling {
		d.Route = RouteCloud
		d.Reason = fmt.Sprintf("%s; complexity %d exceeds ceiling %d at level %d", reason, complexity, ceiling, level)
		d.SuggestedModel = suggestedCloudModel(complexity, costOfWrong)
	} else {
		d.Route = RouteLocal
	}
	return d
}

// applyLearner nudges local decisions one level easier when history strongly
// supports it. Advisory only, never a hard override.
func (c *Classifier) applyLearner(d *Decision, level int) {
	if d.Route != RouteLocal || c.store == nil {
		return
	}
	if c.cfg.EnableLearning == nil || !*c.cfg.EnableLearning {
		return
	}

	history := c.store.LoadHistory(func(h metrics.HistoryRecord) bool {
		return h.TaskType == d.SpecialistKey && h.LevelUsed == level
	})
	rec := learn.Recommend(d.SpecialistKey, level, history, true, c.cfg.MinLearnSamples)
	if rec.ConfidenceAdjustment <= 0 || d.TaskComplexity <= 0 {
		return
	}

	d.TaskComplexity--
	d.Confidence = clampConfidence(d.Confidence + rec.ConfidenceAdjustment)
	d.Reason = fmt.Sprintf("%s; advisory: %s", d.Reason, rec.Reason)
	d.Layer = LayerLearner
}
