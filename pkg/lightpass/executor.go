package lightpass

import (
	"context"
	"fmt"

	"github.com/zen-systems/localgate/pkg/config"
	"github.com/zen-systems/localgate/pkg/contextpack"
	"github.com/zen-systems/localgate/pkg/estimate"
	"github.com/zen-systems/localgate/pkg/gate"
	"github.com/zen-systems/localgate/pkg/learn"
	"github.com/zen-systems/localgate/pkg/localmodel"
	"github.com/zen-systems/localgate/pkg/metrics"
	"github.com/zen-systems/localgate/pkg/repair"
	"github.com/zen-systems/localgate/pkg/route"
)

// EscalationForwarder optionally hands an escalation payload to a cloud
// model. When absent the payload is returned to the caller unchanged.
type EscalationForwarder interface {
	Forward(ctx context.Context, esc *Escalation) (string, error)
}

// Executor runs the attempt -> gate -> retry -> escalate protocol. At most
// two local attempts ever run; every failure mode resolves to an Outcome,
// never an error.
type Executor struct {
	cfg        *config.DelegationConfig
	classifier *route.Classifier
	packer     *contextpack.Packer
	chatter    localmodel.Chatter
	store      *metrics.Store
	forwarder  EscalationForwarder
	logger     func(format string, args ...any)
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithForwarder wires an escalation forwarder.
func WithForwarder(f EscalationForwarder) ExecutorOption {
	return func(e *Executor) { e.forwarder = f }
}

// WithLogger sets a debug logger.
func WithLogger(logger func(format string, args ...any)) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor assembles the pipeline.
func NewExecutor(
	cfg *config.DelegationConfig,
	classifier *route.Classifier,
	packer *contextpack.Packer,
	chatter localmodel.Chatter,
	store *metrics.Store,
	opts ...ExecutorOption,
) *Executor {
	if cfg == nil {
		cfg = config.DefaultDelegationConfig()
	}
	e := &Executor{
		cfg:        cfg,
		classifier: classifier,
		packer:     packer,
		chatter:    chatter,
		store:      store,
		logger:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Options carries the per-task inputs of a light pass.
type Options struct {
	Tool             string
	DelegationLevel  *int // overrides the configured level when set
	FileRefs         []string
	AllowedFiles     []string
	RequiredSections []string
}

// Base context budget in tokens, scaled by escalation policy and doubled on
// retry.
const baseContextBudget = 2000

// Execute runs one task through the full protocol:
// Classifying -> Packing -> Attempt1 -> Gating1 -> {Accepted | Retrying |
// Escalating}; Retrying -> PackingExpanded -> Attempt2 -> Gating2 ->
// {RetriedAccepted | Escalating}.
func (e *Executor) Execute(ctx context.Context, task string, opts Options) *Outcome {
	level := e.cfg.Level
	if opts.DelegationLevel != nil {
		level = *opts.DelegationLevel
	}

	decision := e.classifier.ClassifyAt(ctx, task, level)
	e.logger("[lightpass] route=%s layer=%s complexity=%d", decision.Route, decision.Layer, decision.TaskComplexity)

	if decision.Route != route.RouteLocal {
		// Nothing to attempt locally; hand straight off with the decision
		// as the reason.
		esc := &Escalation{
			Task:           task,
			Reasons:        []string{decision.Reason},
			AttemptCount:   0,
			Message:        fmt.Sprintf("not executed locally: %s", decision.Reason),
			SuggestedModel: decision.SuggestedModel,
		}
		return e.finishEscalation(ctx, task, opts.Tool, decision, level, esc, 0, 0)
	}

	history := e.store.LoadDelegations(func(r metrics.DelegationRecord) bool {
		return r.Tool == opts.Tool
	})
	est := estimate.OutputTokens(opts.Tool, decision.TaskComplexity, history)

	refs := opts.FileRefs
	if len(refs) == 0 {
		refs = contextpack.ExtractFileRefs(task)
	}

	budget := contextBudget(decision.EscalationPolicy)
	packed := e.packer.Pack(task, refs, budget)

	gateOpts := gate.OptionsFromConfig(e.cfg.Gate)
	gateOpts.AllowedFiles = opts.AllowedFiles
	gateOpts.RequiredSections = opts.RequiredSections
	gateOpts.ExpectedOutputTokens = est.Tokens

	// Attempt 1. A request failure counts as an attempt; only a transport
	// failure under a retry-friendly policy earns the second attempt.
	var gate1 *gate.Result
	var firstReasons []string
	var tokens1 int
	var duration1 int64

	resp1, err := e.chatter.Chat(ctx, packed.RenderPrompt(), localmodel.ChatOptions{
		Model:     e.cfg.Ollama.Model,
		MaxTokens: est.Tokens,
		TimeoutMs: e.cfg.Ollama.TimeoutMs,
	})
	if err != nil {
		e.logger("[lightpass] attempt 1 request failure: %v", err)
		firstReasons = []string{"local-model request failed"}
		if !localmodel.IsTransport(err) || !decision.EscalationPolicy.AllowsRetry() {
			esc := e.buildEscalation(task, packed, decision, 1, firstReasons)
			return e.finishEscalation(ctx, task, opts.Tool, decision, level, esc, 0, 0)
		}
	} else {
		tokens1 = resp1.TokensUsed
		duration1 = resp1.DurationMs

		gate1 = gate.Run(resp1.Response, gateOpts)
		if gate1.Accepted {
			return e.finishSuccess(task, opts.Tool, decision, level, &Success{
				Response:      resp1.Response,
				Model:         resp1.Model,
				TokensUsed:    resp1.TokensUsed,
				DurationMs:    resp1.DurationMs,
				AttemptCount:  1,
				QualityStatus: StatusAccepted,
				Quality:       gate1,
			})
		}
		if gate1.ShouldEscalate || !decision.EscalationPolicy.AllowsRetry() {
			esc := e.buildEscalation(task, packed, decision, 1, gate1.FailureReasons())
			return e.finishEscalation(ctx, task, opts.Tool, decision, level, esc, tokens1, duration1)
		}
		firstReasons = gate1.FailureReasons()
	}

	// Retrying: both the context and the output budget expand.
	expanded := e.packer.Expand(packed, budget*2)
	retryPrompt := expanded.RenderPrompt()
	if gate1 != nil {
		retryPrompt = repair.RetryPrompt(retryPrompt, gate1)
	}
	retryBudget := est.Tokens + est.Tokens/2

	resp2, err := e.chatter.Chat(ctx, retryPrompt, localmodel.ChatOptions{
		Model:     e.cfg.Ollama.Model,
		MaxTokens: retryBudget,
		TimeoutMs: e.cfg.Ollama.TimeoutMs,
	})
	if err != nil {
		e.logger("[lightpass] attempt 2 transport failure: %v", err)
		esc := e.buildEscalation(task, expanded, decision, 2,
			dedupeReasons(firstReasons, []string{"retry local-model request failed"}))
		return e.finishEscalation(ctx, task, opts.Tool, decision, level, esc, tokens1, duration1)
	}

	gateOpts.ExpectedOutputTokens = retryBudget
	gate2 := gate.Run(resp2.Response, gateOpts)
	if !gate2.ShouldEscalate && len(gate2.SoftFailures) == 0 {
		return e.finishSuccess(task, opts.Tool, decision, level, &Success{
			Response:      resp2.Response,
			Model:         resp2.Model,
			TokensUsed:    tokens1 + resp2.TokensUsed,
			DurationMs:    duration1 + resp2.DurationMs,
			AttemptCount:  2,
			QualityStatus: StatusRetriedAccepted,
			Quality:       gate2,
		})
	}

	esc := e.buildEscalation(task, expanded, decision, 2,
		dedupeReasons(firstReasons, gate2.FailureReasons()))
	return e.finishEscalation(ctx, task, opts.Tool, decision, level, esc,
		tokens1+resp2.TokensUsed, duration1+resp2.DurationMs)
}

func contextBudget(policy route.EscalationPolicy) int {
	switch policy {
	case route.PolicyTolerant, route.PolicyNever:
		return baseContextBudget + baseContextBudget/2
	case route.PolicyMinimal, route.PolicyImmediate:
		return baseContextBudget * 3 / 4
	default:
		return baseContextBudget
	}
}

func (e *Executor) buildEscalation(task string, packed *contextpack.PackedContext, decision *route.Decision, attempts int, reasons []string) *Escalation {
	reasons = dedupeReasons(reasons)
	suggested := decision.SuggestedModel
	if suggested == "" {
		suggested = "claude-sonnet-4-20250514"
	}
	return &Escalation{
		Task:           task,
		Files:          digestFiles(packed),
		Reasons:        reasons,
		AttemptCount:   attempts,
		Message:        fmt.Sprintf("local execution failed after %d attempt(s): %s", attempts, firstOr(reasons, "unspecified")),
		SuggestedModel: suggested,
	}
}

// finishSuccess records metrics and history exactly once and returns the
// terminal outcome.
func (e *Executor) finishSuccess(task, tool string, decision *route.Decision, level int, s *Success) *Outcome {
	e.record(task, tool, decision, level, metrics.DelegationRecord{
		QualityStatus:   s.QualityStatus,
		AttemptCount:    s.AttemptCount,
		TokensUsed:      s.TokensUsed,
		DurationMs:      s.DurationMs,
		Model:           s.Model,
		ResolvedLocally: true,
	}, "success")
	return successOutcome(s)
}

func (e *Executor) finishEscalation(ctx context.Context, task, tool string, decision *route.Decision, level int, esc *Escalation, tokens int, durationMs int64) *Outcome {
	if e.forwarder != nil {
		response, err := e.forwarder.Forward(ctx, esc)
		if err != nil {
			e.logger("[lightpass] escalation forward failed: %v", err)
		} else {
			esc.CloudResponse = response
		}
	}

	e.record(task, tool, decision, level, metrics.DelegationRecord{
		QualityStatus:   StatusEscalated,
		AttemptCount:    esc.AttemptCount,
		TokensUsed:      tokens,
		DurationMs:      durationMs,
		Model:           e.cfg.Ollama.Model,
		ResolvedLocally: false,
	}, "escalated")
	return escalationOutcome(esc)
}

func (e *Executor) record(task, tool string, decision *route.Decision, level int, rec metrics.DelegationRecord, outcome string) {
	rec.Tool = tool
	if err := e.store.AppendDelegation(rec); err != nil {
		e.logger("[lightpass] metrics append failed: %v", err)
	}
	// Local attempts feed the learner; pure routing decisions do not.
	if rec.AttemptCount > 0 {
		err := e.store.AppendHistory(metrics.HistoryRecord{
			Fingerprint: learn.Fingerprint(task),
			TaskType:    decision.SpecialistKey,
			LevelUsed:   level,
			Outcome:     outcome,
		})
		if err != nil {
			e.logger("[lightpass] history append failed: %v", err)
		}
	}
}

func firstOr(items []string, fallback string) string {
	if len(items) > 0 {
		return items[0]
	}
	return fallback
}
