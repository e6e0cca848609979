package gate

import "github.com/zen-systems/localgate/pkg/config"

// Check records one quality check evaluation.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Hard   bool   `json:"hard"`
	Reason string `json:"reason,omitempty"`
}

// Result contains the outcome of a quality gate run.
// Accepted holds exactly when there are no hard and no soft failures;
// ShouldEscalate and Accepted are mutually exclusive.
type Result struct {
	Accepted       bool     `json:"accepted"`
	Checks         []Check  `json:"checks"`
	HardFailures   []Check  `json:"hard_failures,omitempty"`
	SoftFailures   []Check  `json:"soft_failures,omitempty"`
	TotalChecks    int      `json:"total_checks"`
	FailedChecks   int      `json:"failed_checks"`
	ShouldRetry    bool     `json:"should_retry"`
	ShouldEscalate bool     `json:"should_escalate"`
	Signals        []Signal `json:"signals,omitempty"`
}

// FailureReasons returns one human-readable reason per failed check,
// hard failures first.
func (r *Result) FailureReasons() []string {
	var reasons []string
	for _, c := range r.HardFailures {
		reasons = append(reasons, c.Name+": "+c.Reason)
	}
	for _, c := range r.SoftFailures {
		reasons = append(reasons, c.Name+": "+c.Reason)
	}
	return reasons
}

// Options configures a quality gate run. A disabled check is removed
// entirely: it is never recorded and cannot fail.
type Options struct {
	CheckCompleteness     bool
	CheckCodeParse        bool
	CheckScopeCompliance  bool
	CheckRequiredSections bool
	CheckLength           bool
	CheckHedging          bool
	CheckProportionality  bool

	MinLength      int
	MaxLength      int
	MaxHedging     int
	MinOutputRatio float64
	MaxOutputRatio float64

	// Per-task inputs.
	AllowedFiles         []string
	RequiredSections     []string
	ExpectedOutputTokens int
}

// DefaultOptions returns options with every check enabled at default bounds.
func DefaultOptions() Options {
	return OptionsFromConfig(config.GateConfig{})
}

// OptionsFromConfig maps gate configuration onto run options.
func OptionsFromConfig(g config.GateConfig) Options {
	enabled := func(p *bool) bool { return p == nil || *p }
	opts := Options{
		CheckCompleteness:     enabled(g.CheckCompleteness),
		CheckCodeParse:        enabled(g.CheckCodeParse),
		CheckScopeCompliance:  enabled(g.CheckScopeCompliance),
		CheckRequiredSections: enabled(g.CheckRequiredSections),
		CheckLength:           enabled(g.CheckLength),
		CheckHedging:          enabled(g.CheckHedging),
		CheckProportionality:  enabled(g.CheckProportionality),
		MinLength:             g.MinLength,
		MaxLength:             g.MaxLength,
		MaxHedging:            g.MaxHedging,
		MinOutputRatio:        g.MinOutputRatio,
		MaxOutputRatio:        g.MaxOutputRatio,
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 1
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = 32000
	}
	if opts.MaxHedging <= 0 {
		opts.MaxHedging = 3
	}
	if opts.MinOutputRatio <= 0 {
		opts.MinOutputRatio = 0.2
	}
	if opts.MaxOutputRatio <= 0 {
		opts.MaxOutputRatio = 5.0
	}
	return opts
}

// Run validates local model output against the configured checks.
//
// An escalation-signal short circuit runs first: a major signal records
// exactly one synthetic check and skips everything else. Hard checks run
// next; any hard failure sets ShouldEscalate. Soft checks run last; soft
// failures without a hard failure set ShouldRetry.
func Run(output string, opts Options) *Result {
	result := &Result{}

	signals := DetectEscalationSignals(output)
	result.Signals = signals
	if sig := majorSignal(signals); sig != nil {
		check := Check{
			Name:   "escalation_signal",
			Passed: false,
			Hard:   true,
			Reason: sig.Detail,
		}
		result.Checks = []Check{check}
		result.HardFailures = []Check{check}
		result.TotalChecks = 1
		result.FailedChecks = 1
		result.ShouldEscalate = true
		return result
	}

	for _, check := range runHardChecks(output, opts) {
		result.record(check)
	}
	for _, check := range runSoftChecks(output, opts) {
		result.record(check)
	}

	result.Accepted = len(result.HardFailures) == 0 && len(result.SoftFailures) == 0
	result.ShouldEscalate = len(result.HardFailures) > 0
	result.ShouldRetry = !result.ShouldEscalate && len(result.SoftFailures) > 0
	return result
}

func (r *Result) record(c Check) {
	r.Checks = append(r.Checks, c)
	r.TotalChecks++
	if c.Passed {
		return
	}
	r.FailedChecks++
	if c.Hard {
		r.HardFailures = append(r.HardFailures, c)
	} else {
		r.SoftFailures = append(r.SoftFailures, c)
	}
}

func majorSignal(signals []Signal) *Signal {
	for i := range signals {
		if signals[i].Severity == SeverityMajor {
			return &signals[i]
		}
	}
	return nil
}
