package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DelegationConfig holds the local-delegation configuration: how aggressively
// tasks route to the local model, and the knobs for packing, gating, and the
// local runtime.
type DelegationConfig struct {
	Level           int           `yaml:"level"`
	EnableTriage    *bool         `yaml:"enable_triage,omitempty"`
	EnableLearning  *bool         `yaml:"enable_learning,omitempty"`
	MinLearnSamples int           `yaml:"min_learn_samples,omitempty"`
	Ollama          OllamaConfig  `yaml:"ollama,omitempty"`
	Packer          PackerConfig  `yaml:"packer,omitempty"`
	Gate            GateConfig    `yaml:"gate,omitempty"`
	Metrics         MetricsConfig `yaml:"metrics,omitempty"`
	Rules           []PatternRule `yaml:"rules,omitempty"`
}

// OllamaConfig points at the local model runtime.
type OllamaConfig struct {
	Endpoint        string `yaml:"endpoint,omitempty"`
	Model           string `yaml:"model,omitempty"`
	TriageModel     string `yaml:"triage_model,omitempty"`
	TimeoutMs       int    `yaml:"timeout_ms,omitempty"`
	TriageTimeoutMs int    `yaml:"triage_timeout_ms,omitempty"`
	HealthTimeoutMs int    `yaml:"health_timeout_ms,omitempty"`
}

// PackerConfig bounds context packing.
type PackerConfig struct {
	MaxFiles        int `yaml:"max_files,omitempty"`
	MaxLinesPerFile int `yaml:"max_lines_per_file,omitempty"`
}

// GateConfig toggles and bounds the quality gate checks.
type GateConfig struct {
	CheckCompleteness     *bool   `yaml:"check_completeness,omitempty"`
	CheckCodeParse        *bool   `yaml:"check_code_parse,omitempty"`
	CheckScopeCompliance  *bool   `yaml:"check_scope_compliance,omitempty"`
	CheckRequiredSections *bool   `yaml:"check_required_sections,omitempty"`
	CheckLength           *bool   `yaml:"check_length,omitempty"`
	CheckHedging          *bool   `yaml:"check_hedging,omitempty"`
	CheckProportionality  *bool   `yaml:"check_proportionality,omitempty"`
	MinLength             int     `yaml:"min_length,omitempty"`
	MaxLength             int     `yaml:"max_length,omitempty"`
	MaxHedging            int     `yaml:"max_hedging,omitempty"`
	MinOutputRatio        float64 `yaml:"min_output_ratio,omitempty"`
	MaxOutputRatio        float64 `yaml:"max_output_ratio,omitempty"`
}

// MetricsConfig controls the delegation metrics log.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// PatternRule is one entry of the ordered layer-1 classification table.
// The first rule whose pattern is a case-insensitive substring of the task wins.
type PatternRule struct {
	Pattern     string  `yaml:"pattern"`
	Route       string  `yaml:"route"` // no_llm, local, cloud_recommended
	Complexity  int     `yaml:"complexity"`
	Confidence  float64 `yaml:"confidence"`
	CostOfWrong string  `yaml:"cost_of_wrong,omitempty"`
	Category    string  `yaml:"category,omitempty"`
}

// LoadDelegationConfig reads delegation configuration from a YAML file.
func LoadDelegationConfig(path string) (*DelegationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg DelegationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDelegationDefaults(&cfg)
	return &cfg, nil
}

// DefaultDelegationConfig returns the default delegation configuration.
func DefaultDelegationConfig() *DelegationConfig {
	cfg := &DelegationConfig{
		Level: 2,
		Rules: DefaultPatternRules(),
	}
	applyDelegationDefaults(cfg)
	return cfg
}

// DefaultPatternRules returns the built-in layer-1 rule table, in match order.
// More specific patterns come first; the classifier stops at the first hit.
func DefaultPatternRules() []PatternRule {
	return []PatternRule{
		// Deterministic metadata answers, no model needed.
		{Pattern: "list files", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "filesystem"},
		{Pattern: "show file tree", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "filesystem"},
		{Pattern: "count lines", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "filesystem"},
		{Pattern: "git status", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "vcs"},
		{Pattern: "git log", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "vcs"},
		{Pattern: "current branch", Route: "no_llm", Complexity: 0, Confidence: 0.95, CostOfWrong: "trivial", Category: "vcs"},

		// Cloud-recommended: high blast radius regardless of apparent size.
		{Pattern: "security", Route: "cloud_recommended", Complexity: 5, Confidence: 0.9, CostOfWrong: "critical", Category: "security"},
		{Pattern: "vulnerability", Route: "cloud_recommended", Complexity: 5, Confidence: 0.9, CostOfWrong: "critical", Category: "security"},
		{Pattern: "authentication", Route: "cloud_recommended", Complexity: 5, Confidence: 0.85, CostOfWrong: "critical", Category: "security"},
		{Pattern: "payment", Route: "cloud_recommended", Complexity: 5, Confidence: 0.9, CostOfWrong: "critical", Category: "payments"},
		{Pattern: "production incident", Route: "cloud_recommended", Complexity: 6, Confidence: 0.9, CostOfWrong: "critical", Category: "incident"},
		{Pattern: "database migration", Route: "cloud_recommended", Complexity: 5, Confidence: 0.85, CostOfWrong: "high", Category: "migration"},
		{Pattern: "migrate database", Route: "cloud_recommended", Complexity: 5, Confidence: 0.85, CostOfWrong: "high", Category: "migration"},
		{Pattern: "race condition", Route: "cloud_recommended", Complexity: 6, Confidence: 0.85, CostOfWrong: "high", Category: "concurrency"},
		{Pattern: "memory leak", Route: "cloud_recommended", Complexity: 5, Confidence: 0.8, CostOfWrong: "high", Category: "debug"},
		{Pattern: "deadlock", Route: "cloud_recommended", Complexity: 6, Confidence: 0.85, CostOfWrong: "high", Category: "concurrency"},
		{Pattern: "system design", Route: "cloud_recommended", Complexity: 6, Confidence: 0.85, CostOfWrong: "high", Category: "architecture"},
		{Pattern: "architecture", Route: "cloud_recommended", Complexity: 5, Confidence: 0.8, CostOfWrong: "high", Category: "architecture"},
		{Pattern: "cryptograph", Route: "cloud_recommended", Complexity: 6, Confidence: 0.9, CostOfWrong: "critical", Category: "security"},

		// Local-friendly small edits.
		{Pattern: "fix typo", Route: "local", Complexity: 1, Confidence: 0.9, CostOfWrong: "trivial", Category: "edit"},
		{Pattern: "fix a typo", Route: "local", Complexity: 1, Confidence: 0.9, CostOfWrong: "trivial", Category: "edit"},
		{Pattern: "rename variable", Route: "local", Complexity: 1, Confidence: 0.85, CostOfWrong: "low", Category: "edit"},
		{Pattern: "add a comment", Route: "local", Complexity: 1, Confidence: 0.9, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "write a docstring", Route: "local", Complexity: 1, Confidence: 0.9, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "add docstrings", Route: "local", Complexity: 1, Confidence: 0.9, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "fix lint", Route: "local", Complexity: 1, Confidence: 0.85, CostOfWrong: "low", Category: "edit"},
		{Pattern: "format this", Route: "local", Complexity: 1, Confidence: 0.85, CostOfWrong: "trivial", Category: "edit"},
		{Pattern: "add logging", Route: "local", Complexity: 2, Confidence: 0.8, CostOfWrong: "low", Category: "edit"},
		{Pattern: "write a unit test", Route: "local", Complexity: 2, Confidence: 0.8, CostOfWrong: "low", Category: "tests"},
		{Pattern: "write unit tests", Route: "local", Complexity: 2, Confidence: 0.8, CostOfWrong: "low", Category: "tests"},
		{Pattern: "explain this function", Route: "local", Complexity: 2, Confidence: 0.85, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "explain this code", Route: "local", Complexity: 2, Confidence: 0.85, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "summarize this file", Route: "local", Complexity: 2, Confidence: 0.85, CostOfWrong: "trivial", Category: "docs"},
		{Pattern: "write a regex", Route: "local", Complexity: 2, Confidence: 0.8, CostOfWrong: "low", Category: "edit"},
		{Pattern: "implement a function", Route: "local", Complexity: 2, Confidence: 0.75, CostOfWrong: "medium", Category: "implement"},
		{Pattern: "write a function", Route: "local", Complexity: 2, Confidence: 0.75, CostOfWrong: "medium", Category: "implement"},
		{Pattern: "refactor", Route: "local", Complexity: 3, Confidence: 0.7, CostOfWrong: "medium", Category: "refactor"},
		{Pattern: "debug", Route: "local", Complexity: 3, Confidence: 0.7, CostOfWrong: "medium", Category: "debug"},
		{Pattern: "optimize", Route: "local", Complexity: 4, Confidence: 0.65, CostOfWrong: "medium", Category: "refactor"},
	}
}

func applyDelegationDefaults(cfg *DelegationConfig) {
	if cfg == nil {
		return
	}
	if cfg.Level < 0 {
		cfg.Level = 0
	}
	if cfg.Level > 5 {
		cfg.Level = 5
	}
	if cfg.EnableTriage == nil {
		enabled := true
		cfg.EnableTriage = &enabled
	}
	if cfg.EnableLearning == nil {
		enabled := true
		cfg.EnableLearning = &enabled
	}
	if cfg.MinLearnSamples <= 0 {
		cfg.MinLearnSamples = 50
	}
	if cfg.Ollama.Endpoint == "" {
		cfg.Ollama.Endpoint = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "qwen2.5-coder:7b"
	}
	if cfg.Ollama.TriageModel == "" {
		cfg.Ollama.TriageModel = cfg.Ollama.Model
	}
	if cfg.Ollama.TimeoutMs <= 0 {
		cfg.Ollama.TimeoutMs = 120000
	}
	if cfg.Ollama.TriageTimeoutMs <= 0 {
		cfg.Ollama.TriageTimeoutMs = 10000
	}
	if cfg.Ollama.HealthTimeoutMs <= 0 {
		cfg.Ollama.HealthTimeoutMs = 2000
	}
	if cfg.Packer.MaxFiles <= 0 {
		cfg.Packer.MaxFiles = 5
	}
	if cfg.Packer.MaxLinesPerFile <= 0 {
		cfg.Packer.MaxLinesPerFile = 80
	}
	applyGateDefaults(&cfg.Gate)
	if cfg.Metrics.Enabled == nil {
		enabled := true
		cfg.Metrics.Enabled = &enabled
	}
	if len(cfg.Rules) == 0 {
		cfg.Rules = DefaultPatternRules()
	}
}

func applyGateDefaults(g *GateConfig) {
	boolDefault := func(p **bool) {
		if *p == nil {
			enabled := true
			*p = &enabled
		}
	}
	boolDefault(&g.CheckCompleteness)
	boolDefault(&g.CheckCodeParse)
	boolDefault(&g.CheckScopeCompliance)
	boolDefault(&g.CheckRequiredSections)
	boolDefault(&g.CheckLength)
	boolDefault(&g.CheckHedging)
	boolDefault(&g.CheckProportionality)
	if g.MinLength <= 0 {
		g.MinLength = 1
	}
	if g.MaxLength <= 0 {
		g.MaxLength = 32000
	}
	if g.MaxHedging <= 0 {
		g.MaxHedging = 3
	}
	if g.MinOutputRatio <= 0 {
		g.MinOutputRatio = 0.2
	}
	if g.MaxOutputRatio <= 0 {
		g.MaxOutputRatio = 5.0
	}
}
