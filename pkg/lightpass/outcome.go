package lightpass

import (
	"fmt"
	"strings"

	"github.com/zen-systems/localgate/pkg/contextpack"
	"github.com/zen-systems/localgate/pkg/gate"
)

// OutcomeKind tags the terminal state of a light pass.
type OutcomeKind string

const (
	OutcomeSuccess    OutcomeKind = "success"
	OutcomeEscalation OutcomeKind = "escalation"
)

// Quality statuses recorded on successful outcomes.
const (
	StatusAccepted        = "accepted"
	StatusRetriedAccepted = "retried_accepted"
	StatusEscalated       = "escalated"
)

// Outcome is the tagged terminal result of a light pass: exactly one of
// Success or Escalation is set, per Kind.
type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	Success    *Success    `json:"success,omitempty"`
	Escalation *Escalation `json:"escalation,omitempty"`
}

// Success carries an accepted local answer.
type Success struct {
	Response      string       `json:"response"`
	Model         string       `json:"model"`
	TokensUsed    int          `json:"tokens_used"`
	DurationMs    int64        `json:"duration_ms"`
	AttemptCount  int          `json:"attempt_count"`
	QualityStatus string       `json:"quality_status"`
	Quality       *gate.Result `json:"quality,omitempty"`
}

// FileDigest is the compact per-file summary shipped with an escalation,
// cheaper to transmit than the rejected response.
type FileDigest struct {
	Path       string   `json:"path"`
	Language   string   `json:"language"`
	TotalLines int      `json:"total_lines"`
	Classes    []string `json:"classes,omitempty"`
	Functions  []string `json:"functions,omitempty"`
}

// Escalation is the compact handoff payload when local execution was
// refused, failed, or untrustworthy.
type Escalation struct {
	Task           string       `json:"task_intent"`
	Files          []FileDigest `json:"files,omitempty"`
	Reasons        []string     `json:"failure_reasons"`
	AttemptCount   int          `json:"attempt_count"`
	Message        string       `json:"message"`
	SuggestedModel string       `json:"suggested_model,omitempty"`
	CloudResponse  string       `json:"cloud_response,omitempty"`
}

func successOutcome(s *Success) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Success: s}
}

func escalationOutcome(e *Escalation) *Outcome {
	return &Outcome{Kind: OutcomeEscalation, Escalation: e}
}

// digestFiles summarizes packed outlines for the escalation payload.
func digestFiles(packed *contextpack.PackedContext) []FileDigest {
	if packed == nil {
		return nil
	}
	var files []FileDigest
	for _, o := range packed.Outlines {
		files = append(files, FileDigest{
			Path:       o.Path,
			Language:   o.Language,
			TotalLines: o.TotalLines,
			Classes:    o.Classes,
			Functions:  o.Functions,
		})
	}
	return files
}

// RenderDigest formats the file digests for a handoff prompt.
func RenderDigest(files []FileDigest) string {
	var sb strings.Builder
	for _, f := range files {
		fmt.Fprintf(&sb, "%s (%s, %d lines)", f.Path, f.Language, f.TotalLines)
		if len(f.Classes) > 0 {
			fmt.Fprintf(&sb, " types: %s", strings.Join(f.Classes, ", "))
		}
		if len(f.Functions) > 0 {
			fmt.Fprintf(&sb, " functions: %s", strings.Join(f.Functions, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// dedupeReasons merges failure reasons across gates, preserving first
// appearance order.
func dedupeReasons(groups ...[]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, r := range group {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
