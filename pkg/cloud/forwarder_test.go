package cloud

import (
	"context"
	"strings"
	"testing"

	"github.com/zen-systems/localgate/pkg/lightpass"
)

func TestForwardRendersHandoffPrompt(t *testing.T) {
	adapter := NewMockAdapter()
	fw := NewForwarder(adapter, "")

	esc := &lightpass.Escalation{
		Task: "refactor the retry loop",
		Files: []lightpass.FileDigest{
			{Path: "worker.go", Language: "go", TotalLines: 120, Functions: []string{"Run"}},
		},
		Reasons:        []string{"no_hedging: 4 hedging phrases found (limit 3)"},
		AttemptCount:   2,
		SuggestedModel: "claude-sonnet-4-20250514", // not served by the mock
	}

	response, err := fw.Forward(context.Background(), esc)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if adapter.Calls != 1 {
		t.Fatalf("adapter calls = %d, want 1", adapter.Calls)
	}
	// The mock echoes its prompt, so the handoff content is observable.
	if !strings.Contains(response, "refactor the retry loop") {
		t.Fatal("forwarded prompt missing the task")
	}
	if !strings.Contains(response, "worker.go (go, 120 lines)") {
		t.Fatal("forwarded prompt missing the file digest")
	}
	if !strings.Contains(response, "no_hedging") {
		t.Fatal("forwarded prompt missing the failure reasons")
	}
}

func TestForwardPrefersSupportedSuggestedModel(t *testing.T) {
	adapter := NewMockAdapter()
	fw := NewForwarder(adapter, "other-model")

	esc := &lightpass.Escalation{Task: "task", SuggestedModel: "mock-1"}
	if _, err := fw.Forward(context.Background(), esc); err != nil {
		t.Fatalf("forward: %v", err)
	}
}

// flakyAdapter fails its first n completions with a scripted error.
type flakyAdapter struct {
	calls    int
	failures int
	err      error
}

func (a *flakyAdapter) Name() string     { return "flaky" }
func (a *flakyAdapter) Models() []string { return []string{"mock-1"} }

func (a *flakyAdapter) Complete(_ context.Context, _ string, prompt string) (string, error) {
	a.calls++
	if a.calls <= a.failures {
		return "", a.err
	}
	return "cloud response:\n" + prompt, nil
}

func TestForwardRetriesOnceOnTransientError(t *testing.T) {
	adapter := &flakyAdapter{failures: 1, err: &AdapterError{Status: 429, Err: nil}}
	fw := NewForwarder(adapter, "")

	response, err := fw.Forward(context.Background(), &lightpass.Escalation{Task: "rate-limited task"})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if adapter.calls != 2 {
		t.Fatalf("adapter calls = %d, want a single retry after the 429", adapter.calls)
	}
	if !strings.Contains(response, "rate-limited task") {
		t.Fatal("retried completion lost the handoff prompt")
	}
}

func TestForwardDoesNotRetryPermanentErrors(t *testing.T) {
	adapter := &flakyAdapter{failures: 2, err: &AdapterError{Status: 400}}
	fw := NewForwarder(adapter, "")

	if _, err := fw.Forward(context.Background(), &lightpass.Escalation{Task: "bad request"}); err == nil {
		t.Fatal("forward succeeded despite a permanent adapter error")
	}
	if adapter.calls != 1 {
		t.Fatalf("adapter calls = %d, want no retry on status 400", adapter.calls)
	}
}

func TestForwardGivesUpAfterOneRetry(t *testing.T) {
	adapter := &flakyAdapter{failures: 5, err: &AdapterError{Status: 503}}
	fw := NewForwarder(adapter, "")

	if _, err := fw.Forward(context.Background(), &lightpass.Escalation{Task: "upstream down"}); err == nil {
		t.Fatal("forward succeeded while the adapter kept failing")
	}
	if adapter.calls != 2 {
		t.Fatalf("adapter calls = %d, want exactly one retry", adapter.calls)
	}
}

func TestForwardFailsWithoutAnyModel(t *testing.T) {
	fw := &Forwarder{adapter: NewMockAdapter(), defaultModel: ""}
	// Bypass NewForwarder so no default is picked and nothing is suggested.
	if _, err := fw.Forward(context.Background(), &lightpass.Escalation{Task: "task"}); err == nil {
		t.Fatal("forward succeeded with no model to target")
	}
}
