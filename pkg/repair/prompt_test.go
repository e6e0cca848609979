package repair

import (
	"strings"
	"testing"

	"github.com/zen-systems/localgate/pkg/gate"
)

func TestRetryPromptCarriesFailures(t *testing.T) {
	first := &gate.Result{
		SoftFailures: []gate.Check{{Name: "no_hedging", Reason: "3 hedging phrases found (limit 3)"}},
	}

	prompt := RetryPrompt("task with context", first)
	if !strings.HasPrefix(prompt, "task with context") {
		t.Fatal("retry prompt does not start with the packed prompt")
	}
	if !strings.Contains(prompt, "no_hedging: 3 hedging phrases found") {
		t.Fatalf("retry prompt missing the failure: %q", prompt)
	}
	if !strings.Contains(prompt, "do not hedge") {
		t.Fatal("retry prompt missing the correction instruction")
	}
}

func TestHandoffPrompt(t *testing.T) {
	prompt := HandoffPrompt(
		"refactor the retry loop",
		"worker.go (go, 120 lines) functions: Run",
		[]string{"length: output length 3 below minimum 20"},
	)

	if !strings.HasPrefix(prompt, "refactor the retry loop") {
		t.Fatal("handoff prompt does not start with the task")
	}
	if !strings.Contains(prompt, "worker.go (go, 120 lines)") {
		t.Fatal("handoff prompt missing the file digest")
	}
	if !strings.Contains(prompt, "- length: output length 3 below minimum 20") {
		t.Fatal("handoff prompt missing the failure reasons")
	}
}

func TestHandoffPromptOmitsEmptySections(t *testing.T) {
	prompt := HandoffPrompt("just the task", "", nil)
	if strings.Contains(prompt, "Relevant files") {
		t.Fatal("empty digest still rendered a files section")
	}
	if strings.Contains(prompt, "local model attempted") {
		t.Fatal("empty reasons still rendered a failure section")
	}
}
