package route

import (
	"context"
	"strings"
	"testing"

	"github.com/zen-systems/localgate/pkg/config"
	"github.com/zen-systems/localgate/pkg/localmodel"
	"github.com/zen-systems/localgate/pkg/metrics"
)

func boolPtr(b bool) *bool { return &b }

// testConfig returns a delegation config with triage and learning off so
// classifications are fully deterministic.
func testConfig() *config.DelegationConfig {
	cfg := config.DefaultDelegationConfig()
	cfg.EnableTriage = boolPtr(false)
	cfg.EnableLearning = boolPtr(false)
	return cfg
}

func TestLevelZeroGatesEverythingToCloud(t *testing.T) {
	c := NewClassifier(testConfig())

	for _, task := range []string{"fix typo in readme", "list files in the project", "design a payment system"} {
		d := c.ClassifyAt(context.Background(), task, 0)
		if d.Route != RouteCloud {
			t.Fatalf("level 0 task %q routed %s, want cloud", task, d.Route)
		}
		if d.Layer != LayerLevelGate {
			t.Fatalf("level 0 task %q decided at layer %s, want %s", task, d.Layer, LayerLevelGate)
		}
		if d.EscalationPolicy != PolicyNone {
			t.Fatalf("level 0 policy = %s, want none", d.EscalationPolicy)
		}
		if d.Confidence != 1.0 {
			t.Fatalf("level 0 confidence = %.2f, want 1.0", d.Confidence)
		}
	}
}

func TestLevelFiveKeepsEverythingLocal(t *testing.T) {
	c := NewClassifier(testConfig())

	d := c.ClassifyAt(context.Background(), "fix the security vulnerability in the payment flow", 5)
	if d.Route != RouteLocal {
		t.Fatalf("level 5 routed %s, want local", d.Route)
	}
	if d.Layer != LayerLevelGate {
		t.Fatalf("level 5 layer = %s, want %s", d.Layer, LayerLevelGate)
	}
	if d.EscalationPolicy != PolicyNever {
		t.Fatalf("level 5 policy = %s, want never", d.EscalationPolicy)
	}
}

func TestPatternNoLLM(t *testing.T) {
	c := NewClassifier(testConfig())

	d := c.ClassifyAt(context.Background(), "list files in the project", 2)
	if d.Route != RouteNoLLM {
		t.Fatalf("route = %s, want no_llm", d.Route)
	}
	if d.Layer != LayerPattern {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerPattern)
	}
	if d.TaskComplexity != 0 {
		t.Fatalf("complexity = %d, want 0", d.TaskComplexity)
	}
	if d.EscalationPolicy != PolicyNone {
		t.Fatalf("policy = %s, want none", d.EscalationPolicy)
	}
}

func TestPatternCloudRecommended(t *testing.T) {
	c := NewClassifier(testConfig())

	d := c.ClassifyAt(context.Background(), "integrate the new payment provider", 3)
	if d.Route != RouteCloud {
		t.Fatalf("route = %s, want cloud", d.Route)
	}
	if d.Layer != LayerPattern {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerPattern)
	}
	if d.SuggestedModel == "" {
		t.Fatal("cloud-recommended decision has no suggested model")
	}
	if d.EscalationPolicy != PolicyImmediate {
		t.Fatalf("critical-cost policy = %s, want immediate", d.EscalationPolicy)
	}
}

func TestPatternLocalRespectsLevelCeiling(t *testing.T) {
	c := NewClassifier(testConfig())
	task := "refactor the parser error handling"

	// Complexity 3 fits the level-2 ceiling (3) but not the level-1 ceiling (2).
	d := c.ClassifyAt(context.Background(), task, 2)
	if d.Route != RouteLocal {
		t.Fatalf("level 2 route = %s, want local", d.Route)
	}
	if d.TaskComplexity != 3 {
		t.Fatalf("level 2 complexity = %d, want 3", d.TaskComplexity)
	}

	d = c.ClassifyAt(context.Background(), task, 1)
	if d.Route != RouteCloud {
		t.Fatalf("level 1 route = %s, want cloud", d.Route)
	}
	if !strings.Contains(d.Reason, "exceeds ceiling") {
		t.Fatalf("level 1 reason = %q, want ceiling mention", d.Reason)
	}
	if d.SuggestedModel == "" {
		t.Fatal("ceiling escalation has no suggested model")
	}
}

func TestHeuristicSignalsEscalateHighComplexity(t *testing.T) {
	c := NewClassifier(testConfig())

	// No pattern matches; novelty and cost-of-wrong signals push the
	// heuristic score past the level-2 ceiling.
	d := c.ClassifyAt(context.Background(), "design a custom replication protocol for production infrastructure", 2)
	if d.Route != RouteCloud {
		t.Fatalf("route = %s, want cloud", d.Route)
	}
	if d.Layer != LayerHeuristic {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerHeuristic)
	}
	if d.CostOfWrong != CostCritical {
		t.Fatalf("cost_of_wrong = %s, want critical", d.CostOfWrong)
	}
}

func TestNoSignalsDefaultsModerate(t *testing.T) {
	c := NewClassifier(testConfig())

	d := c.ClassifyAt(context.Background(), "update the changelog entry for the release", 2)
	if d.Route != RouteLocal {
		t.Fatalf("route = %s, want local", d.Route)
	}
	if d.Layer != LayerHeuristic {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerHeuristic)
	}
	if d.TaskComplexity != 3 {
		t.Fatalf("complexity = %d, want moderate default 3", d.TaskComplexity)
	}
}

func TestTriageRunsOnInconclusiveHeuristics(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTriage = boolPtr(true)
	mock := localmodel.NewMockChatter()
	mock.EnqueueText(`{"difficulty":"expert","confidence":0.9}`, 10, 1)
	c := NewClassifier(cfg, WithTriage(mock))

	d := c.ClassifyAt(context.Background(), "update the changelog entry for the release", 2)
	if d.Layer != LayerTriage {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerTriage)
	}
	if d.TaskComplexity != 6 {
		t.Fatalf("complexity = %d, want 6 for expert", d.TaskComplexity)
	}
	if d.Route != RouteCloud {
		t.Fatalf("route = %s, want cloud past the ceiling", d.Route)
	}
	if mock.Calls != 1 {
		t.Fatalf("triage calls = %d, want 1", mock.Calls)
	}
}

func TestTriageGarbageFallsBackToModerate(t *testing.T) {
	cfg := testConfig()
	cfg.EnableTriage = boolPtr(true)
	mock := localmodel.NewMockChatter()
	mock.EnqueueText("the model rambled instead of answering", 10, 1)
	c := NewClassifier(cfg, WithTriage(mock))

	d := c.ClassifyAt(context.Background(), "update the changelog entry for the release", 2)
	if d.Layer != LayerTriage {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerTriage)
	}
	if d.TaskComplexity != 3 {
		t.Fatalf("complexity = %d, want moderate fallback 3", d.TaskComplexity)
	}
	if d.Route != RouteLocal {
		t.Fatalf("route = %s, want local", d.Route)
	}
}

func TestClassificationIsTotal(t *testing.T) {
	c := NewClassifier(testConfig())

	tasks := []string{
		"",
		"   ",
		strings.Repeat("x", 20000),
		"非ASCIIのタスクを処理する",
		"{}[]()!!??",
		"fix typo",
	}
	for _, task := range tasks {
		for level := -1; level <= 6; level++ {
			d := c.ClassifyAt(context.Background(), task, level)
			if d == nil {
				t.Fatalf("nil decision for task %q level %d", task, level)
			}
			switch d.Route {
			case RouteNoLLM, RouteLocal, RouteCloud:
			default:
				t.Fatalf("unknown route %q for task %q level %d", d.Route, task, level)
			}
			if d.TaskComplexity < 0 || d.TaskComplexity > 6 {
				t.Fatalf("complexity %d out of range for task %q", d.TaskComplexity, task)
			}
			if d.Confidence <= 0 || d.Confidence > 1 {
				t.Fatalf("confidence %.2f out of range for task %q", d.Confidence, task)
			}
			if d.Reason == "" {
				t.Fatalf("empty reason for task %q level %d", task, level)
			}
		}
	}
}

func TestLearnerAdjustsLocalDecision(t *testing.T) {
	store := metrics.NewStore(t.TempDir(), true)
	for i := 0; i < 50; i++ {
		err := store.AppendHistory(metrics.HistoryRecord{
			Fingerprint: "seed",
			TaskType:    "edit",
			LevelUsed:   2,
			Outcome:     "success",
		})
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
	}

	cfg := testConfig()
	cfg.EnableLearning = boolPtr(true)
	c := NewClassifier(cfg, WithHistory(store))

	d := c.ClassifyAt(context.Background(), "fix typo in the readme", 2)
	if d.Route != RouteLocal {
		t.Fatalf("route = %s, want local", d.Route)
	}
	if d.Layer != LayerLearner {
		t.Fatalf("layer = %s, want %s", d.Layer, LayerLearner)
	}
	if d.TaskComplexity != 0 {
		t.Fatalf("adjusted complexity = %d, want 0", d.TaskComplexity)
	}
	if !strings.Contains(d.Reason, "advisory") {
		t.Fatalf("reason = %q, want advisory note", d.Reason)
	}
}

func TestLearnerNeverTouchesNonLocalRoutes(t *testing.T) {
	store := metrics.NewStore(t.TempDir(), true)
	for i := 0; i < 50; i++ {
		_ = store.AppendHistory(metrics.HistoryRecord{TaskType: "security", LevelUsed: 2, Outcome: "success"})
	}

	cfg := testConfig()
	cfg.EnableLearning = boolPtr(true)
	c := NewClassifier(cfg, WithHistory(store))

	d := c.ClassifyAt(context.Background(), "audit the security of the token handler", 2)
	if d.Route != RouteCloud {
		t.Fatalf("route = %s, want cloud", d.Route)
	}
	if d.Layer == LayerLearner {
		t.Fatal("learner adjusted a cloud decision")
	}
}
