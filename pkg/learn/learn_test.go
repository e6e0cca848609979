package learn

import (
	"testing"

	"github.com/zen-systems/localgate/pkg/metrics"
)

func TestFingerprintIgnoresOrderCaseAndPunctuation(t *testing.T) {
	a := Fingerprint("Fix the login bug")
	b := Fingerprint("bug: LOGIN, the fix!")
	if a != b {
		t.Fatalf("fingerprints differ: %q vs %q", a, b)
	}
	if a == Fingerprint("fix the logout bug") {
		t.Fatal("distinct tasks share a fingerprint")
	}
}

func TestFingerprintEmpty(t *testing.T) {
	if got := Fingerprint("!!! ???"); got != "" {
		t.Fatalf("punctuation-only fingerprint = %q, want empty", got)
	}
}

func seedHistory(taskType string, level, successes, failures int) []metrics.HistoryRecord {
	var history []metrics.HistoryRecord
	for i := 0; i < successes; i++ {
		history = append(history, metrics.HistoryRecord{TaskType: taskType, LevelUsed: level, Outcome: "success"})
	}
	for i := 0; i < failures; i++ {
		history = append(history, metrics.HistoryRecord{TaskType: taskType, LevelUsed: level, Outcome: "escalated"})
	}
	return history
}

func TestRecommendDisabled(t *testing.T) {
	rec := Recommend("edit", 2, seedHistory("edit", 2, 100, 0), false, 50)
	if rec.RecommendedLevel != 2 || rec.ConfidenceAdjustment != 0 {
		t.Fatalf("disabled learner recommended %+v", rec)
	}
	if rec.Reason != "learning is disabled" {
		t.Fatalf("reason = %q", rec.Reason)
	}
}

func TestRecommendInsufficientHistory(t *testing.T) {
	rec := Recommend("edit", 2, seedHistory("edit", 2, 49, 0), true, 50)
	if rec.RecommendedLevel != 2 || rec.ConfidenceAdjustment != 0 {
		t.Fatalf("thin history still nudged: %+v", rec)
	}
	if rec.SampleSize != 49 {
		t.Fatalf("samples = %d, want 49", rec.SampleSize)
	}
}

func TestRecommendLowerLevelOnStrongHistory(t *testing.T) {
	rec := Recommend("edit", 2, seedHistory("edit", 2, 45, 5), true, 50)
	if rec.SampleSize != 50 {
		t.Fatalf("samples = %d, want 50", rec.SampleSize)
	}
	if rec.RecommendedLevel != 1 {
		t.Fatalf("recommended level = %d, want 1", rec.RecommendedLevel)
	}
	if rec.ConfidenceAdjustment != 0.05 {
		t.Fatalf("adjustment = %.2f, want 0.05", rec.ConfidenceAdjustment)
	}
}

func TestRecommendNeutralBelowThreshold(t *testing.T) {
	rec := Recommend("edit", 2, seedHistory("edit", 2, 40, 10), true, 50)
	if rec.RecommendedLevel != 2 || rec.ConfidenceAdjustment != 0 {
		t.Fatalf("80%% success rate still nudged: %+v", rec)
	}
}

func TestRecommendNeverBelowLevelOne(t *testing.T) {
	rec := Recommend("edit", 1, seedHistory("edit", 1, 100, 0), true, 50)
	if rec.RecommendedLevel != 1 {
		t.Fatalf("recommended level = %d, want floor 1", rec.RecommendedLevel)
	}
	if rec.ConfidenceAdjustment != 0 {
		t.Fatalf("adjustment = %.2f, want 0", rec.ConfidenceAdjustment)
	}
}

func TestRecommendFiltersMismatchedRecords(t *testing.T) {
	history := append(seedHistory("edit", 2, 30, 0), seedHistory("debug", 2, 30, 0)...)
	history = append(history, seedHistory("edit", 3, 30, 0)...)

	rec := Recommend("edit", 2, history, true, 50)
	if rec.SampleSize != 30 {
		t.Fatalf("samples = %d, want 30 after filtering", rec.SampleSize)
	}
	if rec.ConfidenceAdjustment != 0 {
		t.Fatalf("adjustment = %.2f, want 0 below the sample floor", rec.ConfidenceAdjustment)
	}
}
