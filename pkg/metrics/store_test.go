package metrics

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDelegationRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), true)

	records := []DelegationRecord{
		{Tool: "edit_file", QualityStatus: "accepted", AttemptCount: 1, TokensUsed: 40, ResolvedLocally: true},
		{Tool: "edit_file", QualityStatus: "escalated", AttemptCount: 2, TokensUsed: 90},
		{Tool: "explain", QualityStatus: "accepted", AttemptCount: 1, TokensUsed: 20, ResolvedLocally: true},
	}
	for _, rec := range records {
		if err := store.AppendDelegation(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got := store.LoadDelegations(nil)
	if len(got) != 3 {
		t.Fatalf("loaded %d records, want 3", len(got))
	}
	if got[0].Tool != "edit_file" || got[2].Tool != "explain" {
		t.Fatal("records not returned in append order")
	}
	if got[0].Timestamp.IsZero() {
		t.Fatal("append did not stamp the record")
	}

	filtered := store.LoadDelegations(func(r DelegationRecord) bool { return r.Tool == "edit_file" })
	if len(filtered) != 2 {
		t.Fatalf("filtered %d records, want 2", len(filtered))
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), true)

	if err := store.AppendHistory(HistoryRecord{Fingerprint: "a b c", TaskType: "edit", LevelUsed: 2, Outcome: "success"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendHistory(HistoryRecord{Fingerprint: "d e", TaskType: "debug", LevelUsed: 3, Outcome: "escalated"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := store.LoadHistory(func(h HistoryRecord) bool { return h.TaskType == "edit" })
	if len(got) != 1 {
		t.Fatalf("loaded %d records, want 1", len(got))
	}
	if got[0].Fingerprint != "a b c" || got[0].Outcome != "success" {
		t.Fatalf("record = %+v", got[0])
	}
}

func TestDisabledStoreIsNoOp(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, false)

	if err := store.AppendDelegation(DelegationRecord{Tool: "edit_file"}); err != nil {
		t.Fatalf("disabled append errored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "delegations.jsonl")); !os.IsNotExist(err) {
		t.Fatal("disabled store wrote a file")
	}
	if got := store.LoadDelegations(nil); len(got) != 0 {
		t.Fatalf("disabled store loaded %d records", len(got))
	}
	if store.Enabled() {
		t.Fatal("Enabled() = true for a disabled store")
	}
}

func TestMalformedLinesSkipped(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, true)

	if err := store.AppendDelegation(DelegationRecord{Tool: "edit_file"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A torn write leaves a half-record on disk; loads must survive it.
	f, err := os.OpenFile(filepath.Join(dir, "delegations.jsonl"), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"tool\": \"trunc\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	if err := store.AppendDelegation(DelegationRecord{Tool: "explain"}); err != nil {
		t.Fatalf("append after corruption: %v", err)
	}

	got := store.LoadDelegations(nil)
	if len(got) != 2 {
		t.Fatalf("loaded %d records, want the 2 intact ones", len(got))
	}
	if got[0].Tool != "edit_file" || got[1].Tool != "explain" {
		t.Fatalf("records = %+v", got)
	}
}

func TestNilStoreIsSafe(t *testing.T) {
	var store *Store
	if store.Enabled() {
		t.Fatal("nil store reports enabled")
	}
	if err := store.AppendDelegation(DelegationRecord{}); err != nil {
		t.Fatalf("nil append errored: %v", err)
	}
	if got := store.LoadHistory(nil); got != nil {
		t.Fatalf("nil load returned %v", got)
	}
}
