package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DelegationRecord is one append-only metrics entry, written exactly once per
// terminal pipeline outcome.
type DelegationRecord struct {
	Tool            string    `json:"tool"`
	QualityStatus   string    `json:"quality_status"`
	AttemptCount    int       `json:"attempt_count"`
	TokensUsed      int       `json:"tokens_used"`
	OutputTokens    int       `json:"output_tokens,omitempty"`
	DurationMs      int64     `json:"duration_ms"`
	Model           string    `json:"model"`
	ResolvedLocally bool      `json:"resolved_locally"`
	Timestamp       time.Time `json:"timestamp"`
}

// HistoryRecord is one classification outcome used by the learner.
type HistoryRecord struct {
	Fingerprint string    `json:"fingerprint"`
	TaskType    string    `json:"task_type"`
	LevelUsed   int       `json:"level_used"`
	Outcome     string    `json:"outcome"` // "success" or "escalated"
	Timestamp   time.Time `json:"timestamp"`
}

// Store is an append-only JSONL store for delegation metrics and history.
// Appends are serialized; records are never mutated in place.
type Store struct {
	dir     string
	enabled bool
	mu      sync.Mutex
}

// NewStore creates a store rooted at dir. When enabled is false every append
// is a no-op and loads return nothing.
func NewStore(dir string, enabled bool) *Store {
	return &Store{dir: dir, enabled: enabled}
}

// Enabled reports whether collection is active.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// AppendDelegation appends a delegation record. No-op when collection is disabled.
func (s *Store) AppendDelegation(rec DelegationRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return appendRecord(s, "delegations.jsonl", rec)
}

// AppendHistory appends a history record. No-op when collection is disabled.
func (s *Store) AppendHistory(rec HistoryRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return appendRecord(s, "history.jsonl", rec)
}

// LoadDelegations returns delegation records in append order, optionally
// filtered. Malformed lines are skipped silently.
func (s *Store) LoadDelegations(filter func(DelegationRecord) bool) []DelegationRecord {
	var records []DelegationRecord
	loadRecords(s, "delegations.jsonl", func(line []byte) {
		var rec DelegationRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return
		}
		if filter == nil || filter(rec) {
			records = append(records, rec)
		}
	})
	return records
}

// LoadHistory returns history records in append order, optionally filtered.
// Malformed lines are skipped silently.
func (s *Store) LoadHistory(filter func(HistoryRecord) bool) []HistoryRecord {
	var records []HistoryRecord
	loadRecords(s, "history.jsonl", func(line []byte) {
		var rec HistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return
		}
		if filter == nil || filter(rec) {
			records = append(records, rec)
		}
	})
	return records
}

func appendRecord(s *Store, name string, rec interface{}) error {
	if s == nil || !s.enabled {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metrics log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

func loadRecords(s *Store, name string, handle func(line []byte)) {
	if s == nil || !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		handle(line)
	}
}
