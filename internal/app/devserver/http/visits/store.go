package visits

import (
	"sync"
	"time"
)

// VersionConflictError reports a stale mutation and carries the server's
// current record state for the client's conflict resolver.
type VersionConflictError struct {
	ServerRecord map[string]any
}

func (e *VersionConflictError) Error() string {
	return "record version mismatch"
}

// Store is the in-memory versioned record store behind the dev server. It
// mimics the agency backend's optimistic concurrency: every mutation must
// carry the record_version it was based on, and a stale version yields the
// current server state instead of applying.
type Store struct {
	mu      sync.Mutex
	records map[string]map[string]any
}

func NewStore() *Store {
	return &Store{records: make(map[string]map[string]any)}
}

func storeKey(kind, visitID, id string) string {
	return kind + "/" + visitID + "/" + id
}

// Apply checks the version precondition and installs the new state. The
// stored record gets an incremented record_version and a fresh updated_at.
func (s *Store) Apply(kind, visitID, id string, rec map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(kind, visitID, id)
	current, exists := s.records[k]

	var version int64 = 1
	if exists {
		want, _ := toInt64(current["record_version"])
		got, ok := toInt64(rec["record_version"])
		if !ok || got != want {
			return nil, &VersionConflictError{ServerRecord: cloneRecord(current)}
		}
		version = want + 1
	}

	next := cloneRecord(rec)
	next["record_version"] = version
	next["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	s.records[k] = next

	return cloneRecord(next), nil
}

// Seed installs server-side state directly, bypassing the precondition.
// Used to provoke conflicts in demos and tests. Returns the stored state.
func (s *Store) Seed(kind, visitID, id string, rec map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := storeKey(kind, visitID, id)
	next := cloneRecord(rec)
	if _, ok := toInt64(next["record_version"]); !ok {
		var version int64 = 1
		if current, exists := s.records[k]; exists {
			version, _ = toInt64(current["record_version"])
			version++
		}
		next["record_version"] = version
	}
	if _, ok := next["updated_at"]; !ok {
		next["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	s.records[k] = next

	return cloneRecord(next)
}

// Get returns the current state of a record.
func (s *Store) Get(kind, visitID, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[storeKey(kind, visitID, id)]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec), true
}

func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
