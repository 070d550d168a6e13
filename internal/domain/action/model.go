package action

import (
	"encoding/json"
	"time"
)

// Priority orders queued actions for submission. Compliance-sensitive
// actions (EVV check-in/check-out) are critical and drain first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ParsePriority converts a priority name into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "critical":
		return PriorityCritical, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return PriorityLow, ErrUnknownPriority
}

// Type discriminates the operation a queued action replays and the shape
// of its payload.
type Type string

const (
	TypeVisitCheckIn  Type = "visit-check-in"
	TypeVisitCheckOut Type = "visit-check-out"
	TypeTaskComplete  Type = "task-complete"
	TypeCareNote      Type = "care-note"
)

// DefaultPriority returns the priority an action type is enqueued with
// when the caller does not override it. Visit verification events are
// compliance-critical.
func (t Type) DefaultPriority() Priority {
	switch t {
	case TypeVisitCheckIn, TypeVisitCheckOut:
		return PriorityCritical
	case TypeTaskComplete:
		return PriorityNormal
	case TypeCareNote:
		return PriorityNormal
	}
	return PriorityLow
}

func (t Type) Valid() bool {
	switch t {
	case TypeVisitCheckIn, TypeVisitCheckOut, TypeTaskComplete, TypeCareNote:
		return true
	}
	return false
}

// QueuedAction is a durable record of one pending mutation, created while
// offline or speculatively and replayed against the backend later.
type QueuedAction struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Priority  Priority        `json:"priority"`
	Timestamp time.Time       `json:"timestamp"`
	Retries   int             `json:"retries"`

	// UpdateID correlates the action with at most one optimistic update
	// in the ledger. Empty when the local write was not speculative.
	UpdateID string `json:"update_id,omitempty"`
}

// Failed reports whether at least one send attempt has failed, which marks
// the item for the manual-retry path in the UI.
func (a *QueuedAction) Failed() bool {
	return a.Retries > 0
}

// Record decodes the payload into the generic field map used for conflict
// detection against the server's record state.
func (a *QueuedAction) Record() (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal(a.Payload, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetRecord re-encodes a field map into the payload. Used when a resolved
// merge replaces the pending client values before re-submission; the
// action keeps its original id, priority and timestamp.
func (a *QueuedAction) SetRecord(rec map[string]any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	a.Payload = data
	return nil
}
