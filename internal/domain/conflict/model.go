package conflict

import "time"

// Strategy is a caregiver-selected way to resolve a conflict.
type Strategy string

const (
	StrategyClient       Strategy = "client"
	StrategyServer       Strategy = "server"
	StrategyFieldByField Strategy = "field-by-field"
)

// Side selects whose value wins for a single field under the
// field-by-field strategy.
type Side string

const (
	SideClient Side = "client"
	SideServer Side = "server"
)

// AutoStrategy is a per-field automatic resolution policy. Which fields
// get which policy is a business decision supplied as configuration, not
// something the resolver hard-codes.
type AutoStrategy string

const (
	AutoClientWins AutoStrategy = "client-wins"
	AutoServerWins AutoStrategy = "server-wins"
	AutoNewestWins AutoStrategy = "newest-timestamp-wins"
)

// FieldConflict is one attribute on which the client's pending value and
// the server's current value differ.
type FieldConflict struct {
	Field       string `json:"field"`
	ClientValue any    `json:"client_value"`
	ServerValue any    `json:"server_value"`
}

// Resolution describes the divergence between a locally queued change and
// the server's authoritative state. An empty FieldConflicts list means the
// records did not actually differ and the caller proceeds as if synced.
type Resolution struct {
	RecordID       string          `json:"record_id"`
	RecordType     string          `json:"record_type"`
	FieldConflicts []FieldConflict `json:"field_conflicts"`
	ClientRecord   map[string]any  `json:"client_record"`
	ServerRecord   map[string]any  `json:"server_record"`
	DetectedAt     time.Time       `json:"detected_at"`
}

// Empty reports whether no field actually diverged.
func (r *Resolution) Empty() bool {
	return len(r.FieldConflicts) == 0
}

// Fields returns the names of the conflicting fields in order.
func (r *Resolution) Fields() []string {
	names := make([]string, len(r.FieldConflicts))
	for i, fc := range r.FieldConflicts {
		names[i] = fc.Field
	}
	return names
}

// ManualResolution is a caregiver's decision on a Resolution. With the
// field-by-field strategy FieldResolutions must cover every conflicting
// field; partial coverage is a validation error, not a silent default.
type ManualResolution struct {
	RecordID         string          `json:"record_id" validate:"required"`
	RecordType       string          `json:"record_type" validate:"required"`
	SelectedStrategy Strategy        `json:"selected_strategy" validate:"required,oneof=client server field-by-field"`
	FieldResolutions map[string]Side `json:"field_resolutions,omitempty" validate:"dive,oneof=client server"`
	UserID           string          `json:"user_id" validate:"required"`
	Timestamp        time.Time       `json:"timestamp"`
}
