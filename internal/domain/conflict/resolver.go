package conflict

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/exp/slog"
)

const defaultTimestampField = "updated_at"

// Policy configures automatic resolution. FieldPolicies maps a field name
// to the strategy that may resolve it without user involvement; every
// conflicting field without a policy escalates the whole conflict to
// manual resolution. The zero value escalates everything.
type Policy struct {
	FieldPolicies map[string]AutoStrategy

	// TimestampField is the trusted modification-time field consulted by
	// newest-timestamp-wins. Defaults to "updated_at".
	TimestampField string
}

// Resolver detects and describes divergence between a locally queued
// change and the server's authoritative record, and applies resolutions.
// Compliance-critical fields are not special-cased here: flagging them is
// a presentation concern, which keeps the resolution algorithm uniform and
// auditable.
type Resolver struct {
	policy   Policy
	validate *validator.Validate
	log      *slog.Logger
}

func NewResolver(policy Policy, log *slog.Logger) *Resolver {
	if policy.TimestampField == "" {
		policy.TimestampField = defaultTimestampField
	}
	return &Resolver{
		policy:   policy,
		validate: validator.New(),
		log:      log.With(slog.String("component", "conflict_resolver")),
	}
}

// Detect compares the records field by field and returns a Resolution
// listing every field present in both where the values differ. Comparison
// is type-aware: nested objects are compared deeply and RFC3339 timestamps
// compare by instant rather than by string representation.
func (r *Resolver) Detect(recordID, recordType string, clientRecord, serverRecord map[string]any) *Resolution {
	res := &Resolution{
		RecordID:     recordID,
		RecordType:   recordType,
		ClientRecord: normalizeRecord(clientRecord),
		ServerRecord: normalizeRecord(serverRecord),
		DetectedAt:   time.Now().UTC(),
	}

	fields := make([]string, 0, len(res.ClientRecord))
	for name := range res.ClientRecord {
		if _, ok := res.ServerRecord[name]; ok {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)

	for _, name := range fields {
		cv, sv := res.ClientRecord[name], res.ServerRecord[name]
		if !equalValues(cv, sv) {
			res.FieldConflicts = append(res.FieldConflicts, FieldConflict{
				Field:       name,
				ClientValue: cv,
				ServerValue: sv,
			})
		}
	}

	if !res.Empty() {
		r.log.Info("conflict detected",
			"record_id", recordID,
			"record_type", recordType,
			"fields", res.Fields(),
		)
	}
	return res
}

// ResolveAutomatic attempts to resolve every conflicting field from the
// policy table. It returns the merged record and true only when all fields
// were covered; any unpolicied field escalates the conflict to manual
// resolution. The trusted timestamp field is exempt: it is metadata
// consulted by newest-timestamp-wins, not record content, and the
// server's value stands without a policy entry.
func (r *Resolver) ResolveAutomatic(res *Resolution) (map[string]any, bool) {
	if res.Empty() {
		return cloneRecord(res.ServerRecord), true
	}

	merged := cloneRecord(res.ServerRecord)
	for _, fc := range res.FieldConflicts {
		if fc.Field == r.policy.TimestampField {
			continue
		}
		strategy, ok := r.policy.FieldPolicies[fc.Field]
		if !ok {
			return nil, false
		}
		switch strategy {
		case AutoClientWins:
			merged[fc.Field] = fc.ClientValue
		case AutoServerWins:
			// merged already carries the server value.
		case AutoNewestWins:
			side, ok := r.newestSide(res)
			if !ok {
				return nil, false
			}
			if side == SideClient {
				merged[fc.Field] = fc.ClientValue
			}
		default:
			return nil, false
		}
	}

	r.log.Info("conflict auto-resolved",
		"record_id", res.RecordID,
		"fields", res.Fields(),
	)
	return merged, true
}

// ApplyManual validates a caregiver decision and produces the merged
// record for re-submission. With the field-by-field strategy the decision
// must cover every conflicting field.
func (r *Resolver) ApplyManual(res *Resolution, manual *ManualResolution) (map[string]any, error) {
	if err := r.validate.Struct(manual); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid manual resolution: %v", err)}
	}

	switch manual.SelectedStrategy {
	case StrategyClient:
		return cloneRecord(res.ClientRecord), nil

	case StrategyServer:
		return cloneRecord(res.ServerRecord), nil

	case StrategyFieldByField:
		var missing []string
		for _, fc := range res.FieldConflicts {
			if _, ok := manual.FieldResolutions[fc.Field]; !ok {
				missing = append(missing, fc.Field)
			}
		}
		if len(missing) > 0 {
			return nil, &ValidationError{
				Message:       "field-by-field resolution is incomplete",
				MissingFields: missing,
			}
		}

		merged := cloneRecord(res.ServerRecord)
		for _, fc := range res.FieldConflicts {
			if manual.FieldResolutions[fc.Field] == SideClient {
				merged[fc.Field] = fc.ClientValue
			}
		}
		return merged, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, manual.SelectedStrategy)
}

// newestSide compares the trusted timestamp field of both records.
func (r *Resolver) newestSide(res *Resolution) (Side, bool) {
	ct, cok := recordTime(res.ClientRecord[r.policy.TimestampField])
	st, sok := recordTime(res.ServerRecord[r.policy.TimestampField])
	if !cok || !sok {
		return SideServer, false
	}
	if ct.After(st) {
		return SideClient, true
	}
	return SideServer, true
}

func recordTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// normalizeRecord passes the record through JSON so both sides compare on
// canonical types (float64 numbers, string timestamps, nested maps)
// regardless of how they were produced.
func normalizeRecord(rec map[string]any) map[string]any {
	data, err := json.Marshal(rec)
	if err != nil {
		return rec
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return rec
	}
	return out
}

func cloneRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func equalValues(a, b any) bool {
	if at, aok := recordTime(a); aok {
		if bt, bok := recordTime(b); bok {
			return at.Equal(bt)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
