package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func newTestResolver(policy Policy) *Resolver {
	return NewResolver(policy, slog.Default())
}

func TestResolver_Detect_FieldLevelDiff(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{
		"visit_id":  "visit-1",
		"note_text": "client walked in the garden",
		"version":   2,
	}
	server := map[string]any{
		"visit_id":  "visit-1",
		"note_text": "client rested all afternoon",
		"version":   3,
	}

	res := r.Detect("note-1", "care-note", client, server)
	require.Len(t, res.FieldConflicts, 2)
	assert.Equal(t, []string{"note_text", "version"}, res.Fields())

	assert.Equal(t, "client walked in the garden", res.FieldConflicts[0].ClientValue)
	assert.Equal(t, "client rested all afternoon", res.FieldConflicts[0].ServerValue)
}

func TestResolver_Detect_SingleFieldScenario(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "ours", "visit_id": "visit-1"}
	server := map[string]any{"note_text": "theirs", "visit_id": "visit-1"}

	res := r.Detect("note-1", "care-note", client, server)
	require.Len(t, res.FieldConflicts, 1)
	assert.Equal(t, "note_text", res.FieldConflicts[0].Field)
}

func TestResolver_Detect_IdenticalRecordsIsEmpty(t *testing.T) {
	r := newTestResolver(Policy{})

	rec := map[string]any{"note_text": "same", "version": 1}
	res := r.Detect("note-1", "care-note", rec, rec)
	assert.True(t, res.Empty())
}

func TestResolver_Detect_TimestampsCompareByInstant(t *testing.T) {
	r := newTestResolver(Policy{})

	// Same instant in different zones must not be reported as a conflict.
	client := map[string]any{"check_in_time": "2026-03-01T10:00:00Z"}
	server := map[string]any{"check_in_time": "2026-03-01T11:00:00+01:00"}

	res := r.Detect("visit-1", "visit", client, server)
	assert.True(t, res.Empty())
}

func TestResolver_Detect_NestedObjects(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{
		"incident": map[string]any{"severity": "low", "description": "minor slip"},
	}
	server := map[string]any{
		"incident": map[string]any{"severity": "medium", "description": "minor slip"},
	}

	res := r.Detect("note-1", "care-note", client, server)
	require.Len(t, res.FieldConflicts, 1)
	assert.Equal(t, "incident", res.FieldConflicts[0].Field)
}

func TestResolver_Detect_IgnoresOneSidedFields(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "same", "draft": true}
	server := map[string]any{"note_text": "same", "reviewed_by": "supervisor-2"}

	res := r.Detect("note-1", "care-note", client, server)
	assert.True(t, res.Empty(), "fields present on only one side are not conflicts")
}

func TestResolver_Detect_NumericNormalization(t *testing.T) {
	r := newTestResolver(Policy{})

	// int on one side, float from JSON decoding on the other.
	client := map[string]any{"version": 3}
	server := map[string]any{"version": 3.0}

	res := r.Detect("visit-1", "visit", client, server)
	assert.True(t, res.Empty())
}

func TestResolver_ResolveAutomatic_PolicyTable(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		wantOK   bool
		wantText string
	}{
		{
			name: "client wins",
			policy: Policy{FieldPolicies: map[string]AutoStrategy{
				"note_text": AutoClientWins,
			}},
			wantOK:   true,
			wantText: "ours",
		},
		{
			name: "server wins",
			policy: Policy{FieldPolicies: map[string]AutoStrategy{
				"note_text": AutoServerWins,
			}},
			wantOK:   true,
			wantText: "theirs",
		},
		{
			name: "newest timestamp wins picks client",
			policy: Policy{FieldPolicies: map[string]AutoStrategy{
				"note_text": AutoNewestWins,
			}},
			wantOK:   true,
			wantText: "ours",
		},
		{
			name:   "no policy escalates to manual",
			policy: Policy{},
			wantOK: false,
		},
		{
			name: "partially covered conflict escalates",
			policy: Policy{FieldPolicies: map[string]AutoStrategy{
				"unrelated_field": AutoClientWins,
			}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.policy)

			client := map[string]any{
				"note_text":  "ours",
				"updated_at": time.Now().UTC().Format(time.RFC3339),
			}
			server := map[string]any{
				"note_text":  "theirs",
				"updated_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
			}

			res := r.Detect("note-1", "care-note", client, server)
			require.False(t, res.Empty())

			merged, ok := r.ResolveAutomatic(res)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantText, merged["note_text"])
			} else {
				assert.Nil(t, merged)
			}
		})
	}
}

func TestResolver_ResolveAutomatic_TimestampFieldIsExempt(t *testing.T) {
	r := newTestResolver(Policy{})

	// The trusted timestamp is metadata, not content: a record whose only
	// divergence is updated_at must not demand a caregiver decision.
	serverStamp := time.Now().UTC().Format(time.RFC3339)
	client := map[string]any{
		"note_text":  "same",
		"updated_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}
	server := map[string]any{
		"note_text":  "same",
		"updated_at": serverStamp,
	}

	res := r.Detect("note-1", "care-note", client, server)
	require.False(t, res.Empty())

	merged, ok := r.ResolveAutomatic(res)
	require.True(t, ok)
	assert.Equal(t, serverStamp, merged["updated_at"], "server's timestamp stands")
}

func TestResolver_ResolveAutomatic_NewestWinsNeedsTimestamps(t *testing.T) {
	r := newTestResolver(Policy{FieldPolicies: map[string]AutoStrategy{
		"note_text": AutoNewestWins,
	}})

	// Without a trusted timestamp on both sides the policy cannot apply.
	client := map[string]any{"note_text": "ours"}
	server := map[string]any{"note_text": "theirs"}

	res := r.Detect("note-1", "care-note", client, server)
	merged, ok := r.ResolveAutomatic(res)
	assert.False(t, ok)
	assert.Nil(t, merged)
}

func manualFor(res *Resolution, strategy Strategy, fields map[string]Side) *ManualResolution {
	return &ManualResolution{
		RecordID:         res.RecordID,
		RecordType:       res.RecordType,
		SelectedStrategy: strategy,
		FieldResolutions: fields,
		UserID:           "caregiver-7",
		Timestamp:        time.Now(),
	}
}

func TestResolver_ApplyManual_WholeSideStrategies(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "ours", "mood_rating": 4}
	server := map[string]any{"note_text": "theirs", "mood_rating": 2}
	res := r.Detect("note-1", "care-note", client, server)

	merged, err := r.ApplyManual(res, manualFor(res, StrategyClient, nil))
	require.NoError(t, err)
	assert.Equal(t, "ours", merged["note_text"])

	merged, err = r.ApplyManual(res, manualFor(res, StrategyServer, nil))
	require.NoError(t, err)
	assert.Equal(t, "theirs", merged["note_text"])
}

func TestResolver_ApplyManual_FieldByField(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "ours", "mood_rating": 4}
	server := map[string]any{"note_text": "theirs", "mood_rating": 2}
	res := r.Detect("note-1", "care-note", client, server)
	require.Len(t, res.FieldConflicts, 2)

	merged, err := r.ApplyManual(res, manualFor(res, StrategyFieldByField, map[string]Side{
		"note_text":   SideClient,
		"mood_rating": SideServer,
	}))
	require.NoError(t, err)
	assert.Equal(t, "ours", merged["note_text"])
	assert.Equal(t, float64(2), merged["mood_rating"])
}

func TestResolver_ApplyManual_IncompleteCoverageFails(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "ours", "mood_rating": 4}
	server := map[string]any{"note_text": "theirs", "mood_rating": 2}
	res := r.Detect("note-1", "care-note", client, server)

	_, err := r.ApplyManual(res, manualFor(res, StrategyFieldByField, map[string]Side{
		"note_text": SideClient,
	}))
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"mood_rating"}, verr.MissingFields)
}

func TestResolver_ApplyManual_StructuralValidation(t *testing.T) {
	r := newTestResolver(Policy{})

	client := map[string]any{"note_text": "ours"}
	server := map[string]any{"note_text": "theirs"}
	res := r.Detect("note-1", "care-note", client, server)

	// Missing user id.
	manual := manualFor(res, StrategyClient, nil)
	manual.UserID = ""
	_, err := r.ApplyManual(res, manual)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// Unknown strategy.
	manual = manualFor(res, Strategy("split-the-difference"), nil)
	_, err = r.ApplyManual(res, manual)
	require.ErrorAs(t, err, &verr)
}
