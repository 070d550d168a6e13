package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"careline/internal/domain/action"
	"careline/internal/domain/optimistic"
)

const migrationsPath = "../../../../migrations"

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dataPath := filepath.Join(t.TempDir(), "careline.db")
	s, err := New(dataPath, migrationsPath, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func queuedAction(id string, typ action.Type, priority action.Priority, ts time.Time) *action.QueuedAction {
	return &action.QueuedAction{
		ID:        id,
		Type:      typ,
		Payload:   json.RawMessage(`{"visit_id":"visit-1"}`),
		Priority:  priority,
		Timestamp: ts,
		UpdateID:  "upd-" + id,
	}
}

func TestActionRepository_SaveAndGet(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Actions()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	a := queuedAction("act-1", action.TypeVisitCheckIn, action.PriorityCritical, now)
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Type, got.Type)
	assert.Equal(t, a.Priority, got.Priority)
	assert.Equal(t, a.UpdateID, got.UpdateID)
	assert.JSONEq(t, string(a.Payload), string(got.Payload))
	assert.True(t, now.Equal(got.Timestamp))
}

func TestActionRepository_GetMissing(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Actions().Get(context.Background(), "nope")
	assert.ErrorIs(t, err, action.ErrNotFound)
}

func TestActionRepository_ListOrdersBySendPriority(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Actions()
	ctx := context.Background()

	base := time.Now().UTC()
	require.NoError(t, repo.Save(ctx, queuedAction("n-1", action.TypeCareNote, action.PriorityNormal, base)))
	require.NoError(t, repo.Save(ctx, queuedAction("c-1", action.TypeVisitCheckIn, action.PriorityCritical, base.Add(time.Second))))
	require.NoError(t, repo.Save(ctx, queuedAction("c-2", action.TypeVisitCheckOut, action.PriorityCritical, base.Add(2*time.Second))))
	require.NoError(t, repo.Save(ctx, queuedAction("l-1", action.TypeCareNote, action.PriorityLow, base)))

	items, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	ids := []string{items[0].ID, items[1].ID, items[2].ID, items[3].ID}
	assert.Equal(t, []string{"c-1", "c-2", "n-1", "l-1"}, ids)
}

func TestActionRepository_SaveOverwritesExisting(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Actions()
	ctx := context.Background()

	a := queuedAction("act-1", action.TypeCareNote, action.PriorityNormal, time.Now().UTC())
	require.NoError(t, repo.Save(ctx, a))

	a.Payload = json.RawMessage(`{"visit_id":"visit-1","note_text":"updated"}`)
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(a.Payload), string(got.Payload))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestActionRepository_UpdateRetries(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Actions()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, queuedAction("act-1", action.TypeCareNote, action.PriorityNormal, time.Now().UTC())))
	require.NoError(t, repo.UpdateRetries(ctx, "act-1", 3))

	got, err := repo.Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Retries)
	assert.True(t, got.Failed())

	assert.ErrorIs(t, repo.UpdateRetries(ctx, "missing", 1), action.ErrNotFound)
}

func TestActionRepository_DeleteAndClear(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Actions()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, queuedAction("act-1", action.TypeCareNote, action.PriorityNormal, time.Now().UTC())))
	require.NoError(t, repo.Save(ctx, queuedAction("act-2", action.TypeCareNote, action.PriorityNormal, time.Now().UTC())))

	require.NoError(t, repo.Delete(ctx, "act-1"))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, repo.Clear(ctx))
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestActionRepository_SurvivesReopen(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "careline.db")

	s, err := New(dataPath, migrationsPath, slog.Default())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Actions().Save(ctx, queuedAction("act-1", action.TypeVisitCheckIn, action.PriorityCritical, time.Now().UTC())))
	require.NoError(t, s.Close())

	s, err = New(dataPath, migrationsPath, slog.Default())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Actions().Get(ctx, "act-1")
	require.NoError(t, err)
	assert.Equal(t, action.TypeVisitCheckIn, got.Type)
}

func TestOptimisticRepository_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Updates()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &optimistic.Update{
		ID:         "upd-1",
		RecordType: "care-note",
		RecordID:   "note-1",
		Operation:  optimistic.OperationUpdate,
		CreatedAt:  now,
	}
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.Get(ctx, "upd-1")
	require.NoError(t, err)
	assert.Equal(t, u.RecordType, got.RecordType)
	assert.Equal(t, u.RecordID, got.RecordID)
	assert.Equal(t, u.Operation, got.Operation)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, optimistic.ErrNotFound)
}

func TestOptimisticRepository_ListOldestFirst(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Updates()
	ctx := context.Background()

	base := time.Now().UTC()
	offsets := map[string]time.Duration{"upd-1": 0, "upd-2": time.Second, "upd-3": 2 * time.Second}
	for _, id := range []string{"upd-3", "upd-1", "upd-2"} {
		require.NoError(t, repo.Save(ctx, &optimistic.Update{
			ID:         id,
			RecordType: "care-note",
			RecordID:   "note-1",
			Operation:  optimistic.OperationCreate,
			CreatedAt:  base.Add(offsets[id]),
		}))
	}

	updates, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, updates, 3)
	assert.Equal(t, "upd-1", updates[0].ID)
	assert.Equal(t, "upd-3", updates[2].ID)
}

func TestOptimisticRepository_Delete(t *testing.T) {
	s := newTestStorage(t)
	repo := s.Updates()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &optimistic.Update{
		ID:         "upd-1",
		RecordType: "visit",
		RecordID:   "visit-1",
		Operation:  optimistic.OperationUpdate,
		CreatedAt:  time.Now().UTC(),
	}))

	require.NoError(t, repo.Delete(ctx, "upd-1"))
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Deleting an absent row is not an error.
	require.NoError(t, repo.Delete(ctx, "upd-1"))
}
