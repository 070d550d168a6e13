package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, a *QueuedAction) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*QueuedAction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QueuedAction), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*QueuedAction, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*QueuedAction), args.Error(1)
}

func (m *MockRepository) UpdateRetries(ctx context.Context, id string, retries int) error {
	args := m.Called(ctx, id, retries)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func checkInPayload(visitID string) VisitCheckInPayload {
	return VisitCheckInPayload{
		VisitID:     visitID,
		ClientID:    "client-1",
		CheckInTime: time.Now(),
	}
}

func notePayload(visitID string) CareNotePayload {
	return CareNotePayload{
		VisitID:    visitID,
		NoteID:     "note-1",
		NoteText:   "client in good spirits",
		RecordedAt: time.Now(),
	}
}

func TestQueue_Enqueue_AssignsIdentityAndPriority(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	ctx := context.Background()

	a, err := q.Enqueue(ctx, checkInPayload("visit-1"))
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.Equal(t, TypeVisitCheckIn, a.Type)
	assert.Equal(t, PriorityCritical, a.Priority)
	assert.Zero(t, a.Retries)

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

func TestQueue_Enqueue_StorageFailureSurfacesAndDoesNotCount(t *testing.T) {
	mockRepo := new(MockRepository)
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*action.QueuedAction")).
		Return(errors.New("disk full"))
	mockRepo.On("Count", mock.Anything).Return(0, nil)

	q := NewQueue(mockRepo, slog.Default())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, checkInPayload("visit-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist queued action")

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size, "a failed enqueue must not be counted as queued")
	mockRepo.AssertExpectations(t)
}

func TestQueue_Enqueue_InvalidPayloadRejected(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())

	_, err := q.Enqueue(context.Background(), VisitCheckInPayload{ClientID: "client-1"})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	size, err := q.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestQueue_Items_PriorityThenTimestampOrder(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	ctx := context.Background()

	// Interleave normal and critical enqueues; criticals must always come
	// first regardless of enqueue order.
	n1, err := q.Enqueue(ctx, notePayload("visit-1"))
	require.NoError(t, err)
	c1, err := q.Enqueue(ctx, checkInPayload("visit-1"))
	require.NoError(t, err)
	n2, err := q.Enqueue(ctx, notePayload("visit-2"))
	require.NoError(t, err)
	c2, err := q.Enqueue(ctx, VisitCheckOutPayload{
		VisitID:      "visit-1",
		ClientID:     "client-1",
		CheckOutTime: time.Now(),
	})
	require.NoError(t, err)

	items, err := q.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, []string{c1.ID, c2.ID, n1.ID, n2.ID}, []string{
		items[0].ID, items[1].ID, items[2].ID, items[3].ID,
	})

	for i := 1; i < len(items); i++ {
		if items[i-1].Priority == items[i].Priority {
			assert.False(t, items[i].Timestamp.Before(items[i-1].Timestamp),
				"within a tier items must be FIFO by timestamp")
		} else {
			assert.Greater(t, int(items[i-1].Priority), int(items[i].Priority))
		}
	}
}

func TestQueue_Stats_ByPriority(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, checkInPayload("visit-1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, notePayload("visit-1"))
	require.NoError(t, err)
	_, err = q.EnqueueWithPriority(ctx, notePayload("visit-2"), PriorityLow)
	require.NoError(t, err)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ByPriority[PriorityCritical])
	assert.Equal(t, 1, stats.ByPriority[PriorityNormal])
	assert.Equal(t, 1, stats.ByPriority[PriorityLow])
}

func TestQueue_FailedItems_OnlyRetried(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	ctx := context.Background()

	ok, err := q.Enqueue(ctx, notePayload("visit-1"))
	require.NoError(t, err)
	failed, err := q.Enqueue(ctx, notePayload("visit-2"))
	require.NoError(t, err)

	require.NoError(t, q.IncrementRetry(ctx, failed))
	assert.True(t, failed.Failed())

	items, err := q.FailedItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, failed.ID, items[0].ID)
	assert.Equal(t, 1, items[0].Retries)
	_ = ok
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, notePayload("visit-1"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, checkInPayload("visit-1"))
	require.NoError(t, err)

	require.NoError(t, q.Clear(ctx))

	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestQueuedAction_RecordRoundTrip(t *testing.T) {
	q := NewQueue(NewMemoryRepository(), slog.Default())
	a, err := q.Enqueue(context.Background(), notePayload("visit-9"))
	require.NoError(t, err)

	rec, err := a.Record()
	require.NoError(t, err)
	assert.Equal(t, "visit-9", rec["visit_id"])
	assert.Equal(t, "client in good spirits", rec["note_text"])

	rec["note_text"] = "amended"
	require.NoError(t, a.SetRecord(rec))

	rec2, err := a.Record()
	require.NoError(t, err)
	assert.Equal(t, "amended", rec2["note_text"])
}
