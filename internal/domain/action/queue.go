package action

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Stats breaks the pending count down by priority for display.
type Stats struct {
	Total      int              `json:"total"`
	ByPriority map[Priority]int `json:"by_priority"`
}

// Queue is the offline action queue: a durable, priority-ordered log of
// pending mutations. It owns enqueue-side bookkeeping; retry counts and
// removal are driven by the sync manager.
type Queue struct {
	repo Repository
	log  *slog.Logger
}

func NewQueue(repo Repository, log *slog.Logger) *Queue {
	return &Queue{
		repo: repo,
		log:  log.With(slog.String("component", "action_queue")),
	}
}

// Enqueue validates and persists a typed payload as a queued action with
// the type's default priority. Returns the stored action.
func (q *Queue) Enqueue(ctx context.Context, p Payload) (*QueuedAction, error) {
	return q.EnqueueWithPriority(ctx, p, p.ActionType().DefaultPriority())
}

// EnqueueWithPriority persists a typed payload at an explicit priority.
// A persistence failure is fatal to this call: the action is not queued
// and the caller must alert the user.
func (q *Queue) EnqueueWithPriority(ctx context.Context, p Payload, prio Priority) (*QueuedAction, error) {
	data, err := Marshal(p)
	if err != nil {
		return nil, err
	}

	a := &QueuedAction{
		ID:        uuid.New().String(),
		Type:      p.ActionType(),
		Payload:   data,
		Priority:  prio,
		Timestamp: time.Now().UTC(),
	}

	if err := q.repo.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("persist queued action: %w", err)
	}

	q.log.Debug("action enqueued",
		"id", a.ID,
		"type", a.Type,
		"priority", a.Priority.String(),
	)
	return a, nil
}

// EnqueueAction persists an already-constructed action, assigning id and
// timestamp when absent. Used by callers that correlate the action with an
// optimistic update before queueing it.
func (q *Queue) EnqueueAction(ctx context.Context, a *QueuedAction) error {
	if !a.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, a.Type)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	if err := q.repo.Save(ctx, a); err != nil {
		return fmt.Errorf("persist queued action: %w", err)
	}
	q.log.Debug("action enqueued", "id", a.ID, "type", a.Type)
	return nil
}

// Size returns the count of all pending actions.
func (q *Queue) Size(ctx context.Context) (int, error) {
	return q.repo.Count(ctx)
}

// Stats returns the pending count broken down by priority.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	items, err := q.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Total:      len(items),
		ByPriority: make(map[Priority]int),
	}
	for _, a := range items {
		stats.ByPriority[a.Priority]++
	}
	return stats, nil
}

// Items returns all pending actions in send order: priority descending,
// then enqueue timestamp ascending. A critical check-in queued after a
// low-priority note still comes first.
func (q *Queue) Items(ctx context.Context) ([]*QueuedAction, error) {
	items, err := q.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortSendOrder(items)
	return items, nil
}

// FailedItems returns pending actions with at least one failed attempt,
// in send order.
func (q *Queue) FailedItems(ctx context.Context) ([]*QueuedAction, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return nil, err
	}
	failed := items[:0]
	for _, a := range items {
		if a.Failed() {
			failed = append(failed, a)
		}
	}
	return failed, nil
}

// Get returns a single pending action by id.
func (q *Queue) Get(ctx context.Context, id string) (*QueuedAction, error) {
	return q.repo.Get(ctx, id)
}

// IncrementRetry bumps the retry count after a recoverable submission
// failure. Conflict failures do not go through here.
func (q *Queue) IncrementRetry(ctx context.Context, a *QueuedAction) error {
	a.Retries++
	if err := q.repo.UpdateRetries(ctx, a.ID, a.Retries); err != nil {
		return fmt.Errorf("update retries for %s: %w", a.ID, err)
	}
	return nil
}

// Update rewrites a stored action. The original timestamp and priority are
// kept so a re-queued merge does not lose its place.
func (q *Queue) Update(ctx context.Context, a *QueuedAction) error {
	if err := q.repo.Save(ctx, a); err != nil {
		return fmt.Errorf("update queued action %s: %w", a.ID, err)
	}
	return nil
}

// Remove deletes an action after its mutation was confirmed by the server.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if err := q.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove queued action %s: %w", id, err)
	}
	return nil
}

// Clear destructively removes all pending actions. Reserved for explicit
// user-initiated troubleshooting; confirmation happens at the UI layer.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	q.log.Warn("action queue cleared")
	return nil
}

func sortSendOrder(items []*QueuedAction) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
}
