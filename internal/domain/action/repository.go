package action

import "context"

// Repository is the durable store for queued actions. Implementations must
// survive process restarts; a failed Save is a data-loss risk and is
// reported to the caller, never swallowed.
type Repository interface {
	Save(ctx context.Context, a *QueuedAction) error
	Get(ctx context.Context, id string) (*QueuedAction, error)
	List(ctx context.Context) ([]*QueuedAction, error)
	UpdateRetries(ctx context.Context, id string, retries int) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
