package optimistic

import "context"

// Repository is the durable store for the optimistic update ledger.
type Repository interface {
	Save(ctx context.Context, u *Update) error
	Get(ctx context.Context, id string) (*Update, error)
	List(ctx context.Context) ([]*Update, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
