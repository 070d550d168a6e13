package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// RevertFunc is invoked when a pending update must be rolled back. It is
// supplied by the layer that owns the local data (the on-device database);
// the ledger only emits the instruction. A RevertFunc error is structural:
// the UI would keep showing state the server rejected.
type RevertFunc func(ctx context.Context, u *Update) error

// Manager is the optimistic update ledger. It correlates what the UI shows
// with what the server has confirmed so local writes can be reflected
// instantly and reverted when rejected.
type Manager struct {
	repo   Repository
	revert RevertFunc
	log    *slog.Logger
}

func NewManager(repo Repository, revert RevertFunc, log *slog.Logger) *Manager {
	if revert == nil {
		revert = func(context.Context, *Update) error { return nil }
	}
	return &Manager{
		repo:   repo,
		revert: revert,
		log:    log.With(slog.String("component", "optimistic_ledger")),
	}
}

// Record stores a pending entry at the moment a local write is applied.
// The write itself is the caller's responsibility.
func (m *Manager) Record(ctx context.Context, recordType, recordID string, op Operation) (*Update, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOperation, op)
	}

	u := &Update{
		ID:         uuid.New().String(),
		RecordType: recordType,
		RecordID:   recordID,
		Operation:  op,
		CreatedAt:  time.Now().UTC(),
	}

	if err := m.repo.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("persist optimistic update: %w", err)
	}

	m.log.Debug("optimistic update recorded",
		"id", u.ID,
		"record_type", recordType,
		"operation", op,
	)
	return u, nil
}

// Pending returns all unconfirmed updates, oldest first.
func (m *Manager) Pending(ctx context.Context) ([]*Update, error) {
	items, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// GetStats returns ledger counters for display.
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	count, err := m.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{Pending: count}, nil
}

// Confirm removes a pending entry once the server accepted the mutation.
// Confirming an id that is unknown or already resolved is a no-op so
// duplicate sync-cycle invocations are harmless.
func (m *Manager) Confirm(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if _, err := m.repo.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("confirm optimistic update %s: %w", id, err)
	}
	m.log.Debug("optimistic update confirmed", "id", id)
	return nil
}

// Rollback removes a pending entry and instructs the local data layer to
// revert the associated write. Like Confirm it is idempotent: an unknown
// or already-resolved id is a no-op. A revert failure keeps the entry and
// surfaces the error, since silently dropping it would leave the UI
// showing state the server rejected.
func (m *Manager) Rollback(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	u, err := m.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	if err := m.revert(ctx, u); err != nil {
		return fmt.Errorf("%w: update %s: %v", ErrRollbackFailed, id, err)
	}

	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("rollback optimistic update %s: %w", id, err)
	}

	m.log.Info("optimistic update rolled back",
		"id", id,
		"record_type", u.RecordType,
		"record_id", u.RecordID,
	)
	return nil
}
