package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careline/internal/domain/optimistic"
)

// OptimisticRepository persists the optimistic update ledger.
type OptimisticRepository struct {
	db *sql.DB
}

func (r *OptimisticRepository) Save(ctx context.Context, u *optimistic.Update) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO optimistic_updates (id, record_type, record_id, operation, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			record_type = excluded.record_type,
			record_id = excluded.record_id,
			operation = excluded.operation,
			created_at = excluded.created_at
	`, u.ID, u.RecordType, u.RecordID, string(u.Operation),
		u.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save optimistic update: %w", err)
	}
	return nil
}

func (r *OptimisticRepository) Get(ctx context.Context, id string) (*optimistic.Update, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, record_type, record_id, operation, created_at
		FROM optimistic_updates
		WHERE id = ?
	`, id)

	u, err := scanUpdate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, optimistic.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get optimistic update: %w", err)
	}
	return u, nil
}

func (r *OptimisticRepository) List(ctx context.Context) ([]*optimistic.Update, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, record_type, record_id, operation, created_at
		FROM optimistic_updates
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list optimistic updates: %w", err)
	}
	defer rows.Close()

	var updates []*optimistic.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan optimistic update: %w", err)
		}
		updates = append(updates, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list optimistic updates: %w", err)
	}
	return updates, nil
}

func (r *OptimisticRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM optimistic_updates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete optimistic update: %w", err)
	}
	return nil
}

func (r *OptimisticRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM optimistic_updates").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count optimistic updates: %w", err)
	}
	return count, nil
}

func scanUpdate(row rowScanner) (*optimistic.Update, error) {
	var (
		u         optimistic.Update
		operation string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.RecordType, &u.RecordID, &operation, &createdAt); err != nil {
		return nil, err
	}

	u.Operation = optimistic.Operation(operation)

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	u.CreatedAt = ts

	return &u, nil
}
