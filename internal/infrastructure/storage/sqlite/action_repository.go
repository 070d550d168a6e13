package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careline/internal/domain/action"
)

// ActionRepository persists queued actions.
type ActionRepository struct {
	db *sql.DB
}

func (r *ActionRepository) Save(ctx context.Context, a *action.QueuedAction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO queued_actions (id, type, payload, priority, created_at, retries, update_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			payload = excluded.payload,
			priority = excluded.priority,
			created_at = excluded.created_at,
			retries = excluded.retries,
			update_id = excluded.update_id
	`, a.ID, string(a.Type), []byte(a.Payload), int(a.Priority),
		a.Timestamp.UTC().Format(time.RFC3339Nano), a.Retries, a.UpdateID)
	if err != nil {
		return fmt.Errorf("save queued action: %w", err)
	}
	return nil
}

func (r *ActionRepository) Get(ctx context.Context, id string) (*action.QueuedAction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, payload, priority, created_at, retries, update_id
		FROM queued_actions
		WHERE id = ?
	`, id)

	a, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, action.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queued action: %w", err)
	}
	return a, nil
}

func (r *ActionRepository) List(ctx context.Context) ([]*action.QueuedAction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, payload, priority, created_at, retries, update_id
		FROM queued_actions
		ORDER BY priority DESC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list queued actions: %w", err)
	}
	defer rows.Close()

	var actions []*action.QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queued action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queued actions: %w", err)
	}
	return actions, nil
}

func (r *ActionRepository) UpdateRetries(ctx context.Context, id string, retries int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE queued_actions SET retries = ? WHERE id = ?", retries, id)
	if err != nil {
		return fmt.Errorf("update retries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update retries: %w", err)
	}
	if affected == 0 {
		return action.ErrNotFound
	}
	return nil
}

func (r *ActionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM queued_actions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete queued action: %w", err)
	}
	return nil
}

func (r *ActionRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM queued_actions")
	if err != nil {
		return fmt.Errorf("clear queued actions: %w", err)
	}
	return nil
}

func (r *ActionRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queued_actions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count queued actions: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*action.QueuedAction, error) {
	var (
		a         action.QueuedAction
		typ       string
		payload   []byte
		priority  int
		createdAt string
	)
	if err := row.Scan(&a.ID, &typ, &payload, &priority, &createdAt, &a.Retries, &a.UpdateID); err != nil {
		return nil, err
	}

	a.Type = action.Type(typ)
	a.Payload = payload
	a.Priority = action.Priority(priority)

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	a.Timestamp = ts

	return &a, nil
}
