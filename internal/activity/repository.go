package activity

import (
	"context"
	"database/sql"
	"fmt"
)

// DefaultListLimit caps how many entries ListByUser returns.
const DefaultListLimit = 100

type ActivityRepositoryInterface interface {
	Record(ctx context.Context, tx *sql.Tx, entry *Entry) (*Entry, error)
	ListByUser(ctx context.Context, userID, limit int) ([]*Entry, error)
}

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) ActivityRepositoryInterface {
	return &ActivityRepository{db: db}
}

// Record inserts entry inside the caller's transaction.
func (r *ActivityRepository) Record(ctx context.Context, tx *sql.Tx, entry *Entry) (*Entry, error) {
	query := `
		INSERT INTO task_activity (
			user_id, task_id, action, text, completed, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	recorded := *entry
	err := tx.QueryRowContext(ctx, query,
		entry.UserID,
		entry.TaskID,
		entry.Action,
		entry.Text,
		entry.Completed,
		entry.OccurredAt,
	).Scan(&recorded.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert activity: %w", err)
	}

	return &recorded, nil
}

// ListByUser returns the newest entries of userID first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, user_id, task_id, action, text, completed, occurred_at
		FROM task_activity
		WHERE user_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.TaskID,
			&e.Action,
			&e.Text,
			&e.Completed,
			&e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return entries, nil
}
