package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type TaskRepository struct {
	db *sql.DB
}

// TaskRepositoryInterface filters by owner inside every statement, so a
// task of another user is indistinguishable from a missing one.
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *Task) (*Task, error)
	ListByUser(ctx context.Context, userID int) ([]*Task, error)
	Update(ctx context.Context, id, userID int, text string, completed bool) (*Task, error)
	Delete(ctx context.Context, id, userID int) (*Task, error)
}

func NewTaskRepository(db *sql.DB) TaskRepositoryInterface {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *Task) (*Task, error) {
	query := `
		INSERT INTO tasks (
			text, completed, user_id
		)
		VALUES ($1, $2, $3)
		RETURNING id, text, completed, user_id
	`

	row := r.db.QueryRowContext(ctx, query,
		task.Text,
		task.Completed,
		task.UserID,
	)

	created, err := scanTask(row)
	if err != nil {
		logrus.WithError(err).WithField("user_id", task.UserID).Error("Failed to create task")
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return created, nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID int) ([]*Task, error) {
	query := `
		SELECT id, text, completed, user_id
		FROM tasks
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, id, userID int, text string, completed bool) (*Task, error) {
	query := `
		UPDATE tasks
		SET text = $1, completed = $2
		WHERE id = $3 AND user_id = $4
		RETURNING id, text, completed, user_id
	`

	row := r.db.QueryRowContext(ctx, query, text, completed, id, userID)

	updated, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to update task")
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID int) (*Task, error) {
	query := `
		DELETE FROM tasks
		WHERE id = $1 AND user_id = $2
		RETURNING id, text, completed, user_id
	`

	row := r.db.QueryRowContext(ctx, query, id, userID)

	deleted, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		logrus.WithError(err).WithField("task_id", id).Error("Failed to delete task")
		return nil, fmt.Errorf("failed to delete task: %w", err)
	}

	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	if err := row.Scan(
		&t.ID,
		&t.Text,
		&t.Completed,
		&t.UserID,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
