package activity

import (
	"errors"
	"fmt"
	"strings"
	"task_list/internal/task"
	"time"
)

var ErrInvalidEvent = errors.New("invalid task event")

// Entry is one recorded task mutation in a user's activity trail.
type Entry struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	TaskID     int       `json:"task_id"`
	Action     string    `json:"action"`
	Text       string    `json:"text"`
	Completed  bool      `json:"completed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromEvent maps a task event to the entry the worker records for it.
func FromEvent(e task.TaskEvent) (*Entry, error) {
	switch e.Type {
	case task.EventCreated, task.EventUpdated, task.EventDeleted:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}

	if e.UserID <= 0 || e.TaskID <= 0 {
		return nil, fmt.Errorf("%w: missing user or task id", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidEvent)
	}
	if e.OccurredAt.IsZero() {
		return nil, fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}

	return &Entry{
		UserID:     e.UserID,
		TaskID:     e.TaskID,
		Action:     string(e.Type),
		Text:       e.Text,
		Completed:  e.Completed,
		OccurredAt: e.OccurredAt.UTC(),
	}, nil
}
