package task

import (
	"errors"
	"time"
)

var (
	// ErrTaskNotFound covers both a missing task and a task owned by
	// someone else.
	ErrTaskNotFound = errors.New("task not found")

	ErrValidation = errors.New("validation failed")
)

type Task struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"user_id"`
}

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// TaskEvent is published after every successful task mutation.
type TaskEvent struct {
	Type       EventType `json:"type"`
	TaskID     int       `json:"task_id"`
	UserID     int       `json:"user_id"`
	Text       string    `json:"text"`
	Completed  bool      `json:"completed"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTaskEvent(eventType EventType, t *Task, at time.Time) TaskEvent {
	return TaskEvent{
		Type:       eventType,
		TaskID:     t.ID,
		UserID:     t.UserID,
		Text:       t.Text,
		Completed:  t.Completed,
		OccurredAt: at.UTC(),
	}
}
