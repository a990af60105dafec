package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"task_list/internal/activity"
	"task_list/internal/task"
	"task_list/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const maxRetries = 3

// errPermanent marks messages that will never succeed and must not be retried.
var errPermanent = errors.New("permanent failure")

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeDrop
)

// decodeEvent parses a task event body into the entry to record.
func decodeEvent(body []byte) (*activity.Entry, error) {
	var event task.TaskEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: invalid payload: %v", errPermanent, err)
	}

	entry, err := activity.FromEvent(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errPermanent, err)
	}

	return entry, nil
}

func recordEntry(db *sql.DB, repo activity.ActivityRepositoryInterface) func(ctx context.Context, entry *activity.Entry) error {
	return func(ctx context.Context, entry *activity.Entry) error {
		return utils.WithTransaction(ctx, db, func(tx *sql.Tx) error {
			_, err := repo.Record(ctx, tx, entry)
			return err
		})
	}
}

func retryCountOf(msg *amqp.Delivery) int32 {
	if msg.Headers == nil {
		return 0
	}

	switch count := msg.Headers["x-retry-count"].(type) {
	case int32:
		return count
	case int64:
		return int32(count)
	case int:
		return int32(count)
	}
	return 0
}

// process records one delivery and decides what happens to it.
func (w *Worker) process(ctx context.Context, msg *amqp.Delivery) outcome {
	entry, err := decodeEvent(msg.Body)
	if err != nil {
		logrus.WithError(err).Errorf("Worker %d dropping message", w.id)
		w.metrics.EventFailed("invalid_payload")
		return outcomeDrop
	}

	retryCount := retryCountOf(msg)

	logrus.Debugf(
		"Worker %d recording %s of task=%d for user=%d (retry: %d)",
		w.id,
		entry.Action,
		entry.TaskID,
		entry.UserID,
		retryCount,
	)

	if err := w.record(ctx, entry); err != nil {
		logrus.WithError(err).Error("Failed to record task activity")

		if retryCount >= maxRetries {
			w.metrics.EventFailed("max_retries")
			return outcomeDrop
		}

		w.metrics.EventFailed("record_error")
		return outcomeRetry
	}

	return outcomeAck
}
