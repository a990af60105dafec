package worker

import (
	"context"
	"database/sql"
	"fmt"
	"task_list/internal/activity"
	"task_list/internal/observability"
	"task_list/internal/queue"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Worker consumes task events and records them as user activity.
type Worker struct {
	id      int
	conn    *amqp.Connection
	metrics *observability.Metrics
	record  func(ctx context.Context, entry *activity.Entry) error
}

func NewWorker(id int, conn *amqp.Connection, db *sql.DB, repo activity.ActivityRepositoryInterface, metrics *observability.Metrics) *Worker {
	return &Worker{
		id:      id,
		conn:    conn,
		metrics: metrics,
		record:  recordEntry(db, repo),
	}
}

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Create new headers with incremented retry count
	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

// Run consumes until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context) error {
	ch, err := queue.CreateChannel(w.conn)
	if err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("worker %d failed to set QoS: %w", w.id, err)
	}

	msgs, err := ch.Consume(
		queue.TaskEventsQueue,
		fmt.Sprintf("activity-worker-%d", w.id),
		false, // manual ACK
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("worker %d failed to start consuming messages: %w", w.id, err)
	}

	logrus.Infof("Worker %d started", w.id)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", w.id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("worker %d: delivery channel closed", w.id)
			}
			w.handle(ctx, ch, &msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, ch *amqp.Channel, msg *amqp.Delivery) {
	w.metrics.MessageConsumed(queue.TaskEventsQueue)
	start := time.Now()
	defer func() {
		w.metrics.ObserveEventProcessing(time.Since(start).Seconds())
	}()

	switch w.process(ctx, msg) {
	case outcomeAck:
		_ = msg.Ack(false)
	case outcomeDrop:
		_ = msg.Nack(false, false)
	case outcomeRetry:
		retryCount := retryCountOf(msg) + 1
		logrus.Infof("Worker %d: requeuing event (retry %d/%d)", w.id, retryCount, maxRetries)

		if err := republishWithRetry(ch, msg, retryCount); err != nil {
			logrus.WithError(err).Error("Failed to republish message")
			w.metrics.EventFailed("republish_error")
			_ = msg.Nack(false, true)
			return
		}

		w.metrics.MessagePublished(queue.TaskEventsQueue)
		_ = msg.Ack(false)
	}
}
