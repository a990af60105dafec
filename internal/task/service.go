package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"task_list/internal/cache"
	"task_list/internal/observability"
	"task_list/internal/queue"
	"time"

	"github.com/sirupsen/logrus"
)

const sideEffectTimeout = 2 * time.Second

// Cache is the subset of cache.TaskCache the service uses.
type Cache interface {
	Generation(ctx context.Context, base string) (int64, error)
	Bump(ctx context.Context, base string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data interface{}) error
}

// Publisher is the subset of queue.Publisher the service uses.
type Publisher interface {
	Publish(ctx context.Context, queueName string, payload interface{}) error
}

type TaskServiceInterface interface {
	CreateTask(ctx context.Context, userID int, text string, completed bool) (*Task, error)
	ListTasks(ctx context.Context, userID int) ([]*Task, error)
	UpdateTask(ctx context.Context, userID, taskID int, text string, completed bool) (*Task, error)
	DeleteTask(ctx context.Context, userID, taskID int) (*Task, error)
}

type TaskService struct {
	repo      TaskRepositoryInterface
	cache     Cache
	publisher Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewTaskService wires the store with the optional cache and event
// publisher; either may be nil.
func NewTaskService(repo TaskRepositoryInterface, cache Cache, publisher Publisher, metrics *observability.Metrics) TaskServiceInterface {
	return &TaskService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, userID int, text string, completed bool) (*Task, error) {
	if err := validate(userID, text); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Task{
		Text:      text,
		Completed: completed,
		UserID:    userID,
	})
	if err != nil {
		s.metrics.TaskOperation("create", "error")
		return nil, err
	}

	s.metrics.TaskOperation("create", "success")
	s.afterMutation(ctx, EventCreated, created)
	return created, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID int) ([]*Task, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}

	// The generation is read before the store so a mutation committed
	// during the read bumps it and this snapshot lands under a dead key.
	cacheKey, cacheable := s.listCacheKey(ctx, userID)
	if cacheable {
		if tasks, ok := s.cachedList(ctx, cacheKey); ok {
			logrus.Debugf("cache hit for user %d tasks", userID)
			s.metrics.CacheHit("user_tasks")
			return tasks, nil
		}
		s.metrics.CacheMiss("user_tasks")
	}

	tasks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.metrics.TaskOperation("list", "error")
		return nil, err
	}

	if cacheable {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
		defer cancel()
		if err := s.cache.Set(cctx, cacheKey, tasks); err != nil {
			logrus.WithError(err).Warn("Failed to set cache for user tasks")
		}
	}

	s.metrics.TaskOperation("list", "success")
	return tasks, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID int, text string, completed bool) (*Task, error) {
	if err := validate(userID, text); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, taskID, userID, text, completed)
	if err != nil {
		s.metrics.TaskOperation("update", resultOf(err))
		return nil, err
	}

	s.metrics.TaskOperation("update", "success")
	s.afterMutation(ctx, EventUpdated, updated)
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int) (*Task, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}

	deleted, err := s.repo.Delete(ctx, taskID, userID)
	if err != nil {
		s.metrics.TaskOperation("delete", resultOf(err))
		return nil, err
	}

	s.metrics.TaskOperation("delete", "success")
	s.afterMutation(ctx, EventDeleted, deleted)
	return deleted, nil
}

func (s *TaskService) listCacheKey(ctx context.Context, userID int) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	base := cache.UserTasksKey(userID)
	gen, err := s.cache.Generation(ctx, base)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read task cache generation")
		return "", false
	}
	return cache.VersionedKey(base, gen), true
}

func (s *TaskService) cachedList(ctx context.Context, key string) ([]*Task, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read task cache")
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var tasks []*Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		logrus.WithError(err).Warn("Discarding unreadable task cache entry")
		return nil, false
	}
	if tasks == nil {
		tasks = make([]*Task, 0)
	}
	return tasks, true
}

// afterMutation bumps the owner's list generation and publishes the event.
// The write is already committed, so failures here are only logged.
func (s *TaskService) afterMutation(ctx context.Context, eventType EventType, t *Task) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Bump(sctx, cache.UserTasksKey(t.UserID)); err != nil {
			logrus.WithError(err).WithField("user_id", t.UserID).Warn("Failed to invalidate task cache")
		}
	}

	if s.publisher != nil {
		event := NewTaskEvent(eventType, t, s.now())
		if err := s.publisher.Publish(sctx, queue.TaskEventsQueue, event); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"task_id": t.ID,
				"event":   eventType,
			}).Warn("Failed to publish task event")
		}
	}
}

func validate(userID int, text string) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user is required", ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	return nil
}

func resultOf(err error) string {
	if errors.Is(err, ErrTaskNotFound) {
		return "not_found"
	}
	return "error"
}
