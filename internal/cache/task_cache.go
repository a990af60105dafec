package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const TaskCacheTTL = 10 * time.Minute

// TaskCache stores JSON snapshots under versioned keys. Each base key has a
// generation counter; bumping it orphans every snapshot taken before, and
// orphans expire with the TTL.
type TaskCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTaskCache(client *redis.Client) *TaskCache {
	return &TaskCache{client: client, ttl: TaskCacheTTL}
}

// Generation returns the current generation of base, 0 if it was never
// bumped.
func (c *TaskCache) Generation(ctx context.Context, base string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(base)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// Bump advances the generation of base. The counter has no TTL so it never
// falls back to a value whose snapshots may still be alive.
func (c *TaskCache) Bump(ctx context.Context, base string) error {
	return c.client.Incr(ctx, generationKey(base)).Err()
}

// Get returns the cached bytes for key, or nil on a cache miss.
func (c *TaskCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores data as JSON under key with the cache TTL.
func (c *TaskCache) Set(ctx context.Context, key string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, jsonData, c.ttl).Err()
}

// UserTasksKey is the base cache key of one user's task list.
func UserTasksKey(userID int) string {
	return fmt.Sprintf("tasks:user:%d", userID)
}

// VersionedKey is where the snapshot of base at generation gen lives.
func VersionedKey(base string, gen int64) string {
	return fmt.Sprintf("%s:v%d", base, gen)
}

func generationKey(base string) string {
	return base + ":gen"
}
