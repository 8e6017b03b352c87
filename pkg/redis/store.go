// Package redis implements throttle.Store on top of a redis list and a lock key per queue,
// so every process sharing the redis server shares the queues.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

var _ throttle.Store = (*Store)(nil)

// removeScript drops every entry of the task and releases the lock when the task holds it.
var removeScript = goredis.NewScript(`
local items = redis.call('LRANGE', KEYS[1], 0, -1)
for _, raw in ipairs(items) do
	local ok, item = pcall(cjson.decode, raw)
	if ok and type(item) == 'table' and item['id'] == ARGV[1] then
		redis.call('LREM', KEYS[1], 0, raw)
	end
end
if redis.call('GET', KEYS[2]) == ARGV[1] then
	redis.call('DEL', KEYS[2])
end
return 1
`)

type (
	Option func(*Store)

	Store struct {
		client    goredis.Cmdable
		keyPrefix string
	}
)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}

// NewStore does not own the client.
func NewStore(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) PushAndTryLockItem(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, queueKey(s.keyPrefix, queueID), payload)
	return s.lockAndRead(ctx, pipe, queueID, task)
}

func (s *Store) TryLockItem(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	return s.lockAndRead(ctx, s.client.TxPipeline(), queueID, task)
}

func (s *Store) RemoveItem(ctx context.Context, queueID, taskID string) error {
	keys := []string{
		queueKey(s.keyPrefix, queueID),
		lockKey(s.keyPrefix, queueID),
	}

	err := removeScript.Run(ctx, s.client, keys, taskID).Err()
	if err != nil {
		return fmt.Errorf("failed to remove task %s: %w", taskID, err)
	}
	return nil
}

// Len returns the number of tasks in the queue.
func (s *Store) Len(ctx context.Context, queueID string) (int64, error) {
	return s.client.LLen(ctx, queueKey(s.keyPrefix, queueID)).Result()
}

func (s *Store) lockAndRead(ctx context.Context, pipe goredis.Pipeliner, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	pipe.SetNX(ctx, lockKey(s.keyPrefix, queueID), task.ID, throttle.LockTTL(task))
	items := pipe.LRange(ctx, queueKey(s.keyPrefix, queueID), 0, -1)
	locked := pipe.Get(ctx, lockKey(s.keyPrefix, queueID))

	_, err := pipe.Exec(ctx)
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to lock queue %s: %w", queueID, err)
	}

	lockedID, err := locked.Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to get queue %s lock: %w", queueID, err)
	}

	return decodeSnapshot(items.Val(), lockedID)
}

func decodeSnapshot(items []string, lockedID string) (throttle.Snapshot, error) {
	snapshot := make(throttle.Snapshot, 0, len(items))
	for _, raw := range items {
		var task throttle.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("failed to decode queued task: %w", err)
		}

		snapshot = append(snapshot, task.Item(lockedID != "" && task.ID == lockedID))
	}
	return snapshot, nil
}
