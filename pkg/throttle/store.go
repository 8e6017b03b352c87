//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "Store=Store"
package throttle

import "context"

// Store is the shared state of every queue. Each operation must be atomic.
type Store interface {
	// PushAndTryLockItem appends task to the queue and takes the queue lock for it if the lock is free.
	PushAndTryLockItem(ctx context.Context, queueID string, task Task) (Snapshot, error)
	// TryLockItem takes the queue lock for task if the lock is free.
	TryLockItem(ctx context.Context, queueID string, task Task) (Snapshot, error)
	// RemoveItem removes the task from the queue and releases the lock if the task holds it.
	RemoveItem(ctx context.Context, queueID, taskID string) error
}

// StoreFuncs builds a Store from plain functions.
type StoreFuncs struct {
	PushAndTryLockItemFunc func(ctx context.Context, queueID string, task Task) (Snapshot, error)
	TryLockItemFunc        func(ctx context.Context, queueID string, task Task) (Snapshot, error)
	RemoveItemFunc         func(ctx context.Context, queueID, taskID string) error
}

func (s StoreFuncs) PushAndTryLockItem(ctx context.Context, queueID string, task Task) (Snapshot, error) {
	return s.PushAndTryLockItemFunc(ctx, queueID, task)
}

func (s StoreFuncs) TryLockItem(ctx context.Context, queueID string, task Task) (Snapshot, error) {
	return s.TryLockItemFunc(ctx, queueID, task)
}

func (s StoreFuncs) RemoveItem(ctx context.Context, queueID, taskID string) error {
	return s.RemoveItemFunc(ctx, queueID, taskID)
}
