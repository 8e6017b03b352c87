// Package memory keeps throttle queues in the memory of a single process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/klwxsrx/go-throttle/pkg/throttle"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

type (
	Store struct {
		clock pkgtime.Clock

		mutex  sync.Mutex
		queues map[string][]throttle.Task
		locks  map[string]lock
	}

	lock struct {
		taskID    string
		expiresAt time.Time
	}

	Option func(*Store)
)

func WithClock(clock pkgtime.Clock) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:  pkgtime.NewClock(),
		queues: make(map[string][]throttle.Task),
		locks:  make(map[string]lock),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) PushAndTryLockItem(_ context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.queues[queueID] = append(s.queues[queueID], task)
	s.tryLock(queueID, task)
	return s.snapshot(queueID), nil
}

func (s *Store) TryLockItem(_ context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tryLock(queueID, task)
	return s.snapshot(queueID), nil
}

func (s *Store) RemoveItem(_ context.Context, queueID, taskID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tasks := s.queues[queueID]
	kept := tasks[:0]
	for _, task := range tasks {
		if task.ID != taskID {
			kept = append(kept, task)
		}
	}
	if len(kept) == 0 {
		delete(s.queues, queueID)
	} else {
		s.queues[queueID] = kept
	}

	if l, ok := s.activeLock(queueID); ok && l.taskID == taskID {
		delete(s.locks, queueID)
	}
	return nil
}

// Len returns the number of tasks in the queue.
func (s *Store) Len(queueID string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.queues[queueID])
}

func (s *Store) tryLock(queueID string, task throttle.Task) {
	if _, ok := s.activeLock(queueID); ok {
		return
	}

	s.locks[queueID] = lock{
		taskID:    task.ID,
		expiresAt: s.clock.Now().Add(throttle.LockTTL(task)),
	}
}

func (s *Store) activeLock(queueID string) (lock, bool) {
	l, ok := s.locks[queueID]
	if !ok {
		return lock{}, false
	}
	if !s.clock.Now().Before(l.expiresAt) {
		delete(s.locks, queueID)
		return lock{}, false
	}
	return l, true
}

func (s *Store) snapshot(queueID string) throttle.Snapshot {
	l, locked := s.activeLock(queueID)

	tasks := s.queues[queueID]
	snapshot := make(throttle.Snapshot, 0, len(tasks))
	for _, task := range tasks {
		snapshot = append(snapshot, task.Item(locked && task.ID == l.taskID))
	}
	return snapshot
}
