package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/klwxsrx/go-throttle/pkg/throttle"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

const (
	itemTable = "throttle_item"
	lockTable = "throttle_lock"
)

var _ throttle.Store = (*ThrottleStore)(nil)

type (
	ThrottleStore struct {
		db    Database
		clock pkgtime.Clock
	}

	ThrottleStoreOption func(*ThrottleStore)

	sqlxItem struct {
		TaskID  string `db:"task_id"`
		DelayMs int64  `db:"delay_ms"`
	}
)

func WithStoreClock(clock pkgtime.Clock) ThrottleStoreOption {
	return func(s *ThrottleStore) {
		s.clock = clock
	}
}

// NewThrottleStore needs the tables created by the throttle migrations.
func NewThrottleStore(db Database, opts ...ThrottleStoreOption) *ThrottleStore {
	s := &ThrottleStore{
		db:    db,
		clock: pkgtime.NewClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *ThrottleStore) PushAndTryLockItem(ctx context.Context, queueID string, task throttle.Task) (snapshot throttle.Snapshot, err error) {
	err = s.withinQueueTransaction(ctx, queueID, func(ctx context.Context, tx ClientTx) error {
		query, args, err := s.db.Builder().
			Insert(itemTable).
			Columns("queue_id", "task_id", "delay_ms").
			Values(queueID, task.ID, task.Delay.Milliseconds()).
			ToSql()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("push task: %w", err)
		}

		snapshot, err = s.tryLock(ctx, tx, queueID, task)
		return err
	})
	return snapshot, err
}

func (s *ThrottleStore) TryLockItem(ctx context.Context, queueID string, task throttle.Task) (snapshot throttle.Snapshot, err error) {
	err = s.withinQueueTransaction(ctx, queueID, func(ctx context.Context, tx ClientTx) error {
		snapshot, err = s.tryLock(ctx, tx, queueID, task)
		return err
	})
	return snapshot, err
}

func (s *ThrottleStore) RemoveItem(ctx context.Context, queueID, taskID string) error {
	return s.withinQueueTransaction(ctx, queueID, func(ctx context.Context, tx ClientTx) error {
		for _, table := range []string{itemTable, lockTable} {
			query, args, err := s.db.Builder().
				Delete(table).
				Where("queue_id = ? AND task_id = ?", queueID, taskID).
				ToSql()
			if err != nil {
				return err
			}

			_, err = tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("remove task from %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *ThrottleStore) withinQueueTransaction(ctx context.Context, queueID string, fn func(ctx context.Context, tx ClientTx) error) error {
	return WithinTransaction(ctx, s.db, func(ctx context.Context, tx ClientTx) error {
		err := withTransactionLevelLock(ctx, s.db.Dialect(), "throttle_queue_"+queueID, tx)
		if err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func (s *ThrottleStore) tryLock(ctx context.Context, tx ClientTx, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	now := s.clock.Now()

	query, args, err := s.db.Builder().
		Delete(lockTable).
		Where("queue_id = ? AND expires_at <= ?", queueID, now.UnixMilli()).
		ToSql()
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("delete expired lock: %w", err)
	}

	query, args, err = s.db.Builder().
		Insert(lockTable).
		Columns("queue_id", "task_id", "expires_at").
		Values(queueID, task.ID, now.Add(throttle.LockTTL(task)).UnixMilli()).
		Suffix("ON CONFLICT (queue_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock queue: %w", err)
	}

	return s.snapshot(ctx, tx, queueID)
}

func (s *ThrottleStore) snapshot(ctx context.Context, tx ClientTx, queueID string) (throttle.Snapshot, error) {
	query, args, err := s.db.Builder().
		Select("task_id", "delay_ms").
		From(itemTable).
		Where("queue_id = ?", queueID).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var items []sqlxItem
	err = tx.SelectContext(ctx, &items, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select queue items: %w", err)
	}

	query, args, err = s.db.Builder().
		Select("task_id").
		From(lockTable).
		Where("queue_id = ?", queueID).
		ToSql()
	if err != nil {
		return nil, err
	}

	var lockedID string
	err = tx.GetContext(ctx, &lockedID, query, args...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select queue lock: %w", err)
	}

	snapshot := make(throttle.Snapshot, 0, len(items))
	for _, item := range items {
		snapshot = append(snapshot, throttle.Item{
			ID:     item.TaskID,
			Delay:  time.Duration(item.DelayMs) * time.Millisecond,
			Locked: lockedID != "" && item.TaskID == lockedID,
		})
	}
	return snapshot, nil
}
