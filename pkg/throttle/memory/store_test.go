package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/throttle"
	"github.com/klwxsrx/go-throttle/pkg/throttle/memory"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

const queueID = "memory-queue"

func TestStore_PushAndTryLockItem_LocksFirstTask(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(pkgtime.NewFakeClock(time.Unix(0, 0))))
	first := throttle.Task{QueueID: queueID, ID: "first", Delay: time.Second}
	second := throttle.Task{QueueID: queueID, ID: "second", Delay: time.Second}

	snapshot, err := store.PushAndTryLockItem(ctx, queueID, first)
	require.NoError(t, err)
	require.Equal(t, throttle.Snapshot{first.Item(true)}, snapshot)

	snapshot, err = store.PushAndTryLockItem(ctx, queueID, second)
	require.NoError(t, err)
	require.Equal(t, throttle.Snapshot{first.Item(true), second.Item(false)}, snapshot)
}

func TestStore_RemoveItem_ReleasesLockOfHolder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithClock(pkgtime.NewFakeClock(time.Unix(0, 0))))
	first := throttle.Task{QueueID: queueID, ID: "first", Delay: time.Second}
	second := throttle.Task{QueueID: queueID, ID: "second", Delay: time.Second}

	_, err := store.PushAndTryLockItem(ctx, queueID, first)
	require.NoError(t, err)
	_, err = store.PushAndTryLockItem(ctx, queueID, second)
	require.NoError(t, err)

	require.NoError(t, store.RemoveItem(ctx, queueID, second.ID))
	snapshot, err := store.TryLockItem(ctx, queueID, first)
	require.NoError(t, err)
	require.Equal(t, throttle.Snapshot{first.Item(true)}, snapshot)

	require.NoError(t, store.RemoveItem(ctx, queueID, first.ID))
	require.Zero(t, store.Len(queueID))
}

func TestStore_TryLockItem_TakesExpiredLock(t *testing.T) {
	ctx := context.Background()
	clock := pkgtime.NewFakeClock(time.Unix(0, 0))
	store := memory.NewStore(memory.WithClock(clock))
	crashed := throttle.Task{QueueID: queueID, ID: "crashed", Delay: time.Second}
	waiting := throttle.Task{QueueID: queueID, ID: "waiting", Delay: time.Second}

	_, err := store.PushAndTryLockItem(ctx, queueID, crashed)
	require.NoError(t, err)
	_, err = store.PushAndTryLockItem(ctx, queueID, waiting)
	require.NoError(t, err)

	clock.Advance(throttle.LockTTL(crashed) - time.Millisecond)
	snapshot, err := store.TryLockItem(ctx, queueID, waiting)
	require.NoError(t, err)
	require.Equal(t, throttle.Snapshot{crashed.Item(true), waiting.Item(false)}, snapshot)

	clock.Advance(time.Millisecond)
	snapshot, err = store.TryLockItem(ctx, queueID, waiting)
	require.NoError(t, err)
	require.Equal(t, throttle.Snapshot{crashed.Item(false), waiting.Item(true)}, snapshot)
}

func TestStore_RemoveItem_UnknownTask_DoesNothing(t *testing.T) {
	store := memory.NewStore()
	require.NoError(t, store.RemoveItem(context.Background(), queueID, "unknown"))
	require.Zero(t, store.Len(queueID))
}
