package throttle_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/klwxsrx/go-throttle/pkg/event"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
	"github.com/klwxsrx/go-throttle/pkg/throttle/memory"
	throttlemock "github.com/klwxsrx/go-throttle/pkg/throttle/mock"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

const testInterval = 12 * time.Second

var testConfig = throttle.Config{
	QueueID:       "qid-test-000",
	RatePerMinute: 5,
}

func newTestQueue(t *testing.T, clock *pkgtime.FakeClock) *throttle.Queue {
	queue, err := throttle.NewQueue(
		memory.NewStore(memory.WithClock(clock)),
		testConfig,
		throttle.WithClock(clock),
		throttle.WithIDGenerator(throttle.NewIDGenerator(&throttle.Counter{}, throttle.WithIDClock(clock))),
	)
	require.NoError(t, err)
	return queue
}

type errorRecorder struct {
	mutex  sync.Mutex
	errors []error
}

func (r *errorRecorder) handle(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.errors = append(r.errors, err)
}

func (r *errorRecorder) get() []error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]error(nil), r.errors...)
}

type storeCall struct {
	method string
	at     time.Time
}

// recordingStore wraps the memory store and records the time of every call.
func recordingStore(clock *pkgtime.FakeClock) (throttle.StoreFuncs, func() []storeCall) {
	store := memory.NewStore(memory.WithClock(clock))

	var mutex sync.Mutex
	var calls []storeCall
	record := func(method string) {
		mutex.Lock()
		defer mutex.Unlock()
		calls = append(calls, storeCall{method: method, at: clock.Now()})
	}

	return throttle.StoreFuncs{
			PushAndTryLockItemFunc: func(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
				record("push")
				return store.PushAndTryLockItem(ctx, queueID, task)
			},
			TryLockItemFunc: func(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
				record("tryLock")
				return store.TryLockItem(ctx, queueID, task)
			},
			RemoveItemFunc: func(ctx context.Context, queueID, taskID string) error {
				record("remove")
				return store.RemoveItem(ctx, queueID, taskID)
			},
		}, func() []storeCall {
			mutex.Lock()
			defer mutex.Unlock()
			return append([]storeCall(nil), calls...)
		}
}

func callsOf(calls []storeCall, method string) []storeCall {
	var result []storeCall
	for _, call := range calls {
		if call.method == method {
			result = append(result, call)
		}
	}
	return result
}

func TestSchedule_EarlyFailure_RejectsAndRemovesOnce(t *testing.T) {
	pushErr := errors.New("push failed")
	tryLockErr := errors.New("try lock failed")

	tests := []struct {
		name   string
		store  func(store *throttlemock.Store)
		expect func(t *testing.T, result *throttle.Result[int], err error)
	}{
		{
			name: "push_panics",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
					DoAndReturn(func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
						panic(pushErr)
					})
			},
			expect: func(t *testing.T, _ *throttle.Result[int], err error) {
				assert.Same(t, pushErr, err)
			},
		},
		{
			name: "push_returns_error",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).Return(nil, pushErr)
			},
			expect: func(t *testing.T, _ *throttle.Result[int], err error) {
				assert.Same(t, pushErr, err)
			},
		},
		{
			name: "push_panics_with_value",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
					DoAndReturn(func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
						panic("broken store")
					})
			},
			expect: func(t *testing.T, _ *throttle.Result[int], err error) {
				var panicErr *throttle.PanicError
				require.ErrorAs(t, err, &panicErr)
				assert.Equal(t, "broken store", panicErr.Value)
			},
		},
		{
			name: "task_disappeared",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).Return(throttle.Snapshot{}, nil)
			},
			expect: func(t *testing.T, result *throttle.Result[int], err error) {
				assert.ErrorIs(t, err, throttle.ErrTaskDisappeared)
				assert.EqualError(t, err, fmt.Sprintf("task id %q disappeared from the queue", result.TaskID()))
			},
		},
		{
			name: "try_lock_returns_error",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, task throttle.Task) (throttle.Snapshot, error) {
						return throttle.Snapshot{task.Item(false)}, nil
					})
				store.EXPECT().TryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).Return(nil, tryLockErr)
			},
			expect: func(t *testing.T, _ *throttle.Result[int], err error) {
				assert.Same(t, tryLockErr, err)
			},
		},
		{
			name: "try_lock_panics",
			store: func(store *throttlemock.Store) {
				store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ string, task throttle.Task) (throttle.Snapshot, error) {
						return throttle.Snapshot{task.Item(false)}, nil
					})
				store.EXPECT().TryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
					DoAndReturn(func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
						panic(tryLockErr)
					})
			},
			expect: func(t *testing.T, _ *throttle.Result[int], err error) {
				assert.Same(t, tryLockErr, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctrl := gomock.NewController(t)
			clock := pkgtime.NewFakeClock(time.Unix(0, 0))
			store := throttlemock.NewStore(ctrl)
			tt.store(store)

			var removedTaskID string
			store.EXPECT().RemoveItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
				Do(func(_ context.Context, _ string, taskID string) {
					removedTaskID = taskID
				}).
				Return(nil).
				Times(1)

			workCalled := false
			result, err := throttle.Schedule(ctx, store, testConfig, func(context.Context) (int, error) {
				workCalled = true
				return 42, nil
			}, throttle.WithClock(clock))
			require.NoError(t, err)

			go func() {
				clock.BlockUntil(1)
				clock.Advance(testInterval)
			}()

			_, err = result.Wait(ctx)
			require.Error(t, err)
			tt.expect(t, result, err)
			assert.Equal(t, result.TaskID(), removedTaskID)
			assert.False(t, workCalled)
		})
	}
}

func TestSchedule_EarlyFailure_ReportsRemoveError(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	pushErr := errors.New("push failed")
	removeErr := errors.New("remove failed")

	store := throttlemock.NewStore(ctrl)
	store.EXPECT().PushAndTryLockItem(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, pushErr)
	store.EXPECT().RemoveItem(gomock.Any(), gomock.Any(), gomock.Any()).Return(removeErr)

	recorder := &errorRecorder{}
	result, err := throttle.Schedule(ctx, store, testConfig, throttle.Value(42),
		throttle.WithEventHandler(event.Error, event.ErrorHandler(recorder.handle)),
	)
	require.NoError(t, err)

	_, err = result.Wait(ctx)
	require.Same(t, pushErr, err)
	require.Equal(t, []error{removeErr}, recorder.get())
}

func TestSchedule_RemoveError_DoesNotAffectResult(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	clock := pkgtime.NewFakeClock(time.Unix(0, 0))
	removeErr := errors.New("remove failed")

	store := throttlemock.NewStore(ctrl)
	store.EXPECT().PushAndTryLockItem(gomock.Any(), testConfig.QueueID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, task throttle.Task) (throttle.Snapshot, error) {
			return throttle.Snapshot{task.Item(true)}, nil
		})
	store.EXPECT().RemoveItem(gomock.Any(), testConfig.QueueID, gomock.Any()).Return(removeErr).Times(1)

	result, err := throttle.Schedule(ctx, store, testConfig, throttle.Value("V"), throttle.WithClock(clock))
	require.NoError(t, err)

	value, err := result.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "V", value)

	recorder := &errorRecorder{}
	require.NoError(t, result.OnError(recorder.handle))

	clock.Advance(testInterval)
	require.Equal(t, []error{removeErr}, recorder.get())

	value, err = result.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, "V", value)
}

func TestSchedule_Work_Returns(t *testing.T) {
	workErr := errors.New("work failed")

	tests := []struct {
		name   string
		work   throttle.Work[int]
		expect func(t *testing.T, value int, err error)
	}{
		{
			name: "value",
			work: throttle.Value(42),
			expect: func(t *testing.T, value int, err error) {
				assert.NoError(t, err)
				assert.Equal(t, 42, value)
			},
		},
		{
			name: "error",
			work: func(context.Context) (int, error) {
				return 0, workErr
			},
			expect: func(t *testing.T, _ int, err error) {
				assert.Same(t, workErr, err)
			},
		},
		{
			name: "panic_with_error",
			work: func(context.Context) (int, error) {
				panic(workErr)
			},
			expect: func(t *testing.T, _ int, err error) {
				assert.Same(t, workErr, err)
			},
		},
		{
			name: "panic_with_value",
			work: func(context.Context) (int, error) {
				panic(13)
			},
			expect: func(t *testing.T, _ int, err error) {
				var panicErr *throttle.PanicError
				require.ErrorAs(t, err, &panicErr)
				assert.Equal(t, 13, panicErr.Value)
				assert.NotEmpty(t, panicErr.Stack)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := pkgtime.NewFakeClock(time.Unix(0, 0))
			store, calls := recordingStore(clock)

			result, err := throttle.Schedule(ctx, store, testConfig, tt.work, throttle.WithClock(clock))
			require.NoError(t, err)

			value, err := result.Wait(ctx)
			tt.expect(t, value, err)

			// the lock is released by time, whatever the outcome of work
			require.Empty(t, callsOf(calls(), "remove"))
			clock.Advance(testInterval)
			require.Len(t, callsOf(calls(), "remove"), 1)
		})
	}
}

func TestSchedule_Work_ReceivesContextValues(t *testing.T) {
	type key struct{}
	clock := pkgtime.NewFakeClock(time.Unix(0, 0))
	store, _ := recordingStore(clock)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "value"))
	cancel()

	result, err := throttle.Schedule(ctx, store, testConfig, func(ctx context.Context) (any, error) {
		return ctx.Value(key{}), ctx.Err()
	}, throttle.WithClock(clock))
	require.NoError(t, err)

	value, err := result.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "value", value)
}

func TestSchedule_RemovesAfterInterval(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(1000, 0)
	clock := pkgtime.NewFakeClock(start)
	store, calls := recordingStore(clock)

	result, err := throttle.Schedule(ctx, store, testConfig, throttle.Value(42), throttle.WithClock(clock))
	require.NoError(t, err)

	value, err := result.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 42, value)

	clock.Advance(testInterval - time.Millisecond)
	require.Empty(t, callsOf(calls(), "remove"))

	clock.Advance(time.Millisecond)
	removes := callsOf(calls(), "remove")
	require.Len(t, removes, 1)
	require.Equal(t, start.Add(testInterval), removes[0].at)
}

func TestSchedule_WaitsForSumOfQueuedDelays(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(1000, 0)
	clock := pkgtime.NewFakeClock(start)
	store, calls := recordingStore(clock)
	queue, err := throttle.NewQueue(store, testConfig, throttle.WithClock(clock))
	require.NoError(t, err)

	first, err := throttle.Enqueue(ctx, queue, throttle.Value(1))
	require.NoError(t, err)
	_, err = first.Wait(ctx)
	require.NoError(t, err)

	second, err := throttle.Enqueue(ctx, queue, throttle.Value(2))
	require.NoError(t, err)

	// removal of the first task and the wait of the second one
	clock.BlockUntil(2)
	clock.Advance(testInterval)
	require.Empty(t, callsOf(calls(), "tryLock"))

	clock.Advance(testInterval)
	value, err := second.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, value)

	tryLocks := callsOf(calls(), "tryLock")
	require.Len(t, tryLocks, 1)
	require.Equal(t, start.Add(2*testInterval), tryLocks[0].at)
}

func TestSchedule_PublishesRemoved(t *testing.T) {
	ctx := context.Background()
	clock := pkgtime.NewFakeClock(time.Unix(1000, 0))
	store, _ := recordingStore(clock)

	removed := make(chan string, 1)
	result, err := throttle.Schedule(ctx, store, testConfig, throttle.Value(1),
		throttle.WithClock(clock),
		throttle.WithEventHandler(throttle.EventRemoved, func(payload any) {
			removed <- payload.(string)
		}),
	)
	require.NoError(t, err)

	_, err = result.Wait(ctx)
	require.NoError(t, err)
	require.Empty(t, removed)

	clock.Advance(testInterval)
	select {
	case id := <-removed:
		assert.Equal(t, result.TaskID(), id)
	case <-time.After(time.Second):
		require.Fail(t, "removed event was not published")
	}
}

func TestEnqueue_TaskIDUsesClockOfCall(t *testing.T) {
	ctx := context.Background()
	clock := pkgtime.NewFakeClock(time.Unix(1000, 0))

	queue, err := throttle.NewQueue(memory.NewStore(memory.WithClock(clock)), testConfig)
	require.NoError(t, err)

	result, err := throttle.Enqueue(ctx, queue, throttle.Value(1), throttle.WithClock(clock))
	require.NoError(t, err)

	parts := strings.Split(result.TaskID(), "-")
	require.Len(t, parts, 3)
	require.Equal(t, strconv.FormatInt(clock.Now().UnixNano(), 10), parts[1])

	_, err = result.Wait(ctx)
	require.NoError(t, err)
}

func TestEnqueue_ExplicitIDGeneratorKeptWithClockOfCall(t *testing.T) {
	ctx := context.Background()
	idClock := pkgtime.NewFakeClock(time.Unix(2000, 0))
	clock := pkgtime.NewFakeClock(time.Unix(1000, 0))

	queue, err := throttle.NewQueue(memory.NewStore(memory.WithClock(clock)), testConfig,
		throttle.WithIDGenerator(throttle.NewIDGenerator(&throttle.Counter{}, throttle.WithIDClock(idClock))),
	)
	require.NoError(t, err)

	result, err := throttle.Enqueue(ctx, queue, throttle.Value(1), throttle.WithClock(clock))
	require.NoError(t, err)

	parts := strings.Split(result.TaskID(), "-")
	require.Len(t, parts, 3)
	require.Equal(t, strconv.FormatInt(idClock.Now().UnixNano(), 10), parts[1])

	_, err = result.Wait(ctx)
	require.NoError(t, err)
}

func TestResult_On_ReceivesRemovedAfterSubscription(t *testing.T) {
	ctx := context.Background()
	clock := pkgtime.NewFakeClock(time.Unix(1000, 0))
	store, _ := recordingStore(clock)

	result, err := throttle.Schedule(ctx, store, testConfig, throttle.Value(1), throttle.WithClock(clock))
	require.NoError(t, err)

	_, err = result.Wait(ctx)
	require.NoError(t, err)

	removed := make(chan string, 1)
	require.NoError(t, result.On(throttle.EventRemoved, func(payload any) {
		removed <- payload.(string)
	}))

	clock.Advance(testInterval)
	select {
	case id := <-removed:
		assert.Equal(t, result.TaskID(), id)
	case <-time.After(time.Second):
		require.Fail(t, "removed event was not published")
	}
}
