package throttle

import (
	"context"
	"time"

	"github.com/klwxsrx/go-throttle/pkg/event"
	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/metric"
	"github.com/klwxsrx/go-throttle/pkg/seq"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
)

const (
	metricTaskScheduled = "throttle_task_scheduled_total"
	metricTaskAdmitted  = "throttle_task_admitted_total"
	metricTaskRejected  = "throttle_task_rejected_total"
	metricCleanupFailed = "throttle_cleanup_failed_total"
	metricTaskWait      = "throttle_task_wait_seconds"
)

type state int

const (
	stateCreated state = iota
	statePushAndLock
	stateEvaluate
	stateWaiting
	stateTryLock
	stateExecuting
	stateResolved
	stateRejected
)

func (s state) String() string {
	switch s {
	case stateCreated:
		return "created"
	case statePushAndLock:
		return "pushAndLock"
	case stateEvaluate:
		return "evaluate"
	case stateWaiting:
		return "waiting"
	case stateTryLock:
		return "tryLock"
	case stateExecuting:
		return "executing"
	case stateResolved:
		return "resolved"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s state) settled() bool {
	return s == stateResolved || s == stateRejected
}

type machine[T any] struct {
	ctx     context.Context
	store   Store
	task    Task
	work    Work[T]
	result  *Result[T]
	events  *event.Channel
	clock   pkgtime.Clock
	logger  log.Logger
	metrics metric.Metrics

	state      state
	snapshot   Snapshot
	wait       time.Duration
	enqueuedAt time.Time
}

func newMachine[T any](
	ctx context.Context,
	store Store,
	task Task,
	work Work[T],
	result *Result[T],
	events *event.Channel,
	o options,
) *machine[T] {
	return &machine[T]{
		ctx:    ctx,
		store:  store,
		task:   task,
		work:   work,
		result: result,
		events: events,
		clock:  o.clock,
		logger: o.logger.With(log.Fields{
			"queueID": task.QueueID,
			"taskID":  task.ID,
		}),
		metrics: o.metrics.WithLabel("queueID", task.QueueID),
		state:   stateCreated,
	}
}

func (m *machine[T]) run() {
	m.enqueuedAt = m.clock.Now()
	m.metrics.Increment(metricTaskScheduled)
	m.state = statePushAndLock

	for !m.state.settled() {
		m.state = m.step()
	}
}

func (m *machine[T]) step() state {
	switch m.state {
	case statePushAndLock:
		return m.pushAndLock()
	case stateEvaluate:
		return m.evaluate()
	case stateWaiting:
		m.logger.WithField("wait", m.wait).Debug(m.ctx, "task is waiting for the queue lock")
		<-m.clock.After(m.wait)
		return stateTryLock
	case stateTryLock:
		return m.tryLock()
	case stateExecuting:
		return m.execute()
	default:
		return stateRejected
	}
}

func (m *machine[T]) pushAndLock() state {
	snapshot, err := callStore(func() (Snapshot, error) {
		return m.store.PushAndTryLockItem(m.ctx, m.task.QueueID, m.task)
	})
	if err != nil {
		return m.fail(err)
	}

	m.snapshot = snapshot
	return stateEvaluate
}

func (m *machine[T]) tryLock() state {
	snapshot, err := callStore(func() (Snapshot, error) {
		return m.store.TryLockItem(m.ctx, m.task.QueueID, m.task)
	})
	if err != nil {
		return m.fail(err)
	}

	m.snapshot = snapshot
	return stateEvaluate
}

func (m *machine[T]) evaluate() state {
	item, ok := seq.FindByID(m.task.ID, []Item(m.snapshot))
	if !ok {
		return m.fail(taskDisappearedError(m.task.ID))
	}
	if item.Locked {
		return stateExecuting
	}

	// every queued task may hold the lock for its whole delay before ours
	m.wait = seq.Sum(seq.Pluck([]Item(m.snapshot), func(i Item) time.Duration {
		return i.Delay
	}))
	return stateWaiting
}

func (m *machine[T]) execute() state {
	m.metrics.Increment(metricTaskAdmitted)
	m.metrics.Duration(metricTaskWait, m.clock.Now().Sub(m.enqueuedAt))
	m.logger.Debug(m.ctx, "task acquired the queue lock")

	m.clock.AfterFunc(m.task.Delay, m.remove)

	value, err := m.invoke()
	if err != nil {
		m.result.reject(err)
		return stateRejected
	}

	m.result.resolve(value)
	return stateResolved
}

func (m *machine[T]) invoke() (value T, err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = newPanicError(msg)
		}
	}()

	return m.work(m.ctx)
}

// fail removes the task before rejecting, so the queue is clean once the result settles.
func (m *machine[T]) fail(err error) state {
	m.metrics.Increment(metricTaskRejected)
	m.logger.WithError(err).Warn(m.ctx, "task admission failed")

	m.remove()
	m.result.reject(err)
	return stateRejected
}

func (m *machine[T]) remove() {
	err := callRemove(func() error {
		return m.store.RemoveItem(m.ctx, m.task.QueueID, m.task.ID)
	})
	if err != nil {
		m.metrics.Increment(metricCleanupFailed)
		m.logger.WithError(err).Error(m.ctx, "failed to remove task from queue")
		m.events.Publish(event.Error, err)
	} else {
		m.events.Publish(EventRemoved, m.task.ID)
	}

	m.events.Close()
}

func callStore(call func() (Snapshot, error)) (snapshot Snapshot, err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = newPanicError(msg)
		}
	}()

	return call()
}

func callRemove(call func() error) (err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = newPanicError(msg)
		}
	}()

	return call()
}
