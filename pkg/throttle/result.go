package throttle

import (
	"context"
	"sync"

	"github.com/klwxsrx/go-throttle/pkg/event"
)

// Result settles exactly once with the value or the error of the work.
type Result[T any] struct {
	taskID string
	events *event.Channel

	once          sync.Once
	mutex         sync.Mutex
	done          chan struct{}
	continuations []func()
	value         T
	err           error
}

func newResult[T any](taskID string, events *event.Channel) *Result[T] {
	return &Result[T]{
		taskID: taskID,
		events: events,
		done:   make(chan struct{}),
	}
}

func (r *Result[T]) TaskID() string {
	return r.taskID
}

func (r *Result[T]) Done() <-chan struct{} {
	return r.done
}

func (r *Result[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers continuations called once after settlement, immediately if already settled.
func (r *Result[T]) Then(onValue func(T), onError func(error)) {
	run := func() {
		if r.err != nil {
			if onError != nil {
				onError(r.err)
			}
			return
		}
		if onValue != nil {
			onValue(r.value)
		}
	}

	r.mutex.Lock()
	select {
	case <-r.done:
		r.mutex.Unlock()
		run()
		return
	default:
	}
	r.continuations = append(r.continuations, run)
	r.mutex.Unlock()
}

// On subscribes to events of the task: event.Error and EventRemoved.
// Admission runs on the executor, so an early cleanup failure may be published before On is called.
// Use WithEventHandler to observe every event of the task.
func (r *Result[T]) On(name string, handler event.Handler) error {
	return r.events.Subscribe(name, handler)
}

// OnError subscribes to event.Error, see On.
func (r *Result[T]) OnError(handler func(error)) error {
	return r.events.Subscribe(event.Error, event.ErrorHandler(handler))
}

func (r *Result[T]) resolve(value T) bool {
	return r.settle(value, nil)
}

func (r *Result[T]) reject(err error) bool {
	var zero T
	return r.settle(zero, err)
}

func (r *Result[T]) settle(value T, err error) bool {
	settled := false
	r.once.Do(func() {
		r.mutex.Lock()
		r.value, r.err = value, err
		close(r.done)
		continuations := r.continuations
		r.continuations = nil
		r.mutex.Unlock()

		for _, continuation := range continuations {
			continuation()
		}
		settled = true
	})
	return settled
}
