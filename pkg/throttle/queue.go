package throttle

import (
	"context"
	"time"

	"github.com/klwxsrx/go-throttle/pkg/event"
)

// Queue binds a store and a validated config, tasks are added with Enqueue.
type Queue struct {
	store    Store
	config   Config
	interval time.Duration
	opts     options
}

func NewQueue(store Store, config Config, opts ...Option) (*Queue, error) {
	if err := ValidateStore(store); err != nil {
		return nil, err
	}

	interval, err := ValidateConfig(config)
	if err != nil {
		return nil, err
	}

	return &Queue{
		store:    store,
		config:   config,
		interval: interval,
		opts:     newOptions(opts...),
	}, nil
}

func (q *Queue) ID() string {
	return q.config.QueueID
}

func (q *Queue) Interval() time.Duration {
	return q.interval
}

// Enqueue starts admission of work and returns without waiting for it.
// ctx values are passed to the store and to work, its cancellation is ignored.
func Enqueue[T any](ctx context.Context, q *Queue, work Work[T], opts ...Option) (*Result[T], error) {
	if err := ValidateWork(work); err != nil {
		return nil, err
	}

	o := q.opts.with(opts...)
	events := event.NewChannel()
	for _, s := range o.subscriptions {
		if err := events.Subscribe(s.name, s.handler); err != nil {
			return nil, err
		}
	}

	task := o.ids.NewTask(q.config.QueueID, q.interval)
	result := newResult[T](task.ID, events)
	m := newMachine(context.WithoutCancel(ctx), q.store, task, work, result, events, o)
	o.executor.Do(m.run)

	return result, nil
}

// Schedule validates its arguments and enqueues work to a one-off Queue.
func Schedule[T any](ctx context.Context, store Store, config Config, work Work[T], opts ...Option) (*Result[T], error) {
	q, err := NewQueue(store, config, opts...)
	if err != nil {
		return nil, err
	}
	if err = ValidateWork(work); err != nil {
		return nil, err
	}

	return Enqueue(ctx, q, work)
}
