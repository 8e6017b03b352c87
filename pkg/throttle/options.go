package throttle

import (
	"github.com/klwxsrx/go-throttle/pkg/event"
	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/metric"
	pkgtime "github.com/klwxsrx/go-throttle/pkg/time"
	"github.com/klwxsrx/go-throttle/pkg/worker"
)

type (
	Option func(*options)

	options struct {
		clock         pkgtime.Clock
		ids           *IDGenerator
		logger        log.Logger
		metrics       metric.Metrics
		executor      worker.Pool
		subscriptions []subscription
		defaultIDs    bool
	}

	subscription struct {
		name    string
		handler event.Handler
	}
)

func WithClock(clock pkgtime.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithIDGenerator(ids *IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(metrics metric.Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithExecutor sets the pool that runs the admission of every task.
func WithExecutor(executor worker.Pool) Option {
	return func(o *options) {
		o.executor = executor
	}
}

// EventRemoved is published with the task id once the task has left the queue.
// event.Error is published instead when the removal failed.
const EventRemoved = "removed"

// WithEventHandler subscribes the handler to the events of every task before its admission starts.
func WithEventHandler(name string, handler event.Handler) Option {
	return func(o *options) {
		o.subscriptions = append(o.subscriptions, subscription{
			name:    name,
			handler: handler,
		})
	}
}

func newOptions(opts ...Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.clock == nil {
		o.clock = pkgtime.NewClock()
	}
	if o.ids == nil {
		o.ids = NewIDGenerator(processCounter, WithIDClock(o.clock))
		o.defaultIDs = true
	}
	if o.logger == nil {
		o.logger = log.NewStub()
	}
	if o.metrics == nil {
		o.metrics = metric.NewMetricsStub()
	}
	if o.executor == nil {
		o.executor = worker.NewPool(worker.MaxWorkersCountUnlimited, nil)
	}

	return o
}

func (o options) with(opts ...Option) options {
	if len(opts) == 0 {
		return o
	}

	var overridden options
	for _, opt := range opts {
		opt(&overridden)
	}

	result := o
	result.subscriptions = append([]subscription(nil), o.subscriptions...)
	for _, opt := range opts {
		opt(&result)
	}

	// the default generator follows the clock of the call
	if overridden.clock != nil && overridden.ids == nil && o.defaultIDs {
		result.ids = NewIDGenerator(processCounter, WithIDClock(result.clock))
	}
	if overridden.ids != nil {
		result.defaultIDs = false
	}
	return result
}
