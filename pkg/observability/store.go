package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/metric"
	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

const tracerName = "github.com/klwxsrx/go-throttle"

const metricStoreCall = "throttle_store_call"

type (
	StoreOption func(*observedStore)

	observedStore struct {
		store   throttle.Store
		tracer  trace.Tracer
		metrics metric.Metrics
		logger  log.Logger
	}
)

func WithTracer(tracer trace.Tracer) StoreOption {
	return func(s *observedStore) {
		s.tracer = tracer
	}
}

func WithStoreMetrics(metrics metric.Metrics) StoreOption {
	return func(s *observedStore) {
		s.metrics = metrics
	}
}

func WithStoreLogger(logger log.Logger) StoreOption {
	return func(s *observedStore) {
		s.logger = logger
	}
}

// WrapStore traces every store operation. The global tracer provider is used by default.
func WrapStore(store throttle.Store, opts ...StoreOption) throttle.Store {
	s := &observedStore{
		store:   store,
		tracer:  otel.Tracer(tracerName),
		metrics: metric.NewMetricsStub(),
		logger:  log.NewStub(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *observedStore) PushAndTryLockItem(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	var snapshot throttle.Snapshot
	err := s.observe(ctx, "PushAndTryLockItem", queueID, task.ID, func(ctx context.Context) (err error) {
		snapshot, err = s.store.PushAndTryLockItem(ctx, queueID, task)
		return err
	})
	return snapshot, err
}

func (s *observedStore) TryLockItem(ctx context.Context, queueID string, task throttle.Task) (throttle.Snapshot, error) {
	var snapshot throttle.Snapshot
	err := s.observe(ctx, "TryLockItem", queueID, task.ID, func(ctx context.Context) (err error) {
		snapshot, err = s.store.TryLockItem(ctx, queueID, task)
		return err
	})
	return snapshot, err
}

func (s *observedStore) RemoveItem(ctx context.Context, queueID, taskID string) error {
	return s.observe(ctx, "RemoveItem", queueID, taskID, func(ctx context.Context) error {
		return s.store.RemoveItem(ctx, queueID, taskID)
	})
}

func (s *observedStore) observe(
	ctx context.Context,
	operation string,
	queueID string,
	taskID string,
	call func(ctx context.Context) error,
) error {
	ctx, span := s.tracer.Start(ctx, "throttle.store."+operation,
		trace.WithAttributes(
			attribute.String("throttle.queue_id", queueID),
			attribute.String("throttle.task_id", taskID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	started := time.Now()
	err := call(ctx)

	metrics := s.metrics.With(metric.Labels{
		"operation": operation,
		"queueID":   queueID,
		"success":   err == nil,
	})
	metrics.Duration(metricStoreCall+"_seconds", time.Since(started))

	logger := s.logger.With(log.Fields{
		"operation": operation,
		"queueID":   queueID,
		"taskID":    taskID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.WithError(err).Warn(ctx, "throttle store call failed")
		return err
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug(ctx, "throttle store call completed")
	return nil
}
