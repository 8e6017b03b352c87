package throttle

import "context"

type (
	Work[T any] func(ctx context.Context) (T, error)

	Future[T any] interface {
		Wait(ctx context.Context) (T, error)
	}
)

// Value is work that always returns v.
func Value[T any](v T) Work[T] {
	return func(context.Context) (T, error) {
		return v, nil
	}
}

// Await adapts work that starts asynchronously: the result settles when the future does.
func Await[T any](start func(ctx context.Context) (Future[T], error)) Work[T] {
	if start == nil {
		return nil
	}

	return func(ctx context.Context) (T, error) {
		future, err := start(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if future == nil {
			var zero T
			return zero, nil
		}
		return future.Wait(ctx)
	}
}
