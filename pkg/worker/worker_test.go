package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/log"
	"github.com/klwxsrx/go-throttle/pkg/worker"
)

func TestPool_Do_LimitsConcurrency(t *testing.T) {
	pool := worker.NewPool(2, nil)

	var current, peak atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Do(func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		})
	}
	pool.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(0), current.Load())
}

func TestPool_Do_RecoversPanic(t *testing.T) {
	var recovered atomic.Value
	pool := worker.NewPool(worker.MaxWorkersCountUnlimited, func(msg any, _ []byte) {
		recovered.Store(msg)
	})

	pool.Do(func() { panic("boom") })
	pool.Wait()

	assert.Equal(t, "boom", recovered.Load())
}

func TestRunHub_ReturnsFirstError(t *testing.T) {
	expected := errors.New("unexpected")

	err := worker.RunHub(context.Background(), log.NewStub(),
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		func(context.Context) error {
			return expected
		},
	)

	assert.ErrorIs(t, err, expected)
}

func TestRunHub_StopsWhenProcessCompletes(t *testing.T) {
	var cancelled atomic.Bool

	err := worker.RunHub(context.Background(), log.NewStub(),
		func(ctx context.Context) error {
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		},
		func(context.Context) error {
			return nil
		},
	)

	require.NoError(t, err)
	assert.True(t, cancelled.Load())
}
