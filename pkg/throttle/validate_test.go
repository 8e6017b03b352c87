package throttle_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-throttle/pkg/throttle"
)

func validStoreFuncs() throttle.StoreFuncs {
	return throttle.StoreFuncs{
		PushAndTryLockItemFunc: func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
			return nil, nil
		},
		TryLockItemFunc: func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
			return nil, nil
		},
		RemoveItemFunc: func(context.Context, string, string) error {
			return nil
		},
	}
}

func TestValidateStore_Returns(t *testing.T) {
	tests := []struct {
		name    string
		store   func() throttle.Store
		message string
	}{
		{
			name:    "error_when_store_is_nil",
			store:   func() throttle.Store { return nil },
			message: "store must be a throttle.Store; not nil",
		},
		{
			name: "error_when_push_is_missing",
			store: func() throttle.Store {
				s := validStoreFuncs()
				s.PushAndTryLockItemFunc = nil
				return s
			},
			message: "store.PushAndTryLockItem must be a function; not nil",
		},
		{
			name: "error_when_try_lock_is_missing",
			store: func() throttle.Store {
				s := validStoreFuncs()
				s.TryLockItemFunc = nil
				return &s
			},
			message: "store.TryLockItem must be a function; not nil",
		},
		{
			name: "error_when_remove_is_missing",
			store: func() throttle.Store {
				s := validStoreFuncs()
				s.RemoveItemFunc = nil
				return s
			},
			message: "store.RemoveItem must be a function; not nil",
		},
		{
			name:  "success",
			store: func() throttle.Store { return validStoreFuncs() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := throttle.ValidateStore(tt.store())
			if tt.message == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, throttle.ErrContractViolation)
			require.EqualError(t, err, tt.message)
		})
	}
}

func TestValidateConfig_QueueID(t *testing.T) {
	_, err := throttle.ValidateConfig(throttle.Config{QueueID: "abc", RatePerMinute: 10})
	require.ErrorIs(t, err, throttle.ErrContractViolation)
	require.EqualError(t, err, `config.QueueID must be a string at least 8 characters long; not "abc" (string)`)

	var contractErr *throttle.ContractError
	require.True(t, errors.As(err, &contractErr))
	assert.Equal(t, "config.QueueID", contractErr.Field)
	assert.Equal(t, "string", contractErr.Type)

	_, err = throttle.ValidateConfig(throttle.Config{QueueID: "12345678", RatePerMinute: 10})
	require.NoError(t, err)

	// length is counted in characters, not bytes
	_, err = throttle.ValidateConfig(throttle.Config{QueueID: "日本語", RatePerMinute: 10})
	require.ErrorIs(t, err, throttle.ErrContractViolation)

	_, err = throttle.ValidateConfig(throttle.Config{QueueID: "日本語のキュー名前", RatePerMinute: 10})
	require.NoError(t, err)
}

func TestValidateConfig_RatePerMinute(t *testing.T) {
	tests := []struct {
		rate     float64
		interval time.Duration
		valid    bool
	}{
		{rate: 0},
		{rate: -1},
		{rate: 60001},
		{rate: math.NaN()},
		{rate: math.Inf(1)},
		{rate: math.Inf(-1)},
		{rate: 1, interval: time.Minute, valid: true},
		{rate: 5, interval: 12 * time.Second, valid: true},
		{rate: 7, interval: 8572 * time.Millisecond, valid: true},
		{rate: 0.5, interval: 2 * time.Minute, valid: true},
		{rate: 60000, interval: time.Millisecond, valid: true},
	}

	for _, tt := range tests {
		interval, err := throttle.ValidateConfig(throttle.Config{QueueID: "queue-00001", RatePerMinute: tt.rate})
		if !tt.valid {
			require.ErrorIs(t, err, throttle.ErrContractViolation, "rate %v", tt.rate)
			require.Contains(t, err.Error(), "config.RatePerMinute must be a number")
			continue
		}

		require.NoError(t, err, "rate %v", tt.rate)
		require.Equal(t, tt.interval, interval, "rate %v", tt.rate)
	}
}

func TestValidateWork(t *testing.T) {
	err := throttle.ValidateWork[int](nil)
	require.ErrorIs(t, err, throttle.ErrContractViolation)
	require.EqualError(t, err, "work must be a function; not nil")

	require.NoError(t, throttle.ValidateWork(throttle.Value(1)))
}

func TestSchedule_ValidatesBeforeStoreInteraction(t *testing.T) {
	calls := 0
	store := throttle.StoreFuncs{
		PushAndTryLockItemFunc: func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
			calls++
			return nil, nil
		},
		TryLockItemFunc: func(context.Context, string, throttle.Task) (throttle.Snapshot, error) {
			calls++
			return nil, nil
		},
	}

	_, err := throttle.Schedule(context.Background(), store, throttle.Config{QueueID: "queue-00001", RatePerMinute: 1}, throttle.Value(1))
	require.EqualError(t, err, "store.RemoveItem must be a function; not nil")

	_, err = throttle.Schedule[int](context.Background(), validStoreFuncs(), throttle.Config{QueueID: "queue-00001", RatePerMinute: 1}, nil)
	require.ErrorIs(t, err, throttle.ErrContractViolation)
	require.Zero(t, calls)
}
