package throttle

import (
	"math"
	"time"
	"unicode/utf8"
)

const (
	MinQueueIDLength = 8
	MaxRatePerMinute = 60000
)

type Config struct {
	QueueID       string  `yaml:"queueID" json:"queueID"`
	RatePerMinute float64 `yaml:"ratePerMinute" json:"ratePerMinute"`
}

func ValidateStore(store Store) error {
	switch s := store.(type) {
	case nil:
		return newContractError("store", "a throttle.Store", nil)
	case StoreFuncs:
		return s.validate()
	case *StoreFuncs:
		if s == nil {
			return newContractError("store", "a throttle.Store", nil)
		}
		return s.validate()
	}
	return nil
}

// ValidateConfig returns the interval between two admissions of the queue.
func ValidateConfig(config Config) (time.Duration, error) {
	if utf8.RuneCountInString(config.QueueID) < MinQueueIDLength {
		return 0, newContractError(
			"config.QueueID",
			"a string at least 8 characters long",
			config.QueueID,
		)
	}

	rate := config.RatePerMinute
	if !(rate > 0 && rate <= MaxRatePerMinute) {
		return 0, newContractError(
			"config.RatePerMinute",
			"a number greater than 0 and less than or equal to 60000",
			rate,
		)
	}

	return Interval(rate), nil
}

func ValidateWork[T any](work Work[T]) error {
	if work == nil {
		return newContractError("work", "a function", nil)
	}
	return nil
}

// Interval is ceil(60000 / ratePerMinute) milliseconds.
func Interval(ratePerMinute float64) time.Duration {
	return time.Duration(math.Ceil(MaxRatePerMinute/ratePerMinute)) * time.Millisecond
}

func (s StoreFuncs) validate() error {
	switch {
	case s.PushAndTryLockItemFunc == nil:
		return newContractError("store.PushAndTryLockItem", "a function", nil)
	case s.TryLockItemFunc == nil:
		return newContractError("store.TryLockItem", "a function", nil)
	case s.RemoveItemFunc == nil:
		return newContractError("store.RemoveItem", "a function", nil)
	}
	return nil
}
