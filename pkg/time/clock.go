package time

import (
	"time"
)

type (
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}

	Timer interface {
		Stop() bool
	}

	clockImpl struct{}
)

func NewClock() Clock {
	return clockImpl{}
}

func (c clockImpl) Now() time.Time {
	return time.Now()
}

func (c clockImpl) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c clockImpl) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
