package time

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a virtual Clock. Time moves only on Advance.
// AfterFunc callbacks run synchronously inside Advance.
type FakeClock struct {
	mutex   sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	nextSeq uint64
	changed chan struct{}
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	seq      uint64
	fire     func(now time.Time)
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{
		now:     now,
		changed: make(chan struct{}),
	}
}

func (c *FakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.addTimer(d, func(now time.Time) {
		ch <- now
	})
	return ch
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.addTimer(d, func(time.Time) {
		f()
	})
}

// Advance moves the clock forward, firing due timers in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	target := c.now.Add(d)
	c.mutex.Unlock()

	for {
		c.mutex.Lock()
		timer := c.popDueLocked(target)
		if timer == nil {
			c.now = target
			c.mutex.Unlock()
			return
		}

		if timer.deadline.After(c.now) {
			c.now = timer.deadline
		}
		now := c.now
		c.mutex.Unlock()

		timer.fire(now)
	}
}

// BlockUntil waits until at least n timers are pending.
func (c *FakeClock) BlockUntil(n int) {
	for {
		c.mutex.Lock()
		if len(c.timers) >= n {
			c.mutex.Unlock()
			return
		}
		changed := c.changed
		c.mutex.Unlock()

		<-changed
	}
}

func (c *FakeClock) Pending() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.timers)
}

func (c *FakeClock) addTimer(d time.Duration, fire func(time.Time)) *fakeTimer {
	c.mutex.Lock()
	timer := &fakeTimer{
		clock:    c,
		deadline: c.now.Add(d),
		seq:      c.nextSeq,
		fire:     fire,
	}
	c.nextSeq++

	if d <= 0 {
		now := c.now
		c.mutex.Unlock()
		fire(now)
		return timer
	}

	c.timers = append(c.timers, timer)
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})
	c.notifyLocked()
	c.mutex.Unlock()

	return timer
}

func (c *FakeClock) popDueLocked(target time.Time) *fakeTimer {
	if len(c.timers) == 0 || c.timers[0].deadline.After(target) {
		return nil
	}

	timer := c.timers[0]
	c.timers = c.timers[1:]
	c.notifyLocked()
	return timer
}

func (c *FakeClock) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i, timer := range c.timers {
		if timer == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			c.notifyLocked()
			return true
		}
	}
	return false
}
