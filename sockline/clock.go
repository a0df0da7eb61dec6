package sockline

import (
	"sync"
	"time"
)

// Timer is a cancellable delayed callback handle.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock abstracts time so timing behavior is testable without real
// waiting. The zero client uses SystemClock.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run once after d elapses.
	AfterFunc(d time.Duration, fn func()) Timer
}

// SystemClock uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }

// AfterFunc schedules fn on a system timer.
func (SystemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

type manualTimer struct {
	clock  *ManualClock
	when   time.Time
	fn     func()
	fired  bool
	active bool
}

// Stop cancels the timer if it has not fired.
func (timer *manualTimer) Stop() bool {
	timer.clock.lock.Lock()
	defer timer.clock.lock.Unlock()
	if timer.fired || !timer.active {
		return false
	}
	timer.active = false
	return true
}

// ManualClock is a test clock whose time only moves through Advance.
// Timer callbacks run on the goroutine calling Advance, in due order.
// When a callback schedules a follow-up timer asynchronously (through
// an event loop), let that scheduling settle before advancing again.
type ManualClock struct {
	lock   sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManualClock returns a manual clock starting at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (clock *ManualClock) Now() time.Time {
	clock.lock.Lock()
	defer clock.lock.Unlock()
	return clock.now
}

// AfterFunc schedules fn to fire when the clock advances past d.
func (clock *ManualClock) AfterFunc(d time.Duration, fn func()) Timer {
	clock.lock.Lock()
	defer clock.lock.Unlock()
	timer := &manualTimer{clock: clock, when: clock.now.Add(d), fn: fn, active: true}
	clock.timers = append(clock.timers, timer)
	return timer
}

// Advance moves the clock forward by d, firing due timers in order.
func (clock *ManualClock) Advance(d time.Duration) {
	clock.lock.Lock()
	target := clock.now.Add(d)
	clock.lock.Unlock()

	for {
		clock.lock.Lock()
		var next *manualTimer
		for _, timer := range clock.timers {
			if !timer.active || timer.fired || timer.when.After(target) {
				continue
			}
			if next == nil || timer.when.Before(next.when) {
				next = timer
			}
		}
		if next == nil {
			clock.now = target
			clock.timers = pruneTimers(clock.timers)
			clock.lock.Unlock()
			return
		}
		if next.when.After(clock.now) {
			clock.now = next.when
		}
		next.fired = true
		next.active = false
		fn := next.fn
		clock.lock.Unlock()
		fn()
	}
}

func pruneTimers(timers []*manualTimer) []*manualTimer {
	live := timers[:0]
	for _, timer := range timers {
		if timer.active && !timer.fired {
			live = append(live, timer)
		}
	}
	return live
}
