// Package clock provides a small time abstraction so that timer-driven
// cache behavior can be tested without real sleeps.
package clock

import (
	"sync"
	"time"
)

// Clock provides time operations for the cache.
// The default implementation delegates to the time package.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	NewTicker(d time.Duration) Ticker
}

// Timer is a cancelable single-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether it
	// stopped the timer before it fired.
	Stop() bool
}

// Ticker delivers ticks at a fixed period until stopped.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

var (
	_ Clock = realClock{}
	_ Clock = (*Fake)(nil)
)

// New returns a Clock backed by the time package.
func New() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time                          { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time  { return time.After(d) }
func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}
func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTimer struct{ t *time.Timer }

func (t realTimer) Stop() bool { return t.t.Stop() }

type realTicker struct{ t *time.Ticker }

func (t realTicker) Chan() <-chan time.Time { return t.t.C }
func (t realTicker) Stop()                  { t.t.Stop() }

// Fake is a manually advanced Clock for tests. Advance fires every
// timer and tick whose deadline has been reached, in deadline order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	clock    *Fake
	deadline time.Time
	period   time.Duration // 0 for single-shot
	ch       chan time.Time
	fn       func()
	stopped  bool
}

// NewFake returns a Fake clock starting at an arbitrary fixed time.
func NewFake() *Fake {
	return &Fake{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// After returns a channel that receives the fake time once Advance
// moves past d.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clock: f, deadline: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.waiters = append(f.waiters, w)
	return w.ch
}

// AfterFunc schedules fn to run when Advance moves past d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clock: f, deadline: f.now.Add(d), fn: fn}
	f.waiters = append(f.waiters, w)
	return w
}

// NewTicker returns a Ticker driven by Advance.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clock: f, deadline: f.now.Add(d), period: d, ch: make(chan time.Time, 16)}
	f.waiters = append(f.waiters, w)
	return fakeTicker{w}
}

// Advance moves the fake time forward by d, firing due timers in
// deadline order. Callback timers run on the caller's goroutine.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	for {
		var next *fakeWaiter
		for _, w := range f.waiters {
			if w.stopped || w.deadline.After(target) {
				continue
			}
			if next == nil || w.deadline.Before(next.deadline) {
				next = w
			}
		}
		if next == nil {
			break
		}
		f.now = next.deadline
		if next.period > 0 {
			next.deadline = next.deadline.Add(next.period)
		} else {
			next.stopped = true
			f.remove(next)
		}
		fn, ch, now := next.fn, next.ch, f.now
		f.mu.Unlock()
		if fn != nil {
			fn()
		} else {
			select {
			case ch <- now:
			default:
			}
		}
		f.mu.Lock()
	}
	f.now = target
	f.mu.Unlock()
}

// Pending reports the number of scheduled, unfired waiters.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

func (f *Fake) remove(target *fakeWaiter) {
	for i, w := range f.waiters {
		if w == target {
			f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
			return
		}
	}
}

func (w *fakeWaiter) Stop() bool {
	w.clock.mu.Lock()
	defer w.clock.mu.Unlock()
	if w.stopped {
		return false
	}
	w.stopped = true
	w.clock.remove(w)
	return true
}

func (w *fakeWaiter) Chan() <-chan time.Time { return w.ch }

// fakeTicker adapts a periodic fakeWaiter to the Ticker interface,
// whose Stop has no return value.
type fakeTicker struct{ w *fakeWaiter }

func (t fakeTicker) Chan() <-chan time.Time { return t.w.Chan() }
func (t fakeTicker) Stop()                  { t.w.Stop() }
