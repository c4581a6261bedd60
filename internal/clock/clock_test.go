package clock

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := New()
	before := time.Now()
	now := c.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Fatalf("Now() = %v, want between %v and %v", now, before, after)
	}
}

func TestFakeAfter(t *testing.T) {
	f := NewFake()
	ch := f.After(time.Second)

	select {
	case <-ch:
		t.Fatal("timer fired before Advance")
	default:
	}

	f.Advance(time.Second)

	select {
	case fired := <-ch:
		if !fired.Equal(NewFake().Now().Add(time.Second)) {
			t.Fatalf("fired at %v, want start+1s", fired)
		}
	default:
		t.Fatal("timer did not fire after Advance")
	}
}

func TestFakeAfterPartialAdvance(t *testing.T) {
	f := NewFake()
	ch := f.After(10 * time.Second)

	f.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before its deadline")
	default:
	}

	f.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("timer did not fire at its deadline")
	}
}

func TestFakeAfterFunc(t *testing.T) {
	f := NewFake()
	fired := 0
	f.AfterFunc(time.Second, func() { fired++ })

	f.Advance(500 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("callback ran early, fired = %d", fired)
	}

	f.Advance(500 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}

	// Already fired, further advances must not rerun it.
	f.Advance(10 * time.Second)
	if fired != 1 {
		t.Fatalf("fired = %d after extra advance, want 1", fired)
	}
}

func TestFakeTimerStop(t *testing.T) {
	f := NewFake()
	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() = false for pending timer")
	}
	if timer.Stop() {
		t.Fatal("Stop() = true for stopped timer")
	}

	f.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeTicker(t *testing.T) {
	f := NewFake()
	ticker := f.NewTicker(time.Second)
	defer ticker.Stop()

	f.Advance(3 * time.Second)

	ticks := 0
	for {
		select {
		case <-ticker.Chan():
			ticks++
			continue
		default:
		}
		break
	}
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}
}

func TestClockInterfaces(t *testing.T) {
	for _, c := range []Clock{New(), NewFake()} {
		var timer Timer = c.AfterFunc(time.Hour, func() {})
		timer.Stop()
		var ticker Ticker = c.NewTicker(time.Hour)
		ticker.Stop()
	}
}

func TestFakeTickerStop(t *testing.T) {
	f := NewFake()
	ticker := f.NewTicker(time.Second)
	ticker.Stop()

	f.Advance(5 * time.Second)

	select {
	case <-ticker.Chan():
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
}

func TestFakeDeadlineOrder(t *testing.T) {
	f := NewFake()
	var order []int
	f.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	f.AfterFunc(time.Second, func() { order = append(order, 1) })
	f.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	f.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestFakeNestedSchedule(t *testing.T) {
	f := NewFake()
	fired := false
	f.AfterFunc(time.Second, func() {
		// Scheduling from inside a callback must land relative to the
		// fired deadline, not the advance target.
		f.AfterFunc(time.Second, func() { fired = true })
	})

	f.Advance(2 * time.Second)
	if !fired {
		t.Fatal("nested timer did not fire within the same advance")
	}
}

func TestFakePending(t *testing.T) {
	f := NewFake()
	if f.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", f.Pending())
	}

	timer := f.AfterFunc(time.Second, func() {})
	f.After(time.Minute)
	if f.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", f.Pending())
	}

	timer.Stop()
	if f.Pending() != 1 {
		t.Fatalf("Pending() = %d after Stop, want 1", f.Pending())
	}

	f.Advance(time.Hour)
	if f.Pending() != 0 {
		t.Fatalf("Pending() = %d after advance, want 0", f.Pending())
	}
}
