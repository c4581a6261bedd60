package swrcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vnykmshr/swrcache-go/internal/clock"
)

func noDelay(int) time.Duration { return 0 }

func TestInvokerFirstAttemptSucceeds(t *testing.T) {
	inv := newInvoker(clock.New(), &QueryConfig{Retries: 3, RetryDelay: noDelay})

	calls := 0
	res := inv.run(context.Background(), func(ctx context.Context, params any) (any, error) {
		calls++
		return "ok", nil
	}, nil, nil)

	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.data != "ok" || res.retries != 0 || calls != 1 {
		t.Fatalf("data = %v, retries = %d, calls = %d", res.data, res.retries, calls)
	}
}

func TestInvokerRetriesThenSucceeds(t *testing.T) {
	inv := newInvoker(clock.New(), &QueryConfig{Retries: 3, RetryDelay: noDelay})

	calls := 0
	res := inv.run(context.Background(), func(ctx context.Context, params any) (any, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, nil, nil)

	if res.err != nil || res.data != "ok" {
		t.Fatalf("data = %v, err = %v", res.data, res.err)
	}
	if res.retries != 2 {
		t.Fatalf("retries = %d, want 2", res.retries)
	}
}

func TestInvokerBudgetExhausted(t *testing.T) {
	inv := newInvoker(clock.New(), &QueryConfig{Retries: 2, RetryDelay: noDelay})

	boom := errors.New("boom")
	calls := 0
	res := inv.run(context.Background(), func(ctx context.Context, params any) (any, error) {
		calls++
		return nil, boom
	}, nil, nil)

	if !errors.Is(res.err, boom) {
		t.Fatalf("err = %v, want %v", res.err, boom)
	}
	// Initial attempt plus two retries.
	if calls != 3 || res.retries != 2 {
		t.Fatalf("calls = %d, retries = %d, want 3, 2", calls, res.retries)
	}
}

func TestInvokerRetryCondition(t *testing.T) {
	fatal := errors.New("fatal")
	inv := newInvoker(clock.New(), &QueryConfig{
		RetryIf: func(attempt int, err error) bool {
			return !errors.Is(err, fatal)
		},
		RetryDelay: noDelay,
	})

	calls := 0
	res := inv.run(context.Background(), func(ctx context.Context, params any) (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return nil, fatal
	}, nil, nil)

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if !errors.Is(res.err, fatal) {
		t.Fatalf("err = %v, want %v", res.err, fatal)
	}
}

func TestInvokerWaitCallback(t *testing.T) {
	inv := newInvoker(clock.New(), &QueryConfig{
		Retries:    2,
		RetryDelay: func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Millisecond },
	})

	type waitCall struct {
		attempt int
		delay   time.Duration
	}
	var waits []waitCall
	inv.run(context.Background(), func(ctx context.Context, params any) (any, error) {
		return nil, errors.New("always")
	}, nil, func(attempt int, err error, delay time.Duration) {
		waits = append(waits, waitCall{attempt, delay})
	})

	if len(waits) != 2 {
		t.Fatalf("wait calls = %d, want 2", len(waits))
	}
	if waits[0].attempt != 0 || waits[0].delay != time.Millisecond {
		t.Fatalf("first wait = %+v", waits[0])
	}
	if waits[1].attempt != 1 || waits[1].delay != 2*time.Millisecond {
		t.Fatalf("second wait = %+v", waits[1])
	}
}

func TestInvokerContextCanceledDuringBackoff(t *testing.T) {
	fake := clock.NewFake()
	inv := newInvoker(fake, &QueryConfig{Retries: 5})

	ctx, cancel := context.WithCancel(context.Background())
	boom := errors.New("boom")

	done := make(chan settled, 1)
	go func() {
		done <- inv.run(ctx, func(ctx context.Context, params any) (any, error) {
			return nil, boom
		}, nil, nil)
	}()

	// The chain is parked in its first backoff; canceling must settle
	// it with the last error instead of retrying.
	deadline := time.Now().Add(2 * time.Second)
	for fake.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("backoff wait never armed")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case res := <-done:
		if !errors.Is(res.err, boom) || res.retries != 0 {
			t.Fatalf("res = %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestDefaultRetryDelay(t *testing.T) {
	if d := DefaultRetryDelay(0); d != time.Second {
		t.Fatalf("delay(0) = %v, want 1s", d)
	}
	if d := DefaultRetryDelay(2); d != 3*time.Second {
		t.Fatalf("delay(2) = %v, want 3s", d)
	}
}

func TestDelayFromBackOff(t *testing.T) {
	delay := DelayFromBackOff(backoff.NewConstantBackOff(50 * time.Millisecond))

	if d := delay(0); d != 50*time.Millisecond {
		t.Fatalf("delay(0) = %v, want 50ms", d)
	}
	if d := delay(1); d != 50*time.Millisecond {
		t.Fatalf("delay(1) = %v, want 50ms", d)
	}
}

func TestDelayFromBackOffStop(t *testing.T) {
	delay := DelayFromBackOff(backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 1))

	if d := delay(0); d != time.Millisecond {
		t.Fatalf("delay(0) = %v, want 1ms", d)
	}
	// The policy is exhausted; the adapter degrades to no wait.
	if d := delay(1); d != 0 {
		t.Fatalf("delay(1) = %v, want 0", d)
	}
}
