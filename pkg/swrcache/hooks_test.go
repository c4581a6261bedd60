package swrcache

import (
	"errors"
	"testing"
	"time"
)

func TestHooksInvocation(t *testing.T) {
	h := &Hooks{}

	var fetches, settles, changes int
	h.AddOnFetch(func(key string, trigger Trigger) { fetches++ })
	h.AddOnSettle(func(key string, result Result) { settles++ })
	h.AddOnChange(func(key string, result Result) { changes++ })

	h.invokeOnFetch("k", TriggerSubscribe)
	h.invokeOnSettle("k", Result{Status: StatusSuccess})
	h.invokeOnChange("k", Result{Status: StatusLoading})

	if fetches != 1 || settles != 1 || changes != 1 {
		t.Fatalf("fetches = %d, settles = %d, changes = %d", fetches, settles, changes)
	}
}

func TestHooksMultiple(t *testing.T) {
	h := &Hooks{}

	calls := 0
	h.AddOnReset(func() { calls++ })
	h.AddOnReset(func() { calls++ })
	h.invokeOnReset()

	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestHooksNilSafe(t *testing.T) {
	h := &Hooks{
		OnChange: []OnChangeHook{nil},
		OnEvict:  []OnEvictHook{nil},
		OnRetry:  []OnRetryHook{nil},
	}

	// Nil hooks are skipped, not invoked.
	h.invokeOnChange("k", Result{})
	h.invokeOnEvict("k", EvictReasonExpired)
	h.invokeOnRetry("k", 0, errors.New("x"), time.Second)
}

func TestEvictReasonString(t *testing.T) {
	tests := []struct {
		reason EvictReason
		want   string
	}{
		{EvictReasonExpired, "expired"},
		{EvictReasonCapacity, "capacity"},
		{EvictReasonReset, "reset"},
		{EvictReason(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Fatalf("EvictReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}

func TestOnRetryHookObservesBackoff(t *testing.T) {
	type retry struct {
		attempt int
		delay   time.Duration
	}
	retries := make(chan retry, 4)

	hooks := &Hooks{}
	hooks.AddOnRetry(func(key string, attempt int, err error, delay time.Duration) {
		retries <- retry{attempt, delay}
	})
	cache := newTestCache(t, NewDefaultConfig().WithHooks(hooks))

	fetch, release := gatedFetch()

	sub := cache.Query("flaky", nil, fetch,
		WithRetries(1),
		WithRetryDelay(func(int) time.Duration { return 0 }),
	).Subscribe()
	defer sub.Cancel()

	release <- errors.New("transient")
	release <- "ok"
	awaitStatus(t, sub.Updates(), StatusSuccess)

	select {
	case r := <-retries:
		if r.attempt != 0 || r.delay != 0 {
			t.Fatalf("retry hook got %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry hook never ran")
	}
}
