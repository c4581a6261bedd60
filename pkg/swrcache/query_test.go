package swrcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vnykmshr/swrcache-go/internal/clock"
)

type fakeFocus struct{ ch chan struct{} }

func newFakeFocus() *fakeFocus { return &fakeFocus{ch: make(chan struct{}, 4)} }

func (f *fakeFocus) Focused() <-chan struct{} { return f.ch }

func (f *fakeFocus) focus() { f.ch <- struct{}{} }

func paramFetch(ctx context.Context, params any) (any, error) {
	return fmt.Sprintf("data-%v", params), nil
}

func TestQueryStreamFollowsParams(t *testing.T) {
	cache := newTestCache(t, nil)

	params := make(chan any, 2)
	rs := cache.QueryStream("item", params, paramFetch)
	sub := rs.Subscribe()
	defer sub.Cancel()

	// Nothing is keyed until the first parameter value arrives.
	if _, ok := rs.Key(); ok {
		t.Fatal("stream has a key before any parameters")
	}

	params <- "a"
	awaitSuccessData(t, sub.Updates(), "data-a")
	if key, _ := rs.Key(); key != "item/a" {
		t.Fatalf("key = %q, want item/a", key)
	}

	params <- "b"
	awaitSuccessData(t, sub.Updates(), "data-b")
	if key, _ := rs.Key(); key != "item/b" {
		t.Fatalf("key = %q, want item/b", key)
	}

	// The previous key's entry is released, not removed.
	if _, ok := cache.Peek("item/a"); !ok {
		t.Fatal("previous entry dropped immediately on param change")
	}
	if cache.Stats().Fetches() != 2 {
		t.Fatalf("fetches = %d, want 2", cache.Stats().Fetches())
	}
}

func TestQueryStreamEqualParamsIgnored(t *testing.T) {
	cache := newTestCache(t, nil)

	params := make(chan any, 3)
	rs := cache.QueryStream("item", params, paramFetch)
	sub := rs.Subscribe()
	defer sub.Cancel()

	params <- map[string]int{"page": 1}
	awaitStatus(t, sub.Updates(), StatusSuccess)

	// A structurally identical value does not resubscribe.
	params <- map[string]int{"page": 1}
	waitFor(t, "no refetch", func() bool { return cache.Stats().Fetches() == 1 })
	time.Sleep(20 * time.Millisecond)
	if cache.Stats().Fetches() != 1 {
		t.Fatalf("fetches = %d, want 1", cache.Stats().Fetches())
	}
}

func TestRefetchOnFocus(t *testing.T) {
	focus := newFakeFocus()
	cache := newTestCache(t, NewDefaultConfig().WithFocusSource(focus))

	sub := cache.Query("todos", nil, staticFetch("v1"), WithRefetchOnFocus()).Subscribe()
	defer sub.Cancel()
	awaitStatus(t, sub.Updates(), StatusSuccess)

	focus.focus()
	waitFor(t, "focus refetch", func() bool { return cache.Stats().Fetches() == 2 })
}

func TestFocusIgnoredWithoutOption(t *testing.T) {
	focus := newFakeFocus()
	cache := newTestCache(t, NewDefaultConfig().WithFocusSource(focus))

	sub := cache.Query("todos", nil, staticFetch("v1")).Subscribe()
	defer sub.Cancel()
	awaitStatus(t, sub.Updates(), StatusSuccess)

	focus.focus()
	time.Sleep(20 * time.Millisecond)
	if cache.Stats().Fetches() != 1 {
		t.Fatalf("fetches = %d, want 1", cache.Stats().Fetches())
	}
}

func TestRefetchTicks(t *testing.T) {
	cache := newTestCache(t, nil)

	ticks := make(chan time.Time, 1)
	sub := cache.Query("todos", nil, staticFetch("v1"), WithRefetchTicks(ticks)).Subscribe()
	defer sub.Cancel()
	awaitStatus(t, sub.Updates(), StatusSuccess)

	ticks <- time.Now()
	waitFor(t, "tick refetch", func() bool { return cache.Stats().Fetches() == 2 })
}

func TestRefetchInterval(t *testing.T) {
	fake := clock.NewFake()
	cache := newTestCache(t, NewDefaultConfig().WithClock(fake))

	sub := cache.Query("todos", nil, staticFetch("v1"),
		WithRefetchInterval(time.Minute)).Subscribe()
	defer sub.Cancel()
	awaitStatus(t, sub.Updates(), StatusSuccess)

	// The interval ticker is armed on the multiplexer's goroutine.
	waitFor(t, "ticker armed", func() bool { return fake.Pending() >= 1 })
	fake.Advance(time.Minute)
	waitFor(t, "interval refetch", func() bool { return cache.Stats().Fetches() == 2 })
}

func TestSubscriptionCancelReleasesKey(t *testing.T) {
	fake := clock.NewFake()
	cache := newTestCache(t, NewDefaultConfig().WithClock(fake))

	rs := cache.Query("todos", nil, staticFetch("v1"), WithCacheTime(time.Second))
	sub := rs.Subscribe()
	awaitStatus(t, sub.Updates(), StatusSuccess)
	sub.Cancel()

	if _, ok := <-sub.Updates(); ok {
		t.Fatal("updates channel open after cancel")
	}

	waitFor(t, "eviction timer", func() bool { return fake.Pending() >= 1 })
	fake.Advance(2 * time.Second)
	waitFor(t, "expiry", func() bool { return cache.Len() == 0 })
}

func TestLatestSnapshot(t *testing.T) {
	cache := newTestCache(t, nil)
	rs := cache.Query("todos", nil, staticFetch("v1"))

	if _, ok := rs.Latest(); ok {
		t.Fatal("Latest reported a snapshot before subscribing")
	}

	sub := rs.Subscribe()
	defer sub.Cancel()
	awaitStatus(t, sub.Updates(), StatusSuccess)

	r, ok := rs.Latest()
	if !ok || r.Status != StatusSuccess || r.Data != "v1" {
		t.Fatalf("Latest() = %+v, %v", r, ok)
	}
}

func TestQueryOperationsBeforeKeyAreNoOps(t *testing.T) {
	cache := newTestCache(t, nil)

	params := make(chan any)
	rs := cache.QueryStream("item", params, paramFetch)

	// No key resolved yet; these must not panic or create entries.
	rs.Revalidate()
	rs.MutateOptimistic("x")
	rs.MutateSuccess("x")
	rs.MutateError(nil)

	if cache.Len() != 0 {
		t.Fatalf("len = %d, want 0", cache.Len())
	}
}
