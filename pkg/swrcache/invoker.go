package swrcache

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vnykmshr/swrcache-go/internal/clock"
)

// invoker runs one invocation attempt-chain: attempt 0 immediately,
// then retries while the retry condition holds, sleeping the
// configured backoff between attempts.
type invoker struct {
	clock   clock.Clock
	retryIf RetryCondition
	delay   RetryDelayFunc
}

func newInvoker(clk clock.Clock, qc *QueryConfig) *invoker {
	return &invoker{
		clock:   clk,
		retryIf: qc.retryCondition(),
		delay:   qc.retryDelay(),
	}
}

// settled is the terminal result of an attempt-chain. retries is the
// number of retry attempts used; zero when attempt 0 succeeded.
type settled struct {
	data    any
	err     error
	retries int
}

// run executes the chain. wait is called once per backoff with the
// failed attempt's number, its error and the upcoming delay; it lets
// the store relabel the entry instead of exposing a transient error.
// ctx is the cache lifetime, not a per-listener context: detaching
// listeners never cancels an issued invocation.
func (inv *invoker) run(ctx context.Context, fetch FetchFunc, params any, wait func(attempt int, err error, delay time.Duration)) settled {
	for attempt := 0; ; attempt++ {
		data, err := fetch(ctx, params)
		if err == nil {
			return settled{data: data, retries: attempt}
		}
		if !inv.retryIf(attempt, err) {
			return settled{err: err, retries: attempt}
		}

		delay := inv.delay(attempt)
		if wait != nil {
			wait(attempt, err, delay)
		}
		if delay > 0 {
			select {
			case <-inv.clock.After(delay):
			case <-ctx.Done():
				return settled{err: err, retries: attempt}
			}
		}
	}
}

// DelayFromBackOff adapts a backoff.BackOff policy into a
// RetryDelayFunc. The policy is reset at the start of every
// attempt-chain. Request deduplication guarantees a key never runs
// two chains at once, but a policy must not be shared across queries
// that can fetch concurrently.
func DelayFromBackOff(b backoff.BackOff) RetryDelayFunc {
	return func(attempt int) time.Duration {
		if attempt == 0 {
			b.Reset()
		}
		d := b.NextBackOff()
		if d == backoff.Stop {
			return 0
		}
		return d
	}
}
