package swrcache

import (
	"time"

	"github.com/vnykmshr/swrcache-go/internal/clock"
)

// entry is the store-side state of one cache key. Every field is
// owned by the reducer goroutine; nothing here needs locking beyond
// the store's own mutex.
type entry struct {
	key    string
	result Result

	// lastPublished coalesces consecutive identical snapshots.
	lastPublished Result
	published     bool

	// subscribers counts subscribe events minus unsubscribe events.
	// listeners holds the attached result sinks; prefetches subscribe
	// without a listener, so the two can differ.
	subscribers int
	listeners   []listener

	cfg    *QueryConfig
	params any
	fetch  FetchFunc

	// lastUpdated is the settle time of the most recent fetch or
	// confirmed mutation, used for the staleness check.
	lastUpdated time.Time

	// evictTimer is the pending group-remove countdown, armed only
	// while subscribers == 0.
	evictTimer clock.Timer

	// invocation is the id of the in-flight attempt-chain, zero when
	// none. Settle events carrying any other id are rejected.
	invocation uint64
}

// fresh reports whether the entry settled recently enough to be
// served without a background refresh.
func (e *entry) fresh(now time.Time) bool {
	if e.cfg == nil || e.cfg.StaleTime <= 0 || e.lastUpdated.IsZero() {
		return false
	}
	return now.Sub(e.lastUpdated) < e.cfg.StaleTime
}

func (e *entry) attach(lis listener) {
	if lis == nil {
		return
	}
	e.listeners = append(e.listeners, lis)
}

func (e *entry) detach(lis listener) {
	if lis == nil {
		return
	}
	for i, attached := range e.listeners {
		if attached == lis {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *entry) cancelEviction() {
	if e.evictTimer != nil {
		e.evictTimer.Stop()
		e.evictTimer = nil
	}
}
