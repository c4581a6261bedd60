package swrcache

import "time"

// Hooks defines event callbacks for cache operations. All hooks run
// on the reducer goroutine and must not block.
type Hooks struct {
	// OnChange is called for every result snapshot published to an
	// entry's subscribers.
	OnChange []OnChangeHook

	// OnFetch is called when an invocation attempt-chain starts.
	OnFetch []OnFetchHook

	// OnRetry is called before each retry backoff wait.
	OnRetry []OnRetryHook

	// OnSettle is called when an attempt-chain terminates.
	OnSettle []OnSettleHook

	// OnMutate is called for every applied mutation event.
	OnMutate []OnMutateHook

	// OnEvict is called when an entry is removed from the store.
	OnEvict []OnEvictHook

	// OnReset is called when the whole cache is cleared.
	OnReset []OnResetHook
}

// Hook function type definitions
type (
	// OnChangeHook observes published result snapshots.
	OnChangeHook func(key string, result Result)

	// OnFetchHook observes invocation starts.
	OnFetchHook func(key string, trigger Trigger)

	// OnRetryHook observes retry waits with the failed attempt's
	// number, its error and the backoff before the next attempt.
	OnRetryHook func(key string, attempt int, err error, delay time.Duration)

	// OnSettleHook observes terminal invocation results.
	OnSettleHook func(key string, result Result)

	// OnMutateHook observes applied mutations and the status they
	// produced.
	OnMutateHook func(key string, status Status)

	// OnEvictHook observes entry removal.
	OnEvictHook func(key string, reason EvictReason)

	// OnResetHook observes cache resets.
	OnResetHook func()
)

// EvictReason indicates why a cache entry was removed.
type EvictReason int

const (
	// EvictReasonExpired indicates the post-unsubscribe cache time
	// elapsed with no subscribers left.
	EvictReasonExpired EvictReason = iota

	// EvictReasonCapacity indicates the entry was trimmed to honor
	// MaxEntries.
	EvictReasonCapacity

	// EvictReasonReset indicates the entry was removed by Reset.
	EvictReasonReset
)

func (r EvictReason) String() string {
	switch r {
	case EvictReasonExpired:
		return "expired"
	case EvictReasonCapacity:
		return "capacity"
	case EvictReasonReset:
		return "reset"
	default:
		return "unknown"
	}
}

// AddOnChange adds an OnChange hook.
func (h *Hooks) AddOnChange(hook OnChangeHook) {
	h.OnChange = append(h.OnChange, hook)
}

// AddOnFetch adds an OnFetch hook.
func (h *Hooks) AddOnFetch(hook OnFetchHook) {
	h.OnFetch = append(h.OnFetch, hook)
}

// AddOnRetry adds an OnRetry hook.
func (h *Hooks) AddOnRetry(hook OnRetryHook) {
	h.OnRetry = append(h.OnRetry, hook)
}

// AddOnSettle adds an OnSettle hook.
func (h *Hooks) AddOnSettle(hook OnSettleHook) {
	h.OnSettle = append(h.OnSettle, hook)
}

// AddOnMutate adds an OnMutate hook.
func (h *Hooks) AddOnMutate(hook OnMutateHook) {
	h.OnMutate = append(h.OnMutate, hook)
}

// AddOnEvict adds an OnEvict hook.
func (h *Hooks) AddOnEvict(hook OnEvictHook) {
	h.OnEvict = append(h.OnEvict, hook)
}

// AddOnReset adds an OnReset hook.
func (h *Hooks) AddOnReset(hook OnResetHook) {
	h.OnReset = append(h.OnReset, hook)
}

func (h *Hooks) invokeOnChange(key string, result Result) {
	for _, hook := range h.OnChange {
		if hook != nil {
			hook(key, result)
		}
	}
}

func (h *Hooks) invokeOnFetch(key string, trigger Trigger) {
	for _, hook := range h.OnFetch {
		if hook != nil {
			hook(key, trigger)
		}
	}
}

func (h *Hooks) invokeOnRetry(key string, attempt int, err error, delay time.Duration) {
	for _, hook := range h.OnRetry {
		if hook != nil {
			hook(key, attempt, err, delay)
		}
	}
}

func (h *Hooks) invokeOnSettle(key string, result Result) {
	for _, hook := range h.OnSettle {
		if hook != nil {
			hook(key, result)
		}
	}
}

func (h *Hooks) invokeOnMutate(key string, status Status) {
	for _, hook := range h.OnMutate {
		if hook != nil {
			hook(key, status)
		}
	}
}

func (h *Hooks) invokeOnEvict(key string, reason EvictReason) {
	for _, hook := range h.OnEvict {
		if hook != nil {
			hook(key, reason)
		}
	}
}

func (h *Hooks) invokeOnReset() {
	for _, hook := range h.OnReset {
		if hook != nil {
			hook()
		}
	}
}
