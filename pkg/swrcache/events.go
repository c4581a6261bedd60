package swrcache

import "time"

// Trigger identifies what caused a revalidation event.
type Trigger int

const (
	// TriggerSubscribe attaches a listener to a key, creating the
	// entry and starting its first fetch if needed.
	TriggerSubscribe Trigger = iota

	// TriggerUnsubscribe detaches a listener after a parameter change.
	TriggerUnsubscribe

	// TriggerGroupUnsubscribe detaches the last listener of a result
	// stream when it goes idle.
	TriggerGroupUnsubscribe

	// TriggerInterval revalidates on a refetch interval tick.
	TriggerInterval

	// TriggerFocus revalidates when the host environment regains focus.
	TriggerFocus

	// TriggerManual revalidates on an explicit Revalidate call.
	TriggerManual

	// TriggerMutateOptimistic applies an optimistic cache write.
	TriggerMutateOptimistic

	// TriggerMutateSuccess confirms an optimistic mutation.
	TriggerMutateSuccess

	// TriggerMutateError rejects an optimistic mutation.
	TriggerMutateError

	// TriggerGroupRemove evicts an entry whose eviction countdown
	// elapsed with no subscribers left.
	TriggerGroupRemove

	// TriggerResetCache clears every entry and pending timer.
	TriggerResetCache

	// triggerRetryWait relabels an entry while its invocation waits
	// out a retry backoff.
	triggerRetryWait

	// triggerSettle applies the terminal result of an invocation.
	triggerSettle
)

func (t Trigger) String() string {
	switch t {
	case TriggerSubscribe:
		return "subscribe"
	case TriggerUnsubscribe:
		return "unsubscribe"
	case TriggerGroupUnsubscribe:
		return "group-unsubscribe"
	case TriggerInterval:
		return "interval"
	case TriggerFocus:
		return "focus"
	case TriggerManual:
		return "manual"
	case TriggerMutateOptimistic:
		return "mutate-optimistic"
	case TriggerMutateSuccess:
		return "mutate-success"
	case TriggerMutateError:
		return "mutate-error"
	case TriggerGroupRemove:
		return "group-remove"
	case TriggerResetCache:
		return "reset-cache"
	case triggerRetryWait:
		return "retry-wait"
	case triggerSettle:
		return "settle"
	default:
		return "unknown"
	}
}

// listener receives result snapshots for one resolved cache key.
type listener interface {
	deliver(key string, result Result)
}

// event is one revalidation event consumed by the store's reducer.
// Events are applied strictly one at a time in arrival order.
type event struct {
	trigger Trigger
	key     string

	// Populate-path fields, set for subscribe-family triggers.
	params any
	fetch  FetchFunc
	cfg    *QueryConfig
	lis    listener

	// Mutation payload: a value or an Updater for the mutate triggers,
	// the settled value for triggerSettle.
	data any
	err  error

	// Invocation bookkeeping for retry-wait and settle events.
	invocation uint64
	attempt    int
	delay      time.Duration
}
