package swrcache

import "reflect"

// Status describes the lifecycle state of a cache entry's result.
type Status int

const (
	// StatusIdle is the state of an entry before its first fetch.
	StatusIdle Status = iota

	// StatusLoading indicates the first fetch for a key is running.
	StatusLoading

	// StatusSuccess indicates the last fetch settled with a value.
	StatusSuccess

	// StatusError indicates the last attempt-chain exhausted its
	// retry budget; Result.Err carries the final failure.
	StatusError

	// StatusRefreshing indicates a background revalidation is running
	// while the previous result remains visible.
	StatusRefreshing

	// StatusMutating indicates an optimistic mutation has been applied
	// and is awaiting confirmation.
	StatusMutating

	// StatusMutateError indicates a mutation was rejected.
	StatusMutateError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusRefreshing:
		return "refreshing"
	case StatusMutating:
		return "mutating"
	case StatusMutateError:
		return "mutate-error"
	default:
		return "unknown"
	}
}

// Settled reports whether s is a terminal fetch state from which a new
// revalidation may start.
func (s Status) Settled() bool {
	return s == StatusSuccess || s == StatusError || s == StatusMutateError
}

// Result is one snapshot of a cache entry as observed by subscribers.
type Result struct {
	// Status is the entry's position in the state machine.
	Status Status

	// Data is the last known value. It survives background refreshes,
	// retries and rejected mutations.
	Data any

	// Err carries the failure for StatusError and StatusMutateError.
	Err error

	// Retries is the number of retry attempts used by the attempt-chain
	// that produced (or is producing) this snapshot. Zero when the
	// first attempt succeeded.
	Retries int
}

// Equal reports whether two snapshots are observably identical.
// Consecutive equal snapshots are coalesced into a single emission.
func (r Result) Equal(other Result) bool {
	return r.Status == other.Status &&
		r.Retries == other.Retries &&
		r.Err == other.Err &&
		reflect.DeepEqual(r.Data, other.Data)
}
