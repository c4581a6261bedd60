package swrcache

import "sync/atomic"

// Stats holds cache performance statistics.
type Stats struct {
	// fetches is the number of invocation attempt-chains started
	fetches int64

	// retries is the number of retry attempts across all chains
	retries int64

	// failures is the number of chains that settled with an error
	failures int64

	// hits is the number of subscribes served from a fresh entry
	hits int64

	// dedups is the number of revalidation triggers suppressed
	// because an invocation was already in flight
	dedups int64

	// mutations is the number of applied mutation events
	mutations int64

	// evictions is the number of removed entries
	evictions int64

	// resets is the number of full cache resets
	resets int64

	// keyCount is the current number of entries
	keyCount int64

	// inFlight is the number of invocations currently running
	inFlight int64
}

// Fetches returns the number of invocation attempt-chains started.
func (s *Stats) Fetches() int64 {
	return atomic.LoadInt64(&s.fetches)
}

// Retries returns the number of retry attempts across all chains.
func (s *Stats) Retries() int64 {
	return atomic.LoadInt64(&s.retries)
}

// Failures returns the number of chains that settled with an error.
func (s *Stats) Failures() int64 {
	return atomic.LoadInt64(&s.failures)
}

// Hits returns the number of subscribes served from a fresh entry
// without triggering a revalidation.
func (s *Stats) Hits() int64 {
	return atomic.LoadInt64(&s.hits)
}

// Dedups returns the number of suppressed duplicate revalidations.
func (s *Stats) Dedups() int64 {
	return atomic.LoadInt64(&s.dedups)
}

// Mutations returns the number of applied mutation events.
func (s *Stats) Mutations() int64 {
	return atomic.LoadInt64(&s.mutations)
}

// Evictions returns the number of removed entries.
func (s *Stats) Evictions() int64 {
	return atomic.LoadInt64(&s.evictions)
}

// Resets returns the number of full cache resets.
func (s *Stats) Resets() int64 {
	return atomic.LoadInt64(&s.resets)
}

// KeyCount returns the current number of entries.
func (s *Stats) KeyCount() int64 {
	return atomic.LoadInt64(&s.keyCount)
}

// InFlight returns the number of invocations currently running.
func (s *Stats) InFlight() int64 {
	return atomic.LoadInt64(&s.inFlight)
}

// HitRate returns the fraction of subscribes served without a fetch.
func (s *Stats) HitRate() float64 {
	hits := s.Hits()
	total := hits + s.Fetches()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func (s *Stats) incFetches()   { atomic.AddInt64(&s.fetches, 1) }
func (s *Stats) incRetries()   { atomic.AddInt64(&s.retries, 1) }
func (s *Stats) incFailures()  { atomic.AddInt64(&s.failures, 1) }
func (s *Stats) incHits()      { atomic.AddInt64(&s.hits, 1) }
func (s *Stats) incDedups()    { atomic.AddInt64(&s.dedups, 1) }
func (s *Stats) incMutations() { atomic.AddInt64(&s.mutations, 1) }
func (s *Stats) incEvictions() { atomic.AddInt64(&s.evictions, 1) }
func (s *Stats) incResets()    { atomic.AddInt64(&s.resets, 1) }
func (s *Stats) incInFlight()  { atomic.AddInt64(&s.inFlight, 1) }
func (s *Stats) decInFlight()  { atomic.AddInt64(&s.inFlight, -1) }

func (s *Stats) setKeyCount(n int64) { atomic.StoreInt64(&s.keyCount, n) }
