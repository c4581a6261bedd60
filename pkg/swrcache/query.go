package swrcache

import (
	"sync"

	"github.com/vnykmshr/swrcache-go/internal/stream"
	"github.com/vnykmshr/swrcache-go/internal/trigger"
)

// ResultStream is a live, multicast stream of result snapshots for
// one query. The first subscriber activates the query's revalidation
// triggers and subscribes its resolved cache key; the last
// cancellation detaches from the key and starts its eviction
// countdown. The latest snapshot is replayed to late subscribers, and
// the stream never terminates because a fetch failed.
type ResultStream struct {
	cache   *Cache
	baseKey string
	fetch   FetchFunc
	cfg     *QueryConfig
	stream  *stream.Stream[Result]

	paramStream  <-chan any
	staticParams any

	mu     sync.Mutex
	mux    *trigger.Multiplexer
	key    string
	hasKey bool
}

// Subscription is one listener attached to a ResultStream.
type Subscription struct {
	sub *stream.Subscription[Result]
}

// Updates returns the channel carrying result snapshots. Delivery is
// conflating: a slow consumer observes the latest snapshot. The
// channel closes when the subscription is canceled.
func (s *Subscription) Updates() <-chan Result {
	return s.sub.Updates()
}

// Cancel detaches the subscription.
func (s *Subscription) Cancel() {
	s.sub.Cancel()
}

// Query returns a result stream for a key and a fixed parameter
// value. Multiple Query calls resolving to the same cache key share
// one entry and one in-flight invocation.
//
// Nothing happens until the returned stream is subscribed.
func (c *Cache) Query(key string, params any, fetch FetchFunc, opts ...QueryOption) *ResultStream {
	rs := c.newResultStream(key, fetch, opts)
	rs.staticParams = params
	return rs
}

// QueryStream is like Query, but the parameters are a changing
// sequence. Consecutive values are compared structurally: a value
// deep-equal to the previous one is ignored, a distinct value
// detaches from the previous cache key and subscribes the new one.
func (c *Cache) QueryStream(key string, params <-chan any, fetch FetchFunc, opts ...QueryOption) *ResultStream {
	rs := c.newResultStream(key, fetch, opts)
	rs.paramStream = params
	return rs
}

func (c *Cache) newResultStream(key string, fetch FetchFunc, opts []QueryOption) *ResultStream {
	rs := &ResultStream{
		cache:   c,
		baseKey: key,
		fetch:   fetch,
		cfg:     c.resolveQueryConfig(opts),
	}
	rs.stream = stream.New[Result](rs.activate, rs.idle)
	return rs
}

// Subscribe attaches a listener to the stream.
func (rs *ResultStream) Subscribe() *Subscription {
	return &Subscription{sub: rs.stream.Subscribe()}
}

// Latest returns the most recent snapshot seen by this stream.
func (rs *ResultStream) Latest() (Result, bool) {
	return rs.stream.Latest()
}

// Key returns the currently resolved cache key, once the first
// parameter value has been observed.
func (rs *ResultStream) Key() (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.key, rs.hasKey
}

// Revalidate manually triggers a background refresh of the stream's
// current key.
func (rs *ResultStream) Revalidate() {
	if key, ok := rs.Key(); ok {
		rs.cache.Revalidate(key)
	}
}

// MutateOptimistic applies an optimistic cache write scoped to the
// stream's resolved key.
func (rs *ResultStream) MutateOptimistic(v any) {
	if key, ok := rs.Key(); ok {
		rs.cache.MutateOptimistic(key, v)
	}
}

// MutateSuccess confirms an optimistic mutation on the stream's key.
func (rs *ResultStream) MutateSuccess(v any) {
	if key, ok := rs.Key(); ok {
		rs.cache.MutateSuccess(key, v)
	}
}

// MutateError rejects an optimistic mutation on the stream's key.
func (rs *ResultStream) MutateError(err error) {
	if key, ok := rs.Key(); ok {
		rs.cache.MutateError(key, err)
	}
}

// activate runs when the subscriber count goes from zero to one.
func (rs *ResultStream) activate() {
	mux := trigger.New(rs.onTrigger, trigger.Options{
		Params:      rs.staticParams,
		ParamStream: rs.paramStream,
		Focus:       rs.focusChan(),
		Interval:    rs.cfg.RefetchInterval,
		Ticks:       rs.cfg.RefetchTicks,
		Clock:       rs.cache.clock,
	})

	rs.mu.Lock()
	rs.mux = mux
	rs.mu.Unlock()

	mux.Start()
}

// idle runs when the last subscriber cancels: triggers stop first so
// no further revalidation is scheduled on this path, then the key is
// released.
func (rs *ResultStream) idle() {
	rs.mu.Lock()
	mux := rs.mux
	rs.mux = nil
	rs.mu.Unlock()

	if mux != nil {
		mux.Stop()
	}

	rs.mu.Lock()
	key, ok := rs.key, rs.hasKey
	rs.hasKey = false
	rs.mu.Unlock()

	if ok {
		rs.cache.send(&event{trigger: TriggerGroupUnsubscribe, key: key, lis: rs})
	}
}

func (rs *ResultStream) focusChan() <-chan struct{} {
	if !rs.cfg.RefetchOnFocus || rs.cache.focus == nil {
		return nil
	}
	return rs.cache.focus.Focused()
}

// onTrigger maps multiplexer events onto revalidation events for the
// store.
func (rs *ResultStream) onTrigger(ev trigger.Event) {
	key := rs.cfg.KeyFunc(rs.baseKey, ev.Params)

	switch ev.Kind {
	case trigger.KindSubscribe:
		rs.mu.Lock()
		rs.key = key
		rs.hasKey = true
		rs.mu.Unlock()
		rs.cache.send(&event{
			trigger: TriggerSubscribe,
			key:     key,
			params:  ev.Params,
			fetch:   rs.fetch,
			cfg:     rs.cfg,
			lis:     rs,
		})
	case trigger.KindUnsubscribe:
		rs.cache.send(&event{trigger: TriggerUnsubscribe, key: key, lis: rs})
	case trigger.KindFocus:
		rs.cache.send(&event{trigger: TriggerFocus, key: key, params: ev.Params})
	case trigger.KindInterval:
		rs.cache.send(&event{trigger: TriggerInterval, key: key, params: ev.Params})
	}
}

// deliver receives snapshots from the store. Snapshots for a key the
// stream has already switched away from are dropped.
func (rs *ResultStream) deliver(key string, result Result) {
	rs.mu.Lock()
	current := rs.hasKey && rs.key == key
	rs.mu.Unlock()

	if current {
		rs.stream.Publish(result)
	}
}

// Prefetch populates the cache for a key without producing a stream:
// it subscribes, lets the fetch start, and immediately unsubscribes,
// which also starts the eviction countdown.
func (c *Cache) Prefetch(key string, params any, fetch FetchFunc, opts ...QueryOption) {
	cfg := c.resolveQueryConfig(opts)
	resolved := cfg.KeyFunc(key, params)

	c.send(&event{
		trigger: TriggerSubscribe,
		key:     resolved,
		params:  params,
		fetch:   fetch,
		cfg:     cfg,
	})
	c.send(&event{trigger: TriggerUnsubscribe, key: resolved})
}

// Revalidate manually triggers a background refresh for a resolved
// cache key. It is a no-op if the key has no entry or a fetch is
// already in flight.
func (c *Cache) Revalidate(key string) {
	c.send(&event{trigger: TriggerManual, key: key})
}

// MutateOptimistic writes data directly into the cache for a resolved
// key, marking the entry as mutating. data may be a plain value or an
// Updater applied over the current value. No fetch is involved.
func (c *Cache) MutateOptimistic(key string, data any) {
	c.send(&event{trigger: TriggerMutateOptimistic, key: key, data: data})
}

// MutateSuccess confirms a pending mutation, settling the entry with
// data (a plain value or an Updater over the current value).
func (c *Cache) MutateSuccess(key string, data any) {
	c.send(&event{trigger: TriggerMutateSuccess, key: key, data: data})
}

// MutateError rejects a pending mutation. The optimistically written
// value is retained alongside err.
func (c *Cache) MutateError(key string, err error) {
	c.send(&event{trigger: TriggerMutateError, key: key, err: err})
}

// Reset clears every entry and cancels all pending eviction timers.
// Invocations already issued are not canceled; their results are
// discarded when they settle.
func (c *Cache) Reset() {
	c.send(&event{trigger: TriggerResetCache})
}
