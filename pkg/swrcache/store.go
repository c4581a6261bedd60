package swrcache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/vnykmshr/swrcache-go/internal/clock"
	"github.com/vnykmshr/swrcache-go/pkg/metrics"
)

// entryIndexCapacity is the fixed capacity handed to the underlying
// LRU index. Entries are never trimmed by the index itself; the
// reducer trims explicitly so subscribed entries are never dropped.
const entryIndexCapacity = 1 << 30

// Cache is a stale-while-revalidate cache for asynchronous fetch
// operations. All cache state is mutated by a single reducer
// goroutine consuming revalidation events one at a time, so no two
// mutations ever race and every reader observes a consistent view.
type Cache struct {
	config  *Config
	keyFunc KeyFunc
	hooks   *Hooks
	log     Logger
	clock   clock.Clock
	focus   FocusSource
	stats   *Stats

	// entries is a recency-ordered index so MaxEntries trimming can
	// walk candidates oldest first.
	entries *simplelru.LRU[string, *entry]
	mu      sync.RWMutex

	events         chan *event
	nextInvocation atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metricsExporter metrics.Exporter
	metricsLabels   metrics.Labels
	metricsStop     chan struct{}
	metricsWg       sync.WaitGroup
}

// New creates a Cache with the given configuration and starts its
// reducer. Pass nil for defaults. Callers must Close the cache when
// done with it.
func New(config *Config) (*Cache, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	entries, err := simplelru.NewLRU[string, *entry](entryIndexCapacity, nil)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	cache := &Cache{
		config:  config,
		keyFunc: config.KeyFunc,
		hooks:   config.Hooks,
		log:     config.Logger,
		clock:   config.Clock,
		focus:   config.Focus,
		stats:   &Stats{},
		entries: entries,
		ctx:     ctx,
		cancel:  cancel,
	}

	if cache.keyFunc == nil {
		cache.keyFunc = Key
	}
	if cache.hooks == nil {
		cache.hooks = &Hooks{}
	}
	if cache.log == nil {
		cache.log = NewNoOpLogger()
	}
	if cache.clock == nil {
		cache.clock = clock.New()
	}

	buffer := config.EventBuffer
	if buffer <= 0 {
		buffer = 256
	}
	cache.events = make(chan *event, buffer)

	if err := cache.initializeMetrics(); err != nil {
		cancel()
		return nil, err
	}

	cache.wg.Add(1)
	go cache.run()

	return cache, nil
}

// Close stops the reducer, all pending eviction timers and the
// metrics reporter. Invocations already issued keep running until
// their fetch returns; their results are discarded.
func (c *Cache) Close() error {
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	for _, key := range c.entries.Keys() {
		if ent, ok := c.entries.Peek(key); ok {
			ent.cancelEviction()
		}
	}
	c.mu.Unlock()

	if c.metricsStop != nil {
		close(c.metricsStop)
		c.metricsWg.Wait()
	}
	if c.metricsExporter != nil {
		return c.metricsExporter.Close()
	}
	return nil
}

// Stats returns the cache statistics.
func (c *Cache) Stats() *Stats {
	return c.stats
}

// Peek returns the current result snapshot for a resolved cache key
// without affecting recency or triggering a revalidation.
func (c *Cache) Peek(key string) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ent, ok := c.entries.Peek(key)
	if !ok {
		return Result{}, false
	}
	return ent.result, true
}

// Keys returns all resolved cache keys, oldest first.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Keys()
}

// Len returns the current number of cache entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

// send queues an event for the reducer. Events arriving after Close
// are dropped.
func (c *Cache) send(e *event) {
	select {
	case c.events <- e:
	case <-c.ctx.Done():
	}
}

func (c *Cache) run() {
	defer c.wg.Done()
	for {
		select {
		case e := <-c.events:
			c.apply(e)
		case <-c.ctx.Done():
			return
		}
	}
}

// apply is the reducer step: exactly one event mutates the store at
// a time, in arrival order.
func (c *Cache) apply(e *event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch e.trigger {
	case TriggerSubscribe:
		c.applySubscribe(e)
	case TriggerUnsubscribe, TriggerGroupUnsubscribe:
		c.applyUnsubscribe(e)
	case TriggerInterval, TriggerFocus, TriggerManual:
		c.applyRevalidate(e)
	case TriggerMutateOptimistic:
		c.applyMutateOptimistic(e)
	case TriggerMutateSuccess:
		c.applyMutateSuccess(e)
	case TriggerMutateError:
		c.applyMutateError(e)
	case TriggerGroupRemove:
		c.applyGroupRemove(e)
	case TriggerResetCache:
		c.applyReset()
	case triggerRetryWait:
		c.applyRetryWait(e)
	case triggerSettle:
		c.applySettle(e)
	}

	c.stats.setKeyCount(int64(c.entries.Len()))
}

func (c *Cache) applySubscribe(e *event) {
	ent, ok := c.entries.Get(e.key)
	if !ok {
		ent = &entry{
			key:    e.key,
			cfg:    e.cfg,
			params: e.params,
			fetch:  e.fetch,
			result: Result{Status: StatusIdle},
		}
		c.entries.Add(e.key, ent)
		ent.subscribers = 1
		ent.attach(e.lis)
		ent.result = Result{Status: StatusLoading}
		c.publish(ent)
		c.startInvocation(ent, TriggerSubscribe)
		c.trimEntries(e.key)
		return
	}

	ent.subscribers++
	ent.cancelEviction()
	ent.attach(e.lis)
	// The latest subscriber's resolved config and fetch win for
	// future revalidations of this key.
	if e.fetch != nil {
		ent.fetch = e.fetch
	}
	if e.cfg != nil {
		ent.cfg = e.cfg
	}
	ent.params = e.params
	if e.lis != nil {
		e.lis.deliver(ent.key, ent.result)
	}

	if ent.invocation != 0 {
		c.stats.incDedups()
		return
	}
	if ent.fresh(c.clock.Now()) {
		c.stats.incHits()
		return
	}
	if !ent.result.Status.Settled() {
		return
	}

	// Stale entry: expose the previous result while refreshing.
	ent.result = Result{Status: StatusRefreshing, Data: ent.result.Data}
	c.publish(ent)
	c.startInvocation(ent, TriggerSubscribe)
}

func (c *Cache) applyUnsubscribe(e *event) {
	ent, ok := c.entries.Peek(e.key)
	if !ok {
		return
	}

	ent.detach(e.lis)
	if ent.subscribers > 0 {
		ent.subscribers--
	}
	if ent.subscribers == 0 {
		c.scheduleEviction(ent)
	}
}

func (c *Cache) applyRevalidate(e *event) {
	ent, ok := c.entries.Get(e.key)
	if !ok {
		return
	}
	if ent.invocation != 0 {
		c.stats.incDedups()
		return
	}
	if !ent.result.Status.Settled() {
		return
	}

	ent.result = Result{Status: StatusRefreshing, Data: ent.result.Data}
	c.publish(ent)
	c.startInvocation(ent, e.trigger)
}

func (c *Cache) applyMutateOptimistic(e *event) {
	ent, ok := c.entries.Get(e.key)
	if !ok {
		c.log.Debug("mutate on absent key", F("key", e.key))
		return
	}
	switch ent.result.Status {
	case StatusSuccess, StatusError, StatusRefreshing, StatusMutating, StatusMutateError:
	default:
		// No transition from idle or an initial load.
		return
	}

	ent.result = Result{
		Status: StatusMutating,
		Data:   resolveMutation(e.data, ent.result.Data),
	}
	c.publish(ent)
	c.stats.incMutations()
	c.hooks.invokeOnMutate(ent.key, StatusMutating)
}

func (c *Cache) applyMutateSuccess(e *event) {
	ent, ok := c.entries.Get(e.key)
	if !ok || ent.result.Status != StatusMutating {
		c.log.Debug("mutate-success without pending mutation", F("key", e.key))
		return
	}

	ent.result = Result{
		Status: StatusSuccess,
		Data:   resolveMutation(e.data, ent.result.Data),
	}
	ent.lastUpdated = c.clock.Now()
	c.publish(ent)
	c.stats.incMutations()
	c.hooks.invokeOnMutate(ent.key, StatusSuccess)
}

func (c *Cache) applyMutateError(e *event) {
	ent, ok := c.entries.Get(e.key)
	if !ok || ent.result.Status != StatusMutating {
		c.log.Debug("mutate-error without pending mutation", F("key", e.key))
		return
	}

	// The optimistically written value is retained alongside the
	// rejection, so subscribers can offer a retry over it.
	ent.result = Result{
		Status: StatusMutateError,
		Data:   ent.result.Data,
		Err:    e.err,
	}
	c.publish(ent)
	c.stats.incMutations()
	c.hooks.invokeOnMutate(ent.key, StatusMutateError)
}

func (c *Cache) applyGroupRemove(e *event) {
	ent, ok := c.entries.Peek(e.key)
	if !ok {
		return
	}
	// A late re-subscribe cancels the pending removal.
	if ent.subscribers > 0 {
		return
	}

	ent.cancelEviction()
	ent.invocation = 0
	c.entries.Remove(e.key)
	c.stats.incEvictions()
	c.hooks.invokeOnEvict(e.key, EvictReasonExpired)
	c.log.Debug("entry evicted", F("key", e.key))
}

func (c *Cache) applyReset() {
	for _, key := range c.entries.Keys() {
		if ent, ok := c.entries.Peek(key); ok {
			ent.cancelEviction()
			ent.invocation = 0
		}
		c.hooks.invokeOnEvict(key, EvictReasonReset)
	}
	c.entries.Purge()
	c.stats.incResets()
	c.hooks.invokeOnReset()
	c.log.Debug("cache reset")
}

func (c *Cache) applyRetryWait(e *event) {
	ent, ok := c.entries.Peek(e.key)
	if !ok || ent.invocation != e.invocation {
		return
	}

	// Relabel the running state with the retry count. The interim
	// error is never exposed, so subscribers see no flicker between
	// attempts.
	result := ent.result
	result.Retries = e.attempt + 1
	ent.result = result
	c.publish(ent)
	c.stats.incRetries()
	c.hooks.invokeOnRetry(ent.key, e.attempt, e.err, e.delay)
}

func (c *Cache) applySettle(e *event) {
	ent, ok := c.entries.Peek(e.key)
	if !ok || ent.invocation != e.invocation {
		// The entry was evicted or the cache reset after this
		// invocation was issued; discard its result.
		return
	}
	ent.invocation = 0

	// A mutation applied while the fetch was in flight wins; there is
	// no settle transition out of the mutating states.
	if ent.result.Status == StatusMutating || ent.result.Status == StatusMutateError {
		return
	}

	if e.err != nil {
		ent.result = Result{
			Status:  StatusError,
			Data:    ent.result.Data,
			Err:     e.err,
			Retries: e.attempt,
		}
		c.stats.incFailures()
	} else {
		ent.result = Result{
			Status:  StatusSuccess,
			Data:    e.data,
			Retries: e.attempt,
		}
	}
	ent.lastUpdated = c.clock.Now()
	c.publish(ent)
	c.hooks.invokeOnSettle(ent.key, ent.result)
}

// startInvocation launches the attempt-chain for an entry. Caller
// holds the store lock; the chain itself runs on its own goroutine
// and reports back through internal events.
func (c *Cache) startInvocation(ent *entry, trig Trigger) {
	id := c.nextInvocation.Add(1)
	ent.invocation = id
	c.stats.incFetches()
	c.stats.incInFlight()
	c.hooks.invokeOnFetch(ent.key, trig)
	c.log.Debug("fetch started",
		F("key", ent.key), F("trigger", trig.String()))

	inv := newInvoker(c.clock, ent.cfg)
	key, fetch, params := ent.key, ent.fetch, ent.params

	go func() {
		defer c.stats.decInFlight()

		start := c.clock.Now()
		res := inv.run(c.ctx, fetch, params, func(attempt int, err error, delay time.Duration) {
			c.send(&event{
				trigger:    triggerRetryWait,
				key:        key,
				invocation: id,
				attempt:    attempt,
				err:        err,
				delay:      delay,
			})
		})
		c.recordOperation(metrics.OperationFetch, c.clock.Now().Sub(start))

		c.send(&event{
			trigger:    triggerSettle,
			key:        key,
			invocation: id,
			attempt:    res.retries,
			data:       res.data,
			err:        res.err,
		})
	}()
}

// scheduleEviction arms the group-remove countdown for an entry that
// just lost its last subscriber.
func (c *Cache) scheduleEviction(ent *entry) {
	ent.cancelEviction()

	cacheTime := DefaultCacheTime
	if ent.cfg != nil {
		cacheTime = ent.cfg.CacheTime
	}
	key := ent.key
	ent.evictTimer = c.clock.AfterFunc(cacheTime, func() {
		c.send(&event{trigger: TriggerGroupRemove, key: key})
	})
}

// trimEntries enforces MaxEntries after an insert, walking oldest
// first and skipping entries that are subscribed or fetching.
func (c *Cache) trimEntries(justAdded string) {
	maxEntries := c.config.MaxEntries
	if maxEntries <= 0 || c.entries.Len() <= maxEntries {
		return
	}

	for _, key := range c.entries.Keys() {
		if c.entries.Len() <= maxEntries {
			return
		}
		if key == justAdded {
			continue
		}
		ent, ok := c.entries.Peek(key)
		if !ok || ent.subscribers > 0 || ent.invocation != 0 {
			continue
		}
		ent.cancelEviction()
		c.entries.Remove(key)
		c.stats.incEvictions()
		c.hooks.invokeOnEvict(key, EvictReasonCapacity)
	}
}

// publish delivers the entry's current result to its listeners,
// coalescing consecutive identical snapshots into one emission.
func (c *Cache) publish(ent *entry) {
	if ent.published && ent.result.Equal(ent.lastPublished) {
		return
	}
	ent.lastPublished = ent.result
	ent.published = true

	for _, lis := range ent.listeners {
		lis.deliver(ent.key, ent.result)
	}
	c.hooks.invokeOnChange(ent.key, ent.result)
}

// resolveMutation applies an updater function over the current value,
// or returns the plain replacement value.
func resolveMutation(v, current any) any {
	switch fn := v.(type) {
	case Updater:
		return fn(current)
	case func(any) any:
		return fn(current)
	default:
		return v
	}
}

// initializeMetrics sets up metrics collection if configured.
func (c *Cache) initializeMetrics() error {
	if c.config.Metrics == nil || !c.config.Metrics.Enabled || c.config.Metrics.Exporter == nil {
		c.metricsExporter = metrics.NewNoOpExporter()
		return nil
	}

	c.metricsExporter = c.config.Metrics.Exporter

	c.metricsLabels = make(metrics.Labels)
	if c.config.Metrics.CacheName != "" {
		c.metricsLabels["cache_name"] = c.config.Metrics.CacheName
	} else {
		c.metricsLabels["cache_name"] = "default"
	}
	for k, v := range c.config.Metrics.Labels {
		c.metricsLabels[k] = v
	}

	if c.config.Metrics.ReportingInterval > 0 {
		c.metricsStop = make(chan struct{})
		c.metricsWg.Add(1)
		go c.metricsReporter()
	}

	return nil
}

// metricsReporter periodically exports cache statistics.
func (c *Cache) metricsReporter() {
	defer c.metricsWg.Done()

	ticker := c.clock.NewTicker(c.config.Metrics.ReportingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			c.exportCurrentStats()
		case <-c.metricsStop:
			c.exportCurrentStats()
			return
		}
	}
}

func (c *Cache) exportCurrentStats() {
	if c.metricsExporter != nil {
		_ = c.metricsExporter.ExportStats(c.stats, c.metricsLabels)
	}
}

func (c *Cache) recordOperation(operation metrics.Operation, duration time.Duration) {
	if c.metricsExporter != nil {
		_ = c.metricsExporter.RecordCacheOperation(operation, duration, c.metricsLabels)
	}
}
