package swrcache

import (
	"context"
	"time"

	"github.com/vnykmshr/swrcache-go/internal/clock"
	"github.com/vnykmshr/swrcache-go/pkg/metrics"
)

// FetchFunc is the user-supplied fetch operation. It must return
// exactly one value or fail, once, per invocation.
type FetchFunc func(ctx context.Context, params any) (any, error)

// Updater derives a new cached value from the current one. Mutation
// calls accept either a plain value or an Updater.
type Updater func(current any) any

// RetryCondition decides whether a failed attempt should be retried.
// attempt is the zero-based number of the attempt that just failed.
type RetryCondition func(attempt int, err error) bool

// RetryDelayFunc returns the backoff before retry number attempt+1.
type RetryDelayFunc func(attempt int) time.Duration

// FocusSource reports regained focus from the host environment.
// It is an external collaborator, only consulted when a query sets
// RefetchOnFocus.
type FocusSource interface {
	// Focused delivers one signal each time focus is regained.
	Focused() <-chan struct{}
}

// Default query behavior applied when a QueryConfig leaves the
// corresponding field unset.
const (
	DefaultRetries   = 3
	DefaultCacheTime = 5 * time.Minute
	DefaultStaleTime = 0
)

// DefaultRetryDelay is the default backoff: attempt n waits (n+1)s.
func DefaultRetryDelay(attempt int) time.Duration {
	return time.Duration(attempt+1) * time.Second
}

// QueryConfig holds the per-query revalidation behavior.
type QueryConfig struct {
	// Retries is the maximum number of retry attempts after the
	// initial one. Ignored when RetryIf is set.
	Retries int

	// RetryIf, when non-nil, replaces the numeric retry budget with a
	// predicate over (attempt, error).
	RetryIf RetryCondition

	// RetryDelay computes the backoff between attempts.
	// Default: DefaultRetryDelay.
	RetryDelay RetryDelayFunc

	// RefetchInterval enables periodic background revalidation when
	// positive.
	RefetchInterval time.Duration

	// RefetchTicks, when non-nil, replaces the built-in interval
	// ticker with an externally supplied timing sequence.
	RefetchTicks <-chan time.Time

	// RefetchOnFocus revalidates whenever the cache's FocusSource
	// reports regained focus.
	RefetchOnFocus bool

	// StaleTime is how long a settled result is served without a
	// background refresh. Default: 0, every re-subscribe revalidates.
	StaleTime time.Duration

	// CacheTime is how long an entry with no subscribers survives
	// before eviction. Default: 5 minutes.
	CacheTime time.Duration

	// KeyFunc overrides the cache's key resolution for this query.
	KeyFunc KeyFunc
}

// NewDefaultQueryConfig returns the per-query defaults.
func NewDefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		StaleTime:  DefaultStaleTime,
		CacheTime:  DefaultCacheTime,
	}
}

// retryCondition resolves the effective retry predicate.
func (qc *QueryConfig) retryCondition() RetryCondition {
	if qc.RetryIf != nil {
		return qc.RetryIf
	}
	budget := qc.Retries
	return func(attempt int, _ error) bool {
		return attempt < budget
	}
}

func (qc *QueryConfig) retryDelay() RetryDelayFunc {
	if qc.RetryDelay != nil {
		return qc.RetryDelay
	}
	return DefaultRetryDelay
}

// QueryOption configures one Query, Prefetch or Revalidate call.
type QueryOption func(*QueryConfig)

// WithRetries sets the retry budget after the initial attempt.
func WithRetries(n int) QueryOption {
	return func(qc *QueryConfig) {
		qc.Retries = n
	}
}

// WithRetryIf replaces the numeric retry budget with a predicate.
func WithRetryIf(cond RetryCondition) QueryOption {
	return func(qc *QueryConfig) {
		qc.RetryIf = cond
	}
}

// WithRetryDelay sets the backoff function between attempts.
func WithRetryDelay(delay RetryDelayFunc) QueryOption {
	return func(qc *QueryConfig) {
		qc.RetryDelay = delay
	}
}

// WithRefetchInterval enables periodic background revalidation.
func WithRefetchInterval(d time.Duration) QueryOption {
	return func(qc *QueryConfig) {
		qc.RefetchInterval = d
	}
}

// WithRefetchTicks drives interval revalidation from an external
// timing sequence instead of a fixed period.
func WithRefetchTicks(ticks <-chan time.Time) QueryOption {
	return func(qc *QueryConfig) {
		qc.RefetchTicks = ticks
	}
}

// WithRefetchOnFocus revalidates on regained focus.
func WithRefetchOnFocus() QueryOption {
	return func(qc *QueryConfig) {
		qc.RefetchOnFocus = true
	}
}

// WithStaleTime sets how long a settled result is considered fresh.
func WithStaleTime(d time.Duration) QueryOption {
	return func(qc *QueryConfig) {
		qc.StaleTime = d
	}
}

// WithCacheTime sets how long an unsubscribed entry survives.
func WithCacheTime(d time.Duration) QueryOption {
	return func(qc *QueryConfig) {
		qc.CacheTime = d
	}
}

// WithKeyFunc sets a custom key resolution for this query.
func WithKeyFunc(fn KeyFunc) QueryOption {
	return func(qc *QueryConfig) {
		qc.KeyFunc = fn
	}
}

// MetricsConfig holds metrics exporter configuration.
type MetricsConfig struct {
	// Exporter receives cache statistics and operation timings.
	Exporter metrics.Exporter

	// Enabled determines whether metrics collection is active.
	Enabled bool

	// CacheName is the name label applied to all metrics for this
	// cache instance.
	CacheName string

	// ReportingInterval determines how often stats are exported
	// automatically. Zero disables the reporter.
	ReportingInterval time.Duration

	// Labels are additional labels applied to all metrics.
	Labels metrics.Labels
}

// Config defines the configuration options for a Cache instance.
type Config struct {
	// MaxEntries bounds the number of cache entries. Zero means
	// unbounded. Only entries with no subscribers and no in-flight
	// invocation are trimmed.
	MaxEntries int

	// EventBuffer sizes the revalidation event channel. Default: 256.
	EventBuffer int

	// KeyFunc resolves (key, params) pairs into cache keys.
	// Default: Key.
	KeyFunc KeyFunc

	// Hooks defines event callbacks for cache operations.
	Hooks *Hooks

	// Logger receives cache activity. Default: NoOpLogger.
	Logger Logger

	// Clock supplies time and timers. Default: the real clock.
	Clock clock.Clock

	// Focus is the host-provided focus event source, required only by
	// queries that set RefetchOnFocus.
	Focus FocusSource

	// Metrics holds metrics exporter configuration.
	// If nil, no metrics are exported.
	Metrics *MetricsConfig
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		EventBuffer: 256,
		Hooks:       &Hooks{},
	}
}

// WithMaxEntries bounds the number of cache entries.
func (c *Config) WithMaxEntries(maxEntries int) *Config {
	c.MaxEntries = maxEntries
	return c
}

// WithKeyFunc sets the default key resolution function.
func (c *Config) WithKeyFunc(fn KeyFunc) *Config {
	c.KeyFunc = fn
	return c
}

// WithHooks sets the event hooks for cache operations.
func (c *Config) WithHooks(hooks *Hooks) *Config {
	c.Hooks = hooks
	return c
}

// WithLogger sets the cache logger.
func (c *Config) WithLogger(logger Logger) *Config {
	c.Logger = logger
	return c
}

// WithClock sets the time source, typically a fake clock in tests.
func (c *Config) WithClock(clk clock.Clock) *Config {
	c.Clock = clk
	return c
}

// WithFocusSource sets the host focus event source.
func (c *Config) WithFocusSource(src FocusSource) *Config {
	c.Focus = src
	return c
}

// WithMetrics configures cache metrics export.
func (c *Config) WithMetrics(metricsConfig *MetricsConfig) *Config {
	c.Metrics = metricsConfig
	return c
}

// WithMetricsExporter configures metrics with the given exporter.
func (c *Config) WithMetricsExporter(exporter metrics.Exporter, cacheName string) *Config {
	c.Metrics = &MetricsConfig{
		Exporter:          exporter,
		Enabled:           true,
		CacheName:         cacheName,
		ReportingInterval: 30 * time.Second,
		Labels:            make(metrics.Labels),
	}
	return c
}

// resolveQueryConfig merges options over the per-query defaults.
func (c *Cache) resolveQueryConfig(opts []QueryOption) *QueryConfig {
	qc := NewDefaultQueryConfig()
	for _, opt := range opts {
		opt(qc)
	}
	if qc.KeyFunc == nil {
		qc.KeyFunc = c.keyFunc
	}
	return qc
}
