package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter implements the Exporter interface for Prometheus
// metrics. Exported stats are cumulative, so counter deltas are
// computed against the previously exported snapshot.
type PrometheusExporter struct {
	config   *Config
	registry prometheus.Registerer

	// Counters
	fetchesTotal    *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	failuresTotal   *prometheus.CounterVec
	hitsTotal       *prometheus.CounterVec
	dedupsTotal     *prometheus.CounterVec
	mutationsTotal  *prometheus.CounterVec
	evictionsTotal  *prometheus.CounterVec
	resetsTotal     *prometheus.CounterVec
	operationsTotal *prometheus.CounterVec

	// Histograms
	operationDuration *prometheus.HistogramVec

	// Gauges
	keysCount       *prometheus.GaugeVec
	inFlightFetches *prometheus.GaugeVec
	hitRate         *prometheus.GaugeVec

	mu       sync.Mutex
	previous map[string]snapshot
}

// snapshot holds the counter values from the last export for one
// label set.
type snapshot struct {
	fetches, retries, failures, hits, dedups, mutations, evictions, resets int64
}

// PrometheusConfig holds Prometheus-specific configuration.
type PrometheusConfig struct {
	// Registry is the Prometheus registry to use (optional, uses the
	// default registerer if nil).
	Registry prometheus.Registerer

	// DurationBuckets for the operation duration histogram.
	DurationBuckets []float64
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(config *Config, promConfig *PrometheusConfig) (*PrometheusExporter, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if promConfig == nil {
		promConfig = &PrometheusConfig{}
	}

	registry := promConfig.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	durationBuckets := promConfig.DurationBuckets
	if durationBuckets == nil {
		durationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	}

	exporter := &PrometheusExporter{
		config:   config,
		registry: registry,
		previous: make(map[string]snapshot),
	}

	if err := exporter.createStandardMetrics(durationBuckets); err != nil {
		return nil, fmt.Errorf("failed to create standard metrics: %w", err)
	}

	return exporter, nil
}

func (p *PrometheusExporter) createStandardMetrics(durationBuckets []float64) error {
	baseLabels := []string{"cache_name"}
	names := p.config.MetricNames

	counters := []struct {
		dest **prometheus.CounterVec
		name string
		help string
	}{
		{&p.fetchesTotal, names.FetchesTotal, "Total number of fetch attempt-chains started"},
		{&p.retriesTotal, names.RetriesTotal, "Total number of retry attempts"},
		{&p.failuresTotal, names.FailuresTotal, "Total number of fetch chains that settled with an error"},
		{&p.hitsTotal, names.HitsTotal, "Total number of subscribes served from a fresh entry"},
		{&p.dedupsTotal, names.DedupsTotal, "Total number of deduplicated revalidation triggers"},
		{&p.mutationsTotal, names.MutationsTotal, "Total number of applied mutations"},
		{&p.evictionsTotal, names.EvictionsTotal, "Total number of evicted entries"},
		{&p.resetsTotal, names.ResetsTotal, "Total number of cache resets"},
	}
	for _, c := range counters {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        c.name,
			Help:        c.help,
			ConstLabels: prometheus.Labels(p.config.Labels),
		}, baseLabels)
		if err := p.registry.Register(vec); err != nil {
			return fmt.Errorf("failed to register %s: %w", c.name, err)
		}
		*c.dest = vec
	}

	p.operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        names.OperationsTotal,
		Help:        "Total number of cache operations",
		ConstLabels: prometheus.Labels(p.config.Labels),
	}, append(baseLabels, "operation"))
	if err := p.registry.Register(p.operationsTotal); err != nil {
		return fmt.Errorf("failed to register %s: %w", names.OperationsTotal, err)
	}

	p.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        names.OperationDuration,
		Help:        "Cache operation duration in seconds",
		Buckets:     durationBuckets,
		ConstLabels: prometheus.Labels(p.config.Labels),
	}, append(baseLabels, "operation"))
	if err := p.registry.Register(p.operationDuration); err != nil {
		return fmt.Errorf("failed to register %s: %w", names.OperationDuration, err)
	}

	gauges := []struct {
		dest **prometheus.GaugeVec
		name string
		help string
	}{
		{&p.keysCount, names.KeysCount, "Current number of cache entries"},
		{&p.inFlightFetches, names.InFlightFetches, "Current number of in-flight fetches"},
		{&p.hitRate, names.HitRate, "Fraction of subscribes served without a fetch"},
	}
	for _, g := range gauges {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        g.name,
			Help:        g.help,
			ConstLabels: prometheus.Labels(p.config.Labels),
		}, baseLabels)
		if err := p.registry.Register(vec); err != nil {
			return fmt.Errorf("failed to register %s: %w", g.name, err)
		}
		*g.dest = vec
	}

	return nil
}

// ExportStats exports the current cache statistics to Prometheus.
func (p *PrometheusExporter) ExportStats(stats Stats, labels Labels) error {
	cacheName := labels["cache_name"]
	promLabels := prometheus.Labels{"cache_name": cacheName}

	current := snapshot{
		fetches:   stats.Fetches(),
		retries:   stats.Retries(),
		failures:  stats.Failures(),
		hits:      stats.Hits(),
		dedups:    stats.Dedups(),
		mutations: stats.Mutations(),
		evictions: stats.Evictions(),
		resets:    stats.Resets(),
	}

	p.mu.Lock()
	prev := p.previous[cacheName]
	p.previous[cacheName] = current
	p.mu.Unlock()

	p.fetchesTotal.With(promLabels).Add(delta(current.fetches, prev.fetches))
	p.retriesTotal.With(promLabels).Add(delta(current.retries, prev.retries))
	p.failuresTotal.With(promLabels).Add(delta(current.failures, prev.failures))
	p.hitsTotal.With(promLabels).Add(delta(current.hits, prev.hits))
	p.dedupsTotal.With(promLabels).Add(delta(current.dedups, prev.dedups))
	p.mutationsTotal.With(promLabels).Add(delta(current.mutations, prev.mutations))
	p.evictionsTotal.With(promLabels).Add(delta(current.evictions, prev.evictions))
	p.resetsTotal.With(promLabels).Add(delta(current.resets, prev.resets))

	p.keysCount.With(promLabels).Set(float64(stats.KeyCount()))
	p.inFlightFetches.With(promLabels).Set(float64(stats.InFlight()))
	p.hitRate.With(promLabels).Set(stats.HitRate())

	return nil
}

// RecordCacheOperation records a cache operation with timing.
func (p *PrometheusExporter) RecordCacheOperation(operation Operation, duration time.Duration, labels Labels) error {
	promLabels := prometheus.Labels{
		"cache_name": labels["cache_name"],
		"operation":  string(operation),
	}
	p.operationsTotal.With(promLabels).Inc()
	if p.config.IncludeDetailedTimings {
		p.operationDuration.With(promLabels).Observe(duration.Seconds())
	}
	return nil
}

// Close shuts down the exporter. Prometheus metrics are pull-based
// and need no flushing.
func (p *PrometheusExporter) Close() error {
	return nil
}

func delta(current, previous int64) float64 {
	if current < previous {
		// Stats were recreated, emit the full current value.
		return float64(current)
	}
	return float64(current - previous)
}

// Ensure interface is implemented
var _ Exporter = (*PrometheusExporter)(nil)
