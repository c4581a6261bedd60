package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpenTelemetryExporter implements the Exporter interface for
// OpenTelemetry metrics. Counter instruments are monotonic, so deltas
// against the previous export are recorded rather than raw totals.
type OpenTelemetryExporter struct {
	config *Config
	meter  metric.Meter
	ctx    context.Context

	fetchesCounter    metric.Int64Counter
	retriesCounter    metric.Int64Counter
	failuresCounter   metric.Int64Counter
	hitsCounter       metric.Int64Counter
	dedupsCounter     metric.Int64Counter
	mutationsCounter  metric.Int64Counter
	evictionsCounter  metric.Int64Counter
	resetsCounter     metric.Int64Counter
	operationsCounter metric.Int64Counter

	operationDuration metric.Float64Histogram

	keysGauge     metric.Int64Gauge
	inFlightGauge metric.Int64Gauge
	hitRateGauge  metric.Float64Gauge

	mu       sync.Mutex
	previous map[string]snapshot
}

// OpenTelemetryConfig holds OpenTelemetry-specific configuration.
type OpenTelemetryConfig struct {
	// Meter is the OpenTelemetry meter to use
	Meter metric.Meter

	// Context is the context to use for metric operations
	Context context.Context
}

// NewOpenTelemetryExporter creates a new OpenTelemetry metrics exporter.
func NewOpenTelemetryExporter(config *Config, otelConfig *OpenTelemetryConfig) (*OpenTelemetryExporter, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	if otelConfig == nil {
		return nil, fmt.Errorf("OpenTelemetry configuration is required")
	}

	if otelConfig.Meter == nil {
		return nil, fmt.Errorf("OpenTelemetry meter is required")
	}

	ctx := otelConfig.Context
	if ctx == nil {
		ctx = context.Background()
	}

	exporter := &OpenTelemetryExporter{
		config:   config,
		meter:    otelConfig.Meter,
		ctx:      ctx,
		previous: make(map[string]snapshot),
	}

	if err := exporter.createStandardMetrics(); err != nil {
		return nil, fmt.Errorf("failed to create standard metrics: %w", err)
	}

	return exporter, nil
}

// createStandardMetrics creates all the standard cache metrics
func (o *OpenTelemetryExporter) createStandardMetrics() error {
	var err error
	names := o.config.MetricNames

	counters := []struct {
		dest *metric.Int64Counter
		name string
		desc string
	}{
		{&o.fetchesCounter, names.FetchesTotal, "Total number of fetch attempt-chains started"},
		{&o.retriesCounter, names.RetriesTotal, "Total number of retry attempts"},
		{&o.failuresCounter, names.FailuresTotal, "Total number of fetch chains that settled with an error"},
		{&o.hitsCounter, names.HitsTotal, "Total number of subscribes served from a fresh entry"},
		{&o.dedupsCounter, names.DedupsTotal, "Total number of deduplicated revalidation triggers"},
		{&o.mutationsCounter, names.MutationsTotal, "Total number of applied mutations"},
		{&o.evictionsCounter, names.EvictionsTotal, "Total number of evicted entries"},
		{&o.resetsCounter, names.ResetsTotal, "Total number of cache resets"},
		{&o.operationsCounter, names.OperationsTotal, "Total number of cache operations"},
	}
	for _, c := range counters {
		*c.dest, err = o.meter.Int64Counter(
			c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit("1"),
		)
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	if o.config.IncludeDetailedTimings {
		o.operationDuration, err = o.meter.Float64Histogram(
			names.OperationDuration,
			metric.WithDescription("Cache operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return fmt.Errorf("failed to create operation duration histogram: %w", err)
		}
	}

	o.keysGauge, err = o.meter.Int64Gauge(
		names.KeysCount,
		metric.WithDescription("Current number of cache entries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create keys gauge: %w", err)
	}

	o.inFlightGauge, err = o.meter.Int64Gauge(
		names.InFlightFetches,
		metric.WithDescription("Current number of in-flight fetches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create in-flight gauge: %w", err)
	}

	o.hitRateGauge, err = o.meter.Float64Gauge(
		names.HitRate,
		metric.WithDescription("Fraction of subscribes served without a fetch"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create hit rate gauge: %w", err)
	}

	return nil
}

// ExportStats exports the current cache statistics to OpenTelemetry.
func (o *OpenTelemetryExporter) ExportStats(stats Stats, labels Labels) error {
	attrs := o.convertLabels(labels)
	opts := metric.WithAttributes(attrs...)

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

	o.mu.Lock()
	prev := o.previous[labels["cache_name"]]
	o.previous[labels["cache_name"]] = current
	o.mu.Unlock()

	o.fetchesCounter.Add(o.ctx, counterDelta(current.fetches, prev.fetches), opts)
	o.retriesCounter.Add(o.ctx, counterDelta(current.retries, prev.retries), opts)
	o.failuresCounter.Add(o.ctx, counterDelta(current.failures, prev.failures), opts)
	o.hitsCounter.Add(o.ctx, counterDelta(current.hits, prev.hits), opts)
	o.dedupsCounter.Add(o.ctx, counterDelta(current.dedups, prev.dedups), opts)
	o.mutationsCounter.Add(o.ctx, counterDelta(current.mutations, prev.mutations), opts)
	o.evictionsCounter.Add(o.ctx, counterDelta(current.evictions, prev.evictions), opts)
	o.resetsCounter.Add(o.ctx, counterDelta(current.resets, prev.resets), opts)

	o.keysGauge.Record(o.ctx, stats.KeyCount(), opts)
	o.inFlightGauge.Record(o.ctx, stats.InFlight(), opts)
	o.hitRateGauge.Record(o.ctx, stats.HitRate(), opts)

	return nil
}

// RecordCacheOperation records a cache operation with timing.
func (o *OpenTelemetryExporter) RecordCacheOperation(operation Operation, duration time.Duration, labels Labels) error {
	attrs := o.convertLabels(labels)

	opAttrs := make([]attribute.KeyValue, len(attrs)+1)
	copy(opAttrs, attrs)
	opAttrs[len(attrs)] = attribute.String("operation", string(operation))

	o.operationsCounter.Add(o.ctx, 1, metric.WithAttributes(opAttrs...))

	if o.operationDuration != nil {
		o.operationDuration.Record(o.ctx, duration.Seconds(), metric.WithAttributes(opAttrs...))
	}

	return nil
}

// Close shuts down the exporter
func (o *OpenTelemetryExporter) Close() error {
	// OpenTelemetry metrics don't need explicit cleanup
	return nil
}

func (o *OpenTelemetryExporter) convertLabels(labels Labels) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)+len(o.config.Labels))

	for k, v := range o.config.Labels {
		attrs = append(attrs, attribute.String(k, v))
	}

	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}

	return attrs
}

func counterDelta(current, previous int64) int64 {
	if current < previous {
		return current
	}
	return current - previous
}

// Ensure interface is implemented
var _ Exporter = (*OpenTelemetryExporter)(nil)
