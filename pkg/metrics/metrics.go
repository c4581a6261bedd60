// Package metrics provides exporters for cache observability.
// The Exporter abstraction allows supporting multiple observability
// systems; Prometheus and OpenTelemetry implementations are included.
package metrics

import (
	"time"
)

// Exporter defines the interface for cache metrics exporters.
type Exporter interface {
	// ExportStats exports the current cache statistics.
	ExportStats(stats Stats, labels Labels) error

	// RecordCacheOperation records individual cache operations with
	// timing.
	RecordCacheOperation(operation Operation, duration time.Duration, labels Labels) error

	// Close shuts down the exporter and flushes any pending metrics.
	Close() error
}

// Labels represents key-value pairs for metric labels/tags.
type Labels map[string]string

// Stats defines the cache statistics that can be exported. This
// allows the metrics package to work with any stats implementation.
type Stats interface {
	Fetches() int64
	Retries() int64
	Failures() int64
	Hits() int64
	Dedups() int64
	Mutations() int64
	Evictions() int64
	Resets() int64
	KeyCount() int64
	InFlight() int64
	HitRate() float64
}

// Operation represents different cache operations for metrics.
type Operation string

const (
	// OperationFetch is one complete invocation attempt-chain.
	OperationFetch Operation = "fetch"

	// OperationMutate is a direct cache write.
	OperationMutate Operation = "mutate"

	// OperationEvict is an entry removal.
	OperationEvict Operation = "evict"
)

// MetricNames defines standard metric names used across exporters.
type MetricNames struct {
	// Counters
	FetchesTotal    string
	RetriesTotal    string
	FailuresTotal   string
	HitsTotal       string
	DedupsTotal     string
	MutationsTotal  string
	EvictionsTotal  string
	ResetsTotal     string
	OperationsTotal string

	// Histograms
	OperationDuration string

	// Gauges
	KeysCount       string
	InFlightFetches string
	HitRate         string
}

// DefaultMetricNames returns the default metric names.
func DefaultMetricNames() MetricNames {
	return MetricNames{
		FetchesTotal:      "swrcache_fetches_total",
		RetriesTotal:      "swrcache_retries_total",
		FailuresTotal:     "swrcache_failures_total",
		HitsTotal:         "swrcache_hits_total",
		DedupsTotal:       "swrcache_dedups_total",
		MutationsTotal:    "swrcache_mutations_total",
		EvictionsTotal:    "swrcache_evictions_total",
		ResetsTotal:       "swrcache_resets_total",
		OperationsTotal:   "swrcache_operations_total",
		OperationDuration: "swrcache_operation_duration_seconds",
		KeysCount:         "swrcache_keys_count",
		InFlightFetches:   "swrcache_inflight_fetches",
		HitRate:           "swrcache_hit_rate",
	}
}

// Config holds configuration for metrics exporters.
type Config struct {
	// Labels are default labels applied to all metrics.
	Labels Labels

	// MetricNames allows customizing metric names.
	MetricNames MetricNames

	// IncludeDetailedTimings enables the operation timing histogram.
	IncludeDetailedTimings bool
}

// NewDefaultConfig creates a default metrics configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Labels:      make(Labels),
		MetricNames: DefaultMetricNames(),
	}
}

// WithLabels adds default labels to all metrics.
func (c *Config) WithLabels(labels Labels) *Config {
	for k, v := range labels {
		c.Labels[k] = v
	}
	return c
}

// WithDetailedTimings enables the operation timing histogram.
func (c *Config) WithDetailedTimings(enabled bool) *Config {
	c.IncludeDetailedTimings = enabled
	return c
}

// MultiExporter allows using multiple exporters simultaneously.
type MultiExporter struct {
	exporters []Exporter
}

// NewMultiExporter creates an exporter that writes to multiple
// backends.
func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

// ExportStats exports to all configured exporters.
func (m *MultiExporter) ExportStats(stats Stats, labels Labels) error {
	for _, exporter := range m.exporters {
		if err := exporter.ExportStats(stats, labels); err != nil {
			return err
		}
	}
	return nil
}

// RecordCacheOperation records to all configured exporters.
func (m *MultiExporter) RecordCacheOperation(operation Operation, duration time.Duration, labels Labels) error {
	for _, exporter := range m.exporters {
		if err := exporter.RecordCacheOperation(operation, duration, labels); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all configured exporters.
func (m *MultiExporter) Close() error {
	for _, exporter := range m.exporters {
		if err := exporter.Close(); err != nil {
			return err
		}
	}
	return nil
}

// NoOpExporter provides a no-op implementation for when metrics are
// disabled.
type NoOpExporter struct{}

// NewNoOpExporter creates a no-op exporter.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

// ExportStats does nothing.
func (n *NoOpExporter) ExportStats(Stats, Labels) error { return nil }

// RecordCacheOperation does nothing.
func (n *NoOpExporter) RecordCacheOperation(Operation, time.Duration, Labels) error { return nil }

// Close does nothing.
func (n *NoOpExporter) Close() error { return nil }

// Ensure interfaces are implemented
var (
	_ Exporter = (*MultiExporter)(nil)
	_ Exporter = (*NoOpExporter)(nil)
)
