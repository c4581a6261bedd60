// Package swrcache provides a stale-while-revalidate cache for asynchronous
// fetch operations, with subscription streams, request deduplication,
// automatic refresh triggers, retries with backoff, and optimistic mutation.
//
// # Overview
//
// swrcache is designed for clients that repeatedly fetch the same remote
// resources and want cached results immediately while fresh data loads in
// the background. Consumers subscribe to a query and receive a stream of
// Result values as the entry moves through its lifecycle: loading, success,
// error, refreshing, and the mutation states.
//
// # Key Features
//
//   - Stale-while-revalidate: stale data is delivered instantly and
//     refreshed in the background
//   - Deduplication of concurrent fetches for the same key
//   - Automatic revalidation on parameter change, focus, or interval
//   - Configurable retries with pluggable delay strategies
//   - Optimistic mutation with explicit success/error settlement
//   - Time-based eviction once an entry has no subscribers
//   - Hook system and built-in statistics for observability
//   - Prometheus and OpenTelemetry integration
//
// # Basic Usage
//
// Create a cache, declare a query, and subscribe:
//
//	cache, err := swrcache.New(swrcache.NewDefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	stream := cache.Query("user", 123, func(ctx context.Context, params any) (any, error) {
//	    return fetchUser(ctx, params.(int))
//	})
//
//	sub := stream.Subscribe()
//	defer sub.Cancel()
//
//	for result := range sub.Updates() {
//	    switch result.Status {
//	    case swrcache.StatusLoading:
//	        showSpinner()
//	    case swrcache.StatusSuccess:
//	        render(result.Data)
//	    case swrcache.StatusError:
//	        showError(result.Err)
//	    }
//	}
//
// Multiple subscribers to the same key share one entry and one in-flight
// fetch. The latest result is replayed to late subscribers immediately.
//
// # Automatic Revalidation
//
// Queries refetch on their own when configured:
//
//	stream := cache.Query("orders", accountID, fetchOrders,
//	    swrcache.WithRefetchInterval(30*time.Second),
//	    swrcache.WithRefetchOnFocus(),
//	    swrcache.WithStaleTime(5*time.Second),
//	)
//
// QueryStream follows a channel of parameter values, resubscribing to a new
// key whenever the parameters change:
//
//	params := make(chan any)
//	stream := cache.QueryStream("search", params, runSearch)
//
// # Retries
//
// Failed fetches retry transparently. Only the final outcome is published;
// interim failures surface as a growing Retries count on the current result.
//
//	stream := cache.Query("flaky", nil, fetchFlaky,
//	    swrcache.WithRetries(5),
//	    swrcache.WithRetryDelay(swrcache.DelayFromBackOff(backoff.NewExponentialBackOff())),
//	    swrcache.WithRetryIf(func(attempt int, err error) bool {
//	        return !errors.Is(err, ErrNotFound)
//	    }),
//	)
//
// # Optimistic Mutation
//
// Update the cached value before the server confirms, then settle:
//
//	stream.MutateOptimistic(updatedTodo)
//	if err := saveTodo(updatedTodo); err != nil {
//	    stream.MutateError(err)
//	} else {
//	    stream.MutateSuccess(updatedTodo)
//	}
//
// Mutations also accept an Updater to derive the new value from the
// current one:
//
//	stream.MutateOptimistic(swrcache.Updater(func(current any) any {
//	    todos := current.([]Todo)
//	    return append(todos, newTodo)
//	}))
//
// # Configuration
//
// Customize cache behavior with fluent configuration:
//
//	config := swrcache.NewDefaultConfig().
//	    WithMaxEntries(10000).
//	    WithLogger(logger).
//	    WithFocusSource(focusSource)
//
//	cache, err := swrcache.New(config)
//
// # Hooks
//
// Monitor cache activity without touching the data path:
//
//	hooks := &swrcache.Hooks{}
//	hooks.AddOnSettle(func(key string, result swrcache.Result) {
//	    log.Printf("settled %s: %s", key, result.Status)
//	})
//	hooks.AddOnEvict(func(key string, reason swrcache.EvictReason) {
//	    log.Printf("evicted %s (%s)", key, reason)
//	})
//
//	cache, _ := swrcache.New(swrcache.NewDefaultConfig().WithHooks(hooks))
//
// # Metrics Integration
//
// Export statistics to Prometheus:
//
//	import "github.com/vnykmshr/swrcache-go/pkg/metrics"
//
//	exporter, _ := metrics.NewPrometheusExporter(nil, nil)
//	config := swrcache.NewDefaultConfig().
//	    WithMetricsExporter(exporter, "user-api")
//
//	cache, _ := swrcache.New(config)
//
// # Thread Safety
//
// All operations are safe for concurrent use. State transitions are applied
// by a single internal goroutine, so every subscriber observes the same
// ordered sequence of results for a key.
//
// # Error Handling
//
// The cache degrades gracefully:
//   - A settled error retains the previous data, so consumers can keep
//     showing stale content next to the error
//   - Subscription channels conflate rather than block; a slow consumer
//     only ever misses intermediate states, never the latest one
//   - Hook panics are not recovered; keep hooks small and total
//
// For complete runnable examples see the examples directory.
//
// For more detailed documentation and examples, visit:
// https://github.com/vnykmshr/swrcache-go
package swrcache
