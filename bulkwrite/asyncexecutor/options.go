package asyncexecutor

import (
	"time"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// Option defines a functional option for configuring an Executor.
// Ranges are validated once all options were applied.
type Option func(*Executor) error

// WithConfig replaces the whole configuration.
func WithConfig(config Config) Option {
	return func(e *Executor) error {
		e.config = config
		return nil
	}
}

// WithParallelism sets the number of worker sessions (1 to 16).
func WithParallelism(parallelism int) Option {
	return func(e *Executor) error {
		e.config.Parallelism = parallelism
		return nil
	}
}

// WithCommitEvery sets the number of applied operations after which a worker commits.
// 0 means no count-based commit, batches are committed only when a caller drains the executor.
func WithCommitEvery(commitEvery int) Option {
	return func(e *Executor) error {
		e.config.CommitEvery = commitEvery
		return nil
	}
}

// WithBackpressureThreshold sets the queue occupancy in percent at which enqueue calls block.
// 0 disables throttling.
func WithBackpressureThreshold(percent int) Option {
	return func(e *Executor) error {
		e.config.BackpressureThreshold = percent
		return nil
	}
}

// WithWAL toggles the store's write-ahead durability for the session transactions.
func WithWAL(useWAL bool) Option {
	return func(e *Executor) error {
		e.config.UseWAL = useWAL
		return nil
	}
}

// WithQueueCapacityPerWorker sets the per-worker buffer size of the work queue.
func WithQueueCapacityPerWorker(capacity int) Option {
	return func(e *Executor) error {
		e.config.QueueCapacityPerWorker = capacity
		return nil
	}
}

// WithBeginTxRetry configures how often a worker tries to open a new session transaction
// and the initial delay between attempts (backing off exponentially).
func WithBeginTxRetry(attempts uint, delay time.Duration) Option {
	return func(e *Executor) error {
		if attempts == 0 {
			attempts = 1
		}

		e.beginTxAttempts = attempts
		e.beginTxDelay = delay

		return nil
	}
}

// WithProgress registers a function that is called after each reported batch.
// It is called from worker goroutines, concurrently, and must not block.
func WithProgress(progress ProgressFunc) Option {
	return func(e *Executor) error {
		e.progress = progress
		return nil
	}
}

// WithLogger sets the logger for the Executor.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: commits with batch size and timing (development use)
// Info level: start and shutdown of the worker pool (production-safe)
// Warn level: non-critical issues like failed rollbacks or panicking callbacks
// Error level: failed commits and transactions that could not be opened.
func WithLogger(logger bulkwrite.Logger) Option {
	return func(e *Executor) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Executor.
// The contextual logger will receive log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger bulkwrite.ContextualLogger) Option {
	return func(e *Executor) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Executor.
// The collector will receive enqueue wait durations, backpressure blocks, queue occupancy,
// commit durations, batch sizes and failure counts.
func WithMetrics(collector bulkwrite.MetricsCollector) Option {
	return func(e *Executor) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Executor.
// A span is created for every commit, carrying the worker id and the batch size.
func WithTracing(collector bulkwrite.TracingCollector) Option {
	return func(e *Executor) error {
		e.tracingCollector = collector
		return nil
	}
}
