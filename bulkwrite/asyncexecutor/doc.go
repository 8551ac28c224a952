// Package asyncexecutor provides the asynchronous bulk-write executor.
//
// Producers enqueue operations into a bounded work queue and return immediately. A fixed pool of
// worker sessions, each owning one store transaction, applies them and commits every CommitEvery
// operations. Failures of individual operations do not abort the run: they are collected as
// bulkwrite.ErrorRecord values and reported through the optional per-operation callback.
//
// Key features:
//   - 1 to 16 worker sessions on top of an ants goroutine pool
//   - Commit-every-N batching, or commit only on drain with CommitEvery = 0
//   - Backpressure: producers block while the queue occupancy is at or above a threshold
//   - Per-operation isolation via savepoints when the store supports them
//   - Logging, metrics and tracing through the bulkwrite observability interfaces
//
// Usage examples:
//
//	executor, _ := asyncexecutor.New(
//		store,
//		asyncexecutor.WithParallelism(8),
//		asyncexecutor.WithCommitEvery(500),
//		asyncexecutor.WithBackpressureThreshold(80),
//	)
//
//	for _, row := range rows {
//		_ = executor.EnqueueCreate(ctx, "Person", row, nil)
//	}
//
//	if executor.WaitCompletion(ctx) {
//		_ = executor.Close()
//	}
//
//	// Scoped form
//	err := asyncexecutor.Run(ctx, store, func(ctx context.Context, e *asyncexecutor.Executor) error {
//		return e.EnqueueCreate(ctx, "Person", bulkwrite.Properties{"name": "Ada"}, nil)
//	}, asyncexecutor.WithCommitEvery(100))
package asyncexecutor
