// Package bulkwrite provides core abstractions and types for asynchronous bulk ingestion
// into a transactional record store.
//
// This package defines the contract between the bulk-write executor and the stores it drives,
// the immutable Operation value that travels through the executor, and the common error definitions.
//
// Key types:
//   - Store, Tx, Savepointer: the transactional record store as seen by the executor
//   - Operation: one Create, Update, Delete, Query or Command request
//   - OnComplete: the callback invoked exactly once when an Operation reaches its terminal state
//   - ErrorRecord: a failed Operation together with the captured error
//
// Common usage pattern:
//
//	store, _ := postgresstore.NewStoreFromPGXPool(pool)
//	executor, _ := asyncexecutor.New(
//		store,
//		asyncexecutor.WithParallelism(4),
//		asyncexecutor.WithCommitEvery(1000),
//	)
//	defer executor.Close()
//
//	err := executor.EnqueueCreate(ctx, "Article", bulkwrite.Properties{"title": "Go"}, nil)
//	if err != nil {
//		// misuse only: closed executor or invalid payload
//	}
//
//	if executor.WaitCompletion(ctx) && executor.ErrorCount() == 0 {
//		// everything was committed
//	}
package bulkwrite
