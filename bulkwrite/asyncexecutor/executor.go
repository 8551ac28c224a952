package asyncexecutor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/panjf2000/ants/v2"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const (
	defaultBeginTxAttempts = 3
	defaultBeginTxDelay    = 10 * time.Millisecond
)

// Progress is a snapshot handed to a ProgressFunc.
type Progress struct {
	Succeeded int64
	Failed    int64
	Pending   int64
}

// ProgressFunc receives a Progress snapshot after each reported batch.
type ProgressFunc func(Progress)

// Executor is the asynchronous bulk-write executor.
//
// Operations are enqueued by any number of producer goroutines, applied by a fixed pool of
// workers that each own one transaction on the store, and committed every CommitEvery operations.
// Store failures never reach the producer; they are collected and can be inspected after
// WaitCompletion returned true.
type Executor struct {
	store  bulkwrite.Store
	config Config

	queue      *workQueue
	completion *completion
	collector  *collector

	pool      *ants.Pool
	workers   sync.WaitGroup
	closeOnce sync.Once

	beginTxAttempts uint
	beginTxDelay    time.Duration
	progress        ProgressFunc

	logger           bulkwrite.Logger
	contextualLogger bulkwrite.ContextualLogger
	metricsCollector bulkwrite.MetricsCollector
	tracingCollector bulkwrite.TracingCollector
}

// New validates the configuration, creates one session per worker and starts the worker pool.
//
// It returns ErrNilStore for a nil store and ErrInvalidConfiguration (joined with the concrete
// violation) for out-of-range values.
func New(store bulkwrite.Store, options ...Option) (*Executor, error) {
	if store == nil {
		return nil, bulkwrite.ErrNilStore
	}

	e := &Executor{
		store:           store,
		config:          DefaultConfig(),
		completion:      newCompletion(),
		collector:       &collector{},
		beginTxAttempts: defaultBeginTxAttempts,
		beginTxDelay:    defaultBeginTxDelay,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	if err := e.config.Validate(); err != nil {
		return nil, err
	}

	e.queue = newWorkQueue(e.config.QueueCapacity(), e.config.BackpressureThreshold)

	if err := e.startWorkers(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Executor) startWorkers() error {
	pool, err := ants.NewPool(
		e.config.Parallelism,
		ants.WithPanicHandler(func(v any) {
			e.logPanic(logMsgWorkerStopped, v)
		}),
	)
	if err != nil {
		return errors.Join(bulkwrite.ErrInvalidConfiguration, err)
	}

	e.pool = pool

	for id := range e.config.Parallelism {
		session := newWorkerSession(id, e)

		e.workers.Add(1)
		submitErr := pool.Submit(func() {
			defer e.workers.Done()
			session.run()
		})

		if submitErr != nil {
			e.workers.Done()
			_ = e.Close()

			return submitErr
		}
	}

	e.logInfo(
		logMsgStarted,
		logAttrParallelism, e.config.Parallelism,
		logAttrCommitEvery, e.config.CommitEvery,
		logAttrBackpressure, e.config.BackpressureThreshold,
		logAttrQueueCapacity, e.config.QueueCapacity(),
		logAttrUseWAL, e.config.UseWAL,
	)

	return nil
}

// Config returns the configuration the executor was built with.
func (e *Executor) Config() Config {
	return e.config
}

// Enqueue accepts a prebuilt Operation.
//
// It returns immediately unless the backpressure governor throttles the producer, in which case it
// blocks until the queue drained below the threshold. It returns ErrQueueClosed after Close,
// a validation error for an invalid Operation, or ctx.Err() if ctx ended while blocked;
// in all these cases the Operation was not accepted.
func (e *Executor) Enqueue(ctx context.Context, op bulkwrite.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}

	op = op.WithEnqueuedAt(time.Now())
	e.completion.add()

	blocked, err := e.queue.put(ctx, op)
	if err != nil {
		e.completion.done()
		return err
	}

	e.observeEnqueue(ctx, op, blocked)

	return nil
}

// EnqueueCreate enqueues the creation of a record of targetType.
func (e *Executor) EnqueueCreate(
	ctx context.Context,
	targetType string,
	properties bulkwrite.Properties,
	onComplete bulkwrite.OnComplete,
) error {

	op, err := bulkwrite.BuildCreate(targetType, properties, onComplete)
	if err != nil {
		return err
	}

	return e.Enqueue(ctx, op)
}

// EnqueueUpdate enqueues merging properties into the referenced record.
func (e *Executor) EnqueueUpdate(
	ctx context.Context,
	ref bulkwrite.RecordRef,
	properties bulkwrite.Properties,
	onComplete bulkwrite.OnComplete,
) error {

	op, err := bulkwrite.BuildUpdate(ref, properties, onComplete)
	if err != nil {
		return err
	}

	return e.Enqueue(ctx, op)
}

// EnqueueDelete enqueues the deletion of the referenced record.
func (e *Executor) EnqueueDelete(ctx context.Context, ref bulkwrite.RecordRef, onComplete bulkwrite.OnComplete) error {
	op, err := bulkwrite.BuildDelete(ref, onComplete)
	if err != nil {
		return err
	}

	return e.Enqueue(ctx, op)
}

// Query enqueues a read statement; the rows are handed to onComplete.
func (e *Executor) Query(
	ctx context.Context,
	language, text string,
	onComplete bulkwrite.OnComplete,
	params ...any,
) error {

	op, err := bulkwrite.BuildQuery(language, text, onComplete, params...)
	if err != nil {
		return err
	}

	return e.Enqueue(ctx, op)
}

// Command enqueues a command statement; its result rows, if any, are handed to onComplete.
func (e *Executor) Command(
	ctx context.Context,
	language, text string,
	onComplete bulkwrite.OnComplete,
	params ...any,
) error {

	op, err := bulkwrite.BuildCommand(language, text, onComplete, params...)
	if err != nil {
		return err
	}

	return e.Enqueue(ctx, op)
}

// WaitCompletion blocks until every accepted operation was committed or failed, or until ctx ends.
// It returns true if the executor is fully drained. Calling it again resumes waiting on the same counter.
//
// While a caller waits, idle workers commit their residual batches, so with CommitEvery = 0
// this is the only commit point.
func (e *Executor) WaitCompletion(ctx context.Context) bool {
	if !e.IsPending() {
		return true
	}

	e.queue.requestDrain()
	defer e.queue.releaseDrain()

	return e.completion.wait(ctx)
}

// WaitCompletionTimeout is WaitCompletion with a timeout; a timeout <= 0 waits without limit.
func (e *Executor) WaitCompletionTimeout(timeout time.Duration) bool {
	if timeout <= 0 {
		return e.WaitCompletion(context.Background())
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return e.WaitCompletion(ctx)
}

// IsPending reports whether any accepted operation has not been reported yet.
func (e *Executor) IsPending() bool {
	return e.completion.count() > 0
}

// Pending returns the number of accepted operations that have not been reported yet.
func (e *Executor) Pending() int64 {
	return e.completion.count()
}

// SuccessCount returns the number of committed operations.
func (e *Executor) SuccessCount() int64 {
	return e.collector.successes.Load()
}

// ErrorCount returns the number of failed operations.
func (e *Executor) ErrorCount() int64 {
	return e.collector.failures.Load()
}

// Errors returns a snapshot of all ErrorRecords, in no particular order.
func (e *Executor) Errors() []bulkwrite.ErrorRecord {
	return e.collector.errorRecords()
}

// Err returns all ErrorRecords aggregated into one error, or nil if nothing failed.
func (e *Executor) Err() error {
	var result *multierror.Error

	for _, record := range e.collector.errorRecords() {
		result = multierror.Append(result, record)
	}

	return result.ErrorOrNil()
}

// Close stops accepting work, stops dequeuing and joins all workers. In-flight store calls finish.
//
// Close must only be called after WaitCompletion returned true. Operations that are still queued
// or uncommitted are not applied; they are reported as failed with ErrExecutorClosed.
// Close is idempotent.
func (e *Executor) Close() error {
	e.closeOnce.Do(func() {
		remaining := e.queue.close()
		for _, op := range remaining {
			e.fail(op, bulkwrite.ErrExecutorClosed)
		}

		if len(remaining) > 0 {
			e.reportProgress()
		}

		e.workers.Wait()

		if e.pool != nil {
			e.pool.Release()
		}

		e.logInfo(
			logMsgClosed,
			logAttrSucceeded, e.SuccessCount(),
			logAttrFailed, e.ErrorCount(),
			logAttrDiscarded, len(remaining),
		)
	})

	return nil
}

// succeed reports a committed operation: count, callback, then the pending counter.
func (e *Executor) succeed(applied appliedOperation) {
	e.collector.recordSuccess()
	e.invokeCallback(applied.op, applied.result, nil)
	e.completion.done()
}

// fail reports a failed operation: record, callback, then the pending counter.
func (e *Executor) fail(op bulkwrite.Operation, err error) {
	e.collector.recordFailure(bulkwrite.ErrorRecord{
		Operation: op,
		Err:       err,
		FailedAt:  time.Now(),
	})

	e.recordFailureMetrics(op, err)
	e.invokeCallback(op, bulkwrite.Result{Kind: op.Kind()}, err)
	e.completion.done()
}

func (e *Executor) invokeCallback(op bulkwrite.Operation, result bulkwrite.Result, err error) {
	onComplete := op.OnComplete()
	if onComplete == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.logPanic(logMsgCallbackPanicked, r, logAttrOperation, op.Kind().String())
		}
	}()

	onComplete(result, err)
}

func (e *Executor) reportProgress() {
	if e.progress == nil {
		return
	}

	defer e.recoverObserverPanic()

	e.progress(Progress{
		Succeeded: e.SuccessCount(),
		Failed:    e.ErrorCount(),
		Pending:   e.Pending(),
	})
}
