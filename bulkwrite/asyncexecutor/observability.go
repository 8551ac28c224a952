package asyncexecutor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// Log messages.
const (
	logMsgStarted                 = "bulkwrite: executor started"
	logMsgClosed                  = "bulkwrite: executor closed"
	logMsgCommitted               = "bulkwrite: batch committed"
	logMsgCommitFailed            = "bulkwrite: commit failed"
	logMsgBeginTxRetry            = "bulkwrite: begin transaction failed, retrying"
	logMsgBeginTxFailed           = "bulkwrite: begin transaction failed"
	logMsgRollbackFailed          = "bulkwrite: rollback failed"
	logMsgSavepointRollbackFailed = "bulkwrite: rollback to savepoint failed, rolling back the batch"
	logMsgSavepointReleaseFailed  = "bulkwrite: release savepoint failed"
	logMsgUncommittedDiscarded    = "bulkwrite: uncommitted operations discarded on close"
	logMsgCallbackPanicked        = "bulkwrite: completion callback panicked"
	logMsgWorkerPanicked          = "bulkwrite: worker panicked, restarting"
	logMsgWorkerStopped           = "bulkwrite: worker stopped after a panic"
	logMsgObserverPanicked        = "bulkwrite: observer or hook panicked"
)

// Log attribute keys.
const (
	logAttrError         = "error"
	logAttrWorker        = "worker"
	logAttrBatchSize     = "batch_size"
	logAttrDurationMS    = "duration_ms"
	logAttrAttempt       = "attempt"
	logAttrOperation     = "operation"
	logAttrPanic         = "panic"
	logAttrParallelism   = "parallelism"
	logAttrCommitEvery   = "commit_every"
	logAttrBackpressure  = "backpressure_threshold"
	logAttrQueueCapacity = "queue_capacity"
	logAttrUseWAL        = "use_wal"
	logAttrSucceeded     = "succeeded"
	logAttrFailed        = "failed"
	logAttrDiscarded     = "discarded"
)

// Metric names.
const (
	metricEnqueueWaitDuration = "bulkwrite_enqueue_wait_duration_seconds"
	metricBackpressureBlocks  = "bulkwrite_backpressure_blocks_total"
	metricQueueOccupancy      = "bulkwrite_queue_occupancy_percent"
	metricApplyFailures       = "bulkwrite_apply_failures_total"
	metricCommitDuration      = "bulkwrite_commit_duration_seconds"
	metricCommitBatchSize     = "bulkwrite_commit_batch_size"
	metricOperationsFailed    = "bulkwrite_operations_failed_total"
)

// Span names and attributes.
const (
	spanNameCommit     = "bulkwrite.commit"
	spanAttrWorker     = "worker"
	spanAttrBatchSize  = "batch_size"
	spanAttrDurationMS = "duration_ms"
)

// Label keys and values.
const (
	labelOperation = "operation"
	labelStatus    = "status"
	labelReason    = "reason"

	statusSuccess = "success"
	statusError   = "error"

	reasonApply      = "apply"
	reasonBeginTx    = "begin_tx"
	reasonCommit     = "commit"
	reasonRolledBack = "batch_rolled_back"
	reasonClosed     = "executor_closed"
	reasonOther      = "other"
)

func (e *Executor) logInfo(message string, args ...any) {
	defer e.recoverObserverPanic()

	if e.logger != nil {
		e.logger.Info(message, args...)
	}
}

func (e *Executor) logWarn(message string, args ...any) {
	defer e.recoverObserverPanic()

	if e.logger != nil {
		e.logger.Warn(message, args...)
	}
}

func (e *Executor) logError(message string, err error, args ...any) {
	defer e.recoverObserverPanic()

	if e.logger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		e.logger.Error(message, allArgs...)
	}
}

// logDebugContext logs with trace correlation if a contextual logger is configured, otherwise via the plain logger.
func (e *Executor) logDebugContext(ctx context.Context, message string, args ...any) {
	defer e.recoverObserverPanic()

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, message, args...)
		return
	}

	if e.logger != nil {
		e.logger.Debug(message, args...)
	}
}

func (e *Executor) logErrorContext(ctx context.Context, message string, err error, args ...any) {
	defer e.recoverObserverPanic()

	if e.contextualLogger != nil {
		allArgs := []any{logAttrError, err.Error()}
		allArgs = append(allArgs, args...)
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	e.logError(message, err, args...)
}

// recoverObserverPanic must be deferred directly by every call into a user-supplied logger,
// metrics collector, tracing collector or hook. The panic is logged and swallowed.
func (e *Executor) recoverObserverPanic() {
	if r := recover(); r != nil {
		e.logPanic(logMsgObserverPanicked, r)
	}
}

// logPanic logs a recovered panic. It never panics itself, the logger may be what panicked.
func (e *Executor) logPanic(message string, v any, args ...any) {
	defer func() { _ = recover() }()

	if e.logger == nil {
		return
	}

	e.logger.Warn(message, append([]any{logAttrPanic, fmt.Sprint(v)}, args...)...)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Metrics ===

func (e *Executor) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	defer e.recoverObserverPanic()

	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(bulkwrite.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

func (e *Executor) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	defer e.recoverObserverPanic()

	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(bulkwrite.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metric, value, labels)
		return
	}

	e.metricsCollector.RecordValue(metric, value, labels)
}

func (e *Executor) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	defer e.recoverObserverPanic()

	if e.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := e.metricsCollector.(bulkwrite.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

// observeEnqueue records the producer-side metrics of an accepted operation.
func (e *Executor) observeEnqueue(ctx context.Context, op bulkwrite.Operation, blocked bool) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelOperation: op.Kind().String()}

	if blocked {
		e.incrementCounter(ctx, metricBackpressureBlocks, labels)
		e.recordDuration(ctx, metricEnqueueWaitDuration, time.Since(op.EnqueuedAt()), labels)
	}

	e.recordValue(ctx, metricQueueOccupancy, e.queue.occupancy(), nil)
}

// recordFailureMetrics counts a failed operation, labelled with the failure reason.
func (e *Executor) recordFailureMetrics(op bulkwrite.Operation, err error) {
	if e.metricsCollector == nil {
		return
	}

	ctx := context.Background()
	reason := failureReason(err)

	if reason == reasonApply {
		e.incrementCounter(ctx, metricApplyFailures, map[string]string{labelOperation: op.Kind().String()})
	}

	e.incrementCounter(ctx, metricOperationsFailed, map[string]string{
		labelOperation: op.Kind().String(),
		labelReason:    reason,
	})
}

func (e *Executor) recordCommitMetrics(ctx context.Context, duration time.Duration, batchSize int, status string) {
	labels := map[string]string{labelStatus: status}

	e.recordDuration(ctx, metricCommitDuration, duration, labels)
	e.recordValue(ctx, metricCommitBatchSize, float64(batchSize), labels)
}

// failureReason maps a failure to a low-cardinality label value.
// ErrBatchRolledBack is checked first, it wraps the apply error that caused the rollback.
func failureReason(err error) string {
	switch {
	case errors.Is(err, bulkwrite.ErrBatchRolledBack):
		return reasonRolledBack
	case errors.Is(err, bulkwrite.ErrCommitFailed):
		return reasonCommit
	case errors.Is(err, bulkwrite.ErrExecutorClosed):
		return reasonClosed
	case errors.Is(err, bulkwrite.ErrBeginTxFailed):
		return reasonBeginTx
	case errors.Is(err, bulkwrite.ErrApplyFailed):
		return reasonApply
	default:
		return reasonOther
	}
}

// === Tracing ===

// commitSpan pairs the span with its start time so the duration can be attached on finish.
type commitSpan struct {
	span  bulkwrite.SpanContext
	start time.Time
}

func (e *Executor) startCommitSpan(ctx context.Context, worker, batchSize int) (spanCtx context.Context, cs *commitSpan) {
	spanCtx = ctx
	if e.tracingCollector == nil {
		return spanCtx, nil
	}

	defer e.recoverObserverPanic()

	tracedCtx, span := e.tracingCollector.StartSpan(ctx, spanNameCommit, map[string]string{
		spanAttrWorker:    strconv.Itoa(worker),
		spanAttrBatchSize: strconv.Itoa(batchSize),
	})

	if tracedCtx != nil {
		spanCtx = tracedCtx
	}

	return spanCtx, &commitSpan{span: span, start: time.Now()}
}

func (e *Executor) finishCommitSpan(cs *commitSpan, success bool) {
	defer e.recoverObserverPanic()

	if e.tracingCollector == nil || cs == nil || cs.span == nil {
		return
	}

	status := statusSuccess
	if !success {
		status = statusError
	}

	cs.span.SetStatus(status)

	e.tracingCollector.FinishSpan(cs.span, status, map[string]string{
		spanAttrDurationMS: strconv.FormatFloat(toMilliseconds(time.Since(cs.start)), 'f', 3, 64),
	})
}
