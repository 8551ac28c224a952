package asyncexecutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/avast/retry-go"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

var (
	errStorePanicked  = errors.New("store call panicked")
	errWorkerPanicked = errors.New("worker panicked")
)

// appliedOperation is an operation whose effect is in the session transaction but not yet committed.
type appliedOperation struct {
	op     bulkwrite.Operation
	result bulkwrite.Result
}

// workerSession is owned by exactly one worker goroutine and is never shared.
type workerSession struct {
	id  int
	e   *Executor
	ctx context.Context

	tx    bulkwrite.Tx
	batch []appliedOperation

	// inFlight is the dequeued operation that is neither reported nor part of the batch yet.
	inFlight *bulkwrite.Operation

	// settling, settled and outcome describe a settle in progress, so that it can be resumed.
	settling bool
	settled  int
	outcome  error
}

func newWorkerSession(id int, e *Executor) *workerSession {
	capacity := e.config.CommitEvery
	if capacity == 0 {
		capacity = e.config.QueueCapacityPerWorker
	}

	return &workerSession{
		id:    id,
		e:     e,
		ctx:   context.Background(),
		batch: make([]appliedOperation, 0, capacity),
	}
}

// run is the worker loop: dequeue, apply, hand over to the batch controller.
// It only returns once the queue is closed; a panic restarts the loop.
func (s *workerSession) run() {
	defer s.shutdown()

	for !s.serve() {
	}
}

// serve returns true when the queue was closed and false after a recovered panic.
func (s *workerSession) serve() (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			s.recoverFrom(r)
		}
	}()

	for {
		op, result := s.e.queue.take(len(s.batch) > 0)

		switch result {
		case takeStop:
			return true

		case takeFlush:
			s.commit()

		case takeOperation:
			s.inFlight = &op
			s.apply(op)
		}
	}
}

// recoverFrom brings the session back into a consistent state after a panic:
// an interrupted settle is finished, and an operation caught in flight fails together with the batch.
func (s *workerSession) recoverFrom(v any) {
	s.e.logPanic(logMsgWorkerPanicked, v, logAttrWorker, s.id)

	if s.settling {
		s.settle(s.outcome)
	}

	if s.inFlight != nil {
		s.abortBatch(*s.inFlight, errors.Join(bulkwrite.ErrApplyFailed, fmt.Errorf("%w: %v", errWorkerPanicked, v)))
		return
	}

	s.e.reportProgress()
}

// apply runs one operation in the session transaction.
// A failing operation never stops the worker.
func (s *workerSession) apply(op bulkwrite.Operation) {
	if err := s.ensureTx(); err != nil {
		s.failInFlight(op, errors.Join(bulkwrite.ErrBeginTxFailed, err))
		s.e.reportProgress()
		return
	}

	savepointer, canUndoOne := s.tx.(bulkwrite.Savepointer)

	if canUndoOne {
		if err := safeCall(func() error { return savepointer.Savepoint(s.ctx) }); err != nil {
			s.abortBatch(op, errors.Join(bulkwrite.ErrApplyFailed, err))
			return
		}
	}

	var result bulkwrite.Result
	applyErr := safeCall(func() error {
		var err error
		result, err = op.ApplyTo(s.ctx, s.tx)
		return err
	})

	if applyErr != nil {
		applyErr = errors.Join(bulkwrite.ErrApplyFailed, applyErr)

		if canUndoOne {
			rollbackErr := safeCall(func() error { return savepointer.RollbackToSavepoint(s.ctx) })
			if rollbackErr == nil {
				s.failInFlight(op, applyErr)
				s.e.reportProgress()
				return
			}

			s.e.logWarn(logMsgSavepointRollbackFailed, logAttrWorker, s.id, logAttrError, rollbackErr.Error())
		}

		s.abortBatch(op, applyErr)
		return
	}

	if canUndoOne {
		if err := safeCall(func() error { return savepointer.ReleaseSavepoint(s.ctx) }); err != nil {
			s.e.logWarn(logMsgSavepointReleaseFailed, logAttrWorker, s.id, logAttrError, err.Error())
		}
	}

	s.batch = append(s.batch, appliedOperation{op: op, result: result})
	s.inFlight = nil
	s.afterApply()
}

// ensureTx opens the session transaction lazily, retrying with backoff.
func (s *workerSession) ensureTx() error {
	if s.tx != nil {
		return nil
	}

	opts := bulkwrite.TxOptions{UseWAL: s.e.config.UseWAL}

	err := retry.Do(
		func() error {
			return safeCall(func() error {
				tx, err := s.e.store.BeginTx(s.ctx, opts)
				if err != nil {
					return err
				}

				s.tx = tx

				return nil
			})
		},
		retry.Attempts(s.e.beginTxAttempts),
		retry.Delay(s.e.beginTxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.e.logWarn(logMsgBeginTxRetry, logAttrWorker, s.id, logAttrAttempt, n+1, logAttrError, err.Error())
		}),
	)

	if err != nil {
		s.e.logError(logMsgBeginTxFailed, err, logAttrWorker, s.id)
		return err
	}

	return nil
}

// abortBatch is used when the store cannot undo a single operation:
// the whole transaction is rolled back and every operation since the last commit fails.
func (s *workerSession) abortBatch(op bulkwrite.Operation, cause error) {
	s.rollback()
	s.settle(errors.Join(bulkwrite.ErrBatchRolledBack, cause))
	s.failInFlight(op, cause)
	s.e.reportProgress()
}

// failInFlight reports the dequeued operation that never made it into the batch.
func (s *workerSession) failInFlight(op bulkwrite.Operation, err error) {
	s.inFlight = nil
	s.e.fail(op, err)
}

// settle reports every batch operation with the outcome (nil means committed) and empties the batch.
// It can be resumed after a panic without reporting an operation twice.
func (s *workerSession) settle(outcome error) {
	s.settling = true
	s.outcome = outcome

	for s.settled < len(s.batch) {
		applied := s.batch[s.settled]
		s.settled++

		if outcome == nil {
			s.e.succeed(applied)
		} else {
			s.e.fail(applied.op, outcome)
		}
	}

	s.resetBatch()
	s.settling = false
	s.settled = 0
	s.outcome = nil
}

// rollback discards the session transaction, a new one is opened on the next apply.
func (s *workerSession) rollback() {
	if s.tx == nil {
		return
	}

	if err := safeCall(func() error { return s.tx.Rollback(s.ctx) }); err != nil {
		s.e.logWarn(logMsgRollbackFailed, logAttrWorker, s.id, logAttrError, err.Error())
	}

	s.tx = nil
}

func (s *workerSession) resetBatch() {
	clear(s.batch)
	s.batch = s.batch[:0]
}

// shutdown destroys the session. Uncommitted operations are lost and reported as failed.
func (s *workerSession) shutdown() {
	s.rollback()

	if s.settling {
		s.settle(s.outcome)
	}

	if s.inFlight != nil {
		s.failInFlight(*s.inFlight, bulkwrite.ErrExecutorClosed)
	}

	if discarded := len(s.batch); discarded > 0 {
		s.settle(bulkwrite.ErrExecutorClosed)
		s.e.logWarn(logMsgUncommittedDiscarded, logAttrWorker, s.id, logAttrBatchSize, discarded)
		s.e.reportProgress()
	}
}

// safeCall converts a panic inside a store call into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errStorePanicked, r)
		}
	}()

	return fn()
}
