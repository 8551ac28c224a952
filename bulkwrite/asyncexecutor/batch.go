package asyncexecutor

import (
	"errors"
	"time"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// afterApply is the commit-every-N controller: it commits once the batch reached CommitEvery.
func (s *workerSession) afterApply() {
	commitEvery := s.e.config.CommitEvery
	if commitEvery > 0 && len(s.batch) >= commitEvery {
		s.commit()
	}
}

// commit makes the batch durable, reports every operation in it and empties the batch.
// On failure every operation of the batch is reported with ErrCommitFailed.
func (s *workerSession) commit() {
	if s.tx == nil || len(s.batch) == 0 {
		return
	}

	batchSize := len(s.batch)
	spanCtx, span := s.e.startCommitSpan(s.ctx, s.id, batchSize)
	start := time.Now()

	commitErr := safeCall(func() error { return s.tx.Commit(s.ctx) })
	duration := time.Since(start)

	if commitErr != nil {
		s.rollback()
		s.settle(errors.Join(bulkwrite.ErrCommitFailed, commitErr))

		s.e.logErrorContext(spanCtx, logMsgCommitFailed, commitErr, logAttrWorker, s.id, logAttrBatchSize, batchSize)
		s.e.finishCommitSpan(span, false)
		s.e.recordCommitMetrics(spanCtx, duration, batchSize, statusError)
	} else {
		s.tx = nil
		s.settle(nil)

		s.e.logDebugContext(
			spanCtx,
			logMsgCommitted,
			logAttrWorker, s.id,
			logAttrBatchSize, batchSize,
			logAttrDurationMS, toMilliseconds(duration),
		)
		s.e.finishCommitSpan(span, true)
		s.e.recordCommitMetrics(spanCtx, duration, batchSize, statusSuccess)
	}

	s.e.reportProgress()
}
