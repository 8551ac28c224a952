package bulkwrite

import "time"

// ErrorRecord is a failed Operation together with the captured error.
//
// Err always wraps one of ErrApplyFailed, ErrCommitFailed, ErrBatchRolledBack,
// ErrBeginTxFailed or ErrExecutorClosed, so callers can decide on a retry policy with errors.Is.
type ErrorRecord struct {
	Operation Operation
	Err       error
	FailedAt  time.Time
}

// Error implements the error interface so an ErrorRecord can be aggregated directly.
func (r ErrorRecord) Error() string {
	return r.Operation.Kind().String() + " operation failed: " + r.Err.Error()
}

// Unwrap returns the captured error.
func (r ErrorRecord) Unwrap() error {
	return r.Err
}
