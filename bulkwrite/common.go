package bulkwrite

import (
	"errors"
)

// Configuration errors, returned synchronously when an executor is built.
var (
	ErrInvalidConfiguration            = errors.New("invalid executor configuration")
	ErrParallelismOutOfRange           = errors.New("parallelism must be between 1 and 16")
	ErrCommitEveryNegative             = errors.New("commitEvery must not be negative")
	ErrBackpressureThresholdOutOfRange = errors.New("backpressure threshold must be between 0 and 100")
	ErrQueueCapacityOutOfRange         = errors.New("queue capacity per worker must be at least 1")
	ErrNilStore                        = errors.New("nil store supplied")
)

// Producer-side misuse errors, returned synchronously by the enqueue calls.
var (
	ErrQueueClosed     = errors.New("queue is closed, no more operations are accepted")
	ErrEmptyTargetType = errors.New("empty target type supplied")
	ErrEmptyRecordID   = errors.New("empty record id supplied")
	ErrEmptyStatement  = errors.New("empty statement supplied")
	ErrEmptyLanguage   = errors.New("empty language supplied")

	ErrUnknownOperationKind = errors.New("unknown operation kind")
)

// Store-originated errors, never returned to a producer but captured in ErrorRecord(s).
var (
	ErrApplyFailed     = errors.New("applying operation failed")
	ErrCommitFailed    = errors.New("committing batch failed")
	ErrBatchRolledBack = errors.New("batch was rolled back because an operation in it failed")
	ErrBeginTxFailed   = errors.New("beginning transaction failed")
	ErrExecutorClosed  = errors.New("executor was closed before the operation was committed")
)

// Errors a Store implementation is expected to return.
var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrUnsupportedLanguage   = errors.New("unsupported query language")
	ErrTransactionFinished   = errors.New("transaction already committed or rolled back")
	ErrNoSavepoint           = errors.New("no savepoint is active")
	ErrNilDatabaseConnection = errors.New("nil database connection supplied")
	ErrEmptyTableName        = errors.New("empty table name supplied")
)
