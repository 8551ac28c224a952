package asyncexecutor

import (
	"errors"
	"fmt"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

const (
	MinParallelism = 1
	MaxParallelism = 16

	DefaultParallelism            = 4
	DefaultCommitEvery            = 1000
	DefaultBackpressureThreshold  = 0
	DefaultQueueCapacityPerWorker = 256
	DefaultUseWAL                 = true
)

// Config is the immutable configuration of an Executor.
type Config struct {
	// Parallelism is the number of worker sessions, 1 to 16.
	Parallelism int

	// CommitEvery is the number of applied operations after which a worker commits.
	// 0 disables count-based commits: batches are then only committed when a caller drains the executor.
	CommitEvery int

	// BackpressureThreshold is the queue occupancy in percent at which producers are blocked.
	// 0 disables throttling, producers then only block on a full queue.
	BackpressureThreshold int

	// QueueCapacityPerWorker sizes the work queue: capacity = Parallelism * QueueCapacityPerWorker.
	QueueCapacityPerWorker int

	// UseWAL is passed to the store for every session transaction.
	UseWAL bool
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		Parallelism:            DefaultParallelism,
		CommitEvery:            DefaultCommitEvery,
		BackpressureThreshold:  DefaultBackpressureThreshold,
		QueueCapacityPerWorker: DefaultQueueCapacityPerWorker,
		UseWAL:                 DefaultUseWAL,
	}
}

// Validate checks all ranges and returns ErrInvalidConfiguration joined with the first violation.
func (c Config) Validate() error {
	if c.Parallelism < MinParallelism || c.Parallelism > MaxParallelism {
		return errors.Join(
			bulkwrite.ErrInvalidConfiguration,
			fmt.Errorf("%w: got %d", bulkwrite.ErrParallelismOutOfRange, c.Parallelism),
		)
	}

	if c.CommitEvery < 0 {
		return errors.Join(
			bulkwrite.ErrInvalidConfiguration,
			fmt.Errorf("%w: got %d", bulkwrite.ErrCommitEveryNegative, c.CommitEvery),
		)
	}

	if c.BackpressureThreshold < 0 || c.BackpressureThreshold > 100 {
		return errors.Join(
			bulkwrite.ErrInvalidConfiguration,
			fmt.Errorf("%w: got %d", bulkwrite.ErrBackpressureThresholdOutOfRange, c.BackpressureThreshold),
		)
	}

	if c.QueueCapacityPerWorker < 1 {
		return errors.Join(
			bulkwrite.ErrInvalidConfiguration,
			fmt.Errorf("%w: got %d", bulkwrite.ErrQueueCapacityOutOfRange, c.QueueCapacityPerWorker),
		)
	}

	return nil
}

// QueueCapacity returns the total capacity of the work queue.
func (c Config) QueueCapacity() int {
	return c.Parallelism * c.QueueCapacityPerWorker
}
