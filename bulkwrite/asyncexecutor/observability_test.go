package asyncexecutor_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
	"github.com/AntonStoeckl/bulkwrite-go/testutil/helper"
)

func Test_Observability_ShouldReportCommits(t *testing.T) {
	// setup
	ctx := context.Background()
	logHandler := helper.NewLogHandlerSpy(false)
	metrics := helper.NewMetricsCollectorSpy(true)
	tracing := helper.NewTracingCollectorSpy(true)

	executor, err := asyncexecutor.New(
		memstore.New(),
		asyncexecutor.WithParallelism(1),
		asyncexecutor.WithCommitEvery(5),
		asyncexecutor.WithLogger(slog.New(logHandler)),
		asyncexecutor.WithMetrics(metrics),
		asyncexecutor.WithTracing(tracing),
	)
	require.NoError(t, err)

	// act
	enqueueCreates(t, executor, 10)
	require.True(t, executor.WaitCompletion(ctx))
	require.NoError(t, executor.Close())

	// assert
	assert.True(t, logHandler.HasLog(slog.LevelInfo, "bulkwrite: executor started"))
	assert.True(t, logHandler.HasLog(slog.LevelInfo, "bulkwrite: executor closed"))
	assert.Equal(t, 2, logHandler.CountLogs(slog.LevelDebug, "bulkwrite: batch committed"))
	assert.True(t, logHandler.HasLogWithAttr(slog.LevelDebug, "bulkwrite: batch committed", "duration_ms"))

	assert.Equal(t, 2, tracing.CountSpanRecords("bulkwrite.commit", "success"))
	for _, span := range tracing.GetSpanRecords() {
		assert.Equal(t, "0", span.StartAttributes["worker"])
		assert.Equal(t, "5", span.StartAttributes["batch_size"])
		assert.Contains(t, span.EndAttributes, "duration_ms")
	}

	assert.Equal(t, 2, metrics.CountDurationRecords("bulkwrite_commit_duration_seconds"))
	batchSizes := metrics.GetValueRecords("bulkwrite_commit_batch_size")
	require.Len(t, batchSizes, 2)
	assert.InDelta(t, 5.0, batchSizes[0].Value, 0.001)
	assert.Len(t, metrics.GetValueRecords("bulkwrite_queue_occupancy_percent"), 10)
}

func Test_Observability_ShouldCountFailuresByReason(t *testing.T) {
	// setup
	ctx := context.Background()
	metrics := helper.NewMetricsCollectorSpy(true)
	store := helper.NewFaultyStore(memstore.New(), helper.WithApplyFailureEvery(3))

	executor := newExecutor(t, store,
		asyncexecutor.WithParallelism(1),
		asyncexecutor.WithMetrics(metrics),
	)

	// act
	enqueueCreates(t, executor, 9)
	require.True(t, executor.WaitCompletion(ctx))

	// assert
	assert.Equal(t, 3, metrics.CountCounterRecords("bulkwrite_apply_failures_total", map[string]string{"operation": "create"}))
	assert.Equal(t, 3, metrics.CountCounterRecords("bulkwrite_operations_failed_total", map[string]string{"reason": "apply"}))
}

func Test_Observability_ShouldLogCommitFailures(t *testing.T) {
	ctx := context.Background()
	logHandler := helper.NewLogHandlerSpy(false)
	tracing := helper.NewTracingCollectorSpy(true)
	store := helper.NewFaultyStore(memstore.New())
	store.FailCommits(true)

	executor := newExecutor(t, store,
		asyncexecutor.WithParallelism(1),
		asyncexecutor.WithLogger(slog.New(logHandler)),
		asyncexecutor.WithTracing(tracing),
	)

	enqueueCreates(t, executor, 3)
	require.True(t, executor.WaitCompletion(ctx))

	assert.True(t, logHandler.HasLogWithAttr(slog.LevelError, "bulkwrite: commit failed", "error"))
	assert.Equal(t, 1, tracing.CountSpanRecords("bulkwrite.commit", "error"))
}
