package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/oteladapters"
)

func Test_SlogBridgeLoggerWithHandler_ShouldWriteAttributes(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// act
	logger.DebugContext(context.Background(), "bulkwrite: batch committed", "worker", 2, "batch_size", 100)

	// assert
	output := buf.String()
	assert.Contains(t, output, "bulkwrite: batch committed")
	assert.Contains(t, output, `"worker":2`)
	assert.Contains(t, output, `"batch_size":100`)
}

func Test_SlogBridgeLogger_WithExecutor(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	executor, err := asyncexecutor.New(memstore.New(),
		asyncexecutor.WithParallelism(1),
		asyncexecutor.WithCommitEvery(2),
		asyncexecutor.WithContextualLogger(logger),
	)
	require.NoError(t, err)

	// act
	for range 4 {
		require.NoError(t, executor.EnqueueCreate(ctx, "Person", nil, nil))
	}
	require.True(t, executor.WaitCompletion(ctx))
	require.NoError(t, executor.Close())

	// assert
	assert.Contains(t, buf.String(), "bulkwrite: batch committed")
}

func Test_SlogBridgeLogger_ShouldNotPanic_WithoutProvider(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug", "key", "value")
		logger.InfoContext(ctx, "info", "key", "value")
		logger.WarnContext(ctx, "warn", "key", "value")
		logger.ErrorContext(ctx, "error", "key", "value")
	})
}

func Test_OTelLogger_ShouldHandleAllArgumentShapes(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("test"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug", "worker", 1)
		logger.InfoContext(ctx, "info", "use_wal", true, "occupancy", 12.5, "count", int64(3))
		logger.WarnContext(ctx, "warn", "dangling")
		logger.ErrorContext(ctx, "error", "error", errors.New("boom"), 42, "non-string key")
	})
}
