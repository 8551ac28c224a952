package promadapters_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/promadapters"
	"github.com/AntonStoeckl/bulkwrite-go/testutil/helper"
)

func Test_MetricsCollector_IncrementCounter(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("bulkwrite_operations_failed_total", map[string]string{"operation": "create", "reason": "apply"})
	collector.IncrementCounter("bulkwrite_operations_failed_total", map[string]string{"operation": "create", "reason": "apply"})
	collector.IncrementCounter("bulkwrite_operations_failed_total", map[string]string{"operation": "delete", "reason": "commit"})

	// assert
	expected := `
# HELP bulkwrite_operations_failed_total bulkwrite operation counter
# TYPE bulkwrite_operations_failed_total counter
bulkwrite_operations_failed_total{operation="create",reason="apply"} 2
bulkwrite_operations_failed_total{operation="delete",reason="commit"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "bulkwrite_operations_failed_total"))
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.RecordValue("bulkwrite_queue_occupancy_percent", 40, nil)
	collector.RecordValue("bulkwrite_queue_occupancy_percent", 12.5, nil)

	// assert
	expected := `
# HELP bulkwrite_queue_occupancy_percent bulkwrite current value
# TYPE bulkwrite_queue_occupancy_percent gauge
bulkwrite_queue_occupancy_percent 12.5
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "bulkwrite_queue_occupancy_percent"))
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry, promadapters.WithBuckets([]float64{0.3, 1}))

	// act
	collector.RecordDuration("bulkwrite_commit_duration_seconds", 250*time.Millisecond, map[string]string{"status": "success"})
	collector.RecordDuration("bulkwrite_commit_duration_seconds", 500*time.Millisecond, map[string]string{"status": "success"})

	// assert
	expected := `
# HELP bulkwrite_commit_duration_seconds bulkwrite operation duration in seconds
# TYPE bulkwrite_commit_duration_seconds histogram
bulkwrite_commit_duration_seconds_bucket{status="success",le="0.3"} 1
bulkwrite_commit_duration_seconds_bucket{status="success",le="1"} 2
bulkwrite_commit_duration_seconds_bucket{status="success",le="+Inf"} 2
bulkwrite_commit_duration_seconds_sum{status="success"} 0.75
bulkwrite_commit_duration_seconds_count{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "bulkwrite_commit_duration_seconds"))
}

func Test_MetricsCollector_ShouldKeepLabelNamesOfFirstUse(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	collector := promadapters.NewMetricsCollector(registry)

	// act
	collector.IncrementCounter("events_total", map[string]string{"operation": "create"})
	collector.IncrementCounter("events_total", map[string]string{"operation": "create", "extra": "dropped"})
	collector.IncrementCounter("events_total", nil)

	// assert
	expected := `
# HELP events_total bulkwrite operation counter
# TYPE events_total counter
events_total{operation=""} 1
events_total{operation="create"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "events_total"))
}

func Test_MetricsCollector_ShouldReuseAlreadyRegisteredVectors(t *testing.T) {
	// setup
	registry := prometheus.NewRegistry()
	first := promadapters.NewMetricsCollector(registry)
	second := promadapters.NewMetricsCollector(registry)

	// act
	first.IncrementCounter("shared_total", map[string]string{"status": "success"})
	second.IncrementCounter("shared_total", map[string]string{"status": "success"})

	// assert
	count, err := testutil.GatherAndCount(registry, "shared_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP shared_total bulkwrite operation counter
# TYPE shared_total counter
shared_total{status="success"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "shared_total"))
}

func Test_MetricsCollector_WithExecutor(t *testing.T) {
	// setup
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	store := helper.NewFaultyStore(memstore.New(), helper.WithApplyFailureEvery(4))

	executor, err := asyncexecutor.New(store,
		asyncexecutor.WithParallelism(1),
		asyncexecutor.WithCommitEvery(10),
		asyncexecutor.WithMetrics(promadapters.NewMetricsCollector(registry)),
	)
	require.NoError(t, err)

	// act
	for range 20 {
		require.NoError(t, executor.EnqueueCreate(ctx, "Person", nil, nil))
	}
	require.True(t, executor.WaitCompletion(ctx))
	require.NoError(t, executor.Close())

	// assert
	expected := `
# HELP bulkwrite_apply_failures_total bulkwrite operation counter
# TYPE bulkwrite_apply_failures_total counter
bulkwrite_apply_failures_total{operation="create"} 5
`
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "bulkwrite_apply_failures_total"))

	count, err := testutil.GatherAndCount(registry, "bulkwrite_commit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
