package bulkload

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/testutil/helper"
)

func Test_NewObservability_WithoutBackends(t *testing.T) {
	o, err := NewObservability(context.Background(), "", "")
	require.NoError(t, err)

	assert.Nil(t, o.MetricsCollector)
	assert.Nil(t, o.TracingCollector)
	assert.Empty(t, o.ExecutorOptions())
	assert.NoError(t, o.Shutdown())
}

func Test_NewObservability_WithPrometheus(t *testing.T) {
	o, err := NewObservability(context.Background(), "127.0.0.1:0", "")
	require.NoError(t, err)

	assert.NotNil(t, o.MetricsCollector)
	assert.Len(t, o.ExecutorOptions(), 1)
	assert.NoError(t, o.Shutdown())
}

func Test_multiMetricsCollector_ShouldFanOut(t *testing.T) {
	// setup
	first := helper.NewMetricsCollectorSpy(true)
	second := helper.NewMetricsCollectorSpy(true)
	fanout := multiMetricsCollector{first, second}

	// act
	fanout.IncrementCounter("total", map[string]string{"status": "success"})
	fanout.RecordDuration("duration", time.Millisecond, nil)
	fanout.RecordValue("value", 3, nil)

	// assert
	for _, spy := range []*helper.MetricsCollectorSpy{first, second} {
		assert.Equal(t, 1, spy.CountCounterRecords("total", map[string]string{"status": "success"}))
		assert.Equal(t, 1, spy.CountDurationRecords("duration"))
		assert.Len(t, spy.GetValueRecords("value"), 1)
	}
}
