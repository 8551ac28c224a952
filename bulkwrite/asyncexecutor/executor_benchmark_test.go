package asyncexecutor_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/asyncexecutor"
	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite/memstore"
)

func Benchmark_Enqueue_Creates_With_Different_CommitSizes(b *testing.B) {
	for _, commitEvery := range []int{1, 100, 1000} {
		b.Run(fmt.Sprintf("commit every %d", commitEvery), func(b *testing.B) {
			// setup
			ctx := context.Background()
			executor, err := asyncexecutor.New(memstore.New(),
				asyncexecutor.WithParallelism(4),
				asyncexecutor.WithCommitEvery(commitEvery),
			)
			assert.NoError(b, err)
			defer func() { _ = executor.Close() }()

			properties := bulkwrite.Properties{"name": "benchmark"}

			// act
			b.ResetTimer()
			start := time.Now()

			for i := 0; i < b.N; i++ {
				assert.NoError(b, executor.EnqueueCreate(ctx, "Person", properties, nil))
			}

			assert.True(b, executor.WaitCompletion(ctx))
			elapsed := time.Since(start)
			b.StopTimer()

			// assert
			assert.Equal(b, int64(0), executor.ErrorCount())
			b.ReportMetric(float64(b.N)/elapsed.Seconds(), "ops/s")
		})
	}
}

func Benchmark_Enqueue_Creates_With_Different_Parallelism(b *testing.B) {
	for _, parallelism := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("%d workers", parallelism), func(b *testing.B) {
			// setup
			ctx := context.Background()
			executor, err := asyncexecutor.New(memstore.New(),
				asyncexecutor.WithParallelism(parallelism),
				asyncexecutor.WithBackpressureThreshold(80),
			)
			assert.NoError(b, err)
			defer func() { _ = executor.Close() }()

			// act
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				assert.NoError(b, executor.EnqueueCreate(ctx, "Person", nil, nil))
			}

			assert.True(b, executor.WaitCompletion(ctx))
			b.StopTimer()

			// assert
			assert.Equal(b, int64(b.N), executor.SuccessCount())
		})
	}
}
