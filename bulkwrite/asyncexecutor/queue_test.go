package asyncexecutor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

func Test_workQueue_mustWait(t *testing.T) {
	testCases := []struct {
		name      string
		capacity  int
		threshold int
		count     int
		expected  bool
	}{
		{name: "empty queue never blocks", capacity: 4, threshold: 1, count: 0, expected: false},
		{name: "below threshold", capacity: 4, threshold: 50, count: 1, expected: false},
		{name: "at threshold", capacity: 4, threshold: 50, count: 2, expected: true},
		{name: "no threshold and not full", capacity: 4, threshold: 0, count: 3, expected: false},
		{name: "no threshold and full", capacity: 4, threshold: 0, count: 4, expected: true},
		{name: "threshold 100 equals full", capacity: 4, threshold: 100, count: 3, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			q := newWorkQueue(tc.capacity, tc.threshold)
			q.count = tc.count

			// act + assert
			assert.Equal(t, tc.expected, q.mustWait())
		})
	}
}

func Test_workQueue_ShouldBeFIFO(t *testing.T) {
	// setup
	q := newWorkQueue(3, 0)
	ctx := context.Background()

	// act
	for _, targetType := range []string{"A", "B", "C"} {
		_, err := q.put(ctx, mustCreate(t, targetType))
		require.NoError(t, err)
	}

	first, _ := q.take(false)
	_, err := q.put(ctx, mustCreate(t, "D"))
	require.NoError(t, err)

	// assert
	assert.Equal(t, "A", first.TargetType())
	for _, expected := range []string{"B", "C", "D"} {
		op, result := q.take(false)
		assert.Equal(t, takeOperation, result)
		assert.Equal(t, expected, op.TargetType())
	}
	assert.Equal(t, 0, q.size())
}

func Test_workQueue_take_ShouldFlush_WhenDrainIsRequested(t *testing.T) {
	q := newWorkQueue(2, 0)

	taken := make(chan takeResult, 1)
	go func() {
		_, result := q.take(true)
		taken <- result
	}()

	select {
	case <-taken:
		t.Fatal("take must block on an empty queue without a drain request")
	case <-time.After(50 * time.Millisecond):
	}

	q.requestDrain()
	defer q.releaseDrain()

	select {
	case result := <-taken:
		assert.Equal(t, takeFlush, result)
	case <-time.After(time.Second):
		t.Fatal("take must return after a drain request")
	}
}

func Test_workQueue_take_ShouldNotFlush_WithoutUncommittedOperations(t *testing.T) {
	q := newWorkQueue(2, 0)
	q.requestDrain()

	taken := make(chan takeResult, 1)
	go func() {
		_, result := q.take(false)
		taken <- result
	}()

	select {
	case <-taken:
		t.Fatal("take must keep waiting when there is nothing to flush")
	case <-time.After(50 * time.Millisecond):
	}

	q.close()
	assert.Equal(t, takeStop, <-taken)
}

func Test_workQueue_close_ShouldReturnRemainingOperations(t *testing.T) {
	// setup
	q := newWorkQueue(4, 0)
	ctx := context.Background()

	for _, targetType := range []string{"A", "B"} {
		_, err := q.put(ctx, mustCreate(t, targetType))
		require.NoError(t, err)
	}

	// act
	remaining := q.close()

	// assert
	require.Len(t, remaining, 2)
	assert.Equal(t, "A", remaining[0].TargetType())
	assert.Nil(t, q.close())

	_, err := q.put(ctx, mustCreate(t, "C"))
	assert.ErrorIs(t, err, bulkwrite.ErrQueueClosed)

	_, result := q.take(true)
	assert.Equal(t, takeStop, result)
}

func Test_workQueue_put_ShouldStopWaiting_WhenContextEnds(t *testing.T) {
	// setup
	q := newWorkQueue(1, 0)
	_, err := q.put(context.Background(), mustCreate(t, "A"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// act
	blocked, err := q.put(ctx, mustCreate(t, "B"))

	// assert
	assert.True(t, blocked)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.size())
	assert.InDelta(t, 100.0, q.occupancy(), 0.001)
}

func Test_completion_wait(t *testing.T) {
	c := newCompletion()
	assert.True(t, c.wait(context.Background()))

	c.add()
	c.add()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, c.wait(ctx))

	c.done()
	c.done()
	assert.True(t, c.wait(context.Background()))
	assert.Equal(t, int64(0), c.count())
}

func mustCreate(t *testing.T, targetType string) bulkwrite.Operation {
	t.Helper()

	op, err := bulkwrite.BuildCreate(targetType, nil, nil)
	require.NoError(t, err)

	return op
}
