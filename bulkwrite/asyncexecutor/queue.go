package asyncexecutor

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

type takeResult int

const (
	takeOperation takeResult = iota
	takeFlush
	takeStop
)

// workQueue is a bounded multi-producer, multi-consumer ring buffer.
// It also hosts the backpressure governor: put blocks while the occupancy is at or above the threshold.
type workQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items     []bulkwrite.Operation
	head      int
	count     int
	threshold int
	closed    bool

	// drainRequests counts callers waiting for completion; while > 0 an idle worker flushes its batch.
	drainRequests int
}

func newWorkQueue(capacity, threshold int) *workQueue {
	q := &workQueue{
		items:     make([]bulkwrite.Operation, capacity),
		threshold: threshold,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)

	return q
}

// put appends op, blocking while the queue is full or over the backpressure threshold.
// It reports whether the producer had to wait.
func (q *workQueue) put(ctx context.Context, op bulkwrite.Operation) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	blocked := false
	stopWaking := func() bool { return false }
	defer func() { stopWaking() }()

	for {
		if q.closed {
			return blocked, bulkwrite.ErrQueueClosed
		}

		if !q.mustWait() {
			break
		}

		if err := ctx.Err(); err != nil {
			return blocked, err
		}

		if !blocked {
			blocked = true
			stopWaking = context.AfterFunc(ctx, func() {
				q.mu.Lock()
				q.notFull.Broadcast()
				q.mu.Unlock()
			})
		}

		q.notFull.Wait()
	}

	q.items[(q.head+q.count)%len(q.items)] = op
	q.count++
	q.notEmpty.Signal()

	return blocked, nil
}

// mustWait is the governor: it samples the occupancy as a percentage of the capacity.
// An empty queue never blocks, whatever the threshold.
func (q *workQueue) mustWait() bool {
	capacity := len(q.items)

	if q.count >= capacity {
		return true
	}

	return q.threshold > 0 && q.count*100 >= q.threshold*capacity
}

// take removes the oldest operation. If the queue is empty it blocks, unless
//   - the queue was closed: takeStop
//   - the worker holds uncommitted operations and a caller waits for completion: takeFlush
func (q *workQueue) take(hasUncommitted bool) (bulkwrite.Operation, takeResult) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.closed {
			return bulkwrite.Operation{}, takeStop
		}

		if q.count > 0 {
			op := q.items[q.head]
			q.items[q.head] = bulkwrite.Operation{}
			q.head = (q.head + 1) % len(q.items)
			q.count--
			q.notFull.Broadcast()

			return op, takeOperation
		}

		if hasUncommitted && q.drainRequests > 0 {
			return bulkwrite.Operation{}, takeFlush
		}

		q.notEmpty.Wait()
	}
}

func (q *workQueue) requestDrain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.drainRequests++
	q.notEmpty.Broadcast()
}

func (q *workQueue) releaseDrain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.drainRequests--
}

// close stops producers and consumers and returns the operations that were never dequeued.
func (q *workQueue) close() []bulkwrite.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	remaining := make([]bulkwrite.Operation, 0, q.count)
	for q.count > 0 {
		remaining = append(remaining, q.items[q.head])
		q.items[q.head] = bulkwrite.Operation{}
		q.head = (q.head + 1) % len(q.items)
		q.count--
	}

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()

	return remaining
}

// occupancy returns the fill level in percent.
func (q *workQueue) occupancy() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return float64(q.count) * 100 / float64(len(q.items))
}

func (q *workQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.count
}
