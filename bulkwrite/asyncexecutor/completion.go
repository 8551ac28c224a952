package asyncexecutor

import (
	"context"
	"sync"
	"sync/atomic"
)

// completion is the pending-operation counter shared by producers and workers.
// drained is closed whenever the counter is zero and replaced when it leaves zero.
type completion struct {
	pending atomic.Int64
	mu      sync.Mutex
	drained chan struct{}
}

func newCompletion() *completion {
	drained := make(chan struct{})
	close(drained)

	return &completion{drained: drained}
}

// add is called once per accepted operation, before it becomes visible to workers.
func (c *completion) add() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending.Add(1) == 1 {
		c.drained = make(chan struct{})
	}
}

// done is called exactly once per operation, after it was reported.
func (c *completion) done() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending.Add(-1) == 0 {
		close(c.drained)
	}
}

// wait blocks until the counter reached zero or ctx ended.
func (c *completion) wait(ctx context.Context) bool {
	c.mu.Lock()
	drained := c.drained
	c.mu.Unlock()

	select {
	case <-drained:
		return true
	case <-ctx.Done():
		return c.pending.Load() == 0
	}
}

func (c *completion) count() int64 {
	return c.pending.Load()
}
