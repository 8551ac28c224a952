package asyncexecutor

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/bulkwrite-go/bulkwrite"
)

// collector aggregates terminal outcomes. An operation is counted either as success or as error, never both.
type collector struct {
	successes atomic.Int64
	failures  atomic.Int64

	mu      sync.Mutex
	records []bulkwrite.ErrorRecord
}

func (c *collector) recordSuccess() {
	c.successes.Add(1)
}

func (c *collector) recordFailure(record bulkwrite.ErrorRecord) {
	c.mu.Lock()
	c.records = append(c.records, record)
	c.mu.Unlock()

	c.failures.Add(1)
}

func (c *collector) errorRecords() []bulkwrite.ErrorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.records)
}
