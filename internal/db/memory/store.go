// Package memory provides in-process implementations of the Credential Store
// and Post Store. They back the test suites and STORE_DRIVER=memory.
package memory

import (
	"sync"
	"time"
)

// clock hands out strictly increasing timestamps so listing order is stable
// even when several rows are written within the same clock tick.
type clock struct {
	now  func() time.Time
	last time.Time
	mu   sync.Mutex
}

func newClock() *clock {
	return &clock{now: time.Now}
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
