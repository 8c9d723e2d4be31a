package engine

import (
	"sync"

	"sleepsafe/internal/model"
)

// Cache is the bounded, insertion-ordered store of processed events. When an
// append would exceed capacity the oldest entry is dropped; reads never
// affect eviction order.
type Cache struct {
	mu       sync.RWMutex
	buf      []model.DetectionEvent
	capacity int
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{capacity: capacity}
}

func (c *Cache) Append(ev model.DetectionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) < c.capacity {
		c.buf = append(c.buf, ev)
		return
	}
	copy(c.buf, c.buf[1:])
	c.buf[len(c.buf)-1] = ev
}

// Recent returns up to limit entries from the tail of the cache in arrival
// order, most recent last. A limit of zero returns nothing.
func (c *Cache) Recent(limit int) []model.DetectionEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if limit < 0 {
		limit = 0
	}
	if limit > len(c.buf) {
		limit = len(c.buf)
	}
	out := make([]model.DetectionEvent, 0, limit)
	for i := len(c.buf) - limit; i < len(c.buf); i++ {
		out = append(out, c.buf[i])
	}
	return out
}

// Snapshot copies out the full contents so aggregate computations run on a
// consistent view without holding the lock.
func (c *Cache) Snapshot() []model.DetectionEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.DetectionEvent, len(c.buf))
	copy(out, c.buf)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buf)
}

// Clear empties the cache and reports how many entries were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := len(c.buf)
	c.buf = nil
	return count
}
