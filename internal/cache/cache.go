// Package cache 提供以 (活动ID, 聚合名) 为键的进程内缓存，
// 用于页脚链接、首页区块等由页面集合派生的聚合数据。
package cache

import "sync"

// EventCache stores derived aggregates per event. Any page mutation must call
// Invalidate for the owning event; staleness after a missed invalidation is
// bounded by the next mutation, which is acceptable for this data.
type EventCache struct {
	mu      sync.RWMutex
	entries map[uint]map[string]interface{}
}

// New returns an empty cache.
func New() *EventCache {
	return &EventCache{entries: make(map[uint]map[string]interface{})}
}

// Get returns the cached aggregate and whether it was present.
func (c *EventCache) Get(eventID uint, aggregate string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byName, ok := c.entries[eventID]
	if !ok {
		return nil, false
	}
	value, ok := byName[aggregate]
	return value, ok
}

// Set stores one aggregate for an event.
func (c *EventCache) Set(eventID uint, aggregate string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byName, ok := c.entries[eventID]
	if !ok {
		byName = make(map[string]interface{})
		c.entries[eventID] = byName
	}
	byName[aggregate] = value
}

// Invalidate 清空一个活动的全部聚合缓存。
func (c *EventCache) Invalidate(eventID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, eventID)
}
