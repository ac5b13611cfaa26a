// Package cache provides the process-local TTL cache used for classifier
// answers and suggestion results.
package cache

import (
	"context"
	"sync"
	"time"

	"mindmap-backend/pkg/observability"
)

// InMemoryCache provides a simple in-memory cache implementation
type InMemoryCache struct {
	mu         sync.RWMutex
	items      map[string]cacheItem
	defaultTTL time.Duration
	metrics    *observability.Collector
	now        func() time.Time
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type cacheItem struct {
	value     interface{}
	expiresAt time.Time
}

// NewInMemoryCache creates a cache whose entries live for defaultTTL unless
// Set is given a ttl. Close stops the cleanup goroutine.
func NewInMemoryCache(defaultTTL time.Duration, metrics *observability.Collector) *InMemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	cache := &InMemoryCache{
		items:      make(map[string]cacheItem),
		defaultTTL: defaultTTL,
		metrics:    metrics,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	go cache.cleanupExpired(time.Minute)

	return cache
}

// Get retrieves a value from cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || c.now().After(item.expiresAt) {
		c.metrics.RecordCacheMiss()
		return nil, false
	}

	c.metrics.RecordCacheHit()
	return item.value, true
}

// Set stores a value; a zero ttl uses the cache default
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = cacheItem{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}

	return nil
}

// Delete removes a value from cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values from cache
func (c *InMemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheItem)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine
func (c *InMemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// cleanupExpired periodically removes expired items
func (c *InMemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *InMemoryCache) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
