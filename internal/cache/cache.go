package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store is a TTL cache for rendered analysis responses
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Stats() map[string]interface{}
	Close() error
}

// KeyFor derives a cache key from a request body
func KeyFor(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	ttl   time.Duration
	done  chan struct{}
	once  sync.Once
	now   func() time.Time
}

// NewMemoryStore creates a memory store and starts its cleanup loop
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	c := &MemoryStore{
		items: make(map[string]*CacheItem),
		ttl:   ttl,
		done:  make(chan struct{}),
		now:   time.Now,
	}

	go c.cleanup(cleanupInterval(ttl))

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		if ttl < time.Second {
			return time.Second
		}
		return ttl
	}
	return 5 * time.Minute
}

// cleanup removes expired items periodically
func (c *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *MemoryStore) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if item.IsExpired(now) {
			delete(c.items, key)
		}
	}
}

// Get retrieves an item from the cache
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if item.IsExpired(c.now()) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false, nil
	}

	return item.Data, true, nil
}

// Set stores an item in the cache
func (c *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &CacheItem{
		Data:      append([]byte(nil), data...),
		ExpiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Size returns the number of items in the cache
func (c *MemoryStore) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stats returns cache statistics
func (c *MemoryStore) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	totalItems := len(c.items)
	expiredItems := 0
	for _, item := range c.items {
		if item.IsExpired(now) {
			expiredItems++
		}
	}

	return map[string]interface{}{
		"backend":       "memory",
		"total_items":   totalItems,
		"expired_items": expiredItems,
		"active_items":  totalItems - expiredItems,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// Close stops the cleanup loop
func (c *MemoryStore) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
