package storage

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// LRUCache is a fixed-capacity cache with per-entry TTL. Reads count
// as use for eviction ordering; expired entries are dropped lazily on
// access and in bulk by CleanupExpired.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	byKey    map[string]*list.Element
	recency  *list.List // front = most recently used
}

// NewLRUCache creates a cache holding at most capacity entries, each
// valid for ttl after its last Set
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		byKey:    make(map[string]*list.Element, capacity),
		recency:  list.New(),
	}
}

// Get returns the live value under key, marking it recently used
func (c *LRUCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.drop(elem)
		return nil, false
	}

	c.recency.MoveToFront(elem)
	return entry.value, true
}

// Set stores value under key, resetting its TTL. The least recently
// used entry is evicted when the cache is full.
func (c *LRUCache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(c.ttl)

	if elem, ok := c.byKey[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		c.recency.MoveToFront(elem)
		return
	}

	c.byKey[key] = c.recency.PushFront(&cacheEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})

	for c.recency.Len() > c.capacity {
		if oldest := c.recency.Back(); oldest != nil {
			c.drop(oldest)
		}
	}
}

// Delete removes key if present
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		c.drop(elem)
	}
}

// Clear empties the cache
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byKey = make(map[string]*list.Element, c.capacity)
	c.recency.Init()
}

// Len returns the number of entries, including any not yet swept
// expired ones
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recency.Len()
}

// CleanupExpired sweeps out every expired entry and reports how many
// were removed
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0

	elem := c.recency.Front()
	for elem != nil {
		next := elem.Next()
		if now.After(elem.Value.(*cacheEntry).expiresAt) {
			c.drop(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// drop removes an element from both indexes; caller holds the lock
func (c *LRUCache) drop(elem *list.Element) {
	c.recency.Remove(elem)
	delete(c.byKey, elem.Value.(*cacheEntry).key)
}
