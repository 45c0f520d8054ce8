package cache

import (
	"sync"
	"time"
)

const (
	DefaultMaxSize         = 1000
	DefaultExpiry          = 5 * time.Minute
	DefaultCleanupInterval = time.Minute
)

type item[V any] struct {
	value     V
	expiresAt time.Time
}

func (i item[V]) expired(now time.Time) bool {
	return now.After(i.expiresAt)
}

// Cache is an in-memory map with per-entry expiry and a size bound
type Cache[K comparable, V any] struct {
	mu            sync.RWMutex
	items         map[K]item[V]
	maxSize       int
	defaultExpiry time.Duration

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

type Stats struct {
	Size          int
	MaxSize       int
	DefaultExpiry time.Duration
	ExpiredItems  int
}

func New[K comparable, V any]() *Cache[K, V] {
	return NewWithConfig[K, V](DefaultMaxSize, DefaultExpiry, DefaultCleanupInterval)
}

// NewWithConfig starts a cleanup goroutine that runs every cleanupInterval until Close
func NewWithConfig[K comparable, V any](maxSize int, defaultExpiry, cleanupInterval time.Duration) *Cache[K, V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if defaultExpiry <= 0 {
		defaultExpiry = DefaultExpiry
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	c := &Cache[K, V]{
		items:         make(map[K]item[V]),
		maxSize:       maxSize,
		defaultExpiry: defaultExpiry,
		stopCleanup:   make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithExpiry(key, value, c.defaultExpiry)
}

func (c *Cache[K, V]) SetWithExpiry(key K, value V, expiry time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictOne()
	}
	c.items[key] = item[V]{value: value, expiresAt: time.Now().Add(expiry)}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	var zero V
	if !exists {
		return zero, false
	}
	if it.expired(time.Now()) {
		c.Delete(key)
		return zero, false
	}
	return it.value, true
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]item[V])
	c.mu.Unlock()
}

// Size counts entries including expired ones not yet cleaned up
func (c *Cache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	expired := 0
	for _, it := range c.items {
		if it.expired(now) {
			expired++
		}
	}

	return Stats{
		Size:          len(c.items),
		MaxSize:       c.maxSize,
		DefaultExpiry: c.defaultExpiry,
		ExpiredItems:  expired,
	}
}

// Close stops the cleanup goroutine. The cache stays usable.
func (c *Cache[K, V]) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
}

func (c *Cache[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *Cache[K, V]) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
		}
	}
}

// evictOne drops an expired entry if there is one, otherwise the entry closest to expiry.
// Callers hold the write lock.
func (c *Cache[K, V]) evictOne() {
	now := time.Now()
	var (
		victim  K
		soonest time.Time
		found   bool
	)
	for key, it := range c.items {
		if it.expired(now) {
			delete(c.items, key)
			return
		}
		if !found || it.expiresAt.Before(soonest) {
			victim, soonest, found = key, it.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
	}
}
