package memstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	expireAt time.Time // zero => no TTL
}

// Cache is an in-memory ports.Cache. It backs cache-less deployments
// and tests; expiry is judged lazily on read, so there is no janitor
// goroutine to manage.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	nowFn func() time.Time
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry), nowFn: time.Now}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expireAt.IsZero() && !c.nowFn().Before(e.expireAt) {
		c.evict(key, e.expireAt)
		return nil, false, nil
	}
	return e.value, true, nil
}

// evict drops key only if it still holds the entry observed with
// expireAt; a Set racing between the lock acquisitions must win.
func (c *Cache) evict(key string, expireAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur.expireAt.Equal(expireAt) {
		delete(c.entries, key)
	}
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expireAt = c.nowFn().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of retained entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
