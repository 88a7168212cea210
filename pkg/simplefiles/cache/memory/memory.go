package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is an in-memory implementation of the simplefiles.Cache interface.
// Expired entries are dropped lazily on access.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// New creates a new in-memory cache
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates an in-memory cache reading time from now
func NewWithClock(now func() time.Time) *Cache {
	c := New()
	c.now = now
	return c
}

// Get returns the value stored under key
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", simplefiles.ErrCacheMiss
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return "", simplefiles.ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value under key for ttl
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

// Delete removes key
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	return nil
}

// Ping always succeeds
func (c *Cache) Ping(ctx context.Context) error {
	return nil
}

// Close drops all entries
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	return nil
}
