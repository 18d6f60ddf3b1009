package servicetitan

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	gocache "github.com/patrickmn/go-cache"
)

// Cache stores slow-changing API responses such as report metadata,
// report categories and dynamic value sets. Access tokens never go here.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is a cached response body.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expiresAt"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry. A zero ExpiresAt never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// ttl converts ExpiresAt into a duration for backends that take one.
// ok is false when the entry is already expired.
func (e *CacheEntry) ttl(now time.Time) (time.Duration, bool) {
	if e.ExpiresAt.IsZero() {
		return 0, true
	}

	remaining := e.ExpiresAt.Sub(now)

	return remaining, remaining > 0
}

// MemoryCache is an in-process Cache backed by go-cache.
type MemoryCache struct {
	mu      sync.Mutex
	items   *gocache.Cache
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// A non-positive maxSize means unbounded.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{
		items:   gocache.New(gocache.NoExpiration, constants.DefaultCacheCleanupInterval),
		maxSize: maxSize,
	}
}

// Get returns a live entry or ErrCacheMiss.
func (c *MemoryCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	value, found := c.items.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}

	entry, ok := value.(*CacheEntry)
	if !ok || entry.Expired(time.Now()) {
		c.items.Delete(key)

		return nil, ErrCacheMiss
	}

	return entry, nil
}

// Set stores entry until its ExpiresAt. An already expired entry removes key.
func (c *MemoryCache) Set(_ context.Context, key string, entry *CacheEntry) error {
	ttl, live := entry.ttl(time.Now())
	if !live {
		c.items.Delete(key)

		return nil
	}

	if ttl == 0 {
		ttl = gocache.NoExpiration
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && c.items.ItemCount() >= c.maxSize {
		c.evict(key)
	}

	c.items.Set(key, entry, ttl)

	return nil
}

// evict frees one slot, preferring expired items.
func (c *MemoryCache) evict(incoming string) {
	c.items.DeleteExpired()

	if c.items.ItemCount() < c.maxSize {
		return
	}

	var (
		victim   string
		earliest time.Time
	)

	for key, item := range c.items.Items() {
		if key == incoming {
			return
		}

		entry, ok := item.Object.(*CacheEntry)
		if !ok {
			victim = key

			break
		}

		if victim == "" || (!entry.ExpiresAt.IsZero() && entry.ExpiresAt.Before(earliest)) {
			victim = key
			earliest = entry.ExpiresAt
		}
	}

	if victim != "" {
		c.items.Delete(victim)
	}
}

// Delete removes key.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.items.Delete(key)

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.items.Flush()

	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, including any not yet swept.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
