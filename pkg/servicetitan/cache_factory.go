package servicetitan

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeRedis represents a Redis cache.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// CacheConfig configures cache backend.
type CacheConfig struct {
	// Type is the cache backend type
	Type CacheType `mapstructure:"type"`

	// MaxSize bounds the memory backend
	MaxSize int `mapstructure:"max_size"`

	NATS  *NATSKVConfig     `mapstructure:"-"`
	Redis *RedisCacheConfig `mapstructure:"-"`
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Type:    CacheTypeMemory,
		MaxSize: constants.DefaultCacheSize,
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	switch config.Type {
	case CacheTypeMemory, "":
		return NewMemoryCache(config.MaxSize), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		return NewRedisCache(ctx, config.Redis)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(context.Context, string) (*CacheEntry, error) {
	return nil, ErrCacheMiss
}

// Set does nothing.
func (c *NoOpCache) Set(context.Context, string, *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(context.Context, string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(context.Context, string) bool {
	return false
}

// CacheChain implements a chain of cache backends (L1, L2, etc.)
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get returns the first hit and back-fills the faster layers.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err != nil {
			continue
		}

		for j := range i {
			_ = c.caches[j].Set(ctx, key, entry)
		}

		return entry, nil
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all caches.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return c.each(func(cache Cache) error { return cache.Set(ctx, key, entry) })
}

// Delete removes an item from all caches.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	return c.each(func(cache Cache) error { return cache.Delete(ctx, key) })
}

// Clear removes all items from all caches.
func (c *CacheChain) Clear(ctx context.Context) error {
	return c.each(func(cache Cache) error { return cache.Clear(ctx) })
}

// Has checks if a key exists in any cache.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}

func (c *CacheChain) each(op func(Cache) error) error {
	var lastErr error

	for _, cache := range c.caches {
		err := op(cache)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// NewCacheEntry wraps data with an expiry ttl from now. A non-positive ttl never expires.
func NewCacheEntry(data []byte, ttl time.Duration) *CacheEntry {
	entry := &CacheEntry{Data: data}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	return entry
}
