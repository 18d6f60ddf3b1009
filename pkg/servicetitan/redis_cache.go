package servicetitan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "servicetitan:"

// RedisCacheConfig configures a Redis-backed cache. Client takes precedence
// over Addr.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	Client   *redis.Client
}

// RedisCache stores entries as JSON strings under a key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisCache connects (or adopts config.Client) and pings the server.
func NewRedisCache(ctx context.Context, config *RedisCacheConfig) (*RedisCache, error) {
	if config == nil || (config.Client == nil && config.Addr == "") {
		return nil, ErrRedisConfigRequired
	}

	cache := &RedisCache{client: config.Client, prefix: config.Prefix}
	if cache.prefix == "" {
		cache.prefix = defaultRedisPrefix
	}

	if cache.client == nil {
		cache.client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
		cache.owned = true
	}

	err := cache.client.Ping(ctx).Err()
	if err != nil {
		if cache.owned {
			_ = cache.client.Close()
		}

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return cache, nil
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get returns the entry for key or ErrCacheMiss.
func (c *RedisCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired(time.Now()) {
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Set stores entry with a TTL matching ExpiresAt.
func (c *RedisCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	ttl, live := entry.ttl(time.Now())
	if !live {
		return c.Delete(ctx, key)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	err = c.client.Set(ctx, c.key(key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.key(key)).Err()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()

	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	err := iter.Err()
	if err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	err = c.client.Del(ctx, keys...).Err()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Has reports whether key exists.
func (c *RedisCache) Has(ctx context.Context, key string) bool {
	n, err := c.client.Exists(ctx, c.key(key)).Result()

	return err == nil && n > 0
}

// Close closes the client if this cache created it.
func (c *RedisCache) Close() error {
	if !c.owned {
		return nil
	}

	return c.client.Close()
}
