package servicetitan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/nats-io/nats.go"
)

// NATSKVConfig configures a JetStream key-value cache. Conn takes precedence
// over URL.
type NATSKVConfig struct {
	URL    string
	Bucket string
	TTL    time.Duration
	Conn   *nats.Conn
}

// NATSKVCache shares cached responses between processes through a JetStream
// KV bucket. Keys are hashed because KV keys allow a restricted alphabet.
type NATSKVCache struct {
	kv    nats.KeyValue
	conn  *nats.Conn
	owned bool
}

// NewNATSKVCache binds to the bucket, creating it when it does not exist.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil || (config.Conn == nil && config.URL == "") {
		return nil, ErrNATSConfigRequired
	}

	cache := &NATSKVCache{conn: config.Conn}

	if cache.conn == nil {
		conn, err := nats.Connect(config.URL, nats.Name("servicetitan-client"))
		if err != nil {
			return nil, fmt.Errorf("connecting to nats: %w", err)
		}

		cache.conn = conn
		cache.owned = true
	}

	js, err := cache.conn.JetStream()
	if err != nil {
		cache.closeOwned()

		return nil, fmt.Errorf("opening jetstream: %w", err)
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultCacheBucket
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      bucket,
			Description: "ServiceTitan response cache",
			TTL:         config.TTL,
		})
	}

	if err != nil {
		cache.closeOwned()

		return nil, fmt.Errorf("binding kv bucket %s: %w", bucket, err)
	}

	cache.kv = kv

	return cache, nil
}

func natsKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// Get returns the entry for key or ErrCacheMiss.
func (c *NATSKVCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	value, err := c.kv.Get(natsKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(value.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired(time.Now()) {
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Set stores entry. Expiry is checked on read; the bucket TTL bounds storage.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	if _, live := entry.ttl(time.Now()); !live {
		return c.Delete(ctx, key)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = c.kv.Put(natsKey(key), data)
	if err != nil {
		return fmt.Errorf("kv put: %w", err)
	}

	return nil
}

// Delete removes key.
func (c *NATSKVCache) Delete(_ context.Context, key string) error {
	err := c.kv.Delete(natsKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("kv delete: %w", err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (c *NATSKVCache) Clear(_ context.Context) error {
	keys, err := c.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("kv keys: %w", err)
	}

	for _, key := range keys {
		err = c.kv.Purge(key)
		if err != nil {
			return fmt.Errorf("kv purge: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists for key.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close drains the connection if this cache opened it.
func (c *NATSKVCache) Close() error {
	if !c.owned {
		return nil
	}

	return c.conn.Drain()
}

func (c *NATSKVCache) closeOwned() {
	if c.owned {
		c.conn.Close()
	}
}
