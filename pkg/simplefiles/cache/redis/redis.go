package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

// Cache is a Redis implementation of the simplefiles.Cache interface
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

// Config options for the Redis cache
type Config struct {
	URL       string // redis://[user:pass@]host:port/db
	KeyPrefix string // Optional prefix prepended to every key
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, config Config) (*Cache, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewWithClient(client, config.KeyPrefix), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *redis.Client, keyPrefix string) *Cache {
	return &Cache{client: client, keyPrefix: keyPrefix}
}

func (c *Cache) key(k string) string {
	if c.keyPrefix != "" {
		return c.keyPrefix + ":" + k
	}
	return k
}

// Get returns the value stored under key
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", simplefiles.ErrCacheMiss
		}
		return "", simplefiles.Unavailable("redis get", err)
	}
	return value, nil
}

// Set stores value under key for ttl
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		return simplefiles.Unavailable("redis set", err)
	}
	return nil
}

// Delete removes key
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return simplefiles.Unavailable("redis del", err)
	}
	return nil
}

// Ping verifies the connection
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return simplefiles.Unavailable("redis ping", err)
	}
	return nil
}

// Close closes the underlying client
func (c *Cache) Close() error {
	return c.client.Close()
}
