// Package cache keeps catalog reads in Redis as JSON.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ongon.org/internal/config"
	"ongon.org/internal/welfare"
)

const keyPrefix = "ongon:"

// Catalog is a JSON cache over a Redis client.
type Catalog struct {
	client *redis.Client
	ttl    time.Duration
}

var _ welfare.CatalogCache = (*Catalog)(nil)

// Connect dials Redis and checks the connection.
func Connect(ctx context.Context, cfg config.Redis) (*Catalog, error) {
	const op = "cache.Connect"
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(client, cfg.TTL), nil
}

// New wraps an existing client. A non-positive ttl keeps entries until
// they are invalidated.
func New(client *redis.Client, ttl time.Duration) *Catalog {
	if ttl < 0 {
		ttl = 0
	}
	return &Catalog{client: client, ttl: ttl}
}

// Get decodes the value at key into dst and reports whether it was present.
func (c *Catalog) Get(ctx context.Context, key string, dst any) (bool, error) {
	const op = "cache.Get"
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func (c *Catalog) Set(ctx context.Context, key string, value any) error {
	const op = "cache.Set"
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Catalog) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = keyPrefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	return nil
}

// Ping reports whether Redis is reachable.
func (c *Catalog) Ping(ctx context.Context) error { return c.client.Ping(ctx).Err() }

func (c *Catalog) Close() error { return c.client.Close() }
