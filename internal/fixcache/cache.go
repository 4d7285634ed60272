// Package fixcache mirrors the latest fix into Redis for other processes.
package fixcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"nmeafix/internal/gps"
)

// ErrMiss is returned by Latest when no fix is cached.
var ErrMiss = errors.New("fixcache: no cached fix")

type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

type Cache struct {
	client kv
	key    string
	ttl    time.Duration
}

// Open connects to the Redis server at url, e.g. redis://localhost:6379/0.
func Open(ctx context.Context, url, key string, ttl time.Duration) (*Cache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping addr=%s: %w", opt.Addr, err)
	}
	log.Printf("redis cache connected addr=%s key=%s", opt.Addr, key)
	return newCache(client, key, ttl), nil
}

func newCache(client kv, key string, ttl time.Duration) *Cache {
	return &Cache{client: client, key: key, ttl: ttl}
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Put stores fix under the cache key. The entry expires after the TTL so a
// dead receiver does not leave a stale position behind.
func (c *Cache) Put(ctx context.Context, fix gps.Fix) error {
	data, err := json.Marshal(fix)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *Cache) Latest(ctx context.Context) (gps.Fix, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return gps.Fix{}, ErrMiss
	}
	if err != nil {
		return gps.Fix{}, err
	}
	var fix gps.Fix
	if err := json.Unmarshal(data, &fix); err != nil {
		return gps.Fix{}, fmt.Errorf("decode cached fix: %w", err)
	}
	return fix, nil
}

// Run refreshes the cached fix every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration, current func() gps.Fix) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		fix := current()
		if fix.Time == "" {
			continue
		}
		if err := c.Put(ctx, fix); err != nil && ctx.Err() == nil {
			log.Printf("fixcache put failed: %v", err)
		}
	}
}
