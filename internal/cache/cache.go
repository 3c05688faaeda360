// Package cache is an optional redis read-through for exact event-key
// lookups. A nil *EventCache is a no-op, so callers never branch on whether
// caching is enabled.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "event:"

type EventCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func New(addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*EventCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &EventCache{client: client, ttl: ttl, logger: logger}, nil
}

// Get returns the cached document for an event key, or nil on miss. Cache
// errors degrade to misses.
func (c *EventCache) Get(ctx context.Context, eventKey string) []byte {
	if c == nil || c.client == nil || eventKey == "" {
		return nil
	}
	raw, err := c.client.Get(ctx, keyPrefix+eventKey).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("cache get failed", zap.String("event_key", eventKey), zap.Error(err))
		}
		return nil
	}
	return raw
}

// Set stores a document under an event key with the configured TTL.
func (c *EventCache) Set(ctx context.Context, eventKey string, doc any) {
	if c == nil || c.client == nil || eventKey == "" {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+eventKey, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("cache set failed", zap.String("event_key", eventKey), zap.Error(err))
	}
}

// Invalidate drops a cached document; appends call this so a re-emitted key
// never serves a stale summary.
func (c *EventCache) Invalidate(ctx context.Context, eventKey string) {
	if c == nil || c.client == nil || eventKey == "" {
		return
	}
	if err := c.client.Del(ctx, keyPrefix+eventKey).Err(); err != nil && c.logger != nil {
		c.logger.Warn("cache invalidate failed", zap.String("event_key", eventKey), zap.Error(err))
	}
}

func (c *EventCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
