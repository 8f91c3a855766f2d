// Package cache provides a redis-backed cache for per-room daily
// availability. The store stays the source of truth; the cache only
// absorbs read traffic on the availability endpoint and is invalidated
// on every successful write.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache caches availability responses keyed by room and
// date. A nil client disables the cache; every method becomes a no-op.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates an availability cache.
func New(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

// Enabled reports whether a backing client is configured.
func (c *AvailabilityCache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

func (c *AvailabilityCache) key(roomID int64, date string) string {
	return fmt.Sprintf("availability:room:%d:%s", roomID, date)
}

// Get loads a cached value into dest. The second return is false on a
// miss; cache errors degrade to a miss rather than failing the read.
func (c *AvailabilityCache) Get(ctx context.Context, roomID int64, date string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	data, err := c.client.Get(ctx, c.key(roomID, date)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value for the room and date.
func (c *AvailabilityCache) Set(ctx context.Context, roomID int64, date string, value any) error {
	if !c.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(roomID, date), data, c.ttl).Err()
}

// Invalidate drops cached entries for the room on the given dates.
// Called after every successful hold or cancel, including the ranges a
// sweep pass frees.
func (c *AvailabilityCache) Invalidate(ctx context.Context, roomID int64, dates ...string) error {
	if !c.Enabled() || len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = c.key(roomID, d)
	}
	return c.client.Del(ctx, keys...).Err()
}
