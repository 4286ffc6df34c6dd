// Package cache keeps a bounded per-room window of the newest messages in
// Redis so hot rooms can serve history without touching the message log.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCapacity = 100
	DefaultTTL      = time.Hour
)

// MessageCache stores each room's recent messages as a Redis list, oldest
// entry at the head. The list never grows past capacity and expires after
// ttl of inactivity.
type MessageCache struct {
	client   *redis.Client
	capacity int
	ttl      time.Duration
}

func NewMessageCache(client *redis.Client, capacity int, ttl time.Duration) *MessageCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MessageCache{
		client:   client,
		capacity: capacity,
		ttl:      ttl,
	}
}

func (c *MessageCache) key(roomID string) string {
	return "room:" + roomID + ":recent"
}

// Capacity returns the configured window size.
func (c *MessageCache) Capacity() int {
	return c.capacity
}

// FetchRecent returns up to limit of the newest cached messages for the
// room, oldest first. The result may be shorter than limit or empty.
func (c *MessageCache) FetchRecent(ctx context.Context, roomID string, limit int) ([]string, error) {
	entries, err := c.client.LRange(ctx, c.key(roomID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache fetch for room %s: %w", roomID, err)
	}
	return entries, nil
}

// AppendAndTrim pushes one serialized message onto the tail, drops the
// oldest entries past capacity and refreshes the expiry.
func (c *MessageCache) AppendAndTrim(ctx context.Context, roomID, payload string) error {
	key := c.key(roomID)

	if err := c.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("cache append for room %s: %w", roomID, err)
	}

	size, err := c.client.LLen(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("cache len for room %s: %w", roomID, err)
	}
	if size > int64(c.capacity) {
		if err := c.client.LTrim(ctx, key, int64(-c.capacity), -1).Err(); err != nil {
			return fmt.Errorf("cache trim for room %s: %w", roomID, err)
		}
	}

	if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache expire for room %s: %w", roomID, err)
	}
	return nil
}

// Invalidate drops the room's cached window entirely.
func (c *MessageCache) Invalidate(ctx context.Context, roomID string) error {
	if err := c.client.Del(ctx, c.key(roomID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate for room %s: %w", roomID, err)
	}
	return nil
}

// Fill seeds the cache after a miss with messages ordered oldest first.
// Callers cap the slice at capacity before filling.
func (c *MessageCache) Fill(ctx context.Context, roomID string, payloads []string) error {
	if len(payloads) == 0 {
		return nil
	}
	key := c.key(roomID)

	args := make([]interface{}, len(payloads))
	for i, p := range payloads {
		args[i] = p
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, args...)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache fill for room %s: %w", roomID, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *MessageCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
