package fines

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps recently computed member balances in Redis for display
// surfaces. It is best-effort only: the persisted balances and the record
// history stay authoritative.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func balanceKey(memberID string) string {
	return fmt.Sprintf("fines:balance:%s", memberID)
}

// Get returns the cached balance and whether it was present.
func (c *Cache) Get(ctx context.Context, memberID string) (float64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	raw, err := c.client.Get(ctx, balanceKey(memberID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, nil
	}
	return value, true, nil
}

// Set stores a balance with the configured TTL.
func (c *Cache) Set(ctx context.Context, memberID string, outstanding float64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, balanceKey(memberID), strconv.FormatFloat(outstanding, 'f', -1, 64), c.ttl).Err()
}

// Invalidate drops a member's cached balance.
func (c *Cache) Invalidate(ctx context.Context, memberID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, balanceKey(memberID)).Err()
}
