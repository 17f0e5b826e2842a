package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// eventSlotKey holds the single pending gallery change event.
const eventSlotKey = "gallery:event:latest"

// SetEvent overwrites the event slot with payload, expiring after ttl.
func (c *Cache) SetEvent(ctx context.Context, payload []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, eventSlotKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set event: %w", err)
	}
	return nil
}

// TakeEvent atomically reads and clears the event slot.
// Returns nil, nil when the slot is empty or expired.
func (c *Cache) TakeEvent(ctx context.Context) ([]byte, error) {
	payload, err := c.client.GetDel(ctx, eventSlotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to take event: %w", err)
	}
	return payload, nil
}
