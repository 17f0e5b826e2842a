package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/photobooth/gallery/internal/model"
)

// SlotStore is the shared-cache primitive behind RedisNotifier.
// *cache.Cache implements it with SET EX and GETDEL.
type SlotStore interface {
	SetEvent(ctx context.Context, payload []byte, ttl time.Duration) error
	TakeEvent(ctx context.Context) ([]byte, error)
}

// RedisNotifier shares the event slot across every API instance.
type RedisNotifier struct {
	store SlotStore
	ttl   time.Duration
}

// NewRedisNotifier creates a notifier whose events expire after ttl.
func NewRedisNotifier(store SlotStore, ttl time.Duration) *RedisNotifier {
	return &RedisNotifier{store: store, ttl: ttl}
}

// Publish serializes the event into the slot.
func (n *RedisNotifier) Publish(ctx context.Context, event model.ChangeEvent) error {
	if err := validate(event); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.store.SetEvent(ctx, payload, n.ttl); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Consume takes the pending event, if any.
func (n *RedisNotifier) Consume(ctx context.Context) (*model.ChangeEvent, error) {
	payload, err := n.store.TakeEvent(ctx)
	if err != nil {
		return nil, fmt.Errorf("consume event: %w", err)
	}
	if payload == nil {
		return nil, nil
	}

	var event model.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &event, nil
}
