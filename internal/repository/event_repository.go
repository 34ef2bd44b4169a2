package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EventRepository appends serialized notification events to a Redis list
// consumed by the delivery workers.
type EventRepository struct {
	client *redis.Client
	key    string
}

// NewEventRepository constructs the outbox repository.
func NewEventRepository(client *redis.Client, key string) *EventRepository {
	return &EventRepository{client: client, key: key}
}

// Append pushes one payload to the tail of the outbox list.
func (r *EventRepository) Append(ctx context.Context, payload []byte) error {
	if r.client == nil {
		return fmt.Errorf("event outbox not configured")
	}
	if err := r.client.RPush(ctx, r.key, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", r.key, err)
	}
	return nil
}

// Len reports the outbox backlog.
func (r *EventRepository) Len(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, nil
	}
	n, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", r.key, err)
	}
	return n, nil
}
