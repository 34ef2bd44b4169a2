package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

// QuestionPoolCache keeps the active question refs per specialization in
// Redis. Pools are keyed by a generation number; Flush bumps the generation
// so every stored pool goes stale at once and ages out through its TTL.
type QuestionPoolCache struct {
	client    *redis.Client
	namespace string
}

// NewQuestionPoolCache returns a pool cache. A nil client makes every lookup a miss.
func NewQuestionPoolCache(client *redis.Client, namespace string) *QuestionPoolCache {
	return &QuestionPoolCache{client: client, namespace: namespace}
}

func (c *QuestionPoolCache) generationKey() string {
	return c.namespace + ":pool-generation"
}

func poolKey(namespace string, generation int64, specialization string) string {
	return namespace + ":pool:" + strconv.FormatInt(generation, 10) + ":" + specialization
}

func (c *QuestionPoolCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pool generation: %w", err)
	}
	return gen, nil
}

// LoadPool returns the cached pool for specialization or appErrors.ErrCacheMiss.
func (c *QuestionPoolCache) LoadPool(ctx context.Context, specialization string) ([]models.QuestionRef, error) {
	if c.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := c.client.Get(ctx, poolKey(c.namespace, gen, specialization)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, appErrors.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read pool %s: %w", specialization, err)
	}
	var refs []models.QuestionRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", specialization, err)
	}
	return refs, nil
}

// StorePool writes the pool under the current generation.
func (c *QuestionPoolCache) StorePool(ctx context.Context, specialization string, refs []models.QuestionRef, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("encode pool %s: %w", specialization, err)
	}
	if err := c.client.Set(ctx, poolKey(c.namespace, gen, specialization), payload, ttl).Err(); err != nil {
		return fmt.Errorf("write pool %s: %w", specialization, err)
	}
	return nil
}

// Flush retires every stored pool by moving to a new generation.
func (c *QuestionPoolCache) Flush(ctx context.Context) (int64, error) {
	if c.client == nil {
		return 0, nil
	}
	gen, err := c.client.Incr(ctx, c.generationKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("bump pool generation: %w", err)
	}
	return gen, nil
}
