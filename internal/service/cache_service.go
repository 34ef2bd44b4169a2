package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

type poolStore interface {
	LoadPool(ctx context.Context, specialization string) ([]models.QuestionRef, error)
	StorePool(ctx context.Context, specialization string, refs []models.QuestionRef, ttl time.Duration) error
	Flush(ctx context.Context) (int64, error)
}

// PoolCache fronts the question bank with a per-specialization pool cache.
// Redis trouble never fails a selection: errors are logged and read as misses.
type PoolCache struct {
	store   poolStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewPoolCache constructs a pool cache. A nil store disables caching.
func NewPoolCache(store poolStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *PoolCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

func (c *PoolCache) enabled() bool {
	return c != nil && c.store != nil
}

// Lookup returns the cached pool for specialization.
func (c *PoolCache) Lookup(ctx context.Context, specialization string) ([]models.QuestionRef, bool) {
	if !c.enabled() {
		return nil, false
	}
	start := time.Now()
	refs, err := c.store.LoadPool(ctx, specialization)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("question pool lookup failed", zap.String("specialization", specialization), zap.Error(err))
		}
		return nil, false
	}
	return refs, true
}

// Remember stores a freshly loaded pool.
func (c *PoolCache) Remember(ctx context.Context, specialization string, refs []models.QuestionRef) {
	if !c.enabled() {
		return
	}
	if err := c.store.StorePool(ctx, specialization, refs, c.ttl); err != nil {
		c.logger.Warn("question pool store failed", zap.String("specialization", specialization), zap.Error(err))
	}
}

// Flush drops every cached pool so the next selection reads the bank.
func (c *PoolCache) Flush(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	gen, err := c.store.Flush(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("question pools flushed", zap.Int64("generation", gen))
	return nil
}
