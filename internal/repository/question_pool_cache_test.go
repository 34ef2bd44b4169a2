package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentor-assessment-api/internal/models"
	appErrors "github.com/noah-isme/mentor-assessment-api/pkg/errors"
)

func TestQuestionPoolCacheWithoutRedis(t *testing.T) {
	cache := NewQuestionPoolCache(nil, "mentor-assessment")

	_, err := cache.LoadPool(context.Background(), "DevOps")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, cache.StorePool(context.Background(), "DevOps", []models.QuestionRef{{ID: 1}}, time.Minute))
	gen, err := cache.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, gen)
}

func TestPoolKeyIncludesGeneration(t *testing.T) {
	assert.Equal(t, "mentor-assessment:pool:0:DevOps", poolKey("mentor-assessment", 0, "DevOps"))
	assert.NotEqual(t, poolKey("ns", 1, "DevOps"), poolKey("ns", 2, "DevOps"))
}
