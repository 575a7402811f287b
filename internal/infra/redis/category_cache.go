package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcq-practice-service/internal/domain"
)

const categoriesCacheKey = "cache:categories"

// CategoryCache keeps the category listing in Redis so every instance shares
// one copy. Cache errors never fail a read; the loader is used instead.
type CategoryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	sf     singleflight.Group
}

func NewCategoryCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *CategoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryCache{client: client, ttl: ttl, logger: logger}
}

func (c *CategoryCache) Categories(ctx context.Context, load func(context.Context) ([]domain.Category, error)) ([]domain.Category, error) {
	if cats, ok := c.cached(ctx); ok {
		return cats, nil
	}

	result, err, _ := c.sf.Do(categoriesCacheKey, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if cats, ok := c.cached(ctx); ok {
			return cats, nil
		}
		cats, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ttl := c.ttlWithJitter(); ttl > 0 {
			if raw, err := json.Marshal(cats); err == nil {
				if err := c.client.Set(ctx, categoriesCacheKey, raw, ttl).Err(); err != nil {
					c.logger.Warn("cache categories", zap.Error(err))
				}
			}
		}
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func (c *CategoryCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(context.WithoutCancel(ctx), categoriesCacheKey).Err(); err != nil {
		c.logger.Warn("invalidate categories cache", zap.Error(err))
	}
}

func (c *CategoryCache) cached(ctx context.Context) ([]domain.Category, bool) {
	raw, err := c.client.Get(ctx, categoriesCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var cats []domain.Category
	if err := json.Unmarshal(raw, &cats); err != nil {
		return nil, false
	}
	return cats, true
}

func (c *CategoryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
