package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mcq-practice-service/internal/domain"
)

const categoriesKey = "categories"

// CategoryCache keeps the category list in process with a TTL so the home and
// quiz screens do not re-read the whole collection on every request.
type CategoryCache struct {
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group

	mu        sync.RWMutex
	cached    []domain.Category
	expiresAt time.Time
}

func NewCategoryCache(ttl time.Duration) *CategoryCache {
	return &CategoryCache{ttl: ttl, clock: time.Now}
}

func (c *CategoryCache) Categories(ctx context.Context, load func(context.Context) ([]domain.Category, error)) ([]domain.Category, error) {
	if cats, ok := c.fresh(); ok {
		return cats, nil
	}

	result, err, _ := c.sf.Do(categoriesKey, func() (interface{}, error) {
		if cats, ok := c.fresh(); ok {
			return cats, nil
		}
		cats, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cached = cats
		c.expiresAt = c.clock().Add(c.ttlWithJitter())
		c.mu.Unlock()
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCategories(result.([]domain.Category)), nil
}

func (c *CategoryCache) Invalidate(context.Context) {
	c.mu.Lock()
	c.cached = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *CategoryCache) fresh() ([]domain.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || !c.expiresAt.After(c.clock()) {
		return nil, false
	}
	return cloneCategories(c.cached), true
}

func (c *CategoryCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

func cloneCategories(in []domain.Category) []domain.Category {
	out := make([]domain.Category, len(in))
	for i, cat := range in {
		cat.Subcategories = append([]domain.Subcategory(nil), cat.Subcategories...)
		out[i] = cat
	}
	return out
}
