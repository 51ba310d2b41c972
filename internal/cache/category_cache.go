// Package cache puts a redis read-through layer in front of read-mostly
// repositories.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"moviecat/internal/domain"
	"moviecat/internal/repository"
)

const (
	DefaultTTL = 5 * time.Minute

	categoryListKey = "moviecat:categories:all"
	categoryKey     = "moviecat:categories:id:"
)

// CategoryCache decorates a CategoryRepository. Redis failures are logged
// and the call falls through to the wrapped repository.
type CategoryCache struct {
	repository.CategoryRepository

	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

var _ repository.CategoryRepository = (*CategoryCache)(nil)

func NewCategoryCache(next repository.CategoryRepository, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CategoryCache{
		CategoryRepository: next,
		rdb:                rdb,
		ttl:                ttl,
		logger:             logger,
	}
}

func (c *CategoryCache) List(ctx context.Context) ([]domain.Category, error) {
	var cached []domain.Category
	if c.load(ctx, categoryListKey, &cached) {
		return cached, nil
	}

	categories, err := c.CategoryRepository.List(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, categoryListKey, categories)
	return categories, nil
}

// Get caches hits only; a missing id always reaches the repository.
func (c *CategoryCache) Get(ctx context.Context, id string) (*domain.Category, error) {
	var cached domain.Category
	if c.load(ctx, categoryKey+id, &cached) {
		return &cached, nil
	}

	category, err := c.CategoryRepository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, categoryKey+id, category)
	return category, nil
}

// Seed writes through and drops the cached list.
func (c *CategoryCache) Seed(ctx context.Context, categories []domain.Category) error {
	if err := c.CategoryRepository.Seed(ctx, categories); err != nil {
		return err
	}

	keys := []string{categoryListKey}
	for _, cat := range categories {
		keys = append(keys, categoryKey+cat.ID)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).Warn("category cache: invalidate")
	}
	return nil
}

func (c *CategoryCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("category cache: read")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("category cache: decode")
		return false
	}
	return true
}

func (c *CategoryCache) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("category cache: write")
	}
}
