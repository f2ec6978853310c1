package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formbridge/formbridge/internal/common"
)

// RedisCache implements Cache on a Redis instance.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

type RedisConfig struct {
	Addr string
	DB   int
}

func NewRedisCache(cfg RedisConfig, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr: cfg.Addr,
			DB:   cfg.DB,
		}),
		logger: logger,
	}
}

func (c *RedisCache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error("cache.set.failed", "key", key, "error", err)
		return common.WrapError(err, "set cache")
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		c.logger.Error("cache.get.failed", "key", key, "error", err)
		return "", false, common.WrapError(err, "get cache")
	}
	return v, true, nil
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		c.logger.Error("cache.exists.failed", "key", key, "error", err)
		return false, common.WrapError(err, "check cache")
	}
	return n > 0, nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
