package config

import (
	"context"
	"fmt"

	"coalition-api/cache"

	"github.com/go-redis/redis/v8"
)

// InitCache connects to Redis when REDIS_ADDR is set and falls back to the
// in-process cache otherwise.
func InitCache(ctx context.Context, cfg *AppConfig) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		Log.Info("REDIS_ADDR not set, using in-memory cache")
		return cache.NewMemory(), nil
	}

	c, err := cache.NewRedis(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, "coalition:")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	Log.WithField("addr", cfg.RedisAddr).Info("Redis cache connected")
	return c, nil
}
