// Package bootstrap wires configuration, storage and cache into a runnable runtime.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"warbler/internal/cache"
	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema leaves the schema untouched (cmd/migrate manages it itself).
	SkipSchema bool
}

// Runtime holds the long-lived connections shared by the server and tools.
type Runtime struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
}

// InitRuntime connects to postgres, applies the schema policy and connects Redis.
// Redis is optional outside production: when unreachable the cache, rate limits
// and token revocation are disabled.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if !opts.SkipSchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	rdb, err := cache.InitRedis(ctx, cfg.RedisURL)
	if err != nil {
		if cfg.IsProduction() {
			_ = database.Close(db)
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		middleware.Logger.Warn("Redis unavailable, continuing without cache",
			slog.String("addr", cfg.RedisURL), slog.String("error", err.Error()))
	}

	return &Runtime{Config: cfg, DB: db, Redis: rdb}, nil
}

// Close releases the database pool and Redis client.
func (r *Runtime) Close() error {
	var firstErr error
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			firstErr = err
		}
		cache.SetClient(nil)
	}
	if err := database.Close(r.DB); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
