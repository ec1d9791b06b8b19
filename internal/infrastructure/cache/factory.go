package cache

import (
	"context"
	"fmt"

	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// GenerationLockFactory creates generation locks based on configuration
type GenerationLockFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// GenerationLockFactoryOption is a functional option for configuring the factory
type GenerationLockFactoryOption func(*GenerationLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) GenerationLockFactoryOption {
	return func(f *GenerationLockFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-process lock when Redis is unavailable.
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) GenerationLockFactoryOption {
	return func(f *GenerationLockFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewGenerationLockFactory creates a new factory
func NewGenerationLockFactory(cfg config.RedisConfig, opts ...GenerationLockFactoryOption) *GenerationLockFactory {
	f := &GenerationLockFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateLock returns a Redis-backed lock when Redis is enabled and reachable,
// the in-process lock otherwise. The returned client is nil for the
// in-process lock and must be closed by the caller when set.
func (f *GenerationLockFactory) CreateLock(ctx context.Context) (royalty.GenerationLock, *redis.Client, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-process generation lock")
		return NewInMemoryGenerationLock(), nil, nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("Using Redis generation lock", zap.String("addr", f.redisConfig.Addr))
		return NewRedisGenerationLock(client, f.redisConfig.LockTTL, f.logger), client, nil
	}

	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("Redis required for generation lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-process generation lock. "+
		"Concurrent instances may race to the unique index.",
		zap.Error(err),
	)
	return NewInMemoryGenerationLock(), nil, nil
}
