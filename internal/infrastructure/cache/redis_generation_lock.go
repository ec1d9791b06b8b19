package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foodtruck/backend/internal/domain/franchise"
	"github.com/foodtruck/backend/internal/domain/royalty"
	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultLockPrefix    = "royalty:generation:"
	defaultLockTTL       = 30 * time.Second
	defaultRetryInterval = 50 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// releaseScript deletes the lock only if it still carries our token, so a
// holder whose TTL expired cannot drop a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGenerationLock implements royalty.GenerationLock with SET NX PX.
// It serializes report generation across every instance sharing the Redis.
type RedisGenerationLock struct {
	client        redis.Cmdable
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisGenerationLock creates a lock on an existing client. A zero ttl
// falls back to 30s.
func NewRedisGenerationLock(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *RedisGenerationLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGenerationLock{
		client:        client,
		keyPrefix:     defaultLockPrefix,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// Acquire polls SET NX until the lock is taken or ctx ends. A ctx that ends
// while another holder keeps the lock yields a retryable conflict.
func (l *RedisGenerationLock) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, lockTimeoutError(key)
			}
			l.logger.Warn("Lock store unreachable", zap.String("key", redisKey), zap.Error(err))
			return nil, fmt.Errorf("failed to acquire lock: %w: %w", lockUnavailableError(key), err)
		}
		if ok {
			return l.releaseFunc(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, lockTimeoutError(key)
		case <-ticker.C:
		}
	}
}

func (l *RedisGenerationLock) releaseFunc(redisKey, token string) func() {
	return func() {
		// the caller's context may already be done
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release generation lock",
				zap.String("key", redisKey),
				zap.Error(err))
		}
	}
}

func lockUnavailableError(key string) *shared.DomainError {
	return shared.NewUnavailableError(shared.CodeLockUnavailable, "Lock store is unavailable").
		WithDetail("key", key)
}

func lockTimeoutError(key string) error {
	return shared.NewConflictError("Another request holds this lock").
		WithDetail("key", key)
}

// RedisGenerationLock also guards agreement writes
var (
	_ royalty.GenerationLock = (*RedisGenerationLock)(nil)
	_ franchise.WriteLock    = (*RedisGenerationLock)(nil)
	_ franchise.WriteLock    = (*InMemoryGenerationLock)(nil)
)
