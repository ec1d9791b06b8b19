package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foodtruck/backend/internal/domain/shared"
	"github.com/foodtruck/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestInMemoryGenerationLock_Acquire(t *testing.T) {
	lock := NewInMemoryGenerationLock()
	ctx := context.Background()

	t.Run("second caller waits for release", func(t *testing.T) {
		release, err := lock.Acquire(ctx, "f1:2025-08")
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			r, err := lock.Acquire(ctx, "f1:2025-08")
			if err == nil {
				close(acquired)
				r()
			}
		}()

		select {
		case <-acquired:
			t.Fatal("lock acquired while held")
		case <-time.After(50 * time.Millisecond):
		}

		release()

		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("waiter never acquired the lock")
		}
	})

	t.Run("different keys do not block", func(t *testing.T) {
		r1, err := lock.Acquire(ctx, "f1:2025-08")
		require.NoError(t, err)
		defer r1()

		r2, err := lock.Acquire(ctx, "f2:2025-08")
		require.NoError(t, err)
		r2()
	})

	t.Run("context deadline yields retryable conflict", func(t *testing.T) {
		release, err := lock.Acquire(ctx, "f3:2025-08")
		require.NoError(t, err)
		defer release()

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		_, err = lock.Acquire(waitCtx, "f3:2025-08")
		require.Error(t, err)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		assert.True(t, shared.IsRetryable(err))
	})

	t.Run("release is idempotent and frees the slot", func(t *testing.T) {
		release, err := lock.Acquire(ctx, "f4:2025-08")
		require.NoError(t, err)
		release()
		release()

		r, err := lock.Acquire(ctx, "f4:2025-08")
		require.NoError(t, err)
		r()
	})
}

func TestInMemoryGenerationLock_MutualExclusion(t *testing.T) {
	lock := NewInMemoryGenerationLock()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lock.Acquire(ctx, "same")
			if err != nil {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, lock.Len())
}

func TestRedisGenerationLock_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	lock := NewRedisGenerationLock(client, time.Second, zaptest.NewLogger(t))
	_, err := lock.Acquire(context.Background(), "f1:2025-08")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to acquire lock")
	assert.ErrorIs(t, err, shared.NewUnavailableError(shared.CodeLockUnavailable, ""))
	assert.Equal(t, shared.KindInfra, shared.KindOf(err))
	assert.True(t, shared.IsRetryable(err))
}

func TestGenerationLockFactory_CreateLock(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled redis uses in-process lock", func(t *testing.T) {
		f := NewGenerationLockFactory(config.RedisConfig{Enabled: false})
		lock, client, err := f.CreateLock(ctx)
		require.NoError(t, err)
		assert.Nil(t, client)
		assert.IsType(t, &InMemoryGenerationLock{}, lock)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		f := NewGenerationLockFactory(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"},
			WithLogger(zaptest.NewLogger(t)))
		lock, client, err := f.CreateLock(ctx)
		require.NoError(t, err)
		assert.Nil(t, client)
		assert.IsType(t, &InMemoryGenerationLock{}, lock)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewGenerationLockFactory(config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"},
			WithInMemoryFallback(false))
		_, _, err := f.CreateLock(ctx)
		assert.Error(t, err)
	})
}
