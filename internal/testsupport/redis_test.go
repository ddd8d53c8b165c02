package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcrew/internal/adapters/redis"
)

func TestRedisCacheAndLock(t *testing.T) {
	client := NewRedisClient(t, LoadDatabaseConfigsFromEnv(t).Redis)
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	assert.ErrorIs(t, err, redis.ErrCacheMiss)

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	lock, ok, err := client.AcquireLock(ctx, "pipeline", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = client.AcquireLock(ctx, "pipeline", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	require.NoError(t, lock.Refresh(ctx, time.Minute))
	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Refresh(ctx, time.Minute), redis.ErrLockLost)

	lock, ok, err = client.AcquireLock(ctx, "pipeline", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(ctx))
}
