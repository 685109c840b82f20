package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	lredis "github.com/linemk/marketplace/internal/lib/redis"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *rd.Client) {
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestLocker_SecondAttemptSkipped(t *testing.T) {
	_, rdb := newClient(t)
	locker := lredis.NewLocker(rdb)
	ctx := context.Background()
	key := lredis.ShipmentBookingKey(42)

	unlock, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	require.NoError(t, unlock(ctx))

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released")
}

func TestLocker_UnlockDoesNotRemoveForeignLock(t *testing.T) {
	mr, rdb := newClient(t)
	locker := lredis.NewLocker(rdb)
	ctx := context.Background()
	key := lredis.ShipmentBookingKey(7)

	unlock, ok, err := locker.TryLock(ctx, key, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// блокировка истекла и её занял другой процесс
	mr.FastForward(2 * time.Second)
	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists(key))
}

func TestRateLimiter_Allow(t *testing.T) {
	_, rdb := newClient(t)
	limiter := lredis.NewRateLimiter(rdb)
	ctx := context.Background()
	key := lredis.RateLimitKey("buy-now", "user:1")

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, lredis.RateLimitKey("buy-now", "user:2"), 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "limits are per subject")
}
