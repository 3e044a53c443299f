package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewCache(NewClientWithRedis(rdb)), mr
}

func TestCacheGetOrLoadMissThenHit(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func() (interface{}, error) {
		loads++
		return map[string]string{"content": "Final whitepaper body."}, nil
	}

	key := VersionKey("artifact-1", 3)

	first, err := cache.GetOrLoad(ctx, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Contains(t, string(first), "Final whitepaper body.")
	assert.Equal(t, 1, loads)

	// 第二次命中缓存，不再触发加载
	second, err := cache.GetOrLoad(ctx, key, time.Minute, loader)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, loads)
}

func TestCacheGetOrLoadLoaderError(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("ledger unavailable")
	_, err := cache.GetOrLoad(ctx, VersionKey("artifact-1", 1), time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// 失败不会写入缓存
	_, err = cache.Get(ctx, VersionKey("artifact-1", 1))
	assert.True(t, IsNil(err))
}

func TestCacheSetAndGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k1", "v1", time.Minute))

	val, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, `"v1"`, string(val))
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	cache, _ := newTestCache(t)
	limiter := NewRateLimiter(cache.client)
	ctx := context.Background()

	key := BuildClientRateLimitKey("client-1", "edits")

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key, 3, time.Second)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := limiter.Remaining(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	require.NoError(t, limiter.Reset(ctx, key))
	allowed, err = limiter.Allow(ctx, key, 3, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
}
