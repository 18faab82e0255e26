package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/hotfeed/internal/model"
)

func setupCache(t *testing.T, opts Options) (*FeedCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	if opts.Namespace == "" {
		opts.Namespace = "test"
	}
	return New(client, opts), mr
}

func samplePage() []model.FeedItem {
	return []model.FeedItem{
		{ID: 2, LikeCount: 5, Score: 3, CreatedAt: time.Unix(1700000100, 0).UTC()},
		{ID: 1, LikeCount: 9, Score: 1, CreatedAt: time.Unix(1700000000, 0).UTC()},
	}
}

func TestPageRoundTrip(t *testing.T) {
	c, _ := setupCache(t, Options{})
	ctx := context.Background()

	_, hit, err := c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.False(t, hit)

	want := samplePage()
	require.NoError(t, c.SetPage(ctx, 50, want))

	got, hit, err := c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, want, got)
}

func TestPageExpiresAfterTTL(t *testing.T) {
	c, mr := setupCache(t, Options{TTL: 60 * time.Second})
	ctx := context.Background()

	require.NoError(t, c.SetPage(ctx, 50, samplePage()))
	mr.FastForward(61 * time.Second)

	_, hit, err := c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestCorruptPayloadIsTreatedAsMiss(t *testing.T) {
	c, mr := setupCache(t, Options{})
	ctx := context.Background()

	require.NoError(t, mr.Set("test:feed:hot:50", "not json"))

	_, hit, err := c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.False(t, hit)
}

func TestTryLockIsMutuallyExclusive(t *testing.T) {
	c, _ := setupCache(t, Options{})
	ctx := context.Background()

	token, acquired, err := c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NotEmpty(t, token)

	// 持有期间其他请求抢不到
	_, acquired, err = c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.False(t, acquired)

	// 不同 limit 的锁互不影响
	_, acquired, err = c.TryLock(ctx, 20)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, c.Unlock(ctx, 50, token))
	_, acquired, err = c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	c, mr := setupCache(t, Options{LockTTL: 5 * time.Second})
	ctx := context.Background()

	_, acquired, err := c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)

	// 持有方崩溃：TTL 过后锁自解
	mr.FastForward(6 * time.Second)

	_, acquired, err = c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestUnlockIgnoresStaleToken(t *testing.T) {
	c, mr := setupCache(t, Options{LockTTL: 5 * time.Second})
	ctx := context.Background()

	stale, acquired, err := c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)

	// 第一任持有方超时，锁被后来者接手
	mr.FastForward(6 * time.Second)
	token, acquired, err := c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)

	// 迟到的释放不得删掉继任者的锁
	require.NoError(t, c.Unlock(ctx, 50, stale))
	_, acquired, err = c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.False(t, acquired)

	require.NoError(t, c.Unlock(ctx, 50, token))
	_, acquired, err = c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestLockKeySpaceDistinctFromPageKeys(t *testing.T) {
	c, _ := setupCache(t, Options{})
	ctx := context.Background()

	_, acquired, err := c.TryLock(ctx, 50)
	require.NoError(t, err)
	require.True(t, acquired)

	// 锁存在不影响缓存页读写
	_, hit, err := c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.False(t, hit)

	require.NoError(t, c.SetPage(ctx, 50, samplePage()))
	_, hit, err = c.GetPage(ctx, 50)
	require.NoError(t, err)
	require.True(t, hit)
}

func TestInvalidateAllCoversRequestedLimits(t *testing.T) {
	c, _ := setupCache(t, Options{})
	ctx := context.Background()

	// 7 不在默认 limit 集合里，靠登记集覆盖
	require.NoError(t, c.SetPage(ctx, 7, samplePage()))
	require.NoError(t, c.SetPage(ctx, 50, samplePage()))

	require.NoError(t, c.InvalidateAll(ctx))

	for _, limit := range []int{7, 50} {
		_, hit, err := c.GetPage(ctx, limit)
		require.NoError(t, err)
		require.False(t, hit, "limit=%d", limit)
	}
}

func TestInvalidateAllOnEmptyCacheIsNoError(t *testing.T) {
	c, _ := setupCache(t, Options{})
	require.NoError(t, c.InvalidateAll(context.Background()))
}
