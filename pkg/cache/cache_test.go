package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string    `json:"name"`
	Value []float64 `json:"value"`
}

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(0)
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", sample{Name: "a", Value: []float64{1, 2}}, time.Minute))

	var got sample
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, sample{Name: "a", Value: []float64{1, 2}}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "s", "raw", 0))
	require.NoError(t, mc.Get(ctx, "s", &s))
	assert.Equal(t, "raw", s)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(0)
	defer mc.Close()

	var got sample
	assert.ErrorIs(t, mc.Get(ctx, "absent", &got), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", sample{}, time.Nanosecond))
	time.Sleep(2 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &got), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(2)
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	ok, _ := mc.Exists(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	ok, _ = mc.Exists(ctx, "c")
	assert.True(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(0)
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]int, error) {
		calls++
		return []int{1, 2, 3}, nil
	}

	got, err := GetOrLoad(ctx, mc, "nums", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)

	got, err = GetOrLoad(ctx, mc, "nums", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 1, calls)

	_, err = GetOrLoad(ctx, mc, "fail", time.Minute, func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "bars:SPY:252", GenerateKeyWithParams("bars", "SPY", 252))
	assert.Equal(t, "drift:x", GenerateKey("drift", "x"))
	assert.Len(t, HashKey("anything"), 32)
}

func TestRedisOptionsDefaults(t *testing.T) {
	o := RedisOptions{Addr: "redis:6380", PoolSize: 4}.withDefaults()
	assert.Equal(t, "redis:6380", o.Addr)
	assert.Equal(t, 4, o.PoolSize)
	assert.Equal(t, 2, o.MinIdleConns)
	assert.Equal(t, 30*time.Second, o.PoolTimeout)
	assert.Equal(t, "tradebot", o.Prefix)

	assert.Equal(t, "localhost:6379", RedisOptions{}.withDefaults().Addr)
}

func TestLayeredMemoryTTLNeverOutlivesRedis(t *testing.T) {
	lc := NewLayeredCache(nil, 0, 0)
	defer lc.memCache.Close()

	assert.Equal(t, time.Minute, lc.l1TTL)
	assert.Equal(t, 10*time.Second, lc.memoryTTL(10*time.Second))
	assert.Equal(t, time.Minute, lc.memoryTTL(time.Hour))
	assert.Equal(t, time.Minute, lc.memoryTTL(0))
}
