package geocode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	answers map[string]string
	fail    map[string]error
	calls   map[string]int
}

func newCountingResolver() *countingResolver {
	return &countingResolver{answers: map[string]string{}, fail: map[string]error{}, calls: map[string]int{}}
}

func (c *countingResolver) Resolve(_ context.Context, name string) (string, error) {
	c.calls[name]++
	if err, ok := c.fail[name]; ok {
		return "", err
	}
	if r, ok := c.answers[name]; ok {
		return r, nil
	}
	return "", ErrNotFound
}

func TestCachingResolverMemoizesHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	inner := newCountingResolver()
	inner.answers["Ipoh"] = "Perak"
	cr := NewCachingResolver(inner, "Malaysia", nil, nil)

	for i := 0; i < 3; i++ {
		r, err := cr.Resolve(ctx, "Ipoh")
		require.NoError(t, err)
		assert.Equal(t, "Perak", r)
		_, err = cr.Resolve(ctx, "Nowhere")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, 1, inner.calls["Ipoh"])
	assert.Equal(t, 1, inner.calls["Nowhere"])
	assert.Equal(t, 2, cr.Lookups())
}

func TestCachingResolverNeverPersistsTransportFailures(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCache()
	inner := newCountingResolver()
	inner.fail["Ipoh"] = &UnreachableError{Host: "example", Err: errors.New("dial refused")}
	inner.answers["Muar"] = "Johor"

	cr := NewCachingResolver(inner, "Malaysia", store, nil)
	_, err := cr.Resolve(ctx, "Ipoh")
	require.Error(t, err)
	_, err = cr.Resolve(ctx, "Ipoh")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, inner.calls["Ipoh"])

	_, err = cr.Resolve(ctx, "Muar")
	require.NoError(t, err)

	_, ok, _ := store.Get(ctx, CacheKey("Malaysia", "Ipoh"))
	assert.False(t, ok)
	e, ok, _ := store.Get(ctx, CacheKey("Malaysia", "muar "))
	require.True(t, ok)
	assert.Equal(t, "Johor", e.Region)
}

func TestCachingResolverReadsThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCache()
	require.NoError(t, store.Set(ctx, CacheEntry{Key: CacheKey("Malaysia", "Kuching"), Name: "Kuching", Region: "Sarawak", Found: true}))
	inner := newCountingResolver()
	cr := NewCachingResolver(inner, "Malaysia", store, nil)

	r, err := cr.Resolve(ctx, "Kuching")
	require.NoError(t, err)
	assert.Equal(t, "Sarawak", r)
	assert.Zero(t, inner.calls["Kuching"])
}

func TestSQLiteCacheRoundTripAndTTL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache", "locations.db")
	c, err := NewSQLiteCache(path, time.Hour)
	require.NoError(t, err)
	defer c.Close()

	now := time.Now()
	require.NoError(t, c.Set(ctx, CacheEntry{Key: "malaysia|ipoh", Name: "Ipoh", Region: "Perak", Found: true, StoredAt: now}))
	require.NoError(t, c.Set(ctx, CacheEntry{Key: "malaysia|x", Name: "X", Found: false, StoredAt: now}))
	require.NoError(t, c.Set(ctx, CacheEntry{Key: "malaysia|old", Name: "Old", Region: "Perak", Found: true, StoredAt: now.Add(-2 * time.Hour)}))

	e, ok, err := c.Get(ctx, "malaysia|ipoh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Perak", e.Region)
	assert.True(t, e.Found)

	_, ok, err = c.Get(ctx, "malaysia|old")
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	list, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpenStore(t *testing.T) {
	s, err := OpenStore(context.Background(), StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = OpenStore(context.Background(), StoreConfig{Backend: "etcd"})
	assert.ErrorContains(t, err, "unknown cache backend")

	s, err = OpenStore(context.Background(), StoreConfig{Backend: "sqlite", Path: filepath.Join(t.TempDir(), "l.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TIDYSEG_TEST_REDIS")
	if addr == "" {
		t.Skip("set TIDYSEG_TEST_REDIS=host:port to run")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, KeyPrefix: "tidyseg:test:", TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()
	_, _ = c.Clear(ctx)

	require.NoError(t, c.Set(ctx, CacheEntry{Key: "malaysia|ipoh", Name: "Ipoh", Region: "Perak", Found: true}))
	e, ok, err := c.Get(ctx, "malaysia|ipoh")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Perak", e.Region)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
