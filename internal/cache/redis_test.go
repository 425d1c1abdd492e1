package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ongon.org/internal/config"
	"ongon.org/internal/welfare"
)

func setupCatalog(t *testing.T) (*Catalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect(context.Background(), config.Redis{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestSetAndGet(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()
	crops := []welfare.Crop{{ID: 1, Name: "Rice"}, {ID: 2, Name: "Jute"}}
	require.NoError(t, c.Set(ctx, welfare.CacheKeyCrops, crops))

	var got []welfare.Crop
	hit, err := c.Get(ctx, welfare.CacheKeyCrops, &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, crops, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := setupCatalog(t)
	var got []welfare.Crop
	hit, err := c.Get(context.Background(), "catalog:nothing", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEntriesExpire(t *testing.T) {
	c, mr := setupCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, welfare.CacheKeyLoanProducts, []string{"micro"}))
	mr.FastForward(2 * time.Minute)

	var got []string
	hit, err := c.Get(ctx, welfare.CacheKeyLoanProducts, &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInvalidate(t *testing.T) {
	c, mr := setupCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, welfare.CacheKeyCourseCategories, []string{"a"}))
	require.NoError(t, c.Set(ctx, welfare.CacheKeyJobCategories, []string{"b"}))
	assert.True(t, mr.Exists(keyPrefix+welfare.CacheKeyCourseCategories))

	require.NoError(t, c.Invalidate(ctx, welfare.CacheKeyCourseCategories, welfare.CacheKeyJobCategories))
	assert.False(t, mr.Exists(keyPrefix+welfare.CacheKeyCourseCategories))
	assert.False(t, mr.Exists(keyPrefix+welfare.CacheKeyJobCategories))
	assert.NoError(t, c.Invalidate(ctx))
}

func TestCorruptEntryIsError(t *testing.T) {
	c, mr := setupCatalog(t)
	require.NoError(t, mr.Set(keyPrefix+welfare.CacheKeyCrops, "{not json"))

	var got []welfare.Crop
	_, err := c.Get(context.Background(), welfare.CacheKeyCrops, &got)
	assert.Error(t, err)
}

func TestConnectFails(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := Connect(context.Background(), config.Redis{Addr: addr})
	assert.Error(t, err)
}
