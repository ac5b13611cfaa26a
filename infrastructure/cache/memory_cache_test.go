package cache

import (
	"context"
	"testing"
	"time"

	"mindmap-backend/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*InMemoryCache, *time.Time, *observability.Collector) {
	t.Helper()
	metrics := observability.NewCollector("test")
	c := NewInMemoryCache(time.Minute, metrics)
	t.Cleanup(c.Close)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now, metrics
}

func TestInMemoryCacheGetSet(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c, _, metrics := newTestCache(t)

	// Act
	_, missBefore := c.Get(ctx, "k")
	require.NoError(t, c.Set(ctx, "k", "v", 0))
	got, hit := c.Get(ctx, "k")

	// Assert
	assert.False(t, missBefore)
	assert.True(t, hit)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMisses))
}

func TestInMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, now, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, "short", 1, time.Second))
	require.NoError(t, c.Set(ctx, "default", 2, 0))

	*now = now.Add(2 * time.Second)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "default")
	assert.True(t, ok)

	*now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "default")
	assert.False(t, ok)

	c.evictExpired()
	assert.Zero(t, c.Len())
}

func TestInMemoryCacheDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
}

func TestInMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := NewInMemoryCache(0, nil)
	c.Close()
	c.Close()
	assert.Equal(t, 5*time.Minute, c.defaultTTL)
}
