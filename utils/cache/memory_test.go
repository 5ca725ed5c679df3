package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache() (*MemoryCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache()
	c.now = clock.now
	return c, clock
}

func TestMemoryCacheSetAndGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	require.NoError(t, c.Set(ctx, "key1", "value1", time.Second))
	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	require.NoError(t, c.Set(ctx, "key1", "value1", 100*time.Millisecond))
	clock.advance(150 * time.Millisecond)

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrNotFound)
	exists, _ := c.Exists(ctx, "key1")
	assert.False(t, exists)
}

func TestMemoryCacheIncrementAndTTL(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	n, err := c.Increment(ctx, "attempts")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, _ := c.TTL(ctx, "attempts")
	assert.Equal(t, time.Duration(-1), ttl)

	require.NoError(t, c.Expire(ctx, "attempts", time.Minute))
	n, err = c.Increment(ctx, "attempts")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.advance(30 * time.Second)
	ttl, _ = c.TTL(ctx, "attempts")
	assert.Equal(t, 30*time.Second, ttl)

	clock.advance(time.Minute)
	ttl, _ = c.TTL(ctx, "attempts")
	assert.Equal(t, time.Duration(-2), ttl)
}

func TestMemoryCacheIncrementRejectsNonInteger(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	require.NoError(t, c.Set(ctx, "name", "ada", 0))
	_, err := c.Increment(ctx, "name")
	assert.Error(t, err)
}

func TestMemoryCachePurge(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache()

	require.NoError(t, c.Set(ctx, "short", "1", time.Second))
	require.NoError(t, c.Set(ctx, "long", "1", time.Hour))
	require.NoError(t, c.Set(ctx, "forever", "1", 0))

	clock.advance(time.Minute)
	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache()

	require.NoError(t, c.Set(ctx, "a", "1", time.Second))
	require.NoError(t, c.Set(ctx, "b", "1", time.Second))
	require.NoError(t, c.Delete(ctx, "a", "b"))
	assert.Equal(t, 0, c.Len())
}
