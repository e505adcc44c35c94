package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shackbot/internal/models"
)

func newRedisSource(t *testing.T, next Source) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return NewRedisSource(client, next, "shackbot:catalog", time.Hour, zap.NewNop()), mr
}

func TestRedisSourceMissFetchesAndStores(t *testing.T) {
	next := &countingSource{items: twoItems}
	src, mr := newRedisSource(t, next)

	items, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(1), next.calls.Load())

	require.True(t, mr.Exists("shackbot:catalog"))
	assert.Equal(t, time.Hour, mr.TTL("shackbot:catalog"))

	items, err = src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ShackBurger", items[0].Name)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestRedisSourceHitSkipsNext(t *testing.T) {
	next := &countingSource{err: ErrSourceUnavailable}
	src, mr := newRedisSource(t, next)

	data, err := json.Marshal([]models.MenuItem{{Name: "Fries", Category: "Fries", Price: 3.99, Calories: 470}})
	require.NoError(t, err)
	require.NoError(t, mr.Set("shackbot:catalog", string(data)))

	items, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3.99, items[0].Price)
	assert.Equal(t, int32(0), next.calls.Load())
}

func TestRedisSourceIgnoresCorruptSnapshot(t *testing.T) {
	next := &countingSource{items: twoItems}
	src, mr := newRedisSource(t, next)
	require.NoError(t, mr.Set("shackbot:catalog", "{not json"))

	items, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestRedisSourceDoesNotStoreEmptyResult(t *testing.T) {
	next := &countingSource{}
	src, mr := newRedisSource(t, next)

	items, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, mr.Exists("shackbot:catalog"))
}

func TestCacheInvalidatePurgesRedisSnapshot(t *testing.T) {
	next := &countingSource{items: twoItems}
	src, mr := newRedisSource(t, next)
	cache := NewCache(src)

	cache.Get(context.Background())
	require.True(t, mr.Exists("shackbot:catalog"))

	cache.Invalidate(context.Background())
	assert.False(t, mr.Exists("shackbot:catalog"))

	cache.Get(context.Background())
	assert.Equal(t, int32(2), next.calls.Load(), "the refetch goes past redis to the backing source")
}

func TestRedisSourceSurvivesRedisOutage(t *testing.T) {
	next := &countingSource{items: twoItems}
	src, mr := newRedisSource(t, next)
	mr.Close()

	items, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRedisSourcePropagatesNextError(t *testing.T) {
	next := &countingSource{err: ErrSourceUnavailable}
	src, _ := newRedisSource(t, next)

	_, err := src.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestRedisSourcePurge(t *testing.T) {
	next := &countingSource{items: twoItems}
	src, mr := newRedisSource(t, next)

	_, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, src.Purge(context.Background()))
	assert.False(t, mr.Exists("shackbot:catalog"))
}
