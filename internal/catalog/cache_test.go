package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shackbot/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingSource struct {
	calls atomic.Int32
	mu    sync.Mutex
	items []models.MenuItem
	err   error
}

func (s *countingSource) FetchAll(ctx context.Context) ([]models.MenuItem, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *countingSource) set(items []models.MenuItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.err = items, err
}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveCatalogRefresh(result string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

var twoItems = []models.MenuItem{
	{Name: "ShackBurger", Category: "Burgers", Price: 6.99, Calories: 500},
	{Name: "Fries", Category: "Fries", Price: 3.49, Calories: 470},
}

func TestCacheServesWithinTTL(t *testing.T) {
	clock := newFakeClock()
	src := &countingSource{items: twoItems}
	cache := NewCache(src, WithClock(clock.Now))

	first := cache.Get(context.Background())
	assert.Equal(t, 2, first.Len())

	clock.Advance(59 * time.Minute)
	cache.Get(context.Background())
	assert.Equal(t, int32(1), src.calls.Load())

	clock.Advance(2 * time.Minute)
	cache.Get(context.Background())
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCacheConcurrentReadersShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context) ([]models.MenuItem, error) {
		calls.Add(1)
		<-release
		return twoItems, nil
	})
	cache := NewCache(src)

	var wg sync.WaitGroup
	results := make([]models.Catalog, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Get(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, cat := range results {
		assert.Equal(t, 2, cat.Len())
	}
}

func TestCacheServesStaleSnapshotOnFailure(t *testing.T) {
	clock := newFakeClock()
	src := &countingSource{items: twoItems}
	obs := &recordingObserver{}
	cache := NewCache(src,
		WithClock(clock.Now),
		WithTTL(time.Hour),
		WithRetryAfter(30*time.Second),
		WithObserver(obs),
	)

	cache.Get(context.Background())
	src.set(nil, errors.New("connection refused"))
	clock.Advance(2 * time.Hour)

	cat := cache.Get(context.Background())
	require.Equal(t, 2, cat.Len())
	_, ok := cat.Lookup("fries")
	assert.True(t, ok)
	assert.Equal(t, int32(2), src.calls.Load())

	// no retry until retry_after has passed
	cache.Get(context.Background())
	assert.Equal(t, int32(2), src.calls.Load())

	clock.Advance(31 * time.Second)
	src.set(twoItems[:1], nil)
	cat = cache.Get(context.Background())
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, int32(3), src.calls.Load())

	assert.Equal(t, []string{RefreshOK, RefreshStale, RefreshOK}, obs.results)
}

func TestCacheFallsBackWhenSourceFailsFirst(t *testing.T) {
	src := &countingSource{err: ErrSourceUnavailable}
	cache := NewCache(src)

	cat := cache.Get(context.Background())
	assert.Equal(t, len(FallbackItems()), cat.Len())
	item, ok := cat.Lookup("ShackBurger")
	require.True(t, ok)
	assert.Equal(t, 6.99, item.Price)
}

func TestCacheFallsBackOnEmptySource(t *testing.T) {
	clock := newFakeClock()
	src := &countingSource{items: nil}
	obs := &recordingObserver{}
	cache := NewCache(src, WithClock(clock.Now), WithObserver(obs))

	cat := cache.Get(context.Background())
	assert.False(t, cat.IsEmpty())
	assert.Equal(t, len(FallbackItems()), cat.Len())

	// an empty result is a valid answer and is cached for the TTL
	cache.Get(context.Background())
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, []string{RefreshEmpty}, obs.results)
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	src := &countingSource{items: twoItems}
	cache := NewCache(src)

	cache.Get(context.Background())
	cache.Invalidate(context.Background())
	cache.Get(context.Background())

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCacheFetchSurvivesCallerCancellation(t *testing.T) {
	src := SourceFunc(func(ctx context.Context) ([]models.MenuItem, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return twoItems, nil
	})
	cache := NewCache(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cat := cache.Get(ctx)
	assert.Equal(t, 2, cat.Len())
}

func TestCacheLookup(t *testing.T) {
	src := &countingSource{items: []models.MenuItem{
		{Name: "ShackBurger", Category: "Burgers", Price: 7.49, Calories: 500},
	}}
	cache := NewCache(src)

	// before the first load the fallback prices apply
	item, ok := cache.Lookup("shackburger")
	require.True(t, ok)
	assert.Equal(t, 6.99, item.Price)
	assert.Equal(t, int32(0), src.calls.Load())

	cache.Get(context.Background())
	item, ok = cache.Lookup("shackburger")
	require.True(t, ok)
	assert.Equal(t, 7.49, item.Price)

	_, ok = cache.Lookup("Fries")
	assert.False(t, ok)
}
