package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shackbot/internal/logger"
	"shackbot/internal/models"
)

// ErrSourceUnavailable is returned by sources that cannot reach their backend
var ErrSourceUnavailable = errors.New("catalog source unavailable")

// DefaultTTL is how long a fetched snapshot stays fresh
const DefaultTTL = time.Hour

// Source provides the full list of menu items
type Source interface {
	FetchAll(ctx context.Context) ([]models.MenuItem, error)
}

// Purger is a Source holding its own copy of the catalog that can be dropped
type Purger interface {
	Purge(ctx context.Context) error
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context) ([]models.MenuItem, error)

// FetchAll implements Source
func (f SourceFunc) FetchAll(ctx context.Context) ([]models.MenuItem, error) {
	return f(ctx)
}

// Refresh outcomes reported to the RefreshObserver
const (
	RefreshOK       = "ok"
	RefreshEmpty    = "empty"
	RefreshStale    = "stale"
	RefreshFallback = "fallback"
)

// RefreshObserver is notified after every fetch against the source
type RefreshObserver interface {
	ObserveCatalogRefresh(result string, duration time.Duration)
}

// Cache is a read-through, time-bounded cache of the catalog snapshot.
// Concurrent readers that find the snapshot expired share one fetch.
type Cache struct {
	source       Source
	ttl          time.Duration
	fetchTimeout time.Duration
	retryAfter   time.Duration
	now          func() time.Time
	observer     RefreshObserver
	logger       *zap.Logger

	mu        sync.RWMutex
	current   *models.Catalog
	loadedAt  time.Time
	nextRetry time.Time

	group singleflight.Group
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithTTL sets the snapshot lifetime
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// WithFetchTimeout bounds each call to the source
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.fetchTimeout = d }
}

// WithRetryAfter sets how long a stale snapshot is served after a failed fetch
func WithRetryAfter(d time.Duration) CacheOption {
	return func(c *Cache) { c.retryAfter = d }
}

// WithClock injects the time source
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithObserver registers a refresh observer
func WithObserver(o RefreshObserver) CacheOption {
	return func(c *Cache) { c.observer = o }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// NewCache creates a catalog cache in front of source
func NewCache(source Source, opts ...CacheOption) *Cache {
	c := &Cache{
		source:       source,
		ttl:          DefaultTTL,
		fetchTimeout: 10 * time.Second,
		retryAfter:   30 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.Component(c.logger, "catalog_cache")
	return c
}

// Get returns the current snapshot, fetching it if absent or expired.
// The returned catalog is never empty.
func (c *Cache) Get(ctx context.Context) models.Catalog {
	if cat, ok := c.fresh(); ok {
		return cat
	}

	v, _, shared := c.group.Do("catalog", func() (interface{}, error) {
		// a flight that finished just before this one may have refreshed it
		if cat, ok := c.fresh(); ok {
			return cat, nil
		}
		return c.refresh(ctx), nil
	})
	if shared {
		c.logger.Debug("joined in-flight catalog refresh")
	}
	return v.(models.Catalog)
}

// Invalidate marks the snapshot expired and purges the source's own copy
// when it keeps one. The old snapshot is still used for price lookups until
// the next read refreshes it.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.nextRetry = time.Time{}
	c.mu.Unlock()

	if p, ok := c.source.(Purger); ok {
		if err := p.Purge(ctx); err != nil {
			c.logger.Warn("catalog source purge failed", zap.Error(err))
		}
	}
}

// Lookup finds an item by name in the last loaded snapshot without
// triggering a fetch.
func (c *Cache) Lookup(name string) (models.MenuItem, bool) {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur == nil {
		return Fallback(time.Time{}).Lookup(name)
	}
	return cur.Lookup(name)
}

func (c *Cache) fresh() (models.Catalog, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return models.Catalog{}, false
	}
	now := c.now()
	if !c.loadedAt.IsZero() && now.Sub(c.loadedAt) < c.ttl {
		return *c.current, true
	}
	if now.Before(c.nextRetry) {
		return *c.current, true
	}
	return models.Catalog{}, false
}

func (c *Cache) refresh(ctx context.Context) models.Catalog {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	start := c.now()
	items, err := c.source.FetchAll(fetchCtx)
	elapsed := c.now().Sub(start)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.nextRetry = now.Add(c.retryAfter)
		if c.current != nil && !c.current.IsEmpty() {
			c.logger.Warn("catalog refresh failed, serving last snapshot",
				zap.Error(err),
				zap.Time("fetched_at", c.current.FetchedAt),
			)
			c.observe(RefreshStale, elapsed)
			return *c.current
		}
		c.logger.Warn("catalog refresh failed, serving fallback menu", zap.Error(err))
		fallback := Fallback(now)
		c.current = &fallback
		c.loadedAt = time.Time{}
		c.observe(RefreshFallback, elapsed)
		return fallback
	}

	cat := models.NewCatalog(items, now)
	result := RefreshOK
	if cat.IsEmpty() {
		c.logger.Info("catalog source returned no items, using fallback menu")
		cat = Fallback(now)
		result = RefreshEmpty
	}
	c.current = &cat
	c.loadedAt = now
	c.nextRetry = time.Time{}
	c.logger.Info("catalog refreshed", zap.Int("items", cat.Len()), zap.String("result", result))
	c.observe(result, elapsed)
	return cat
}

func (c *Cache) observe(result string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveCatalogRefresh(result, d)
	}
}
