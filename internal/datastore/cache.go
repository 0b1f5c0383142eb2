package datastore

import (
	"context"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tphakala/binged/internal/observability/metrics"
)

const listCacheKey = "movies:list"

// sharedListTimeout bounds a List query shared by several callers. The
// query does not follow any single caller's cancellation.
const sharedListTimeout = 30 * time.Second

// CachedStore caches List results in front of another store. Concurrent
// misses share one query and every successful mutation drops the cache.
type CachedStore struct {
	next    Interface
	cache   *cache.Cache
	group   singleflight.Group
	gen     atomic.Uint64 // bumped on every invalidation
	metrics *Metrics
}

// NewCachedStore wraps next. A ttl of zero falls back to 30 seconds.
func NewCachedStore(next Interface, ttl time.Duration, m *Metrics) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{
		next:    next,
		cache:   cache.New(ttl, ttl*2),
		metrics: m,
	}
}

// Unwrap returns the decorated store.
func (c *CachedStore) Unwrap() Interface {
	return c.next
}

func (c *CachedStore) Open() error {
	c.invalidate()
	return c.next.Open()
}

func (c *CachedStore) Close() error {
	c.invalidate()
	return c.next.Close()
}

func (c *CachedStore) Replace(ctx context.Context, m *Movie) (*Movie, error) {
	saved, err := c.next.Replace(ctx, m)
	if err == nil {
		c.invalidate()
	}
	return saved, err
}

func (c *CachedStore) DeleteByID(ctx context.Context, id int64) error {
	err := c.next.DeleteByID(ctx, id)
	if err == nil {
		c.invalidate()
	}
	return err
}

// List serves from cache when possible. Callers get their own copy.
func (c *CachedStore) List(ctx context.Context) ([]Movie, error) {
	if cached, found := c.cache.Get(listCacheKey); found {
		c.record(metrics.CacheHit)
		return slices.Clone(cached.([]Movie)), nil
	}

	gen := c.gen.Load()
	ch := c.group.DoChan(listCacheKey+":"+strconv.FormatUint(gen, 10), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedListTimeout)
		defer cancel()

		movies, err := c.next.List(qctx)
		if err != nil {
			return nil, err
		}
		// A mutation during the query makes the result stale; don't cache it
		if c.gen.Load() == gen {
			c.cache.Set(listCacheKey, movies, cache.DefaultExpiration)
		}
		return movies, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.record(metrics.CacheShared)
		} else {
			c.record(metrics.CacheMiss)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Movie)), nil
	}
}

func (c *CachedStore) invalidate() {
	c.gen.Add(1)
	c.cache.Delete(listCacheKey)
	c.record(metrics.CacheEvict)
}

func (c *CachedStore) record(result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(result)
	}
}
