package schema

import (
	"context"
	"time"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCacheSize = 256
	DefaultCacheTTL  = 10 * time.Minute
)

// Cache holds built table models keyed by qualified name. Entries are
// bounded by count and age. Concurrent GetOrCompute calls for the same
// missing key share a single computation.
type Cache struct {
	lru   *expirable.LRU[model.QualifiedName, *model.Table]
	group singleflight.Group
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[model.QualifiedName, *model.Table](size, nil, ttl)}
}

// Get returns a copy of the cached table.
func (c *Cache) Get(name model.QualifiedName) (*model.Table, bool) {
	t, ok := c.lru.Get(name)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (c *Cache) Put(t *model.Table) {
	c.lru.Add(t.QualifiedName(), t.Clone())
}

func (c *Cache) Invalidate(name model.QualifiedName) {
	c.lru.Remove(name)
}

func (c *Cache) Purge() { c.lru.Purge() }

func (c *Cache) Len() int { return c.lru.Len() }

// GetOrCompute returns the cached table for name or stores the result of fn.
// Waiting callers return early when ctx is done; the computation itself keeps
// running for the others.
func (c *Cache) GetOrCompute(ctx context.Context, name model.QualifiedName, fn func(context.Context) (*model.Table, error)) (*model.Table, error) {
	if t, ok := c.Get(name); ok {
		return t, nil
	}
	ch := c.group.DoChan(name.String(), func() (any, error) {
		if t, ok := c.lru.Get(name); ok {
			return t, nil
		}
		t, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.lru.Add(name, t.Clone())
		return t, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Table).Clone(), nil
	}
}
