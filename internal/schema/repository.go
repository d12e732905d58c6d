package schema

import (
	"context"
	"sync"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

// Repository serves table models built from the catalog, cached and
// merged with user overrides.
type Repository struct {
	builder *Builder
	cache   *Cache

	mu        sync.RWMutex
	overrides map[model.QualifiedName]*model.Table
}

func NewRepository(builder *Builder, cache *Cache) *Repository {
	if cache == nil {
		cache = NewCache(0, 0)
	}
	return &Repository{builder: builder, cache: cache, overrides: make(map[model.QualifiedName]*model.Table)}
}

// AddOverrides registers user models and drops any cached copies of them.
func (r *Repository) AddOverrides(tables ...*model.Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tables {
		name := t.QualifiedName()
		r.overrides[name] = t.Clone()
		r.cache.Invalidate(name)
	}
}

func (r *Repository) override(name model.QualifiedName) *model.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overrides[name]
}

// Table returns the model of a single table.
func (r *Repository) Table(ctx context.Context, name model.QualifiedName) (*model.Table, error) {
	return r.cache.GetOrCompute(ctx, name, func(ctx context.Context) (*model.Table, error) {
		t, err := r.builder.BuildTable(ctx, name)
		if err != nil {
			return nil, err
		}
		return ApplyOverride(t, r.override(name)), nil
	})
}

// Graph builds the foreign key graph of schema with overrides applied,
// links foreign key columns to their referenced keys and refreshes the cache
// with every table in it.
func (r *Repository) Graph(ctx context.Context, schema string, pred func(types.SchemaTable) bool) (*Graph, error) {
	g, err := r.builder.Build(ctx, schema, pred)
	if err != nil {
		return nil, err
	}
	for _, t := range g.Tables() {
		if o := r.override(t.QualifiedName()); o != nil {
			*t = *ApplyOverride(t, o)
		}
	}
	g.LinkReferences()
	for _, t := range g.Tables() {
		r.cache.Put(t)
	}
	return g, nil
}

func (r *Repository) Cache() *Cache { return r.cache }
