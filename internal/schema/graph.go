package schema

import (
	"fmt"
	"slices"

	"github.com/Rana718/seedbench/internal/model"
)

// Graph holds tables linked by foreign keys. Edges point from the
// referencing table to the referenced one.
type Graph struct {
	tables map[model.QualifiedName]*model.Table
	edges  []model.ForeignKeyEdge
}

func NewGraph() *Graph {
	return &Graph{tables: make(map[model.QualifiedName]*model.Table)}
}

func (g *Graph) AddTable(t *model.Table) {
	g.tables[t.QualifiedName()] = t
}

// AddEdge records a foreign key. Both ends must already be in the graph.
func (g *Graph) AddEdge(e model.ForeignKeyEdge) bool {
	if g.tables[e.From] == nil || g.tables[e.To] == nil {
		return false
	}
	g.edges = append(g.edges, e)
	return true
}

func (g *Graph) Table(name model.QualifiedName) *model.Table {
	return g.tables[name]
}

func (g *Graph) Len() int { return len(g.tables) }

// Tables returns every table ordered by name.
func (g *Graph) Tables() []*model.Table {
	names := make([]model.QualifiedName, 0, len(g.tables))
	for n := range g.tables {
		names = append(names, n)
	}
	slices.SortFunc(names, model.QualifiedName.Compare)
	out := make([]*model.Table, len(names))
	for i, n := range names {
		out[i] = g.tables[n]
	}
	return out
}

func (g *Graph) Edges() []model.ForeignKeyEdge {
	return slices.Clone(g.edges)
}

// LinkReferences gives each foreign key column that has no generator a
// uniform draw over the keys its referenced table will produce. Only
// referenced columns with a step 1 sequence identity can be followed; other
// columns are left for an override. It returns the number of columns linked.
func (g *Graph) LinkReferences() int {
	var linked int
	for _, e := range g.edges {
		col := g.tables[e.From].Column(e.FromColumn)
		if col == nil || hasGenerator(col) {
			continue
		}
		target := g.tables[e.To]
		ref := target.Column(e.ToColumn)
		if ref == nil || ref.Identity == nil || ref.Identity.Kind != model.IdentitySequence || ref.Identity.Step > 1 {
			continue
		}
		rows, err := target.Rows()
		if err != nil || rows == 0 {
			continue
		}
		lo := int64(1)
		if ref.Identity.From != nil {
			lo = *ref.Identity.From
		}
		hi := lo + rows - 1
		if ref.Identity.To != nil && *ref.Identity.To < hi {
			hi = *ref.Identity.To
		}
		col.Expression = fmt.Sprintf("randomLong(%d, %d)", lo, hi)
		linked++
	}
	return linked
}

func hasGenerator(c *model.Column) bool {
	return c.Expression != "" || c.Identity != nil || c.Range != nil || c.ValueSet != nil ||
		(c.Constant != nil && *c.Constant != "")
}

// TopologicalSort orders tables with Kahn's algorithm. Referenced tables come
// before the tables referencing them, or after them when inverse is set.
// Ties are broken by name. Self references are ignored.
func (g *Graph) TopologicalSort(inverse bool) ([]*model.Table, error) {
	// waiting[n] is the set of tables n waits for; unblocks is the reverse.
	waiting := make(map[model.QualifiedName]map[model.QualifiedName]bool, len(g.tables))
	unblocks := make(map[model.QualifiedName][]model.QualifiedName, len(g.tables))
	for n := range g.tables {
		waiting[n] = make(map[model.QualifiedName]bool)
	}
	for _, e := range g.edges {
		if e.From == e.To {
			continue
		}
		before, after := e.To, e.From
		if inverse {
			before, after = after, before
		}
		if waiting[after][before] {
			continue
		}
		waiting[after][before] = true
		unblocks[before] = append(unblocks[before], after)
	}

	var ready []model.QualifiedName
	for n, deps := range waiting {
		if len(deps) == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*model.Table, 0, len(g.tables))
	for len(ready) > 0 {
		slices.SortFunc(ready, model.QualifiedName.Compare)
		n := ready[0]
		ready = ready[1:]
		order = append(order, g.tables[n])
		for _, next := range unblocks[n] {
			delete(waiting[next], n)
			if len(waiting[next]) == 0 {
				ready = append(ready, next)
			}
		}
		delete(waiting, n)
	}

	if len(order) < len(g.tables) {
		residual := make([]model.QualifiedName, 0, len(g.tables)-len(order))
		for n := range waiting {
			residual = append(residual, n)
		}
		slices.SortFunc(residual, model.QualifiedName.Compare)
		return nil, &model.CycleDetectedError{Tables: residual}
	}
	return order, nil
}
