package schema

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Rana718/seedbench/internal/database"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

// DefaultRowCount is the row count given to introspected tables.
const DefaultRowCount = "100"

// Builder introspects a schema into a foreign key graph of table models.
type Builder struct {
	Catalog  database.Catalog
	Resolver *Resolver
	Logger   *slog.Logger
	// RowIDs enables unordered identities for generated integer keys. It is
	// set for CockroachDB catalogs.
	RowIDs bool
}

func NewBuilder(catalog database.Catalog, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Builder{Catalog: catalog, Resolver: NewResolver(catalog), Logger: logger}
	if c, ok := catalog.(interface{ IsCockroach() bool }); ok {
		b.RowIDs = c.IsCockroach()
	}
	return b
}

// ListTables lists the tables of schema accepted by pred, ordered by name.
// A nil pred accepts every table.
func ListTables(ctx context.Context, catalog database.Catalog, schema string, pred func(types.SchemaTable) bool) ([]types.SchemaTable, error) {
	tables, err := catalog.ListTables(ctx, schema)
	if err != nil {
		return nil, err
	}
	out := tables[:0]
	for _, t := range tables {
		if pred == nil || pred(t) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b types.SchemaTable) int {
		return model.NewQualifiedName(a.Schema, a.Name).Compare(model.NewQualifiedName(b.Schema, b.Name))
	})
	return out, nil
}

// Build introspects every table of schema accepted by pred. The first pass
// resolves column expressions, the second links foreign keys and assigns
// primary key identities.
func (b *Builder) Build(ctx context.Context, schema string, pred func(types.SchemaTable) bool) (*Graph, error) {
	tables, err := ListTables(ctx, b.Catalog, schema, pred)
	if err != nil {
		return nil, err
	}

	g := NewGraph()
	catalogColumns := make(map[model.QualifiedName][]types.SchemaColumn, len(tables))
	for _, st := range tables {
		b.Logger.Info("introspect", "table", st.Schema+"."+st.Name)
		t, cols, err := b.table(ctx, st)
		if err != nil {
			return nil, err
		}
		g.AddTable(t)
		catalogColumns[t.QualifiedName()] = cols
	}

	for _, t := range g.Tables() {
		b.Logger.Info("resolve keys", "table", t.QualifiedName().String())
		if err := b.link(ctx, g, t, catalogColumns[t.QualifiedName()]); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// BuildTable introspects a single table without foreign key edges.
func (b *Builder) BuildTable(ctx context.Context, name model.QualifiedName) (*model.Table, error) {
	t, cols, err := b.table(ctx, types.SchemaTable{Schema: name.Schema, Name: name.Table})
	if err != nil {
		return nil, err
	}
	if len(t.Columns) == 0 {
		return nil, model.ErrConfiguration("table %s not found", name)
	}
	if err := b.link(ctx, nil, t, cols); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Builder) table(ctx context.Context, st types.SchemaTable) (*model.Table, []types.SchemaColumn, error) {
	name := model.NewQualifiedName(st.Schema, st.Name)
	cols, err := b.Catalog.ListColumns(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list columns of %s: %w", name, err)
	}
	t := &model.Table{Schema: name.Schema, Name: name.Table, Count: DefaultRowCount}
	for _, c := range cols {
		expr, err := b.Resolver.Resolve(ctx, c)
		if err != nil {
			return nil, nil, err
		}
		t.Columns = append(t.Columns, model.Column{
			Name:       strings.ToLower(c.Name),
			TypeName:   c.Type,
			Expression: expr,
			Hidden:     c.Hidden,
		})
	}
	return t, cols, nil
}

// link clears foreign key column expressions, adds graph edges when g is
// not nil and assigns identities to primary key columns.
func (b *Builder) link(ctx context.Context, g *Graph, t *model.Table, cols []types.SchemaColumn) error {
	name := t.QualifiedName()
	fks, err := b.Catalog.ListForeignKeys(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list foreign keys of %s: %w", name, err)
	}
	for _, fk := range fks {
		col := t.Column(strings.ToLower(fk.Column))
		if col != nil {
			col.Expression = ""
		}
		if g == nil {
			continue
		}
		edge := model.ForeignKeyEdge{
			From:       name,
			FromColumn: strings.ToLower(fk.Column),
			To:         model.NewQualifiedName(fk.ReferencedSchema, fk.ReferencedTable),
			ToColumn:   strings.ToLower(fk.ReferencedColumn),
		}
		if !g.AddEdge(edge) {
			b.Logger.Debug("foreign key target outside graph", "table", name.String(), "references", edge.To.String())
		}
	}

	pks, err := b.Catalog.ListPrimaryKeys(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to list primary keys of %s: %w", name, err)
	}
	for _, pk := range pks {
		i := slices.IndexFunc(cols, func(c types.SchemaColumn) bool { return strings.EqualFold(c.Name, pk.Column) })
		col := t.Column(strings.ToLower(pk.Column))
		if i < 0 || col == nil {
			continue
		}
		if id := b.identity(cols[i]); id != nil {
			col.Identity = id
			col.Expression = ""
		}
	}
	return nil
}

var nextvalPattern = regexp.MustCompile(`(?i)^nextval\('([^']+)'`)

func (b *Builder) identity(col types.SchemaColumn) *model.Identity {
	if m := nextvalPattern.FindStringSubmatch(strings.TrimSpace(col.Default)); m != nil {
		return &model.Identity{Kind: model.IdentityDatabaseSequence, Sequence: m[1], BatchSize: model.DefaultIdentityBatch}
	}
	switch normalizeDefault(col.Default) {
	case "unique_rowid()", "unordered_unique_rowid()":
		return &model.Identity{Kind: model.IdentityUnordered, BatchSize: model.DefaultIdentityBatch}
	case "gen_random_uuid()", "uuid_generate_v4()":
		return &model.Identity{Kind: model.IdentityUUID}
	}
	switch {
	case col.Category == types.CategoryUUID:
		return &model.Identity{Kind: model.IdentityUUID}
	case col.Category.IsInteger() && col.Generated && b.RowIDs:
		return &model.Identity{Kind: model.IdentityUnordered, BatchSize: model.DefaultIdentityBatch}
	case col.Category.IsInteger():
		from := int64(1)
		return &model.Identity{Kind: model.IdentitySequence, From: &from, Step: 1}
	}
	return nil
}

// normalizeDefault lowercases a column default and strips a trailing cast,
// so "gen_random_uuid()::UUID" compares equal to "gen_random_uuid()".
func normalizeDefault(def string) string {
	def = strings.ToLower(strings.TrimSpace(def))
	if i := strings.Index(def, "::"); i >= 0 {
		def = def[:i]
	}
	return strings.TrimSpace(def)
}
