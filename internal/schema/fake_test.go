package schema

import (
	"context"
	"sync/atomic"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

type fakeCatalog struct {
	cockroach   bool
	tables      []types.SchemaTable
	columns     map[model.QualifiedName][]types.SchemaColumn
	primaryKeys map[model.QualifiedName][]types.PrimaryKey
	foreignKeys map[model.QualifiedName][]types.ForeignKey
	enums       map[string][]string
	columnCalls atomic.Int32
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		columns:     make(map[model.QualifiedName][]types.SchemaColumn),
		primaryKeys: make(map[model.QualifiedName][]types.PrimaryKey),
		foreignKeys: make(map[model.QualifiedName][]types.ForeignKey),
		enums:       make(map[string][]string),
	}
}

func (f *fakeCatalog) addTable(name string, cols ...types.SchemaColumn) model.QualifiedName {
	qn, _ := model.ParseQualifiedName(name)
	f.tables = append(f.tables, types.SchemaTable{Schema: qn.Schema, Name: qn.Table})
	f.columns[qn] = cols
	return qn
}

func (f *fakeCatalog) addFK(from, column, to, toColumn string) {
	src, _ := model.ParseQualifiedName(from)
	dst, _ := model.ParseQualifiedName(to)
	f.foreignKeys[src] = append(f.foreignKeys[src], types.ForeignKey{
		Name: "fk_" + src.Table + "_" + column, Column: column,
		ReferencedSchema: dst.Schema, ReferencedTable: dst.Table, ReferencedColumn: toColumn,
	})
}

func (f *fakeCatalog) IsCockroach() bool { return f.cockroach }

func (f *fakeCatalog) ListSchemas(context.Context) ([]string, error) {
	return []string{model.DefaultSchema}, nil
}

func (f *fakeCatalog) ListTables(_ context.Context, schema string) ([]types.SchemaTable, error) {
	var out []types.SchemaTable
	for _, t := range f.tables {
		if schema == model.Wildcard || t.Schema == schema {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListColumns(_ context.Context, table model.QualifiedName) ([]types.SchemaColumn, error) {
	f.columnCalls.Add(1)
	return f.columns[table], nil
}

func (f *fakeCatalog) ListPrimaryKeys(_ context.Context, table model.QualifiedName) ([]types.PrimaryKey, error) {
	return f.primaryKeys[table], nil
}

func (f *fakeCatalog) ListForeignKeys(_ context.Context, table model.QualifiedName) ([]types.ForeignKey, error) {
	return f.foreignKeys[table], nil
}

func (f *fakeCatalog) EnumLabels(_ context.Context, typeName string) ([]string, error) {
	return f.enums[typeName], nil
}

func (f *fakeCatalog) ShowCreateTable(_ context.Context, table model.QualifiedName) (string, error) {
	return "CREATE TABLE " + table.String() + " ()", nil
}
