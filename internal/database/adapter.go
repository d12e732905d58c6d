package database

import (
	"context"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

// Catalog is the read-only metadata surface used for introspection.
type Catalog interface {
	ListSchemas(ctx context.Context) ([]string, error)
	// ListTables lists base tables; schema model.Wildcard means every schema.
	ListTables(ctx context.Context, schema string) ([]types.SchemaTable, error)
	ListColumns(ctx context.Context, table model.QualifiedName) ([]types.SchemaColumn, error)
	ListPrimaryKeys(ctx context.Context, table model.QualifiedName) ([]types.PrimaryKey, error)
	ListForeignKeys(ctx context.Context, table model.QualifiedName) ([]types.ForeignKey, error)
	// EnumLabels returns the labels of an enumerated type, or nil if typeName is not one.
	EnumLabels(ctx context.Context, typeName string) ([]string, error)
	ShowCreateTable(ctx context.Context, table model.QualifiedName) (string, error)
}

// Executor runs a single statement and reports the affected row count.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// BatchExecutor submits one execution per row in a single round-trip.
type BatchExecutor interface {
	ExecBatch(ctx context.Context, query string, rows [][]any) ([]int64, error)
}

// ArrayExecutor binds one array parameter per column. A nil element is
// sent as NULL.
type ArrayExecutor interface {
	ExecArray(ctx context.Context, query string, columns [][]*string) (int64, error)
}

// IDAllocator hands out blocks of database generated identifiers.
type IDAllocator interface {
	AllocateIDs(ctx context.Context, kind model.IdentityKind, sequence string, n int) ([]int64, error)
}

// Classifier decides whether a failure is worth retrying.
type Classifier interface {
	IsTransient(err error) bool
}

// Dialect renders provider specific insert templates.
type Dialect interface {
	InsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error)
	ArrayInsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error)
}

type DatabaseAdapter interface {
	Connect(ctx context.Context, url string) error
	Close() error
	Ping(ctx context.Context) error
	Version(ctx context.Context) (string, error)

	Catalog
	Executor
	Classifier
	Dialect
}
