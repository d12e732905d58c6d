package loader

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rana718/seedbench/internal/database"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

// Kind selects how a chunk is sent to the database.
type Kind int

const (
	Batch Kind = iota
	Array
	Singleton
)

func (k Kind) String() string {
	switch k {
	case Array:
		return "array"
	case Singleton:
		return "singleton"
	default:
		return "batch"
	}
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "batch":
		return Batch, nil
	case "array", "unnest":
		return Array, nil
	case "singleton", "single", "row":
		return Singleton, nil
	}
	return Batch, model.ErrConfiguration("unknown insert strategy %q", s)
}

// DB is the write side of a provider adapter. Batch and array loads also
// need database.BatchExecutor or database.ArrayExecutor.
type DB interface {
	database.Executor
	database.Classifier
	database.Dialect
}

type Options struct {
	Kind     Kind
	Table    model.QualifiedName
	Conflict types.ConflictPolicy
	// Policy defaults to NewErrorPolicy.
	Policy *ErrorPolicy
	Logger *slog.Logger
}

// Loader inserts chunks of delimited text rows into one table. It
// implements ingest.ChunkProcessor.
type Loader struct {
	kind     Kind
	conflict types.ConflictPolicy
	policy   *ErrorPolicy
	logger   *slog.Logger
	db       DB
	target   types.InsertTarget
	query    string
	chunks   int
}

// New resolves the target table through catalog and checks that db supports
// the requested strategy.
func New(ctx context.Context, opts Options, catalog database.Catalog, db DB) (*Loader, error) {
	cols, err := catalog.ListColumns(ctx, opts.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", opts.Table, err)
	}
	var visible []types.SchemaColumn
	for _, c := range cols {
		if !c.Hidden {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		return nil, model.ErrConfiguration("table %s not found or has no columns", opts.Table)
	}

	pks, err := catalog.ListPrimaryKeys(ctx, opts.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to list primary key of %s: %w", opts.Table, err)
	}
	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = pk.Column
	}

	switch opts.Kind {
	case Batch:
		if _, ok := db.(database.BatchExecutor); !ok {
			return nil, model.ErrConfiguration("batch inserts are not supported by this database")
		}
	case Array:
		if _, ok := db.(database.ArrayExecutor); !ok {
			return nil, model.ErrConfiguration("array inserts are not supported by this database")
		}
	}

	l := &Loader{
		kind:     opts.Kind,
		conflict: opts.Conflict,
		policy:   opts.Policy,
		logger:   opts.Logger,
		db:       db,
		target:   types.InsertTarget{Table: opts.Table, Columns: visible, PrimaryKey: keys},
	}
	if l.policy == nil {
		l.policy = NewErrorPolicy()
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if err := l.prepare(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Loader) prepare() error {
	var err error
	if l.kind == Array {
		l.query, err = l.db.ArrayInsertSQL(l.target, l.conflict)
	} else {
		l.query, err = l.db.InsertSQL(l.target, l.conflict)
	}
	if err != nil {
		return fmt.Errorf("failed to build insert for %s: %w", l.target.Table, err)
	}
	return nil
}

func (l *Loader) Target() types.InsertTarget { return l.target }

func (l *Loader) Query() string { return l.query }

func (l *Loader) Policy() *ErrorPolicy { return l.policy }

// ProcessHeader checks the column count. When every header name matches a
// table column the insert is rebuilt in header order.
func (l *Loader) ProcessHeader(_ context.Context, header []string) error {
	if len(header) != len(l.target.Columns) {
		return &model.SchemaMismatchError{Table: l.target.Table, Expected: len(l.target.Columns), Actual: len(header)}
	}

	byName := make(map[string]types.SchemaColumn, len(l.target.Columns))
	for _, c := range l.target.Columns {
		byName[c.Name] = c
	}
	ordered := make([]types.SchemaColumn, 0, len(header))
	for _, h := range header {
		c, ok := byName[strings.ToLower(strings.Trim(h, `"`))]
		if !ok {
			l.logger.Debug("header does not name table columns, using table order", "table", l.target.Table.String())
			return nil
		}
		delete(byName, c.Name)
		ordered = append(ordered, c)
	}
	l.target.Columns = ordered
	return l.prepare()
}

func (l *Loader) ProcessChunk(ctx context.Context, chunk [][]string) (int, error) {
	policy := l.policy.Snapshot()
	l.chunks++
	for i, row := range chunk {
		if len(row) != len(l.target.Columns) {
			return 0, fmt.Errorf("row %d of chunk %d: %w", i+1, l.chunks,
				&model.SchemaMismatchError{Table: l.target.Table, Expected: len(l.target.Columns), Actual: len(row)})
		}
	}

	start := time.Now()
	var (
		n   int
		err error
	)
	switch l.kind {
	case Array:
		n, err = l.insertArray(ctx, chunk)
	case Singleton:
		n, err = l.insertSingle(ctx, chunk)
	default:
		n, err = l.insertBatch(ctx, chunk)
	}
	if err != nil {
		err = database.Classify(l.db, l.kind.String()+" insert into "+l.target.Table.String(), err)
		return n, policy.Handle(l.logger, l.target.Table, len(chunk), err)
	}

	elapsed := time.Since(start)
	l.logger.Debug("chunk inserted", "table", l.target.Table.String(), "strategy", l.kind.String(),
		"rows", len(chunk), "applied", n, "elapsed", elapsed,
		"rows_per_sec", int64(float64(len(chunk))/max(elapsed.Seconds(), 1e-9)))
	return n, nil
}

func (l *Loader) insertBatch(ctx context.Context, chunk [][]string) (int, error) {
	rows := make([][]any, len(chunk))
	for i, row := range chunk {
		rows[i] = args(row)
	}
	counts, err := l.db.(database.BatchExecutor).ExecBatch(ctx, l.query, rows)
	if err != nil {
		return 0, err
	}
	var n int
	for _, c := range counts {
		n += applied(c)
	}
	return n, nil
}

func (l *Loader) insertArray(ctx context.Context, chunk [][]string) (int, error) {
	columns := make([][]*string, len(l.target.Columns))
	for j := range columns {
		columns[j] = make([]*string, len(chunk))
	}
	for i, row := range chunk {
		for j, field := range row {
			if field != "" {
				columns[j][i] = &row[j]
			}
		}
	}
	count, err := l.db.(database.ArrayExecutor).ExecArray(ctx, l.query, columns)
	if err != nil {
		return 0, err
	}
	if count == types.NoRowCount {
		return len(chunk), nil
	}
	return int(count), nil
}

func (l *Loader) insertSingle(ctx context.Context, chunk [][]string) (int, error) {
	var n int
	for _, row := range chunk {
		c, err := l.db.Exec(ctx, l.query, args(row)...)
		if err != nil {
			return n, err
		}
		n += applied(c)
	}
	return n, nil
}

// args binds an empty field as NULL.
func args(row []string) []any {
	out := make([]any, len(row))
	for i, f := range row {
		if f != "" {
			out[i] = f
		}
	}
	return out
}

func applied(count int64) int {
	if count == types.NoRowCount {
		return 1
	}
	return int(count)
}
