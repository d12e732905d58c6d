package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/generator"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// snapshotTable names the SQLite table holding rows of name. Tables outside
// the default schema are prefixed with their schema.
func snapshotTable(name model.QualifiedName) string {
	if name.Schema == model.DefaultSchema || name.Schema == "" {
		return name.Table
	}
	return name.Schema + "_" + name.Table
}

// WriteSQLite generates every table into a new SQLite database at path with
// TEXT columns. Each table is written in one transaction.
func WriteSQLite(ctx context.Context, path string, tables []*model.Table, f *generator.Factory) (map[model.QualifiedName]int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite database: %w", err)
	}
	defer db.Close()

	written := make(map[model.QualifiedName]int64, len(tables))
	for _, t := range tables {
		n, err := writeSQLiteTable(ctx, db, t, f)
		if err != nil {
			return written, fmt.Errorf("table %s: %w", t.QualifiedName(), err)
		}
		written[t.QualifiedName()] = n
	}
	return written, nil
}

func writeSQLiteTable(ctx context.Context, db *sql.DB, t *model.Table, f *generator.Factory) (int64, error) {
	rows, err := t.Rows()
	if err != nil {
		return 0, err
	}
	pass, err := f.NewPass(t)
	if err != nil {
		return 0, err
	}

	name := pq.QuoteIdentifier(snapshotTable(t.QualifiedName()))
	cols := pass.Columns()
	quoted := make([]string, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c.Name)
		defs[i] = quoted[i] + " TEXT"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("failed to create table: %w", err)
	}

	insert, _, err := squirrel.Insert(name).Columns(quoted...).
		Values(make([]any, len(cols))...).ToSql()
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	var n int64
	for ; n < rows; n++ {
		row, err := pass.Next(ctx)
		if err != nil {
			return n, err
		}
		for i, v := range row {
			if v == nil {
				args[i] = nil
				continue
			}
			args[i] = FormatValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return n, fmt.Errorf("failed to insert row %d: %w", n+1, err)
		}
	}
	return n, tx.Commit()
}
