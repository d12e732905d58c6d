package postgres

import (
	"context"
	"fmt"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/jackc/pgx/v5"
)

func (p *Adapter) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ExecBatch queues one execution per row and sends them as a single batch.
func (p *Adapter) ExecBatch(ctx context.Context, query string, rows [][]any) ([]int64, error) {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row...)
	}

	results := p.pool.SendBatch(ctx, batch)
	counts := make([]int64, len(rows))
	for i := range rows {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return nil, err
		}
		counts[i] = tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ExecArray binds each column slice as one text array parameter.
func (p *Adapter) ExecArray(ctx context.Context, query string, columns [][]*string) (int64, error) {
	args := make([]any, len(columns))
	for i, col := range columns {
		args[i] = col
	}
	return p.Exec(ctx, query, args...)
}

// AllocateIDs draws n identifiers from the database in one round-trip.
func (p *Adapter) AllocateIDs(ctx context.Context, kind model.IdentityKind, sequence string, n int) ([]int64, error) {
	var (
		query string
		args  []any
	)
	switch kind {
	case model.IdentityDatabaseSequence:
		if sequence == "" {
			return nil, model.ErrConfiguration("database_sequence identity requires a sequence name")
		}
		query = "SELECT nextval($1::REGCLASS) FROM generate_series(1, $2)"
		args = []any{sequence, n}
	case model.IdentityOrdered, model.IdentityUnordered:
		if !p.cockroach {
			return nil, model.ErrConfiguration("%s identity requires CockroachDB", kind)
		}
		fn := "unique_rowid()"
		if kind == model.IdentityUnordered {
			fn = "unordered_unique_rowid()"
		}
		query = fmt.Sprintf("SELECT %s FROM generate_series(1, $1)", fn)
		args = []any{n}
	default:
		return nil, model.ErrConfiguration("identity kind %q is not database backed", kind)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return ids, nil
}
