package postgres

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/lib/pq"
)

func quoteTable(qn model.QualifiedName) string {
	if qn.Schema == "" {
		return pq.QuoteIdentifier(qn.Table)
	}
	return pq.QuoteIdentifier(qn.Schema) + "." + pq.QuoteIdentifier(qn.Table)
}

func quoteColumns(names []string) []string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pq.QuoteIdentifier(n)
	}
	return quoted
}

// InsertSQL renders "INSERT INTO t (a, b) VALUES ($1, $2)" plus the
// conflict clause.
func (p *Adapter) InsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error) {
	cols := quoteColumns(target.ColumnNames())
	ib := p.qb.Insert(quoteTable(target.Table)).
		Columns(cols...).
		Values(make([]any, len(cols))...)
	return p.finishInsert(ib, target, conflict)
}

// ArrayInsertSQL renders an insert fed by one unnest() per column so a
// whole chunk travels as len(columns) array parameters.
func (p *Adapter) ArrayInsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error) {
	sel := squirrel.Select()
	for _, col := range target.Columns {
		expr := fmt.Sprintf("unnest(?::TEXT[])::%s AS %s", col.Type, pq.QuoteIdentifier(col.Name))
		sel = sel.Column(squirrel.Expr(expr, nil))
	}
	ib := p.qb.Insert(quoteTable(target.Table)).
		Columns(quoteColumns(target.ColumnNames())...).
		Select(sel)
	return p.finishInsert(ib, target, conflict)
}

func (p *Adapter) finishInsert(ib squirrel.InsertBuilder, target types.InsertTarget, conflict types.ConflictPolicy) (string, error) {
	switch conflict {
	case types.ConflictDoNothing:
		ib = ib.Suffix("ON CONFLICT DO NOTHING")
	case types.ConflictUpsert:
		if p.cockroach {
			query, _, err := ib.ToSql()
			if err != nil {
				return "", err
			}
			return "UPSERT" + strings.TrimPrefix(query, "INSERT"), nil
		}
		clause, err := onConflictUpdate(target)
		if err != nil {
			return "", err
		}
		ib = ib.Suffix(clause)
	}

	query, _, err := ib.ToSql()
	if err != nil {
		return "", err
	}
	return query, nil
}

func onConflictUpdate(target types.InsertTarget) (string, error) {
	if len(target.PrimaryKey) == 0 {
		return "", model.ErrConfiguration("upsert into %s requires a primary key", target.Table)
	}
	isKey := make(map[string]bool, len(target.PrimaryKey))
	for _, k := range target.PrimaryKey {
		isKey[k] = true
	}
	var sets []string
	for _, c := range target.Columns {
		if !isKey[c.Name] {
			q := pq.QuoteIdentifier(c.Name)
			sets = append(sets, q+" = excluded."+q)
		}
	}
	keys := strings.Join(quoteColumns(target.PrimaryKey), ", ")
	if len(sets) == 0 {
		return "ON CONFLICT (" + keys + ") DO NOTHING", nil
	}
	return "ON CONFLICT (" + keys + ") DO UPDATE SET " + strings.Join(sets, ", "), nil
}
