package sqlite

import (
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/lib/pq"
)

func (s *Adapter) InsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error) {
	cols := make([]string, len(target.Columns))
	for i, c := range target.Columns {
		cols[i] = pq.QuoteIdentifier(c.Name)
	}
	ib := s.qb.Insert(pq.QuoteIdentifier(target.Table.Table)).
		Columns(cols...).
		Values(make([]any, len(cols))...)

	switch conflict {
	case types.ConflictDoNothing:
		ib = ib.Suffix("ON CONFLICT DO NOTHING")
	case types.ConflictUpsert:
		ib = ib.Options("OR REPLACE")
	}

	query, _, err := ib.ToSql()
	if err != nil {
		return "", err
	}
	return query, nil
}

func (s *Adapter) ArrayInsertSQL(target types.InsertTarget, _ types.ConflictPolicy) (string, error) {
	return "", model.ErrConfiguration("array inserts into %s are not supported by SQLite", target.Table)
}
