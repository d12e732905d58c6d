package mysql

import (
	"strings"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteTable(qn model.QualifiedName) string {
	if qn.Schema == "" {
		return quoteIdent(qn.Table)
	}
	return quoteIdent(qn.Schema) + "." + quoteIdent(qn.Table)
}

func (m *Adapter) InsertSQL(target types.InsertTarget, conflict types.ConflictPolicy) (string, error) {
	cols := make([]string, len(target.Columns))
	for i, c := range target.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	ib := m.qb.Insert(quoteTable(target.Table)).
		Columns(cols...).
		Values(make([]any, len(cols))...)

	switch conflict {
	case types.ConflictDoNothing:
		ib = ib.Options("IGNORE")
	case types.ConflictUpsert:
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = c + " = VALUES(" + c + ")"
		}
		ib = ib.Suffix("ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
	}

	query, _, err := ib.ToSql()
	if err != nil {
		return "", err
	}
	return query, nil
}

func (m *Adapter) ArrayInsertSQL(target types.InsertTarget, _ types.ConflictPolicy) (string, error) {
	return "", model.ErrConfiguration("array inserts into %s are not supported by MySQL", target.Table)
}
