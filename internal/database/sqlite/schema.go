package sqlite

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/Rana718/seedbench/internal/database/common"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

// categorize follows SQLite's declared-type affinity rules, refined for the
// common SQL type names.
func categorize(declared string) types.Category {
	t := strings.ToUpper(common.BaseType(declared))
	switch {
	case t == "":
		return types.CategoryOther
	case strings.Contains(t, "BOOL"):
		return types.CategoryBoolean
	case strings.Contains(t, "BIGINT"):
		return types.CategoryBigInt
	case strings.Contains(t, "SMALLINT") || strings.Contains(t, "TINYINT"):
		return types.CategorySmallInt
	case strings.Contains(t, "INT"):
		return types.CategoryInteger
	case strings.Contains(t, "UUID"):
		return types.CategoryUUID
	case strings.Contains(t, "JSON"):
		return types.CategoryJSON
	case strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") || strings.Contains(t, "TEXT"):
		return types.CategoryChar
	case strings.Contains(t, "BLOB"):
		return types.CategoryBinary
	case strings.Contains(t, "REAL") || strings.Contains(t, "FLOA") || strings.Contains(t, "DOUB"):
		return types.CategoryFloat
	case strings.Contains(t, "DEC") || strings.Contains(t, "NUMERIC"):
		return types.CategoryDecimal
	case strings.Contains(t, "DATETIME") || strings.Contains(t, "TIMESTAMP"):
		return types.CategoryTimestamp
	case strings.Contains(t, "DATE"):
		return types.CategoryDate
	case strings.Contains(t, "TIME"):
		return types.CategoryTime
	default:
		return types.CategoryOther
	}
}

// typeSize parses "varchar(32)" or "decimal(10,2)".
func typeSize(declared string) (size, scale int) {
	open := strings.Index(declared, "(")
	end := strings.LastIndex(declared, ")")
	if open < 0 || end < open {
		return 0, 0
	}
	parts := strings.Split(declared[open+1:end], ",")
	size, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		scale, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return size, scale
}

func (s *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	schemas, err := common.QueryStrings(ctx, s.db, "SELECT name FROM pragma_database_list ORDER BY seq")
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	return schemas, nil
}

func (s *Adapter) ListTables(ctx context.Context, schema string) ([]types.SchemaTable, error) {
	query, args, err := s.qb.Select("name").
		From("sqlite_master").
		Where("type = 'table' AND name NOT LIKE 'sqlite_%'").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	names, err := common.QueryStrings(ctx, s.db, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	if schema != model.Wildcard && schema != MainSchema && schema != model.DefaultSchema {
		return nil, nil
	}

	tables := make([]types.SchemaTable, len(names))
	for i, n := range names {
		tables[i] = types.SchemaTable{Schema: MainSchema, Name: n}
	}
	return tables, nil
}

func (s *Adapter) ListColumns(ctx context.Context, table model.QualifiedName) ([]types.SchemaColumn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", dflt_value, hidden FROM pragma_table_xinfo(?) ORDER BY cid`,
		table.Table)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var columns []types.SchemaColumn
	for rows.Next() {
		var (
			column   types.SchemaColumn
			declared string
			notNull  int
			hidden   int
			dflt     sql.NullString
		)
		if err := rows.Scan(&column.Ordinal, &column.Name, &declared, &notNull, &dflt, &hidden); err != nil {
			return nil, model.ErrQuery(err)
		}
		column.Name = strings.ToLower(column.Name)
		column.Type = strings.ToLower(declared)
		column.Category = categorize(declared)
		column.Size, column.Scale = typeSize(declared)
		column.Nullable = notNull == 0
		column.Default = dflt.String
		column.Hidden = hidden == 1
		column.Generated = hidden == 2 || hidden == 3
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return columns, nil
}

func (s *Adapter) ListPrimaryKeys(ctx context.Context, table model.QualifiedName) ([]types.PrimaryKey, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, pk FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk", table.Table)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var keys []types.PrimaryKey
	for rows.Next() {
		var pk types.PrimaryKey
		if err := rows.Scan(&pk.Column, &pk.Seq); err != nil {
			return nil, model.ErrQuery(err)
		}
		pk.Column = strings.ToLower(pk.Column)
		keys = append(keys, pk)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return keys, nil
}

func (s *Adapter) ListForeignKeys(ctx context.Context, table model.QualifiedName) ([]types.ForeignKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`, table.Table)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var keys []types.ForeignKey
	for rows.Next() {
		var (
			id       int
			fk       types.ForeignKey
			toColumn sql.NullString
		)
		if err := rows.Scan(&id, &fk.ReferencedTable, &fk.Column, &toColumn); err != nil {
			return nil, model.ErrQuery(err)
		}
		fk.Name = "fk_" + strconv.Itoa(id)
		fk.Column = strings.ToLower(fk.Column)
		fk.ReferencedSchema = MainSchema
		fk.ReferencedTable = strings.ToLower(fk.ReferencedTable)
		fk.ReferencedColumn = strings.ToLower(toColumn.String)
		keys = append(keys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return keys, nil
}

func (s *Adapter) EnumLabels(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s *Adapter) ShowCreateTable(ctx context.Context, table model.QualifiedName) (string, error) {
	var stmt string
	err := s.db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table.Table).Scan(&stmt)
	if err != nil {
		return "", model.ErrQuery(err)
	}
	return stmt, nil
}
