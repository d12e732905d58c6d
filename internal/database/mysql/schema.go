package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/database/common"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
)

var systemSchemas = []string{"mysql", "sys", "performance_schema", "information_schema"}

var categoryMap = map[string]types.Category{
	"bit": types.CategoryBoolean, "bool": types.CategoryBoolean, "boolean": types.CategoryBoolean,
	"tinyint": types.CategorySmallInt, "smallint": types.CategorySmallInt,
	"mediumint": types.CategoryInteger, "int": types.CategoryInteger, "integer": types.CategoryInteger,
	"bigint": types.CategoryBigInt,
	"float":  types.CategoryFloat, "double": types.CategoryFloat, "real": types.CategoryFloat,
	"decimal": types.CategoryDecimal, "numeric": types.CategoryDecimal,
	"char": types.CategoryChar, "varchar": types.CategoryChar, "text": types.CategoryChar,
	"tinytext": types.CategoryChar, "mediumtext": types.CategoryChar, "longtext": types.CategoryChar,
	"date":     types.CategoryDate,
	"time":     types.CategoryTime,
	"datetime": types.CategoryTimestamp, "timestamp": types.CategoryTimestamp,
	"binary": types.CategoryBinary, "varbinary": types.CategoryBinary, "blob": types.CategoryBinary,
	"tinyblob": types.CategoryBinary, "mediumblob": types.CategoryBinary, "longblob": types.CategoryBinary,
	"json": types.CategoryJSON,
	"enum": types.CategoryEnum,
}

func categorize(dataType, columnType string) types.Category {
	if strings.EqualFold(columnType, "tinyint(1)") {
		return types.CategoryBoolean
	}
	if c, ok := categoryMap[strings.ToLower(dataType)]; ok {
		return c
	}
	return types.CategoryOther
}

func (m *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	query, args, err := m.qb.Select("schema_name").
		From("information_schema.schemata").
		Where(squirrel.NotEq{"schema_name": systemSchemas}).
		OrderBy("schema_name").
		ToSql()
	if err != nil {
		return nil, err
	}
	schemas, err := common.QueryStrings(ctx, m.db, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	return schemas, nil
}

func (m *Adapter) ListTables(ctx context.Context, schema string) ([]types.SchemaTable, error) {
	sb := m.qb.Select("table_schema", "table_name").
		From("information_schema.tables").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_schema", "table_name")
	if schema == model.Wildcard {
		sb = sb.Where(squirrel.NotEq{"table_schema": systemSchemas})
	} else {
		sb = sb.Where(squirrel.Eq{"table_schema": schema})
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var tables []types.SchemaTable
	for rows.Next() {
		var t types.SchemaTable
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, model.ErrQuery(err)
		}
		t.Schema = strings.ToLower(t.Schema)
		t.Name = strings.ToLower(t.Name)
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return tables, nil
}

func (m *Adapter) ListColumns(ctx context.Context, table model.QualifiedName) ([]types.SchemaColumn, error) {
	query, args, err := m.qb.Select(
		"column_name",
		"data_type",
		"column_type",
		"is_nullable",
		"column_default",
		"character_maximum_length",
		"numeric_precision",
		"numeric_scale",
		"ordinal_position",
		"extra",
	).
		From("information_schema.columns").
		Where(squirrel.Eq{"table_schema": table.Schema, "table_name": table.Table}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var columns []types.SchemaColumn
	for rows.Next() {
		var (
			column                              types.SchemaColumn
			dataType, columnType, isNullable    string
			columnDefault, extra                sql.NullString
			charMax, numPrecision, numericScale sql.NullInt64
		)
		if err := rows.Scan(&column.Name, &dataType, &columnType, &isNullable, &columnDefault,
			&charMax, &numPrecision, &numericScale, &column.Ordinal, &extra); err != nil {
			return nil, model.ErrQuery(err)
		}

		column.Name = strings.ToLower(column.Name)
		column.Category = categorize(dataType, columnType)
		column.Type = strings.ToLower(dataType)
		if column.Category == types.CategoryEnum {
			column.Type = columnType
		}
		column.Nullable = isNullable == "YES"
		column.Default = columnDefault.String
		lowerExtra := strings.ToLower(extra.String)
		column.Generated = strings.Contains(lowerExtra, "auto_increment") || strings.Contains(lowerExtra, "generated")
		switch {
		case charMax.Valid:
			column.Size = int(charMax.Int64)
		case numPrecision.Valid:
			column.Size = int(numPrecision.Int64)
		}
		if numericScale.Valid {
			column.Scale = int(numericScale.Int64)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return columns, nil
}

func (m *Adapter) ListPrimaryKeys(ctx context.Context, table model.QualifiedName) ([]types.PrimaryKey, error) {
	query, args, err := m.qb.Select("column_name", "ordinal_position").
		From("information_schema.key_column_usage").
		Where(squirrel.Eq{"table_schema": table.Schema, "table_name": table.Table, "constraint_name": "PRIMARY"}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
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

func (m *Adapter) ListForeignKeys(ctx context.Context, table model.QualifiedName) ([]types.ForeignKey, error) {
	query, args, err := m.qb.Select(
		"constraint_name",
		"column_name",
		"referenced_table_schema",
		"referenced_table_name",
		"referenced_column_name",
	).
		From("information_schema.key_column_usage").
		Where(squirrel.Eq{"table_schema": table.Schema, "table_name": table.Table}).
		Where(squirrel.NotEq{"referenced_table_name": nil}).
		OrderBy("constraint_name", "ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var keys []types.ForeignKey
	for rows.Next() {
		var fk types.ForeignKey
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedSchema, &fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, model.ErrQuery(err)
		}
		fk.Column = strings.ToLower(fk.Column)
		fk.ReferencedSchema = strings.ToLower(fk.ReferencedSchema)
		fk.ReferencedTable = strings.ToLower(fk.ReferencedTable)
		fk.ReferencedColumn = strings.ToLower(fk.ReferencedColumn)
		keys = append(keys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return keys, nil
}

// EnumLabels reads the labels from the column type itself; MySQL has no
// named enum types.
func (m *Adapter) EnumLabels(_ context.Context, typeName string) ([]string, error) {
	return common.ParseEnumValues(typeName), nil
}

func (m *Adapter) ShowCreateTable(ctx context.Context, table model.QualifiedName) (string, error) {
	var name, stmt string
	err := m.db.QueryRowContext(ctx, "SHOW CREATE TABLE "+quoteTable(table)).Scan(&name, &stmt)
	if err != nil {
		return "", model.ErrQuery(err)
	}
	return stmt, nil
}
