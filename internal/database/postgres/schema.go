package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/jackc/pgx/v5"
)

var systemSchemas = []string{"pg_catalog", "information_schema", "crdb_internal", "pg_extension", "pg_toast"}

var categoryMap = map[string]types.Category{
	"bool": types.CategoryBoolean, "boolean": types.CategoryBoolean,
	"int2": types.CategorySmallInt, "smallint": types.CategorySmallInt,
	"int4": types.CategoryInteger, "integer": types.CategoryInteger,
	"int8": types.CategoryBigInt, "bigint": types.CategoryBigInt,
	"float4": types.CategoryFloat, "float8": types.CategoryFloat, "real": types.CategoryFloat,
	"numeric": types.CategoryDecimal, "decimal": types.CategoryDecimal,
	"varchar": types.CategoryChar, "bpchar": types.CategoryChar, "char": types.CategoryChar,
	"text": types.CategoryChar, "name": types.CategoryChar, "citext": types.CategoryChar,
	"date":        types.CategoryDate,
	"time":        types.CategoryTime, "timetz": types.CategoryTime,
	"timestamp":   types.CategoryTimestamp, "timestamptz": types.CategoryTimestamp,
	"bytea":       types.CategoryBinary, "bytes": types.CategoryBinary,
	"uuid":        types.CategoryUUID,
	"json":        types.CategoryJSON, "jsonb": types.CategoryJSON,
}

func categorize(udtName, dataType string) types.Category {
	if c, ok := categoryMap[strings.ToLower(udtName)]; ok {
		return c
	}
	if strings.EqualFold(dataType, "USER-DEFINED") {
		return types.CategoryEnum
	}
	return types.CategoryOther
}

func (p *Adapter) ListSchemas(ctx context.Context) ([]string, error) {
	query, args, err := p.qb.Select("schema_name").
		From("information_schema.schemata").
		Where(squirrel.NotEq{"schema_name": systemSchemas}).
		OrderBy("schema_name").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, model.ErrQuery(err)
		}
		schemas = append(schemas, strings.ToLower(name))
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return schemas, nil
}

func (p *Adapter) ListTables(ctx context.Context, schema string) ([]types.SchemaTable, error) {
	sb := p.qb.Select("table_schema", "table_name").
		From("information_schema.tables").
		Where(squirrel.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_schema", "table_name")
	if schema == model.Wildcard {
		sb = sb.Where(squirrel.NotEq{"table_schema": systemSchemas})
	} else {
		sb = sb.Where(squirrel.Eq{"table_schema": strings.ToLower(schema)})
	}

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
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

func (p *Adapter) ListColumns(ctx context.Context, table model.QualifiedName) ([]types.SchemaColumn, error) {
	hidden := "'NO'"
	if p.cockroach {
		hidden = "is_hidden"
	}
	query, args, err := p.qb.Select(
		"column_name",
		"udt_name",
		"data_type",
		"is_nullable",
		"column_default",
		"character_maximum_length",
		"numeric_precision",
		"numeric_scale",
		"ordinal_position",
		"COALESCE(is_generated, 'NEVER')",
		"COALESCE(is_identity, 'NO')",
		hidden,
	).
		From("information_schema.columns").
		Where(squirrel.Eq{"table_schema": table.Schema, "table_name": table.Table}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var columns []types.SchemaColumn
	for rows.Next() {
		var (
			column                                    types.SchemaColumn
			udtName, dataType, isNullable             string
			columnDefault                             sql.NullString
			charMaxLength, numericPrecision, numScale sql.NullInt64
			isGenerated, isIdentity, isHidden         string
		)
		err := rows.Scan(
			&column.Name,
			&udtName,
			&dataType,
			&isNullable,
			&columnDefault,
			&charMaxLength,
			&numericPrecision,
			&numScale,
			&column.Ordinal,
			&isGenerated,
			&isIdentity,
			&isHidden,
		)
		if err != nil {
			return nil, model.ErrQuery(err)
		}

		column.Name = strings.ToLower(column.Name)
		column.Type = strings.ToLower(udtName)
		column.Category = categorize(udtName, dataType)
		column.Nullable = isNullable == "YES"
		column.Default = columnDefault.String
		column.Generated = isGenerated != "NEVER" || isIdentity == "YES"
		column.Hidden = isHidden == "YES"
		switch {
		case charMaxLength.Valid:
			column.Size = int(charMaxLength.Int64)
		case numericPrecision.Valid:
			column.Size = int(numericPrecision.Int64)
		}
		if numScale.Valid {
			column.Scale = int(numScale.Int64)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return columns, nil
}

const primaryKeysQuery = `
	SELECT kcu.column_name, kcu.ordinal_position
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
	  ON tc.constraint_name = kcu.constraint_name
	 AND tc.table_schema = kcu.table_schema
	 AND tc.table_name = kcu.table_name
	WHERE tc.constraint_type = 'PRIMARY KEY'
	  AND tc.table_schema = $1
	  AND tc.table_name = $2
	ORDER BY kcu.ordinal_position
`

func (p *Adapter) ListPrimaryKeys(ctx context.Context, table model.QualifiedName) ([]types.PrimaryKey, error) {
	rows, err := p.pool.Query(ctx, primaryKeysQuery, table.Schema, table.Table)
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

// UNNEST with ordinality keeps composite key columns paired.
const foreignKeysQuery = `
	SELECT
		con.conname,
		src_attr.attname,
		tgt_ns.nspname,
		tgt_table.relname,
		tgt_attr.attname
	FROM pg_constraint con
	JOIN pg_class src_table ON con.conrelid = src_table.oid
	JOIN pg_namespace ns ON src_table.relnamespace = ns.oid
	CROSS JOIN LATERAL UNNEST(con.conkey, con.confkey) WITH ORDINALITY AS cols(src_col, tgt_col, ord)
	JOIN pg_attribute src_attr ON src_attr.attrelid = src_table.oid AND src_attr.attnum = cols.src_col
	JOIN pg_class tgt_table ON con.confrelid = tgt_table.oid
	JOIN pg_namespace tgt_ns ON tgt_table.relnamespace = tgt_ns.oid
	JOIN pg_attribute tgt_attr ON tgt_attr.attrelid = tgt_table.oid AND tgt_attr.attnum = cols.tgt_col
	WHERE ns.nspname = $1
	  AND src_table.relname = $2
	  AND con.contype = 'f'
	ORDER BY con.conname, cols.ord
`

func (p *Adapter) ListForeignKeys(ctx context.Context, table model.QualifiedName) ([]types.ForeignKey, error) {
	rows, err := p.pool.Query(ctx, foreignKeysQuery, table.Schema, table.Table)
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

func (p *Adapter) EnumLabels(ctx context.Context, typeName string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		WHERE t.typname = $1
		ORDER BY e.enumsortorder
	`, typeName)
	if err != nil {
		return nil, model.ErrQuery(err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, model.ErrQuery(err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, model.ErrQuery(err)
	}
	return labels, nil
}

func (p *Adapter) ShowCreateTable(ctx context.Context, table model.QualifiedName) (string, error) {
	if !p.cockroach {
		return "", model.ErrConfiguration("SHOW CREATE TABLE is only available on CockroachDB")
	}
	name := pgx.Identifier{table.Schema, table.Table}.Sanitize()
	var stmt string
	err := p.pool.QueryRow(ctx, "SELECT create_statement FROM [SHOW CREATE TABLE "+name+"]").Scan(&stmt)
	if err != nil {
		return "", model.ErrQuery(err)
	}
	return stmt, nil
}
