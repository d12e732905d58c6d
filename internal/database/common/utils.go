package common

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/Rana718/seedbench/internal/types"
)

// IsTransientCommon recognises driver independent transient failures:
// timeouts, broken connections and truncated reads.
func IsTransientCommon(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// SQLExecutor implements statement, batch and singleton execution on top of
// database/sql for providers without a native batch protocol.
type SQLExecutor struct {
	DB *sql.DB
}

func (e SQLExecutor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.NoRowCount, nil
	}
	return n, nil
}

// ExecBatch runs the prepared statement once per row inside one transaction
// and returns the per-row affected counts.
func (e SQLExecutor) ExecBatch(ctx context.Context, query string, rows [][]any) ([]int64, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	counts := make([]int64, len(rows))
	for i, row := range rows {
		res, err := stmt.ExecContext(ctx, row...)
		if err != nil {
			return nil, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = types.NoRowCount
		}
		counts[i] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return counts, nil
}

// QueryStrings runs a query returning one text column.
func QueryStrings(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, strings.ToLower(s))
	}
	return out, rows.Err()
}

// BaseType strips a length or precision suffix: "varchar(32)" gives "varchar".
func BaseType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if idx := strings.Index(t, "("); idx > 0 {
		t = strings.TrimSpace(t[:idx])
	}
	return t
}

// ParseEnumValues extracts the labels of a MySQL style "enum('a','b')" type.
func ParseEnumValues(colType string) []string {
	lower := strings.ToLower(colType)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(colType, ")") {
		return nil
	}
	inner := colType[5 : len(colType)-1]
	var values []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "'\"")
		if part != "" {
			values = append(values, part)
		}
	}
	return values
}
