package export

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Rana718/seedbench/internal/generator"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
)

// RowSource yields generated rows in column order. *generator.Pass
// implements it.
type RowSource interface {
	Columns() []model.Column
	Next(ctx context.Context) ([]any, error)
}

// Encoder streams rows from src to w and returns the number of rows written.
type Encoder interface {
	Encode(ctx context.Context, w io.Writer, src RowSource, rows int64) (int64, error)
	// Extension is the file suffix of the encoded output, e.g. ".csv.gz".
	Extension() string
}

// Generate encodes table's row count of freshly generated rows.
func Generate(ctx context.Context, w io.Writer, enc Encoder, f *generator.Factory, table *model.Table) (int64, error) {
	rows, err := table.Rows()
	if err != nil {
		return 0, err
	}
	pass, err := f.NewPass(table)
	if err != nil {
		return 0, err
	}
	return enc.Encode(ctx, w, pass, rows)
}

// gzipWriter wraps w when enabled. The returned close function flushes the
// compressor; it is a no-op otherwise.
func gzipWriter(w io.Writer, enabled bool) (io.Writer, func() error) {
	if !enabled {
		return w, func() error { return nil }
	}
	zw := gzip.NewWriter(w)
	return zw, zw.Close
}

// FormatValue renders a generated value as text.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return base64.StdEncoding.EncodeToString(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case civil.Date:
		return v.String()
	case civil.Time:
		return v.String()
	case civil.DateTime:
		return v.Date.String() + " " + v.Time.String()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case uuid.UUID:
		return v.String()
	case []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(v)
}

func nextRow(ctx context.Context, src RowSource, written int64) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := src.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate row %d: %w", written+1, err)
	}
	return row, nil
}
