package export

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rana718/seedbench/internal/expr"
	"github.com/Rana718/seedbench/internal/generator"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/hamba/avro/v2/ocf"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func ordersTable(count string) *model.Table {
	return &model.Table{Schema: "public", Name: "orders", Count: count, Columns: []model.Column{
		{Name: "id", Identity: &model.Identity{Kind: model.IdentitySequence, From: ptr(int64(1)), Step: 1}},
		{Name: "email", Expression: "randomEmail()"},
		{Name: "qty", Expression: "randomInt(1, 9)"},
		{Name: "internal", Hidden: true},
		{Name: "status", ValueSet: &model.ValueSet{Values: []any{"new", "paid"}}},
	}}
}

func newPass(t *testing.T, table *model.Table) *generator.Pass {
	t.Helper()
	p, err := generator.NewFactory(nil, expr.NewEnv(5), nil).NewPass(table)
	require.NoError(t, err)
	return p
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := &CSVEncoder{Delimiter: "|", Header: true}
	n, err := enc.Encode(context.Background(), &buf, newPass(t, ordersTable("1000")), 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1001)
	assert.Equal(t, "id|email|qty|status", lines[0])
	for i, line := range lines[1:] {
		fields := strings.Split(line, "|")
		require.Len(t, fields, 4, "line %d", i+1)
		assert.Equal(t, FormatValue(int64(i+1)), fields[0])
	}
}

func TestCSVQuoting(t *testing.T) {
	table := &model.Table{Schema: "public", Name: "q", Columns: []model.Column{
		{Name: "a", Constant: ptr(`say "hi"`)},
		{Name: "b", Expression: "null"},
	}}
	var buf bytes.Buffer
	enc := &CSVEncoder{Delimiter: ",", Quote: `"`}
	_, err := enc.Encode(context.Background(), &buf, newPass(t, table), 2)
	require.NoError(t, err)
	assert.Equal(t, "\"say \"\"hi\"\"\",\n\"say \"\"hi\"\"\",\n", buf.String())
}

func TestCSVGzip(t *testing.T) {
	var buf bytes.Buffer
	enc := &CSVEncoder{Delimiter: ",", Header: true, Gzip: true}
	assert.Equal(t, ".csv.gz", enc.Extension())
	_, err := enc.Encode(context.Background(), &buf, newPass(t, ordersTable("10")), 10)
	require.NoError(t, err)

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, 11, strings.Count(string(plain), "\n"))
	assert.True(t, strings.HasPrefix(string(plain), "id,email,qty,status\n"))
}

// failingWriter accepts limit writes and fails afterwards.
type failingWriter struct {
	limit int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n >= w.limit {
		return 0, errors.New("disk full")
	}
	w.n++
	return len(p), nil
}

func TestCSVWriteFailureReportsRow(t *testing.T) {
	enc := &CSVEncoder{Delimiter: ",", Header: true}
	n, err := enc.Encode(context.Background(), &failingWriter{limit: 6}, newPass(t, ordersTable("100")), 100)
	var ioErr *model.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, int64(5), ioErr.Row)
	assert.Equal(t, int64(5), n)
	assert.Contains(t, err.Error(), "after row 5")
}

func TestEncodeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCSVEncoder().Encode(ctx, io.Discard, newPass(t, ordersTable("5")), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAvroRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		enc  *AvroEncoder
	}{
		{"plain", &AvroEncoder{}},
		{"deflate", &AvroEncoder{Codec: "deflate"}},
		{"gzip", &AvroEncoder{Gzip: true}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := tc.enc.Encode(context.Background(), &buf, newPass(t, ordersTable("25")), 25)
			require.NoError(t, err)
			assert.Equal(t, int64(25), n)

			var r io.Reader = &buf
			if tc.enc.Gzip {
				zr, err := gzip.NewReader(&buf)
				require.NoError(t, err)
				r = zr
			}
			dec, err := ocf.NewDecoder(r)
			require.NoError(t, err)
			var count int
			for dec.HasNext() {
				var rec map[string]any
				require.NoError(t, dec.Decode(&rec))
				count++
				assert.Equal(t, FormatValue(int64(count)), rec["id"])
				assert.Contains(t, rec["email"], "@")
				assert.NotContains(t, rec, "internal")
			}
			require.NoError(t, dec.Error())
			assert.Equal(t, 25, count)
		})
	}
}

// limitWriter keeps whole writes until limit bytes would be exceeded and
// rejects everything after that.
type limitWriter struct {
	buf   bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.buf.Len()+len(p) > w.limit {
		return 0, errors.New("disk full")
	}
	return w.buf.Write(p)
}

func TestAvroWriteFailureReportsFlushedRow(t *testing.T) {
	w := &limitWriter{limit: 2000}
	enc := &AvroEncoder{BlockRows: 10}
	n, err := enc.Encode(context.Background(), w, newPass(t, ordersTable("100")), 100)

	var ioErr *model.IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, ioErr.Row, n)
	assert.Positive(t, ioErr.Row)
	assert.Less(t, ioErr.Row, int64(100))
	assert.Zero(t, ioErr.Row%10, "failures are reported at block boundaries")

	dec, err := ocf.NewDecoder(&w.buf)
	require.NoError(t, err)
	var count int64
	for dec.HasNext() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		count++
	}
	assert.Equal(t, ioErr.Row, count, "every reported row is readable")
}

func TestAvroUnknownCodec(t *testing.T) {
	_, err := (&AvroEncoder{Codec: "lz77"}).Encode(context.Background(), io.Discard, newPass(t, ordersTable("1")), 1)
	var cfg *model.ConfigurationError
	assert.True(t, errors.As(err, &cfg))
}

func TestRecordSchemaNames(t *testing.T) {
	schema, fields, err := RecordSchema("my-table", []model.Column{{Name: "1st"}, {Name: "a b"}, {Name: "a_b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"_1st", "a_b", "a_b_2"}, fields)
	assert.Contains(t, schema, `"name":"my_table"`)
}

func TestFormatValue(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(-4), "-4"},
		{2.5, "2.5"},
		{true, "true"},
		{[]byte{0xff, 0x00}, "/wA="},
		{civil.Date{Year: 2024, Month: 2, Day: 29}, "2024-02-29"},
		{civil.Time{Hour: 7, Minute: 5, Second: 3}, "07:05:03"},
		{civil.DateTime{Date: civil.Date{Year: 2024, Month: 1, Day: 2}, Time: civil.Time{Hour: 3}}, "2024-01-02 03:00:00"},
		{id, "6ba7b810-9dad-11d1-80b4-00c04fd430c8"},
		{[]any{"a", int64(1)}, `["a",1]`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatValue(tc.in))
	}
}

func TestImportIntoString(t *testing.T) {
	stmt, err := NewImportInto(ordersTable("1"), FormatCSV,
		[]string{"nodelocal://1/b.csv", "nodelocal://1/a.csv"},
		map[string]string{"skip": "1", "delimiter": "|", "detached": BlankOption, "nullif": ""})
	require.NoError(t, err)
	assert.Equal(t,
		"IMPORT INTO public.orders(id, email, qty, status) CSV DATA ('nodelocal://1/a.csv', 'nodelocal://1/b.csv') "+
			"WITH delimiter = '|', detached, nullif = '', skip = '1';",
		stmt.String())
}

func TestImportIntoValidation(t *testing.T) {
	var cfg *model.ConfigurationError
	_, err := NewImportInto(ordersTable("1"), FormatCSV, nil, nil)
	assert.True(t, errors.As(err, &cfg))
	_, err = NewImportInto(ordersTable("1"), "PARQUET", []string{"a"}, nil)
	assert.True(t, errors.As(err, &cfg))
	_, err = NewImportInto(ordersTable("1"), FormatCSV, []string{"a"}, map[string]string{"bogus": "1"})
	assert.True(t, errors.As(err, &cfg))

	stmt, err := NewImportInto(ordersTable("1"), FormatAvro, []string{"s3://b/o.avro"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "IMPORT INTO public.orders(id, email, qty, status) AVRO DATA ('s3://b/o.avro');", stmt.String())
}

func TestWriterWritesOneFilePerTable(t *testing.T) {
	dir := t.TempDir()
	customers := &model.Table{Schema: "public", Name: "customers", Count: "20", Columns: []model.Column{
		{Name: "id", Identity: &model.Identity{Kind: model.IdentitySequence}},
	}}
	var progress bytes.Buffer
	w := &Writer{
		Dir:      dir,
		Encoder:  &CSVEncoder{Delimiter: ",", Header: true, Gzip: true},
		Factory:  generator.NewFactory(nil, expr.NewEnv(1), nil),
		Progress: &progress,
	}
	paths, err := w.WriteTables(context.Background(), []*model.Table{customers, ordersTable("1k")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "public.customers.csv.gz"),
		filepath.Join(dir, "public.orders.csv.gz"),
	}, paths)

	f, err := os.Open(paths[1])
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, 1001, strings.Count(string(data), "\n"))
	assert.NotEmpty(t, progress.String())
}

func TestWriterRejectsBadRowCount(t *testing.T) {
	w := &Writer{Dir: t.TempDir(), Encoder: NewCSVEncoder(), Factory: generator.NewFactory(nil, nil, nil)}
	_, err := w.WriteTables(context.Background(), []*model.Table{ordersTable("many")})
	var cfg *model.ConfigurationError
	assert.True(t, errors.As(err, &cfg))
}

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "data.db")
	bench := ordersTable("40")
	bench.Schema = "bench"
	written, err := WriteSQLite(context.Background(), path, []*model.Table{ordersTable("30"), bench},
		generator.NewFactory(nil, expr.NewEnv(2), nil))
	require.NoError(t, err)
	assert.Equal(t, int64(30), written[model.NewQualifiedName("public", "orders")])

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "bench_orders"`).Scan(&count))
	assert.Equal(t, 40, count)
	var maxID string
	require.NoError(t, db.QueryRow(`SELECT MAX(CAST(id AS INTEGER)) FROM "orders"`).Scan(&maxID))
	assert.Equal(t, "30", maxID)
}
