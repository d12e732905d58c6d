package loader

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Rana718/seedbench/internal/database/sqlite"
	"github.com/Rana718/seedbench/internal/ingest"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customersDDL = `CREATE TABLE customers (
	id INTEGER PRIMARY KEY,
	email VARCHAR(64) NOT NULL,
	balance DECIMAL(10,2)
)`

var customers = model.NewQualifiedName(sqlite.MainSchema, "customers")

type fixture struct {
	adapter *sqlite.Adapter
	db      *sql.DB
}

func openFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "load.db")
	a := sqlite.New()
	require.NoError(t, a.Connect(ctx, path))
	t.Cleanup(func() { a.Close() })
	_, err := a.Exec(ctx, customersDDL)
	require.NoError(t, err)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return fixture{adapter: a, db: db}
}

func (f fixture) count(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT count(*) FROM customers").Scan(&n))
	return n
}

type fakeDB struct {
	mu        sync.Mutex
	batches   int
	failures  []error
	arrays    [][][]*string
	arrayRows int64
}

var errTransient = errors.New("connection reset")

func (f *fakeDB) Exec(context.Context, string, ...any) (int64, error) { return 1, nil }

func (f *fakeDB) ExecBatch(_ context.Context, _ string, rows [][]any) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return nil, err
		}
	}
	counts := make([]int64, len(rows))
	for i := range counts {
		counts[i] = types.NoRowCount
	}
	return counts, nil
}

func (f *fakeDB) ExecArray(_ context.Context, _ string, columns [][]*string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.arrays = append(f.arrays, columns)
	return f.arrayRows, nil
}

func (f *fakeDB) IsTransient(err error) bool { return errors.Is(err, errTransient) }

func (f *fakeDB) InsertSQL(types.InsertTarget, types.ConflictPolicy) (string, error) {
	return "INSERT", nil
}

func (f *fakeDB) ArrayInsertSQL(types.InsertTarget, types.ConflictPolicy) (string, error) {
	return "INSERT ... unnest", nil
}

// execOnlyDB has no batch or array capability.
type execOnlyDB struct{}

func (execOnlyDB) Exec(context.Context, string, ...any) (int64, error) { return 1, nil }

func (execOnlyDB) IsTransient(error) bool { return false }

func (execOnlyDB) InsertSQL(types.InsertTarget, types.ConflictPolicy) (string, error) {
	return "INSERT", nil
}

func (execOnlyDB) ArrayInsertSQL(types.InsertTarget, types.ConflictPolicy) (string, error) {
	return "", nil
}

func TestBatchLoadDoNothing(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	l, err := New(ctx, Options{Kind: Batch, Table: customers, Conflict: types.ConflictDoNothing}, f.adapter, f.adapter)
	require.NoError(t, err)
	assert.Contains(t, l.Query(), "ON CONFLICT DO NOTHING")

	input := "id,email,balance\n1,a@example.com,1.50\n2,b@example.com,\n1,dup@example.com,3.00\n3,c@example.com,4.25\n"
	r := &ingest.Reader{ChunkSize: 2}
	res, err := r.Read(ctx, strings.NewReader(input), l)
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Consumed)
	assert.Equal(t, int64(3), res.Applied)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 3, f.count(t))

	var balance sql.NullString
	require.NoError(t, f.db.QueryRow("SELECT balance FROM customers WHERE id = 2").Scan(&balance))
	assert.False(t, balance.Valid, "empty field is stored as NULL")

	var email string
	require.NoError(t, f.db.QueryRow("SELECT email FROM customers WHERE id = 1").Scan(&email))
	assert.Equal(t, "a@example.com", email)
}

func TestRethrowStopsOnNonTransient(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	l, err := New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, f.adapter)
	require.NoError(t, err)

	input := "id,email,balance\n1,a@example.com,1\n2,b@example.com,2\n3,c@example.com,3\n1,dup@example.com,4\n5,e@example.com,5\n6,f@example.com,6\n"
	r := &ingest.Reader{ChunkSize: 2}
	res, err := r.Read(ctx, strings.NewReader(input), l)
	require.Error(t, err)

	var dae *model.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.False(t, dae.Transient)
	assert.Equal(t, int64(2), res.Applied)
	assert.Equal(t, 2, f.count(t), "the failing chunk is rolled back")
}

func TestIgnoreNonTransientContinues(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	policy := NewErrorPolicy()
	policy.SetNonTransient(Ignore)
	l, err := New(ctx, Options{Kind: Batch, Table: customers, Policy: policy}, f.adapter, f.adapter)
	require.NoError(t, err)

	input := "id,email,balance\n1,a@example.com,1\n2,b@example.com,2\n3,c@example.com,3\n1,dup@example.com,4\n5,e@example.com,5\n6,f@example.com,6\n"
	r := &ingest.Reader{ChunkSize: 2}
	res, err := r.Read(ctx, strings.NewReader(input), l)
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Consumed)
	assert.Equal(t, int64(4), res.Applied)
	assert.Equal(t, 4, f.count(t))
}

func TestLogAndContinueOnTransient(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	db := &fakeDB{failures: []error{errTransient, nil}}
	l, err := New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, db)
	require.NoError(t, err)

	chunk := [][]string{{"1", "a", "1"}, {"2", "b", "2"}}
	n, err := l.ProcessChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = l.ProcessChunk(ctx, chunk)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "rows without a count are counted as applied")
	assert.Equal(t, 2, db.batches)
}

func TestTransientRethrownWhenConfigured(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	db := &fakeDB{failures: []error{errTransient}}
	l, err := New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, db)
	require.NoError(t, err)
	l.Policy().SetTransient(Rethrow)

	_, err = l.ProcessChunk(ctx, [][]string{{"1", "a", "1"}})
	var dae *model.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.True(t, dae.Transient)
	assert.ErrorIs(t, err, errTransient)
}

func TestCancellationBypassesPolicy(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	policy := NewErrorPolicy()
	policy.SetTransient(Ignore)
	policy.SetNonTransient(Ignore)
	db := &fakeDB{failures: []error{context.Canceled}}
	l, err := New(ctx, Options{Kind: Batch, Table: customers, Policy: policy}, f.adapter, db)
	require.NoError(t, err)

	_, err = l.ProcessChunk(ctx, [][]string{{"1", "a", "1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestArrayTransposesColumns(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	db := &fakeDB{arrayRows: types.NoRowCount}
	l, err := New(ctx, Options{Kind: Array, Table: customers}, f.adapter, db)
	require.NoError(t, err)
	assert.Equal(t, "INSERT ... unnest", l.Query())

	n, err := l.ProcessChunk(ctx, [][]string{{"1", "a", ""}, {"2", "b", "3.5"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, db.arrays, 1)
	cols := db.arrays[0]
	require.Len(t, cols, 3)
	assert.Equal(t, "1", *cols[0][0])
	assert.Equal(t, "2", *cols[0][1])
	assert.Equal(t, "b", *cols[1][1])
	assert.Nil(t, cols[2][0])
	assert.Equal(t, "3.5", *cols[2][1])
}

func TestSingletonLoad(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	l, err := New(ctx, Options{Kind: Singleton, Table: customers, Conflict: types.ConflictDoNothing}, f.adapter, f.adapter)
	require.NoError(t, err)

	require.NoError(t, l.ProcessHeader(ctx, []string{"id", "email", "balance"}))
	n, err := l.ProcessChunk(ctx, [][]string{{"1", "a", "1"}, {"2", "b", "2"}, {"2", "c", "3"}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.count(t))
}

func TestHeaderReordersColumns(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	l, err := New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, f.adapter)
	require.NoError(t, err)

	require.NoError(t, l.ProcessHeader(ctx, []string{"email", "balance", "id"}))
	assert.Equal(t, []string{"email", "balance", "id"}, l.Target().ColumnNames())

	_, err = l.ProcessChunk(ctx, [][]string{{"x@example.com", "9", "7"}})
	require.NoError(t, err)
	var email string
	require.NoError(t, f.db.QueryRow("SELECT email FROM customers WHERE id = 7").Scan(&email))
	assert.Equal(t, "x@example.com", email)
}

func TestHeaderMismatch(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	l, err := New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, f.adapter)
	require.NoError(t, err)

	err = l.ProcessHeader(ctx, []string{"id", "email"})
	var sme *model.SchemaMismatchError
	require.True(t, errors.As(err, &sme))
	assert.Equal(t, 3, sme.Expected)
	assert.Equal(t, 2, sme.Actual)

	_, err = l.ProcessChunk(ctx, [][]string{{"1", "a"}})
	assert.True(t, errors.As(err, &sme))
}

func TestCapabilityErrors(t *testing.T) {
	ctx := context.Background()
	f := openFixture(t)
	var cfgErr *model.ConfigurationError

	_, err := New(ctx, Options{Kind: Array, Table: customers}, f.adapter, f.adapter)
	assert.True(t, errors.As(err, &cfgErr), "sqlite has no array inserts")

	_, err = New(ctx, Options{Kind: Batch, Table: customers}, f.adapter, execOnlyDB{})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = New(ctx, Options{Kind: Singleton, Table: customers}, f.adapter, execOnlyDB{})
	assert.NoError(t, err)

	_, err = New(ctx, Options{Kind: Batch, Table: model.NewQualifiedName(sqlite.MainSchema, "missing")}, f.adapter, f.adapter)
	assert.True(t, errors.As(err, &cfgErr))
}

func TestParseKindAndHandler(t *testing.T) {
	k, err := ParseKind("ARRAY")
	require.NoError(t, err)
	assert.Equal(t, Array, k)
	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Batch, k)
	_, err = ParseKind("copy")
	assert.Error(t, err)

	h, err := ParseHandler("log")
	require.NoError(t, err)
	assert.Equal(t, LogAndContinue, h)
	h, err = ParseHandler("ignore")
	require.NoError(t, err)
	assert.Equal(t, Ignore, h)
	_, err = ParseHandler("panic")
	assert.Error(t, err)
}

func TestErrorPolicyConcurrentUpdates(t *testing.T) {
	p := NewErrorPolicy()
	assert.Equal(t, PolicySnapshot{Transient: LogAndContinue, NonTransient: Rethrow}, p.Snapshot())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.SetTransient(Handler(j % 3))
				p.SetNonTransient(Handler((j + 1) % 3))
				_ = p.Snapshot()
			}
		}()
	}
	wg.Wait()
	p.SetTransient(Ignore)
	assert.Equal(t, Ignore, p.Snapshot().Transient)
}
