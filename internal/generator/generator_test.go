package generator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Rana718/seedbench/internal/expr"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAllocator struct {
	mu    sync.Mutex
	next  int64
	calls int
	sizes []int
	err   error
}

func (a *fakeAllocator) AllocateIDs(_ context.Context, _ model.IdentityKind, _ string, n int) ([]int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.sizes = append(a.sizes, n)
	if a.err != nil {
		return nil, a.err
	}
	out := make([]int64, n)
	for i := range out {
		a.next++
		out[i] = a.next
	}
	return out, nil
}

func ptr[T any](v T) *T { return &v }

func newFactory(ids *fakeAllocator) *Factory {
	if ids == nil {
		return NewFactory(nil, expr.NewEnv(11), nil)
	}
	return NewFactory(nil, expr.NewEnv(11), ids)
}

func drain(t *testing.T, g ValueGenerator, n int) []any {
	t.Helper()
	out := make([]any, n)
	for i := range out {
		v, err := g.Next(context.Background())
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func TestSequenceWraps(t *testing.T) {
	g, err := newFactory(nil).New(model.Column{
		Name:     "id",
		Identity: &model.Identity{Kind: model.IdentitySequence, From: ptr(int64(1)), To: ptr(int64(5)), Step: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5), int64(1), int64(2)}, drain(t, g, 7))
}

func TestSequenceDefaults(t *testing.T) {
	g, err := newFactory(nil).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentitySequence, Step: -4}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, drain(t, g, 3))

	g, err = newFactory(nil).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentitySequence, From: ptr(int64(10)), Step: 5}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(10), int64(15), int64(20)}, drain(t, g, 3))
}

func TestUUIDIdentity(t *testing.T) {
	g, err := newFactory(nil).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityUUID}})
	require.NoError(t, err)
	vals := drain(t, g, 2)
	assert.IsType(t, uuid.UUID{}, vals[0])
	assert.NotEqual(t, vals[0], vals[1])
}

func TestBlockIdentityRefills(t *testing.T) {
	ids := &fakeAllocator{}
	g, err := newFactory(ids).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityUnordered, BatchSize: 4}})
	require.NoError(t, err)

	vals := drain(t, g, 10)
	for i, v := range vals {
		assert.Equal(t, int64(i+1), v)
	}
	assert.Equal(t, 3, ids.calls)
	assert.Equal(t, []int{4, 4, 4}, ids.sizes)
}

func TestBlockIdentityConcurrent(t *testing.T) {
	ids := &fakeAllocator{}
	g, err := newFactory(ids).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityOrdered}})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				v, err := g.Next(context.Background())
				assert.NoError(t, err)
				mu.Lock()
				seen[v.(int64)] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
	assert.Equal(t, []int{512, 512, 512, 512}, ids.sizes)
}

func TestBlockIdentityErrors(t *testing.T) {
	_, err := newFactory(nil).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityOrdered}})
	var cfg *model.ConfigurationError
	assert.True(t, errors.As(err, &cfg))

	_, err = newFactory(&fakeAllocator{}).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityDatabaseSequence}})
	assert.True(t, errors.As(err, &cfg))

	boom := errors.New("boom")
	g, err := newFactory(&fakeAllocator{err: boom}).New(model.Column{Name: "id", Identity: &model.Identity{Kind: model.IdentityDatabaseSequence, Sequence: "s"}})
	require.NoError(t, err)
	_, err = g.Next(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPrecedence(t *testing.T) {
	f := newFactory(nil)
	col := model.Column{
		Name:       "c",
		Range:      &model.Range{Kind: model.RangeDate, From: "2024-01-01", To: "2024-01-01"},
		Identity:   &model.Identity{Kind: model.IdentitySequence},
		Constant:   ptr("k"),
		Expression: "randomBoolean()",
		ValueSet:   &model.ValueSet{Values: []any{"v"}},
	}

	steps := []struct {
		clear func(*model.Column)
		want  func(t *testing.T, v any)
	}{
		{func(c *model.Column) {}, func(t *testing.T, v any) { assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 1}, v) }},
		{func(c *model.Column) { c.Range = nil }, func(t *testing.T, v any) { assert.Equal(t, int64(1), v) }},
		{func(c *model.Column) { c.Identity = nil }, func(t *testing.T, v any) { assert.Equal(t, "k", v) }},
		{func(c *model.Column) { c.Constant = nil }, func(t *testing.T, v any) { assert.IsType(t, true, v) }},
		{func(c *model.Column) { c.Expression = "" }, func(t *testing.T, v any) { assert.Equal(t, "v", v) }},
	}
	for _, step := range steps {
		step.clear(&col)
		g, err := f.New(col)
		require.NoError(t, err)
		step.want(t, drain(t, g, 1)[0])
	}

	col.ValueSet = nil
	_, err := f.New(col)
	var cfg *model.ConfigurationError
	require.True(t, errors.As(err, &cfg))
	assert.Contains(t, cfg.Message, `"c"`)
}

func TestEmptyConstantFallsThrough(t *testing.T) {
	g, err := newFactory(nil).New(model.Column{Name: "c", Constant: ptr(""), ValueSet: &model.ValueSet{Values: []any{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, "x", drain(t, g, 1)[0])
}

func TestWeightedValueSet(t *testing.T) {
	g, err := newFactory(nil).New(model.Column{Name: "c", ValueSet: &model.ValueSet{
		Values:  []any{"A", "B", "C"},
		Weights: []float64{1, 1, 8},
	}})
	require.NoError(t, err)

	const n = 10000
	counts := map[any]int{}
	for _, v := range drain(t, g, n) {
		counts[v]++
	}
	assert.InDelta(t, 0.8, float64(counts["C"])/n, 0.05)
	assert.InDelta(t, 0.1, float64(counts["A"])/n, 0.05)
	assert.InDelta(t, 0.1, float64(counts["B"])/n, 0.05)
	assert.Equal(t, n, counts["A"]+counts["B"]+counts["C"])
}

func TestValueSetValidation(t *testing.T) {
	f := newFactory(nil)
	_, err := f.New(model.Column{Name: "c", ValueSet: &model.ValueSet{}})
	assert.Error(t, err)
	_, err = f.New(model.Column{Name: "c", ValueSet: &model.ValueSet{Values: []any{1, 2}, Weights: []float64{1}}})
	assert.Error(t, err)
}

func TestRangeBounds(t *testing.T) {
	f := newFactory(nil)

	g, err := f.New(model.Column{Name: "d", Range: &model.Range{Kind: model.RangeDate, From: "2024-02-27", To: "2024-03-02"}})
	require.NoError(t, err)
	lo, hi := civil.Date{Year: 2024, Month: 2, Day: 27}, civil.Date{Year: 2024, Month: 3, Day: 2}
	for _, v := range drain(t, g, 300) {
		d := v.(civil.Date)
		assert.False(t, d.Before(lo) || d.After(hi), "%s out of range", d)
	}

	g, err = f.New(model.Column{Name: "t", Range: &model.Range{Kind: model.RangeTime, From: "08:00:00", To: "09:00:00"}})
	require.NoError(t, err)
	for _, v := range drain(t, g, 300) {
		tm := v.(civil.Time)
		assert.True(t, tm.Hour == 8 || (tm.Hour == 9 && tm.Minute == 0 && tm.Second == 0), "%s out of range", tm)
	}

	g, err = f.New(model.Column{Name: "ts", Range: &model.Range{Kind: model.RangeDateTime, From: "2024-01-01 00:00:00", To: "2024-01-01T23:59:59"}})
	require.NoError(t, err)
	for _, v := range drain(t, g, 300) {
		assert.Equal(t, civil.Date{Year: 2024, Month: 1, Day: 1}, v.(civil.DateTime).Date)
	}
}

func TestRangeValidation(t *testing.T) {
	f := newFactory(nil)
	for _, r := range []model.Range{
		{Kind: model.RangeDate, From: "2024-13-01", To: "2024-12-01"},
		{Kind: model.RangeDate, From: "2024-12-01", To: "2024-01-01"},
		{Kind: "month", From: "1", To: "2"},
	} {
		_, err := f.New(model.Column{Name: "r", Range: &r})
		var cfg *model.ConfigurationError
		assert.True(t, errors.As(err, &cfg), "%+v", r)
	}
}

func TestExpressionCompileErrorSurfaces(t *testing.T) {
	_, err := newFactory(nil).New(model.Column{Name: "c", Expression: "nope()"})
	var ee *model.EvaluationError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, model.UndefinedFunction, ee.Kind)
}

func TestPassBindsRowNumber(t *testing.T) {
	table := &model.Table{Schema: "public", Name: "t", Columns: []model.Column{
		{Name: "n", Expression: "rowNumber()"},
		{Name: "secret", Hidden: true},
		{Name: "k", Constant: ptr("x")},
	}}
	p, err := newFactory(nil).NewPass(table)
	require.NoError(t, err)
	require.Len(t, p.Columns(), 2)

	for i := int64(1); i <= 3; i++ {
		row, err := p.Next(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []any{i, "x"}, row)
	}
	assert.Equal(t, int64(3), p.Row())

	_, err = newFactory(nil).New(model.Column{Name: "n", Expression: "rowNumber()"})
	assert.Error(t, err, "rowNumber is only bound inside a pass")
}

func TestPassSharesCompiledExpressions(t *testing.T) {
	table := &model.Table{Schema: "public", Name: "t", Columns: []model.Column{
		{Name: "a", Expression: "randomInt(1, 9)"},
		{Name: "b", Expression: "randomInt(1, 9)"},
		{Name: "n", Expression: "rowNumber()"},
	}}
	f := newFactory(nil)
	first, err := f.NewPass(table)
	require.NoError(t, err)
	second, err := f.NewPass(table)
	require.NoError(t, err)

	assert.Same(t, first.gens[0].(*exprGen).program, first.gens[1].(*exprGen).program)
	assert.NotSame(t, first.gens[2].(*exprGen).program, second.gens[2].(*exprGen).program)

	for range 2 {
		_, err := first.Next(context.Background())
		require.NoError(t, err)
	}
	row, err := second.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), row[2], "each pass counts its own rows")
}

func TestPassNamesTableOnError(t *testing.T) {
	table := &model.Table{Schema: "public", Name: "orders", Columns: []model.Column{{Name: "fk"}}}
	_, err := newFactory(nil).NewPass(table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public.orders")
	assert.Contains(t, err.Error(), `"fk"`)
}
