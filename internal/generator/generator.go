package generator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Rana718/seedbench/internal/database"
	"github.com/Rana718/seedbench/internal/expr"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/golang-sql/civil"
	"github.com/google/uuid"
)

// ValueGenerator yields one column value per call.
type ValueGenerator interface {
	Next(ctx context.Context) (any, error)
}

// Factory turns column definitions into value generators.
type Factory struct {
	Registry *expr.Registry
	Env      *expr.Env
	// IDs serves database_sequence, ordered and unordered identities. May be
	// nil when no such column is generated.
	IDs database.IDAllocator

	eval *expr.Evaluator
}

func NewFactory(reg *expr.Registry, env *expr.Env, ids database.IDAllocator) *Factory {
	if reg == nil {
		reg = expr.Builtins()
	}
	if env == nil {
		env = expr.NewEnv(0)
	}
	return &Factory{Registry: reg, Env: env, IDs: ids, eval: expr.NewEvaluator(reg, env)}
}

// New picks a generator by precedence: range, identity, constant,
// expression, value set.
func (f *Factory) New(col model.Column) (ValueGenerator, error) {
	switch {
	case col.Range != nil:
		return newRangeGen(col.Name, *col.Range, f.Env)
	case col.Identity != nil:
		return f.identity(col.Name, *col.Identity)
	case col.Constant != nil && *col.Constant != "":
		return constGen{value: *col.Constant}, nil
	case col.Expression != "":
		p, err := f.eval.Program(col.Expression, expr.TypeAny)
		if err != nil {
			return nil, err
		}
		return &exprGen{program: p, env: f.Env}, nil
	case col.ValueSet != nil:
		return newValueSetGen(col.Name, *col.ValueSet, f.Env)
	}
	return nil, model.ErrConfiguration("no value generator for column %q", col.Name)
}

func (f *Factory) identity(column string, id model.Identity) (ValueGenerator, error) {
	switch id.Kind {
	case model.IdentitySequence:
		return newSequenceGen(id), nil
	case model.IdentityUUID:
		return uuidGen{}, nil
	case model.IdentityDatabaseSequence, model.IdentityOrdered, model.IdentityUnordered:
		if f.IDs == nil {
			return nil, model.ErrConfiguration("column %q: %s identity needs a database connection", column, id.Kind)
		}
		if id.Kind == model.IdentityDatabaseSequence && id.Sequence == "" {
			return nil, model.ErrConfiguration("column %q: database_sequence identity needs a sequence name", column)
		}
		size := id.BatchSize
		if size <= 0 {
			size = model.DefaultIdentityBatch
		}
		return &blockGen{ids: f.IDs, kind: id.Kind, sequence: id.Sequence, size: size}, nil
	}
	return nil, model.ErrConfiguration("column %q: unknown identity kind %q", column, id.Kind)
}

type constGen struct {
	value string
}

func (g constGen) Next(context.Context) (any, error) { return g.value, nil }

type uuidGen struct{}

func (uuidGen) Next(context.Context) (any, error) { return uuid.New(), nil }

type sequenceGen struct {
	mu    sync.Mutex
	start int64
	stop  int64
	step  int64
	next  int64
}

func newSequenceGen(id model.Identity) *sequenceGen {
	g := &sequenceGen{start: 1, stop: math.MaxInt64, step: max(1, id.Step)}
	if id.From != nil {
		g.start = *id.From
	}
	if id.To != nil {
		g.stop = *id.To
	}
	g.next = g.start
	return g
}

// Next returns the current value and wraps to start once the following
// value would pass stop.
func (g *sequenceGen) Next(context.Context) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.next
	if v > g.stop-g.step {
		g.next = g.start
	} else {
		g.next = v + g.step
	}
	return v, nil
}

type blockGen struct {
	ids      database.IDAllocator
	kind     model.IdentityKind
	sequence string
	size     int

	mu    sync.Mutex
	block []int64
}

func (g *blockGen) Next(ctx context.Context) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.block) == 0 {
		ids, err := g.ids.AllocateIDs(ctx, g.kind, g.sequence, g.size)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %s ids: %w", g.kind, err)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("failed to allocate %s ids: empty block", g.kind)
		}
		g.block = ids
	}
	v := g.block[0]
	g.block = g.block[1:]
	return v, nil
}

type exprGen struct {
	program *expr.Program
	env     *expr.Env
}

func (g *exprGen) Next(context.Context) (any, error) { return g.program.Eval(g.env) }

type valueSetGen struct {
	values  []any
	weights []float64
	env     *expr.Env
}

func newValueSetGen(column string, vs model.ValueSet, env *expr.Env) (*valueSetGen, error) {
	if len(vs.Values) == 0 {
		return nil, model.ErrConfiguration("column %q: value set is empty", column)
	}
	if len(vs.Weights) > 0 && len(vs.Weights) != len(vs.Values) {
		return nil, model.ErrConfiguration("column %q: %d weights for %d values", column, len(vs.Weights), len(vs.Values))
	}
	return &valueSetGen{values: vs.Values, weights: vs.Weights, env: env}, nil
}

func (g *valueSetGen) Next(context.Context) (any, error) {
	if len(g.weights) == 0 {
		return g.values[g.env.Rand.IntN(len(g.values))], nil
	}
	i, err := expr.WeightedIndex(g.env, g.weights)
	if err != nil {
		return nil, err
	}
	return g.values[i], nil
}

type rangeGen struct {
	kind     model.RangeKind
	from, to time.Time
	env      *expr.Env
}

func newRangeGen(column string, r model.Range, env *expr.Env) (*rangeGen, error) {
	g := &rangeGen{kind: r.Kind, env: env}
	var err error
	switch r.Kind {
	case model.RangeDate:
		g.from, g.to, err = parseBounds(r, func(s string) (time.Time, error) {
			d, err := civil.ParseDate(s)
			return d.In(time.UTC), err
		})
	case model.RangeTime:
		g.from, g.to, err = parseBounds(r, func(s string) (time.Time, error) {
			t, err := civil.ParseTime(s)
			return civil.DateTime{Date: civil.Date{Year: 2000, Month: 1, Day: 1}, Time: t}.In(time.UTC), err
		})
	case model.RangeDateTime:
		g.from, g.to, err = parseBounds(r, func(s string) (time.Time, error) {
			dt, err := civil.ParseDateTime(strings.Replace(s, " ", "T", 1))
			return dt.In(time.UTC), err
		})
	default:
		return nil, model.ErrConfiguration("column %q: unknown range kind %q", column, r.Kind)
	}
	if err != nil {
		return nil, model.ErrConfiguration("column %q: %v", column, err)
	}
	if g.to.Before(g.from) {
		return nil, model.ErrConfiguration("column %q: range ends before it starts", column)
	}
	return g, nil
}

func parseBounds(r model.Range, parse func(string) (time.Time, error)) (time.Time, time.Time, error) {
	from, err := parse(r.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid range start %q: %w", r.From, err)
	}
	to, err := parse(r.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid range end %q: %w", r.To, err)
	}
	return from, to, nil
}

// Next draws uniformly from the inclusive range at the kind's resolution.
func (g *rangeGen) Next(context.Context) (any, error) {
	switch g.kind {
	case model.RangeDate:
		days := int64(g.to.Sub(g.from).Hours() / 24)
		return civil.DateOf(g.from.AddDate(0, 0, int(g.env.Rand.Int64N(days+1)))), nil
	case model.RangeTime:
		secs := int64(g.to.Sub(g.from).Seconds())
		return civil.TimeOf(g.from.Add(time.Duration(g.env.Rand.Int64N(secs+1)) * time.Second)), nil
	default:
		secs := int64(g.to.Sub(g.from).Seconds())
		return civil.DateTimeOf(g.from.Add(time.Duration(g.env.Rand.Int64N(secs+1)) * time.Second)), nil
	}
}
