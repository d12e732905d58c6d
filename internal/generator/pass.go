package generator

import (
	"context"
	"fmt"

	"github.com/Rana718/seedbench/internal/expr"
	"github.com/Rana718/seedbench/internal/model"
)

// Pass generates the rows of one table. It is not safe for concurrent use;
// run one Pass per goroutine.
type Pass struct {
	table   *model.Table
	columns []model.Column
	gens    []ValueGenerator
	row     int64
}

// NewPass builds one generator per visible column of table. rowNumber()
// is bound to the pass's 1-based row counter.
func (f *Factory) NewPass(table *model.Table) (*Pass, error) {
	p := &Pass{table: table, columns: table.VisibleColumns()}
	scoped := *f
	scoped.Registry = f.Registry.With("rowNumber", expr.Func{
		Returns: expr.TypeInt,
		Impl: func(*expr.Env, []any) (any, error) {
			return p.row, nil
		},
	})
	scoped.eval = expr.NewEvaluator(scoped.Registry, f.Env)
	p.gens = make([]ValueGenerator, len(p.columns))
	for i, col := range p.columns {
		g, err := scoped.New(col)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", table.QualifiedName(), err)
		}
		p.gens[i] = g
	}
	return p, nil
}

func (p *Pass) Columns() []model.Column { return p.columns }

// Row is the number of rows produced so far.
func (p *Pass) Row() int64 { return p.row }

// Next produces the values of the next row in column order.
func (p *Pass) Next(ctx context.Context) ([]any, error) {
	p.row++
	values := make([]any, len(p.gens))
	for i, g := range p.gens {
		v, err := g.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("column %s row %d: %w", p.columns[i].Name, p.row, err)
		}
		values[i] = v
	}
	return values, nil
}
