package model

type IdentityKind string

const (
	IdentitySequence         IdentityKind = "sequence"
	IdentityUUID             IdentityKind = "uuid"
	IdentityDatabaseSequence IdentityKind = "database_sequence"
	IdentityOrdered          IdentityKind = "ordered"
	IdentityUnordered        IdentityKind = "unordered"
)

// DefaultIdentityBatch is the block size used for row-id allocation.
const DefaultIdentityBatch = 512

type Identity struct {
	Kind      IdentityKind `json:"kind" yaml:"kind" toml:"kind"`
	From      *int64       `json:"from,omitempty" yaml:"from,omitempty" toml:"from,omitempty"`
	To        *int64       `json:"to,omitempty" yaml:"to,omitempty" toml:"to,omitempty"`
	Step      int64        `json:"step,omitempty" yaml:"step,omitempty" toml:"step,omitempty"`
	Sequence  string       `json:"sequence,omitempty" yaml:"sequence,omitempty" toml:"sequence,omitempty"`
	BatchSize int          `json:"batchSize,omitempty" yaml:"batchSize,omitempty" toml:"batchSize,omitempty"`
}

type RangeKind string

const (
	RangeDate     RangeKind = "date"
	RangeTime     RangeKind = "time"
	RangeDateTime RangeKind = "datetime"
)

type Range struct {
	Kind RangeKind `json:"kind" yaml:"kind" toml:"kind"`
	From string    `json:"from" yaml:"from" toml:"from"`
	To   string    `json:"to" yaml:"to" toml:"to"`
}

type ValueSet struct {
	Values  []any     `json:"values" yaml:"values" toml:"values"`
	Weights []float64 `json:"weights,omitempty" yaml:"weights,omitempty" toml:"weights,omitempty"`
}

type Column struct {
	Name       string    `json:"name" yaml:"name" toml:"name"`
	TypeName   string    `json:"typeName,omitempty" yaml:"typeName,omitempty" toml:"typeName,omitempty"`
	Constant   *string   `json:"constant,omitempty" yaml:"constant,omitempty" toml:"constant,omitempty"`
	Expression string    `json:"expression,omitempty" yaml:"expression,omitempty" toml:"expression,omitempty"`
	Range      *Range    `json:"range,omitempty" yaml:"range,omitempty" toml:"range,omitempty"`
	Identity   *Identity `json:"identity,omitempty" yaml:"identity,omitempty" toml:"identity,omitempty"`
	ValueSet   *ValueSet `json:"set,omitempty" yaml:"set,omitempty" toml:"set,omitempty"`
	Hidden     bool      `json:"hidden,omitempty" yaml:"hidden,omitempty" toml:"hidden,omitempty"`
}

type Table struct {
	Schema  string   `json:"schema" yaml:"schema" toml:"schema"`
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Count   string   `json:"count,omitempty" yaml:"count,omitempty" toml:"count,omitempty"`
	Columns []Column `json:"columns" yaml:"columns" toml:"columns"`
}

func (t *Table) QualifiedName() QualifiedName {
	return NewQualifiedName(t.Schema, t.Name)
}

// VisibleColumns returns the columns written to output, in table order.
func (t *Table) VisibleColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}
	return cols
}

// Column returns a pointer into the table's column slice, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Rows parses the table's row count.
func (t *Table) Rows() (int64, error) {
	return ParseRowCount(t.Count)
}

func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := *t
	out.Columns = make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		out.Columns[i] = c.clone()
	}
	return &out
}

func (c Column) clone() Column {
	if c.Constant != nil {
		v := *c.Constant
		c.Constant = &v
	}
	if c.Range != nil {
		r := *c.Range
		c.Range = &r
	}
	if c.Identity != nil {
		id := *c.Identity
		if id.From != nil {
			v := *id.From
			id.From = &v
		}
		if id.To != nil {
			v := *id.To
			id.To = &v
		}
		c.Identity = &id
	}
	if c.ValueSet != nil {
		vs := ValueSet{
			Values:  append([]any(nil), c.ValueSet.Values...),
			Weights: append([]float64(nil), c.ValueSet.Weights...),
		}
		c.ValueSet = &vs
	}
	return c
}

// ForeignKeyEdge links a referencing column to the column it references.
type ForeignKeyEdge struct {
	From       QualifiedName
	FromColumn string
	To         QualifiedName
	ToColumn   string
}
