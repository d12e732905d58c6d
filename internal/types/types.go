package types

import (
	"strings"

	"github.com/Rana718/seedbench/internal/model"
)

// Category is the portable type family of a catalog column.
type Category int

const (
	CategoryOther Category = iota
	CategoryBoolean
	CategorySmallInt
	CategoryInteger
	CategoryBigInt
	CategoryFloat
	CategoryDecimal
	CategoryChar
	CategoryDate
	CategoryTime
	CategoryTimestamp
	CategoryBinary
	CategoryUUID
	CategoryJSON
	CategoryEnum
)

var categoryNames = map[Category]string{
	CategoryOther:     "other",
	CategoryBoolean:   "boolean",
	CategorySmallInt:  "smallint",
	CategoryInteger:   "integer",
	CategoryBigInt:    "bigint",
	CategoryFloat:     "float",
	CategoryDecimal:   "decimal",
	CategoryChar:      "char",
	CategoryDate:      "date",
	CategoryTime:      "time",
	CategoryTimestamp: "timestamp",
	CategoryBinary:    "binary",
	CategoryUUID:      "uuid",
	CategoryJSON:      "json",
	CategoryEnum:      "enum",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "other"
}

// IsInteger reports whether the category is one of the integer families.
func (c Category) IsInteger() bool {
	return c == CategorySmallInt || c == CategoryInteger || c == CategoryBigInt
}

type SchemaTable struct {
	Schema string
	Name   string
}

type SchemaColumn struct {
	Name      string
	Type      string // native type name, usable in a cast
	Category  Category
	Size      int // character length or numeric precision
	Scale     int
	Nullable  bool
	Default   string
	Generated bool // computed or identity column
	Hidden    bool
	Ordinal   int
}

type PrimaryKey struct {
	Column string
	Seq    int
}

type ForeignKey struct {
	Name             string
	Column           string
	ReferencedSchema string
	ReferencedTable  string
	ReferencedColumn string
}

// NoRowCount marks a batched row that succeeded without reporting a count.
const NoRowCount int64 = -1

// InsertTarget describes the table an insert template is built for.
type InsertTarget struct {
	Table      model.QualifiedName
	Columns    []SchemaColumn
	PrimaryKey []string
}

func (t InsertTarget) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

type ConflictPolicy int

const (
	ConflictNone ConflictPolicy = iota
	ConflictDoNothing
	ConflictUpsert
)

func (c ConflictPolicy) String() string {
	switch c {
	case ConflictDoNothing:
		return "do-nothing"
	case ConflictUpsert:
		return "upsert"
	default:
		return "none"
	}
}

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ConflictNone, nil
	case "do-nothing", "nothing", "ignore":
		return ConflictDoNothing, nil
	case "upsert", "update":
		return ConflictUpsert, nil
	default:
		return ConflictNone, model.ErrConfiguration("unknown conflict policy %q", s)
	}
}
