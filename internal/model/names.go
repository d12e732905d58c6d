package model

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultSchema is used for bare table names.
const DefaultSchema = "public"

// Wildcard selects every schema in the catalog.
const Wildcard = "*"

// QualifiedName identifies a table. It is comparable and safe as a map key.
type QualifiedName struct {
	Schema string
	Table  string
}

func NewQualifiedName(schema, table string) QualifiedName {
	return QualifiedName{Schema: strings.ToLower(schema), Table: strings.ToLower(table)}
}

// ParseQualifiedName splits "schema.table"; a bare name gets DefaultSchema.
func ParseQualifiedName(s string) (QualifiedName, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return QualifiedName{}, ErrConfiguration("empty table name")
	}
	schema, table, found := strings.Cut(s, ".")
	if !found {
		return NewQualifiedName(DefaultSchema, s), nil
	}
	if schema == "" || table == "" || strings.Contains(table, ".") {
		return QualifiedName{}, ErrConfiguration("invalid table name %q", s)
	}
	return NewQualifiedName(schema, table), nil
}

func (q QualifiedName) String() string {
	if q.Schema == "" {
		return q.Table
	}
	return q.Schema + "." + q.Table
}

func (q QualifiedName) Less(o QualifiedName) bool {
	if q.Schema != o.Schema {
		return q.Schema < o.Schema
	}
	return q.Table < o.Table
}

func (q QualifiedName) Compare(o QualifiedName) int {
	switch {
	case q == o:
		return 0
	case q.Less(o):
		return -1
	default:
		return 1
	}
}

var rowCountPattern = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)\s?([kKmMgG]+)?$`)

// ParseRowCount parses "250", "10k", "1.5M" or "2g" using decimal multipliers.
func ParseRowCount(count string) (int64, error) {
	s := strings.TrimSpace(count)
	if !rowCountPattern.MatchString(s) {
		return 0, ErrConfiguration("invalid row count %q", count)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrConfiguration("negative row count %q", count)
	}
	s = strings.TrimPrefix(s, "+")
	n, err := humanize.ParseBytes(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return 0, ErrConfiguration("invalid row count %q: %v", count, err)
	}
	return int64(n), nil
}
