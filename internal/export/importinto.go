package export

import (
	"maps"
	"slices"
	"strings"

	"github.com/Rana718/seedbench/internal/model"
	"github.com/lib/pq"
)

// BlankOption renders an option as a bare key, e.g. "WITH detached".
const BlankOption = "(blank)"

type ImportFormat string

const (
	FormatCSV       ImportFormat = "CSV"
	FormatAvro      ImportFormat = "AVRO"
	FormatDelimited ImportFormat = "DELIMITED"
)

// importOptions are the IMPORT INTO options CockroachDB accepts.
var importOptions = map[string]bool{
	"delimiter": true, "comment": true, "nullif": true, "skip": true,
	"row_limit": true, "allow_quoted_null": true, "decompress": true,
	"detached": true, "strict_validation": true, "records_terminated_by": true,
	"data_as_binary_records": true, "data_as_json_records": true, "schema": true,
	"fields_terminated_by": true, "fields_enclosed_by": true, "fields_escaped_by": true,
	"rows_terminated_by": true,
}

// ImportInto is an IMPORT INTO statement. It is rendered, never executed.
type ImportInto struct {
	Table   model.QualifiedName
	Columns []string
	Format  ImportFormat
	Paths   []string
	Options map[string]string
}

// NewImportInto builds a statement for the visible columns of table.
func NewImportInto(table *model.Table, format ImportFormat, paths []string, options map[string]string) (*ImportInto, error) {
	cols := table.VisibleColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	stmt := &ImportInto{Table: table.QualifiedName(), Columns: names, Format: format, Paths: paths, Options: options}
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (s *ImportInto) Validate() error {
	if s.Table.Table == "" {
		return model.ErrConfiguration("import into: table is required")
	}
	if len(s.Paths) == 0 {
		return model.ErrConfiguration("import into %s: at least one path is required", s.Table)
	}
	switch s.Format {
	case FormatCSV, FormatAvro, FormatDelimited:
	default:
		return model.ErrConfiguration("import into %s: unsupported format %q", s.Table, s.Format)
	}
	for k := range s.Options {
		if !importOptions[strings.ToLower(k)] {
			return model.ErrConfiguration("import into %s: unknown option %q", s.Table, k)
		}
	}
	return nil
}

func (s *ImportInto) String() string {
	var sb strings.Builder
	sb.WriteString("IMPORT INTO ")
	sb.WriteString(s.Table.String())
	sb.WriteString("(")
	sb.WriteString(strings.Join(s.Columns, ", "))
	sb.WriteString(") ")
	sb.WriteString(string(s.Format))
	sb.WriteString(" DATA (")
	paths := slices.Sorted(slices.Values(s.Paths))
	for i, p := range paths {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(pq.QuoteLiteral(p))
	}
	sb.WriteString(")")

	if len(s.Options) > 0 {
		sb.WriteString(" WITH ")
		for i, k := range slices.Sorted(maps.Keys(s.Options)) {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strings.ToLower(k))
			if v := s.Options[k]; !strings.EqualFold(v, BlankOption) {
				sb.WriteString(" = ")
				sb.WriteString(pq.QuoteLiteral(v))
			}
		}
	}
	sb.WriteString(";")
	return sb.String()
}
