package schema

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Rana718/seedbench/internal/model"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a set of table models.
type Document struct {
	Tables []*model.Table `yaml:"tables" toml:"tables" json:"tables"`
}

// LoadOverrides reads table models from a .yaml, .yml or .toml file.
func LoadOverrides(path string) ([]*model.Table, error) {
	var doc Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read overrides: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, model.ErrConfiguration("invalid overrides file %s: %v", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return nil, model.ErrConfiguration("invalid overrides file %s: %v", path, err)
		}
	default:
		return nil, model.ErrConfiguration("unsupported overrides format %q", filepath.Ext(path))
	}
	for i, t := range doc.Tables {
		if t == nil || t.Name == "" {
			return nil, model.ErrConfiguration("overrides file %s: table %d has no name", path, i+1)
		}
		if t.Schema == "" {
			t.Schema = model.DefaultSchema
		}
		n := t.QualifiedName()
		t.Schema, t.Name = n.Schema, n.Table
		if t.Count != "" {
			if _, err := t.Rows(); err != nil {
				return nil, err
			}
		}
	}
	return doc.Tables, nil
}

// DumpYAML writes tables in the format LoadOverrides reads.
func DumpYAML(w io.Writer, tables []*model.Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{Tables: tables}); err != nil {
		return fmt.Errorf("failed to encode tables: %w", err)
	}
	return enc.Close()
}

// ApplyOverride returns a copy of base with the columns and row count of
// override layered on top. Override columns replace base columns of the
// same name; unknown columns are appended.
func ApplyOverride(base, override *model.Table) *model.Table {
	if base == nil {
		return override.Clone()
	}
	out := base.Clone()
	if override == nil {
		return out
	}
	if override.Count != "" {
		out.Count = override.Count
	}
	for _, oc := range override.Clone().Columns {
		if c := out.Column(strings.ToLower(oc.Name)); c != nil {
			if oc.TypeName == "" {
				oc.TypeName = c.TypeName
			}
			*c = oc
			continue
		}
		out.Columns = append(out.Columns, oc)
	}
	return out
}
