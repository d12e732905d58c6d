package cmd

import (
	"testing"

	"github.com/Rana718/seedbench/internal/export"
	"github.com/Rana718/seedbench/internal/model"
	"github.com/Rana718/seedbench/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumFlag(t *testing.T) {
	f := newEnumFlag("csv", "csv", "avro")
	assert.Equal(t, "csv", f.String())
	require.NoError(t, f.Set("AVRO"))
	assert.Equal(t, "avro", f.String())
	assert.Error(t, f.Set("parquet"))
	assert.Equal(t, "avro", f.String())
}

func TestTableFilter(t *testing.T) {
	all := tableFilter(nil)
	assert.True(t, all(types.SchemaTable{Name: "orders"}))

	match := tableFilter([]string{"order*", "customers"})
	assert.True(t, match(types.SchemaTable{Name: "order_items"}))
	assert.True(t, match(types.SchemaTable{Name: "customers"}))
	assert.False(t, match(types.SchemaTable{Name: "products"}))
}

func TestParseOptions(t *testing.T) {
	opts := parseOptions([]string{"delimiter='|'", "skip=1", "detached"})
	assert.Equal(t, map[string]string{
		"delimiter": "|",
		"skip":      "1",
		"detached":  export.BlankOption,
	}, opts)
	assert.Nil(t, parseOptions(nil))
}

func TestDescribeColumn(t *testing.T) {
	empty := ""
	assert.Equal(t, "(hidden)", describeColumn(model.Column{Hidden: true, Expression: "x()"}))
	assert.Equal(t, "identity uuid", describeColumn(model.Column{Identity: &model.Identity{Kind: model.IdentityUUID}}))
	assert.Equal(t, "randomInt(1, 2)", describeColumn(model.Column{Constant: &empty, Expression: "randomInt(1, 2)"}))
	assert.Equal(t, "one of 2 values", describeColumn(model.Column{ValueSet: &model.ValueSet{Values: []any{"a", "b"}}}))
	assert.Contains(t, describeColumn(model.Column{}), "unresolved foreign key")
}
