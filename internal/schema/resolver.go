package schema

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Rana718/seedbench/internal/database"
	"github.com/Rana718/seedbench/internal/types"
)

const maxGeneratedSize = 512

// Rule maps a catalog column to a default generator expression.
type Rule struct {
	Name  string
	Match func(col types.SchemaColumn) bool
	// Expression renders the generator call. labels holds the enum labels
	// for enum columns and is nil otherwise.
	Expression func(col types.SchemaColumn, labels []string) string
}

func category(cats ...types.Category) func(types.SchemaColumn) bool {
	return func(col types.SchemaColumn) bool {
		for _, c := range cats {
			if col.Category == c {
				return true
			}
		}
		return false
	}
}

func constant(expr string) func(types.SchemaColumn, []string) string {
	return func(types.SchemaColumn, []string) string { return expr }
}

// namePatterns are checked against the underscore separated parts of a
// character column's name. "name" comes last so country_name or
// state_name pick the more specific generator.
var namePatterns = []struct {
	part string
	expr string
}{
	{"email", "randomEmail()"},
	{"city", "randomCity()"},
	{"country", "randomCountry()"},
	{"phone", "randomPhoneNumber()"},
	{"state", "randomState()"},
	{"zip", "randomZipCode()"},
	{"currency", "randomCurrency()"},
	{"name", "randomFullName()"},
}

// DefaultRules is the ordered rule table; the first match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "enum", Match: category(types.CategoryEnum), Expression: enumExpression},
		{Name: "boolean", Match: category(types.CategoryBoolean), Expression: constant("randomBoolean()")},
		{Name: "integer", Match: category(types.CategorySmallInt, types.CategoryInteger), Expression: constant("randomInt()")},
		{Name: "bigint", Match: category(types.CategoryBigInt), Expression: constant("randomLong()")},
		{Name: "float", Match: category(types.CategoryFloat), Expression: constant("randomDouble()")},
		{Name: "decimal", Match: category(types.CategoryDecimal), Expression: decimalExpression},
		{Name: "char", Match: category(types.CategoryChar), Expression: charExpression},
		{Name: "date", Match: category(types.CategoryDate), Expression: constant("randomDate()")},
		{Name: "time", Match: category(types.CategoryTime), Expression: constant("randomTime()")},
		{Name: "timestamp", Match: category(types.CategoryTimestamp), Expression: constant("randomDateTime()")},
		{Name: "binary", Match: category(types.CategoryBinary), Expression: func(col types.SchemaColumn, _ []string) string {
			return fmt.Sprintf("base64(randomBytes(%d))", boundedSize(col.Size))
		}},
		{Name: "uuid", Match: category(types.CategoryUUID), Expression: constant("randomUUID()")},
		{Name: "other", Match: func(types.SchemaColumn) bool { return true }, Expression: constant("randomJson(1, 1)")},
	}
}

func boundedSize(size int) int {
	if size <= 0 || size > maxGeneratedSize {
		return maxGeneratedSize
	}
	return size
}

func enumExpression(_ types.SchemaColumn, labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = strconv.Quote(l)
	}
	return "selectRandom(" + strings.Join(quoted, ", ") + ")"
}

func decimalExpression(col types.SchemaColumn, _ []string) string {
	precision, scale := col.Size, col.Scale
	if precision <= 0 {
		precision, scale = 10, 2
	}
	digits := min(max(precision-scale, 0), 18)
	return fmt.Sprintf("randomDecimal(0, %d, %d)", int64(math.Pow10(digits)), scale)
}

func charExpression(col types.SchemaColumn, _ []string) string {
	parts := strings.FieldsFunc(strings.ToLower(col.Name), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for _, p := range namePatterns {
		for _, part := range parts {
			if part == p.part {
				return p.expr
			}
		}
	}
	return fmt.Sprintf("randomString(%d)", boundedSize(col.Size))
}

// Resolver picks default expressions for introspected columns.
type Resolver struct {
	Rules   []Rule
	Catalog database.Catalog
}

func NewResolver(catalog database.Catalog) *Resolver {
	return &Resolver{Rules: DefaultRules(), Catalog: catalog}
}

// Resolve returns the expression of the first matching rule. Enum labels are
// queried from the catalog; an enum type without labels is treated as text.
func (r *Resolver) Resolve(ctx context.Context, col types.SchemaColumn) (string, error) {
	var labels []string
	if col.Category == types.CategoryEnum && r.Catalog != nil {
		var err error
		labels, err = r.Catalog.EnumLabels(ctx, col.Type)
		if err != nil {
			return "", fmt.Errorf("failed to read labels of %s: %w", col.Type, err)
		}
	}
	if col.Category == types.CategoryEnum && len(labels) == 0 {
		col.Category = types.CategoryChar
	}
	for _, rule := range r.Rules {
		if rule.Match(col) {
			return rule.Expression(col, labels), nil
		}
	}
	return "", nil
}
