package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dataforge/internal/dsl"
	"github.com/roach88/dataforge/internal/output"
	"github.com/roach88/dataforge/internal/value"
)

// ErrUnboundOperand is returned for a comparison whose operand reads a
// shadow binding. Bindings only exist while an item is generated.
var ErrUnboundOperand = errors.New("operand reads a shadow binding")

// Query selects rows of one loaded table.
type Query struct {
	Table   string
	Columns []string      // nil selects every column
	Where   dsl.Predicate // nil selects every row
	Limit   int           // 0 means no limit
}

// Compile converts a query to parameterized SQL for SQLite.
//
// Every query ends in ORDER BY rowid, so rows come back in the order they
// were inserted, which is the order the items were generated. Values are
// always passed as parameters; only quoted identifiers appear in the text.
//
// Conditions keep their generation-time meaning: "=" and "!=" compare
// null-safely, and ordering operators hold only for numeric column
// values. A dotted field reads inside a nested value stored as JSON text.
func Compile(q Query) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("query has no table")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(selectList(q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(output.QuoteIdent(q.Table))

	var params []any
	if q.Where != nil {
		where, whereParams, err := compilePredicate(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("compile condition %q: %w", q.Where, err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = whereParams
	}

	b.WriteString(" ORDER BY rowid ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}
	return b.String(), params, nil
}

func selectList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = output.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func compilePredicate(p dsl.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case dsl.Compare:
		return compileCompare(pred)
	case dsl.And:
		return compileTerms(pred.Terms, " AND ")
	case dsl.Or:
		return compileTerms(pred.Terms, " OR ")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileTerms joins the terms in parentheses, so an And nested in an Or
// keeps its grouping whatever SQLite's precedence.
func compileTerms(terms []dsl.Predicate, sep string) (string, []any, error) {
	if len(terms) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(terms))
	var params []any
	for _, t := range terms {
		sql, p, err := compilePredicate(t)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return "(" + strings.Join(parts, sep) + ")", params, nil
}

func compileCompare(c dsl.Compare) (string, []any, error) {
	if c.Operand.IsBinding() {
		return "", nil, fmt.Errorf("%w: %s", ErrUnboundOperand, c.Operand)
	}
	col, colParams := column(c.Field)
	operand := value.OrNull(c.Operand.Literal)

	switch c.Op {
	case dsl.OpEq:
		return col + " IS ?", append(colParams, param(operand)), nil
	case dsl.OpNe:
		return col + " IS NOT ?", append(colParams, param(operand)), nil
	}

	if value.IsNull(operand) {
		// A numeric comparison with null never holds.
		return "0 = 1", nil, nil
	}
	n, ok := value.AsFloat(operand)
	if !ok {
		return "", nil, fmt.Errorf("numeric comparison %s on field %s requires a numeric value, got %s",
			c.Op, c.Field, c.Operand)
	}

	// The column expression appears twice, so its parameters do too.
	params := append(append([]any{}, colParams...), colParams...)
	params = append(params, n)
	sql := fmt.Sprintf("(typeof(%s) IN ('integer', 'real') AND %s %s ?)", col, col, c.Op)
	return sql, params, nil
}

// column returns the SQL expression for a field path. "address.city"
// reads key city of the JSON text in column address.
func column(field string) (string, []any) {
	head, rest := value.SplitPath(field)
	if rest == "" {
		return output.QuoteIdent(head), nil
	}
	return "json_extract(" + output.QuoteIdent(head) + ", ?)", []any{"$." + rest}
}

// param converts a literal to a driver argument. Booleans are stored as
// integers, so they are passed as 0 or 1.
func param(v value.Value) any {
	if b, ok := v.(value.Bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return output.Arg(v)
}
