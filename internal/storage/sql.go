package storage

import (
	"fmt"
	"strings"

	"spendwise/internal/core"
)

// Dialect adapts predicate translation to a relational backend.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// DateValue converts a date bound to the driver value stored in the
	// date column.
	DateValue func(core.Date) any
}

// SQLite binds with "?" and stores dates as YYYY-MM-DD text.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	DateValue:   func(d core.Date) any { return d.String() },
}

// Postgres binds with "$n" and stores dates in a DATE column.
var Postgres = Dialect{
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	DateValue:   func(d core.Date) any { return d.Time },
}

// Where renders the criteria clauses as a SQL boolean expression, keeping
// the clause order, together with its bind arguments.
func (d Dialect) Where(c core.Criteria) (string, []any) {
	clauses := c.Clauses()
	parts := make([]string, 0, len(clauses))
	args := make([]any, 0, len(clauses))
	for _, cl := range clauses {
		value := cl.Value
		if date, ok := value.(core.Date); ok {
			value = d.DateValue(date)
		}
		args = append(args, value)
		parts = append(parts, fmt.Sprintf("%s %s %s", cl.Field, cl.Op, d.Placeholder(len(args))))
	}
	return strings.Join(parts, " AND "), args
}
