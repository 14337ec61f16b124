package core

import "strings"

// Field names a filterable expense attribute. The values double as column
// names for the relational backends.
type Field string

const (
	FieldOwner    Field = "owner_id"
	FieldCategory Field = "category"
	FieldDate     Field = "date"
)

// Operator is the comparison applied by a Clause.
type Operator string

const (
	OpEq  Operator = "="
	OpGte Operator = ">="
	OpLt  Operator = "<"
)

// Clause is one typed predicate. Value is an int64 for FieldOwner, a string
// for FieldCategory and a Date for FieldDate.
type Clause struct {
	Field Field
	Op    Operator
	Value any
}

// Criteria filters expenses for listing, counting and aggregation. The zero
// value of Category, DateFrom and DateTo means "no filter". The date range is
// half-open: [DateFrom, DateTo).
type Criteria struct {
	OwnerID  int64
	Category string
	DateFrom Date
	DateTo   Date
}

// ForOwner returns criteria matching every expense of ownerID.
func ForOwner(ownerID int64) Criteria {
	return Criteria{OwnerID: ownerID}
}

// MonthCriteria covers [year-month-01, first day of the next month).
func MonthCriteria(ownerID int64, year, month int) (Criteria, error) {
	if month < 1 || month > 12 {
		return Criteria{}, ErrInvalidMonth
	}
	from := NewDate(year, month, 1)
	c := ForOwner(ownerID).Between(from, from.AddMonths(1))
	return c, c.Validate()
}

// YearCriteria covers [year-01-01, (year+1)-01-01).
func YearCriteria(ownerID int64, year int) (Criteria, error) {
	from := NewDate(year, 1, 1)
	c := ForOwner(ownerID).Between(from, NewDate(year+1, 1, 1))
	return c, c.Validate()
}

// WithCategory returns a copy restricted to an exact category match.
func (c Criteria) WithCategory(category string) Criteria {
	c.Category = strings.TrimSpace(category)
	return c
}

// Between returns a copy restricted to [from, to). Either bound may be zero.
func (c Criteria) Between(from, to Date) Criteria {
	c.DateFrom = from
	c.DateTo = to
	return c
}

func (c Criteria) Validate() error {
	if c.OwnerID <= 0 {
		return ErrInvalidOwner
	}
	if !c.DateFrom.IsEmpty() && !c.DateTo.IsEmpty() && c.DateTo.Before(c.DateFrom) {
		return Invalid("date_to", "must not be before date_from")
	}
	return nil
}

// Clauses translates the criteria into predicates, always in the order
// owner, category, date_from, date_to.
func (c Criteria) Clauses() []Clause {
	clauses := make([]Clause, 0, 4)
	clauses = append(clauses, Clause{Field: FieldOwner, Op: OpEq, Value: c.OwnerID})
	if c.Category != "" {
		clauses = append(clauses, Clause{Field: FieldCategory, Op: OpEq, Value: c.Category})
	}
	if !c.DateFrom.IsEmpty() {
		clauses = append(clauses, Clause{Field: FieldDate, Op: OpGte, Value: c.DateFrom})
	}
	if !c.DateTo.IsEmpty() {
		clauses = append(clauses, Clause{Field: FieldDate, Op: OpLt, Value: c.DateTo})
	}
	return clauses
}

// Matches evaluates every clause against e.
func (c Criteria) Matches(e Expense) bool {
	for _, cl := range c.Clauses() {
		if !cl.Matches(e) {
			return false
		}
	}
	return true
}

func (cl Clause) Matches(e Expense) bool {
	switch cl.Field {
	case FieldOwner:
		v, _ := cl.Value.(int64)
		return compareInt(e.OwnerID, v, cl.Op)
	case FieldCategory:
		v, _ := cl.Value.(string)
		return cl.Op == OpEq && e.Category == v
	case FieldDate:
		v, _ := cl.Value.(Date)
		return compareInt(e.Date.Unix(), v.Unix(), cl.Op)
	}
	return false
}

func compareInt(a, b int64, op Operator) bool {
	switch op {
	case OpEq:
		return a == b
	case OpGte:
		return a >= b
	case OpLt:
		return a < b
	}
	return false
}
