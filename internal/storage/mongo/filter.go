package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"spendwise/internal/core"
)

var operators = map[core.Operator]string{
	core.OpGte: "$gte",
	core.OpLt:  "$lt",
}

// Filter translates criteria clauses into a query document. Range clauses
// on the same field merge into one operator document.
func Filter(c core.Criteria) bson.M {
	filter := bson.M{}
	for _, cl := range c.Clauses() {
		value := cl.Value
		if d, ok := value.(core.Date); ok {
			value = d.Time
		}
		op, ranged := operators[cl.Op]
		if !ranged {
			filter[string(cl.Field)] = value
			continue
		}
		ops, _ := filter[string(cl.Field)].(bson.M)
		if ops == nil {
			ops = bson.M{}
			filter[string(cl.Field)] = ops
		}
		ops[op] = value
	}
	return filter
}
