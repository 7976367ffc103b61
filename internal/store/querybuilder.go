package store

import "strings"

// WhereBuilder collects predicate+args pairs and joins them with AND.
// It replaces per-request string concatenation of WHERE clauses: every
// predicate is a fixed expression with placeholders, arguments travel
// separately.
type WhereBuilder struct {
	exprs []string
	args  []interface{}
}

func NewWhere() *WhereBuilder {
	return &WhereBuilder{}
}

func (b *WhereBuilder) Add(expr string, args ...interface{}) *WhereBuilder {
	b.exprs = append(b.exprs, expr)
	b.args = append(b.args, args...)
	return b
}

// Clause returns " WHERE a AND b ..." (empty string when no predicates)
// and the placeholder arguments in order.
func (b *WhereBuilder) Clause() (string, []interface{}) {
	if len(b.exprs) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(b.exprs, " AND "), b.args
}
