// SPDX-License-Identifier: Apache-2.0

// Package relquery is the read-side query and filter model: typed
// column handles, a Filter expression tree, and a Query envelope
// (table, filter, ordering, limit). It renders nothing itself — pkg/relsql
// turns a Query into SQL — mirroring the split between its predecessor's
// declarative operation structs (pkg/migrations) and their SQL
// rendering (pkg/migrations/op_*.go).
package relquery

import "github.com/relormdb/relorm/pkg/relident"

// ColumnRef names a column of a specific table, the left-hand side of
// every filter comparison and the unit of an ORDER BY clause.
type ColumnRef struct {
	Table  relident.Identifier
	Column relident.Identifier
}

// Col builds a ColumnRef from plain strings, panicking if either is not
// a valid identifier: identifiers are the sole defense against
// injection, so invalid names must never reach this far.
func Col(table, column string) ColumnRef {
	return ColumnRef{Table: relident.MustNew(table), Column: relident.MustNew(column)}
}

// Eq, Ne, Like, Lt, Le, Gt, Ge, In build leaf comparisons against a
// column; And/Or combine filters.
func (c ColumnRef) Eq(v any) Filter   { return leaf(FilterEq, c, v) }
func (c ColumnRef) Ne(v any) Filter   { return leaf(FilterNe, c, v) }
func (c ColumnRef) Like(v any) Filter { return leaf(FilterLike, c, v) }
func (c ColumnRef) Lt(v any) Filter   { return leaf(FilterLt, c, v) }
func (c ColumnRef) Le(v any) Filter   { return leaf(FilterLe, c, v) }
func (c ColumnRef) Gt(v any) Filter   { return leaf(FilterGt, c, v) }
func (c ColumnRef) Ge(v any) Filter   { return leaf(FilterGe, c, v) }

// In builds a membership filter, binding each element as its own
// parameter.
func (c ColumnRef) In(values ...any) Filter {
	return Filter{Kind: FilterIn, Left: c, Values: values}
}

func leaf(kind FilterKind, c ColumnRef, v any) Filter {
	return Filter{Kind: kind, Left: c, Value: v}
}

// OrderDirection is the direction of an ORDER BY clause.
type OrderDirection string

const (
	Asc  OrderDirection = "ASC"
	Desc OrderDirection = "DESC"
)

// OrderTerm is one column of an ORDER BY clause.
type OrderTerm struct {
	Column    ColumnRef
	Direction OrderDirection
}

// Query is the read-side envelope: a target table, an optional filter
// tree, ordering terms, and an optional row limit.
type Query struct {
	Table  relident.Identifier
	Filter *Filter
	Order  []OrderTerm
	LimitN *int
}

// NewQuery starts a query against table.
func NewQuery(table relident.Identifier) Query {
	return Query{Table: table}
}

// Where attaches a filter, replacing any previously attached filter.
func (q Query) Where(f Filter) Query {
	q.Filter = &f
	return q
}

// OrderBy appends an ordering term.
func (q Query) OrderBy(col ColumnRef, dir OrderDirection) Query {
	q.Order = append(q.Order, OrderTerm{Column: col, Direction: dir})
	return q
}

// Limit sets the row limit.
func (q Query) Limit(n int) Query {
	q.LimitN = &n
	return q
}
