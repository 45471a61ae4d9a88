// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relquery"
	"github.com/relormdb/relorm/pkg/relschema"
)

// join describes one LEFT OUTER JOIN the select builder adds to expose
// a declared relationship, discovered by scanning the Snapshot rather
// than carried on the Table (the registry already rewrote relationship
// columns away during finalization, see relschema.Registry.Build).
type join struct {
	alias      string
	aggregated bool // true for one-to-many/many-to-many (rendered via json_agg)
	clauses    []string
}

// BuildSelectStatement renders a Query into a parameterized SELECT:
// the table's projection plus declared relationships as LEFT OUTER
// JOINs, wrapped in `to_json` so the caller decodes one row as one
// document.
func BuildSelectStatement(snap *relschema.Snapshot, q relquery.Query) (Statement, error) {
	table, ok := snap.GetTable(q.Table)
	if !ok {
		return Statement{}, UnknownColumnError{Table: q.Table.String(), Column: "*"}
	}
	tableName := table.Name.String()

	joins := discoverJoins(snap, table)

	projection := []string{tableName + ".*"}
	groupBy := []string{tableName + ".id"}
	var joinSQL []string

	for _, j := range joins {
		joinSQL = append(joinSQL, strings.Join(j.clauses, " "))
		if j.aggregated {
			projection = append(projection, fmt.Sprintf(
				"COALESCE(json_agg(%s.*) FILTER (WHERE %s.id IS NOT NULL), '[]') AS %s",
				j.alias, j.alias, j.alias))
		} else {
			projection = append(projection, j.alias)
			groupBy = append(groupBy, j.alias+".id")
		}
	}

	var args []any
	var whereSQL string
	if q.Filter != nil {
		sql, filterArgs := renderFilter(*q.Filter, 0)
		whereSQL = " WHERE " + sql
		args = filterArgs
	}

	var orderSQL string
	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			terms[i] = fmt.Sprintf("%s.%s %s", o.Column.Table.String(), o.Column.Column.String(), o.Direction)
		}
		orderSQL = " ORDER BY " + strings.Join(terms, ", ")
	}

	var limitSQL string
	if q.LimitN != nil {
		limitSQL = " LIMIT " + strconv.Itoa(*q.LimitN)
	}

	inner := fmt.Sprintf("SELECT %s FROM %s%s%s GROUP BY %s%s%s",
		strings.Join(projection, ", "),
		tableName,
		joinPrefix(joinSQL),
		whereSQL,
		strings.Join(groupBy, ", "),
		orderSQL,
		limitSQL)

	sql := fmt.Sprintf("SELECT to_json(r) AS json_result FROM (%s) r;", inner)
	return Statement{SQL: sql, Args: args}, nil
}

func joinPrefix(joinSQL []string) string {
	if len(joinSQL) == 0 {
		return ""
	}
	return " " + strings.Join(joinSQL, " ")
}

// discoverJoins scans the snapshot for relationships reaching or
// leaving table: forward one-to-one FK columns on table itself,
// reverse one-to-many children carrying a parent_id FK back to table,
// and many-to-many join tables named "<table>_to_<x>" / "<x>_to_<table>".
func discoverJoins(snap *relschema.Snapshot, table relschema.Table) []join {
	var joins []join
	tableName := table.Name.String()

	for _, col := range table.Columns() {
		ref, ok := col.ForeignKeyConstraint()
		if !ok || !strings.HasSuffix(col.Name.String(), "_id") {
			continue
		}
		alias := strings.TrimSuffix(col.Name.String(), "_id")
		joins = append(joins, join{
			alias: alias,
			clauses: []string{fmt.Sprintf("LEFT OUTER JOIN %s %s ON %s.id = %s.%s",
				ref.Table.String(), alias,
				alias,
				tableName, col.Name.String())},
		})
	}

	for _, other := range snap.Tables() {
		if other.IsJoinTable() || other.Name.String() == tableName {
			continue
		}
		parentID, ok := other.GetColumn(relident.MustNew("parent_id"))
		if !ok {
			continue
		}
		ref, ok := parentID.ForeignKeyConstraint()
		if !ok || ref.Table.String() != tableName {
			continue
		}
		alias := other.Name.String()
		joins = append(joins, join{
			alias:      alias,
			aggregated: true,
			clauses: []string{fmt.Sprintf("LEFT OUTER JOIN %s %s ON %s.parent_id = %s.id",
				other.Name.String(), alias,
				alias,
				tableName)},
		})
	}

	for _, joinTable := range snap.Tables() {
		if !joinTable.IsJoinTable() {
			continue
		}
		parentPrefix := tableName + "_to_"
		childSuffix := "_to_" + tableName
		name := joinTable.Name.String()

		var otherName string
		var onColumn, remoteColumn string
		switch {
		case strings.HasPrefix(name, parentPrefix):
			otherName = strings.TrimPrefix(name, parentPrefix)
			onColumn, remoteColumn = "parent_id", "child_id"
		case strings.HasSuffix(name, childSuffix):
			otherName = strings.TrimSuffix(name, childSuffix)
			onColumn, remoteColumn = "child_id", "parent_id"
		default:
			continue
		}

		other, ok := snap.GetTable(relident.MustNew(otherName))
		if !ok {
			continue
		}
		alias := other.Name.String()
		joins = append(joins, join{
			alias:      alias,
			aggregated: true,
			clauses: []string{
				fmt.Sprintf("LEFT OUTER JOIN %s ON %s.%s = %s.id",
					name,
					name, onColumn,
					tableName),
				fmt.Sprintf("LEFT OUTER JOIN %s %s ON %s.id = %s.%s",
					other.Name.String(), alias,
					alias,
					name, remoteColumn),
			},
		})
	}

	return joins
}

// renderFilter performs a post-order traversal of the filter tree:
// And/Or emit parenthesized children joined by the operator; comparisons
// emit "<lhs> <op> <rhs>"; In binds each element separately.
func renderFilter(f relquery.Filter, paramOffset int) (string, []any) {
	var args []any

	switch f.Kind {
	case relquery.FilterAnd, relquery.FilterOr:
		op := " AND "
		if f.Kind == relquery.FilterOr {
			op = " OR "
		}
		parts := make([]string, len(f.Children))
		for i, c := range f.Children {
			sql, childArgs := renderFilter(c, paramOffset+len(args))
			parts[i] = sql
			args = append(args, childArgs...)
		}
		return "(" + strings.Join(parts, op) + ")", args

	case relquery.FilterIn:
		lhs := columnSQL(f.Left)
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			args = append(args, v)
			placeholders[i] = "$" + strconv.Itoa(paramOffset+len(args))
		}
		return fmt.Sprintf("%s IN (%s)", lhs, strings.Join(placeholders, ", ")), args

	default:
		lhs := columnSQL(f.Left)
		op := filterOpSQL(f.Kind)
		args = append(args, f.Value)
		placeholder := "$" + strconv.Itoa(paramOffset+len(args))
		return fmt.Sprintf("%s %s %s", lhs, op, placeholder), args
	}
}

func columnSQL(c relquery.ColumnRef) string {
	return c.Table.String() + "." + c.Column.String()
}

func filterOpSQL(kind relquery.FilterKind) string {
	switch kind {
	case relquery.FilterEq:
		return "="
	case relquery.FilterNe:
		return "!="
	case relquery.FilterLike:
		return "LIKE"
	case relquery.FilterLt:
		return "<"
	case relquery.FilterLe:
		return "<="
	case relquery.FilterGt:
		return ">"
	case relquery.FilterGe:
		return ">="
	default:
		return "="
	}
}
