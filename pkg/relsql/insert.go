// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relormdb/relorm/pkg/relschema"
)

// columnExpr is one (column, SQL expression) pair destined for an
// INSERT's column/VALUES lists. A plain slice, not a map, so the
// rendered statement's column order never depends on map iteration.
type columnExpr struct {
	col  string
	expr string
}

// cteBuilder accumulates CTE definitions and bound parameters while
// walking a record tree depth-first.
type cteBuilder struct {
	ctes []string
	args []any
}

func (b *cteBuilder) bindLiteral(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *cteBuilder) bindValue(v relschema.ColumnValue) (string, error) {
	switch v.Kind {
	case relschema.ValueBool:
		return b.bindLiteral(v.Bool), nil
	case relschema.ValueInt:
		return b.bindLiteral(v.Int), nil
	case relschema.ValueFloat:
		return b.bindLiteral(v.Float), nil
	case relschema.ValueString:
		return b.bindLiteral(v.String), nil
	case relschema.ValueTimestamp:
		return b.bindLiteral(v.Timestamp), nil
	case relschema.ValueUuid:
		return b.bindLiteral(v.Uuid), nil
	case relschema.ValueJson:
		return b.bindLiteral(v.Json), nil
	case relschema.ValueNull:
		return b.bindLiteral(nil), nil
	default:
		return "", UnsupportedValueError{Kind: string(v.Kind)}
	}
}

// BuildNestedUpsert renders rec and its owned OneToOne/OneToMany
// children into a single chained-CTE upsert statement, ending in
// "SELECT * FROM <root>;".
func BuildNestedUpsert(rec *relschema.Record) (Statement, error) {
	b := &cteBuilder{}
	rootAlias := "_self"
	if _, err := b.emit(rec, rootAlias, "", nil); err != nil {
		return Statement{}, err
	}
	sql := "WITH\n  " + strings.Join(b.ctes, ",\n  ") + "\nSELECT * FROM " + rootAlias + ";"
	return Statement{SQL: sql, Args: b.args}, nil
}

// emit renders one node of the record tree as an INSERT ... ON CONFLICT
// CTE, appends it to b.ctes, and returns the alias it was emitted
// under. namePrefix is the "<parent-alias>" half of the child aliases
// "<parent-alias>_<field>" (one-to-one) and "<parent-alias>_omc<index>"
// (one-to-many): it is empty at
// the root (whose own alias, "_self", is just a label for the final
// SELECT, not a true parent prefix) and becomes each node's own alias
// when naming that node's children. injected carries column/SQL-expression
// overrides supplied by the caller (the parent_id back-reference for an
// owned OneToMany child); it is appended ahead of the extra FK columns
// this node synthesizes for its own owned OneToOne children. Both are
// plain slices rather than maps, so the rendered column/VALUES lists
// never depend on map iteration order.
func (b *cteBuilder) emit(rec *relschema.Record, ownAlias, namePrefix string, injected []columnExpr) (string, error) {
	extra := append([]columnExpr(nil), injected...)

	for _, field := range rec.Fields() {
		v, _ := rec.Get(field)
		if v.Kind != relschema.ValueOneToOne {
			continue
		}
		if v.Child == nil {
			return "", NilChildError{Field: field.String()}
		}
		childAlias := namePrefix + "_" + field.String()
		if _, err := b.emit(v.Child, childAlias, childAlias, nil); err != nil {
			return "", err
		}
		extra = append(extra, columnExpr{
			col:  field.String() + "_id",
			expr: fmt.Sprintf("(SELECT id FROM %s)", childAlias),
		})
	}

	var cols, exprs []string
	for _, field := range rec.Fields() {
		v, _ := rec.Get(field)
		if v.Kind == relschema.ValueOneToOne || v.Kind == relschema.ValueOneToMany {
			continue
		}
		expr, err := b.bindValue(v)
		if err != nil {
			return "", err
		}
		cols = append(cols, field.String())
		exprs = append(exprs, expr)
	}
	for _, ce := range extra {
		cols = append(cols, ce.col)
		exprs = append(exprs, ce.expr)
	}

	var setClauses []string
	for _, c := range cols {
		if c != "id" {
			setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
		}
	}
	// A record carrying only its id still needs a non-empty SET list so
	// the ON CONFLICT branch stays valid SQL and still returns the row.
	if len(setClauses) == 0 {
		setClauses = append(setClauses, "id = EXCLUDED.id")
	}

	cte := fmt.Sprintf("%s AS (INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s RETURNING *)",
		ownAlias,
		rec.Table.String(),
		strings.Join(cols, ", "),
		strings.Join(exprs, ", "),
		strings.Join(setClauses, ", "))
	b.ctes = append(b.ctes, cte)

	omcIndex := 0
	for _, field := range rec.Fields() {
		v, _ := rec.Get(field)
		if v.Kind != relschema.ValueOneToMany {
			continue
		}
		for _, child := range v.Children {
			childAlias := fmt.Sprintf("%s_omc%d", namePrefix, omcIndex)
			if _, err := b.emit(child, childAlias, childAlias, []columnExpr{
				{col: "parent_id", expr: fmt.Sprintf("(SELECT id FROM %s)", ownAlias)},
			}); err != nil {
				return "", err
			}
			omcIndex++
		}
	}

	return ownAlias, nil
}
