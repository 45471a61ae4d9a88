// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"fmt"
	"strings"

	"github.com/relormdb/relorm/pkg/relplan"
	"github.com/relormdb/relorm/pkg/relschema"
)

// CreateTableStatement renders "CREATE TABLE IF NOT EXISTS <name>
// (<col-def>, ...);".
func CreateTableStatement(t relschema.Table) Statement {
	defs := make([]string, 0, len(t.Columns()))
	for _, c := range t.Columns() {
		defs = append(defs, columnDefSQL(c))
	}
	for _, tc := range t.TableConstraints() {
		defs = append(defs, tableConstraintSQL(tc))
	}
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);",
		t.Name.String(), strings.Join(defs, ", "))
	return Statement{SQL: sql}
}

// DropTableStatement renders "DROP TABLE IF EXISTS <name>;".
func DropTableStatement(table string) Statement {
	return Statement{SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)}
}

func columnDefSQL(c relschema.Column) string {
	def := fmt.Sprintf("%s %s", c.Name.String(), c.Type.PostgresType())
	if !c.IsNullable() {
		def += " NOT NULL"
	}
	if c.IsPrimaryKey() {
		def += " PRIMARY KEY"
	}
	if c.IsUnique() {
		def += " UNIQUE"
	}
	if ref, ok := c.ForeignKeyConstraint(); ok {
		def += " " + foreignKeyClauseSQL(ref)
	}
	return def
}

func foreignKeyClauseSQL(ref relschema.ForeignKeyRef) string {
	clause := fmt.Sprintf("REFERENCES %s(%s)", ref.Table.String(), ref.Column.String())
	if ref.Match != "" {
		clause += " MATCH " + string(ref.Match)
	}
	if ref.OnDelete != "" {
		clause += " ON DELETE " + string(ref.OnDelete)
	}
	if ref.OnUpdate != "" {
		clause += " ON UPDATE " + string(ref.OnUpdate)
	}
	return clause
}

func tableConstraintSQL(tc relschema.TableConstraint) string {
	cols := make([]string, len(tc.Columns))
	for i, c := range tc.Columns {
		cols[i] = c.String()
	}
	name := tc.Name
	switch tc.Kind {
	case relschema.ConstraintUnique:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", name, strings.Join(cols, ", "))
	case relschema.ConstraintPrimaryKey:
		return fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", name, strings.Join(cols, ", "))
	case relschema.ConstraintReferences:
		return fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) %s", name, strings.Join(cols, ", "), foreignKeyClauseSQL(tc.ForeignKey))
	default:
		return fmt.Sprintf("CONSTRAINT %s CHECK (TRUE)", name)
	}
}

// RenderMigration renders every action of a Migration into one
// Statement per action, in the plan's already-deterministic order.
// Multiple AlterColumn actions against the same table are not
// automatically merged into a single ALTER TABLE statement: each Action
// already carries the full coalesced set of changes for its own column
// (relplan.ColumnAlteration).
func RenderMigration(m *relplan.Migration) []Statement {
	if m == nil {
		return nil
	}
	stmts := make([]Statement, 0, len(m.Actions))
	for _, a := range m.Actions {
		stmts = append(stmts, RenderAction(a))
	}
	return stmts
}

// RenderAction renders a single migration action.
func RenderAction(a relplan.Action) Statement {
	switch a.Kind {
	case relplan.CreateTable:
		return CreateTableStatement(a.NewTable)
	case relplan.DropTable:
		return DropTableStatement(a.Table)
	case relplan.AddColumn:
		return Statement{SQL: fmt.Sprintf("ALTER TABLE IF EXISTS %s ADD COLUMN %s;",
			a.Table, columnDefSQL(a.Column))}
	case relplan.DropColumn:
		return Statement{SQL: fmt.Sprintf("ALTER TABLE IF EXISTS %s DROP COLUMN IF EXISTS %s;",
			a.Table, a.ColumnName)}
	case relplan.AlterColumn:
		return Statement{SQL: fmt.Sprintf("ALTER TABLE IF EXISTS %s %s;",
			a.Table, alterColumnSubActionsSQL(a.ColumnName, a.Alteration))}
	case relplan.AddConstraint:
		return Statement{SQL: fmt.Sprintf("ALTER TABLE IF EXISTS %s ADD %s;",
			a.Table, tableConstraintSQL(a.Constraint))}
	case relplan.DropConstraint:
		return Statement{SQL: fmt.Sprintf("ALTER TABLE IF EXISTS %s DROP CONSTRAINT IF EXISTS %s;",
			a.Table, a.ConstraintName)}
	default:
		return Statement{}
	}
}

func alterColumnSubActionsSQL(column string, alt relplan.ColumnAlteration) string {
	var parts []string
	if alt.SetType != nil {
		parts = append(parts, fmt.Sprintf("ALTER COLUMN %s TYPE %s", column, (*alt.SetType).PostgresType()))
	}
	if alt.SetNullability != nil {
		if *alt.SetNullability {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", column))
		} else {
			parts = append(parts, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", column))
		}
	}
	return strings.Join(parts, ", ")
}
