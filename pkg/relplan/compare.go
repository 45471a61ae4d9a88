// SPDX-License-Identifier: Apache-2.0

package relplan

import (
	"sort"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relschema"
)

// Compare diffs prev against next and returns a minimal migration plan,
// or nil if the two schemas are structurally equal. prev
// may be nil, meaning "no previous schema" (diff against empty).
func Compare(prev, next *relschema.Snapshot) *Migration {
	prevTables := tableMap(prev)
	nextTables := tableMap(next)

	var dropConstraints, dropColumns, dropTables, createTables, addColumns, alterColumns, addConstraints []Action

	tableNames := unionKeys(prevTables, nextTables)
	for _, name := range tableNames {
		p, inPrev := prevTables[name]
		n, inNext := nextTables[name]

		switch {
		case inNext && !inPrev:
			createTables = append(createTables, Action{Kind: CreateTable, Table: name, NewTable: n})
		case inPrev && !inNext:
			dropTables = append(dropTables, Action{Kind: DropTable, Table: name})
		default:
			dc, dCol, aCol, altCol, aCon := diffColumns(name, p, n)
			dropConstraints = append(dropConstraints, dc...)
			dropColumns = append(dropColumns, dCol...)
			addColumns = append(addColumns, aCol...)
			alterColumns = append(alterColumns, altCol...)
			addConstraints = append(addConstraints, aCon...)
		}
	}

	sortActions(dropConstraints)
	sortActions(dropColumns)
	sortActions(dropTables)
	sortActions(createTables)
	sortActions(addColumns)
	sortActions(alterColumns)
	sortActions(addConstraints)

	// Ordering rule: DropConstraint, DropColumn, DropTable, CreateTable,
	// AddColumn, AlterColumn, AddConstraint. AlterColumn's bucket
	// position is documented in DESIGN.md: placed after AddColumn,
	// before AddConstraint.
	var actions []Action
	actions = append(actions, dropConstraints...)
	actions = append(actions, dropColumns...)
	actions = append(actions, dropTables...)
	actions = append(actions, createTables...)
	actions = append(actions, addColumns...)
	actions = append(actions, alterColumns...)
	actions = append(actions, addConstraints...)

	if len(actions) == 0 {
		return nil
	}
	return &Migration{Actions: actions}
}

func diffColumns(table string, prev, next relschema.Table) (dropConstraints, dropColumns, addColumns, alterColumns, addConstraints []Action) {
	prevCols := make(map[string]relschema.Column)
	for _, c := range prev.Columns() {
		prevCols[c.Name.String()] = c
	}
	nextCols := make(map[string]relschema.Column)
	for _, c := range next.Columns() {
		nextCols[c.Name.String()] = c
	}

	for colName := range unionStringKeys(prevCols, nextCols) {
		pc, inPrev := prevCols[colName]
		nc, inNext := nextCols[colName]

		switch {
		case inNext && !inPrev:
			addColumns = append(addColumns, Action{Kind: AddColumn, Table: table, Column: nc})
			continue
		case inPrev && !inNext:
			dropColumns = append(dropColumns, Action{Kind: DropColumn, Table: table, ColumnName: colName})
			continue
		}

		var alteration ColumnAlteration
		altered := false

		if pc.Type != nc.Type {
			t := nc.Type
			alteration.SetType = &t
			altered = true
		}
		if pc.IsNullable() != nc.IsNullable() {
			nullable := nc.IsNullable()
			alteration.SetNullability = &nullable
			altered = true
		}
		if altered {
			alterColumns = append(alterColumns, Action{Kind: AlterColumn, Table: table, ColumnName: colName, Alteration: alteration})
		}

		pRef, pHasRef := pc.ForeignKeyConstraint()
		nRef, nHasRef := nc.ForeignKeyConstraint()
		switch {
		case nHasRef && !pHasRef:
			addConstraints = append(addConstraints, Action{
				Kind:       AddConstraint,
				Table:      table,
				Constraint: foreignKeyTableConstraint(table, colName, nRef),
			})
		case pHasRef && !nHasRef:
			dropConstraints = append(dropConstraints, Action{
				Kind:           DropConstraint,
				Table:          table,
				ConstraintName: generatedForeignKeyName(table, colName),
			})
		case pHasRef && nHasRef && (pRef.Table.String() != nRef.Table.String() || pRef.Column.String() != nRef.Column.String()):
			dropConstraints = append(dropConstraints, Action{
				Kind:           DropConstraint,
				Table:          table,
				ConstraintName: generatedForeignKeyName(table, colName),
			})
			addConstraints = append(addConstraints, Action{
				Kind:       AddConstraint,
				Table:      table,
				Constraint: foreignKeyTableConstraint(table, colName, nRef),
			})
		}
	}

	return
}

// generatedForeignKeyName is the stable constraint name synthesized for
// an unnamed column-level foreign key.
func generatedForeignKeyName(table, column string) string {
	return "fk_" + table + "_" + column
}

func foreignKeyTableConstraint(table, column string, ref relschema.ForeignKeyRef) relschema.TableConstraint {
	return relschema.TableConstraint{
		Name:       generatedForeignKeyName(table, column),
		Kind:       relschema.ConstraintReferences,
		Columns:    []relident.Identifier{relident.MustNew(column)},
		ForeignKey: ref,
	}
}

func tableMap(s *relschema.Snapshot) map[string]relschema.Table {
	out := make(map[string]relschema.Table)
	if s == nil {
		return out
	}
	for _, t := range s.Tables() {
		out[t.Name.String()] = t
	}
	return out
}

func unionKeys(a, b map[string]relschema.Table) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unionStringKeys(a, b map[string]relschema.Column) map[string]struct{} {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	return seen
}

// sortActions orders actions lexicographically by table then column so
// output is deterministic.
func sortActions(actions []Action) {
	sort.Slice(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if a.Table != b.Table {
			return a.Table < b.Table
		}
		ac := actionColumnKey(a)
		bc := actionColumnKey(b)
		return ac < bc
	})
}

func actionColumnKey(a Action) string {
	switch a.Kind {
	case AddColumn:
		return a.Column.Name.String()
	case DropColumn, AlterColumn:
		return a.ColumnName
	case AddConstraint:
		return a.Constraint.Name
	case DropConstraint:
		return a.ConstraintName
	default:
		return ""
	}
}
