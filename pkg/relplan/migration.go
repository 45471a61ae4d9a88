// SPDX-License-Identifier: Apache-2.0

// Package relplan computes the minimal, deterministic set of DDL
// actions needed to move a database from one schema Snapshot to
// another. It never touches a database connection: it is
// pure data in, pure data out, grounded on notion of a
// migration as an ordered list of named operations
// (pkg/migrations/migrations.go's Migration{Name, Operations}).
package relplan

import "github.com/relormdb/relorm/pkg/relschema"

// ActionKind tags the single-purpose DDL action a Migration step
// performs.
type ActionKind string

const (
	CreateTable    ActionKind = "create_table"
	DropTable      ActionKind = "drop_table"
	AddColumn      ActionKind = "add_column"
	DropColumn     ActionKind = "drop_column"
	AlterColumn    ActionKind = "alter_column"
	AddConstraint  ActionKind = "add_constraint"
	DropConstraint ActionKind = "drop_constraint"
)

// ColumnAlteration carries the coalesced set of changes applied to one
// existing column by a single AlterColumn action: type change and
// nullability change are coalesced into one action rather than two.
// Either field, both, or neither may be set.
type ColumnAlteration struct {
	SetType        *relschema.ColumnType
	SetNullability *bool // true means the column becomes nullable
}

// Action is a single step of a Migration. Only the fields relevant to
// Kind are populated, mirroring the tagged-struct idiom already used by
// relschema.ColumnValue.
type Action struct {
	Kind ActionKind

	Table string

	// CreateTable
	NewTable relschema.Table

	// AddColumn
	Column relschema.Column

	// DropColumn, AlterColumn
	ColumnName string

	// AlterColumn
	Alteration ColumnAlteration

	// AddConstraint
	Constraint relschema.TableConstraint

	// DropConstraint
	ConstraintName string
}

// Migration is a minimal, ordered plan of actions taking a database
// from prev to next. An empty Migration (no actions) is
// never returned by Compare; Compare returns nil instead.
type Migration struct {
	Actions []Action
}
