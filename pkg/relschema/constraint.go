// SPDX-License-Identifier: Apache-2.0

package relschema

import "github.com/relormdb/relorm/pkg/relident"

// ConstraintKind is the vocabulary shared by column-level and
// table-level constraints.
type ConstraintKind string

const (
	ConstraintNotNull    ConstraintKind = "not_null"
	ConstraintPrimaryKey ConstraintKind = "primary_key"
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintReferences ConstraintKind = "references"
)

// MatchType is the FK MATCH clause.
type MatchType string

const (
	MatchSimple MatchType = "SIMPLE"
	MatchFull   MatchType = "FULL"
)

// ReferentialAction is the ON DELETE / ON UPDATE clause of a foreign
// key.
type ReferentialAction string

const (
	NoAction   ReferentialAction = "NO ACTION"
	Restrict   ReferentialAction = "RESTRICT"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
)

// ForeignKeyRef is the target of a References constraint.
type ForeignKeyRef struct {
	Table    relident.Identifier
	Column   relident.Identifier
	Match    MatchType
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Constraint is a single column-level constraint.
type Constraint struct {
	Kind       ConstraintKind
	ForeignKey ForeignKeyRef
}

// TableConstraint is a constraint declared over a set of columns at the
// table level, used for composite uniqueness (synthesized many-to-many
// join tables) and for the foreign keys the migration planner adds.
// ForeignKey names a single target column.
type TableConstraint struct {
	Name       string
	Kind       ConstraintKind
	Columns    []relident.Identifier
	ForeignKey ForeignKeyRef
}
