// SPDX-License-Identifier: Apache-2.0

package relschema

import "github.com/relormdb/relorm/pkg/relident"

// ColumnType is the tag of a column's value domain. The relationship
// variants (OneToOne, OneToMany, ManyToMany) are virtual: the registry
// rewrites them into concrete scalar/FK columns or synthesized tables
// during finalization (see Registry.Build) and they never reach DDL
// directly.
type ColumnType string

const (
	Bool      ColumnType = "bool"
	Int       ColumnType = "int"
	Float     ColumnType = "float"
	String    ColumnType = "string"
	Timestamp ColumnType = "timestamp"
	Uuid      ColumnType = "uuid"
	Json      ColumnType = "json"

	OneToOne   ColumnType = "one_to_one"
	OneToMany  ColumnType = "one_to_many"
	ManyToMany ColumnType = "many_to_many"
)

// IsRelationship reports whether t is one of the virtual relationship
// types rewritten by the registry rather than emitted as a column.
func (t ColumnType) IsRelationship() bool {
	switch t {
	case OneToOne, OneToMany, ManyToMany:
		return true
	default:
		return false
	}
}

// PostgresType returns the physical column type used in DDL for a
// scalar ColumnType. It panics for relationship types, which never
// reach DDL directly.
func (t ColumnType) PostgresType() string {
	switch t {
	case Bool:
		return "BOOLEAN"
	case Int:
		return "BIGINT"
	case Float:
		return "DOUBLE PRECISION"
	case String:
		return "TEXT"
	case Timestamp:
		return "TIMESTAMPTZ"
	case Uuid:
		return "UUID"
	case Json:
		return "JSONB"
	default:
		panic("relschema: " + string(t) + " has no physical column type")
	}
}

// Column is a single column definition: a name, a type, and the set of
// constraints declared directly on it.
type Column struct {
	Name        relident.Identifier
	Type        ColumnType
	Constraints []Constraint

	// Referent is set only for relationship-typed columns: the table
	// identity (TypeKey) the relationship points at.
	Referent TypeKey
}

// BoolColumn, IntColumn, ... construct scalar columns of each type.
// Fluent modifiers (NotNull, PrimaryKey, References) can be chained.
func BoolColumn(name relident.Identifier) Column      { return Column{Name: name, Type: Bool} }
func IntColumn(name relident.Identifier) Column       { return Column{Name: name, Type: Int} }
func FloatColumn(name relident.Identifier) Column     { return Column{Name: name, Type: Float} }
func StringColumn(name relident.Identifier) Column    { return Column{Name: name, Type: String} }
func TimestampColumn(name relident.Identifier) Column { return Column{Name: name, Type: Timestamp} }
func UuidColumn(name relident.Identifier) Column      { return Column{Name: name, Type: Uuid} }
func JsonColumn(name relident.Identifier) Column      { return Column{Name: name, Type: Json} }

// OneToOneColumn declares a virtual column owning a single related
// record of the table identified by referent.
func OneToOneColumn(name relident.Identifier, referent TypeKey) Column {
	return Column{Name: name, Type: OneToOne, Referent: referent}
}

// OneToManyColumn declares a virtual column owning a collection of
// related records of the table identified by referent.
func OneToManyColumn(name relident.Identifier, referent TypeKey) Column {
	return Column{Name: name, Type: OneToMany, Referent: referent}
}

// ManyToManyColumn declares a virtual column sharing a collection of
// related records of the table identified by referent, via a
// synthesized join table.
func ManyToManyColumn(name relident.Identifier, referent TypeKey) Column {
	return Column{Name: name, Type: ManyToMany, Referent: referent}
}

// NotNull marks the column as required.
func (c Column) NotNull() Column {
	c.Constraints = append(c.Constraints, Constraint{Kind: ConstraintNotNull})
	return c
}

// PrimaryKey marks the column as the table's primary key.
// Registry.Build rejects a table with more than one such column.
func (c Column) PrimaryKey() Column {
	c.Constraints = append(c.Constraints, Constraint{Kind: ConstraintPrimaryKey})
	return c
}

// Unique marks the column as unique.
func (c Column) Unique() Column {
	c.Constraints = append(c.Constraints, Constraint{Kind: ConstraintUnique})
	return c
}

// References adds a foreign-key constraint to the column. Only valid on
// scalar-typed columns; relationship-typed columns carry their referent
// via Column.Referent instead.
func (c Column) References(ref ForeignKeyRef) Column {
	c.Constraints = append(c.Constraints, Constraint{Kind: ConstraintReferences, ForeignKey: ref})
	return c
}

// IsNullable reports whether the column carries no NotNull constraint.
func (c Column) IsNullable() bool {
	return !c.Has(ConstraintNotNull)
}

// IsPrimaryKey reports whether the column carries a PrimaryKey
// constraint.
func (c Column) IsPrimaryKey() bool {
	return c.Has(ConstraintPrimaryKey)
}

// IsUnique reports whether the column carries a Unique constraint.
func (c Column) IsUnique() bool {
	return c.Has(ConstraintUnique)
}

// Has reports whether the column carries a constraint of the given
// kind.
func (c Column) Has(kind ConstraintKind) bool {
	for _, cs := range c.Constraints {
		if cs.Kind == kind {
			return true
		}
	}
	return false
}

// ForeignKeyConstraint returns the column's References constraint, if
// any.
func (c Column) ForeignKeyConstraint() (ForeignKeyRef, bool) {
	for _, cs := range c.Constraints {
		if cs.Kind == ConstraintReferences {
			return cs.ForeignKey, true
		}
	}
	return ForeignKeyRef{}, false
}
