// SPDX-License-Identifier: Apache-2.0

package relschema

import "fmt"

// DuplicateRegistrationError is returned by Registry.AddResource when a
// type identity is registered twice with structurally different
// tables.
type DuplicateRegistrationError struct {
	Type TypeKey
}

func (e DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("type %q is already registered with a different table definition", e.Type)
}

// DanglingChildError is returned by Registry.Build when a relationship
// column references a table that does not resolve within the
// registered set.
type DanglingChildError struct {
	Table  string
	Column string
}

func (e DanglingChildError) Error() string {
	return fmt.Sprintf("column %q on table %q references a table that does not exist", e.Column, e.Table)
}

// CyclicOwnershipError is returned by Registry.Build when one-to-many
// back-reference injection would require two parent_id columns on the
// same table.
type CyclicOwnershipError struct {
	Table string
}

func (e CyclicOwnershipError) Error() string {
	return fmt.Sprintf("table %q is owned by more than one parent via one-to-many relationships", e.Table)
}

// MissingPrimaryKeyError is returned by Registry.Build when a table has
// no primary-key column.
type MissingPrimaryKeyError struct {
	Table string
}

func (e MissingPrimaryKeyError) Error() string {
	return fmt.Sprintf("table %q has no primary key column", e.Table)
}

// MultiplePrimaryKeysError is returned by Registry.Build when a table
// declares more than one primary-key column; this revision supports
// only a single UUID `id` column.
type MultiplePrimaryKeysError struct {
	Table string
}

func (e MultiplePrimaryKeysError) Error() string {
	return fmt.Sprintf("table %q declares more than one primary key column; composite keys are not supported in this revision", e.Table)
}

// InvalidPrimaryKeyError is returned when a table's primary key is not
// a column named "id" of type Uuid.
type InvalidPrimaryKeyError struct {
	Table  string
	Column string
}

func (e InvalidPrimaryKeyError) Error() string {
	return fmt.Sprintf("table %q primary key column %q must be named \"id\" and be of type uuid", e.Table, e.Column)
}

// DanglingReferenceError is returned by Registry.Build when a scalar
// column's References constraint targets a table or column that does
// not exist in the registered set.
type DanglingReferenceError struct {
	Table  string
	Column string
	Target string
}

func (e DanglingReferenceError) Error() string {
	return fmt.Sprintf("column %q on table %q references %q, which does not exist", e.Column, e.Table, e.Target)
}

// BuildError aggregates a single finalization failure, discarding the
// partially built snapshot.
type BuildError struct {
	Err error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("failed to build schema: %s", e.Err.Error())
}

func (e BuildError) Unwrap() error {
	return e.Err
}
