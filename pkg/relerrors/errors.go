// SPDX-License-Identifier: Apache-2.0

// Package relerrors holds the runtime-facing error taxonomy
// that does not already belong to a single package: the kinds a data
// provider or the migration runner surfaces to a caller, as opposed to
// the build-time kinds owned by relident/relschema (InvalidIdentifier,
// DuplicateRegistration, DanglingChild, CyclicOwnership) or relsql
// (UnsupportedValue, NilChild, UnknownColumn). One exported struct type
// per kind, each with Error() and, where it wraps a cause, Unwrap() —
// grounded on pkg/migrations/errors.go shape.
package relerrors

import "fmt"

// MigrationFailureError wraps a DDL statement rejected by the
// database while running a Migration. The enclosing transaction is
// rolled back before this is returned.
type MigrationFailureError struct {
	Statement string
	Err       error
}

func (e MigrationFailureError) Error() string {
	return fmt.Sprintf("migration failed executing %q: %s", e.Statement, e.Err)
}

func (e MigrationFailureError) Unwrap() error {
	return e.Err
}

// DataIntegrityError is returned when Get observes more than one row,
// an insert violates a constraint other than the expected (id)
// conflict, or a row fails to decode.
type DataIntegrityError struct {
	Reason string
}

func (e DataIntegrityError) Error() string {
	return "data integrity violation: " + e.Reason
}

// TransportFailureError wraps a connection, protocol, or timeout error
// surfaced by the driver.
type TransportFailureError struct {
	Err error
}

func (e TransportFailureError) Error() string {
	return fmt.Sprintf("transport failure: %s", e.Err)
}

func (e TransportFailureError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when an operation that required exactly
// one row (e.g. a strict, non-upserting Update, or a Delete by id)
// observed zero.
type NotFoundError struct {
	Table string
	ID    string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("no row found in %q matching the given predicate", e.Table)
	}
	return fmt.Sprintf("no row with id %q found in %q", e.ID, e.Table)
}
