// SPDX-License-Identifier: Apache-2.0

// Package relsql renders relschema/relplan/relquery values into
// parameterized PostgreSQL text. It never touches a connection: every
// function here is a pure string/arg builder, in the string-building
// style of pkg/migrations/op_create_table.go and
// pkg/migrations/constraints.go. Identifiers are inlined bare:
// relident.Identifier restricts names to [A-Za-z0-9_] at construction,
// so no quoting is needed and none is emitted. Every literal value is
// parameter-bound.
package relsql

// Statement is one SQL text plus its positional arguments, ready to
// pass to (*sql.DB).ExecContext / QueryContext.
type Statement struct {
	SQL  string
	Args []any
}
