// SPDX-License-Identifier: Apache-2.0

// Package relident implements the validated identifier newtype that is
// the only way table and column names enter generated SQL.
package relident

import "regexp"

// MaxLength mirrors PostgreSQL's own identifier length limit.
// https://www.postgresql.org/docs/current/sql-syntax-lexical.html#SQL-SYNTAX-IDENTIFIERS
const MaxLength = 63

var validPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Identifier is a validated name: non-empty, restricted to
// [A-Za-z0-9_]. It is the sole means of introducing a table or column
// name into emitted SQL, so validation here is the global defense
// against injection.
type Identifier struct {
	s string
}

// New validates s and returns an Identifier, or InvalidIdentifierError if
// s is empty, too long, or contains characters outside [A-Za-z0-9_].
func New(s string) (Identifier, error) {
	if s == "" || len(s) > MaxLength || !validPattern.MatchString(s) {
		return Identifier{}, InvalidIdentifierError{Name: s}
	}
	return Identifier{s: s}, nil
}

// MustNew is like New but panics on an invalid identifier. It exists for
// call sites that construct identifiers from compile-time constants
// (table/column names known at build time).
func MustNew(s string) Identifier {
	id, err := New(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the validated name.
func (id Identifier) String() string {
	return id.s
}

// IsZero reports whether id is the zero value (never produced by New).
func (id Identifier) IsZero() bool {
	return id.s == ""
}

// Equal reports whether id and other name the same identifier.
func (id Identifier) Equal(other Identifier) bool {
	return id.s == other.s
}

// InvalidIdentifierError is returned by New when a candidate name fails
// validation.
type InvalidIdentifierError struct {
	Name string
}

func (e InvalidIdentifierError) Error() string {
	return "invalid identifier: " + quote(e.Name)
}

func quote(s string) string {
	return `"` + s + `"`
}
