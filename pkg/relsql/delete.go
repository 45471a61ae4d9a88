// SPDX-License-Identifier: Apache-2.0

package relsql

import "fmt"

// BuildDeleteStatement renders "DELETE FROM <table> WHERE id = $1".
// Cascading behavior is whatever the FK declares; the builder never
// synthesizes manual cascades.
func BuildDeleteStatement(table, id string) Statement {
	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE id = $1;", table),
		Args: []any{id},
	}
}
