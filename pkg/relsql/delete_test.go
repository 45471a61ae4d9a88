// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDeleteStatement(t *testing.T) {
	stmt := BuildDeleteStatement("users", "u1")
	assert.Equal(t, `DELETE FROM users WHERE id = $1;`, stmt.SQL)
	assert.Equal(t, []any{"u1"}, stmt.Args)
}
