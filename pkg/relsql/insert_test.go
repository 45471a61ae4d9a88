// SPDX-License-Identifier: Apache-2.0

package relsql

import (
	"strings"
	"testing"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNestedUpsert_FlatRecord(t *testing.T) {
	rec := relschema.NewRecord(relident.MustNew("users")).
		Set(relident.MustNew("id"), relschema.UuidValue("u1")).
		Set(relident.MustNew("name"), relschema.StringValue("alice"))

	stmt, err := BuildNestedUpsert(rec)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(stmt.SQL, "INSERT INTO"))
	assert.Contains(t, stmt.SQL, "_self AS (INSERT INTO users")
	assert.Contains(t, stmt.SQL, "ON CONFLICT (id) DO UPDATE SET")
	assert.Contains(t, stmt.SQL, "RETURNING *")
	assert.Contains(t, stmt.SQL, "SELECT * FROM _self;")
	assert.Equal(t, []any{"u1", "alice"}, stmt.Args)
}

// Scenario E: parent{id=P, name, child=OneToOne{id=C, v}, items=OneToMany[{id=I1,v},{id=I2,v}]}.
func TestBuildNestedUpsert_NestedTree(t *testing.T) {
	child := relschema.NewRecord(relident.MustNew("children")).
		Set(relident.MustNew("id"), relschema.UuidValue("C")).
		Set(relident.MustNew("v"), relschema.IntValue(1))

	item1 := relschema.NewRecord(relident.MustNew("items")).
		Set(relident.MustNew("id"), relschema.UuidValue("I1")).
		Set(relident.MustNew("v"), relschema.IntValue(10))
	item2 := relschema.NewRecord(relident.MustNew("items")).
		Set(relident.MustNew("id"), relschema.UuidValue("I2")).
		Set(relident.MustNew("v"), relschema.IntValue(20))

	parent := relschema.NewRecord(relident.MustNew("parents")).
		Set(relident.MustNew("id"), relschema.UuidValue("P")).
		Set(relident.MustNew("name"), relschema.StringValue("p")).
		Set(relident.MustNew("child"), relschema.OneToOneValue(child)).
		Set(relident.MustNew("items"), relschema.OneToManyValue([]*relschema.Record{item1, item2}))

	stmt, err := BuildNestedUpsert(parent)
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(stmt.SQL, "INSERT INTO"))
	assert.Equal(t, 4, strings.Count(stmt.SQL, "ON CONFLICT (id) DO UPDATE SET"))
	assert.Equal(t, 4, strings.Count(stmt.SQL, "RETURNING *"))

	childIdx := strings.Index(stmt.SQL, "_child AS")
	selfIdx := strings.Index(stmt.SQL, "_self AS")
	omc0Idx := strings.Index(stmt.SQL, "_omc0 AS")
	omc1Idx := strings.Index(stmt.SQL, "_omc1 AS")

	require.Greater(t, childIdx, -1)
	require.Greater(t, selfIdx, -1)
	require.Greater(t, omc0Idx, -1)
	require.Greater(t, omc1Idx, -1)
	assert.True(t, childIdx < selfIdx)
	assert.True(t, selfIdx < omc0Idx)
	assert.True(t, omc0Idx < omc1Idx)

	assert.Contains(t, stmt.SQL, "child_id) VALUES")
	assert.Contains(t, stmt.SQL, "(SELECT id FROM _child)")
	assert.Contains(t, stmt.SQL, "(SELECT id FROM _self)")
	assert.Contains(t, stmt.SQL, "SELECT * FROM _self;")
}

// A node with two owned one-to-one children (two synthesized FK
// columns) must render the same column order on every call; this
// guards against the extra columns being accumulated through a map.
func TestBuildNestedUpsert_MultipleOneToOneChildrenDeterministicOrder(t *testing.T) {
	newParent := func() *relschema.Record {
		childA := relschema.NewRecord(relident.MustNew("a_table")).
			Set(relident.MustNew("id"), relschema.UuidValue("A"))
		childB := relschema.NewRecord(relident.MustNew("b_table")).
			Set(relident.MustNew("id"), relschema.UuidValue("B"))
		return relschema.NewRecord(relident.MustNew("parents")).
			Set(relident.MustNew("id"), relschema.UuidValue("P")).
			Set(relident.MustNew("a"), relschema.OneToOneValue(childA)).
			Set(relident.MustNew("b"), relschema.OneToOneValue(childB))
	}

	first, err := BuildNestedUpsert(newParent())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		stmt, err := BuildNestedUpsert(newParent())
		require.NoError(t, err)
		assert.Equal(t, first.SQL, stmt.SQL)
	}
}
