// SPDX-License-Identifier: Apache-2.0

package relstate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relschema"
	"github.com/relormdb/relorm/pkg/relstate"
)

func testSnapshot(t *testing.T) *relschema.Snapshot {
	t.Helper()
	users := relschema.NewTable(relident.MustNew("users")).
		Column(relschema.UuidColumn(relident.MustNew("id")).NotNull().PrimaryKey()).
		Column(relschema.StringColumn(relident.MustNew("name")).NotNull())

	reg := relschema.NewRegistry()
	require.NoError(t, reg.AddResource("users", users))
	snap, err := reg.Build()
	require.NoError(t, err)
	return snap
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	t.Parallel()

	snap, err := relstate.Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "last.migration")
	snap := testSnapshot(t)

	require.NoError(t, relstate.Save(path, snap))

	loaded, err := relstate.Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, snap.TableNames(), loaded.TableNames())

	orig, ok := snap.GetTable(relident.MustNew("users"))
	require.True(t, ok)
	roundTripped, ok := loaded.GetTable(relident.MustNew("users"))
	require.True(t, ok)
	assert.Equal(t, orig.ColumnNames(), roundTripped.ColumnNames())
}

func TestLoadRejectsDocumentFailingSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "invalid.json")
	invalid := []byte(`{"version": 1, "tables": [{"name": "users"}], "unexpected": true}`)
	require.NoError(t, os.WriteFile(path, invalid, 0o644))

	_, err := relstate.Load(path)
	assert.Error(t, err)
}
