// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"database/sql"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relormdb/relorm/internal/testutils"
	"github.com/relormdb/relorm/pkg/db"
	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relprovider/postgres"
	"github.com/relormdb/relorm/pkg/relquery"
	"github.com/relormdb/relorm/pkg/relschema"
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		m.Run()
		return
	}
	testutils.SharedTestMain(m)
}

func usersSnapshot(t *testing.T) *relschema.Snapshot {
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

func newEngine(t *testing.T) *postgres.Engine {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Postgres-backed integration test in short mode")
	}
	var engine *postgres.Engine
	testutils.WithConnectionToContainer(t, func(conn *sql.DB, connStr string) {
		rdb := &db.RDB{DB: conn}
		snap := usersSnapshot(t)
		engine = postgres.NewEngine(rdb, snap, nil)

		ctx := context.Background()
		_, err := conn.ExecContext(ctx, `CREATE TABLE users (id uuid PRIMARY KEY, name text NOT NULL)`)
		require.NoError(t, err)
	})
	return engine
}

func TestCreateThenGetRoundTrips(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	engine := newEngine(t)
	p, err := postgres.NewProvider(engine, relident.MustNew("users"))
	require.NoError(t, err)

	req := relschema.NewRecord(relident.MustNew("users"))
	req.Set(relident.MustNew("name"), relschema.StringValue("alice"))

	created, err := p.Create(ctx, req)
	require.NoError(t, err)

	idVal, ok := created.Get(relident.MustNew("id"))
	require.True(t, ok)
	assert.NotEmpty(t, idVal.Uuid)

	col := relquery.Col("users", "name")
	got, err := p.Get(ctx, col.Eq("alice"))
	require.NoError(t, err)
	require.NotNil(t, got)

	nameVal, ok := got.Get(relident.MustNew("name"))
	require.True(t, ok)
	assert.Equal(t, "alice", nameVal.String)
}

func TestUpdateOnUnknownIDReturnsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	engine := newEngine(t)
	p, err := postgres.NewProvider(engine, relident.MustNew("users"))
	require.NoError(t, err)

	rec := relschema.NewRecord(relident.MustNew("users"))
	rec.Set(relident.MustNew("id"), relschema.UuidValue("00000000-0000-0000-0000-000000000000"))
	rec.Set(relident.MustNew("name"), relschema.StringValue("ghost"))

	err = p.Update(ctx, rec)
	assert.Error(t, err)
}

func TestDeleteRemovesRow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	engine := newEngine(t)
	p, err := postgres.NewProvider(engine, relident.MustNew("users"))
	require.NoError(t, err)

	req := relschema.NewRecord(relident.MustNew("users"))
	req.Set(relident.MustNew("name"), relschema.StringValue("bob"))
	created, err := p.Create(ctx, req)
	require.NoError(t, err)

	idVal, _ := created.Get(relident.MustNew("id"))
	require.NoError(t, p.Delete(ctx, idVal.Uuid))

	rows, err := p.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRunMigrationsCreatesMissingTable(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("skipping Postgres-backed integration test in short mode")
	}
	ctx := context.Background()

	var conn *sql.DB
	var rdb *db.RDB
	testutils.WithConnectionToContainer(t, func(c *sql.DB, connStr string) {
		conn = c
		rdb = &db.RDB{DB: c}
	})

	widgets := relschema.NewTable(relident.MustNew("widgets")).
		Column(relschema.UuidColumn(relident.MustNew("id")).NotNull().PrimaryKey()).
		Column(relschema.StringColumn(relident.MustNew("label")).NotNull())
	reg := relschema.NewRegistry()
	require.NoError(t, reg.AddResource("widgets", widgets))
	snap, err := reg.Build()
	require.NoError(t, err)

	engine := postgres.NewEngine(rdb, snap, nil)
	snapshotPath := t.TempDir() + "/last.migration"

	require.NoError(t, engine.RunMigrations(ctx, snapshotPath))

	var exists bool
	err = conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'widgets')`,
	).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)

	// Running again against the same snapshot should be a no-op.
	require.NoError(t, engine.RunMigrations(ctx, snapshotPath))
}
