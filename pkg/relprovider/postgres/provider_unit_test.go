// SPDX-License-Identifier: Apache-2.0

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relormdb/relorm/pkg/db"
	"github.com/relormdb/relorm/pkg/relprovider/postgres"
)

// RunMigrations' up-to-date short circuit never touches the database,
// so it can be exercised against db.FakeDB instead of a live container.
func TestRunMigrationsSkipsWhenSnapshotMatches(t *testing.T) {
	engine := postgres.NewEngine(&db.FakeDB{}, nil, nil)
	err := engine.RunMigrations(context.Background(), t.TempDir()+"/nonexistent.json")
	require.NoError(t, err)
}
