// SPDX-License-Identifier: Apache-2.0

// Package testutils provides a shared Postgres testcontainer for
// package-level integration tests, grounded on its predecessor's
// pkg/testutils/util.go harness (trimmed of the migration-engine
// specific helpers that do not apply to this module).
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresVersion = "15.3"

var tConnStr string

// SharedTestMain starts a postgres container used by every test in a
// package; each test connects and creates its own scratch database.
func SharedTestMain(m *testing.M) {
	ctx := context.Background()

	waitForLogs := wait.
		ForLog("database system is ready to accept connections").
		WithOccurrence(2).
		WithStartupTimeout(5 * time.Second)

	pgVersion := os.Getenv("POSTGRES_VERSION")
	if pgVersion == "" {
		pgVersion = defaultPostgresVersion
	}

	ctr, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:"+pgVersion),
		testcontainers.WithWaitStrategy(waitForLogs),
	)
	if err != nil {
		os.Exit(1)
	}

	tConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		os.Exit(1)
	}

	exitCode := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		log.Printf("failed to terminate container: %v", err)
	}

	os.Exit(exitCode)
}

// WithConnectionToContainer hands fn a connection to a fresh scratch
// database inside the shared container.
func WithConnectionToContainer(t *testing.T, fn func(conn *sql.DB, connStr string)) {
	t.Helper()
	db, connStr, _ := setupTestDatabase(t)
	fn(db, connStr)
}

func setupTestDatabase(t *testing.T) (*sql.DB, string, string) {
	t.Helper()
	ctx := context.Background()

	tDB, err := sql.Open("postgres", tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := tDB.Close(); err != nil {
			t.Fatalf("failed to close database connection: %v", err)
		}
	})

	dbName := randomDBName()
	if _, err := tDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))); err != nil {
		t.Fatal(err)
	}

	u, err := url.Parse(tConnStr)
	if err != nil {
		t.Fatal(err)
	}
	u.Path = "/" + dbName
	connStr := u.String()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("failed to close database connection: %v", err)
		}
	})

	return db, connStr, dbName
}

func randomDBName() string {
	const length = 15
	const charset = "abcdefghijklmnopqrstuvwxyz"

	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))] // #nosec G404
	}
	return "testdb_" + string(b)
}
