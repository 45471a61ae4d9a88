// SPDX-License-Identifier: Apache-2.0

// Package relprovider defines the narrow, async data-provider contract
// the rest of the system programs against. It is
// deliberately thin: it operates on the core's own vocabulary
// (relschema.Record, relquery.Filter/Query) rather than on
// reflection-derived Go structs, because the compile-time mechanism
// that maps a user's Go type to that vocabulary is an external
// collaborator out of scope here — its *output* is what this
// package consumes.
//
// The set of provider kinds is closed: Postgres (pkg/relprovider/postgres)
// and an in-memory reference implementation (pkg/relprovider/memprovider)
// for tests. Both satisfy DataProvider directly rather than through a
// boxed virtual-dispatch layer, since Go interfaces already give static
// dispatch per concrete type without extra indirection.
package relprovider

import (
	"context"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/relquery"
	"github.com/relormdb/relorm/pkg/relschema"
)

// DataProvider is the CRUD + query surface exposed for one table. All
// operations are suspending: the only suspension points are where SQL
// is submitted to the driver and where results are awaited.
type DataProvider interface {
	// All returns every row of the provider's table.
	All(ctx context.Context) ([]*relschema.Record, error)

	// Get returns the single row matching pred. DataIntegrityError is
	// returned if more than one row matches.
	Get(ctx context.Context, pred relquery.Filter) (*relschema.Record, error)

	// Create inserts req, supplying a fresh id when req does not
	// already carry one, and returns the row as persisted. Nested
	// OneToOne/OneToMany children owned by req are inserted in the
	// same transaction.
	Create(ctx context.Context, req *relschema.Record) (*relschema.Record, error)

	// Update overwrites the existing row whose id matches rec's id
	// column. It does not insert: NotFoundError is returned if no row
	// has that id.
	Update(ctx context.Context, rec *relschema.Record) error

	// Delete removes the row with the given id.
	Delete(ctx context.Context, id string) error

	// WithFilter starts a chainable query against the provider's
	// table, pre-filtered by pred.
	WithFilter(pred relquery.Filter) ExecutableQuery
}

// ExecutableQuery is the chainable query handle returned by
// DataProvider.WithFilter.
type ExecutableQuery interface {
	OrderBy(col relquery.ColumnRef, dir relquery.OrderDirection) ExecutableQuery
	Limit(n int) ExecutableQuery
	Execute(ctx context.Context) ([]*relschema.Record, error)
}

// NewRequest starts a create request targeting table: a Record with no
// id set yet. Concrete providers fill in a fresh id during Create if
// the caller has not already set one.
func NewRequest(table relident.Identifier) *relschema.Record {
	return relschema.NewRecord(table)
}
