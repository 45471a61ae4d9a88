// SPDX-License-Identifier: Apache-2.0

// Package postgres is the reference DataProvider implementation: it
// executes relsql-rendered statements through pkg/db's retryable pool
// wrapper and decodes
// rows back into relschema.Record values. It also owns RunMigrations,
// which loads the previously-persisted snapshot (pkg/relstate), diffs
// it against the registry's current snapshot (pkg/relplan), and
// applies the resulting plan inside one transaction: either the full
// plan applies or nothing applies.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relormdb/relorm/pkg/db"
	"github.com/relormdb/relorm/pkg/relerrors"
	"github.com/relormdb/relorm/pkg/relident"
	"github.com/relormdb/relorm/pkg/rellog"
	"github.com/relormdb/relorm/pkg/relplan"
	"github.com/relormdb/relorm/pkg/relprovider"
	"github.com/relormdb/relorm/pkg/relquery"
	"github.com/relormdb/relorm/pkg/relschema"
	"github.com/relormdb/relorm/pkg/relsql"
	"github.com/relormdb/relorm/pkg/relstate"
)

// Engine owns the connection pool and the current schema snapshot
// shared by every table Provider constructed from it. It is cheap to
// clone and safe to share across goroutines: the Snapshot is
// immutable and db.DB's retry loop has no mutable per-call state of
// its own.
type Engine struct {
	DB     db.DB
	Schema *relschema.Snapshot
	Logger rellog.Logger
}

// NewEngine constructs an Engine from an externally-supplied pool
// handle and a finalized registry snapshot; no environment variables
// are read by the core.
func NewEngine(conn db.DB, snap *relschema.Snapshot, logger rellog.Logger) *Engine {
	if logger == nil {
		logger = rellog.NewNoopLogger()
	}
	return &Engine{DB: conn, Schema: snap, Logger: logger}
}

// RunMigrations brings the database schema up to date with e.Schema.
// It reads the snapshot persisted at snapshotPath (diffing against the
// empty schema if absent), applies the resulting Migration inside one
// transaction, and — only on success — atomically rewrites the
// persisted snapshot to e.Schema.
func (e *Engine) RunMigrations(ctx context.Context, snapshotPath string) error {
	prev, err := relstate.Load(snapshotPath)
	if err != nil {
		return fmt.Errorf("relprovider/postgres: loading persisted snapshot: %w", err)
	}

	migration := relplan.Compare(prev, e.Schema)
	if migration == nil {
		e.Logger.Info("schema already up to date")
		return nil
	}

	stmts := relsql.RenderMigration(migration)
	e.Logger.LogMigrationStart(len(migration.Actions))

	err = e.DB.WithRetryableTransaction(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		for i, stmt := range stmts {
			e.Logger.LogActionStart(migration.Actions[i])
			if _, err := tx.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
				return relerrors.MigrationFailureError{Statement: stmt.SQL, Err: err}
			}
			e.Logger.LogActionComplete(migration.Actions[i])
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.Logger.LogMigrationComplete(len(migration.Actions))
	return relstate.Save(snapshotPath, e.Schema)
}

// Provider is a table-scoped relprovider.DataProvider backed by e.
type Provider struct {
	engine *Engine
	table  relschema.Table
}

var _ relprovider.DataProvider = (*Provider)(nil)

// NewProvider returns a Provider for the named table, which must
// resolve in e.Schema.
func NewProvider(e *Engine, table relident.Identifier) (*Provider, error) {
	t, ok := e.Schema.GetTable(table)
	if !ok {
		return nil, fmt.Errorf("relprovider/postgres: table %q not found in schema", table)
	}
	return &Provider{engine: e, table: t}, nil
}

func (p *Provider) All(ctx context.Context) ([]*relschema.Record, error) {
	return p.WithFilter(relquery.Filter{}).Execute(ctx)
}

func (p *Provider) Get(ctx context.Context, pred relquery.Filter) (*relschema.Record, error) {
	rows, err := p.WithFilter(pred).Limit(2).Execute(ctx)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, relerrors.DataIntegrityError{Reason: fmt.Sprintf("Get observed more than one row in %q", p.table.Name.String())}
	}
}

func (p *Provider) Create(ctx context.Context, req *relschema.Record) (*relschema.Record, error) {
	idCol := relident.MustNew("id")
	if _, ok := req.Get(idCol); !ok {
		req.Set(idCol, relschema.UuidValue(uuid.NewString()))
	}

	stmt, err := relsql.BuildNestedUpsert(req)
	if err != nil {
		return nil, err
	}

	var result *relschema.Record
	err = p.engine.DB.WithRetryableTransaction(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, stmt.SQL, stmt.Args...)
		if err != nil {
			return relerrors.TransportFailureError{Err: err}
		}
		defer rows.Close()

		rec, err := decodeRow(rows, p.table)
		if err != nil {
			return err
		}
		result = rec
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Provider) Update(ctx context.Context, rec *relschema.Record) error {
	idCol := relident.MustNew("id")
	idVal, ok := rec.Get(idCol)
	if !ok {
		return relerrors.DataIntegrityError{Reason: "Update requires a record with an id"}
	}

	stmt, err := relsql.BuildUpdateStatement(rec, idVal.Uuid)
	if err != nil {
		return err
	}

	res, err := p.engine.DB.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return relerrors.TransportFailureError{Err: err}
	}
	if n == 0 {
		return relerrors.NotFoundError{Table: p.table.Name.String(), ID: idVal.Uuid}
	}
	return nil
}

func (p *Provider) Delete(ctx context.Context, id string) error {
	stmt := relsql.BuildDeleteStatement(p.table.Name.String(), id)
	res, err := p.engine.DB.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return relerrors.TransportFailureError{Err: err}
	}
	if n == 0 {
		return relerrors.NotFoundError{Table: p.table.Name.String(), ID: id}
	}
	return nil
}

func (p *Provider) WithFilter(pred relquery.Filter) relprovider.ExecutableQuery {
	q := relquery.NewQuery(p.table.Name)
	if pred.Kind != "" {
		q = q.Where(pred)
	}
	return &ExecutableQuery{provider: p, query: q}
}

// ExecutableQuery is postgres's implementation of
// relprovider.ExecutableQuery.
type ExecutableQuery struct {
	provider *Provider
	query    relquery.Query
}

var _ relprovider.ExecutableQuery = (*ExecutableQuery)(nil)

func (q *ExecutableQuery) OrderBy(col relquery.ColumnRef, dir relquery.OrderDirection) relprovider.ExecutableQuery {
	q.query = q.query.OrderBy(col, dir)
	return q
}

func (q *ExecutableQuery) Limit(n int) relprovider.ExecutableQuery {
	q.query = q.query.Limit(n)
	return q
}

func (q *ExecutableQuery) Execute(ctx context.Context) ([]*relschema.Record, error) {
	stmt, err := relsql.BuildSelectStatement(q.provider.engine.Schema, q.query)
	if err != nil {
		return nil, err
	}

	rows, err := q.provider.engine.DB.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*relschema.Record
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, relerrors.DataIntegrityError{Reason: "failed to scan json_result: " + err.Error()}
		}
		rec, err := decodeJSONRow(raw, q.provider.table)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, relerrors.TransportFailureError{Err: err}
	}
	return out, nil
}

// decodeJSONRow decodes one to_json-wrapped select row
// into a Record, keeping only the table's own scalar columns — the
// aggregated relationship keys the select projection adds (arrays for
// one-to-many/many-to-many, nested objects for one-to-one) are for the
// caller's own decoding, not reconstructed into nested Records here,
// since the registry already rewrote those relationships into plain FK
// columns or synthesized join tables.
func decodeJSONRow(raw []byte, table relschema.Table) (*relschema.Record, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, relerrors.DataIntegrityError{Reason: "failed to decode row JSON: " + err.Error()}
	}

	rec := relschema.NewRecord(table.Name)
	for _, col := range table.Columns() {
		raw, ok := doc[col.Name.String()]
		if !ok {
			continue
		}
		v, err := columnValueFromJSON(col, raw)
		if err != nil {
			return nil, err
		}
		rec.Set(col.Name, v)
	}
	return rec, nil
}

func columnValueFromJSON(col relschema.Column, raw any) (relschema.ColumnValue, error) {
	if raw == nil {
		return relschema.NullValue(), nil
	}
	switch col.Type {
	case relschema.Bool:
		b, ok := raw.(bool)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		return relschema.BoolValue(b), nil
	case relschema.Int:
		n, ok := raw.(float64)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		return relschema.IntValue(int64(n)), nil
	case relschema.Float:
		n, ok := raw.(float64)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		return relschema.FloatValue(n), nil
	case relschema.String:
		s, ok := raw.(string)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		return relschema.StringValue(s), nil
	case relschema.Uuid:
		s, ok := raw.(string)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		return relschema.UuidValue(s), nil
	case relschema.Timestamp:
		s, ok := raw.(string)
		if !ok {
			return relschema.ColumnValue{}, decodeTypeError(col, raw)
		}
		t, err := parseTimestamp(s)
		if err != nil {
			return relschema.ColumnValue{}, relerrors.DataIntegrityError{Reason: err.Error()}
		}
		return relschema.TimestampValue(t), nil
	case relschema.Json:
		encoded, err := json.Marshal(raw)
		if err != nil {
			return relschema.ColumnValue{}, relerrors.DataIntegrityError{Reason: err.Error()}
		}
		return relschema.JsonValue(string(encoded)), nil
	default:
		return relschema.ColumnValue{}, decodeTypeError(col, raw)
	}
}

func decodeTypeError(col relschema.Column, raw any) error {
	return relerrors.DataIntegrityError{
		Reason: fmt.Sprintf("column %q: expected a JSON value compatible with %s, got %T", col.Name.String(), col.Type, raw),
	}
}

// decodeRow decodes the single row returned by the terminal statement
// of a nested upsert ("SELECT * FROM <cte>;") into a Record, using
// rows.Columns() to map positions back to column names since
// RETURNING * does not guarantee declaration order.
func decodeRow(rows *sql.Rows, table relschema.Table) (*relschema.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, relerrors.TransportFailureError{Err: err}
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, relerrors.TransportFailureError{Err: err}
		}
		return nil, relerrors.NotFoundError{Table: table.Name.String()}
	}

	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, relerrors.DataIntegrityError{Reason: "failed to scan returned row: " + err.Error()}
	}

	rec := relschema.NewRecord(table.Name)
	for i, name := range cols {
		col, ok := table.GetColumn(relident.MustNew(name))
		if !ok {
			continue
		}
		v, err := columnValueFromDriver(col, *(dest[i].(*any)))
		if err != nil {
			return nil, err
		}
		rec.Set(col.Name, v)
	}
	return rec, nil
}

func columnValueFromDriver(col relschema.Column, raw any) (relschema.ColumnValue, error) {
	if raw == nil {
		return relschema.NullValue(), nil
	}
	switch col.Type {
	case relschema.Bool:
		if b, ok := raw.(bool); ok {
			return relschema.BoolValue(b), nil
		}
	case relschema.Int:
		if n, ok := raw.(int64); ok {
			return relschema.IntValue(n), nil
		}
	case relschema.Float:
		if f, ok := raw.(float64); ok {
			return relschema.FloatValue(f), nil
		}
	case relschema.String:
		if s, ok := asString(raw); ok {
			return relschema.StringValue(s), nil
		}
	case relschema.Uuid:
		if s, ok := asString(raw); ok {
			return relschema.UuidValue(s), nil
		}
	case relschema.Timestamp:
		if t, ok := raw.(time.Time); ok {
			return relschema.TimestampValue(t), nil
		}
		if s, ok := asString(raw); ok {
			if t, err := parseTimestamp(s); err == nil {
				return relschema.TimestampValue(t), nil
			}
		}
	case relschema.Json:
		if s, ok := asString(raw); ok {
			return relschema.JsonValue(s), nil
		}
	}
	return relschema.ColumnValue{}, decodeTypeError(col, raw)
}

// parseTimestamp accepts both the RFC 3339 form Postgres's json/jsonb
// encoders produce and the plain "2006-01-02 15:04:05.999999" form
// returned by a driver-level timestamptz scan.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05.999999-07", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05.999999", s)
}

func asString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}
