// SPDX-License-Identifier: Apache-2.0

// Package db is the retryable connection-pool wrapper everything else in
// this module's Postgres path is built on: relprovider/postgres only ever
// touches a database through the db.DB interface, never a raw *sql.DB.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/lib/pq"

	"github.com/relormdb/relorm/pkg/relerrors"
	"github.com/relormdb/relorm/pkg/rellog"
)

const (
	lockNotAvailableErrorCode pq.ErrorCode = "55P03"
	maxBackoffDuration                     = 1 * time.Minute
	backoffInterval                        = 1 * time.Second
)

// DB is the pool handle relprovider/postgres programs against. RDB is
// the production implementation; FakeDB is a no-op stand-in for tests
// that exercise a code path without ever reaching the database.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	WithRetryableTransaction(ctx context.Context, opts *sql.TxOptions, f func(context.Context, *sql.Tx) error) error
	Close() error
}

// RDB wraps a *sql.DB, retrying on lock_timeout errors with exponential
// backoff (with jitter), and surfaces every other driver failure as a
// relerrors.TransportFailureError so callers never branch on *pq.Error
// directly. Logger narrates each retry attempt; a nil Logger is
// replaced with a no-op one.
type RDB struct {
	DB     *sql.DB
	Logger rellog.Logger
}

func (db *RDB) logger() rellog.Logger {
	if db.Logger == nil {
		return rellog.NewNoopLogger()
	}
	return db.Logger
}

// ExecContext wraps sql.DB.ExecContext, retrying on lock_timeout errors.
func (db *RDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	log := db.logger()

	for {
		res, err := db.DB.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}

		if isLockTimeout(err) {
			log.Info("retrying statement after lock_timeout", "query", query)
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, relerrors.TransportFailureError{Err: err}
	}
}

// QueryContext wraps sql.DB.QueryContext, retrying on lock_timeout errors.
func (db *RDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	log := db.logger()

	for {
		rows, err := db.DB.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}

		if isLockTimeout(err) {
			log.Info("retrying query after lock_timeout", "query", query)
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, relerrors.TransportFailureError{Err: err}
	}
}

// WithRetryableTransaction runs f in a transaction opened with opts (nil
// for defaults), retrying the whole attempt on lock_timeout errors. A
// non-retryable error from f is returned unwrapped: f is expected to
// carry its own domain error (relerrors.MigrationFailureError,
// relerrors.DataIntegrityError, ...) rather than a raw driver error.
func (db *RDB) WithRetryableTransaction(ctx context.Context, opts *sql.TxOptions, f func(context.Context, *sql.Tx) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	log := db.logger()

	for {
		tx, err := db.DB.BeginTx(ctx, opts)
		if err != nil {
			return relerrors.TransportFailureError{Err: err}
		}

		err = f(ctx, tx)
		if err == nil {
			if err := tx.Commit(); err != nil {
				return relerrors.TransportFailureError{Err: err}
			}
			return nil
		}

		if errRollback := tx.Rollback(); errRollback != nil {
			return relerrors.TransportFailureError{Err: errRollback}
		}

		if isLockTimeout(err) {
			log.Info("retrying transaction after lock_timeout")
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return err
			}
			continue
		}

		return err
	}
}

func (db *RDB) Close() error {
	return db.DB.Close()
}

func isLockTimeout(err error) bool {
	pqErr := &pq.Error{}
	return errors.As(err, &pqErr) && pqErr.Code == lockNotAvailableErrorCode
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first value, assuming rows contains a
// single row with a single column.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return relerrors.TransportFailureError{Err: err}
		}
	}
	if err := rows.Err(); err != nil {
		return relerrors.TransportFailureError{Err: err}
	}
	return nil
}
