// SPDX-License-Identifier: Apache-2.0

// Package store defines the transactional SQL engine the Mirror core
// consumes: prepared statements, parameter binding, recursive CTE and
// temporary table support, and an InTransaction flag. This package supplies
// the interface plus one concrete SQLite-backed implementation (see
// DESIGN.md).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	maxBackoffDuration = 1 * time.Minute
	backoffInterval    = 10 * time.Millisecond
)

// Store is the transactional SQL engine consumed by the Mirror core.
type Store interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row

	// Begin starts a transaction. It is an error to call Begin while
	// InTransaction() is already true.
	Begin(ctx context.Context) (Tx, error)

	// InTransaction reports whether a transaction started by Begin is
	// currently open on this Store.
	InTransaction() bool

	Close() error
}

// Tx is an open transaction. Implementations must flip the owning Store's
// InTransaction flag back to false on Commit or Rollback.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Commit() error
	Rollback() error
}

// SQLite wraps a *sql.DB opened against the mattn/go-sqlite3 driver.
// ExecContext and QueryContext called on the SQLite itself are retried with
// exponential backoff on SQLITE_BUSY/SQLITE_LOCKED, the SQLite analogue of
// pgroll's retry-on-lock_timeout behaviour in pkg/db.RDB. Statements run
// through a Tx, and QueryRowContext, are not retried.
type SQLite struct {
	db          *sql.DB
	inTxn       bool
}

// Open opens (creating if necessary) a SQLite database file at path with
// foreign keys enabled and WAL journal mode, limited to a single open
// connection. No busy timeout is set in the connection string.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func (s *SQLite) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}
		if isBusy(err) {
			if werr := sleepCtx(ctx, b.Duration()); werr != nil {
				return nil, werr
			}
			continue
		}
		return nil, err
	}
}

func (s *SQLite) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)
	for {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		if isBusy(err) {
			if werr := sleepCtx(ctx, b.Duration()); werr != nil {
				return nil, werr
			}
			continue
		}
		return nil, err
	}
}

func (s *SQLite) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *SQLite) InTransaction() bool {
	return s.inTxn
}

func (s *SQLite) Begin(ctx context.Context) (Tx, error) {
	if s.inTxn {
		return nil, errors.New("store: already in a transaction")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	s.inTxn = true
	return &sqliteTx{tx: tx, owner: s}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Raw exposes the underlying *sql.DB for migrations/tests that need direct
// access (e.g. to inspect sqlite_master).
func (s *SQLite) Raw() *sql.DB { return s.db }

type sqliteTx struct {
	tx    *sql.Tx
	owner *SQLite
}

func (t *sqliteTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *sqliteTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *sqliteTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

func (t *sqliteTx) Commit() error {
	t.owner.inTxn = false
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	t.owner.inTxn = false
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue scans the first column of the first row of rows into dest,
// closing rows afterwards. Used for SELECT ... pluck style reads.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}
