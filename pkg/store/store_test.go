// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xataio/gqlmirror/pkg/store"
)

func openTestStore(t *testing.T) *store.SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.sqlite")
	db, err := store.Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ExecContext(context.Background(), `CREATE TABLE t (id TEXT)`)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestTransactionCommit(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE t (id TEXT)`)
	require.NoError(t, err)

	require.False(t, db.InTransaction())
	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	require.True(t, db.InTransaction())

	_, err = tx.ExecContext(ctx, `INSERT INTO t (id) VALUES (?)`, "a")
	require.NoError(t, err)

	require.NoError(t, tx.Commit())
	require.False(t, db.InTransaction())

	var id string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT id FROM t`).Scan(&id))
	require.Equal(t, "a", id)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE t (id TEXT)`)
	require.NoError(t, err)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)

	_, err = tx.ExecContext(ctx, `INSERT INTO t (id) VALUES (?)`, "a")
	require.NoError(t, err)

	require.NoError(t, tx.Rollback())
	require.False(t, db.InTransaction())

	row := db.QueryRowContext(ctx, `SELECT id FROM t`)
	require.ErrorIs(t, row.Scan(new(string)), sql.ErrNoRows)
}

func TestBeginFailsWhileAlreadyInTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = db.Begin(ctx)
	require.Error(t, err)
}

func TestScanFirstValue(t *testing.T) {
	ctx := context.Background()
	db := openTestStore(t)

	_, err := db.ExecContext(ctx, `CREATE TABLE t (id TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO t (id) VALUES ('x'), ('y')`)
	require.NoError(t, err)

	rows, err := db.QueryContext(ctx, `SELECT id FROM t ORDER BY id`)
	require.NoError(t, err)

	var first string
	require.NoError(t, store.ScanFirstValue(rows, &first))
	require.Equal(t, "x", first)
}
