// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"

	"github.com/xataio/gqlmirror/pkg/store"
)

// inTransaction fails if db already reports being in a transaction;
// otherwise it opens a transaction, runs fn, commits on normal return and
// rolls back on error.
//
// fn is forbidden from ending the transaction it was given: if it leaves
// the store out of the transaction it started (by calling Commit/Rollback
// on the Tx itself), inTransaction panics with a diagnostic rather than
// silently adopting a different transaction. See DESIGN.md for why.
func inTransaction(ctx context.Context, db store.Store, fn func(context.Context, store.Tx) error) error {
	if db.InTransaction() {
		return AlreadyInTransactionError{}
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(ctx, tx); err != nil {
		if !db.InTransaction() {
			panic("mirror: fn ended its own transaction before failing; inTransaction forbids this")
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back after error %w: %w", err, rbErr)
		}
		return err
	}

	if !db.InTransaction() {
		panic("mirror: fn ended its own transaction; inTransaction forbids this")
	}

	return tx.Commit()
}

// execSingleRowUpdate executes a parameterized write statement that must
// change exactly one row; any other count aborts with SingleRowUpdateError
// carrying enough detail (SQL, args, actual count) to diagnose registrar or
// state drift immediately.
func execSingleRowUpdate(ctx context.Context, tx store.Tx, sql string, args ...any) error {
	res, err := tx.ExecContext(ctx, sql, args...)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if rows != 1 {
		return SingleRowUpdateError{SQL: sql, Args: args, RowsAffected: rows}
	}

	return nil
}
