// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/xataio/gqlmirror/pkg/store"
)

// register declares (typename, id) as a root or as the target of a
// freshly-discovered reference. No-op if already registered with the same
// typename; fatal if registered with a different one.
func register(ctx context.Context, db store.Store, info *SchemaInfo, logger Logger, typename, id string) error {
	return inTransaction(ctx, db, func(ctx context.Context, tx store.Tx) error {
		return registerNonTx(ctx, tx, info, logger, typename, id)
	})
}

// registerNonTx is the transaction-agnostic core of register, usable both
// standalone (wrapped by register) and from within a larger ingest
// transaction (registerNodeFieldResult).
func registerNonTx(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, typename, id string) error {
	var existingTypename string
	err := tx.QueryRowContext(ctx, `SELECT typename FROM objects WHERE id = ?`, id).Scan(&existingTypename)
	switch {
	case err == nil:
		if existingTypename != typename {
			return RetypedObjectError{ID: id, OldTypename: existingTypename, NewTypename: typename}
		}
		return nil // already registered under the same typename

	case err != sql.ErrNoRows:
		return fmt.Errorf("looking up object %q: %w", id, err)
	}

	ti, ok := info.Objects[typename]
	if !ok {
		if _, isType := info.Schema.Type(typename); !isType {
			return UnknownTypeError{Typename: typename}
		}
		return NotObjectTypeError{Typename: typename}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO objects (id, typename, last_update) VALUES (?, ?, NULL)`, id, typename); err != nil {
		return fmt.Errorf("inserting object %q: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO "primitives_%s" (id) VALUES (?)`, typename), id); err != nil {
		return fmt.Errorf("inserting primitives row for %q: %w", id, err)
	}

	for _, fieldname := range ti.Links {
		if err := insertLinkRow(ctx, tx, id, fieldname); err != nil {
			return err
		}
	}

	nestedNames := sortedKeys(ti.Nested)
	for _, nested := range nestedNames {
		for _, egg := range ti.Nested[nested].NodeEggs {
			if err := insertLinkRow(ctx, tx, id, nestedEggLinkName(nested, egg)); err != nil {
				return err
			}
		}
	}

	for _, fieldname := range ti.Connections {
		if _, err := tx.ExecContext(ctx, `INSERT INTO connections (object_id, fieldname, last_update, total_count, has_next_page, end_cursor) VALUES (?, ?, NULL, NULL, NULL, NULL)`, id, fieldname); err != nil {
			return fmt.Errorf("inserting connection row %s.%s: %w", id, fieldname, err)
		}
	}

	if logger != nil {
		logger.LogRegister(typename, id)
	}

	return nil
}

func insertLinkRow(ctx context.Context, tx store.Tx, id, fieldname string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO links (parent_id, fieldname, child_id) VALUES (?, ?, NULL)`, id, fieldname); err != nil {
		return fmt.Errorf("inserting link row %s.%s: %w", id, fieldname, err)
	}
	return nil
}

// shallowResult is the minimal shape a queryShallow selection yields: a
// typename plus an id, as produced by the query builder and decoded from the
// transport's JSON response.
type shallowResult struct {
	Typename string
	ID       string
}

// registerNodeFieldResult is the non-transactional ingest helper for a
// resolved node reference: nil result -> nil id; blacklisted id -> nil id
// (silent severing); otherwise register the referenced object and return
// its id.
func registerNodeFieldResult(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, result *shallowResult) (*string, error) {
	if result == nil {
		return nil, nil
	}
	if opts.BlacklistedIDs[result.ID] {
		return nil, nil
	}
	if err := registerNonTx(ctx, tx, info, logger, result.Typename, result.ID); err != nil {
		return nil, err
	}
	id := result.ID
	return &id, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
