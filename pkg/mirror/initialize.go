// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
	"github.com/xataio/gqlmirror/pkg/store"
)

// schemaVersion is embedded in every on-disk meta.config blob. Any change to
// the mapping rules or column encoding below requires bumping this string;
// an old database then fails to open.
const schemaVersion = "MIRROR_v3"

// Options configures a Mirror instance.
type Options struct {
	// BlacklistedIDs are silently coerced to null wherever they appear as a
	// reference target.
	BlacklistedIDs map[string]bool
}

const structuralDDL = `
CREATE TABLE IF NOT EXISTS meta (
	zero INTEGER PRIMARY KEY CHECK (zero = 0),
	config TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS updates (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	time_epoch_millis INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS objects (
	id TEXT PRIMARY KEY,
	typename TEXT NOT NULL,
	last_update INTEGER REFERENCES updates(rowid)
);

CREATE TABLE IF NOT EXISTS links (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id TEXT NOT NULL REFERENCES objects(id),
	fieldname TEXT NOT NULL,
	child_id TEXT,
	UNIQUE (parent_id, fieldname)
);
CREATE INDEX IF NOT EXISTS idx_links_parent ON links (parent_id, fieldname);
CREATE INDEX IF NOT EXISTS idx_links_child ON links (child_id);

CREATE TABLE IF NOT EXISTS connections (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	object_id TEXT NOT NULL REFERENCES objects(id),
	fieldname TEXT NOT NULL,
	last_update INTEGER REFERENCES updates(rowid),
	total_count INTEGER,
	has_next_page INTEGER,
	end_cursor TEXT,
	UNIQUE (object_id, fieldname)
);
CREATE INDEX IF NOT EXISTS idx_connections_object ON connections (object_id, fieldname);

CREATE TABLE IF NOT EXISTS connection_entries (
	rowid INTEGER PRIMARY KEY AUTOINCREMENT,
	connection_id INTEGER NOT NULL REFERENCES connections(rowid),
	idx INTEGER NOT NULL,
	child_id TEXT,
	UNIQUE (connection_id, idx)
);
CREATE INDEX IF NOT EXISTS idx_connection_entries_connection ON connection_entries (connection_id);
`

// canonicalConfigBlob builds the {version, schema, options} fingerprint
// checked on every reopen, deterministically (sorted schema keys, sorted
// blacklist).
func canonicalConfigBlob(schema gqlschema.Schema, opts Options) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"version":`)
	versionJSON, _ := json.Marshal(schemaVersion)
	buf.Write(versionJSON)
	buf.WriteString(`,"schema":`)
	buf.Write(schema.Canonical())
	buf.WriteString(`,"options":{"blacklistedIds":`)

	ids := make([]string, 0, len(opts.BlacklistedIDs))
	for id := range opts.BlacklistedIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	idsJSON, _ := json.Marshal(ids)
	buf.Write(idsJSON)
	buf.WriteString("}}")

	return buf.Bytes()
}

// initializeStore creates/verifies the structural tables and per-type
// primitive tables, enforcing identity of the on-disk config blob.
func initializeStore(ctx context.Context, db store.Store, info *SchemaInfo, opts Options) error {
	return inTransaction(ctx, db, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (
			zero INTEGER PRIMARY KEY CHECK (zero = 0),
			config TEXT NOT NULL
		)`); err != nil {
			return fmt.Errorf("creating meta table: %w", err)
		}

		blob := canonicalConfigBlob(info.Schema, opts)

		var existing string
		err := tx.QueryRowContext(ctx, `SELECT config FROM meta WHERE zero = 0`).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `INSERT INTO meta (zero, config) VALUES (0, ?)`, string(blob)); err != nil {
				return fmt.Errorf("inserting meta row: %w", err)
			}
			// fall through to structural/primitive table creation

		case err != nil:
			return fmt.Errorf("reading meta row: %w", err)

		case existing == string(blob):
			return nil // already initialized

		default:
			return ConfigMismatchError{}
		}

		if _, err := tx.ExecContext(ctx, structuralDDL); err != nil {
			return fmt.Errorf("creating structural tables: %w", err)
		}

		typenames := make([]string, 0, len(info.Objects))
		for t := range info.Objects {
			typenames = append(typenames, t)
		}
		sort.Strings(typenames)

		for _, typename := range typenames {
			if err := createPrimitivesTable(ctx, tx, typename, info.Objects[typename]); err != nil {
				return err
			}
		}

		return nil
	})
}

func createPrimitivesTable(ctx context.Context, tx store.Tx, typename string, ti TypeInfo) error {
	if err := requireSqlSafe(typename); err != nil {
		return err
	}

	var cols []string
	for _, f := range ti.Primitives {
		if err := requireSqlSafe(f); err != nil {
			return err
		}
		cols = append(cols, fmt.Sprintf(`"%s" TEXT`, f))
	}

	nestedNames := make([]string, 0, len(ti.Nested))
	for n := range ti.Nested {
		nestedNames = append(nestedNames, n)
	}
	sort.Strings(nestedNames)

	for _, n := range nestedNames {
		if err := requireSqlSafe(n); err != nil {
			return err
		}
		cols = append(cols, fmt.Sprintf(`"%s" INTEGER`, n))

		nested := ti.Nested[n]
		for _, egg := range nested.PrimitiveEggs {
			if err := requireSqlSafe(egg); err != nil {
				return err
			}
			cols = append(cols, fmt.Sprintf(`"%s.%s" TEXT`, n, egg))
		}
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "primitives_%s" (id TEXT PRIMARY KEY REFERENCES objects(id)`, typename)
	for _, c := range cols {
		ddl += ", " + c
	}
	ddl += ")"

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating primitives table for %q: %w", typename, err)
	}

	return nil
}
