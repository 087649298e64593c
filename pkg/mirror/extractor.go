// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xataio/gqlmirror/pkg/store"
)

// Object is a materialized node of an extracted graph: a plain map keyed by
// fieldname, plus "__typename" and "id". Node-shaped and nested-group slots
// hold either nil or another Object; connection slots hold a []any whose
// elements are Object or nil. The graph may be cyclic; callers may mutate
// the returned map tree freely.
type Object = map[string]any

// extract builds an in-memory, possibly-cyclic object graph rooted at
// rootID by a recursive-closure scan over the store, checking freshness
// before materializing anything.
func extract(ctx context.Context, db store.Store, info *SchemaInfo, logger Logger, rootID string) (Object, error) {
	if logger != nil {
		logger.LogExtractStart(rootID)
	}

	var root Object
	var objectCount int
	err := inTransaction(ctx, db, func(ctx context.Context, tx store.Tx) error {
		tmpTable, err := nextTempTableName(ctx, tx)
		if err != nil {
			return err
		}

		if err := createTransitiveDependencyTable(ctx, tx, tmpTable, rootID); err != nil {
			return err
		}
		defer tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, tmpTable))

		if err := checkFreshness(ctx, tx, tmpTable); err != nil {
			return err
		}

		objects, err := materializeRecords(ctx, tx, info, tmpTable)
		if err != nil {
			return err
		}

		if err := resolveLinks(ctx, tx, info, tmpTable, objects); err != nil {
			return err
		}

		if err := resolveConnections(ctx, tx, tmpTable, objects); err != nil {
			return err
		}

		r, ok := objects[rootID]
		if !ok {
			return RootNotFoundError{ID: rootID}
		}
		root = r
		objectCount = len(objects)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.LogExtractComplete(rootID, objectCount)
	}

	return root, nil
}

// createTransitiveDependencyTable builds a TEMP table holding (id,
// typename) for rootID plus every object transitively reachable through
// links and connection entries, via a recursive CTE.
func createTransitiveDependencyTable(ctx context.Context, tx store.Tx, tmpTable, rootID string) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TEMP TABLE "%s" (id TEXT PRIMARY KEY, typename TEXT NOT NULL)
	`, tmpTable)); err != nil {
		return fmt.Errorf("creating temp table %s: %w", tmpTable, err)
	}

	_, err := tx.ExecContext(ctx, fmt.Sprintf(`
		WITH RECURSIVE reachable(id) AS (
			SELECT ?
			UNION
			SELECT links.child_id
			FROM reachable
			JOIN links ON links.parent_id = reachable.id
			WHERE links.child_id IS NOT NULL
			UNION
			SELECT connection_entries.child_id
			FROM reachable
			JOIN connections ON connections.object_id = reachable.id
			JOIN connection_entries ON connection_entries.connection_id = connections.rowid
			WHERE connection_entries.child_id IS NOT NULL
		)
		INSERT INTO "%s" (id, typename)
		SELECT objects.id, objects.typename
		FROM objects
		JOIN reachable ON reachable.id = objects.id
	`, tmpTable), rootID)
	if err != nil {
		return fmt.Errorf("populating temp table %s: %w", tmpTable, err)
	}

	return nil
}

// checkFreshness requires that every object in tmpTable has own data, and
// that every connection attached to any such object has been fetched at
// least once.
func checkFreshness(ctx context.Context, tx store.Tx, tmpTable string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT objects.id
		FROM objects
		JOIN "%s" t ON t.id = objects.id
		WHERE objects.last_update IS NULL
		ORDER BY objects.id
	`, tmpTable))
	if err != nil {
		return fmt.Errorf("checking own-data freshness: %w", err)
	}
	var staleID string
	found := false
	for rows.Next() {
		if err := rows.Scan(&staleID); err != nil {
			rows.Close()
			return err
		}
		found = true
		break
	}
	if cerr := rows.Err(); cerr != nil {
		rows.Close()
		return cerr
	}
	rows.Close()
	if found {
		return FreshnessViolationError{ID: staleID, What: "own data"}
	}

	connRows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT connections.object_id, connections.fieldname
		FROM connections
		JOIN "%s" t ON t.id = connections.object_id
		WHERE connections.last_update IS NULL
		ORDER BY connections.object_id, connections.fieldname
	`, tmpTable))
	if err != nil {
		return fmt.Errorf("checking connection freshness: %w", err)
	}
	defer connRows.Close()
	if connRows.Next() {
		var objectID, fieldname string
		if err := connRows.Scan(&objectID, &fieldname); err != nil {
			return err
		}
		return FreshnessViolationError{ID: objectID, What: fmt.Sprintf("%s connection", fieldname)}
	}
	return connRows.Err()
}

// materializeRecords runs, for each distinct typename present in tmpTable,
// one SELECT over primitives_T joined with tmpTable, building one Object
// per row.
func materializeRecords(ctx context.Context, tx store.Tx, info *SchemaInfo, tmpTable string) (map[string]Object, error) {
	objects := make(map[string]Object)

	typenames, err := distinctTypenames(ctx, tx, tmpTable)
	if err != nil {
		return nil, err
	}

	for _, typename := range typenames {
		ti, ok := info.Objects[typename]
		if !ok {
			return nil, UnknownTypeError{Typename: typename}
		}

		cols := []string{"id"}
		cols = append(cols, ti.Primitives...)
		nestedNames := sortedKeys(ti.Nested)
		for _, nested := range nestedNames {
			cols = append(cols, nested)
			for _, egg := range ti.Nested[nested].PrimitiveEggs {
				cols = append(cols, nestedEggLinkName(nested, egg))
			}
		}

		var quoted []string
		for _, c := range cols {
			quoted = append(quoted, fmt.Sprintf(`"%s"`, c))
		}

		query := fmt.Sprintf(`
			SELECT %s
			FROM "primitives_%s" p
			JOIN "%s" t ON t.id = p.id
		`, strings.Join(quoted, ", "), typename, tmpTable)

		rows, err := tx.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("materializing %s: %w", typename, err)
		}

		if err := scanPrimitivesRows(rows, typename, ti, cols, objects); err != nil {
			return nil, err
		}
	}

	return objects, nil
}

func distinctTypenames(ctx context.Context, tx store.Tx, tmpTable string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT typename FROM "%s" ORDER BY typename`, tmpTable))
	if err != nil {
		return nil, fmt.Errorf("listing distinct typenames: %w", err)
	}
	defer rows.Close()

	var typenames []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		typenames = append(typenames, t)
	}
	return typenames, rows.Err()
}

func scanPrimitivesRows(rows *sql.Rows, typename string, ti TypeInfo, cols []string, objects map[string]Object) error {
	defer rows.Close()

	dests := make([]any, len(cols))
	for i := range dests {
		dests[i] = new(sql.NullString)
	}

	for rows.Next() {
		if err := rows.Scan(dests...); err != nil {
			return fmt.Errorf("scanning %s row: %w", typename, err)
		}

		id := dests[0].(*sql.NullString).String
		obj := Object{"id": id, "__typename": typename}

		for i := 1; i < len(cols); i++ {
			col := cols[i]
			ns := dests[i].(*sql.NullString)

			if nested, isNested := ti.Nested[col]; isNested {
				switch {
				case !ns.Valid:
					obj[col] = nil // unknown: never fetched, leave unset/null
				case ns.String == "0":
					obj[col] = nil
				case ns.String == "1":
					nestedObj := Object{}
					for _, egg := range nested.PrimitiveEggs {
						nestedObj[egg] = nil
					}
					for _, egg := range nested.NodeEggs {
						nestedObj[egg] = nil
					}
					obj[col] = nestedObj
				default:
					return CorruptPresenceMarkerError{Typename: typename, ID: id, Fieldname: col, Value: ns.String}
				}
				continue
			}

			parts := strings.Split(col, ".")
			switch len(parts) {
			case 1:
				obj[col] = decodeJSONColumn(ns)
			case 2:
				nestedSlot, _ := obj[parts[0]].(Object)
				if nestedSlot != nil {
					nestedSlot[parts[1]] = decodeJSONColumn(ns)
				}
			default:
				return CorruptColumnNameError{Column: col}
			}
		}

		objects[id] = obj
	}

	return rows.Err()
}

func decodeJSONColumn(ns *sql.NullString) any {
	if !ns.Valid {
		return nil // not yet fetched
	}
	var v any
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return nil
	}
	return v
}

// resolveLinks streams links rows scoped to tmpTable and places each
// resolved child at parent[F] or parent[F][E].
func resolveLinks(ctx context.Context, tx store.Tx, info *SchemaInfo, tmpTable string, objects map[string]Object) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT links.parent_id, links.fieldname, links.child_id
		FROM links
		JOIN "%s" t ON t.id = links.parent_id
		ORDER BY links.parent_id, links.fieldname
	`, tmpTable))
	if err != nil {
		return fmt.Errorf("streaming links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var parentID, fieldname string
		var childID sql.NullString
		if err := rows.Scan(&parentID, &fieldname, &childID); err != nil {
			return err
		}

		parent, ok := objects[parentID]
		if !ok {
			continue
		}

		var child any
		if childID.Valid {
			child = objects[childID.String]
		}

		parts := strings.SplitN(fieldname, ".", 2)
		switch len(parts) {
		case 1:
			parent[fieldname] = child
		case 2:
			nestedSlot, _ := parent[parts[0]].(Object)
			if nestedSlot != nil {
				nestedSlot[parts[1]] = child
			}
			// else: nested group is absent, silently drop
		}
	}

	return rows.Err()
}

// resolveConnections streams connection entries ordered by (object_id,
// fieldname, idx) and appends resolved children.
func resolveConnections(ctx context.Context, tx store.Tx, tmpTable string, objects map[string]Object) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`
		SELECT connections.object_id, connections.fieldname, connection_entries.idx, connection_entries.child_id
		FROM connections
		JOIN "%s" t ON t.id = connections.object_id
		LEFT JOIN connection_entries ON connection_entries.connection_id = connections.rowid
		ORDER BY connections.object_id, connections.fieldname, connection_entries.idx ASC
	`, tmpTable))
	if err != nil {
		return fmt.Errorf("streaming connections: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)

	for rows.Next() {
		var objectID, fieldname string
		var idx sql.NullInt64
		var childID sql.NullString
		if err := rows.Scan(&objectID, &fieldname, &idx, &childID); err != nil {
			return err
		}

		parent, ok := objects[objectID]
		if !ok {
			continue
		}

		key := objectID + "\x00" + fieldname
		if !seen[key] {
			parent[fieldname] = []any{}
			seen[key] = true
		}

		if !idx.Valid {
			continue // empty connection: the LEFT JOIN placeholder row, not a real entry
		}

		var child any
		if childID.Valid {
			child = objects[childID.String]
		}
		parent[fieldname] = append(parent[fieldname].([]any), child)
	}

	return rows.Err()
}
