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

// ingestResult is the top-level dispatch over a query response's aliased
// top-level keys. The caller (the update loop) owns the surrounding
// transaction: this never begins or commits one itself, so that the
// `updates` row it depends on and the writes it makes land atomically
// together.
func ingestResult(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, updateID int64, result map[string]any) error {
	for _, key := range sortedKeys(result) {
		value := result[key]

		switch {
		case strings.HasPrefix(key, ownDataAliasPrefix):
			if err := updateOwnData(ctx, tx, info, logger, opts, updateID, value); err != nil {
				return err
			}

		case strings.HasPrefix(key, nodeAliasPrefix):
			node, ok := value.(map[string]any)
			if !ok {
				return MalformedResultError{Where: fmt.Sprintf("%s: expected an object", key)}
			}
			objectID, ok := node["id"].(string)
			if !ok {
				return MalformedResultError{Where: fmt.Sprintf("%s.id: expected a string", key)}
			}
			for fieldname, fv := range node {
				if fieldname == "id" || fieldname == "__typename" {
					continue
				}
				conn, ok := fv.(map[string]any)
				if !ok {
					return MalformedResultError{Where: fmt.Sprintf("%s.%s: expected an object", key, fieldname)}
				}
				if err := updateConnection(ctx, tx, info, logger, opts, updateID, objectID, fieldname, conn); err != nil {
					return err
				}
			}

		default:
			return UnexpectedResultKeyError{Key: key}
		}
	}

	return nil
}

// updateOwnData ingests one own-data batch: records sharing a single
// __typename.
func updateOwnData(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, updateID int64, value any) error {
	raw, ok := value.([]any)
	if !ok {
		return MalformedResultError{Where: "own-data batch: expected a list"}
	}

	var typename string
	records := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		rec, ok := r.(map[string]any)
		if !ok {
			return MalformedResultError{Where: "own-data record: expected an object"}
		}
		recType, ok := rec["__typename"].(string)
		if !ok {
			return MalformedResultError{Where: "own-data record: missing __typename"}
		}
		if typename == "" {
			typename = recType
		} else if typename != recType {
			return TypenameMismatchError{Expected: typename, Found: recType}
		}
		records = append(records, rec)
	}
	if typename == "" {
		return nil
	}

	ti, ok := info.Objects[typename]
	if !ok {
		return UnknownTypeError{Typename: typename}
	}

	for _, rec := range records {
		id, ok := rec[ti.IDField].(string)
		if !ok {
			return MissingFieldError{Typename: typename, Fieldname: ti.IDField}
		}

		var existsCheck int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM objects WHERE id = ?`, id).Scan(&existsCheck)
		if err == sql.ErrNoRows {
			return UnregisteredObjectError{ID: id}
		} else if err != nil {
			return fmt.Errorf("checking object %q registration: %w", id, err)
		}

		if err := execSingleRowUpdate(ctx, tx, `UPDATE objects SET last_update = ? WHERE id = ?`, updateID, id); err != nil {
			return err
		}

		if err := writePrimitivesRow(ctx, tx, typename, ti, id, rec); err != nil {
			return err
		}

		for _, fieldname := range ti.Links {
			if err := ingestTopLevelLink(ctx, tx, info, logger, opts, typename, id, fieldname, rec); err != nil {
				return err
			}
		}

		for _, nested := range sortedKeys(ti.Nested) {
			ni := ti.Nested[nested]
			nestedVal, present := rec[nested]
			if !present {
				return MissingFieldError{Typename: typename, ID: id, Fieldname: nested}
			}
			if nestedVal == nil {
				for _, egg := range ni.NodeEggs {
					linkName := nestedEggLinkName(nested, egg)
					if err := execSingleRowUpdate(ctx, tx, `UPDATE links SET child_id = NULL WHERE parent_id = ? AND fieldname = ?`, id, linkName); err != nil {
						return err
					}
				}
				continue
			}
			nestedMap, ok := nestedVal.(map[string]any)
			if !ok {
				return MalformedResultError{Where: fmt.Sprintf("%s.%s: expected an object or null", typename, nested)}
			}
			for _, egg := range ni.NodeEggs {
				if err := ingestNestedEggLink(ctx, tx, info, logger, opts, typename, id, nested, egg, nestedMap); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// writePrimitivesRow builds and executes the single UPDATE primitives_T
// statement covering every top-level primitive, nested-presence marker, and
// nested-egg-primitive column.
func writePrimitivesRow(ctx context.Context, tx store.Tx, typename string, ti TypeInfo, id string, rec map[string]any) error {
	var setClauses []string
	var args []any

	for _, f := range ti.Primitives {
		v, present := rec[f]
		if !present {
			return MissingFieldError{Typename: typename, ID: id, Fieldname: f}
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding %s.%s: %w", typename, f, err)
		}
		paramName := "p_" + f
		setClauses = append(setClauses, fmt.Sprintf(`"%s" = :%s`, f, paramName))
		args = append(args, sql.Named(paramName, string(encoded)))
	}

	for _, nested := range sortedKeys(ti.Nested) {
		ni := ti.Nested[nested]
		nestedVal, present := rec[nested]
		if !present {
			return MissingFieldError{Typename: typename, ID: id, Fieldname: nested}
		}

		presenceParam := "p_" + nested
		setClauses = append(setClauses, fmt.Sprintf(`"%s" = :%s`, nested, presenceParam))

		if nestedVal == nil {
			args = append(args, sql.Named(presenceParam, 0))
			for _, egg := range ni.PrimitiveEggs {
				col := nestedEggLinkName(nested, egg)
				paramName := nestedEggParamName(nested, egg)
				setClauses = append(setClauses, fmt.Sprintf(`"%s" = :%s`, col, paramName))
				args = append(args, sql.Named(paramName, nil))
			}
			continue
		}

		nestedMap, ok := nestedVal.(map[string]any)
		if !ok {
			return MalformedResultError{Where: fmt.Sprintf("%s.%s: expected an object or null", typename, nested)}
		}
		args = append(args, sql.Named(presenceParam, 1))

		for _, egg := range ni.PrimitiveEggs {
			ev, present := nestedMap[egg]
			if !present {
				return MissingFieldError{Typename: typename, ID: id, Fieldname: nested + "." + egg}
			}
			encoded, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encoding %s.%s.%s: %w", typename, nested, egg, err)
			}
			col := nestedEggLinkName(nested, egg)
			paramName := nestedEggParamName(nested, egg)
			setClauses = append(setClauses, fmt.Sprintf(`"%s" = :%s`, col, paramName))
			args = append(args, sql.Named(paramName, string(encoded)))
		}
	}

	if len(setClauses) == 0 {
		return nil
	}

	sqlText := fmt.Sprintf(`UPDATE "primitives_%s" SET %s WHERE id = :row_id`, typename, strings.Join(setClauses, ", "))
	args = append(args, sql.Named("row_id", id))

	return execSingleRowUpdate(ctx, tx, sqlText, args...)
}

// nestedEggParamName synthesizes a collision-free bind-parameter name for a
// nested-egg primitive column. A naive "n_F_E" concatenation collides when F
// itself can contain "_"; length-prefixing F rules that out.
func nestedEggParamName(nested, egg string) string {
	return fmt.Sprintf("n_%d_%s_%s", len(nested), nested, egg)
}

func ingestTopLevelLink(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, typename, id, fieldname string, rec map[string]any) error {
	raw, present := rec[fieldname]
	if !present {
		return MissingFieldError{Typename: typename, ID: id, Fieldname: fieldname}
	}

	shallow, err := decodeShallowResult(raw)
	if err != nil {
		return err
	}

	childID, err := registerNodeFieldResult(ctx, tx, info, logger, opts, shallow)
	if err != nil {
		return err
	}

	return execSingleRowUpdate(ctx, tx, `UPDATE links SET child_id = ? WHERE parent_id = ? AND fieldname = ?`, childID, id, fieldname)
}

func ingestNestedEggLink(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, typename, id, nested, egg string, nestedMap map[string]any) error {
	raw, present := nestedMap[egg]
	if !present {
		return MissingFieldError{Typename: typename, ID: id, Fieldname: nested + "." + egg}
	}

	shallow, err := decodeShallowResult(raw)
	if err != nil {
		return err
	}

	childID, err := registerNodeFieldResult(ctx, tx, info, logger, opts, shallow)
	if err != nil {
		return err
	}

	linkName := nestedEggLinkName(nested, egg)
	return execSingleRowUpdate(ctx, tx, `UPDATE links SET child_id = ? WHERE parent_id = ? AND fieldname = ?`, childID, id, linkName)
}

// decodeShallowResult decodes the JSON shape produced by queryShallow: null,
// or an object carrying at least __typename and an id field.
func decodeShallowResult(raw any) (*shallowResult, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, MalformedResultError{Where: "node reference: expected an object or null"}
	}
	typename, ok := m["__typename"].(string)
	if !ok {
		return nil, MalformedResultError{Where: "node reference: missing __typename"}
	}
	id, ok := findShallowID(m)
	if !ok {
		return nil, MalformedResultError{Where: "node reference: missing id"}
	}
	return &shallowResult{Typename: typename, ID: id}, nil
}

// findShallowID locates the id value in a decoded shallow-reference object.
// The query always names the real ID fieldname, but a UNION's inline
// fragments may surface it under a clause-specific key if clause ID
// fieldnames differ; "id" is tried first as the common case.
func findShallowID(m map[string]any) (string, bool) {
	if id, ok := m["id"].(string); ok {
		return id, true
	}
	for k, v := range m {
		if k == "__typename" {
			continue
		}
		if id, ok := v.(string); ok {
			return id, true
		}
	}
	return "", false
}

// updateConnection ingests one connection page: append-only, with a
// monotonic idx.
func updateConnection(ctx context.Context, tx store.Tx, info *SchemaInfo, logger Logger, opts Options, updateID int64, objectID, fieldname string, value map[string]any) error {
	var connectionID int64
	err := tx.QueryRowContext(ctx, `SELECT rowid FROM connections WHERE object_id = ? AND fieldname = ?`, objectID, fieldname).Scan(&connectionID)
	if err == sql.ErrNoRows {
		return MissingConnectionError{ObjectID: objectID, Fieldname: fieldname}
	} else if err != nil {
		return fmt.Errorf("looking up connection %s.%s: %w", objectID, fieldname, err)
	}

	totalCount, err := jsonNumberToInt64(value["totalCount"])
	if err != nil {
		return MalformedResultError{Where: fmt.Sprintf("%s.%s.totalCount: %v", objectID, fieldname, err)}
	}

	pageInfo, ok := value["pageInfo"].(map[string]any)
	if !ok {
		return MalformedResultError{Where: fmt.Sprintf("%s.%s.pageInfo: expected an object", objectID, fieldname)}
	}
	hasNextPageRaw, _ := pageInfo["hasNextPage"].(bool)
	hasNextPage := 0
	if hasNextPageRaw {
		hasNextPage = 1
	}
	var endCursor any
	if ec, ok := pageInfo["endCursor"].(string); ok {
		endCursor = ec
	}

	if err := execSingleRowUpdate(ctx, tx,
		`UPDATE connections SET last_update = ?, total_count = ?, has_next_page = ?, end_cursor = ? WHERE rowid = ?`,
		updateID, totalCount, hasNextPage, endCursor, connectionID,
	); err != nil {
		return err
	}

	nodes, ok := value["nodes"].([]any)
	if !ok {
		return MalformedResultError{Where: fmt.Sprintf("%s.%s.nodes: expected a list", objectID, fieldname)}
	}

	var maxIdx sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(idx) FROM connection_entries WHERE connection_id = ?`, connectionID).Scan(&maxIdx); err != nil {
		return fmt.Errorf("computing next idx for %s.%s: %w", objectID, fieldname, err)
	}
	idx := int64(1)
	if maxIdx.Valid {
		idx = maxIdx.Int64 + 1
	}

	for _, n := range nodes {
		shallow, err := decodeShallowResult(n)
		if err != nil {
			return err
		}
		childID, err := registerNodeFieldResult(ctx, tx, info, logger, opts, shallow)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO connection_entries (connection_id, idx, child_id) VALUES (?, ?, ?)`, connectionID, idx, childID); err != nil {
			return fmt.Errorf("inserting connection entry %s.%s[%d]: %w", objectID, fieldname, idx, err)
		}
		idx++
	}

	if logger != nil {
		logger.LogIngestComplete(updateID, 0, 1)
	}

	return nil
}

func jsonNumberToInt64(v any) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}
