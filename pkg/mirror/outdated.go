// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is satisfied by both store.Store and store.Tx; findOutdated only
// needs read access and is used from both a standalone transaction and from
// within the update loop's own transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ObjectRef identifies a row scheduled for an own-data fetch.
type ObjectRef struct {
	Typename string
	ID       string
}

// EndCursor is a three-valued end-cursor: Known distinguishes "never
// fetched" (false) from "fetched" (true); when Known is true, Null
// distinguishes the known-null cursor from a known string held in Value.
type EndCursor struct {
	Known bool
	Null  bool
	Value string
}

// ConnectionRef identifies a connection scheduled for a page fetch.
type ConnectionRef struct {
	ObjectTypename string
	ObjectID       string
	Fieldname      string
	EndCursor      EndCursor
}

// QueryPlan is the output of findOutdated.
type QueryPlan struct {
	Objects     []ObjectRef
	Connections []ConnectionRef
	// Typenames is reserved for a future planner extension and must always
	// be empty.
	Typenames []string
}

func (p QueryPlan) Empty() bool {
	return len(p.Objects) == 0 && len(p.Connections) == 0
}

// findOutdated scans for objects never fetched or fetched before since, and
// connections never fetched, paginating, or fetched before since.
func findOutdated(ctx context.Context, db querier, sinceEpochMillis int64) (QueryPlan, error) {
	var plan QueryPlan

	objRows, err := db.QueryContext(ctx, `
		SELECT objects.typename, objects.id
		FROM objects
		LEFT JOIN updates ON updates.rowid = objects.last_update
		WHERE objects.last_update IS NULL OR updates.time_epoch_millis < ?
		ORDER BY objects.id
	`, sinceEpochMillis)
	if err != nil {
		return QueryPlan{}, fmt.Errorf("querying outdated objects: %w", err)
	}
	defer objRows.Close()

	for objRows.Next() {
		var ref ObjectRef
		if err := objRows.Scan(&ref.Typename, &ref.ID); err != nil {
			return QueryPlan{}, fmt.Errorf("scanning outdated object: %w", err)
		}
		plan.Objects = append(plan.Objects, ref)
	}
	if err := objRows.Err(); err != nil {
		return QueryPlan{}, err
	}

	connRows, err := db.QueryContext(ctx, `
		SELECT objects.typename, connections.object_id, connections.fieldname,
		       connections.last_update, connections.has_next_page, connections.end_cursor
		FROM connections
		JOIN objects ON objects.id = connections.object_id
		LEFT JOIN updates ON updates.rowid = connections.last_update
		WHERE connections.last_update IS NULL
		   OR connections.has_next_page = 1
		   OR updates.time_epoch_millis < ?
		ORDER BY connections.object_id, connections.fieldname
	`, sinceEpochMillis)
	if err != nil {
		return QueryPlan{}, fmt.Errorf("querying outdated connections: %w", err)
	}
	defer connRows.Close()

	for connRows.Next() {
		var ref ConnectionRef
		var lastUpdate *int64
		var hasNextPage *int64
		var endCursor *string
		if err := connRows.Scan(&ref.ObjectTypename, &ref.ObjectID, &ref.Fieldname, &lastUpdate, &hasNextPage, &endCursor); err != nil {
			return QueryPlan{}, fmt.Errorf("scanning outdated connection: %w", err)
		}

		if lastUpdate == nil {
			ref.EndCursor = EndCursor{Known: false}
		} else if endCursor == nil {
			ref.EndCursor = EndCursor{Known: true, Null: true}
		} else {
			ref.EndCursor = EndCursor{Known: true, Value: *endCursor}
		}

		plan.Connections = append(plan.Connections, ref)
	}
	if err := connRows.Err(); err != nil {
		return QueryPlan{}, err
	}

	if len(plan.Typenames) != 0 {
		return QueryPlan{}, PlanTypenamesUnsupportedError{}
	}

	return plan, nil
}
