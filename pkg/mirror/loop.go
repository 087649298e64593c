// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"

	"github.com/xataio/gqlmirror/pkg/querybuilder"
	"github.com/xataio/gqlmirror/pkg/store"
)

// PostQuery is the injected transport callable: posts a query body with
// variables and returns the response's `data` payload. The core performs no
// I/O itself; this is its sole suspension point.
type PostQuery func(ctx context.Context, body string, variables map[string]any) (map[string]any, error)

// UpdateOptions configures one call to Update.
type UpdateOptions struct {
	SinceEpochMillis int64
	NowEpochMillis   int64
	Limits           Limits
}

// update iterates plan -> query -> ingest until the store reports nothing
// left outdated. No database transaction spans the postQuery await:
// findOutdated runs in its own transaction, postQuery runs with none open,
// and the subsequent ingest runs in a fresh one that also timestamps the
// `updates` row it depends on.
func update(ctx context.Context, db store.Store, info *SchemaInfo, logger Logger, opts Options, postQuery PostQuery, uopts UpdateOptions) error {
	for {
		var plan QueryPlan
		err := inTransaction(ctx, db, func(ctx context.Context, tx store.Tx) error {
			p, err := findOutdated(ctx, tx, uopts.SinceEpochMillis)
			if err != nil {
				return err
			}
			plan = p
			return nil
		})
		if err != nil {
			return err
		}

		if plan.Empty() {
			return nil
		}

		selections, err := buildQuery(info, plan, uopts.Limits)
		if err != nil {
			return err
		}

		body := querybuilder.Print(&querybuilder.Query{Name: "MirrorUpdate", Children: selections})

		if logger != nil {
			logger.LogUpdateStepStart(len(plan.Objects), len(plan.Connections))
		}

		result, err := postQuery(ctx, body, map[string]any{})
		if err != nil {
			return fmt.Errorf("posting update query: %w", err)
		}

		var updateID int64
		err = inTransaction(ctx, db, func(ctx context.Context, tx store.Tx) error {
			res, err := tx.ExecContext(ctx, `INSERT INTO updates (time_epoch_millis) VALUES (?)`, uopts.NowEpochMillis)
			if err != nil {
				return fmt.Errorf("inserting updates row: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}
			updateID = id

			if logger != nil {
				logger.LogIngestStart(updateID)
			}

			return ingestResult(ctx, tx, info, logger, opts, updateID, result)
		})
		if err != nil {
			return err
		}

		if logger != nil {
			logger.LogUpdateStepComplete(len(plan.Objects), len(plan.Connections))
		}
	}
}
