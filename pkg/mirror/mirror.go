// SPDX-License-Identifier: Apache-2.0

// Package mirror is a durable, incremental, locally-persisted cache of a
// subset of a remote GraphQL object graph. This file wires the internal
// building blocks (schemainfo, initialize, registrar, outdated, planner,
// ingester, loop, extractor, tx, sqlsafe, temp) behind a public API: New,
// RegisterObject, Update, Extract, plus Status and Close.
package mirror

import (
	"context"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
	"github.com/xataio/gqlmirror/pkg/store"
)

// Mirror is a durable, incremental cache of a subset of a remote GraphQL
// object graph, backed by db and compiled once against schema.
type Mirror struct {
	db     store.Store
	info   *SchemaInfo
	opts   Options
	logger Logger
}

// New constructs a Mirror, compiling schema into a SchemaInfo and
// creating/verifying the on-disk structural and per-type tables. A nil
// logger is replaced with a no-op logger.
func New(ctx context.Context, db store.Store, schema gqlschema.Schema, opts Options, logger Logger) (*Mirror, error) {
	if logger == nil {
		logger = NewNoopLogger()
	}

	info, err := buildSchemaInfo(schema)
	if err != nil {
		return nil, err
	}

	if err := initializeStore(ctx, db, info, opts); err != nil {
		return nil, err
	}

	logger.LogStoreInit(schemaVersion, len(info.Objects))

	return &Mirror{db: db, info: info, opts: opts, logger: logger}, nil
}

// RegisterObject declares (typename, id) as a root object to track. No-op
// if already registered under the same typename; fatal if registered under
// a different one.
func (m *Mirror) RegisterObject(ctx context.Context, typename, id string) error {
	return register(ctx, m.db, m.info, m.logger, typename, id)
}

// Update runs the update loop to convergence: discover outdated
// objects/connections, build and post one batched GraphQL query per step,
// and transactionally ingest the response, repeating until the store
// reports nothing left outdated.
func (m *Mirror) Update(ctx context.Context, postQuery PostQuery, opts UpdateOptions) error {
	steps := 0
	wrapped := func(ctx context.Context, body string, variables map[string]any) (map[string]any, error) {
		steps++
		return postQuery(ctx, body, variables)
	}
	if err := update(ctx, m.db, m.info, m.logger, m.opts, wrapped, opts); err != nil {
		return err
	}
	m.logger.LogUpdateConverged(steps)
	return nil
}

// Status reports how many objects and connections are outdated as of
// sinceEpochMillis, without fetching or mutating anything. Used by the
// status CLI subcommand as a cheap health check.
func (m *Mirror) Status(ctx context.Context, sinceEpochMillis int64) (objects, connections int, err error) {
	var plan QueryPlan
	txErr := inTransaction(ctx, m.db, func(ctx context.Context, tx store.Tx) error {
		p, err := findOutdated(ctx, tx, sinceEpochMillis)
		if err != nil {
			return err
		}
		plan = p
		return nil
	})
	if txErr != nil {
		return 0, 0, txErr
	}
	return len(plan.Objects), len(plan.Connections), nil
}

// Extract reconstructs the possibly-cyclic object graph rooted at rootID.
// Fails if any transitive dependency of rootID lacks own data or
// connection data (a freshness violation), or if rootID itself was never
// registered.
func (m *Mirror) Extract(ctx context.Context, rootID string) (Object, error) {
	return extract(ctx, m.db, m.info, m.logger, rootID)
}

// Close releases the underlying store's resources.
func (m *Mirror) Close() error {
	return m.db.Close()
}
