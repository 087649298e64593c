// SPDX-License-Identifier: Apache-2.0

package mirror_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
	"github.com/xataio/gqlmirror/pkg/mirror"
	"github.com/xataio/gqlmirror/pkg/mirtest"
	"github.com/xataio/gqlmirror/pkg/store"
)

var generousLimits = mirror.Limits{
	NodesLimit:         1000,
	NodesOfTypeLimit:   1000,
	ConnectionLimit:    1000,
	ConnectionPageSize: 1,
}

func TestNewRejectsConfigMismatchOnReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mirror.sqlite")

	schemaA := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Build()
	schemaB := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive(), "bio": mirtest.Primitive()}).
		Build()

	db1, err := store.Open(path)
	require.NoError(t, err)
	_, err = mirror.New(ctx, db1, schemaA, mirror.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := store.Open(path)
	require.NoError(t, err)
	defer db2.Close()
	_, err = mirror.New(ctx, db2, schemaA, mirror.Options{}, nil)
	require.NoError(t, err, "reopening with the same schema must be a no-op")

	db3, err := store.Open(path)
	require.NoError(t, err)
	defer db3.Close()
	_, err = mirror.New(ctx, db3, schemaB, mirror.Options{}, nil)
	require.Error(t, err)
	var mismatch mirror.ConfigMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestNewRejectsUnfaithfulFields(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Object("Issue", "id", map[string]gqlschema.FieldType{"author": mirtest.UnfaithfulNode("User")}).
		Build()

	_, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.Error(t, err)
	var unfaithful mirror.UnfaithfulFieldError
	require.ErrorAs(t, err, &unfaithful)
	assert.Equal(t, "Issue", unfaithful.Typename)
	assert.Equal(t, "author", unfaithful.Fieldname)
}

func TestRegisterObjectIsIdempotentAndRejectsRetyping(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("Issue", "id", map[string]gqlschema.FieldType{}).
		Object("User", "id", map[string]gqlschema.FieldType{}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)

	require.NoError(t, m.RegisterObject(ctx, "Issue", "i1"))
	require.NoError(t, m.RegisterObject(ctx, "Issue", "i1"), "re-registering under the same typename must be a no-op")

	err = m.RegisterObject(ctx, "User", "i1")
	require.Error(t, err)
	var retyped mirror.RetypedObjectError
	require.ErrorAs(t, err, &retyped)
	assert.Equal(t, "i1", retyped.ID)
	assert.Equal(t, "Issue", retyped.OldTypename)
	assert.Equal(t, "User", retyped.NewTypename)
}

func TestExtractFailsFreshnessViolationOnUnfetchedObject(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterObject(ctx, "User", "u1"))

	_, err = m.Extract(ctx, "u1")
	require.Error(t, err)
	var fresh mirror.FreshnessViolationError
	require.ErrorAs(t, err, &fresh)
	assert.Equal(t, "u1", fresh.ID)
	assert.Equal(t, "own data", fresh.What)
}

func TestExtractFailsOnUnknownRoot(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)

	_, err = m.Extract(ctx, "nope")
	require.Error(t, err)
	var notFound mirror.RootNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.ID)
}

// TestUpdateResolvesNodeFieldAcrossTwoSteps exercises the node-field round
// trip: the first step fetches Issue i1's own data, discovering a reference
// to an as-yet-unfetched User; the second step fetches that User's own
// data, converging the loop.
func TestUpdateResolvesNodeFieldAcrossTwoSteps(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Object("Issue", "id", map[string]gqlschema.FieldType{
			"title":  mirtest.Primitive(),
			"author": mirtest.Node("User"),
		}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterObject(ctx, "Issue", "i1"))

	step1 := map[string]any{
		"owndata_0": []any{
			map[string]any{
				"__typename": "Issue",
				"id":         "i1",
				"title":      "Roof leak",
				"author":     map[string]any{"__typename": "User", "id": "u1"},
			},
		},
	}
	step2 := map[string]any{
		"owndata_0": []any{
			map[string]any{"__typename": "User", "id": "u1", "login": "alice"},
		},
	}
	ft := mirtest.NewFakeTransport(step1, step2)

	err = m.Update(ctx, ft.PostQuery, mirror.UpdateOptions{NowEpochMillis: 1000, Limits: generousLimits})
	require.NoError(t, err)
	assert.Equal(t, 2, ft.Calls())

	root, err := m.Extract(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Roof leak", root["title"])

	author, ok := root["author"].(mirror.Object)
	require.True(t, ok, "author should resolve to a materialized object")
	assert.Equal(t, "alice", author["login"])
}

// TestUpdateResolvesConnectionAcrossPages exercises pagination: a
// two-element connection fetched one page at a time (ConnectionPageSize 1),
// each page's nodes needing their own own-data fetch before the loop
// converges.
func TestUpdateResolvesConnectionAcrossPages(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("Comment", "id", map[string]gqlschema.FieldType{"body": mirtest.Primitive()}).
		Object("Issue", "id", map[string]gqlschema.FieldType{
			"title":    mirtest.Primitive(),
			"comments": mirtest.Connection("Comment"),
		}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterObject(ctx, "Issue", "i1"))

	step1 := map[string]any{
		"owndata_0": []any{
			map[string]any{"__typename": "Issue", "id": "i1", "title": "Roof leak"},
		},
		"node_0": map[string]any{
			"id": "i1",
			"comments": map[string]any{
				"totalCount": 2.0,
				"pageInfo":   map[string]any{"endCursor": "c1", "hasNextPage": true},
				"nodes":      []any{map[string]any{"__typename": "Comment", "id": "c1"}},
			},
		},
	}
	step2 := map[string]any{
		"owndata_0": []any{
			map[string]any{"__typename": "Comment", "id": "c1", "body": "first"},
		},
		"node_0": map[string]any{
			"id": "i1",
			"comments": map[string]any{
				"totalCount": 2.0,
				"pageInfo":   map[string]any{"endCursor": "c2", "hasNextPage": false},
				"nodes":      []any{map[string]any{"__typename": "Comment", "id": "c2"}},
			},
		},
	}
	step3 := map[string]any{
		"owndata_0": []any{
			map[string]any{"__typename": "Comment", "id": "c2", "body": "second"},
		},
	}
	ft := mirtest.NewFakeTransport(step1, step2, step3)

	err = m.Update(ctx, ft.PostQuery, mirror.UpdateOptions{NowEpochMillis: 1000, Limits: generousLimits})
	require.NoError(t, err)
	assert.Equal(t, 3, ft.Calls())

	root, err := m.Extract(ctx, "i1")
	require.NoError(t, err)

	comments, ok := root["comments"].([]any)
	require.True(t, ok)
	require.Len(t, comments, 2)

	first := comments[0].(mirror.Object)
	second := comments[1].(mirror.Object)
	assert.Equal(t, "first", first["body"])
	assert.Equal(t, "second", second["body"])
}

// TestUpdateResolvesNestedFieldNullAndPresent exercises the nested-field
// three-valued presence marker: one record whose nested group is entirely
// null, another whose group is present with a null node egg.
func TestUpdateResolvesNestedFieldNullAndPresent(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Object("Event", "id", map[string]gqlschema.FieldType{
			"meta": mirtest.Nested(map[string]gqlschema.Egg{
				"date":  mirtest.PrimitiveEgg(),
				"actor": mirtest.NodeEgg("User"),
			}),
		}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterObject(ctx, "Event", "e1"))
	require.NoError(t, m.RegisterObject(ctx, "Event", "e2"))

	step1 := map[string]any{
		"owndata_0": []any{
			map[string]any{"__typename": "Event", "id": "e1", "meta": nil},
			map[string]any{"__typename": "Event", "id": "e2", "meta": map[string]any{
				"date":  "2020-01-01",
				"actor": nil,
			}},
		},
	}
	ft := mirtest.NewFakeTransport(step1)

	err = m.Update(ctx, ft.PostQuery, mirror.UpdateOptions{NowEpochMillis: 1000, Limits: generousLimits})
	require.NoError(t, err)
	assert.Equal(t, 1, ft.Calls())

	e1, err := m.Extract(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, e1["meta"])

	e2, err := m.Extract(ctx, "e2")
	require.NoError(t, err)
	meta, ok := e2["meta"].(mirror.Object)
	require.True(t, ok)
	assert.Equal(t, "2020-01-01", meta["date"])
	assert.Nil(t, meta["actor"])
}

func TestStatusReportsOutdatedCounts(t *testing.T) {
	ctx := context.Background()
	db := mirtest.OpenStore(t)

	schema := mirtest.NewSchema().
		Object("User", "id", map[string]gqlschema.FieldType{"login": mirtest.Primitive()}).
		Build()

	m, err := mirror.New(ctx, db, schema, mirror.Options{}, nil)
	require.NoError(t, err)

	objects, connections, err := m.Status(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, objects)
	assert.Equal(t, 0, connections)

	require.NoError(t, m.RegisterObject(ctx, "User", "u1"))

	objects, connections, err = m.Status(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, objects)
	assert.Equal(t, 0, connections)
}
