// SPDX-License-Identifier: Apache-2.0

package gqlschema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
)

func testSchema() gqlschema.Schema {
	return gqlschema.Schema{
		Types: map[string]gqlschema.Type{
			"User": {
				Kind: gqlschema.KindObject,
				Fields: map[string]gqlschema.FieldType{
					"id":    {Kind: gqlschema.FieldID},
					"login": {Kind: gqlschema.FieldPrimitive},
				},
			},
			"Issue": {
				Kind: gqlschema.KindObject,
				Fields: map[string]gqlschema.FieldType{
					"id":     {Kind: gqlschema.FieldID},
					"title":  {Kind: gqlschema.FieldPrimitive},
					"author": {Kind: gqlschema.FieldNode, ElementType: "User", Fidelity: gqlschema.FidelityFaithful},
				},
			},
			"Actor": {
				Kind:    gqlschema.KindUnion,
				Clauses: []string{"User", "Issue"},
			},
			"String": {Kind: gqlschema.KindScalar},
		},
	}
}

func TestTypeLookup(t *testing.T) {
	s := testSchema()

	ty, ok := s.Type("Issue")
	require.True(t, ok)
	assert.Equal(t, gqlschema.KindObject, ty.Kind)

	_, ok = s.Type("Nonexistent")
	assert.False(t, ok)
}

func TestIsObject(t *testing.T) {
	s := testSchema()

	assert.True(t, s.IsObject("Issue"))
	assert.False(t, s.IsObject("Actor"))
	assert.False(t, s.IsObject("String"))
	assert.False(t, s.IsObject("Nonexistent"))
}

func TestCanonicalIsDeterministic(t *testing.T) {
	s := testSchema()

	first := s.Canonical()
	second := s.Canonical()

	assert.Equal(t, string(first), string(second))
}

func TestCanonicalOrdersMapKeys(t *testing.T) {
	a := gqlschema.Schema{Types: map[string]gqlschema.Type{
		"B": {Kind: gqlschema.KindScalar},
		"A": {Kind: gqlschema.KindScalar},
	}}
	b := gqlschema.Schema{Types: map[string]gqlschema.Type{
		"A": {Kind: gqlschema.KindScalar},
		"B": {Kind: gqlschema.KindScalar},
	}}

	assert.Equal(t, string(a.Canonical()), string(b.Canonical()))
}

func TestCanonicalDiffersOnFieldChange(t *testing.T) {
	base := testSchema()
	changed := testSchema()
	issue := changed.Types["Issue"]
	issue.Fields["subtitle"] = gqlschema.FieldType{Kind: gqlschema.FieldPrimitive}
	changed.Types["Issue"] = issue

	assert.NotEqual(t, string(base.Canonical()), string(changed.Canonical()))
}
