// SPDX-License-Identifier: Apache-2.0

package mirtest

import "github.com/xataio/gqlmirror/pkg/gqlschema"

// SchemaBuilder assembles a gqlschema.Schema field-by-field for test fixtures,
// trading the full schema descriptor's richness for the handful of shapes the
// mirror test suite actually needs.
type SchemaBuilder struct {
	types map[string]gqlschema.Type
}

func NewSchema() *SchemaBuilder {
	return &SchemaBuilder{types: make(map[string]gqlschema.Type)}
}

// Object registers an OBJECT type with the given id fieldname and fields.
func (b *SchemaBuilder) Object(typename, idField string, fields map[string]gqlschema.FieldType) *SchemaBuilder {
	fields[idField] = gqlschema.FieldType{Kind: gqlschema.FieldID}
	b.types[typename] = gqlschema.Type{Kind: gqlschema.KindObject, Fields: fields}
	return b
}

// Union registers a UNION type over the given clause typenames.
func (b *SchemaBuilder) Union(typename string, clauses ...string) *SchemaBuilder {
	b.types[typename] = gqlschema.Type{Kind: gqlschema.KindUnion, Clauses: clauses}
	return b
}

// Scalar registers a SCALAR type.
func (b *SchemaBuilder) Scalar(typename string) *SchemaBuilder {
	b.types[typename] = gqlschema.Type{Kind: gqlschema.KindScalar}
	return b
}

func (b *SchemaBuilder) Build() gqlschema.Schema {
	return gqlschema.Schema{Types: b.types}
}

// Primitive is shorthand for a PRIMITIVE field.
func Primitive() gqlschema.FieldType {
	return gqlschema.FieldType{Kind: gqlschema.FieldPrimitive}
}

// Node is shorthand for a faithful NODE field referencing elementType.
func Node(elementType string) gqlschema.FieldType {
	return gqlschema.FieldType{Kind: gqlschema.FieldNode, ElementType: elementType, Fidelity: gqlschema.FidelityFaithful}
}

// UnfaithfulNode is shorthand for an UNFAITHFUL NODE field, used to exercise
// the rejection path.
func UnfaithfulNode(elementType string) gqlschema.FieldType {
	return gqlschema.FieldType{Kind: gqlschema.FieldNode, ElementType: elementType, Fidelity: gqlschema.FidelityUnfaithful}
}

// Connection is shorthand for a CONNECTION field over elementType.
func Connection(elementType string) gqlschema.FieldType {
	return gqlschema.FieldType{Kind: gqlschema.FieldConnection, ElementType: elementType}
}

// Nested is shorthand for a NESTED field with the given eggs.
func Nested(eggs map[string]gqlschema.Egg) gqlschema.FieldType {
	return gqlschema.FieldType{Kind: gqlschema.FieldNested, Eggs: eggs}
}

// PrimitiveEgg is shorthand for a PRIMITIVE egg.
func PrimitiveEgg() gqlschema.Egg {
	return gqlschema.Egg{Kind: gqlschema.FieldPrimitive}
}

// NodeEgg is shorthand for a faithful NODE egg referencing elementType.
func NodeEgg(elementType string) gqlschema.Egg {
	return gqlschema.Egg{Kind: gqlschema.FieldNode, ElementType: elementType, Fidelity: gqlschema.FidelityFaithful}
}
