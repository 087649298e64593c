// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"sort"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
)

// NestedInfo is the per-nested-field decomposition of its eggs into
// primitive-shaped and node-shaped children.
type NestedInfo struct {
	PrimitiveEggs []string // sorted fieldnames
	NodeEggs      []string // sorted fieldnames
}

// TypeInfo partitions one OBJECT type's fields into four disjoint sets:
// primitive, link (NODE), connection, nested.
type TypeInfo struct {
	Typename    string
	IDField     string // the single ID fieldname
	Primitives  []string // sorted
	Links       []string // sorted, top-level NODE fields
	Connections []string // sorted
	Nested      map[string]NestedInfo
}

// UnionInfo is the per-UNION clause list.
type UnionInfo struct {
	Clauses []string // fixed order
}

// SchemaInfo is the schema compiled once at Mirror construction.
type SchemaInfo struct {
	Schema  gqlschema.Schema
	Objects map[string]TypeInfo
	Unions  map[string]UnionInfo
}

// buildSchemaInfo walks each type once, partitioning OBJECT fields and
// UNION clauses. Any UNFAITHFUL NODE fidelity (top-level or nested egg)
// fails immediately.
func buildSchemaInfo(schema gqlschema.Schema) (*SchemaInfo, error) {
	info := &SchemaInfo{
		Schema:  schema,
		Objects: make(map[string]TypeInfo),
		Unions:  make(map[string]UnionInfo),
	}

	for typename, t := range schema.Types {
		switch t.Kind {
		case gqlschema.KindObject:
			ti, err := buildTypeInfo(typename, t)
			if err != nil {
				return nil, err
			}
			info.Objects[typename] = ti

		case gqlschema.KindUnion:
			clauses := append([]string(nil), t.Clauses...)
			sort.Strings(clauses)
			info.Unions[typename] = UnionInfo{Clauses: clauses}

		case gqlschema.KindScalar, gqlschema.KindEnum:
			// no storage, nothing to compile
		}
	}

	return info, nil
}

func buildTypeInfo(typename string, t gqlschema.Type) (TypeInfo, error) {
	ti := TypeInfo{
		Typename: typename,
		Nested:   make(map[string]NestedInfo),
	}

	var primitives, links, connections []string

	for fieldname, ft := range t.Fields {
		switch ft.Kind {
		case gqlschema.FieldID:
			ti.IDField = fieldname

		case gqlschema.FieldPrimitive:
			primitives = append(primitives, fieldname)

		case gqlschema.FieldNode:
			if ft.Fidelity == gqlschema.FidelityUnfaithful {
				return TypeInfo{}, UnfaithfulFieldError{Typename: typename, Fieldname: fieldname}
			}
			links = append(links, fieldname)

		case gqlschema.FieldConnection:
			connections = append(connections, fieldname)

		case gqlschema.FieldNested:
			ni, err := buildNestedInfo(typename, fieldname, ft)
			if err != nil {
				return TypeInfo{}, err
			}
			ti.Nested[fieldname] = ni
		}
	}

	sort.Strings(primitives)
	sort.Strings(links)
	sort.Strings(connections)

	ti.Primitives = primitives
	ti.Links = links
	ti.Connections = connections

	return ti, nil
}

func buildNestedInfo(typename, fieldname string, ft gqlschema.FieldType) (NestedInfo, error) {
	var primEggs, nodeEggs []string

	for eggName, egg := range ft.Eggs {
		switch egg.Kind {
		case gqlschema.FieldPrimitive:
			primEggs = append(primEggs, eggName)
		case gqlschema.FieldNode:
			if egg.Fidelity == gqlschema.FidelityUnfaithful {
				return NestedInfo{}, UnfaithfulFieldError{Typename: typename, Fieldname: fieldname + "." + eggName}
			}
			nodeEggs = append(nodeEggs, eggName)
		}
	}

	sort.Strings(primEggs)
	sort.Strings(nodeEggs)

	return NestedInfo{PrimitiveEggs: primEggs, NodeEggs: nodeEggs}, nil
}

// nestedEggLinkName is the name "<nested>.<egg>" used for the links row of a
// NODE egg and for the primitives_T column of a PRIMITIVE egg.
func nestedEggLinkName(nested, egg string) string {
	return nested + "." + egg
}
