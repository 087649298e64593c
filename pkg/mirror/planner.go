// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"fmt"

	"github.com/xataio/gqlmirror/pkg/gqlschema"
	"github.com/xataio/gqlmirror/pkg/querybuilder"
)

// Limits bounds the work done by a single update loop step.
type Limits struct {
	NodesLimit         int
	NodesOfTypeLimit   int
	ConnectionLimit    int
	ConnectionPageSize int
}

const (
	ownDataAliasPrefix = "owndata_"
	nodeAliasPrefix    = "node_"
)

// queryShallow is the minimal selection that identifies a reference.
func queryShallow(info *SchemaInfo, typename string) ([]querybuilder.Node, error) {
	t, ok := info.Schema.Type(typename)
	if !ok {
		return nil, UnknownTypeError{Typename: typename}
	}

	switch t.Kind {
	case gqlschema.KindObject:
		ti := info.Objects[typename]
		return []querybuilder.Node{querybuilder.Plain("__typename"), querybuilder.Plain(ti.IDField)}, nil

	case gqlschema.KindUnion:
		children := []querybuilder.Node{querybuilder.Plain("__typename")}
		union := info.Unions[typename]
		for _, clause := range union.Clauses {
			ti := info.Objects[clause]
			children = append(children, querybuilder.OnType(clause, querybuilder.Plain(ti.IDField)))
		}
		return children, nil

	default:
		return nil, NotObjectTypeError{Typename: typename}
	}
}

// queryOwnData is the selection for one OBJECT type's own-data fetch.
func queryOwnData(info *SchemaInfo, typename string) ([]querybuilder.Node, error) {
	t, ok := info.Schema.Type(typename)
	if !ok {
		return nil, UnknownTypeError{Typename: typename}
	}
	if t.Kind != gqlschema.KindObject {
		return nil, NotObjectTypeError{Typename: typename}
	}
	ti := info.Objects[typename]

	children := []querybuilder.Node{querybuilder.Plain("__typename"), querybuilder.Plain(ti.IDField)}

	for _, f := range ti.Primitives {
		children = append(children, querybuilder.Plain(f))
	}

	for _, f := range ti.Links {
		elementType := t.Fields[f].ElementType
		shallow, err := queryShallow(info, elementType)
		if err != nil {
			return nil, err
		}
		children = append(children, querybuilder.Field(f, nil, shallow...))
	}

	for _, nested := range sortedKeys(ti.Nested) {
		nestedField := t.Fields[nested]
		ni := ti.Nested[nested]

		var nestedChildren []querybuilder.Node
		for _, egg := range ni.PrimitiveEggs {
			nestedChildren = append(nestedChildren, querybuilder.Plain(egg))
		}
		for _, egg := range ni.NodeEggs {
			eggType := nestedField.Eggs[egg].ElementType
			shallow, err := queryShallow(info, eggType)
			if err != nil {
				return nil, err
			}
			nestedChildren = append(nestedChildren, querybuilder.Field(egg, nil, shallow...))
		}

		children = append(children, querybuilder.Field(nested, nil, nestedChildren...))
	}

	return children, nil
}

// queryConnection builds the selection for one connection page fetch: it
// omits `after` entirely for the unknown cursor, includes `after: null` for
// the known-null cursor.
func queryConnection(info *SchemaInfo, typename, fieldname string, cursor EndCursor, pageSize int) (*querybuilder.Selection, error) {
	t, ok := info.Schema.Type(typename)
	if !ok {
		return nil, UnknownTypeError{Typename: typename}
	}
	ft, ok := t.Fields[fieldname]
	if !ok || ft.Kind != gqlschema.FieldConnection {
		return nil, MissingConnectionError{ObjectID: typename, Fieldname: fieldname}
	}

	args := []querybuilder.Arg{{Name: "first", Value: querybuilder.Int(pageSize)}}
	if cursor.Known {
		if cursor.Null {
			args = append(args, querybuilder.Arg{Name: "after", Value: querybuilder.Null()})
		} else {
			args = append(args, querybuilder.Arg{Name: "after", Value: querybuilder.String(cursor.Value)})
		}
	}

	shallow, err := queryShallow(info, ft.ElementType)
	if err != nil {
		return nil, err
	}

	return querybuilder.Field(fieldname, args,
		querybuilder.Plain("totalCount"),
		querybuilder.Field("pageInfo", nil, querybuilder.Plain("endCursor"), querybuilder.Plain("hasNextPage")),
		querybuilder.Field("nodes", nil, shallow...),
	), nil
}

// buildQuery buckets the query plan into own-data queries aliased
// owndata_<i> and connection queries aliased node_<i>.
func buildQuery(info *SchemaInfo, plan QueryPlan, limits Limits) ([]querybuilder.Node, error) {
	var selections []querybuilder.Node

	objects := plan.Objects
	if len(objects) > limits.NodesLimit {
		objects = objects[:limits.NodesLimit]
	}

	var typeOrder []string
	byType := make(map[string][]string)
	for _, ref := range objects {
		if _, seen := byType[ref.Typename]; !seen {
			typeOrder = append(typeOrder, ref.Typename)
		}
		byType[ref.Typename] = append(byType[ref.Typename], ref.ID)
	}

	aliasIdx := 0
	for _, typename := range typeOrder {
		ownData, err := queryOwnData(info, typename)
		if err != nil {
			return nil, err
		}

		ids := byType[typename]
		for start := 0; start < len(ids); start += limits.NodesOfTypeLimit {
			end := start + limits.NodesOfTypeLimit
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[start:end]

			idValues := make([]querybuilder.Value, len(chunk))
			for i, id := range chunk {
				idValues[i] = querybuilder.String(id)
			}

			alias := fmt.Sprintf("%s%d", ownDataAliasPrefix, aliasIdx)
			aliasIdx++

			selections = append(selections, querybuilder.Aliased(alias, "nodes",
				[]querybuilder.Arg{{Name: "ids", Value: querybuilder.List(idValues...)}},
				querybuilder.OnType(typename, ownData...),
			))
		}
	}

	conns := plan.Connections
	if len(conns) > limits.ConnectionLimit {
		conns = conns[:limits.ConnectionLimit]
	}

	type connBucket struct {
		typename string
		entries  []ConnectionRef
	}
	var objectOrder []string
	byObject := make(map[string]*connBucket)
	for _, ref := range conns {
		b, ok := byObject[ref.ObjectID]
		if !ok {
			b = &connBucket{typename: ref.ObjectTypename}
			byObject[ref.ObjectID] = b
			objectOrder = append(objectOrder, ref.ObjectID)
		} else if b.typename != ref.ObjectTypename {
			return nil, ConnectionTypenameConflictError{ObjectID: ref.ObjectID, First: b.typename, Second: ref.ObjectTypename}
		}
		b.entries = append(b.entries, ref)
	}

	nodeIdx := 0
	for _, objectID := range objectOrder {
		bucket := byObject[objectID]

		var children []querybuilder.Node
		children = append(children, querybuilder.Plain("id"))

		var fieldChildren []querybuilder.Node
		for _, ref := range bucket.entries {
			sel, err := queryConnection(info, bucket.typename, ref.Fieldname, ref.EndCursor, limits.ConnectionPageSize)
			if err != nil {
				return nil, err
			}
			fieldChildren = append(fieldChildren, sel)
		}
		children = append(children, querybuilder.OnType(bucket.typename, fieldChildren...))

		alias := fmt.Sprintf("%s%d", nodeAliasPrefix, nodeIdx)
		nodeIdx++

		selections = append(selections, querybuilder.Aliased(alias, "node",
			[]querybuilder.Arg{{Name: "id", Value: querybuilder.String(objectID)}},
			children...,
		))
	}

	return selections, nil
}
