// SPDX-License-Identifier: Apache-2.0

// Package gqlschema defines the minimal, closed-sum-type description of a
// GraphQL schema that the Mirror core consumes. The schema descriptor type
// itself is an external collaborator in principle; this package provides the
// concrete shape the rest of the module is written against.
package gqlschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind is the tag of a Type.
type Kind string

const (
	KindScalar Kind = "SCALAR"
	KindEnum   Kind = "ENUM"
	KindObject Kind = "OBJECT"
	KindUnion  Kind = "UNION"
)

// FieldKind is the tag of a FieldType.
type FieldKind string

const (
	FieldID         FieldKind = "ID"
	FieldPrimitive  FieldKind = "PRIMITIVE"
	FieldNode       FieldKind = "NODE"
	FieldConnection FieldKind = "CONNECTION"
	FieldNested     FieldKind = "NESTED"
)

// Fidelity qualifies a NODE field. Only FidelityFaithful is supported by the
// core; FidelityUnfaithful is accepted by the schema type so that the
// SchemaInfo builder can reject it with a specific error.
type Fidelity string

const (
	FidelityFaithful   Fidelity = "FAITHFUL"
	FidelityUnfaithful Fidelity = "UNFAITHFUL"
)

// Egg is one child of a NESTED field: either a PRIMITIVE or a NODE.
type Egg struct {
	Kind        FieldKind `json:"kind"`
	ElementType string    `json:"elementType,omitempty"`
	Fidelity    Fidelity  `json:"fidelity,omitempty"`
}

// FieldType is a closed sum type dispatched on Kind.
type FieldType struct {
	Kind        FieldKind      `json:"kind"`
	ElementType string         `json:"elementType,omitempty"` // NODE, CONNECTION
	Fidelity    Fidelity       `json:"fidelity,omitempty"`    // NODE
	Eggs        map[string]Egg `json:"eggs,omitempty"`        // NESTED
}

// Type is a closed sum type dispatched on Kind.
type Type struct {
	Kind    Kind                 `json:"kind"`
	Fields  map[string]FieldType `json:"fields,omitempty"`  // OBJECT
	Clauses []string             `json:"clauses,omitempty"` // UNION, fixed order
}

// Schema maps Typename to Type.
type Schema struct {
	Types map[string]Type `json:"types"`
}

// Type looks up a typename.
func (s Schema) Type(name string) (Type, bool) {
	t, ok := s.Types[name]
	return t, ok
}

// IsObject reports whether name is a registered OBJECT type.
func (s Schema) IsObject(name string) bool {
	t, ok := s.Types[name]
	return ok && t.Kind == KindObject
}

// Canonical renders the schema as a deterministic byte string: sorted type
// names, sorted field names, sorted egg names, sorted clause lists. Used as
// the schema component of the meta.config fingerprint; options are not
// included here.
func (s Schema) Canonical() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	names := make([]string, 0, len(s.Types))
	for n := range s.Types {
		names = append(names, n)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, name)
		buf.WriteByte(':')
		writeTypeCanonical(&buf, s.Types[name])
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

func writeTypeCanonical(buf *bytes.Buffer, t Type) {
	buf.WriteByte('{')
	fmt.Fprintf(buf, "%q:%q", "kind", t.Kind)
	switch t.Kind {
	case KindObject:
		buf.WriteString(`,"fields":{`)
		names := make([]string, 0, len(t.Fields))
		for n := range t.Fields {
			names = append(names, n)
		}
		sort.Strings(names)
		for i, n := range names {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, n)
			buf.WriteByte(':')
			writeFieldTypeCanonical(buf, t.Fields[n])
		}
		buf.WriteString("}")
	case KindUnion:
		clauses := append([]string(nil), t.Clauses...)
		sort.Strings(clauses)
		b, _ := json.Marshal(clauses)
		buf.WriteString(`,"clauses":`)
		buf.Write(b)
	}
	buf.WriteByte('}')
}

func writeFieldTypeCanonical(buf *bytes.Buffer, f FieldType) {
	buf.WriteByte('{')
	fmt.Fprintf(buf, "%q:%q", "kind", f.Kind)
	if f.ElementType != "" {
		fmt.Fprintf(buf, ",%q:%q", "elementType", f.ElementType)
	}
	if f.Fidelity != "" {
		fmt.Fprintf(buf, ",%q:%q", "fidelity", f.Fidelity)
	}
	if f.Eggs != nil {
		buf.WriteString(`,"eggs":{`)
		names := make([]string, 0, len(f.Eggs))
		for n := range f.Eggs {
			names = append(names, n)
		}
		sort.Strings(names)
		for i, n := range names {
			if i > 0 {
				buf.WriteByte(',')
			}
			egg := f.Eggs[n]
			writeJSONString(buf, n)
			fmt.Fprintf(buf, ":{%q:%q", "kind", egg.Kind)
			if egg.ElementType != "" {
				fmt.Fprintf(buf, `,%q:%q`, "elementType", egg.ElementType)
			}
			if egg.Fidelity != "" {
				fmt.Fprintf(buf, `,%q:%q`, "fidelity", egg.Fidelity)
			}
			buf.WriteByte('}')
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
