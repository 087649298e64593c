// SPDX-License-Identifier: Apache-2.0

// Package querybuilder is a minimal GraphQL selection-set builder and
// printer: an abstract API that constructs selection-set trees and emits
// them as wire text.
package querybuilder

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is anything that can be printed as part of a selection set or as an
// argument value.
type Node interface {
	write(b *strings.Builder)
}

// Selection is a named field in a selection set, optionally aliased, with
// arguments and a nested selection set.
type Selection struct {
	Alias    string
	Name     string
	Args     []Arg
	Children []Node
}

// Arg is one name:value pair in a field's argument list.
type Arg struct {
	Name  string
	Value Value
}

// Field builds a plain field with no alias.
func Field(name string, args []Arg, children ...Node) *Selection {
	return &Selection{Name: name, Args: args, Children: children}
}

// Aliased builds a field under an alias.
func Aliased(alias, name string, args []Arg, children ...Node) *Selection {
	return &Selection{Alias: alias, Name: name, Args: args, Children: children}
}

// InlineFragment is `... on Type { children }`.
type InlineFragment struct {
	Type     string
	Children []Node
}

func OnType(typename string, children ...Node) *InlineFragment {
	return &InlineFragment{Type: typename, Children: children}
}

// Value is the tag of an argument value: a GraphQL string, int, bool, null,
// or list of values.
type Value struct {
	kind string // "string" | "int" | "bool" | "null" | "list"
	s    string
	i    int
	b    bool
	list []Value
}

func String(s string) Value { return Value{kind: "string", s: s} }
func Int(i int) Value       { return Value{kind: "int", i: i} }
func Bool(b bool) Value     { return Value{kind: "bool", b: b} }
func Null() Value           { return Value{kind: "null"} }
func List(vs ...Value) Value {
	return Value{kind: "list", list: vs}
}

// StringOrNull builds a Value from an *string: nil -> Null(), else String(*s).
func StringOrNull(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

func (v Value) write(b *strings.Builder) {
	switch v.kind {
	case "string":
		b.WriteString(strconv.Quote(v.s))
	case "int":
		b.WriteString(strconv.Itoa(v.i))
	case "bool":
		b.WriteString(strconv.FormatBool(v.b))
	case "null":
		b.WriteString("null")
	case "list":
		b.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				b.WriteByte(',')
			}
			e.write(b)
		}
		b.WriteByte(']')
	}
}

func (s *Selection) write(b *strings.Builder) {
	if s.Alias != "" {
		b.WriteString(s.Alias)
		b.WriteByte(':')
	}
	b.WriteString(s.Name)
	if len(s.Args) > 0 {
		b.WriteByte('(')
		for i, a := range s.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(a.Name)
			b.WriteByte(':')
			a.Value.write(b)
		}
		b.WriteByte(')')
	}
	if len(s.Children) > 0 {
		b.WriteByte('{')
		for i, c := range s.Children {
			if i > 0 {
				b.WriteByte(' ')
			}
			c.write(b)
		}
		b.WriteByte('}')
	}
}

func (f *InlineFragment) write(b *strings.Builder) {
	fmt.Fprintf(b, "...on %s", f.Type)
	b.WriteByte('{')
	for i, c := range f.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.write(b)
	}
	b.WriteByte('}')
}

// Plain is a bare field name with no args/children, e.g. "__typename".
type Plain string

func (p Plain) write(b *strings.Builder) { b.WriteString(string(p)) }

// Query is a top-level operation with a name and a list of top-level
// selections.
type Query struct {
	Name     string
	Children []Node
}

// Print serializes the query as GraphQL wire text.
func Print(q *Query) string {
	var b strings.Builder
	b.WriteString("query ")
	b.WriteString(q.Name)
	b.WriteByte('{')
	for i, c := range q.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.write(&b)
	}
	b.WriteByte('}')
	return b.String()
}
