// SPDX-License-Identifier: Apache-2.0

package querybuilder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xataio/gqlmirror/pkg/querybuilder"
)

func TestPrintPlainField(t *testing.T) {
	q := &querybuilder.Query{Name: "Q", Children: []querybuilder.Node{
		querybuilder.Plain("__typename"),
	}}

	assert.Equal(t, "query Q{__typename}", querybuilder.Print(q))
}

func TestPrintAliasedFieldWithArgs(t *testing.T) {
	sel := querybuilder.Aliased("owndata_0", "nodes",
		[]querybuilder.Arg{{Name: "ids", Value: querybuilder.List(querybuilder.String("a"), querybuilder.String("b"))}},
		querybuilder.Plain("id"),
	)

	q := &querybuilder.Query{Name: "MirrorUpdate", Children: []querybuilder.Node{sel}}

	assert.Equal(t, `query MirrorUpdate{owndata_0:nodes(ids:["a","b"]){id}}`, querybuilder.Print(q))
}

func TestPrintInlineFragment(t *testing.T) {
	frag := querybuilder.OnType("User", querybuilder.Plain("id"))
	q := &querybuilder.Query{Name: "Q", Children: []querybuilder.Node{frag}}

	assert.Equal(t, "query Q{...on User{id}}", querybuilder.Print(q))
}

func TestPrintNullAndIntArgs(t *testing.T) {
	sel := querybuilder.Field("page", []querybuilder.Arg{
		{Name: "first", Value: querybuilder.Int(10)},
		{Name: "after", Value: querybuilder.Null()},
	})
	q := &querybuilder.Query{Name: "Q", Children: []querybuilder.Node{sel}}

	assert.Equal(t, "query Q{page(first:10,after:null)}", querybuilder.Print(q))
}

func TestStringOrNull(t *testing.T) {
	assert.Equal(t, querybuilder.Null(), querybuilder.StringOrNull(nil))

	s := "x"
	assert.Equal(t, querybuilder.String("x"), querybuilder.StringOrNull(&s))
}

func TestPrintNestedSelections(t *testing.T) {
	inner := querybuilder.Field("author", nil, querybuilder.Plain("__typename"), querybuilder.Plain("id"))
	outer := querybuilder.Field("node", nil, querybuilder.Plain("id"), inner)
	q := &querybuilder.Query{Name: "Q", Children: []querybuilder.Node{outer}}

	assert.Equal(t, "query Q{node{id author{__typename id}}}", querybuilder.Print(q))
}
