// SPDX-License-Identifier: Apache-2.0

package relquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_BuildsFilterAndOrdering(t *testing.T) {
	title := Col("posts", "title")
	authorName := Col("users", "author_name")

	q := NewQuery(title.Table).
		Where(And(title.Like("BUG%"), authorName.Eq("alice"))).
		OrderBy(Col("posts", "created_at"), Desc).
		Limit(10)

	assert.Equal(t, "posts", q.Table.String())
	require := assert.New(t)
	require.NotNil(q.Filter)
	require.Equal(FilterAnd, q.Filter.Kind)
	require.Len(q.Filter.Children, 2)
	require.Equal(FilterLike, q.Filter.Children[0].Kind)
	require.Equal("BUG%", q.Filter.Children[0].Value)
	require.Len(q.Order, 1)
	require.Equal(Desc, q.Order[0].Direction)
	require.NotNil(q.LimitN)
	require.Equal(10, *q.LimitN)
}

func TestColumnRef_InBindsEachElement(t *testing.T) {
	f := Col("users", "status").In("active", "pending")
	assert.Equal(t, FilterIn, f.Kind)
	assert.Equal(t, []any{"active", "pending"}, f.Values)
}
