// SPDX-License-Identifier: Apache-2.0

package relschema

import (
	"testing"

	"github.com/relormdb/relorm/pkg/relident"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idCol() Column {
	return UuidColumn(relident.MustNew("id")).PrimaryKey()
}

func TestRegistry_EmptyBuildsEmptySnapshot(t *testing.T) {
	snap, err := NewRegistry().Build()
	require.NoError(t, err)
	assert.Empty(t, snap.TableNames())
}

func TestRegistry_OneToOneSynthesizesForeignKeyColumn(t *testing.T) {
	const (
		authorType TypeKey = "author"
		bookType   TypeKey = "book"
	)

	author := NewTable(relident.MustNew("author")).
		Column(idCol()).
		Column(StringColumn(relident.MustNew("name")).NotNull())

	book := NewTable(relident.MustNew("book")).
		Column(idCol()).
		Column(StringColumn(relident.MustNew("title")).NotNull()).
		Column(OneToOneColumn(relident.MustNew("author"), authorType).NotNull()).
		WithChildTable(authorType, author)

	r := NewRegistry()
	require.NoError(t, r.AddResource(bookType, book))
	require.NoError(t, r.AddResource(authorType, author))

	snap, err := r.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"author", "book"}, snap.TableNames())

	got, ok := snap.GetTable(relident.MustNew("book"))
	require.True(t, ok)
	assert.False(t, got.HasColumn(relident.MustNew("author")))

	fk, ok := got.GetColumn(relident.MustNew("author_id"))
	require.True(t, ok)
	assert.Equal(t, Uuid, fk.Type)
	assert.False(t, fk.IsNullable())

	ref, ok := fk.ForeignKeyConstraint()
	require.True(t, ok)
	assert.Equal(t, "author", ref.Table.String())
	assert.Equal(t, "id", ref.Column.String())
}

func TestRegistry_OneToManyInjectsParentIDOnChild(t *testing.T) {
	const (
		blogType TypeKey = "blog"
		postType TypeKey = "post"
	)

	post := NewTable(relident.MustNew("post")).
		Column(idCol()).
		Column(StringColumn(relident.MustNew("title")).NotNull())

	blog := NewTable(relident.MustNew("blog")).
		Column(idCol()).
		Column(OneToManyColumn(relident.MustNew("posts"), postType)).
		WithChildTable(postType, post)

	r := NewRegistry()
	require.NoError(t, r.AddResource(blogType, blog))
	require.NoError(t, r.AddResource(postType, post))

	snap, err := r.Build()
	require.NoError(t, err)

	gotBlog, ok := snap.GetTable(relident.MustNew("blog"))
	require.True(t, ok)
	assert.False(t, gotBlog.HasColumn(relident.MustNew("posts")))

	gotPost, ok := snap.GetTable(relident.MustNew("post"))
	require.True(t, ok)
	parentID, ok := gotPost.GetColumn(relident.MustNew("parent_id"))
	require.True(t, ok)
	assert.False(t, parentID.IsNullable())

	ref, ok := parentID.ForeignKeyConstraint()
	require.True(t, ok)
	assert.Equal(t, "blog", ref.Table.String())
}

func TestRegistry_ManyToManySynthesizesJoinTable(t *testing.T) {
	const (
		postType TypeKey = "post"
		tagType  TypeKey = "tag"
	)

	tag := NewTable(relident.MustNew("tag")).
		Column(idCol()).
		Column(StringColumn(relident.MustNew("label")).NotNull())

	post := NewTable(relident.MustNew("post")).
		Column(idCol()).
		Column(StringColumn(relident.MustNew("title")).NotNull()).
		Column(ManyToManyColumn(relident.MustNew("tags"), tagType)).
		WithChildTable(tagType, tag)

	r := NewRegistry()
	require.NoError(t, r.AddResource(postType, post))
	require.NoError(t, r.AddResource(tagType, tag))

	snap, err := r.Build()
	require.NoError(t, err)
	assert.Contains(t, snap.TableNames(), "post_to_tag")

	join, ok := snap.GetTable(relident.MustNew("post_to_tag"))
	require.True(t, ok)
	assert.True(t, join.IsJoinTable())
	assert.True(t, join.HasColumn(relident.MustNew("parent_id")))
	assert.True(t, join.HasColumn(relident.MustNew("child_id")))
	require.Len(t, join.TableConstraints(), 1)
	assert.Equal(t, ConstraintUnique, join.TableConstraints()[0].Kind)
}

func TestRegistry_DanglingChildRelationshipFails(t *testing.T) {
	const orphanType TypeKey = "orphan"

	post := NewTable(relident.MustNew("post")).
		Column(idCol()).
		Column(OneToOneColumn(relident.MustNew("orphan"), orphanType))

	r := NewRegistry()
	require.NoError(t, r.AddResource(TypeKey("post"), post))

	_, err := r.Build()
	require.Error(t, err)

	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, DanglingChildError{}, buildErr.Err)
}

func TestRegistry_CyclicOwnershipFails(t *testing.T) {
	const (
		aType TypeKey = "a"
		bType TypeKey = "b"
		cType TypeKey = "c"
	)

	shared := NewTable(relident.MustNew("shared")).Column(idCol())

	a := NewTable(relident.MustNew("a")).
		Column(idCol()).
		Column(OneToManyColumn(relident.MustNew("shared"), cType)).
		WithChildTable(cType, shared)

	b := NewTable(relident.MustNew("b")).
		Column(idCol()).
		Column(OneToManyColumn(relident.MustNew("shared"), cType)).
		WithChildTable(cType, shared)

	r := NewRegistry()
	require.NoError(t, r.AddResource(aType, a))
	require.NoError(t, r.AddResource(bType, b))

	_, err := r.Build()
	require.Error(t, err)

	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, CyclicOwnershipError{}, buildErr.Err)
}

func TestRegistry_MutualOneToManyOwnershipFails(t *testing.T) {
	const (
		aType TypeKey = "a"
		bType TypeKey = "b"
	)

	a := NewTable(relident.MustNew("a")).
		Column(idCol()).
		Column(OneToManyColumn(relident.MustNew("bs"), bType))

	b := NewTable(relident.MustNew("b")).
		Column(idCol()).
		Column(OneToManyColumn(relident.MustNew("as"), aType))

	r := NewRegistry()
	require.NoError(t, r.AddResource(aType, a))
	require.NoError(t, r.AddResource(bType, b))

	_, err := r.Build()
	require.Error(t, err)

	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, CyclicOwnershipError{}, buildErr.Err)
}

func TestRegistry_DuplicateRegistrationOfDifferentTableFails(t *testing.T) {
	const postType TypeKey = "post"

	post1 := NewTable(relident.MustNew("post")).Column(idCol())
	post2 := NewTable(relident.MustNew("post")).Column(idCol()).Column(StringColumn(relident.MustNew("title")))

	r := NewRegistry()
	require.NoError(t, r.AddResource(postType, post1))
	err := r.AddResource(postType, post2)
	require.Error(t, err)
	assert.IsType(t, DuplicateRegistrationError{}, err)
}

func TestRegistry_IdempotentReRegistrationSucceeds(t *testing.T) {
	const postType TypeKey = "post"
	post := NewTable(relident.MustNew("post")).Column(idCol())

	r := NewRegistry()
	require.NoError(t, r.AddResource(postType, post))
	require.NoError(t, r.AddResource(postType, post))
}

func TestRegistry_MissingPrimaryKeyFails(t *testing.T) {
	post := NewTable(relident.MustNew("post")).Column(StringColumn(relident.MustNew("title")))

	r := NewRegistry()
	require.NoError(t, r.AddResource(TypeKey("post"), post))

	_, err := r.Build()
	require.Error(t, err)
	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, MissingPrimaryKeyError{}, buildErr.Err)
}

func TestRegistry_InvalidPrimaryKeyNameFails(t *testing.T) {
	post := NewTable(relident.MustNew("post")).
		Column(UuidColumn(relident.MustNew("uuid")).PrimaryKey())

	r := NewRegistry()
	require.NoError(t, r.AddResource(TypeKey("post"), post))

	_, err := r.Build()
	require.Error(t, err)
	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, InvalidPrimaryKeyError{}, buildErr.Err)
}

func TestRegistry_DanglingReferenceConstraintFails(t *testing.T) {
	post := NewTable(relident.MustNew("post")).
		Column(idCol()).
		Column(UuidColumn(relident.MustNew("author_id")).References(ForeignKeyRef{
			Table:  relident.MustNew("author"),
			Column: relident.MustNew("id"),
		}))

	r := NewRegistry()
	require.NoError(t, r.AddResource(TypeKey("post"), post))

	_, err := r.Build()
	require.Error(t, err)
	var buildErr BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.IsType(t, DanglingReferenceError{}, buildErr.Err)
}
