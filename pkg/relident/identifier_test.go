// SPDX-License-Identifier: Apache-2.0

package relident_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relormdb/relorm/pkg/relident"
)

func TestNew(t *testing.T) {
	t.Parallel()

	valid := []string{"users", "user_id", "Table1", "_private", "a"}
	for _, s := range valid {
		id, err := relident.New(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, id.String())
	}

	invalid := []string{"", "user-id", "user id", "user.id", "user;drop table"}
	for _, s := range invalid {
		_, err := relident.New(s)
		assert.Error(t, err, s)
	}
}

func TestNewRejectsOverlongNames(t *testing.T) {
	t.Parallel()

	long := make([]byte, relident.MaxLength+1)
	for i := range long {
		long[i] = 'a'
	}

	_, err := relident.New(string(long))
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a, err := relident.New("users")
	require.NoError(t, err)
	b, err := relident.New("users")
	require.NoError(t, err)
	c, err := relident.New("posts")
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestMustNewPanicsOnInvalid(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		relident.MustNew("not valid")
	})
}
