package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndGet(t *testing.T) {
	s := New[string]()

	id1, err := s.Intern("abc")
	require.NoError(t, err)
	id2, err := s.Intern("def")
	require.NoError(t, err)
	id3, err := s.Intern("def")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, id2, id3)

	v, ok := s.Lookup(id1)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

// TestReuseID mirrors scenario S4: after removing a slot, the next insert
// reuses its id rather than growing the table.
func TestReuseID(t *testing.T) {
	s := New[string]()

	idABC, err := s.Intern("abc")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	v, ok := s.Lookup(idABC)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	_, removed := s.Remove(idABC)
	assert.True(t, removed)

	_, ok = s.Lookup(idABC)
	assert.False(t, ok)

	idGHI, err := s.Intern("ghi")
	require.NoError(t, err)
	assert.Equal(t, idABC, idGHI, "freed slot must be reused before the table grows")
	assert.Equal(t, 1, s.Len())
}

func TestInsertClearInsertGet(t *testing.T) {
	s := New[string]()

	_, err := s.Intern("abc")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())

	_, err = s.Intern("abc")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestRemoveUnknownID(t *testing.T) {
	s := New[string]()
	_, ok := s.Remove(42)
	assert.False(t, ok)
}

func TestGetID(t *testing.T) {
	s := New[string]()
	id, err := s.Intern("xyz")
	require.NoError(t, err)

	got, ok := s.GetID("xyz")
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = s.GetID("missing")
	assert.False(t, ok)
}
