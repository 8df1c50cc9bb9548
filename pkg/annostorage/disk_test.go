package annostorage

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/types"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDiskStoreInsertGetRemove(t *testing.T) {
	db := openTestDB(t)
	s := NewDiskStore[types.NodeID](db, NodeIDCodec{})
	key := tokKey()

	s.Insert(1, types.Annotation{Key: key, Val: "abc"})
	v, ok := s.Get(1, key)
	require.True(t, ok)
	require.Equal(t, "abc", v)

	s.Insert(1, types.Annotation{Key: key, Val: "def"})
	v, ok = s.Get(1, key)
	require.True(t, ok)
	require.Equal(t, "def", v)

	old, removed := s.Remove(1, key)
	require.True(t, removed)
	require.Equal(t, "def", old)

	_, ok = s.Get(1, key)
	require.False(t, ok)
}

func TestDiskStoreRegexLiteralPrefixBound(t *testing.T) {
	db := openTestDB(t)
	s := NewDiskStore[types.NodeID](db, NodeIDCodec{})
	key := types.AnnoKey{Ns: "annis", Name: "node_name"}
	ns := "annis"
	values := []string{"_ABC", "AAA", "AAB", "AAC", "B"}
	for i, v := range values {
		s.Insert(types.NodeID(i+1), types.Annotation{Key: key, Val: v})
	}

	it, err := s.RegexSearch(&ns, "node_name", "AA[AB]", false)
	require.NoError(t, err)

	var got []string
	for {
		m, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, m.Anno.Val)
	}
	require.ElementsMatch(t, []string{"AAA", "AAB"}, got)
}

func TestDiskStoreRangeSearch(t *testing.T) {
	db := openTestDB(t)
	s := NewDiskStore[types.Edge](db, EdgeCodec{})
	key := types.AnnoKey{Ns: "", Name: "dep"}
	ns := ""
	for i, v := range []string{"a", "b", "c", "d"} {
		s.Insert(types.Edge{Source: types.NodeID(i), Target: types.NodeID(i + 1)}, types.Annotation{Key: key, Val: v})
	}

	it := s.RangeSearch(&ns, "dep", "b", "c")
	count := 0
	for {
		_, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestDiskStoreNumberOfAnnotations(t *testing.T) {
	db := openTestDB(t)
	s := NewDiskStore[types.NodeID](db, NodeIDCodec{})
	key := tokKey()
	s.Insert(1, types.Annotation{Key: key, Val: "dog"})
	s.Insert(2, types.Annotation{Key: key, Val: "cat"})

	require.Equal(t, 2, s.NumberOfAnnotations())

	ns := "annis"
	require.Equal(t, 2, s.NumberOfAnnotationsByName(&ns, "tok"))
}
