package annostorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/types"
)

func drain[T any](t *testing.T, it MatchIterator[T]) []Match[T] {
	t.Helper()
	var out []Match[T]
	for {
		m, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, m)
	}
	require.NoError(t, it.Close())
	return out
}

func tokKey() types.AnnoKey { return types.AnnoKey{Ns: "annis", Name: "tok"} }

func TestMemoryStoreInsertGetRemove(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := tokKey()

	s.Insert(1, types.Annotation{Key: key, Val: "abc"})
	v, ok := s.Get(1, key)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	s.Insert(1, types.Annotation{Key: key, Val: "def"})
	v, ok = s.Get(1, key)
	require.True(t, ok)
	assert.Equal(t, "def", v, "Insert must replace the existing value under the same key")

	old, removed := s.Remove(1, key)
	assert.True(t, removed)
	assert.Equal(t, "def", old)

	_, ok = s.Get(1, key)
	assert.False(t, ok)
}

func TestMemoryStoreAnnotationsForItemOrder(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	a := types.AnnoKey{Ns: "annis", Name: "a"}
	b := types.AnnoKey{Ns: "annis", Name: "b"}

	s.Insert(1, types.Annotation{Key: a, Val: "1"})
	s.Insert(1, types.Annotation{Key: b, Val: "2"})

	got := s.AnnotationsForItem(1)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Key)
	assert.Equal(t, b, got[1].Key)
}

// TestRegexSearchLiteralPrefixBound mirrors scenario S5: regex search over
// node-name values {"_ABC","AAA","AAB","AAC","B"} with pattern "AA[AB]" must
// only visit the AAA/AAB/AAC-prefixed range, not the whole value space.
func TestRegexSearchLiteralPrefixBound(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := types.AnnoKey{Ns: "annis", Name: "node_name"}
	values := []string{"_ABC", "AAA", "AAB", "AAC", "B"}
	for i, v := range values {
		s.Insert(types.NodeID(i+1), types.Annotation{Key: key, Val: v})
	}

	it, err := s.RegexSearch(nil, "node_name", "AA[AB]", false)
	require.NoError(t, err)
	matches := drain(t, it)

	var gotVals []string
	for _, m := range matches {
		gotVals = append(gotVals, m.Anno.Val)
	}
	assert.ElementsMatch(t, []string{"AAA", "AAB"}, gotVals)
}

func TestRegexSearchNegated(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := types.AnnoKey{Ns: "annis", Name: "node_name"}
	values := []string{"_ABC", "AAA", "AAB", "AAC", "B"}
	for i, v := range values {
		s.Insert(types.NodeID(i+1), types.Annotation{Key: key, Val: v})
	}

	it, err := s.RegexSearch(nil, "node_name", "AA[AB]", true)
	require.NoError(t, err)
	matches := drain(t, it)
	assert.Len(t, matches, 3)
}

func TestRangeSearch(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := types.AnnoKey{Ns: "annis", Name: "node_name"}
	for i, v := range []string{"a", "b", "c", "d"} {
		s.Insert(types.NodeID(i+1), types.Annotation{Key: key, Val: v})
	}

	it := s.RangeSearch(nil, "node_name", "b", "c")
	matches := drain(t, it)
	assert.Len(t, matches, 2)
}

func TestExactSearchPredicates(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := tokKey()
	s.Insert(1, types.Annotation{Key: key, Val: "dog"})
	s.Insert(2, types.Annotation{Key: key, Val: "cat"})

	any := drain(t, s.ExactSearch(nil, "tok", Any()))
	assert.Len(t, any, 2)

	some := drain(t, s.ExactSearch(nil, "tok", Some("dog")))
	require.Len(t, some, 1)
	assert.Equal(t, types.NodeID(1), some[0].Item)

	notSome := drain(t, s.ExactSearch(nil, "tok", NotSome("dog")))
	require.Len(t, notSome, 1)
	assert.Equal(t, types.NodeID(2), notSome[0].Item)
}

func TestGuessMaxCountRequiresStatistics(t *testing.T) {
	s := NewMemoryStore[types.NodeID]()
	key := types.AnnoKey{Ns: "annis", Name: "node_name"}
	for i, v := range []string{"a", "b", "c", "d"} {
		s.Insert(types.NodeID(i+1), types.Annotation{Key: key, Val: v})
	}

	// Before CalculateStatistics, the estimator still falls back to a live
	// scan rather than reporting zero.
	assert.Equal(t, 2, s.GuessMaxCount(nil, "node_name", "b", "c"))

	s.CalculateStatistics()
	assert.Equal(t, 2, s.GuessMaxCount(nil, "node_name", "b", "c"))

	// A mutation after CalculateStatistics must not retroactively change the
	// stale snapshot the estimator reads from (scenario from spec 9.3: stats
	// are never implicitly refreshed).
	s.Insert(5, types.Annotation{Key: key, Val: "bb"})
	assert.Equal(t, 2, s.GuessMaxCount(nil, "node_name", "b", "c"))
}

func TestNumberOfAnnotations(t *testing.T) {
	s := NewMemoryStore[types.Edge]()
	key := types.AnnoKey{Ns: "", Name: "dep"}
	s.Insert(types.Edge{Source: 1, Target: 2}, types.Annotation{Key: key, Val: "x"})
	s.Insert(types.Edge{Source: 2, Target: 3}, types.Annotation{Key: key, Val: "y"})

	assert.Equal(t, 2, s.NumberOfAnnotations())
	assert.Equal(t, 2, s.NumberOfAnnotationsByName(nil, "dep"))
}
