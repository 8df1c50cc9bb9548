package graphstorage

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/types"
)

func sortedNodeIDs(ids []types.NodeID) []types.NodeID {
	out := append([]types.NodeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func buildChain(t *testing.T, pairs [][2]types.NodeID) *AdjacencyListStorage {
	t.Helper()
	s := NewAdjacencyListStorage()
	for _, p := range pairs {
		require.NoError(t, s.AddEdge(types.Edge{Source: p[0], Target: p[1]}))
	}
	return s
}

// TestLinearStorageScenarioS1 mirrors scenario S1: chains 0-4, 5-8, 9-10,
// with an edge annotation surviving a Copy into LinearGraphStorage.
func TestLinearStorageScenarioS1(t *testing.T) {
	src := buildChain(t, [][2]types.NodeID{
		{0, 1}, {1, 2}, {2, 3}, {3, 4},
		{5, 6}, {6, 7}, {7, 8},
		{9, 10},
	})
	key := types.AnnoKey{Ns: "default_ns", Name: "example"}
	src.AnnoStorage().Insert(types.Edge{Source: 9, Target: 10}, types.Annotation{Key: key, Val: "last"})

	linear := NewLinearGraphStorage()
	require.NoError(t, linear.Copy(nil, src))

	got, err := linear.FindConnected(0, 2, Included(3))
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{2, 3}, sortedNodeIDs(got))

	got, err = linear.FindConnected(5, 1, Excluded(3))
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{6, 7}, sortedNodeIDs(got))

	dist, ok, err := linear.Distance(0, 4)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, dist)

	val, ok := linear.AnnoStorage().Get(types.Edge{Source: 9, Target: 10}, key)
	require.True(t, ok)
	assert.Equal(t, "last", val)
}

// TestPrePostOrderScenarioS2 mirrors scenario S2: a tree copied into
// PrePostOrderStorage, checking find_connected from the root and that only
// root nodes report no incoming edges.
func TestPrePostOrderScenarioS2(t *testing.T) {
	src := buildChain(t, [][2]types.NodeID{
		{0, 1}, {0, 2},
		{1, 3},
		{2, 4},
		{3, 5}, {3, 6},
		{4, 7}, {4, 8},
	})

	pp := NewPrePostOrderStorage()
	require.NoError(t, pp.Copy(nil, src))

	got, err := pp.FindConnected(0, 1, Unbounded())
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{1, 2, 3, 4, 5, 6, 7, 8}, sortedNodeIDs(got))

	for n := types.NodeID(1); n <= 8; n++ {
		in, err := pp.IngoingEdges(n)
		require.NoError(t, err)
		assert.NotEmpty(t, in, "node %d should have an incoming edge", n)
	}
	rootIn, err := pp.IngoingEdges(0)
	require.NoError(t, err)
	assert.Empty(t, rootIn, "root must report no incoming edges")
}

// TestAdjacencyListScenarioS3 mirrors scenario S3: an indirect cycle
// 1->2->3->4->5->2 makes calculate_statistics report cyclic = true.
func TestAdjacencyListScenarioS3(t *testing.T) {
	s := buildChain(t, [][2]types.NodeID{
		{1, 2}, {2, 3}, {3, 4}, {4, 5}, {5, 2},
	})
	require.NoError(t, s.Calculate())
	stats := s.Statistics()
	require.NotNil(t, stats)
	assert.True(t, stats.Cyclic)
}

// TestUniversal2AddDeleteEdgeRestoresState covers universal 2.
func TestUniversal2AddDeleteEdgeRestoresState(t *testing.T) {
	s := NewAdjacencyListStorage()
	e := types.Edge{Source: 1, Target: 2}
	key := types.AnnoKey{Ns: "", Name: "dep"}

	before, err := s.OutgoingEdges(1)
	require.NoError(t, err)

	require.NoError(t, s.AddEdge(e))
	s.AnnoStorage().Insert(e, types.Annotation{Key: key, Val: "x"})
	require.NoError(t, s.DeleteEdge(e))

	after, err := s.OutgoingEdges(1)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, ok := s.AnnoStorage().Get(e, key)
	assert.False(t, ok)

	afterIn, err := s.IngoingEdges(2)
	require.NoError(t, err)
	assert.Empty(t, afterIn)
}

// TestUniversal3CycleSafeDFS covers universal 3: each reachable node is
// visited at most once, and is_cyclic is true iff an ancestor was
// re-encountered.
func TestUniversal3CycleSafeDFS(t *testing.T) {
	s := buildChain(t, [][2]types.NodeID{{1, 2}, {2, 3}, {3, 1}})

	dfs := NewCycleSafeDFS(s, 1, 0, 100)
	visited := map[types.NodeID]int{}
	for {
		n, _, ok := dfs.Next()
		if !ok {
			break
		}
		visited[n]++
	}
	require.NoError(t, dfs.Err())
	for n, count := range visited {
		assert.Equal(t, 1, count, "node %d visited more than once", n)
	}
	assert.True(t, dfs.Cyclic())

	acyclic := buildChain(t, [][2]types.NodeID{{1, 2}, {2, 3}})
	dfs2 := NewCycleSafeDFS(acyclic, 1, 0, 100)
	for {
		_, _, ok := dfs2.Next()
		if !ok {
			break
		}
	}
	require.NoError(t, dfs2.Err())
	assert.False(t, dfs2.Cyclic())
}

// TestUniversal4DistanceToSelf covers universal 4: distance(n, n) = Some(0).
func TestUniversal4DistanceToSelf(t *testing.T) {
	s := buildChain(t, [][2]types.NodeID{{1, 2}})
	dist, ok, err := s.Distance(1, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, dist)
}

// TestUniversal5InverseSymmetry covers universal 5: find_connected_inverse(t)
// contains s iff find_connected(s) contains t.
func TestUniversal5InverseSymmetry(t *testing.T) {
	s := buildChain(t, [][2]types.NodeID{{1, 2}, {2, 3}, {2, 4}})

	forward, err := s.FindConnected(1, 1, Unbounded())
	require.NoError(t, err)
	for _, target := range forward {
		inverse, err := s.FindConnectedInverse(target, 1, Unbounded())
		require.NoError(t, err)
		assert.Contains(t, sortedNodeIDs(inverse), types.NodeID(1))
	}
}

// TestScenarioS1SaveLoadRoundTrip mirrors scenario S1's literal requirement
// that an edge annotation survives a full SaveTo/LoadFrom round trip, not
// merely a Copy.
func TestScenarioS1SaveLoadRoundTrip(t *testing.T) {
	src := buildChain(t, [][2]types.NodeID{{9, 10}})
	key := types.AnnoKey{Ns: "default_ns", Name: "example"}
	src.AnnoStorage().Insert(types.Edge{Source: 9, Target: 10}, types.Annotation{Key: key, Val: "last"})

	dir := filepath.Join(t.TempDir(), "component")
	require.NoError(t, SaveTo(src, dir))

	tag, err := ReadTag(dir)
	require.NoError(t, err)
	assert.Equal(t, src.SerializationID(), tag)

	loaded := NewAdjacencyListStorage()
	require.NoError(t, LoadFrom(dir, loaded))

	reached, err := loaded.FindConnected(9, 1, Included(1))
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{10}, sortedNodeIDs(reached))

	val, ok := loaded.AnnoStorage().Get(types.Edge{Source: 9, Target: 10}, key)
	require.True(t, ok)
	assert.Equal(t, "last", val)
}
