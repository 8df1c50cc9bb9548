package gscorpus

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
	"github.com/korpling/graphannis-core/pkg/update"
)

func sortedIDs(ids []types.NodeID) []types.NodeID {
	out := append([]types.NodeID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TestScenarioS6GraphUpdate mirrors scenario S6: apply AddNode(parent),
// AddNode(child), AddEdge(child, parent, PartOfSubcorpus); find_connected
// from child in that component equals [parent].
func TestScenarioS6GraphUpdate(t *testing.T) {
	g := New()
	u := update.New()
	u.Add(update.NewAddNode("parent", types.NodeTypeCorpus))
	u.Add(update.NewAddNode("child", types.NodeTypeCorpus))
	u.Add(update.NewAddEdge("child", "parent", string(types.PartOfSubcorpus), "annis", ""))
	require.NoError(t, g.ApplyUpdate(u))

	childID, ok := g.nodeIDFor("child")
	require.True(t, ok)
	parentID, ok := g.nodeIDFor("parent")
	require.True(t, ok)

	gs, ok := g.GraphStorage(types.Component{Type: types.PartOfSubcorpus, Layer: "annis", Name: ""})
	require.True(t, ok)

	reached, err := gs.FindConnected(childID, 1, graphstorage.Unbounded())
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{parentID}, sortedIDs(reached))

	val, ok := g.NodeAnnos().Get(parentID, types.NodeName)
	require.True(t, ok)
	assert.Equal(t, "parent", val)
}

func TestApplyUpdateNodeAndEdgeLabels(t *testing.T) {
	g := New()
	u := update.New()
	u.Add(update.NewAddNode("tok1", types.NodeTypeNode))
	u.Add(update.NewAddNode("tok2", types.NodeTypeNode))
	u.Add(update.NewAddNodeLabel("tok1", "annis", "tok", "hello"))
	u.Add(update.NewAddEdge("tok1", "tok2", string(types.Ordering), "", "default"))
	u.Add(update.NewAddEdgeLabel("tok1", "tok2", string(types.Ordering), "", "default", "annis", "weight", "1"))
	require.NoError(t, g.ApplyUpdate(u))

	tok1, _ := g.nodeIDFor("tok1")
	tok2, _ := g.nodeIDFor("tok2")

	val, ok := g.NodeAnnos().Get(tok1, types.AnnoKey{Ns: "annis", Name: "tok"})
	require.True(t, ok)
	assert.Equal(t, "hello", val)

	gs, ok := g.GraphStorage(types.Component{Type: types.Ordering, Layer: "", Name: "default"})
	require.True(t, ok)
	edgeVal, ok := gs.AnnoStorage().Get(types.Edge{Source: tok1, Target: tok2}, types.AnnoKey{Ns: "annis", Name: "weight"})
	require.True(t, ok)
	assert.Equal(t, "1", edgeVal)
}

// TestApplyUpdateAddEdgeLabelOnMissingEdgeFails resolves the Open Question:
// AddEdgeLabel against a non-existent edge is rejected with an error.
func TestApplyUpdateAddEdgeLabelOnMissingEdgeFails(t *testing.T) {
	g := New()
	u := update.New()
	u.Add(update.NewAddNode("a", types.NodeTypeNode))
	u.Add(update.NewAddNode("b", types.NodeTypeNode))
	u.Add(update.NewAddEdgeLabel("a", "b", string(types.Pointing), "", "default", "annis", "k", "v"))
	err := g.ApplyUpdate(u)
	assert.Error(t, err)
}

func TestApplyUpdateDeleteNodeCascades(t *testing.T) {
	g := New()
	u := update.New()
	u.Add(update.NewAddNode("a", types.NodeTypeNode))
	u.Add(update.NewAddNode("b", types.NodeTypeNode))
	u.Add(update.NewAddEdge("a", "b", string(types.Pointing), "", "default"))
	require.NoError(t, g.ApplyUpdate(u))

	del := update.New()
	del.Add(update.NewDeleteNode("a"))
	require.NoError(t, g.ApplyUpdate(del))

	_, ok := g.nodeIDFor("a")
	assert.False(t, ok)

	gs, ok := g.GraphStorage(types.Component{Type: types.Pointing, Layer: "", Name: "default"})
	require.True(t, ok)
	bID, ok := g.nodeIDFor("b")
	require.True(t, ok)
	in, err := gs.IngoingEdges(bID)
	require.NoError(t, err)
	assert.Empty(t, in)
}

// TestSaveLoadRoundTrip covers a whole-graph persistence round trip: node
// annotations, the name symbol table (including a freed id from a deleted
// node, to exercise RestoreAt/RebuildFreeList), and one component survive
// SaveTo/LoadFrom.
func TestSaveLoadRoundTrip(t *testing.T) {
	g := New()
	u := update.New()
	u.Add(update.NewAddNode("doomed", types.NodeTypeNode))
	u.Add(update.NewAddNode("parent", types.NodeTypeCorpus))
	u.Add(update.NewAddNode("child", types.NodeTypeCorpus))
	u.Add(update.NewAddEdge("child", "parent", string(types.PartOfSubcorpus), "annis", ""))
	require.NoError(t, g.ApplyUpdate(u))

	del := update.New()
	del.Add(update.NewDeleteNode("doomed"))
	require.NoError(t, g.ApplyUpdate(del))

	childID, _ := g.nodeIDFor("child")
	parentID, _ := g.nodeIDFor("parent")

	dir := filepath.Join(t.TempDir(), "corpus")
	require.NoError(t, g.SaveTo(dir))

	loaded := New()
	require.NoError(t, loaded.LoadFrom(dir, nil))

	gotChild, ok := loaded.nodeIDFor("child")
	require.True(t, ok)
	assert.Equal(t, childID, gotChild)
	gotParent, ok := loaded.nodeIDFor("parent")
	require.True(t, ok)
	assert.Equal(t, parentID, gotParent)

	_, ok = loaded.nodeIDFor("doomed")
	assert.False(t, ok, "deleted node must not reappear after reload")

	val, ok := loaded.NodeAnnos().Get(gotChild, types.NodeName)
	require.True(t, ok)
	assert.Equal(t, "child", val)

	gs, ok := loaded.GraphStorage(types.Component{Type: types.PartOfSubcorpus, Layer: "annis", Name: ""})
	require.True(t, ok)
	reached, err := gs.FindConnected(gotChild, 1, graphstorage.Unbounded())
	require.NoError(t, err)
	assert.Equal(t, []types.NodeID{gotParent}, sortedIDs(reached))
}
