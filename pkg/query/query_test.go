package query

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// testGraph is a minimal GraphAccessor built directly from the storage
// packages, standing in for pkg/gscorpus.Graph so this package's tests do
// not depend on it.
type testGraph struct {
	nodeAnnos  annostorage.Store[types.NodeID]
	components map[types.Component]graphstorage.GraphStorage
}

func newTestGraph() *testGraph {
	return &testGraph{
		nodeAnnos:  annostorage.NewMemoryStore[types.NodeID](),
		components: make(map[types.Component]graphstorage.GraphStorage),
	}
}

func (g *testGraph) NodeAnnos() annostorage.Store[types.NodeID] { return g.nodeAnnos }

func (g *testGraph) GraphStorage(c types.Component) (graphstorage.GraphStorage, bool) {
	gs, ok := g.components[c]
	return gs, ok
}

func (g *testGraph) ComponentsByType(ct types.ComponentType) []types.Component {
	var out []types.Component
	for c := range g.components {
		if c.Type == ct {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (g *testGraph) component(ctype types.ComponentType, layer, name string) graphstorage.GraphStorage {
	c := types.Component{Type: ctype, Layer: layer, Name: name}
	gs, ok := g.components[c]
	if !ok {
		gs = graphstorage.NewAdjacencyListStorage()
		g.components[c] = gs
	}
	return gs
}

// buildSpanGraph builds three tokens (1,2,3, in that order) and one
// covering span node (10) spanning tokens 1-2, wired with Ordering,
// LeftToken, RightToken, and Coverage, for use by precedence/coverage
// operator tests.
func buildSpanGraph(t *testing.T) *testGraph {
	t.Helper()
	g := newTestGraph()

	for _, n := range []types.NodeID{1, 2, 3, 10} {
		g.nodeAnnos.Insert(n, types.Annotation{Key: types.NodeType, Val: types.NodeTypeNode})
	}
	for _, n := range []types.NodeID{1, 2, 3} {
		g.nodeAnnos.Insert(n, types.Annotation{Key: types.Tok, Val: "tok"})
	}
	g.nodeAnnos.Insert(10, types.Annotation{Key: types.AnnoKey{Ns: "default_ns", Name: "cat"}, Val: "span"})

	order := g.component(types.Ordering, "annis", "")
	require.NoError(t, order.AddEdge(types.Edge{Source: 1, Target: 2}))
	require.NoError(t, order.AddEdge(types.Edge{Source: 2, Target: 3}))

	cov := g.component(types.Coverage, "default_ns", "")
	require.NoError(t, cov.AddEdge(types.Edge{Source: 10, Target: 1}))
	require.NoError(t, cov.AddEdge(types.Edge{Source: 10, Target: 2}))

	left := g.component(types.LeftToken, "annis", "")
	require.NoError(t, left.AddEdge(types.Edge{Source: 10, Target: 1}))
	right := g.component(types.RightToken, "annis", "")
	require.NoError(t, right.AddEdge(types.Edge{Source: 10, Target: 2}))

	return g
}

func TestTokenHelperIsToken(t *testing.T) {
	g := buildSpanGraph(t)
	th, err := NewTokenHelper(g)
	require.NoError(t, err)

	isTok, err := th.IsToken(1)
	require.NoError(t, err)
	assert.True(t, isTok)

	isTok, err = th.IsToken(10)
	require.NoError(t, err)
	assert.False(t, isTok)
}

func TestTokenHelperLeftRightTokenFor(t *testing.T) {
	g := buildSpanGraph(t)
	th, err := NewTokenHelper(g)
	require.NoError(t, err)

	left, ok, err := th.LeftTokenFor(10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.NodeID(1), left)

	right, ok, err := th.RightTokenFor(10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.NodeID(2), right)

	self, ok, err := th.LeftTokenFor(3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.NodeID(3), self)
}

func TestPrecedenceFilterMatch(t *testing.T) {
	g := buildSpanGraph(t)
	p, err := NewPrecedence(g, 1, 1)
	require.NoError(t, err)

	ok, err := p.FilterMatch(types.Match{Node: 1}, types.Match{Node: 2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.FilterMatch(types.Match{Node: 1}, types.Match{Node: 3})
	require.NoError(t, err)
	assert.False(t, ok)

	inv, ok := p.Inverse()
	require.True(t, ok)
	passed, err := inv.FilterMatch(types.Match{Node: 2}, types.Match{Node: 1})
	require.NoError(t, err)
	assert.True(t, passed)
}

func TestOverlapAndInclusion(t *testing.T) {
	g := buildSpanGraph(t)
	overlap, err := NewOverlap(g)
	require.NoError(t, err)
	incl, err := NewInclusion(g)
	require.NoError(t, err)

	ok, err := overlap.FilterMatch(types.Match{Node: 10}, types.Match{Node: 1})
	require.NoError(t, err)
	assert.True(t, ok, "span 10 covers token 1, so they overlap")

	ok, err = overlap.FilterMatch(types.Match{Node: 10}, types.Match{Node: 3})
	require.NoError(t, err)
	assert.False(t, ok, "span 10 only covers tokens 1-2, not 3")

	ok, err = incl.FilterMatch(types.Match{Node: 10}, types.Match{Node: 1})
	require.NoError(t, err)
	assert.True(t, ok, "token 1 lies within span 10's covered range")
}

// TestNegatedOpUniversal is universal property 7: NegatedOp(op) is the
// logical negation of op for every pair FilterMatch is evaluated on.
func TestNegatedOpUniversal(t *testing.T) {
	ident := IdenticalNode{}
	neg := NewNegatedOp(ident)

	for _, pair := range [][2]types.NodeID{{1, 1}, {1, 2}} {
		base, err := ident.FilterMatch(types.Match{Node: pair[0]}, types.Match{Node: pair[1]})
		require.NoError(t, err)
		negated, err := neg.FilterMatch(types.Match{Node: pair[0]}, types.Match{Node: pair[1]})
		require.NoError(t, err)
		assert.Equal(t, !base, negated)
	}
}

// buildTreeGraph wires a small Dominance tree (1 -> 2, 1 -> 3) plus node
// type annotations on every node, for IndexJoin/NestedLoopJoin equality
// tests.
func buildTreeGraph(t *testing.T) *testGraph {
	t.Helper()
	g := newTestGraph()
	for _, n := range []types.NodeID{1, 2, 3} {
		g.nodeAnnos.Insert(n, types.Annotation{Key: types.NodeType, Val: types.NodeTypeNode})
	}
	dom := g.component(types.Dominance, "default_ns", "edge")
	require.NoError(t, dom.AddEdge(types.Edge{Source: 1, Target: 2}))
	require.NoError(t, dom.AddEdge(types.Edge{Source: 1, Target: 3}))
	return g
}

func drain(t *testing.T, node ExecutionNode) [][]types.Match {
	t.Helper()
	var out [][]types.Match
	for {
		tuple, ok, err := node.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, tuple)
	}
	require.NoError(t, node.Close())
	return out
}

func pairs(rows [][]types.Match) [][2]types.NodeID {
	out := make([][2]types.NodeID, 0, len(rows))
	for _, r := range rows {
		out = append(out, [2]types.NodeID{r[0].Node, r[1].Node})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// annotatedPairs is pairs() plus each row's RHS annotation, so a test can
// assert the join actually carried the candidate's real annotation through
// rather than a zero value (universal property 8 compares Match, not just
// node id).
func annotatedPairs(rows [][]types.Match) [][3]interface{} {
	out := make([][3]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, [3]interface{}{r[0].Node, r[1].Node, r[1].Anno})
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := out[i][0].(types.NodeID), out[j][0].(types.NodeID)
		if ni != nj {
			return ni < nj
		}
		return out[i][1].(types.NodeID) < out[j][1].(types.NodeID)
	})
	return out
}

// TestIndexJoinNestedLoopJoinAgree is universal property 8: IndexJoin and
// NestedLoopJoin produce the same multiset of result tuples for the same
// node searches and operator.
func TestIndexJoinNestedLoopJoinAgree(t *testing.T) {
	g := buildTreeGraph(t)

	lhsSearch, err := AnyNode(g)
	require.NoError(t, err)
	rhsSearch, err := AnyNode(g)
	require.NoError(t, err)
	dom, err := NewDominance(g, "default_ns", "edge", 1, 1, nil)
	require.NoError(t, err)

	idx := NewIndexJoin(NewNodeSearchExec("lhs", lhsSearch), 0, dom, rhsSearch.Desc, g)
	idxRows := drain(t, idx)

	lhsSearch2, err := AnyNode(g)
	require.NoError(t, err)
	rhsSearch2, err := AnyNode(g)
	require.NoError(t, err)
	dom2, err := NewDominance(g, "default_ns", "edge", 1, 1, nil)
	require.NoError(t, err)
	nlj := NewNestedLoopJoin(NewNodeSearchExec("lhs", lhsSearch2), NewNodeSearchExec("rhs", rhsSearch2), 0, 0, dom2)
	nljRows := drain(t, nlj)

	assert.Equal(t, pairs(idxRows), pairs(nljRows))
	assert.Equal(t, [][2]types.NodeID{{1, 2}, {1, 3}}, pairs(idxRows))

	// The RHS annotation IndexJoin re-derives via expandCandidates must
	// agree with the one NestedLoopJoin got straight from the RHS node
	// search's own iterator, not just the node id.
	assert.Equal(t, annotatedPairs(idxRows), annotatedPairs(nljRows))
	for _, row := range idxRows {
		assert.Equal(t, types.NodeType, row[1].Anno.Key)
		assert.NotEmpty(t, row[1].Anno.Val)
	}
}

func TestArityFilterMatch(t *testing.T) {
	g := buildTreeGraph(t)
	arity, err := NewArity(g, types.Dominance, "default_ns", "edge", 2, 2)
	require.NoError(t, err)

	ok, err := arity.FilterMatch(types.Match{Node: 1}, types.Match{})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = arity.FilterMatch(types.Match{Node: 2}, types.Match{})
	require.NoError(t, err)
	assert.False(t, ok)
}
