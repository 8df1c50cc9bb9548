package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/korpling/graphannis-core/pkg/graphstorage"
)

func TestOptimalImplShallowPrefersAdjacencyList(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 1}
	assert.Equal(t, IDAdjacencyList, OptimalImplFor(stats, false, false, 0))
}

func TestOptimalImplDenseWhenPacked(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 1, MaxFanOut: 1, Nodes: 80}
	assert.Equal(t, IDDenseAdjacencyList, OptimalImplFor(stats, false, true, 100))
}

func TestOptimalImplDiskPathForShortDiskChains(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 5, MaxFanOut: 1, Cyclic: false}
	assert.Equal(t, IDDiskPath, OptimalImplFor(stats, true, false, 0))
}

func TestOptimalImplLinearForRootedTreeChain(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 10, RootedTree: true, MaxFanOut: 1}
	assert.Equal(t, IDLinear, OptimalImplFor(stats, false, false, 0))
}

func TestOptimalImplPrePostOrderForBranchingTree(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 10, RootedTree: true, MaxFanOut: 3}
	assert.Equal(t, IDPrePostOrder, OptimalImplFor(stats, false, false, 0))
}

func TestOptimalImplPrePostOrderForAlmostTree(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 10, RootedTree: false, Cyclic: false, DFSVisitRatio: 1.01}
	assert.Equal(t, IDPrePostOrder, OptimalImplFor(stats, false, false, 0))
}

func TestOptimalImplFallsBackToAdjacencyListForCyclic(t *testing.T) {
	stats := graphstorage.Stats{MaxDepth: 10, Cyclic: true}
	assert.Equal(t, IDAdjacencyList, OptimalImplFor(stats, false, false, 0))
}

func TestNewInstanceUnknownID(t *testing.T) {
	_, err := NewInstance("not-a-real-id", nil)
	assert.Error(t, err)
}
