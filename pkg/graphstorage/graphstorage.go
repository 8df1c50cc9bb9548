// Package graphstorage implements the graph-storage subsystem: the
// EdgeContainer/GraphStorage contracts used to answer reachability queries
// inside one component, the shared cycle-safe DFS traversal every
// implementation reachability query is built from, and the concrete
// representations chosen per component by pkg/registry's heuristic.
//
// Grounded on the teacher's pkg/storage engine abstractions (Node/Edge/
// Engine in pkg/storage/types.go, and the concrete MemoryEngine/
// BadgerEngine pair), generalized from "a property graph engine" to "one
// edge-labeled component of a larger graph, reused across seven storage
// representations".
package graphstorage

import (
	"math"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// Stats summarizes the shape of a component, computed by Calculate and
// consulted by pkg/registry's implementation-choice heuristic.
type Stats struct {
	Cyclic                    bool
	RootedTree                bool
	Nodes                     int
	AvgFanOut                 float64
	FanOut99Percentile        int
	InverseFanOut99Percentile int
	MaxFanOut                 int
	MaxDepth                  int
	DFSVisitRatio             float64
}

// EdgeContainer is the read-only edge-adjacency contract every graph
// storage representation implements; it is also satisfied by plain,
// non-reachability-aware overlays like UnionEdgeContainer.
type EdgeContainer interface {
	// OutgoingEdges returns the target nodes of node's outgoing edges.
	OutgoingEdges(node types.NodeID) ([]types.NodeID, error)
	// IngoingEdges returns the source nodes of node's incoming edges.
	IngoingEdges(node types.NodeID) ([]types.NodeID, error)
	// HasOutgoingEdges reports whether node has any outgoing edge.
	HasOutgoingEdges(node types.NodeID) (bool, error)
	// SourceNodes iterates every node that is the source of at least one
	// edge in this container.
	SourceNodes() ([]types.NodeID, error)
	// Statistics returns the last Calculate snapshot, or nil if never
	// computed.
	Statistics() *Stats
}

// GraphStorage adds reachability queries, a per-edge annotation store, and
// persistence to a plain EdgeContainer. One GraphStorage instance backs
// exactly one types.Component.
type GraphStorage interface {
	EdgeContainer

	// FindConnected enumerates nodes reachable from node at a distance in
	// [minDistance, maxDistance] (maxDistance may be Unbounded).
	FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error)
	// FindConnectedInverse is FindConnected over the reversed edges.
	FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error)
	// Distance returns the shortest-path length between source and
	// target, or ok=false if they are not connected.
	Distance(source, target types.NodeID) (dist int, ok bool, err error)
	// IsConnected reports whether source reaches target via a path whose
	// length lies in [minDistance, maxDistance].
	IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error)

	// AnnoStorage is the annotation store for this component's edges.
	AnnoStorage() annostorage.Store[types.Edge]

	// Copy replaces this storage's content with a copy of orig's. None of
	// the implementations in this package reads nodeAnnos; LoadFrom and
	// registry.CreateWritable pass nil.
	Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error

	// Calculate recomputes the Stats snapshot Statistics returns. Like the
	// annotation store's CalculateStatistics, this is never invoked
	// implicitly by a mutation.
	Calculate() error

	// SerializationID names the on-disk representation, used as the
	// registry tag written alongside a persisted component.
	SerializationID() string

	// AddEdge/DeleteEdge mutate a writable storage. Read-only
	// representations (DenseAdjacencyListStorage, LinearGraphStorage,
	// PrePostOrderStorage, DiskPathStorage) return
	// coreerrors.ErrReadOnlyComponent.
	AddEdge(e types.Edge) error
	DeleteEdge(e types.Edge) error
	DeleteNode(node types.NodeID) error
}

// Bound models Rust's std::ops::Bound<usize> for max-distance: either a
// concrete inclusive bound, or Unbounded (distance is not limited from
// above — CycleSafeDFS still needs a finite max_distance, so Unbounded is
// translated to math.MaxInt at the call site).
type Bound struct {
	unbounded bool
	value     int
}

// Included returns an inclusive upper bound of n.
func Included(n int) Bound { return Bound{value: n} }

// Excluded returns an upper bound of n, not itself included (n-1
// inclusive); distances are always non-negative integers, so this is
// exact rather than approximate.
func Excluded(n int) Bound { return Bound{value: n - 1} }

// Unbounded returns an unbounded upper bound.
func Unbounded() Bound { return Bound{unbounded: true} }

func (b Bound) resolve() int {
	if b.unbounded {
		return math.MaxInt
	}
	return b.value
}
