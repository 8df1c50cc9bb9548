package graphstorage

import (
	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// DenseAdjacencyListStorage is the read-only, slice-indexed representation
// chosen by the registry when a component's nodes are densely packed and
// every node has at most one outgoing edge (see pkg/registry's
// getAdjacencyListImpl threshold). Indexing by node id directly into a
// slice avoids the map overhead AdjacencyListStorage pays per lookup.
//
// Grounded on the same teacher indexing idiom as AdjacencyListStorage, but
// using a slice keyed by node id instead of a map — the dense case the
// teacher's own index structures assume when sizing pre-allocated slices.
type DenseAdjacencyListStorage struct {
	outgoing []types.NodeID // outgoing[i] is the target of node i's single outgoing edge, or noTarget
	incoming map[types.NodeID][]types.NodeID
	annos    *annostorage.MemoryStore[types.Edge]
	stats    *Stats
}

const noTarget = ^types.NodeID(0)

// NewDenseAdjacencyListStorage creates an empty read-only storage. Use Copy
// to populate it; size is the length of the slice the new storage starts
// with. Copy discards that slice and grows a fresh one up to the largest
// source node id of the copied component.
func NewDenseAdjacencyListStorage(size int) *DenseAdjacencyListStorage {
	out := make([]types.NodeID, size)
	for i := range out {
		out[i] = noTarget
	}
	return &DenseAdjacencyListStorage{
		outgoing: out,
		incoming: make(map[types.NodeID][]types.NodeID),
		annos:    annostorage.NewMemoryStore[types.Edge](),
	}
}

func (s *DenseAdjacencyListStorage) SerializationID() string { return "dense_adjacencylist_v1" }

func (s *DenseAdjacencyListStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *DenseAdjacencyListStorage) ensureCapacity(n types.NodeID) {
	if int(n) >= len(s.outgoing) {
		grown := make([]types.NodeID, int(n)+1)
		copy(grown, s.outgoing)
		for i := len(s.outgoing); i < len(grown); i++ {
			grown[i] = noTarget
		}
		s.outgoing = grown
	}
}

func (s *DenseAdjacencyListStorage) AddEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DenseAdjacencyListStorage) DeleteEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DenseAdjacencyListStorage) DeleteNode(node types.NodeID) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DenseAdjacencyListStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	if int(node) >= len(s.outgoing) || s.outgoing[node] == noTarget {
		return nil, nil
	}
	return []types.NodeID{s.outgoing[node]}, nil
}

func (s *DenseAdjacencyListStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return append([]types.NodeID(nil), s.incoming[node]...), nil
}

func (s *DenseAdjacencyListStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	return int(node) < len(s.outgoing) && s.outgoing[node] != noTarget, nil
}

func (s *DenseAdjacencyListStorage) SourceNodes() ([]types.NodeID, error) {
	var out []types.NodeID
	for i, t := range s.outgoing {
		if t != noTarget {
			out = append(out, types.NodeID(i))
		}
	}
	return out, nil
}

func (s *DenseAdjacencyListStorage) Statistics() *Stats { return s.stats }

func (s *DenseAdjacencyListStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, false)
}

func (s *DenseAdjacencyListStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, true)
}

func (s *DenseAdjacencyListStorage) Distance(source, target types.NodeID) (int, bool, error) {
	return distanceViaDFS(s, source, target)
}

func (s *DenseAdjacencyListStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	return isConnectedViaDFS(s, source, target, minDistance, maxDistance)
}

// Copy repopulates this storage from orig. Each source node must have at
// most one outgoing edge; for a source with several, only the first target
// orig reports is kept and the others are dropped; dense storage is only ever selected by the
// registry for components already known (via Stats.MaxFanOut <= 1) to
// satisfy this.
func (s *DenseAdjacencyListStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	s.outgoing = nil
	s.incoming = make(map[types.NodeID][]types.NodeID)
	s.annos = annostorage.NewMemoryStore[types.Edge]()

	sources, err := orig.SourceNodes()
	if err != nil {
		return err
	}
	for _, src := range sources {
		targets, err := orig.OutgoingEdges(src)
		if err != nil {
			return err
		}
		for _, tgt := range targets {
			s.ensureCapacity(src)
			s.outgoing[src] = tgt
			s.incoming[tgt] = append(s.incoming[tgt], src)
			e := types.Edge{Source: src, Target: tgt}
			for _, anno := range orig.AnnoStorage().AnnotationsForItem(e) {
				s.annos.Insert(e, anno)
			}
			break // dense storage keeps only the single outgoing edge
		}
	}
	return nil
}

func (s *DenseAdjacencyListStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

var _ GraphStorage = (*DenseAdjacencyListStorage)(nil)
