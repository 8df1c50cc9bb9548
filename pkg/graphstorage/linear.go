package graphstorage

import (
	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// LinearGraphStorage is the read-only representation for components that
// form simple (non-branching, acyclic) chains — the common shape of an
// Ordering component over tokens. Each node stores only its single
// successor and its distance from the chain's root, so FindConnected,
// Distance, and IsConnected all run in O(distance) without a DFS.
//
// The original implementation monomorphizes this over four integer widths
// (u8/u16/u32/u64) chosen by the registry to bound memory use by the
// longest chain observed. This port keeps one width (uint64), and the
// registry has a single Linear id for every chain length — see
// SPEC_FULL.md §4.3 item 4.
type LinearGraphStorage struct {
	next       map[types.NodeID]types.NodeID
	prev       map[types.NodeID][]types.NodeID
	distToRoot map[types.NodeID]uint64
	annos      *annostorage.MemoryStore[types.Edge]
	stats      *Stats
}

// NewLinearGraphStorage creates an empty read-only chain storage.
func NewLinearGraphStorage() *LinearGraphStorage {
	return &LinearGraphStorage{
		next:       make(map[types.NodeID]types.NodeID),
		prev:       make(map[types.NodeID][]types.NodeID),
		distToRoot: make(map[types.NodeID]uint64),
		annos:      annostorage.NewMemoryStore[types.Edge](),
	}
}

func (s *LinearGraphStorage) SerializationID() string { return "linear_v1" }

func (s *LinearGraphStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *LinearGraphStorage) AddEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *LinearGraphStorage) DeleteEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *LinearGraphStorage) DeleteNode(node types.NodeID) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *LinearGraphStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	if t, ok := s.next[node]; ok {
		return []types.NodeID{t}, nil
	}
	return nil, nil
}

func (s *LinearGraphStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return append([]types.NodeID(nil), s.prev[node]...), nil
}

func (s *LinearGraphStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	_, ok := s.next[node]
	return ok, nil
}

func (s *LinearGraphStorage) SourceNodes() ([]types.NodeID, error) {
	out := make([]types.NodeID, 0, len(s.next))
	for n := range s.next {
		out = append(out, n)
	}
	return out, nil
}

func (s *LinearGraphStorage) Statistics() *Stats { return s.stats }

// FindConnected walks the chain directly instead of running a DFS: it
// follows next from node, counting hops, and returns every node whose hop
// count falls in [minDistance, maxDistance].
func (s *LinearGraphStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	maxD := maxDistance.resolve()
	var out []types.NodeID
	cur := node
	dist := 0
	for dist < maxD {
		next, ok := s.next[cur]
		if !ok {
			break
		}
		dist++
		if dist >= minDistance {
			out = append(out, next)
		}
		cur = next
	}
	return out, nil
}

func (s *LinearGraphStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, true)
}

func (s *LinearGraphStorage) Distance(source, target types.NodeID) (int, bool, error) {
	cur := source
	dist := 0
	for {
		if cur == target {
			return dist, true, nil
		}
		next, ok := s.next[cur]
		if !ok {
			return 0, false, nil
		}
		cur = next
		dist++
	}
}

func (s *LinearGraphStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	dist, ok, err := s.Distance(source, target)
	if err != nil || !ok {
		return false, err
	}
	return dist >= minDistance && dist <= maxDistance.resolve(), nil
}

// Copy rebuilds the chain from orig. orig must describe a set of simple
// chains (each node with at most one outgoing and one incoming edge); the
// registry only selects Linear for components whose Stats already
// guarantee this (RootedTree && MaxFanOut <= 1).
func (s *LinearGraphStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	s.next = make(map[types.NodeID]types.NodeID)
	s.prev = make(map[types.NodeID][]types.NodeID)
	s.distToRoot = make(map[types.NodeID]uint64)
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
			s.next[src] = tgt
			s.prev[tgt] = append(s.prev[tgt], src)
			e := types.Edge{Source: src, Target: tgt}
			for _, anno := range orig.AnnoStorage().AnnotationsForItem(e) {
				s.annos.Insert(e, anno)
			}
			break
		}
	}
	s.recomputeDistances()
	return nil
}

func (s *LinearGraphStorage) recomputeDistances() {
	roots := make([]types.NodeID, 0)
	for n := range s.next {
		if _, hasIncoming := s.prev[n]; !hasIncoming {
			roots = append(roots, n)
		}
	}
	for _, root := range roots {
		cur := root
		var dist uint64
		for {
			s.distToRoot[cur] = dist
			next, ok := s.next[cur]
			if !ok {
				break
			}
			cur = next
			dist++
		}
	}
}

func (s *LinearGraphStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

var _ GraphStorage = (*LinearGraphStorage)(nil)
