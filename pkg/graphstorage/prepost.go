package graphstorage

import (
	"sort"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// prepostEntry is one pre/post order pair for a node. A node appearing
// under more than one root (or reachable along more than one path in an
// "almost tree" component) gets one entry per occurrence, per the
// multi-entry-per-node decision recorded in SPEC_FULL.md.
type prepostEntry struct {
	pre, post int
	level     int
}

// PrePostOrderStorage is the read-only representation chosen for rooted-
// tree-like (or "almost tree", low dfs_visit_ratio) components. Instead of
// adjacency lists, each node is assigned one or more (pre-order, post-order,
// level) triples from a DFS traversal rooted at each root node; reachability
// reduces to nested-interval containment (source is an ancestor of target
// iff pre[source] <= pre[target] && post[target] <= post[source]).
//
// The original monomorphizes this over node-id and order-value integer
// widths chosen by the registry; this port keeps a single Go int width
// throughout, the same simplification already made for LinearGraphStorage.
type PrePostOrderStorage struct {
	order    map[types.NodeID][]prepostEntry
	outgoing map[types.NodeID][]types.NodeID
	incoming map[types.NodeID][]types.NodeID
	annos    *annostorage.MemoryStore[types.Edge]
	stats    *Stats
}

// NewPrePostOrderStorage creates an empty read-only storage.
func NewPrePostOrderStorage() *PrePostOrderStorage {
	return &PrePostOrderStorage{
		order:    make(map[types.NodeID][]prepostEntry),
		outgoing: make(map[types.NodeID][]types.NodeID),
		incoming: make(map[types.NodeID][]types.NodeID),
		annos:    annostorage.NewMemoryStore[types.Edge](),
	}
}

func (s *PrePostOrderStorage) SerializationID() string { return "prepostorder_v1" }

func (s *PrePostOrderStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *PrePostOrderStorage) AddEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *PrePostOrderStorage) DeleteEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *PrePostOrderStorage) DeleteNode(node types.NodeID) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *PrePostOrderStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return append([]types.NodeID(nil), s.outgoing[node]...), nil
}

func (s *PrePostOrderStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return append([]types.NodeID(nil), s.incoming[node]...), nil
}

func (s *PrePostOrderStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	return len(s.outgoing[node]) > 0, nil
}

func (s *PrePostOrderStorage) SourceNodes() ([]types.NodeID, error) {
	out := make([]types.NodeID, 0, len(s.outgoing))
	for n, targets := range s.outgoing {
		if len(targets) > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *PrePostOrderStorage) Statistics() *Stats { return s.stats }

// ancestorDistance reports whether any (pre,post) entry of ancestor contains any
// entry of descendant, and if so the smallest containing level difference
// (used as the path distance for min/max-distance filtering).
func (s *PrePostOrderStorage) ancestorDistance(ancestor, descendant types.NodeID) (int, bool) {
	best := -1
	for _, a := range s.order[ancestor] {
		for _, d := range s.order[descendant] {
			if a.pre <= d.pre && d.post <= a.post {
				dist := d.level - a.level
				if best == -1 || dist < best {
					best = dist
				}
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return best, true
}

func (s *PrePostOrderStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	maxD := maxDistance.resolve()
	var out []types.NodeID
	for candidate := range s.order {
		if candidate == node {
			continue
		}
		if dist, ok := s.ancestorDistance(node, candidate); ok && dist >= minDistance && dist <= maxD {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func (s *PrePostOrderStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	maxD := maxDistance.resolve()
	var out []types.NodeID
	for candidate := range s.order {
		if candidate == node {
			continue
		}
		if dist, ok := s.ancestorDistance(candidate, node); ok && dist >= minDistance && dist <= maxD {
			out = append(out, candidate)
		}
	}
	return out, nil
}

func (s *PrePostOrderStorage) Distance(source, target types.NodeID) (int, bool, error) {
	dist, ok := s.ancestorDistance(source, target)
	return dist, ok, nil
}

func (s *PrePostOrderStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	dist, ok := s.ancestorDistance(source, target)
	if !ok {
		return false, nil
	}
	return dist >= minDistance && dist <= maxDistance.resolve(), nil
}

// Copy rebuilds the pre/post order labeling from orig by running a DFS
// from each root node (a node with no incoming edge); nodes reachable from
// more than one root, or via more than one path in an "almost tree",
// accumulate one prepostEntry per DFS visit.
func (s *PrePostOrderStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	s.order = make(map[types.NodeID][]prepostEntry)
	s.outgoing = make(map[types.NodeID][]types.NodeID)
	s.incoming = make(map[types.NodeID][]types.NodeID)
	s.annos = annostorage.NewMemoryStore[types.Edge]()

	sources, err := orig.SourceNodes()
	if err != nil {
		return err
	}
	nodeSet := make(map[types.NodeID]struct{})
	for _, src := range sources {
		targets, err := orig.OutgoingEdges(src)
		if err != nil {
			return err
		}
		nodeSet[src] = struct{}{}
		for _, tgt := range targets {
			s.outgoing[src] = append(s.outgoing[src], tgt)
			s.incoming[tgt] = append(s.incoming[tgt], src)
			nodeSet[tgt] = struct{}{}
			e := types.Edge{Source: src, Target: tgt}
			for _, anno := range orig.AnnoStorage().AnnotationsForItem(e) {
				s.annos.Insert(e, anno)
			}
		}
	}

	var roots []types.NodeID
	for n := range nodeSet {
		if len(s.incoming[n]) == 0 {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	counter := 0
	for _, root := range roots {
		s.assignOrder(root, 0, &counter)
	}
	return nil
}

func (s *PrePostOrderStorage) assignOrder(node types.NodeID, level int, counter *int) {
	pre := *counter
	*counter++
	for _, child := range s.outgoing[node] {
		s.assignOrder(child, level+1, counter)
	}
	post := *counter
	*counter++
	s.order[node] = append(s.order[node], prepostEntry{pre: pre, post: post, level: level})
}

func (s *PrePostOrderStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

var _ GraphStorage = (*PrePostOrderStorage)(nil)
