package graphstorage

import (
	"math"
	"sort"
	"sync"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// AdjacencyListStorage is the writable, fully in-memory graph storage: a
// pair of adjacency maps (outgoing/incoming), direct analogue of the
// teacher's MemoryEngine outgoing/incoming index maps in pkg/storage/
// memory.go, generalized from node/edge records to bare node-id adjacency
// plus an edge annotation store.
type AdjacencyListStorage struct {
	mu       sync.RWMutex
	outgoing map[types.NodeID][]types.NodeID
	incoming map[types.NodeID][]types.NodeID
	annos    *annostorage.MemoryStore[types.Edge]
	stats    *Stats
}

// NewAdjacencyListStorage creates an empty writable component storage.
func NewAdjacencyListStorage() *AdjacencyListStorage {
	return &AdjacencyListStorage{
		outgoing: make(map[types.NodeID][]types.NodeID),
		incoming: make(map[types.NodeID][]types.NodeID),
		annos:    annostorage.NewMemoryStore[types.Edge](),
	}
}

func (s *AdjacencyListStorage) SerializationID() string { return "adjacencylist_v1" }

func (s *AdjacencyListStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *AdjacencyListStorage) AddEdge(e types.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !containsNode(s.outgoing[e.Source], e.Target) {
		s.outgoing[e.Source] = append(s.outgoing[e.Source], e.Target)
	}
	if !containsNode(s.incoming[e.Target], e.Source) {
		s.incoming[e.Target] = append(s.incoming[e.Target], e.Source)
	}
	return nil
}

func (s *AdjacencyListStorage) DeleteEdge(e types.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outgoing[e.Source] = removeNode(s.outgoing[e.Source], e.Target)
	s.incoming[e.Target] = removeNode(s.incoming[e.Target], e.Source)
	for _, anno := range s.annos.AnnotationsForItem(e) {
		s.annos.Remove(e, anno.Key)
	}
	return nil
}

func (s *AdjacencyListStorage) DeleteNode(node types.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, target := range s.outgoing[node] {
		s.incoming[target] = removeNode(s.incoming[target], node)
	}
	for _, source := range s.incoming[node] {
		s.outgoing[source] = removeNode(s.outgoing[source], node)
	}
	delete(s.outgoing, node)
	delete(s.incoming, node)
	return nil
}

func containsNode(list []types.NodeID, n types.NodeID) bool {
	for _, x := range list {
		if x == n {
			return true
		}
	}
	return false
}

func removeNode(list []types.NodeID, n types.NodeID) []types.NodeID {
	out := list[:0]
	for _, x := range list {
		if x != n {
			out = append(out, x)
		}
	}
	return out
}

func (s *AdjacencyListStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.NodeID(nil), s.outgoing[node]...), nil
}

func (s *AdjacencyListStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.NodeID(nil), s.incoming[node]...), nil
}

func (s *AdjacencyListStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outgoing[node]) > 0, nil
}

func (s *AdjacencyListStorage) SourceNodes() ([]types.NodeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.NodeID, 0, len(s.outgoing))
	for n, targets := range s.outgoing {
		if len(targets) > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *AdjacencyListStorage) Statistics() *Stats { return s.stats }

func (s *AdjacencyListStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, false)
}

func (s *AdjacencyListStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, true)
}

func (s *AdjacencyListStorage) Distance(source, target types.NodeID) (int, bool, error) {
	return distanceViaDFS(s, source, target)
}

func (s *AdjacencyListStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	return isConnectedViaDFS(s, source, target, minDistance, maxDistance)
}

func (s *AdjacencyListStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	s.mu.Lock()
	s.outgoing = make(map[types.NodeID][]types.NodeID)
	s.incoming = make(map[types.NodeID][]types.NodeID)
	s.annos = annostorage.NewMemoryStore[types.Edge]()
	s.mu.Unlock()
	return copyInto(s, orig)
}

func (s *AdjacencyListStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return nil
}

var _ GraphStorage = (*AdjacencyListStorage)(nil)

// findConnected is the shared FindConnected/FindConnectedInverse
// implementation: run a CycleSafeDFS and collect every node yielded at
// distance >= 1 (distance 0 is always the start node itself and is never
// part of the result, matching the original's exclusion of the trivial
// self-path). The DFS yields a node once per distinct path reaching it, so
// repeats are dropped: each node appears in the result at most once.
func findConnected(c EdgeContainer, node types.NodeID, minDistance int, maxDistance Bound, inverse bool) ([]types.NodeID, error) {
	maxD := maxDistance.resolve()
	var dfs *CycleSafeDFS
	if inverse {
		dfs = NewCycleSafeDFSInverse(c, node, minDistance, maxD)
	} else {
		dfs = NewCycleSafeDFS(c, node, minDistance, maxD)
	}
	var out []types.NodeID
	seen := make(map[types.NodeID]struct{})
	for {
		n, dist, ok := dfs.Next()
		if !ok {
			break
		}
		if dist == 0 {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out, dfs.Err()
}

// distanceViaDFS finds the shortest path length from source to target by
// walking every path a CycleSafeDFS from source yields and keeping the
// smallest distance at which target is reached.
func distanceViaDFS(c EdgeContainer, source, target types.NodeID) (int, bool, error) {
	dfs := NewCycleSafeDFS(c, source, 0, math.MaxInt)
	best := -1
	for {
		n, dist, ok := dfs.Next()
		if !ok {
			break
		}
		if n == target && (best == -1 || dist < best) {
			best = dist
		}
	}
	if err := dfs.Err(); err != nil {
		return 0, false, err
	}
	if best == -1 {
		return 0, false, nil
	}
	return best, true, nil
}

func isConnectedViaDFS(c EdgeContainer, source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	dfs := NewCycleSafeDFS(c, source, minDistance, maxDistance.resolve())
	for {
		n, _, ok := dfs.Next()
		if !ok {
			break
		}
		if n == target {
			return true, dfs.Err()
		}
	}
	return false, dfs.Err()
}

// copyInto replaces dst's edges and annotations with a full copy of orig's,
// shared by every writable storage's Copy method.
func copyInto(dst GraphStorage, orig GraphStorage) error {
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
			e := types.Edge{Source: src, Target: tgt}
			if err := dst.AddEdge(e); err != nil {
				return err
			}
			for _, anno := range orig.AnnoStorage().AnnotationsForItem(e) {
				dst.AnnoStorage().Insert(e, anno)
			}
		}
	}
	return nil
}

// calculateStats walks every source node's outgoing fan-out and runs a
// bounded DFS from every root (source node with no incoming edge) to
// derive max_depth and cyclic/rooted_tree/dfs_visit_ratio, mirroring the
// original GraphStatistic computation's shape without requiring access to
// a concrete representation's internals.
func calculateStats(c EdgeContainer) (*Stats, error) {
	sources, err := c.SourceNodes()
	if err != nil {
		return nil, err
	}

	nodeSet := make(map[types.NodeID]struct{})
	fanOuts := make([]int, 0, len(sources))
	totalFanOut := 0
	maxFanOut := 0
	for _, src := range sources {
		targets, err := c.OutgoingEdges(src)
		if err != nil {
			return nil, err
		}
		n := len(targets)
		fanOuts = append(fanOuts, n)
		totalFanOut += n
		if n > maxFanOut {
			maxFanOut = n
		}
		nodeSet[src] = struct{}{}
		for _, t := range targets {
			nodeSet[t] = struct{}{}
		}
	}

	stats := &Stats{Nodes: len(nodeSet), MaxFanOut: maxFanOut}
	if len(fanOuts) > 0 {
		stats.AvgFanOut = float64(totalFanOut) / float64(len(fanOuts))
		stats.FanOut99Percentile = percentile(fanOuts, 0.99)
	}

	var roots []types.NodeID
	for n := range nodeSet {
		hasIncoming, err := hasAnyIncoming(c, n)
		if err != nil {
			return nil, err
		}
		if !hasIncoming {
			roots = append(roots, n)
		}
	}
	stats.RootedTree = len(roots) > 0

	visitCount := 0
	maxDepth := 0
	cyclic := false
	totalNodesVisited := 0
	for _, root := range roots {
		dfs := NewCycleSafeDFS(c, root, 0, math.MaxInt)
		for {
			_, dist, ok := dfs.Next()
			if !ok {
				break
			}
			visitCount++
			if dist > maxDepth {
				maxDepth = dist
			}
		}
		if err := dfs.Err(); err != nil {
			return nil, err
		}
		if dfs.Cyclic() {
			cyclic = true
		}
		totalNodesVisited++
	}
	stats.Cyclic = cyclic
	if stats.RootedTree && cyclic {
		stats.RootedTree = false
	}
	stats.MaxDepth = maxDepth
	if stats.Nodes > 0 {
		stats.DFSVisitRatio = float64(visitCount) / float64(stats.Nodes)
	}

	return stats, nil
}

func hasAnyIncoming(c EdgeContainer, node types.NodeID) (bool, error) {
	if ec, ok := c.(interface {
		IngoingEdges(types.NodeID) ([]types.NodeID, error)
	}); ok {
		in, err := ec.IngoingEdges(node)
		if err != nil {
			return false, err
		}
		return len(in) > 0, nil
	}
	return false, nil
}

func percentile(values []int, p float64) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
