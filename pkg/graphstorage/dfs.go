package graphstorage

import "github.com/korpling/graphannis-core/pkg/types"

// dfsFrame is a (node, distance) entry on the traversal stack.
type dfsFrame struct {
	node     types.NodeID
	distance int
}

// CycleSafeDFS walks an EdgeContainer depth-first from a start node,
// yielding every node at a distance in [minDistance, maxDistance]. It
// tolerates cycles: a node already on the current path is reported via
// Cyclic() instead of being walked into again.
//
// Line-for-line grounded on core/src/dfs.rs's CycleSafeDFS: the stack of
// (node, distance) pairs, the path vector plus its on-path set, and the
// last_distance-driven truncation of the path back to the common ancestor
// on backtrack.
type CycleSafeDFS struct {
	minDistance, maxDistance int
	inverse                  bool
	container                EdgeContainer

	stack        []dfsFrame
	path         []types.NodeID
	nodesInPath  map[types.NodeID]struct{}
	lastDistance int
	cyclic       bool

	err error
}

// NewCycleSafeDFS walks outgoing edges starting at node.
func NewCycleSafeDFS(container EdgeContainer, node types.NodeID, minDistance, maxDistance int) *CycleSafeDFS {
	return &CycleSafeDFS{
		minDistance: minDistance,
		maxDistance: maxDistance,
		container:   container,
		stack:       []dfsFrame{{node: node, distance: 0}},
		nodesInPath: make(map[types.NodeID]struct{}),
	}
}

// NewCycleSafeDFSInverse walks incoming edges starting at node.
func NewCycleSafeDFSInverse(container EdgeContainer, node types.NodeID, minDistance, maxDistance int) *CycleSafeDFS {
	d := NewCycleSafeDFS(container, node, minDistance, maxDistance)
	d.inverse = true
	// The original marks an inverse traversal as cyclic from the start;
	// it is only ever used to answer "not a rooted tree" conservatively
	// when traversing against edge direction.
	d.cyclic = true
	return d
}

// Cyclic reports whether a cycle has been observed so far.
func (d *CycleSafeDFS) Cyclic() bool { return d.cyclic }

// Err returns the first error raised while expanding a node's neighbors, if
// any; once set, Next always returns false.
func (d *CycleSafeDFS) Err() error { return d.err }

func (d *CycleSafeDFS) enterNode(frame dfsFrame) (bool, error) {
	node, dist := frame.node, frame.distance

	if d.lastDistance >= dist {
		for i := dist; i < len(d.path); i++ {
			delete(d.nodesInPath, d.path[i])
		}
		d.path = d.path[:dist]
	}

	if _, onPath := d.nodesInPath[node]; onPath {
		d.lastDistance = dist
		d.cyclic = true
		d.stack = d.stack[:len(d.stack)-1]
		return false, nil
	}

	d.path = append(d.path, node)
	d.nodesInPath[node] = struct{}{}
	d.lastDistance = dist
	d.stack = d.stack[:len(d.stack)-1]

	found := dist >= d.minDistance && dist <= d.maxDistance

	if dist < d.maxDistance {
		var neighbors []types.NodeID
		var err error
		if d.inverse {
			neighbors, err = d.container.IngoingEdges(node)
		} else {
			neighbors, err = d.container.OutgoingEdges(node)
		}
		if err != nil {
			return false, err
		}
		for _, n := range neighbors {
			d.stack = append(d.stack, dfsFrame{node: n, distance: dist + 1})
		}
	}

	return found, nil
}

// Next advances the traversal, returning the next (node, distance) pair in
// range. ok is false once the traversal is exhausted or Err() is non-nil.
func (d *CycleSafeDFS) Next() (node types.NodeID, distance int, ok bool) {
	if d.err != nil {
		return 0, 0, false
	}
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		entered, err := d.enterNode(top)
		if err != nil {
			d.err = err
			return 0, 0, false
		}
		if entered {
			return top.node, top.distance, true
		}
	}
	return 0, 0, false
}
