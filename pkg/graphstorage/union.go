package graphstorage

import "github.com/korpling/graphannis-core/pkg/types"

// UnionEdgeContainer presents several EdgeContainers (typically every
// graph storage matching a component-type wildcard, e.g. "all Dominance
// components regardless of layer") as a single merged read-only
// EdgeContainer. It implements EdgeContainer only, not GraphStorage: a
// union has no single annotation store or serialization identity of its
// own — callers needing reachability run a CycleSafeDFS directly over the
// union, the same way the shared findConnected helper in adjacencylist.go
// does for the DFS-based storages.
type UnionEdgeContainer struct {
	parts []EdgeContainer
}

// NewUnionEdgeContainer merges parts into a single read-only view.
func NewUnionEdgeContainer(parts ...EdgeContainer) *UnionEdgeContainer {
	return &UnionEdgeContainer{parts: parts}
}

func (u *UnionEdgeContainer) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	var out []types.NodeID
	seen := make(map[types.NodeID]struct{})
	for _, p := range u.parts {
		targets, err := p.OutgoingEdges(node)
		if err != nil {
			return nil, err
		}
		for _, t := range targets {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (u *UnionEdgeContainer) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	var out []types.NodeID
	seen := make(map[types.NodeID]struct{})
	for _, p := range u.parts {
		sources, err := p.IngoingEdges(node)
		if err != nil {
			return nil, err
		}
		for _, s := range sources {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (u *UnionEdgeContainer) HasOutgoingEdges(node types.NodeID) (bool, error) {
	for _, p := range u.parts {
		has, err := p.HasOutgoingEdges(node)
		if err != nil {
			return false, err
		}
		if has {
			return true, nil
		}
	}
	return false, nil
}

func (u *UnionEdgeContainer) SourceNodes() ([]types.NodeID, error) {
	var out []types.NodeID
	seen := make(map[types.NodeID]struct{})
	for _, p := range u.parts {
		sources, err := p.SourceNodes()
		if err != nil {
			return nil, err
		}
		for _, s := range sources {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (u *UnionEdgeContainer) Statistics() *Stats { return nil }

var _ EdgeContainer = (*UnionEdgeContainer)(nil)
