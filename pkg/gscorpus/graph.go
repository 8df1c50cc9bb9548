// Package gscorpus assembles the node annotation store, the symbol table
// that maps node names to ids, and one GraphStorage per component into a
// single corpus graph, and applies an ordered pkg/update.GraphUpdate
// against it. Grounded on the teacher's pkg/storage/memory.go (the
// top-level engine struct holding an annotation index plus adjacency
// maps), generalized from one flat property-graph engine to graphANNIS's
// per-component storage layout.
package gscorpus

import (
	"fmt"
	"sync"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/symtab"
	"github.com/korpling/graphannis-core/pkg/types"
	"github.com/korpling/graphannis-core/pkg/update"
)

// Graph is one corpus: a node annotation store, a node_name<->NodeID
// symbol table, and one GraphStorage per component. It implements
// pkg/query.GraphAccessor.
type Graph struct {
	mu sync.RWMutex

	names *symtab.Table[string]
	annos annostorage.Store[types.NodeID]

	components map[types.Component]graphstorage.GraphStorage
}

// New creates an empty corpus graph backed by in-memory node annotations.
func New() *Graph {
	return &Graph{
		names:      symtab.New[string](),
		annos:      annostorage.NewMemoryStore[types.NodeID](),
		components: make(map[types.Component]graphstorage.GraphStorage),
	}
}

// NodeAnnos returns the node annotation store, satisfying
// pkg/query.GraphAccessor.
func (g *Graph) NodeAnnos() annostorage.Store[types.NodeID] {
	return g.annos
}

// GraphStorage returns the storage backing component c, if the component
// exists, satisfying pkg/query.GraphAccessor.
func (g *Graph) GraphStorage(c types.Component) (graphstorage.GraphStorage, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	gs, ok := g.components[c]
	return gs, ok
}

// ComponentsByType returns every component of type ct, satisfying
// pkg/query.GraphAccessor.
func (g *Graph) ComponentsByType(ct types.ComponentType) []types.Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []types.Component
	for c := range g.components {
		if c.Type == ct {
			out = append(out, c)
		}
	}
	return out
}

// nodeIDFor resolves a node name to its NodeID. Caller must hold g.mu.
func (g *Graph) nodeIDFor(name string) (types.NodeID, bool) {
	id, ok := g.names.GetID(name)
	if !ok {
		return 0, false
	}
	return types.NodeID(id), true
}

// componentFor resolves (ctype, layer, name) against the closed component
// type set, creating the component's writable storage lazily on first use.
// Caller must hold g.mu (write lock).
func (g *Graph) componentFor(rawType, layer, name string) (graphstorage.GraphStorage, types.Component, error) {
	ctype, ok := types.ParseComponentType(rawType)
	if !ok {
		return nil, types.Component{}, coreerrors.InvalidComponentType(rawType)
	}
	c := types.Component{Type: ctype, Layer: layer, Name: name}
	gs, ok := g.components[c]
	if !ok {
		gs = graphstorage.NewAdjacencyListStorage()
		g.components[c] = gs
	}
	return gs, c, nil
}

// runLocked runs fn while holding g's write lock, converting any panic into
// coreerrors.ErrLockPoisoning instead of propagating it and leaving the
// lock's internal state undefined to later callers (SPEC_FULL.md §5 -- Go
// has no native mutex-poisoning, so this recovers explicitly).
func (g *Graph) runLocked(fn func() error) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = coreerrors.LockPoisoning(fmt.Sprint(r))
		}
	}()
	return fn()
}

// ApplyUpdate replays every event in u against the graph, in order. If any
// event fails the whole call returns that error; events already applied
// before the failure are not rolled back, matching an append-only update
// log's all-effects-so-far semantics.
func (g *Graph) ApplyUpdate(u *update.GraphUpdate) error {
	return g.runLocked(func() error {
		for _, ev := range u.Iter() {
			if err := g.applyOne(ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyOne applies a single event. Caller must hold g.mu.
func (g *Graph) applyOne(ev update.Event) error {
	switch ev.Kind {
	case update.KindAddNode:
		return g.addNode(ev.AddNode)
	case update.KindDeleteNode:
		return g.deleteNode(ev.DeleteNode)
	case update.KindAddNodeLabel:
		return g.addNodeLabel(ev.AddNodeLabel)
	case update.KindDeleteNodeLabel:
		return g.deleteNodeLabel(ev.DeleteNodeLabel)
	case update.KindAddEdge:
		return g.addEdge(ev.AddEdge)
	case update.KindDeleteEdge:
		return g.deleteEdge(ev.DeleteEdge)
	case update.KindAddEdgeLabel:
		return g.addEdgeLabel(ev.AddEdgeLabel)
	case update.KindDeleteEdgeLabel:
		return g.deleteEdgeLabel(ev.DeleteEdgeLabel)
	default:
		return coreerrors.Other(fmt.Errorf("unknown update event kind %q", ev.Kind))
	}
}

func (g *Graph) addNode(e *update.AddNodeEvent) error {
	id, err := g.names.Intern(e.NodeName)
	if err != nil {
		return err
	}
	nodeID := types.NodeID(id)
	g.annos.Insert(nodeID, types.Annotation{Key: types.NodeName, Val: e.NodeName})
	g.annos.Insert(nodeID, types.Annotation{Key: types.NodeType, Val: e.NodeType})
	return nil
}

func (g *Graph) deleteNode(e *update.DeleteNodeEvent) error {
	nodeID, ok := g.nodeIDFor(e.NodeName)
	if !ok {
		return nil
	}
	for _, a := range g.annos.AnnotationsForItem(nodeID) {
		g.annos.Remove(nodeID, a.Key)
	}
	for c, gs := range g.components {
		if err := gs.DeleteNode(nodeID); err != nil {
			return fmt.Errorf("cascading delete into component %s: %w", c, err)
		}
	}
	id, _ := g.names.GetID(e.NodeName)
	g.names.Remove(id)
	return nil
}

func (g *Graph) addNodeLabel(e *update.AddNodeLabelEvent) error {
	nodeID, ok := g.nodeIDFor(e.NodeName)
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_node_label: unknown node %q", e.NodeName))
	}
	g.annos.Insert(nodeID, types.Annotation{Key: types.AnnoKey{Ns: e.AnnoNs, Name: e.AnnoName}, Val: e.AnnoValue})
	return nil
}

func (g *Graph) deleteNodeLabel(e *update.DeleteNodeLabelEvent) error {
	nodeID, ok := g.nodeIDFor(e.NodeName)
	if !ok {
		return nil
	}
	g.annos.Remove(nodeID, types.AnnoKey{Ns: e.AnnoNs, Name: e.AnnoName})
	return nil
}

func (g *Graph) addEdge(e *update.AddEdgeEvent) error {
	source, ok := g.nodeIDFor(e.SourceNode)
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_edge: unknown source node %q", e.SourceNode))
	}
	target, ok := g.nodeIDFor(e.TargetNode)
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_edge: unknown target node %q", e.TargetNode))
	}
	gs, _, err := g.componentFor(e.ComponentType, e.Layer, e.ComponentName)
	if err != nil {
		return err
	}
	return gs.AddEdge(types.Edge{Source: source, Target: target})
}

func (g *Graph) deleteEdge(e *update.DeleteEdgeEvent) error {
	source, ok := g.nodeIDFor(e.SourceNode)
	if !ok {
		return nil
	}
	target, ok := g.nodeIDFor(e.TargetNode)
	if !ok {
		return nil
	}
	ctype, ok := types.ParseComponentType(e.ComponentType)
	if !ok {
		return coreerrors.InvalidComponentType(e.ComponentType)
	}
	c := types.Component{Type: ctype, Layer: e.Layer, Name: e.ComponentName}
	gs, ok := g.components[c]
	if !ok {
		return nil
	}
	return gs.DeleteEdge(types.Edge{Source: source, Target: target})
}

// addEdgeLabel annotates an existing edge. Applying this against an edge
// that was never added is rejected: edge annotations independent of the
// edge's existence are disallowed (SPEC_FULL.md §9 Open Question 1).
func (g *Graph) addEdgeLabel(e *update.AddEdgeLabelEvent) error {
	source, ok := g.nodeIDFor(e.SourceNode)
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_edge_label: unknown source node %q", e.SourceNode))
	}
	target, ok := g.nodeIDFor(e.TargetNode)
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_edge_label: unknown target node %q", e.TargetNode))
	}
	ctype, ok := types.ParseComponentType(e.ComponentType)
	if !ok {
		return coreerrors.InvalidComponentType(e.ComponentType)
	}
	c := types.Component{Type: ctype, Layer: e.Layer, Name: e.ComponentName}
	gs, ok := g.components[c]
	if !ok {
		return coreerrors.Other(fmt.Errorf("add_edge_label: component %s has no edges", c))
	}
	edge := types.Edge{Source: source, Target: target}
	outgoing, err := gs.OutgoingEdges(source)
	if err != nil {
		return err
	}
	if !containsTarget(outgoing, target) {
		return coreerrors.Other(fmt.Errorf("add_edge_label: edge %s does not exist in component %s", edge, c))
	}
	gs.AnnoStorage().Insert(edge, types.Annotation{Key: types.AnnoKey{Ns: e.AnnoNs, Name: e.AnnoName}, Val: e.AnnoValue})
	return nil
}

func containsTarget(targets []types.NodeID, want types.NodeID) bool {
	for _, t := range targets {
		if t == want {
			return true
		}
	}
	return false
}

func (g *Graph) deleteEdgeLabel(e *update.DeleteEdgeLabelEvent) error {
	source, ok := g.nodeIDFor(e.SourceNode)
	if !ok {
		return nil
	}
	target, ok := g.nodeIDFor(e.TargetNode)
	if !ok {
		return nil
	}
	ctype, ok := types.ParseComponentType(e.ComponentType)
	if !ok {
		return coreerrors.InvalidComponentType(e.ComponentType)
	}
	c := types.Component{Type: ctype, Layer: e.Layer, Name: e.ComponentName}
	gs, ok := g.components[c]
	if !ok {
		return nil
	}
	gs.AnnoStorage().Remove(types.Edge{Source: source, Target: target}, types.AnnoKey{Ns: e.AnnoNs, Name: e.AnnoName})
	return nil
}
