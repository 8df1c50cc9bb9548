// Package update implements the update-stream event types and the
// ordered, replayable GraphUpdate log pkg/gscorpus applies to mutate a
// corpus graph. Grounded on the teacher's pkg/storage/wal.go: a typed
// operation tag plus a JSON-serialized payload, append-only and replayed
// in sequence order, generalized from WALEntry's node/edge/bulk operation
// set to the eight corpus-update events original_source/core/src/graph/
// update/mod.rs defines.
package update

import (
	"encoding/json"

	"github.com/korpling/graphannis-core/pkg/coreerrors"
)

// EventKind tags which of the eight update events a GraphUpdate entry
// carries, mirroring WALEntry.Operation's role in pkg/storage/wal.go.
type EventKind string

const (
	KindAddNode         EventKind = "add_node"
	KindDeleteNode      EventKind = "delete_node"
	KindAddNodeLabel    EventKind = "add_node_label"
	KindDeleteNodeLabel EventKind = "delete_node_label"
	KindAddEdge         EventKind = "add_edge"
	KindDeleteEdge      EventKind = "delete_edge"
	KindAddEdgeLabel    EventKind = "add_edge_label"
	KindDeleteEdgeLabel EventKind = "delete_edge_label"
)

// AddNodeEvent creates a node identified by its unique node name (the
// annis::node_name value), assigning it a fresh NodeID at application time.
type AddNodeEvent struct {
	NodeName string `json:"node_name"`
	NodeType string `json:"node_type"`
}

// DeleteNodeEvent removes a node and every edge/annotation incident to it.
type DeleteNodeEvent struct {
	NodeName string `json:"node_name"`
}

// AddNodeLabelEvent inserts or replaces an annotation on a node.
type AddNodeLabelEvent struct {
	NodeName  string `json:"node_name"`
	AnnoNs    string `json:"anno_ns"`
	AnnoName  string `json:"anno_name"`
	AnnoValue string `json:"anno_value"`
}

// DeleteNodeLabelEvent removes one annotation from a node.
type DeleteNodeLabelEvent struct {
	NodeName string `json:"node_name"`
	AnnoNs   string `json:"anno_ns"`
	AnnoName string `json:"anno_name"`
}

// AddEdgeEvent creates an edge in the named component between two nodes,
// addressed by node name rather than NodeID (update events are
// replayable independent of a particular symbol-table assignment).
type AddEdgeEvent struct {
	SourceNode    string `json:"source_node"`
	TargetNode    string `json:"target_node"`
	ComponentType string `json:"component_type"`
	Layer         string `json:"layer"`
	ComponentName string `json:"component_name"`
}

// DeleteEdgeEvent removes an edge from the named component.
type DeleteEdgeEvent struct {
	SourceNode    string `json:"source_node"`
	TargetNode    string `json:"target_node"`
	ComponentType string `json:"component_type"`
	Layer         string `json:"layer"`
	ComponentName string `json:"component_name"`
}

// AddEdgeLabelEvent annotates an existing edge. Applying this against an
// edge that does not exist is rejected by pkg/gscorpus with a
// coreerrors.ErrOther error (SPEC_FULL.md §9 Open Question 1):
// edge annotations independent of the edge's existence are disallowed.
type AddEdgeLabelEvent struct {
	SourceNode    string `json:"source_node"`
	TargetNode    string `json:"target_node"`
	ComponentType string `json:"component_type"`
	Layer         string `json:"layer"`
	ComponentName string `json:"component_name"`
	AnnoNs        string `json:"anno_ns"`
	AnnoName      string `json:"anno_name"`
	AnnoValue     string `json:"anno_value"`
}

// DeleteEdgeLabelEvent removes one annotation from an edge.
type DeleteEdgeLabelEvent struct {
	SourceNode    string `json:"source_node"`
	TargetNode    string `json:"target_node"`
	ComponentType string `json:"component_type"`
	Layer         string `json:"layer"`
	ComponentName string `json:"component_name"`
	AnnoNs        string `json:"anno_ns"`
	AnnoName      string `json:"anno_name"`
}

// Event is one entry of a GraphUpdate: a Kind tag plus exactly one of the
// payload fields below populated, matching which Kind it carries. Only one
// field is ever non-nil; this is not a sum type Go expresses natively, and
// mirrors the flat-struct-plus-discriminant shape WALEntry itself uses
// with its Operation/Data pair.
type Event struct {
	Kind EventKind `json:"kind"`

	AddNode         *AddNodeEvent         `json:"add_node,omitempty"`
	DeleteNode      *DeleteNodeEvent      `json:"delete_node,omitempty"`
	AddNodeLabel    *AddNodeLabelEvent    `json:"add_node_label,omitempty"`
	DeleteNodeLabel *DeleteNodeLabelEvent `json:"delete_node_label,omitempty"`
	AddEdge         *AddEdgeEvent         `json:"add_edge,omitempty"`
	DeleteEdge      *DeleteEdgeEvent      `json:"delete_edge,omitempty"`
	AddEdgeLabel    *AddEdgeLabelEvent    `json:"add_edge_label,omitempty"`
	DeleteEdgeLabel *DeleteEdgeLabelEvent `json:"delete_edge_label,omitempty"`
}

// NewAddNode builds an AddNode event.
func NewAddNode(nodeName, nodeType string) Event {
	return Event{Kind: KindAddNode, AddNode: &AddNodeEvent{NodeName: nodeName, NodeType: nodeType}}
}

// NewDeleteNode builds a DeleteNode event.
func NewDeleteNode(nodeName string) Event {
	return Event{Kind: KindDeleteNode, DeleteNode: &DeleteNodeEvent{NodeName: nodeName}}
}

// NewAddNodeLabel builds an AddNodeLabel event.
func NewAddNodeLabel(nodeName, ns, name, value string) Event {
	return Event{Kind: KindAddNodeLabel, AddNodeLabel: &AddNodeLabelEvent{
		NodeName: nodeName, AnnoNs: ns, AnnoName: name, AnnoValue: value,
	}}
}

// NewDeleteNodeLabel builds a DeleteNodeLabel event.
func NewDeleteNodeLabel(nodeName, ns, name string) Event {
	return Event{Kind: KindDeleteNodeLabel, DeleteNodeLabel: &DeleteNodeLabelEvent{
		NodeName: nodeName, AnnoNs: ns, AnnoName: name,
	}}
}

// NewAddEdge builds an AddEdge event.
func NewAddEdge(sourceNode, targetNode, componentType, layer, componentName string) Event {
	return Event{Kind: KindAddEdge, AddEdge: &AddEdgeEvent{
		SourceNode: sourceNode, TargetNode: targetNode,
		ComponentType: componentType, Layer: layer, ComponentName: componentName,
	}}
}

// NewDeleteEdge builds a DeleteEdge event.
func NewDeleteEdge(sourceNode, targetNode, componentType, layer, componentName string) Event {
	return Event{Kind: KindDeleteEdge, DeleteEdge: &DeleteEdgeEvent{
		SourceNode: sourceNode, TargetNode: targetNode,
		ComponentType: componentType, Layer: layer, ComponentName: componentName,
	}}
}

// NewAddEdgeLabel builds an AddEdgeLabel event.
func NewAddEdgeLabel(sourceNode, targetNode, componentType, layer, componentName, annoNs, annoName, annoValue string) Event {
	return Event{Kind: KindAddEdgeLabel, AddEdgeLabel: &AddEdgeLabelEvent{
		SourceNode: sourceNode, TargetNode: targetNode,
		ComponentType: componentType, Layer: layer, ComponentName: componentName,
		AnnoNs: annoNs, AnnoName: annoName, AnnoValue: annoValue,
	}}
}

// NewDeleteEdgeLabel builds a DeleteEdgeLabel event.
func NewDeleteEdgeLabel(sourceNode, targetNode, componentType, layer, componentName, annoNs, annoName string) Event {
	return Event{Kind: KindDeleteEdgeLabel, DeleteEdgeLabel: &DeleteEdgeLabelEvent{
		SourceNode: sourceNode, TargetNode: targetNode,
		ComponentType: componentType, Layer: layer, ComponentName: componentName,
		AnnoNs: annoNs, AnnoName: annoName,
	}}
}

// GraphUpdate is an ordered, append-only log of events, applied to a
// corpus graph in sequence. Grounded on
// original_source/core/src/graph/update/tests.rs's round-trip contract
// (scenario S6): serializing and reloading the same events in the same
// order must reproduce them exactly.
type GraphUpdate struct {
	events []Event
}

// New returns an empty GraphUpdate.
func New() *GraphUpdate { return &GraphUpdate{} }

// Add appends e to the log.
func (u *GraphUpdate) Add(e Event) { u.events = append(u.events, e) }

// Len returns the number of events in the log.
func (u *GraphUpdate) Len() int { return len(u.events) }

// IsEmpty reports whether the log has no events.
func (u *GraphUpdate) IsEmpty() bool { return len(u.events) == 0 }

// Iter returns the events in insertion order. The returned slice is a copy;
// mutating it does not affect the log.
func (u *GraphUpdate) Iter() []Event {
	return append([]Event(nil), u.events...)
}

// MarshalJSON serializes the log as a JSON array of events, in order.
func (u *GraphUpdate) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(u.events)
	if err != nil {
		return nil, coreerrors.Other(err)
	}
	return data, nil
}

// UnmarshalJSON replaces the log's content with the JSON array's events, in
// the order they appear.
func (u *GraphUpdate) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return coreerrors.Other(err)
	}
	u.events = events
	return nil
}
