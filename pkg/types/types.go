// Package types holds the primitive identifiers and value types shared by
// every other package in this module: node and edge identifiers, annotation
// keys, components, and the Match/NodeSearchDesc pair the query layer
// passes around. None of these types carry behavior beyond small, pure
// helpers — they are the vocabulary the rest of the module is written in.
package types

import "fmt"

// NodeID is a densely allocated 64-bit node identifier.
type NodeID uint64

// AnnoKey identifies an annotation by namespace and name. Two keys are equal
// iff both fields match; ordering is fixed as name first, then namespace, so
// that callers get one consistent total order everywhere a sorted
// []AnnoKey is needed.
type AnnoKey struct {
	Ns   string
	Name string
}

// Less implements the fixed total order: name first, then namespace.
func (k AnnoKey) Less(other AnnoKey) bool {
	if k.Name != other.Name {
		return k.Name < other.Name
	}
	return k.Ns < other.Ns
}

func (k AnnoKey) String() string {
	if k.Ns == "" {
		return k.Name
	}
	return fmt.Sprintf("%s::%s", k.Ns, k.Name)
}

// Reserved annotation keys, present on every node (node_name, node_type) or
// on token nodes only (tok).
var (
	NodeName = AnnoKey{Ns: "annis", Name: "node_name"}
	NodeType = AnnoKey{Ns: "annis", Name: "node_type"}
	Tok      = AnnoKey{Ns: "annis", Name: "tok"}
)

// Reserved node_type values.
const (
	NodeTypeNode   = "node"
	NodeTypeCorpus = "corpus"
)

// Annotation pairs a key with the value stored under it.
type Annotation struct {
	Key AnnoKey
	Val string
}

// Edge is a directed pair of node ids.
type Edge struct {
	Source NodeID
	Target NodeID
}

// Inverse returns the reversed edge (Target, Source).
func (e Edge) Inverse() Edge {
	return Edge{Source: e.Target, Target: e.Source}
}

func (e Edge) String() string {
	return fmt.Sprintf("%d->%d", e.Source, e.Target)
}

// ComponentType is drawn from a closed set; ParseComponentType rejects any
// other value.
type ComponentType string

const (
	Coverage        ComponentType = "Coverage"
	Dominance       ComponentType = "Dominance"
	Pointing        ComponentType = "Pointing"
	Ordering        ComponentType = "Ordering"
	LeftToken       ComponentType = "LeftToken"
	RightToken      ComponentType = "RightToken"
	PartOfSubcorpus ComponentType = "PartOfSubcorpus"
	Other           ComponentType = "Other"
)

var validComponentTypes = map[ComponentType]struct{}{
	Coverage: {}, Dominance: {}, Pointing: {}, Ordering: {},
	LeftToken: {}, RightToken: {}, PartOfSubcorpus: {}, Other: {},
}

// ParseComponentType validates a component-type string against the closed
// set, returning ok=false for anything else (the caller turns that into
// coreerrors.InvalidComponentType).
func ParseComponentType(s string) (ComponentType, bool) {
	ct := ComponentType(s)
	_, ok := validComponentTypes[ct]
	return ct, ok
}

// Component identifies an edge relation by (type, layer, name). The triple
// is the component's identity; layer and name are free-form strings.
type Component struct {
	Type  ComponentType
	Layer string
	Name  string
}

func (c Component) String() string {
	return fmt.Sprintf("%s/%s/%s", c.Type, c.Layer, c.Name)
}

// Match is a (node, annotation) pair emitted by a node search.
type Match struct {
	Node NodeID
	Anno Annotation
}

// MatchFilter is applied to a candidate Match produced by an index-join
// expansion; returning an error aborts the join.
type MatchFilter func(Match) (bool, error)

// NodeSearchDesc is the reifiable metadata of a node search: the qualified
// key the search is over, the per-match filters that must all pass, and an
// optional constant annotation substituted for the match's own annotation
// (used for e.g. `node` searches, which always emit node_type=node
// regardless of which annotation keyed the match).
type NodeSearchDesc struct {
	Ns          *string
	Name        *string
	Cond        []MatchFilter
	ConstOutput *Annotation
}
