// Package query implements the query-primitives layer: node-search
// iterators over the annotation store, the binary structural operators
// that cover the AQL surface, the token helper they share, and the two
// join executors (index-join and nested-loop) that compose node searches
// and operators into an execution plan.
//
// Grounded on original_source/graphannis/src/operator (precedence.rs,
// overlap.rs, identical_cov.rs, identical_node.rs) and
// original_source/graphannis-rs/src/operator/edge_op.rs for the operator
// shapes, and original_source/graphannis/src/exec/{indexjoin,nestedloop}.rs
// for the two join executors, ported from their Peekable-iterator style to
// Go's pull-based Next() (ok, err) convention used throughout this module.
package query

import (
	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// GraphAccessor is the narrow surface the query layer needs from a corpus
// graph: the node annotation store, lookup of one component's graph
// storage, and enumeration of every component of a given type. The last is
// needed to build a TokenHelper's Coverage overlay (spec.md's
// UnionEdgeContainer use case) and to resolve a wildcard-named edge
// operator (Dominance/Pointing with no explicit component name) against
// every component sharing its type. pkg/gscorpus.Graph implements this.
type GraphAccessor interface {
	NodeAnnos() annostorage.Store[types.NodeID]
	GraphStorage(c types.Component) (graphstorage.GraphStorage, bool)
	ComponentsByType(ct types.ComponentType) []types.Component
}

// Reserved components every token-aware operator resolves against,
// mirroring the lazy_static COMPONENT_ORDER/COMPONENT_LEFT/COMPONENT_RIGHT
// triples repeated across original_source's operator files.
var (
	componentOrder = types.Component{Type: types.Ordering, Layer: "annis", Name: ""}
	componentLeft  = types.Component{Type: types.LeftToken, Layer: "annis", Name: ""}
	componentRight = types.Component{Type: types.RightToken, Layer: "annis", Name: ""}
)

// annotationKeyEqual reports whether a and b share the same annotation key,
// mirroring original_source's util.check_annotation_key_equal: the
// non-reflexivity rule both joins enforce drops a candidate only when it
// names the same node *and* carries the same key as the other side, not
// merely the same node.
func annotationKeyEqual(a, b types.Annotation) bool {
	return a.Key == b.Key
}

func dedupMatches(in []types.Match) []types.Match {
	if len(in) < 2 {
		return in
	}
	out := in[:1]
	for _, m := range in[1:] {
		if m.Node != out[len(out)-1].Node {
			out = append(out, m)
		}
	}
	return out
}
