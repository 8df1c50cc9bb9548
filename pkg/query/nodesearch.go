package query

import (
	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// NodeSearch is a pull-based iterator of types.Match produced from one of
// the spec's node-search kinds (AnyNode, AnyToken, ExactValue, RegexValue,
// NotExactValue, NotRegexValue). Its Desc is the reifiable metadata the
// index-join executor needs to re-run the same search's filters/constant
// output against candidate nodes it discovers through an operator instead
// of through the annotation store directly.
type NodeSearch struct {
	Desc *types.NodeSearchDesc
	it   annostorage.MatchIterator[types.NodeID]
}

func newNodeSearch(it annostorage.MatchIterator[types.NodeID], desc *types.NodeSearchDesc) *NodeSearch {
	return &NodeSearch{Desc: desc, it: it}
}

// Next returns the next match passing every Desc.Cond filter, with its
// annotation replaced by Desc.ConstOutput when one is set.
func (n *NodeSearch) Next() (types.Match, bool, error) {
	for {
		m, ok, err := n.it.Next()
		if err != nil || !ok {
			return types.Match{}, false, err
		}
		match, passed, err := applyNodeSearchDesc(n.Desc, types.Match{Node: m.Item, Anno: m.Anno})
		if err != nil {
			return types.Match{}, false, err
		}
		if passed {
			return match, true, nil
		}
	}
}

// applyNodeSearchDesc substitutes desc.ConstOutput (when set) and runs
// every desc.Cond filter, reused by both NodeSearch.Next and IndexJoin's
// candidate-filtering of retrieved matches against the RHS node search's
// original descriptor.
func applyNodeSearchDesc(desc *types.NodeSearchDesc, m types.Match) (types.Match, bool, error) {
	if desc.ConstOutput != nil {
		m.Anno = *desc.ConstOutput
	}
	for _, f := range desc.Cond {
		ok, err := f(m)
		if err != nil {
			return types.Match{}, false, err
		}
		if !ok {
			return types.Match{}, false, nil
		}
	}
	return m, true, nil
}

// Close releases resources held by the underlying annotation-store
// iterator (a no-op for in-memory stores, meaningful for disk-backed ones).
func (n *NodeSearch) Close() error { return n.it.Close() }

// expandCandidate re-derives the real annotation(s) of one candidate node
// handed back by a BinaryOperatorIndex's RetrieveMatches (which only
// guarantees the right node id, not a useful annotation) against desc's
// qualified key. This is next_candidates() in
// original_source/graphannis/src/exec/indexjoin.rs: an exact (ns, name)
// lookup when both are given, every annotation sharing name across
// namespaces when only name is given, or every annotation on the node when
// name is absent.
func expandCandidate(annos annostorage.Store[types.NodeID], node types.NodeID, desc *types.NodeSearchDesc) []types.Match {
	if desc.Name == nil {
		all := annos.AnnotationsForItem(node)
		out := make([]types.Match, len(all))
		for i, a := range all {
			out[i] = types.Match{Node: node, Anno: a}
		}
		return out
	}
	if desc.Ns != nil {
		key := types.AnnoKey{Ns: *desc.Ns, Name: *desc.Name}
		val, ok := annos.Get(node, key)
		if !ok {
			return nil
		}
		return []types.Match{{Node: node, Anno: types.Annotation{Key: key, Val: val}}}
	}
	var out []types.Match
	for _, a := range annos.AnnotationsForItem(node) {
		if a.Key.Name == *desc.Name {
			out = append(out, types.Match{Node: node, Anno: a})
		}
	}
	return out
}

// expandCandidates applies expandCandidate to every node RetrieveMatches
// returned, in order, so that every expansion of one candidate node stays
// contiguous in the result (IndexJoin's const_output dedup relies on that).
func expandCandidates(annos annostorage.Store[types.NodeID], nodes []types.Match, desc *types.NodeSearchDesc) []types.Match {
	var out []types.Match
	for _, cand := range nodes {
		out = append(out, expandCandidate(annos, cand.Node, desc)...)
	}
	return out
}

func buildDesc(ns *string, name *string, cond []types.MatchFilter, constOutput *types.Annotation) *types.NodeSearchDesc {
	return &types.NodeSearchDesc{Ns: ns, Name: name, Cond: cond, ConstOutput: constOutput}
}

// AnyNode searches every node carrying an annis::node_type annotation,
// regardless of its value (so both "node" and "corpus" nodes match).
func AnyNode(g GraphAccessor) (*NodeSearch, error) {
	ns, name := types.NodeType.Ns, types.NodeType.Name
	it := g.NodeAnnos().ExactSearch(&ns, name, annostorage.Any())
	return newNodeSearch(it, buildDesc(&ns, &name, nil, nil)), nil
}

// NodeOfType searches nodes whose annis::node_type equals typeValue (AQL's
// plain `node` query passes "node" here). The synthetic constant output
// mirrors the spec's note that `node` searches always emit
// node_type=<typeValue>: since ExactSearch already filtered to that value
// the constant is redundant in practice, but it demonstrates the
// NodeSearchDesc.ConstOutput substitution path the index join relies on
// for searches whose matched key is irrelevant to the caller.
func NodeOfType(g GraphAccessor, typeValue string) (*NodeSearch, error) {
	ns, name := types.NodeType.Ns, types.NodeType.Name
	it := g.NodeAnnos().ExactSearch(&ns, name, annostorage.Some(typeValue))
	constOut := types.Annotation{Key: types.NodeType, Val: typeValue}
	return newNodeSearch(it, buildDesc(&ns, &name, nil, &constOut)), nil
}

// AnyToken searches every node with an annis::tok annotation that has no
// outgoing edge in any Coverage component (spec.md's token definition:
// invariant 4 of §3 plus the `AnyToken` node-search kind of §4.5).
func AnyToken(g GraphAccessor) (*NodeSearch, error) {
	ns, name := types.Tok.Ns, types.Tok.Name
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	filter := func(m types.Match) (bool, error) { return th.IsToken(m.Node) }
	it := g.NodeAnnos().ExactSearch(&ns, name, annostorage.Any())
	return newNodeSearch(it, buildDesc(&ns, &name, []types.MatchFilter{filter}, nil)), nil
}

// ExactValue searches nodes whose (ns, name) annotation equals value; value
// nil matches any value under that key (ns nil matches name across every
// namespace, per the annotation store's ExactSearch contract).
func ExactValue(g GraphAccessor, ns *string, name string, value *string) (*NodeSearch, error) {
	pred := annostorage.Any()
	if value != nil {
		pred = annostorage.Some(*value)
	}
	it := g.NodeAnnos().ExactSearch(ns, name, pred)
	return newNodeSearch(it, buildDesc(ns, &name, nil, nil)), nil
}

// NotExactValue searches nodes carrying a (ns, name) annotation whose value
// is anything other than value.
func NotExactValue(g GraphAccessor, ns *string, name, value string) (*NodeSearch, error) {
	it := g.NodeAnnos().ExactSearch(ns, name, annostorage.NotSome(value))
	return newNodeSearch(it, buildDesc(ns, &name, nil, nil)), nil
}

// RegexValue searches nodes whose (ns, name) value matches pattern,
// anchored to the whole value; when negated, the domain is every value for
// which the regex fails (per the annotation store's RegexSearch contract).
func RegexValue(g GraphAccessor, ns *string, name, pattern string, negated bool) (*NodeSearch, error) {
	it, err := g.NodeAnnos().RegexSearch(ns, name, pattern, negated)
	if err != nil {
		return nil, coreerrors.Other(err)
	}
	return newNodeSearch(it, buildDesc(ns, &name, nil, nil)), nil
}

// NotRegexValue is RegexValue with negation fixed to true, kept as its own
// name to mirror the spec's explicit NotRegexValue node-search kind.
func NotRegexValue(g GraphAccessor, ns *string, name, pattern string) (*NodeSearch, error) {
	return RegexValue(g, ns, name, pattern, true)
}
