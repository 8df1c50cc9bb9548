package query

import "github.com/korpling/graphannis-core/pkg/types"

// EstimationKind distinguishes the two shapes estimation_type() can take:
// a concrete cross-product selectivity, or the planner's "minimum
// possible" hint used by constant-selectivity operators like
// IdenticalNode.
type EstimationKind int

const (
	// EstSelectivity carries a concrete fraction of the cross product the
	// operator is expected to keep.
	EstSelectivity EstimationKind = iota
	// EstMin signals "assume the smallest plausible output", used by
	// operators whose output size tracks the LHS size directly
	// (IdenticalNode: exactly one match per LHS tuple).
	EstMin
)

// Estimation is the BinaryOperatorBase.estimation_type() result.
type Estimation struct {
	Kind        EstimationKind
	Selectivity float64
}

// BinaryOperatorBase is the structural-predicate contract every AQL binary
// operator implements: Precedence, Dominance, Pointing, Inclusion,
// Overlap, IdenticalCoverage, LeftAlignment, RightAlignment, IdenticalNode,
// EqualValue, Near, PartOfSubCorpus, Arity, and NegatedOp.
type BinaryOperatorBase interface {
	// FilterMatch reports whether lhs and rhs satisfy the operator.
	FilterMatch(lhs, rhs types.Match) (bool, error)
	// IsReflexive reports whether a match where lhs and rhs name the same
	// node is an acceptable result (Precedence and Near are not; an EdgeOp
	// is only when its minimum distance is 0).
	IsReflexive() bool
	// Inverse returns the operator with lhs/rhs swapped, when the
	// operator has one (e.g. Precedence/precededBy); ok is false when no
	// inverse is defined.
	Inverse() (BinaryOperatorBase, bool)
	// EstimationType returns the operator's cross-product selectivity
	// estimate, used by the planner to cost join orderings.
	EstimationType() Estimation
	// EdgeAnnoSelectivity returns the fraction of edges whose annotations
	// satisfy the operator's edge filter, when the operator has one.
	EdgeAnnoSelectivity() (float64, bool)
	String() string
}

// BinaryOperatorIndex is the subset of operators usable as the RHS side of
// an IndexJoin: given a LHS match, it can enumerate every RHS candidate
// directly instead of requiring a full cross product. retrieve_matches may
// return a superset of the true result; filter_match re-runs.
type BinaryOperatorIndex interface {
	BinaryOperatorBase
	RetrieveMatches(lhs types.Match) ([]types.Match, error)
}

// NegatedOp wraps any BinaryOperatorBase, inverting the truth of
// FilterMatch and complementing its selectivity estimate (universal 7:
// NegatedOp(op).filter_match(a, b) = ¬op.filter_match(a, b)). It is
// deliberately not a BinaryOperatorIndex: a negated predicate's true
// matches are not enumerable from a candidate superset the way a
// non-negated one's are, so NegatedOp only ever participates in a
// NestedLoopJoin.
type NegatedOp struct {
	Base BinaryOperatorBase
}

// NewNegatedOp wraps base so that FilterMatch reports the logical negation
// of base's result.
func NewNegatedOp(base BinaryOperatorBase) *NegatedOp { return &NegatedOp{Base: base} }

func (n *NegatedOp) FilterMatch(lhs, rhs types.Match) (bool, error) {
	ok, err := n.Base.FilterMatch(lhs, rhs)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n *NegatedOp) IsReflexive() bool { return n.Base.IsReflexive() }

func (n *NegatedOp) Inverse() (BinaryOperatorBase, bool) {
	inner, ok := n.Base.Inverse()
	if !ok {
		return nil, false
	}
	return NewNegatedOp(inner), true
}

func (n *NegatedOp) EstimationType() Estimation {
	est := n.Base.EstimationType()
	if est.Kind != EstSelectivity {
		return est
	}
	return Estimation{Kind: EstSelectivity, Selectivity: 1 - est.Selectivity}
}

func (n *NegatedOp) EdgeAnnoSelectivity() (float64, bool) { return 0, false }

func (n *NegatedOp) String() string { return "!" + n.Base.String() }

// IdenticalNode implements AQL's `_ident_` operator: true iff lhs and rhs
// name the same node, regardless of annotation. Grounded on
// original_source/graphannis/src/operator/identical_node.rs.
type IdenticalNode struct{}

func (IdenticalNode) RetrieveMatches(lhs types.Match) ([]types.Match, error) {
	return []types.Match{{Node: lhs.Node}}, nil
}
func (IdenticalNode) FilterMatch(lhs, rhs types.Match) (bool, error) { return lhs.Node == rhs.Node, nil }
func (IdenticalNode) IsReflexive() bool                              { return true }
func (o IdenticalNode) Inverse() (BinaryOperatorBase, bool)          { return o, true }
func (IdenticalNode) EstimationType() Estimation                     { return Estimation{Kind: EstMin} }
func (IdenticalNode) EdgeAnnoSelectivity() (float64, bool)           { return 0, false }
func (IdenticalNode) String() string                                 { return "_ident_" }

// EqualValue implements AQL's `==` cross-node value comparison: true iff
// lhs and rhs carry the same annotation value (byte-wise, per spec.md's
// non-goal ruling out unicode collation).
type EqualValue struct{}

func (EqualValue) FilterMatch(lhs, rhs types.Match) (bool, error) {
	return lhs.Anno.Val == rhs.Anno.Val, nil
}
func (EqualValue) IsReflexive() bool                     { return true }
func (o EqualValue) Inverse() (BinaryOperatorBase, bool) { return o, true }
func (EqualValue) EstimationType() Estimation            { return Estimation{Kind: EstSelectivity, Selectivity: 0.1} }
func (EqualValue) EdgeAnnoSelectivity() (float64, bool)  { return 0, false }
func (EqualValue) String() string                        { return "==" }
