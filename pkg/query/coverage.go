package query

import (
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// span is a node's covered-token range, resolved once per FilterMatch call
// via TokenHelper; for a token, left == right == the node itself.
type span struct {
	left, right types.NodeID
}

func (h *TokenHelper) spanOf(n types.NodeID) (span, bool, error) {
	left, ok, err := h.LeftTokenFor(n)
	if err != nil || !ok {
		return span{}, false, err
	}
	right, ok, err := h.RightTokenFor(n)
	if err != nil || !ok {
		return span{}, false, err
	}
	return span{left: left, right: right}, true, nil
}

// precedesOrEqual reports whether a occurs at or before b in token order.
func (h *TokenHelper) precedesOrEqual(a, b types.NodeID) (bool, error) {
	if a == b {
		return true, nil
	}
	return h.OrderStorage().IsConnected(a, b, 0, graphstorage.Unbounded())
}

// Overlap implements AQL's `_o_` operator: true iff lhs and rhs's covered
// token spans share at least one token. Grounded on
// original_source/graphannis/src/operator/overlap.rs, replacing that
// file's HashSet-based candidate enumeration (not reproduced here, see
// RetrieveMatches' absence) with the same span-intersection test applied
// directly in FilterMatch.
type Overlap struct{ th *TokenHelper }

// NewOverlap builds an Overlap operator.
func NewOverlap(g GraphAccessor) (*Overlap, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &Overlap{th: th}, nil
}

func (o *Overlap) FilterMatch(lhs, rhs types.Match) (bool, error) {
	a, ok, err := o.th.spanOf(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	b, ok, err := o.th.spanOf(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	left, err := o.th.precedesOrEqual(a.left, b.right)
	if err != nil {
		return false, err
	}
	right, err := o.th.precedesOrEqual(b.left, a.right)
	if err != nil {
		return false, err
	}
	return left && right, nil
}
func (o *Overlap) IsReflexive() bool                     { return true }
func (o *Overlap) Inverse() (BinaryOperatorBase, bool)   { return o, true }
func (o *Overlap) EstimationType() Estimation            { return Estimation{Kind: EstSelectivity, Selectivity: 0.2} }
func (o *Overlap) EdgeAnnoSelectivity() (float64, bool)  { return 0, false }
func (o *Overlap) String() string                        { return "_o_" }

// IdenticalCoverage implements AQL's `_=_` operator: true iff lhs and rhs
// cover exactly the same token span. Grounded on
// original_source/graphannis/src/operator/identical_cov.rs.
type IdenticalCoverage struct{ th *TokenHelper }

// NewIdenticalCoverage builds an IdenticalCoverage operator.
func NewIdenticalCoverage(g GraphAccessor) (*IdenticalCoverage, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &IdenticalCoverage{th: th}, nil
}

func (o *IdenticalCoverage) FilterMatch(lhs, rhs types.Match) (bool, error) {
	a, ok, err := o.th.spanOf(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	b, ok, err := o.th.spanOf(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	return a.left == b.left && a.right == b.right, nil
}
func (o *IdenticalCoverage) IsReflexive() bool                    { return true }
func (o *IdenticalCoverage) Inverse() (BinaryOperatorBase, bool)  { return o, true }
func (o *IdenticalCoverage) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.05}
}
func (o *IdenticalCoverage) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (o *IdenticalCoverage) String() string                       { return "_=_" }

// LeftAlignment implements AQL's `_l_` operator: true iff lhs and rhs's
// covered spans start at the same token.
type LeftAlignment struct{ th *TokenHelper }

// NewLeftAlignment builds a LeftAlignment operator.
func NewLeftAlignment(g GraphAccessor) (*LeftAlignment, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &LeftAlignment{th: th}, nil
}

func (o *LeftAlignment) FilterMatch(lhs, rhs types.Match) (bool, error) {
	a, ok, err := o.th.LeftTokenFor(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	b, ok, err := o.th.LeftTokenFor(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	return a == b, nil
}
func (o *LeftAlignment) IsReflexive() bool                    { return true }
func (o *LeftAlignment) Inverse() (BinaryOperatorBase, bool)  { return o, true }
func (o *LeftAlignment) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.1}
}
func (o *LeftAlignment) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (o *LeftAlignment) String() string                       { return "_l_" }

// RightAlignment implements AQL's `_r_` operator: true iff lhs and rhs's
// covered spans end at the same token.
type RightAlignment struct{ th *TokenHelper }

// NewRightAlignment builds a RightAlignment operator.
func NewRightAlignment(g GraphAccessor) (*RightAlignment, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &RightAlignment{th: th}, nil
}

func (o *RightAlignment) FilterMatch(lhs, rhs types.Match) (bool, error) {
	a, ok, err := o.th.RightTokenFor(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	b, ok, err := o.th.RightTokenFor(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	return a == b, nil
}
func (o *RightAlignment) IsReflexive() bool                   { return true }
func (o *RightAlignment) Inverse() (BinaryOperatorBase, bool) { return o, true }
func (o *RightAlignment) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.1}
}
func (o *RightAlignment) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (o *RightAlignment) String() string                       { return "_r_" }

// Inclusion implements AQL's `_i_` operator: true iff rhs's covered span
// lies entirely within lhs's. Grounded on
// original_source/graphannis-rs/src/operator/inclusion.rs.
type Inclusion struct{ th *TokenHelper }

// NewInclusion builds an Inclusion operator.
func NewInclusion(g GraphAccessor) (*Inclusion, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &Inclusion{th: th}, nil
}

func (o *Inclusion) FilterMatch(lhs, rhs types.Match) (bool, error) {
	outer, ok, err := o.th.spanOf(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	inner, ok, err := o.th.spanOf(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	left, err := o.th.precedesOrEqual(outer.left, inner.left)
	if err != nil {
		return false, err
	}
	right, err := o.th.precedesOrEqual(inner.right, outer.right)
	if err != nil {
		return false, err
	}
	return left && right, nil
}
func (o *Inclusion) IsReflexive() bool { return true }

// Inverse is not defined: inclusion is not symmetric, so there is no
// operator-level swap that preserves its meaning.
func (o *Inclusion) Inverse() (BinaryOperatorBase, bool) { return nil, false }
func (o *Inclusion) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.1}
}
func (o *Inclusion) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (o *Inclusion) String() string                       { return "_i_" }
