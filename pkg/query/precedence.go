package query

import (
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// unboundedIf turns Precedence/Near's "max < 0 means unbounded" convention
// into a graphstorage.Bound.
func unboundedIf(max int) graphstorage.Bound {
	if max < 0 {
		return graphstorage.Unbounded()
	}
	return graphstorage.Included(max)
}

// Precedence implements AQL's `.` operator: true iff rhs's left-most token
// occurs min..max tokens after lhs's right-most token, walking the
// Ordering component. Grounded on
// original_source/graphannis/src/operator/precedence.rs, generalized from
// that file's single segmentation-name parameter to using whatever
// Ordering component TokenHelper resolves (spec.md carries no
// segmentation-layer concept).
type Precedence struct {
	th       *TokenHelper
	min, max int
}

// NewPrecedence builds a Precedence operator over [min, max] token
// distance; max < 0 means unbounded.
func NewPrecedence(g GraphAccessor, min, max int) (*Precedence, error) {
	th, err := NewTokenHelper(g)
	if err != nil {
		return nil, err
	}
	return &Precedence{th: th, min: min, max: max}, nil
}

func (p *Precedence) RetrieveMatches(lhs types.Match) ([]types.Match, error) {
	rightTok, ok, err := p.th.RightTokenFor(lhs.Node)
	if err != nil || !ok {
		return nil, err
	}
	order := p.th.OrderStorage()
	bound := unboundedIf(p.max)
	reached, err := order.FindConnected(rightTok, p.min, bound)
	if err != nil {
		return nil, err
	}
	out := make([]types.Match, 0, len(reached))
	for _, n := range reached {
		out = append(out, types.Match{Node: n})
	}
	return out, nil
}

func (p *Precedence) FilterMatch(lhs, rhs types.Match) (bool, error) {
	leftRight, ok, err := p.th.RightTokenFor(lhs.Node)
	if err != nil || !ok {
		return false, err
	}
	rightLeft, ok, err := p.th.LeftTokenFor(rhs.Node)
	if err != nil || !ok {
		return false, err
	}
	return p.th.OrderStorage().IsConnected(leftRight, rightLeft, p.min, unboundedIf(p.max))
}

func (p *Precedence) IsReflexive() bool { return false }

func (p *Precedence) Inverse() (BinaryOperatorBase, bool) {
	return &invertedPrecedence{Precedence: p}, true
}

func (p *Precedence) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.1}
}
func (p *Precedence) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (p *Precedence) String() string                       { return "." }

// invertedPrecedence implements AQL's precededBy (`,` / inverse of `.`)
// operator by swapping the lhs/rhs roles around the same Precedence.
type invertedPrecedence struct{ *Precedence }

func (p *invertedPrecedence) RetrieveMatches(lhs types.Match) ([]types.Match, error) {
	leftTok, ok, err := p.th.LeftTokenFor(lhs.Node)
	if err != nil || !ok {
		return nil, err
	}
	reached, err := p.th.OrderStorage().FindConnectedInverse(leftTok, p.min, unboundedIf(p.max))
	if err != nil {
		return nil, err
	}
	out := make([]types.Match, 0, len(reached))
	for _, n := range reached {
		out = append(out, types.Match{Node: n})
	}
	return out, nil
}

func (p *invertedPrecedence) FilterMatch(lhs, rhs types.Match) (bool, error) {
	return p.Precedence.FilterMatch(rhs, lhs)
}
func (p *invertedPrecedence) Inverse() (BinaryOperatorBase, bool) { return p.Precedence, true }
func (p *invertedPrecedence) String() string                      { return "," }

// Near implements AQL's `^` operator: true iff lhs and rhs are within
// min..max tokens of each other *in either direction* (the symmetric
// union of Precedence and precededBy). Not directly grounded in a found
// original_source file; built by composing the same TokenHelper/Ordering
// primitives Precedence uses, matching spec.md's "Near: symmetric token
// distance" description.
type Near struct {
	forward  *Precedence
	backward *invertedPrecedence
}

// NewNear builds a Near operator over [min, max] token distance.
func NewNear(g GraphAccessor, min, max int) (*Near, error) {
	p, err := NewPrecedence(g, min, max)
	if err != nil {
		return nil, err
	}
	inv, _ := p.Inverse()
	return &Near{forward: p, backward: inv.(*invertedPrecedence)}, nil
}

func (n *Near) RetrieveMatches(lhs types.Match) ([]types.Match, error) {
	fwd, err := n.forward.RetrieveMatches(lhs)
	if err != nil {
		return nil, err
	}
	bwd, err := n.backward.RetrieveMatches(lhs)
	if err != nil {
		return nil, err
	}
	out := append(fwd, bwd...) //nolint:gocritic // fwd is a freshly allocated slice, safe to extend in place
	return out, nil
}

func (n *Near) FilterMatch(lhs, rhs types.Match) (bool, error) {
	ok, err := n.forward.FilterMatch(lhs, rhs)
	if err != nil || ok {
		return ok, err
	}
	return n.forward.FilterMatch(rhs, lhs)
}

func (n *Near) IsReflexive() bool                  { return false }
func (n *Near) Inverse() (BinaryOperatorBase, bool) { return n, true }
func (n *Near) EstimationType() Estimation {
	return Estimation{Kind: EstSelectivity, Selectivity: 0.2}
}
func (n *Near) EdgeAnnoSelectivity() (float64, bool) { return 0, false }
func (n *Near) String() string                       { return "^" }
