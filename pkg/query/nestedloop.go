package query

import "github.com/korpling/graphannis-core/pkg/types"

// NestedLoopJoin pairs every tuple of one side against every tuple of the
// other through op.FilterMatch, used whenever op has no RetrieveMatches
// (NegatedOp, Arity, or any BinaryOperatorBase the planner could not place
// in an IndexJoin). Ported from
// original_source/graphannis/src/exec/nestedloop.rs: the inner side is
// materialized once on first use and replayed for every outer tuple
// (nestedloop.rs's "cache on first traversal"), while the choice of which
// side to buffer is decided up front from each side's Desc.Cost rather
// than left as nestedloop.rs's unimplemented "TODO: allow switching inner
// and outer" -- whichever side estimates fewer rows becomes the buffered
// (inner) side, the other streams as outer, and tryMatch always calls
// op.FilterMatch in the original lhs/rhs role order regardless of which
// physically became outer/inner.
type NestedLoopJoin struct {
	outer          ExecutionNode
	outerIdx       int
	innerSource    ExecutionNode
	innerSourceIdx int
	op             BinaryOperatorBase
	swapped        bool
	desc           *Desc

	inner    [][]types.Match
	cached   bool
	curOuter []types.Match
	innerPos int
}

// NewNestedLoopJoin builds a NestedLoopJoin over lhs/rhs tuples at
// lhsIdx/rhsIdx.
func NewNestedLoopJoin(lhs, rhs ExecutionNode, lhsIdx, rhsIdx int, op BinaryOperatorBase) *NestedLoopJoin {
	swapped := shouldSwap(lhs.GetDesc(), rhs.GetDesc())
	n := &NestedLoopJoin{op: op, swapped: swapped}
	if swapped {
		n.outer, n.outerIdx = rhs, rhsIdx
		n.innerSource, n.innerSourceIdx = lhs, lhsIdx
	} else {
		n.outer, n.outerIdx = lhs, lhsIdx
		n.innerSource, n.innerSourceIdx = rhs, rhsIdx
	}
	n.desc = newDesc("nestedloop("+op.String()+")", nil, lhs.GetDesc(), rhs.GetDesc())
	return n
}

// shouldSwap prefers buffering the side with the smaller estimated
// selectivity; with no cost information on either side it leaves lhs as
// outer and rhs as the buffered inner, matching the unswapped default.
func shouldSwap(lhsDesc, rhsDesc *Desc) bool {
	if lhsDesc.Cost == nil || rhsDesc.Cost == nil {
		return false
	}
	if lhsDesc.Cost.Kind != EstSelectivity || rhsDesc.Cost.Kind != EstSelectivity {
		return false
	}
	return rhsDesc.Cost.Selectivity > lhsDesc.Cost.Selectivity
}

func (n *NestedLoopJoin) tryMatch(outerTuple, innerTuple []types.Match) (bool, error) {
	var lhsMatch, rhsMatch types.Match
	if n.swapped {
		rhsMatch, lhsMatch = outerTuple[n.outerIdx], innerTuple[n.innerSourceIdx]
	} else {
		lhsMatch, rhsMatch = outerTuple[n.outerIdx], innerTuple[n.innerSourceIdx]
	}
	if !n.op.IsReflexive() && lhsMatch.Node == rhsMatch.Node && annotationKeyEqual(lhsMatch.Anno, rhsMatch.Anno) {
		return false, nil
	}
	return n.op.FilterMatch(lhsMatch, rhsMatch)
}

func (n *NestedLoopJoin) combine(outerTuple, innerTuple []types.Match) []types.Match {
	lhsTuple, rhsTuple := outerTuple, innerTuple
	if n.swapped {
		lhsTuple, rhsTuple = innerTuple, outerTuple
	}
	out := make([]types.Match, 0, len(lhsTuple)+len(rhsTuple))
	out = append(out, lhsTuple...)
	out = append(out, rhsTuple...)
	return out
}

func (n *NestedLoopJoin) Next() ([]types.Match, bool, error) {
	if !n.cached {
		buffered, err := collectAll(n.innerSource)
		if err != nil {
			return nil, false, err
		}
		n.inner = buffered
		n.cached = true
	}
	for {
		if n.curOuter == nil {
			tuple, ok, err := n.outer.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			n.curOuter = tuple
			n.innerPos = 0
		}
		for n.innerPos < len(n.inner) {
			candidate := n.inner[n.innerPos]
			n.innerPos++
			ok, err := n.tryMatch(n.curOuter, candidate)
			if err != nil {
				return nil, false, err
			}
			if ok {
				return n.combine(n.curOuter, candidate), true, nil
			}
		}
		n.curOuter = nil
	}
}

func (n *NestedLoopJoin) Close() error {
	if err := n.outer.Close(); err != nil {
		return err
	}
	return n.innerSource.Close()
}

func (n *NestedLoopJoin) GetDesc() *Desc { return n.desc }
