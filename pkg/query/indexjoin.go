package query

import (
	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// IndexJoin joins lhs's tuples against op's candidate-retrieval: for each
// LHS tuple it calls op.RetrieveMatches on the bound node at lhsIdx,
// re-derives each candidate's real annotation(s) against rhsDesc via
// expandCandidates (RetrieveMatches only guarantees the right node id, see
// next_candidates() in indexjoin.rs), applies rhsDesc's filters, and
// re-verifies with op.FilterMatch before emitting the extended tuple.
// Ported from original_source/graphannis/src/exec/indexjoin.rs's
// Peekable-based iterator to Go's pull-based Next() (ok, err) convention;
// the Rust version's outer loop (advance LHS, refill candidate buffer,
// drain it) is preserved exactly, just expressed as explicit index
// bookkeeping instead of a chained iterator adaptor.
type IndexJoin struct {
	lhs     ExecutionNode
	lhsIdx  int
	op      BinaryOperatorIndex
	rhsDesc *types.NodeSearchDesc
	annos   annostorage.Store[types.NodeID]
	desc    *Desc

	curLHS     []types.Match
	candidates []types.Match
	candPos    int
}

// NewIndexJoin builds an IndexJoin. rhsDesc may be nil when the RHS
// candidates need no further expansion/filtering beyond op.FilterMatch
// (e.g. IdenticalNode's synthetic self-match).
func NewIndexJoin(lhs ExecutionNode, lhsIdx int, op BinaryOperatorIndex, rhsDesc *types.NodeSearchDesc, g GraphAccessor) *IndexJoin {
	return &IndexJoin{
		lhs:     lhs,
		lhsIdx:  lhsIdx,
		op:      op,
		rhsDesc: rhsDesc,
		annos:   g.NodeAnnos(),
		desc:    newDesc("indexjoin("+op.String()+")", nil, lhs.GetDesc()),
	}
}

func (j *IndexJoin) Next() ([]types.Match, bool, error) {
	for {
		for j.candPos < len(j.candidates) {
			cand := j.candidates[j.candPos]
			j.candPos++

			lhsMatch := j.curLHS[j.lhsIdx]
			if !j.op.IsReflexive() && cand.Node == lhsMatch.Node && annotationKeyEqual(lhsMatch.Anno, cand.Anno) {
				continue
			}

			passed := true
			if j.rhsDesc != nil {
				for _, f := range j.rhsDesc.Cond {
					ok, err := f(cand)
					if err != nil {
						return nil, false, err
					}
					if !ok {
						passed = false
						break
					}
				}
			}
			if !passed {
				continue
			}

			ok, err := j.op.FilterMatch(lhsMatch, cand)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				continue
			}

			rhsMatch := cand
			if j.rhsDesc != nil && j.rhsDesc.ConstOutput != nil {
				rhsMatch = types.Match{Node: cand.Node, Anno: *j.rhsDesc.ConstOutput}
				// Only return the one unique const annotation for this
				// node: skip every following candidate sharing its id.
				for j.candPos < len(j.candidates) && j.candidates[j.candPos].Node == cand.Node {
					j.candPos++
				}
			}

			out := make([]types.Match, len(j.curLHS)+1)
			copy(out, j.curLHS)
			out[len(j.curLHS)] = rhsMatch
			return out, true, nil
		}

		tuple, ok, err := j.lhs.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		j.curLHS = tuple
		nodes, err := j.op.RetrieveMatches(tuple[j.lhsIdx])
		if err != nil {
			return nil, false, err
		}
		if j.rhsDesc != nil {
			j.candidates = expandCandidates(j.annos, nodes, j.rhsDesc)
		} else {
			j.candidates = nodes
		}
		j.candPos = 0
	}
}

func (j *IndexJoin) Close() error   { return j.lhs.Close() }
func (j *IndexJoin) GetDesc() *Desc { return j.desc }
