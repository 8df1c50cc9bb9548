package query

import (
	"context"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/pool"
	"github.com/korpling/graphannis-core/pkg/types"
)

// defaultBatchSize bounds how many outer tuples ParallelIndexJoin and
// ParallelNestedLoopJoin pull and process together; large enough to keep
// every worker busy, small enough that one pass doesn't buffer an entire
// unbounded LHS stream in memory.
const defaultBatchSize = 256

// ParallelIndexJoin is IndexJoin with candidate retrieval and filtering for
// a batch of LHS tuples spread across a pkg/pool.WorkerPool, then flattened
// back into a single ordered-by-LHS-tuple result stream. Matches are
// produced per LHS tuple in the same relative order IndexJoin would
// produce them in, since only the per-tuple candidate work is
// parallelized, not the overall tuple ordering.
type ParallelIndexJoin struct {
	lhs     ExecutionNode
	lhsIdx  int
	op      BinaryOperatorIndex
	rhsDesc *types.NodeSearchDesc
	annos   annostorage.Store[types.NodeID]
	workers *pool.WorkerPool
	desc    *Desc

	pending [][]types.Match
	pos     int
	done    bool
}

// NewParallelIndexJoin builds a ParallelIndexJoin using workers goroutines
// (see pool.NewWorkerPool for the <= 0 convention).
func NewParallelIndexJoin(lhs ExecutionNode, lhsIdx int, op BinaryOperatorIndex, rhsDesc *types.NodeSearchDesc, g GraphAccessor, workers int) *ParallelIndexJoin {
	return &ParallelIndexJoin{
		lhs:     lhs,
		lhsIdx:  lhsIdx,
		op:      op,
		rhsDesc: rhsDesc,
		annos:   g.NodeAnnos(),
		workers: pool.NewWorkerPool(workers),
		desc:    newDesc("parallel_indexjoin("+op.String()+")", nil, lhs.GetDesc()),
	}
}

func (j *ParallelIndexJoin) fillBatch() error {
	batch := pool.GetMatchBatch()
	defer func() { pool.PutMatchBatch(batch) }()
	for len(batch) < defaultBatchSize {
		tuple, ok, err := j.lhs.Next()
		if err != nil {
			return err
		}
		if !ok {
			j.done = true
			break
		}
		batch = append(batch, tuple)
	}
	if len(batch) == 0 {
		j.pending = nil
		return nil
	}

	results := make([][][]types.Match, len(batch))
	err := j.workers.Run(context.Background(), len(batch), func(i int) error {
		tuple := batch[i]
		nodes, err := j.op.RetrieveMatches(tuple[j.lhsIdx])
		if err != nil {
			return err
		}
		candidates := nodes
		if j.rhsDesc != nil {
			candidates = expandCandidates(j.annos, nodes, j.rhsDesc)
		}
		var out [][]types.Match
		lhsMatch := tuple[j.lhsIdx]
		for pos := 0; pos < len(candidates); pos++ {
			cand := candidates[pos]
			if !j.op.IsReflexive() && cand.Node == lhsMatch.Node && annotationKeyEqual(lhsMatch.Anno, cand.Anno) {
				continue
			}

			passed := true
			if j.rhsDesc != nil {
				for _, f := range j.rhsDesc.Cond {
					ok, err := f(cand)
					if err != nil {
						return err
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
				return err
			}
			if !ok {
				continue
			}

			rhsMatch := cand
			if j.rhsDesc != nil && j.rhsDesc.ConstOutput != nil {
				rhsMatch = types.Match{Node: cand.Node, Anno: *j.rhsDesc.ConstOutput}
				for pos+1 < len(candidates) && candidates[pos+1].Node == cand.Node {
					pos++
				}
			}

			row := make([]types.Match, len(tuple)+1)
			copy(row, tuple)
			row[len(tuple)] = rhsMatch
			out = append(out, row)
		}
		results[i] = out
		return nil
	})
	if err != nil {
		return err
	}

	j.pending = j.pending[:0]
	for _, r := range results {
		j.pending = append(j.pending, r...)
	}
	j.pos = 0
	return nil
}

func (j *ParallelIndexJoin) Next() ([]types.Match, bool, error) {
	for {
		if j.pos < len(j.pending) {
			row := j.pending[j.pos]
			j.pos++
			return row, true, nil
		}
		if j.done {
			return nil, false, nil
		}
		if err := j.fillBatch(); err != nil {
			return nil, false, err
		}
		if len(j.pending) == 0 && j.done {
			return nil, false, nil
		}
	}
}

func (j *ParallelIndexJoin) Close() error   { return j.lhs.Close() }
func (j *ParallelIndexJoin) GetDesc() *Desc { return j.desc }

// ParallelNestedLoopJoin is NestedLoopJoin with the per-outer-tuple scan of
// the buffered inner side spread across a pkg/pool.WorkerPool: each batch
// of outer tuples is matched against the full inner buffer concurrently,
// then flattened in outer-tuple order.
type ParallelNestedLoopJoin struct {
	inner          ExecutionNode
	innerIdx       int
	outer          ExecutionNode
	outerIdx       int
	op             BinaryOperatorBase
	workers        *pool.WorkerPool
	desc           *Desc

	innerBuf [][]types.Match
	cached   bool
	pending  [][]types.Match
	pos      int
	done     bool
}

// NewParallelNestedLoopJoin builds a ParallelNestedLoopJoin. Unlike
// NestedLoopJoin, side selection is fixed by the caller (lhs/rhs map
// directly to outer/inner) since the batched, worker-spread execution
// shape does not benefit from the single-tuple-at-a-time swap heuristic
// NestedLoopJoin uses.
func NewParallelNestedLoopJoin(lhs ExecutionNode, rhs ExecutionNode, lhsIdx, rhsIdx int, op BinaryOperatorBase, workers int) *ParallelNestedLoopJoin {
	return &ParallelNestedLoopJoin{
		outer:    lhs,
		outerIdx: lhsIdx,
		inner:    rhs,
		innerIdx: rhsIdx,
		op:       op,
		workers:  pool.NewWorkerPool(workers),
		desc:     newDesc("parallel_nestedloop("+op.String()+")", nil, lhs.GetDesc(), rhs.GetDesc()),
	}
}

func (n *ParallelNestedLoopJoin) fillBatch() error {
	if !n.cached {
		buf, err := collectAll(n.inner)
		if err != nil {
			return err
		}
		n.innerBuf = buf
		n.cached = true
	}

	batch := pool.GetMatchBatch()
	defer func() { pool.PutMatchBatch(batch) }()
	for len(batch) < defaultBatchSize {
		tuple, ok, err := n.outer.Next()
		if err != nil {
			return err
		}
		if !ok {
			n.done = true
			break
		}
		batch = append(batch, tuple)
	}
	if len(batch) == 0 {
		n.pending = nil
		return nil
	}

	results := make([][][]types.Match, len(batch))
	err := n.workers.Run(context.Background(), len(batch), func(i int) error {
		outerTuple := batch[i]
		lhsMatch := outerTuple[n.outerIdx]
		var out [][]types.Match
		for _, innerTuple := range n.innerBuf {
			rhsMatch := innerTuple[n.innerIdx]
			if !n.op.IsReflexive() && lhsMatch.Node == rhsMatch.Node && annotationKeyEqual(lhsMatch.Anno, rhsMatch.Anno) {
				continue
			}
			ok, err := n.op.FilterMatch(lhsMatch, rhsMatch)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			row := make([]types.Match, 0, len(outerTuple)+len(innerTuple))
			row = append(row, outerTuple...)
			row = append(row, innerTuple...)
			out = append(out, row)
		}
		results[i] = out
		return nil
	})
	if err != nil {
		return err
	}

	n.pending = n.pending[:0]
	for _, r := range results {
		n.pending = append(n.pending, r...)
	}
	n.pos = 0
	return nil
}

func (n *ParallelNestedLoopJoin) Next() ([]types.Match, bool, error) {
	for {
		if n.pos < len(n.pending) {
			row := n.pending[n.pos]
			n.pos++
			return row, true, nil
		}
		if n.done {
			return nil, false, nil
		}
		if err := n.fillBatch(); err != nil {
			return nil, false, err
		}
		if len(n.pending) == 0 && n.done {
			return nil, false, nil
		}
	}
}

func (n *ParallelNestedLoopJoin) Close() error {
	if err := n.outer.Close(); err != nil {
		return err
	}
	return n.inner.Close()
}
func (n *ParallelNestedLoopJoin) GetDesc() *Desc { return n.desc }
