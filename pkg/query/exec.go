package query

import "github.com/korpling/graphannis-core/pkg/types"

// Desc describes one node of an execution plan: its implementation name,
// the operator it runs (if any), and its children, for diagnostics and for
// the planner's cost estimate propagation. Mirrors original_source's
// ExecutionNodeDesc, used purely as inspectable metadata -- nothing in
// this package inspects its own Desc at run time.
type Desc struct {
	Name     string
	Children []*Desc
	Cost     *Estimation
}

func newDesc(name string, cost *Estimation, children ...*Desc) *Desc {
	return &Desc{Name: name, Children: children, Cost: cost}
}

// ExecutionNode is a pull-based iterator over tuples of matches, one slot
// per node variable bound so far in the plan. Every join executor and leaf
// node search implements it so plans compose uniformly regardless of
// depth.
type ExecutionNode interface {
	// Next returns the next result tuple, or ok=false once exhausted.
	Next() ([]types.Match, bool, error)
	// Close releases resources held by this node and its children.
	Close() error
	// GetDesc returns this node's plan description.
	GetDesc() *Desc
}

// nodeSearchExec adapts a *NodeSearch (a single-match iterator) into an
// ExecutionNode producing one-element tuples, the leaf of every plan tree.
type nodeSearchExec struct {
	search *NodeSearch
	desc   *Desc
}

// NewNodeSearchExec wraps search as a plan leaf.
func NewNodeSearchExec(name string, search *NodeSearch) ExecutionNode {
	return &nodeSearchExec{search: search, desc: newDesc(name, nil)}
}

func (e *nodeSearchExec) Next() ([]types.Match, bool, error) {
	m, ok, err := e.search.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return []types.Match{m}, true, nil
}
func (e *nodeSearchExec) Close() error   { return e.search.Close() }
func (e *nodeSearchExec) GetDesc() *Desc { return e.desc }

// collectAll drains node into a slice, used by executors (NestedLoopJoin's
// inner side) that must buffer one side before producing output.
func collectAll(node ExecutionNode) ([][]types.Match, error) {
	var out [][]types.Match
	for {
		tuple, ok, err := node.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, tuple)
	}
	return out, nil
}
