package query

import (
	"sort"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// TokenHelper aggregates LeftToken, RightToken, Ordering, and every
// Coverage component (as a graphstorage.UnionEdgeContainer when there is
// more than one) into the single view the structural operators need:
// "is this node a token", "what is its left/right-most covered token".
// Grounded on original_source/graphannis/src/util/token_helper.rs,
// generalized from that file's single hard-coded Coverage component to the
// spec's "all Coverage components" union (spec.md §4.3 item 7).
type TokenHelper struct {
	nodeAnnos annostorage.Store[types.NodeID]
	left      graphstorage.GraphStorage
	right     graphstorage.GraphStorage
	order     graphstorage.GraphStorage
	cov       graphstorage.EdgeContainer // nil if the corpus has no Coverage component at all
}

// NewTokenHelper resolves the reserved components from g. LeftToken and
// RightToken are required (mirrors token_helper.rs returning None when
// either is missing); Coverage is optional, since a corpus of bare tokens
// has none.
func NewTokenHelper(g GraphAccessor) (*TokenHelper, error) {
	left, ok := g.GraphStorage(componentLeft)
	if !ok {
		return nil, coreerrors.MissingComponent(componentLeft.String())
	}
	right, ok := g.GraphStorage(componentRight)
	if !ok {
		return nil, coreerrors.MissingComponent(componentRight.String())
	}
	order, _ := g.GraphStorage(componentOrder)

	var cov graphstorage.EdgeContainer
	covComponents := g.ComponentsByType(types.Coverage)
	if len(covComponents) == 1 {
		if gs, ok := g.GraphStorage(covComponents[0]); ok {
			cov = gs
		}
	} else if len(covComponents) > 1 {
		parts := make([]graphstorage.EdgeContainer, 0, len(covComponents))
		for _, c := range covComponents {
			if gs, ok := g.GraphStorage(c); ok {
				parts = append(parts, gs)
			}
		}
		cov = graphstorage.NewUnionEdgeContainer(parts...)
	}

	return &TokenHelper{nodeAnnos: g.NodeAnnos(), left: left, right: right, order: order, cov: cov}, nil
}

// LeftStorage exposes the resolved LeftToken graph storage, used by
// operators (LeftAlignment, IdenticalCoverage) that need to walk its
// adjacency directly rather than through a single-node lookup.
func (h *TokenHelper) LeftStorage() graphstorage.GraphStorage { return h.left }

// RightStorage exposes the resolved RightToken graph storage.
func (h *TokenHelper) RightStorage() graphstorage.GraphStorage { return h.right }

// OrderStorage exposes the resolved Ordering graph storage, or nil if the
// corpus has none (token-free graphs).
func (h *TokenHelper) OrderStorage() graphstorage.GraphStorage { return h.order }

// IsToken reports whether n is a token: it carries annis::tok and has no
// outgoing edge in any Coverage component (data-model invariant 4).
func (h *TokenHelper) IsToken(n types.NodeID) (bool, error) {
	if _, hasTok := h.nodeAnnos.Get(n, types.Tok); !hasTok {
		return false, nil
	}
	if h.cov == nil {
		return true, nil
	}
	has, err := h.cov.HasOutgoingEdges(n)
	if err != nil {
		return false, err
	}
	return !has, nil
}

// RightTokenFor returns n's right-most covered token: n itself if n is
// already a token, otherwise the single node reached via the RightToken
// component (data-model invariant 5: at most one such node).
func (h *TokenHelper) RightTokenFor(n types.NodeID) (types.NodeID, bool, error) {
	isTok, err := h.IsToken(n)
	if err != nil {
		return 0, false, err
	}
	if isTok {
		return n, true, nil
	}
	out, err := h.right.OutgoingEdges(n)
	if err != nil {
		return 0, false, err
	}
	if len(out) == 0 {
		return 0, false, nil
	}
	return out[0], true, nil
}

// LeftTokenFor is RightTokenFor's mirror over the LeftToken component.
func (h *TokenHelper) LeftTokenFor(n types.NodeID) (types.NodeID, bool, error) {
	isTok, err := h.IsToken(n)
	if err != nil {
		return 0, false, err
	}
	if isTok {
		return n, true, nil
	}
	out, err := h.left.OutgoingEdges(n)
	if err != nil {
		return 0, false, err
	}
	if len(out) == 0 {
		return 0, false, nil
	}
	return out[0], true, nil
}

// LeftmostToken picks the left-most node of nodes by Ordering position: the
// one from which every other node's left token is reachable going forward
// through the Ordering component. Used by group-variant alignment
// operators (e.g. aligning a multi-node group's left edge).
func (h *TokenHelper) LeftmostToken(nodes []types.NodeID) (types.NodeID, bool, error) {
	return h.extremeToken(nodes, true)
}

// RightmostToken is LeftmostToken's mirror, picking the node every other
// node's right token is reachable *from*.
func (h *TokenHelper) RightmostToken(nodes []types.NodeID) (types.NodeID, bool, error) {
	return h.extremeToken(nodes, false)
}

func (h *TokenHelper) extremeToken(nodes []types.NodeID, leftmost bool) (types.NodeID, bool, error) {
	if len(nodes) == 0 {
		return 0, false, nil
	}
	if h.order == nil {
		return 0, false, coreerrors.MissingComponent(componentOrder.String())
	}
	toks := make([]types.NodeID, 0, len(nodes))
	for _, n := range nodes {
		var t types.NodeID
		var ok bool
		var err error
		if leftmost {
			t, ok, err = h.LeftTokenFor(n)
		} else {
			t, ok, err = h.RightTokenFor(n)
		}
		if err != nil {
			return 0, false, err
		}
		if ok {
			toks = append(toks, t)
		}
	}
	if len(toks) == 0 {
		return 0, false, nil
	}
	sort.Slice(toks, func(i, j int) bool { return toks[i] < toks[j] })
	best := toks[0]
	for _, t := range toks[1:] {
		var reaches bool
		var err error
		if leftmost {
			_, reaches, err = h.order.Distance(best, t)
			if !reaches {
				_, reaches, err = h.order.Distance(t, best)
				if reaches {
					best = t
				}
			}
		} else {
			_, reaches, err = h.order.Distance(t, best)
			if !reaches {
				_, reaches, err = h.order.Distance(best, t)
				if reaches {
					best = t
				}
			}
		}
		if err != nil {
			return 0, false, err
		}
	}
	return best, true, nil
}
