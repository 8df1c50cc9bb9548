// Package registry chooses, by name, which concrete graph-storage
// representation backs a component, and builds/reopens that
// representation. It is the Go port of core/src/graph/storage/registry.rs:
// the same decision table, minus the integer-width monomorphization that
// table used to additionally pick between u8/u16/u32/u64 variants of
// Linear and PrePostOrder (see SPEC_FULL.md §4.3 item 4 and
// pkg/graphstorage's DESIGN.md entry).
package registry

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/graphstorage"
)

// Serialization ids, matching each implementation's SerializationID().
const (
	IDAdjacencyList      = "adjacencylist_v1"
	IDDenseAdjacencyList = "dense_adjacencylist_v1"
	IDDiskAdjacencyList  = "disk_adjacencylist_v1"
	IDLinear             = "linear_v1"
	IDPrePostOrder       = "prepostorder_v1"
	IDDiskPath           = "disk_path_v1"
)

// CreateWritable returns a fresh, empty writable storage: an in-memory
// AdjacencyListStorage, or a disk-backed one when diskBased is set. If orig
// is non-nil its content is copied in, mirroring registry.rs's
// create_writeable.
func CreateWritable(diskBased bool, db *badger.DB, orig graphstorage.GraphStorage) (graphstorage.GraphStorage, error) {
	var result graphstorage.GraphStorage
	if diskBased {
		result = graphstorage.NewDiskAdjacencyListStorage(db)
	} else {
		result = graphstorage.NewAdjacencyListStorage()
	}
	if orig != nil {
		if err := result.Copy(nil, orig); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// NewInstance builds a fresh, empty instance of the representation named by
// id, for Deserialize to populate from a persisted component directory.
func NewInstance(id string, db *badger.DB) (graphstorage.GraphStorage, error) {
	switch id {
	case IDAdjacencyList:
		return graphstorage.NewAdjacencyListStorage(), nil
	case IDDenseAdjacencyList:
		return graphstorage.NewDenseAdjacencyListStorage(0), nil
	case IDDiskAdjacencyList:
		return graphstorage.NewDiskAdjacencyListStorage(db), nil
	case IDLinear:
		return graphstorage.NewLinearGraphStorage(), nil
	case IDPrePostOrder:
		return graphstorage.NewPrePostOrderStorage(), nil
	case IDDiskPath:
		return graphstorage.NewDiskPathStorage(db), nil
	default:
		return nil, coreerrors.InvalidComponentDescription(id)
	}
}

// Deserialize reads the tag file SaveTo wrote in dir, builds a fresh empty
// instance of the representation it names, and loads dir's persisted edges
// into it -- the read side of the persisted layout pkg/gscorpus.Graph.
// SaveTo/LoadFrom writes one subdirectory of per component.
func Deserialize(dir string, db *badger.DB) (graphstorage.GraphStorage, error) {
	id, err := graphstorage.ReadTag(dir)
	if err != nil {
		return nil, err
	}
	gs, err := NewInstance(id, db)
	if err != nil {
		return nil, err
	}
	if err := graphstorage.LoadFrom(dir, gs); err != nil {
		return nil, err
	}
	return gs, nil
}

// OptimalImplFor picks the serialization id of the representation the
// decision table prefers for a component with the given shape, following
// registry.rs's get_optimal_impl_heuristic exactly (branch order matters:
// the first matching condition wins).
func OptimalImplFor(stats graphstorage.Stats, diskBased bool, largestNodeIDKnown bool, largestNodeID int) string {
	if stats.MaxDepth <= 1 {
		return adjacencyListImpl(stats, diskBased, largestNodeIDKnown, largestNodeID)
	}
	if diskBased && stats.MaxDepth <= graphstorage.MaxDepth && stats.MaxFanOut == 1 && !stats.Cyclic {
		return IDDiskPath
	}
	if stats.RootedTree {
		if stats.MaxFanOut <= 1 {
			return IDLinear
		}
		return IDPrePostOrder
	}
	if !stats.Cyclic && stats.DFSVisitRatio <= 1.03 {
		return IDPrePostOrder
	}
	return adjacencyListImpl(stats, diskBased, largestNodeIDKnown, largestNodeID)
}

// adjacencyListImpl mirrors get_adjacencylist_impl: a disk-based graph
// always uses DiskAdjacencyList; otherwise DenseAdjacencyList is picked
// when fan-out is at most 1 and the component covers at least 75% of the
// node-id space (a dense id range, worth the flat-slice layout).
func adjacencyListImpl(stats graphstorage.Stats, diskBased bool, largestNodeIDKnown bool, largestNodeID int) string {
	if diskBased {
		return IDDiskAdjacencyList
	}
	if largestNodeIDKnown && largestNodeID > 0 && stats.MaxFanOut <= 1 {
		density := float64(stats.Nodes) / float64(largestNodeID)
		if density >= 0.75 {
			return IDDenseAdjacencyList
		}
	}
	return IDAdjacencyList
}
