package graphstorage

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// MaxDepth bounds the path length DiskPathStorage can represent; the
// registry only selects this representation when a component's
// Stats.MaxDepth is within this bound and Stats.MaxFanOut == 1 (see
// registry.rs's disk_path::MAX_DEPTH check, ported unchanged).
const MaxDepth = 120

// Disk key layout: one flat record per (node, depth) pair along its single
// outgoing chain, avoiding per-hop graph traversal on read.
//
//	0x20 | source(8 BE) | depth(1 byte) -> target(8 BE)
const prefixDiskPath = byte(0x20)

func diskPathKey(source types.NodeID, depth int) []byte {
	key := make([]byte, 0, 1+8+1)
	key = append(key, prefixDiskPath)
	key = append(key, encodeNodeID(source)...)
	key = append(key, byte(depth))
	return key
}

func diskPathPrefix(source types.NodeID) []byte {
	key := make([]byte, 0, 1+8)
	key = append(key, prefixDiskPath)
	key = append(key, encodeNodeID(source)...)
	return key
}

// DiskPathStorage is the read-only representation used for long, simple,
// disk-resident chains without branching (e.g. a PartOfSubcorpus
// component): rather than walking next-pointers one hop at a time, every
// reachable (depth, target) pair for a source node is stored as its own
// record so FindConnected/IsConnected are a single prefix scan.
type DiskPathStorage struct {
	db    *badger.DB
	annos *annostorage.DiskStore[types.Edge]
	stats *Stats
}

// NewDiskPathStorage opens an empty read-only storage over db.
func NewDiskPathStorage(db *badger.DB) *DiskPathStorage {
	return &DiskPathStorage{
		db:    db,
		annos: annostorage.NewDiskStore[types.Edge](db, annostorage.EdgeCodec{}),
	}
}

func (s *DiskPathStorage) SerializationID() string { return "disk_path_v1" }

func (s *DiskPathStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *DiskPathStorage) AddEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DiskPathStorage) DeleteEdge(e types.Edge) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DiskPathStorage) DeleteNode(node types.NodeID) error {
	return coreerrors.ReadOnlyComponent(s.SerializationID())
}

func (s *DiskPathStorage) pathFrom(source types.NodeID) ([]types.NodeID, error) {
	prefix := diskPathPrefix(source)
	out := make([]types.NodeID, 0, MaxDepth)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var target types.NodeID
			err := it.Item().Value(func(v []byte) error {
				target = types.NodeID(binary.BigEndian.Uint64(v))
				return nil
			})
			if err != nil {
				return err
			}
			out = append(out, target)
		}
		return nil
	})
	return out, err
}

func (s *DiskPathStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	path, err := s.pathFrom(node)
	if err != nil || len(path) == 0 {
		return nil, err
	}
	return path[:1], nil
}

func (s *DiskPathStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	// The flat-record layout is optimized for forward traversal only; an
	// inverse lookup requires a full scan of source nodes, acceptable since
	// DiskPathStorage is only chosen for components with max_fan_out == 1
	// (each node has at most one predecessor in practice).
	var out []types.NodeID
	sources, err := s.SourceNodes()
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		path, err := s.pathFrom(src)
		if err != nil {
			return nil, err
		}
		if len(path) > 0 && path[0] == node {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *DiskPathStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	path, err := s.pathFrom(node)
	return len(path) > 0, err
}

func (s *DiskPathStorage) SourceNodes() ([]types.NodeID, error) {
	seen := make(map[types.NodeID]struct{})
	var out []types.NodeID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixDiskPath}
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixDiskPath}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := it.Item().Key()[1:]
			if len(rest) < 8 {
				continue
			}
			n := decodeNodeID(rest[:8])
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

func (s *DiskPathStorage) Statistics() *Stats { return s.stats }

func (s *DiskPathStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	path, err := s.pathFrom(node)
	if err != nil {
		return nil, err
	}
	maxD := maxDistance.resolve()
	var out []types.NodeID
	for i, target := range path {
		dist := i + 1
		if dist > maxD {
			break
		}
		if dist >= minDistance {
			out = append(out, target)
		}
	}
	return out, nil
}

func (s *DiskPathStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, true)
}

func (s *DiskPathStorage) Distance(source, target types.NodeID) (int, bool, error) {
	if source == target {
		return 0, true, nil
	}
	path, err := s.pathFrom(source)
	if err != nil {
		return 0, false, err
	}
	for i, n := range path {
		if n == target {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (s *DiskPathStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	dist, ok, err := s.Distance(source, target)
	if err != nil || !ok {
		return false, err
	}
	return dist >= minDistance && dist <= maxDistance.resolve(), nil
}

// Copy flattens orig's chains into per-(source,depth) records, one DFS
// walk per source node up to MaxDepth hops.
func (s *DiskPathStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	sources, err := orig.SourceNodes()
	if err != nil {
		return err
	}
	for _, src := range sources {
		cur := src
		for depth := 0; depth < MaxDepth; depth++ {
			targets, err := orig.OutgoingEdges(cur)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				break
			}
			next := targets[0]
			valBuf := encodeNodeID(next)
			if err := s.db.Update(func(txn *badger.Txn) error {
				return txn.Set(diskPathKey(src, depth), valBuf)
			}); err != nil {
				return err
			}
			e := types.Edge{Source: cur, Target: next}
			for _, anno := range orig.AnnoStorage().AnnotationsForItem(e) {
				s.annos.Insert(e, anno)
			}
			cur = next
		}
	}
	return nil
}

func (s *DiskPathStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

var _ GraphStorage = (*DiskPathStorage)(nil)
