package graphstorage

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphannis-core/pkg/annostorage"
	"github.com/korpling/graphannis-core/pkg/types"
)

// Disk key layout for DiskAdjacencyListStorage, following the teacher's
// pkg/storage/badger.go outgoing/incoming index convention (prefix +
// nodeID + 0x00 + otherNodeID):
//
//	0x10 | source(8 BE) | 0x00 | target(8 BE)  -> empty  (outgoing index)
//	0x11 | target(8 BE) | 0x00 | source(8 BE)  -> empty  (incoming index)
const (
	prefixDiskOutgoing = byte(0x10)
	prefixDiskIncoming = byte(0x11)
)

func encodeNodeID(n types.NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func decodeNodeID(b []byte) types.NodeID {
	return types.NodeID(binary.BigEndian.Uint64(b))
}

func diskAdjKey(prefix byte, a, b types.NodeID) []byte {
	key := make([]byte, 0, 1+8+1+8)
	key = append(key, prefix)
	key = append(key, encodeNodeID(a)...)
	key = append(key, 0x00)
	key = append(key, encodeNodeID(b)...)
	return key
}

func diskAdjPrefix(prefix byte, a types.NodeID) []byte {
	key := make([]byte, 0, 1+8+1)
	key = append(key, prefix)
	key = append(key, encodeNodeID(a)...)
	key = append(key, 0x00)
	return key
}

// DiskAdjacencyListStorage is the writable, badger-backed counterpart to
// AdjacencyListStorage, used when the owning corpus.Graph is disk_based.
// Grounded directly on pkg/storage/badger.go's outgoing/incoming index key
// scheme, applied to bare node adjacency instead of property-graph edges.
type DiskAdjacencyListStorage struct {
	db    *badger.DB
	annos *annostorage.DiskStore[types.Edge]
	stats *Stats
}

// NewDiskAdjacencyListStorage opens a writable component storage over db.
func NewDiskAdjacencyListStorage(db *badger.DB) *DiskAdjacencyListStorage {
	return &DiskAdjacencyListStorage{
		db:    db,
		annos: annostorage.NewDiskStore[types.Edge](db, annostorage.EdgeCodec{}),
	}
}

func (s *DiskAdjacencyListStorage) SerializationID() string { return "disk_adjacencylist_v1" }

func (s *DiskAdjacencyListStorage) AnnoStorage() annostorage.Store[types.Edge] { return s.annos }

func (s *DiskAdjacencyListStorage) AddEdge(e types.Edge) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(diskAdjKey(prefixDiskOutgoing, e.Source, e.Target), []byte{}); err != nil {
			return err
		}
		return txn.Set(diskAdjKey(prefixDiskIncoming, e.Target, e.Source), []byte{})
	})
}

func (s *DiskAdjacencyListStorage) DeleteEdge(e types.Edge) error {
	for _, anno := range s.annos.AnnotationsForItem(e) {
		s.annos.Remove(e, anno.Key)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(diskAdjKey(prefixDiskOutgoing, e.Source, e.Target)); err != nil {
			return err
		}
		return txn.Delete(diskAdjKey(prefixDiskIncoming, e.Target, e.Source))
	})
}

func (s *DiskAdjacencyListStorage) DeleteNode(node types.NodeID) error {
	targets, err := s.OutgoingEdges(node)
	if err != nil {
		return err
	}
	for _, t := range targets {
		if err := s.DeleteEdge(types.Edge{Source: node, Target: t}); err != nil {
			return err
		}
	}
	sources, err := s.IngoingEdges(node)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := s.DeleteEdge(types.Edge{Source: src, Target: node}); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiskAdjacencyListStorage) scanNeighbors(prefixByte byte, node types.NodeID) ([]types.NodeID, error) {
	prefix := diskAdjPrefix(prefixByte, node)
	var out []types.NodeID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := it.Item().Key()[len(prefix):]
			if len(rest) != 8 {
				continue
			}
			out = append(out, decodeNodeID(rest))
		}
		return nil
	})
	return out, err
}

func (s *DiskAdjacencyListStorage) OutgoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return s.scanNeighbors(prefixDiskOutgoing, node)
}

func (s *DiskAdjacencyListStorage) IngoingEdges(node types.NodeID) ([]types.NodeID, error) {
	return s.scanNeighbors(prefixDiskIncoming, node)
}

func (s *DiskAdjacencyListStorage) HasOutgoingEdges(node types.NodeID) (bool, error) {
	targets, err := s.OutgoingEdges(node)
	return len(targets) > 0, err
}

func (s *DiskAdjacencyListStorage) SourceNodes() ([]types.NodeID, error) {
	seen := make(map[types.NodeID]struct{})
	var out []types.NodeID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixDiskOutgoing}
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixDiskOutgoing}
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

func (s *DiskAdjacencyListStorage) Statistics() *Stats { return s.stats }

func (s *DiskAdjacencyListStorage) FindConnected(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, false)
}

func (s *DiskAdjacencyListStorage) FindConnectedInverse(node types.NodeID, minDistance int, maxDistance Bound) ([]types.NodeID, error) {
	return findConnected(s, node, minDistance, maxDistance, true)
}

func (s *DiskAdjacencyListStorage) Distance(source, target types.NodeID) (int, bool, error) {
	return distanceViaDFS(s, source, target)
}

func (s *DiskAdjacencyListStorage) IsConnected(source, target types.NodeID, minDistance int, maxDistance Bound) (bool, error) {
	return isConnectedViaDFS(s, source, target, minDistance, maxDistance)
}

func (s *DiskAdjacencyListStorage) Copy(nodeAnnos annostorage.Store[types.NodeID], orig GraphStorage) error {
	return copyInto(s, orig)
}

func (s *DiskAdjacencyListStorage) Calculate() error {
	stats, err := calculateStats(s)
	if err != nil {
		return err
	}
	s.stats = stats
	return nil
}

var _ GraphStorage = (*DiskAdjacencyListStorage)(nil)
