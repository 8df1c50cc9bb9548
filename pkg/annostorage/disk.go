package annostorage

import (
	"encoding/binary"
	"regexp"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/korpling/graphannis-core/pkg/coreerrors"
	"github.com/korpling/graphannis-core/pkg/types"
)

// Disk key layout, mirroring the single-byte-prefix convention of the
// teacher's pkg/storage/badger.go:
//
//	0x01 | itemBytes | 0x00 | keyNs | 0x00 | keyName            -> value
//	0x02 | keyNs | 0x00 | keyName | 0x00 | value | 0x00 | item  -> empty
//
// The first family answers Get/Remove/AnnotationsForItem directly by item.
// The second is the by-value index that ExactSearch/RegexSearch/RangeSearch
// scan with Seek+ValidForPrefix, keeping values in byte-sorted order per key
// so the literal-prefix bound on regex search can restrict the scan range.
const (
	prefixByItem  = byte(0x01)
	prefixByValue = byte(0x02)
	prefixStats   = byte(0x03)
)

// ItemCodec converts between an item of type T and its fixed-format byte
// encoding used in disk keys. NodeID and Edge both get codecs in this
// package; callers instantiating DiskStore for another T must supply one.
type ItemCodec[T any] interface {
	Encode(item T) []byte
	Decode(b []byte) (T, error)
}

// NodeIDCodec encodes a types.NodeID as 8 big-endian bytes, preserving
// numeric ordering in the byte-sorted index.
type NodeIDCodec struct{}

func (NodeIDCodec) Encode(item types.NodeID) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(item))
	return b
}

func (NodeIDCodec) Decode(b []byte) (types.NodeID, error) {
	if len(b) != 8 {
		return 0, coreerrors.Other(errInvalidItemEncoding)
	}
	return types.NodeID(binary.BigEndian.Uint64(b)), nil
}

// EdgeCodec encodes a types.Edge as two concatenated 8-byte big-endian node
// ids (source, then target).
type EdgeCodec struct{}

func (EdgeCodec) Encode(item types.Edge) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(item.Source))
	binary.BigEndian.PutUint64(b[8:], uint64(item.Target))
	return b
}

func (EdgeCodec) Decode(b []byte) (types.Edge, error) {
	if len(b) != 16 {
		return types.Edge{}, coreerrors.Other(errInvalidItemEncoding)
	}
	return types.Edge{
		Source: types.NodeID(binary.BigEndian.Uint64(b[:8])),
		Target: types.NodeID(binary.BigEndian.Uint64(b[8:])),
	}, nil
}

var errInvalidItemEncoding = errInvalid("invalid item encoding")

type errInvalid string

func (e errInvalid) Error() string { return string(e) }

// DiskStore is a badger-backed annotation store for components too large to
// keep fully resident, following the teacher's BadgerEngine: one shared *badger.DB
// per store, opened by the caller (typically the owning graphstorage
// component) and passed in so multiple stores can share a directory's WAL
// and value log.
type DiskStore[T comparable] struct {
	db    *badger.DB
	codec ItemCodec[T]

	// stats mirrors MemoryStore's in-process sampled snapshot; it is not
	// persisted, matching the "never implicitly refreshed" rule.
	stats map[types.AnnoKey][]string

	errMu   sync.Mutex
	lastErr error
}

// NewDiskStore opens (or reuses) db for annotation storage, using codec to
// encode/decode items of type T.
func NewDiskStore[T comparable](db *badger.DB, codec ItemCodec[T]) *DiskStore[T] {
	return &DiskStore[T]{db: db, codec: codec, stats: make(map[types.AnnoKey][]string)}
}

// Err returns the most recent badger transaction failure observed by
// Insert/Remove/Get/AnnotationsForItem, wrapped as a coreerrors.ErrIO, or nil
// if none occurred since the store was created or Err was last called.
// Store[T]'s methods have no error return (MemoryStore never fails), so a
// real I/O failure on the disk-backed variant cannot surface through Get's
// (value, ok) result without collapsing it into "absent" per spec.md §4.2
// ("lookup of an absent annotation returns None, not an error"); this sticky
// side channel lets a caller that cares about I/O health check after the
// fact, without changing that contract for the common in-memory case.
func (s *DiskStore[T]) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.lastErr
	s.lastErr = nil
	return err
}

func (s *DiskStore[T]) recordErr(err error) {
	if err == nil {
		return
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	s.lastErr = coreerrors.IO("annostorage/disk", err)
}

func sep() []byte { return []byte{0x00} }

func itemKey(item []byte, key types.AnnoKey) []byte {
	b := make([]byte, 0, 1+len(item)+1+len(key.Ns)+1+len(key.Name))
	b = append(b, prefixByItem)
	b = append(b, item...)
	b = append(b, 0x00)
	b = append(b, []byte(key.Ns)...)
	b = append(b, 0x00)
	b = append(b, []byte(key.Name)...)
	return b
}

func itemPrefix(item []byte) []byte {
	b := make([]byte, 0, 1+len(item)+1)
	b = append(b, prefixByItem)
	b = append(b, item...)
	b = append(b, 0x00)
	return b
}

func valueKeyPrefix(key types.AnnoKey) []byte {
	b := make([]byte, 0, 1+len(key.Ns)+1+len(key.Name)+1)
	b = append(b, prefixByValue)
	b = append(b, []byte(key.Ns)...)
	b = append(b, 0x00)
	b = append(b, []byte(key.Name)...)
	b = append(b, 0x00)
	return b
}

func valueKey(key types.AnnoKey, value string, itemBytes []byte) []byte {
	b := valueKeyPrefix(key)
	b = append(b, []byte(value)...)
	b = append(b, 0x00)
	b = append(b, itemBytes...)
	return b
}

func splitValueKey(k []byte, prefixLen int) (value string, itemBytes []byte) {
	rest := k[prefixLen:]
	i := strings_IndexByte(rest, 0x00)
	if i < 0 {
		return string(rest), nil
	}
	return string(rest[:i]), rest[i+1:]
}

func strings_IndexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// diskKeyIndex is a set of annotation keys. DiskStore keeps no resident
// index of known keys: a nil-ns search resolves its keys by scanning the
// by-value index (see candidateKeys).
type diskKeyIndex = map[types.AnnoKey]struct{}

func (s *DiskStore[T]) Insert(item T, anno types.Annotation) {
	itemBytes := s.codec.Encode(item)
	err := s.db.Update(func(txn *badger.Txn) error {
		ik := itemKey(itemBytes, anno.Key)
		if existing, err := txn.Get(ik); err == nil {
			var old string
			_ = existing.Value(func(v []byte) error { old = string(v); return nil })
			_ = txn.Delete(valueKey(anno.Key, old, itemBytes))
		}
		if err := txn.Set(ik, []byte(anno.Val)); err != nil {
			return err
		}
		return txn.Set(valueKey(anno.Key, anno.Val, itemBytes), []byte{})
	})
	s.recordErr(err)
}

func (s *DiskStore[T]) Remove(item T, key types.AnnoKey) (string, bool) {
	itemBytes := s.codec.Encode(item)
	var old string
	var found bool
	err := s.db.Update(func(txn *badger.Txn) error {
		ik := itemKey(itemBytes, key)
		it, err := txn.Get(ik)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		_ = it.Value(func(v []byte) error { old = string(v); return nil })
		if err := txn.Delete(ik); err != nil {
			return err
		}
		return txn.Delete(valueKey(key, old, itemBytes))
	})
	s.recordErr(err)
	return old, found
}

func (s *DiskStore[T]) Get(item T, key types.AnnoKey) (string, bool) {
	itemBytes := s.codec.Encode(item)
	var val string
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(itemKey(itemBytes, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return it.Value(func(v []byte) error { val = string(v); return nil })
	})
	s.recordErr(err)
	return val, found
}

func (s *DiskStore[T]) AnnotationsForItem(item T) []types.Annotation {
	itemBytes := s.codec.Encode(item)
	prefix := itemPrefix(itemBytes)
	var out []types.Annotation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			rest := k[len(prefix):]
			parts := splitN(rest, 0x00, 2)
			if len(parts) != 2 {
				continue
			}
			key := types.AnnoKey{Ns: string(parts[0]), Name: string(parts[1])}
			var val string
			if err := it.Item().Value(func(v []byte) error { val = string(v); return nil }); err != nil {
				return err
			}
			out = append(out, types.Annotation{Key: key, Val: val})
		}
		return nil
	})
	s.recordErr(err)
	return out
}

func splitN(b []byte, sep byte, n int) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i < len(b) && len(parts) < n-1; i++ {
		if b[i] == sep {
			parts = append(parts, b[start:i])
			start = i + 1
		}
	}
	parts = append(parts, b[start:])
	return parts
}

type diskIterator[T comparable] struct {
	items []Match[T]
	pos   int
}

func (it *diskIterator[T]) Next() (Match[T], bool, error) {
	if it.pos >= len(it.items) {
		var zero Match[T]
		return zero, false, nil
	}
	m := it.items[it.pos]
	it.pos++
	return m, true, nil
}

func (it *diskIterator[T]) Close() error { return nil }

// candidateKeys resolves which AnnoKeys to scan for a possibly-nil ns. A
// concrete ns yields the single key (ns, name). Disk storage has no reverse
// name index and ns is the outer field of a by-value key, so a nil ns walks
// the whole by-value index once and collects every key whose name matches.
// Most callers (including the query layer) pass a concrete ns.
func (s *DiskStore[T]) candidateKeys(ns *string, name string) []types.AnnoKey {
	if ns != nil {
		return []types.AnnoKey{{Ns: *ns, Name: name}}
	}
	seen := map[types.AnnoKey]struct{}{}
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{prefixByValue}
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixByValue}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := it.Item().Key()[1:]
			parts := splitN(rest, 0x00, 3)
			if len(parts) < 2 {
				continue
			}
			if string(parts[1]) == name {
				seen[types.AnnoKey{Ns: string(parts[0]), Name: name}] = struct{}{}
			}
		}
		return nil
	})
	keys := make([]types.AnnoKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

func (s *DiskStore[T]) ExactSearch(ns *string, name string, pred ValuePredicate) MatchIterator[T] {
	var out []Match[T]
	for _, key := range s.candidateKeys(ns, name) {
		prefix := valueKeyPrefix(key)
		_ = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				value, itemBytes := splitValueKey(it.Item().Key(), len(prefix))
				if !pred.matches(value) {
					continue
				}
				item, err := s.codec.Decode(itemBytes)
				if err != nil {
					return err
				}
				out = append(out, Match[T]{Item: item, Anno: types.Annotation{Key: key, Val: value}})
			}
			return nil
		})
	}
	return &diskIterator[T]{items: out}
}

func (s *DiskStore[T]) RegexSearch(ns *string, name string, pattern string, negated bool) (MatchIterator[T], error) {
	anchored := "^(?:" + pattern + ")$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}

	var out []Match[T]
	for _, key := range s.candidateKeys(ns, name) {
		basePrefix := valueKeyPrefix(key)
		scanPrefix := basePrefix
		if !negated {
			lp, perr := literalPrefix(pattern)
			if perr != nil {
				return nil, perr
			}
			scanPrefix = append(append([]byte{}, basePrefix...), []byte(lp)...)
		}
		_ = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = basePrefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
				value, itemBytes := splitValueKey(it.Item().Key(), len(basePrefix))
				matched := re.MatchString(value)
				if negated {
					matched = !matched
				}
				if !matched {
					continue
				}
				item, derr := s.codec.Decode(itemBytes)
				if derr != nil {
					return derr
				}
				out = append(out, Match[T]{Item: item, Anno: types.Annotation{Key: key, Val: value}})
			}
			return nil
		})
	}
	return &diskIterator[T]{items: out}, nil
}

func (s *DiskStore[T]) RangeSearch(ns *string, name string, lo, hi string) MatchIterator[T] {
	var out []Match[T]
	for _, key := range s.candidateKeys(ns, name) {
		basePrefix := valueKeyPrefix(key)
		loKey := append(append([]byte{}, basePrefix...), []byte(lo)...)
		_ = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = basePrefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(loKey); it.ValidForPrefix(basePrefix); it.Next() {
				value, itemBytes := splitValueKey(it.Item().Key(), len(basePrefix))
				if value > hi {
					break
				}
				item, err := s.codec.Decode(itemBytes)
				if err != nil {
					return err
				}
				out = append(out, Match[T]{Item: item, Anno: types.Annotation{Key: key, Val: value}})
			}
			return nil
		})
	}
	return &diskIterator[T]{items: out}
}

func (s *DiskStore[T]) NumberOfAnnotations() int {
	count := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixByItem}
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixByItem}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count
}

func (s *DiskStore[T]) NumberOfAnnotationsByName(ns *string, name string) int {
	count := 0
	for _, key := range s.candidateKeys(ns, name) {
		prefix := valueKeyPrefix(key)
		_ = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				count++
			}
			return nil
		})
	}
	return count
}

// CalculateStatistics samples the full sorted value range per known key,
// via a single full scan of the by-value index. Like MemoryStore, it is
// never invoked implicitly.
func (s *DiskStore[T]) CalculateStatistics() {
	found := map[types.AnnoKey][]string{}
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte{prefixByValue}
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixByValue}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := it.Item().Key()[1:]
			parts := splitN(rest, 0x00, 4)
			if len(parts) < 3 {
				continue
			}
			key := types.AnnoKey{Ns: string(parts[0]), Name: string(parts[1])}
			found[key] = append(found[key], string(parts[2]))
		}
		return nil
	})
	s.stats = found
}

func (s *DiskStore[T]) GuessMaxCount(ns *string, name string, lo, hi string) int {
	total := 0
	for _, key := range s.statsKeysFor(ns, name) {
		sample := s.stats[key]
		for _, v := range sample {
			if v >= lo && v <= hi {
				total++
			}
		}
	}
	return total
}

func (s *DiskStore[T]) GuessMaxCountRegex(ns *string, name string, pattern string) (int, error) {
	anchored := "^(?:" + pattern + ")$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, key := range s.statsKeysFor(ns, name) {
		for _, v := range s.stats[key] {
			if re.MatchString(v) {
				total++
			}
		}
	}
	return total, nil
}

func (s *DiskStore[T]) statsKeysFor(ns *string, name string) []types.AnnoKey {
	if ns != nil {
		return []types.AnnoKey{{Ns: *ns, Name: name}}
	}
	var keys []types.AnnoKey
	for k := range s.stats {
		if k.Name == name {
			keys = append(keys, k)
		}
	}
	return keys
}

var (
	_ Store[types.NodeID] = (*DiskStore[types.NodeID])(nil)
	_ Store[types.Edge]   = (*DiskStore[types.Edge])(nil)
)
