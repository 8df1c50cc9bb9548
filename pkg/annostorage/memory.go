package annostorage

import (
	"regexp"
	"regexp/syntax"
	"sort"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/korpling/graphannis-core/pkg/types"
)

// regexCache memoizes compiled anchored patterns across GuessMaxCountRegex
// calls. The query planner's cost model calls edge_anno_selectivity()/
// estimation_type() once per candidate join ordering it considers, so the
// same (ns, name, pattern) triple is typically recompiled many times while
// comparing plans; an admission-counting cache avoids re-paying
// regexp.Compile for the patterns that recur across that comparison.
// Shared process-wide, the way the teacher shares a single ristretto
// instance across its hot read paths rather than one per engine.
var regexCache, _ = ristretto.NewCache(&ristretto.Config[string, *regexp.Regexp]{
	NumCounters: 10_000,
	MaxCost:     1_000,
	BufferItems: 64,
})

func compileAnchoredCached(anchored string) (*regexp.Regexp, error) {
	if regexCache != nil {
		if re, ok := regexCache.Get(anchored); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}
	if regexCache != nil {
		regexCache.Set(anchored, re, 1)
	}
	return re, nil
}

// entry is one (value, item) pair kept in a key's sorted-by-value index.
type entry[T any] struct {
	value string
	item  T
}

// keyBucket holds every annotation stored under one AnnoKey: the
// sorted-by-value index used for range/regex/prefix scans, and the last
// CalculateStatistics snapshot used by the guess_* estimators.
type keyBucket[T any] struct {
	sorted []entry[T] // kept sorted by value, ties broken by insertion order
	stats  keyStats
}

type keyStats struct {
	count   int
	sampled []string // sorted sample of values, as of last CalculateStatistics
}

// MemoryStore is the fully in-memory annotation store implementation.
// All public methods are safe for concurrent use.
type MemoryStore[T comparable] struct {
	mu sync.RWMutex

	// itemKeys preserves insertion order of keys per item, per spec 4.2's
	// "stable order = insertion order of key within the item".
	itemKeys map[T][]types.AnnoKey
	itemVals map[T]map[types.AnnoKey]string

	buckets map[types.AnnoKey]*keyBucket[T]
}

// NewMemoryStore creates an empty in-memory annotation store.
func NewMemoryStore[T comparable]() *MemoryStore[T] {
	return &MemoryStore[T]{
		itemKeys: make(map[T][]types.AnnoKey),
		itemVals: make(map[T]map[types.AnnoKey]string),
		buckets:  make(map[types.AnnoKey]*keyBucket[T]),
	}
}

func (s *MemoryStore[T]) bucket(key types.AnnoKey) *keyBucket[T] {
	b, ok := s.buckets[key]
	if !ok {
		b = &keyBucket[T]{}
		s.buckets[key] = b
	}
	return b
}

// Insert replaces any existing annotation under anno.Key on item.
func (s *MemoryStore[T]) Insert(item T, anno types.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemVals[item] == nil {
		s.itemVals[item] = make(map[types.AnnoKey]string)
	}
	if old, exists := s.itemVals[item][anno.Key]; exists {
		s.removeFromBucket(anno.Key, old, item)
	} else {
		s.itemKeys[item] = append(s.itemKeys[item], anno.Key)
	}
	s.itemVals[item][anno.Key] = anno.Val
	s.insertIntoBucket(anno.Key, anno.Val, item)
}

func (s *MemoryStore[T]) insertIntoBucket(key types.AnnoKey, value string, item T) {
	b := s.bucket(key)
	i := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i].value > value })
	b.sorted = append(b.sorted, entry[T]{})
	copy(b.sorted[i+1:], b.sorted[i:])
	b.sorted[i] = entry[T]{value: value, item: item}
}

func (s *MemoryStore[T]) removeFromBucket(key types.AnnoKey, value string, item T) {
	b, ok := s.buckets[key]
	if !ok {
		return
	}
	lo := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i].value >= value })
	for i := lo; i < len(b.sorted) && b.sorted[i].value == value; i++ {
		if b.sorted[i].item == item {
			b.sorted = append(b.sorted[:i], b.sorted[i+1:]...)
			return
		}
	}
}

// Remove deletes the annotation under key on item, returning its prior
// value if one existed.
func (s *MemoryStore[T]) Remove(item T, key types.AnnoKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vals := s.itemVals[item]
	if vals == nil {
		return "", false
	}
	old, ok := vals[key]
	if !ok {
		return "", false
	}
	delete(vals, key)
	if len(vals) == 0 {
		delete(s.itemVals, item)
	}
	keys := s.itemKeys[item]
	for i, k := range keys {
		if k == key {
			s.itemKeys[item] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(s.itemKeys[item]) == 0 {
		delete(s.itemKeys, item)
	}
	s.removeFromBucket(key, old, item)
	return old, true
}

// Get returns the value stored under key on item, if any.
func (s *MemoryStore[T]) Get(item T, key types.AnnoKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := s.itemVals[item]
	if vals == nil {
		return "", false
	}
	v, ok := vals[key]
	return v, ok
}

// AnnotationsForItem returns every annotation on item, in insertion order.
func (s *MemoryStore[T]) AnnotationsForItem(item T) []types.Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.itemKeys[item]
	if len(keys) == 0 {
		return nil
	}
	out := make([]types.Annotation, 0, len(keys))
	vals := s.itemVals[item]
	for _, k := range keys {
		out = append(out, types.Annotation{Key: k, Val: vals[k]})
	}
	return out
}

// matchingKeys returns every AnnoKey with the given name, restricted to ns
// when non-nil.
func (s *MemoryStore[T]) matchingKeys(ns *string, name string) []types.AnnoKey {
	if ns != nil {
		return []types.AnnoKey{{Ns: *ns, Name: name}}
	}
	var keys []types.AnnoKey
	for k := range s.buckets {
		if k.Name == name {
			keys = append(keys, k)
		}
	}
	return keys
}

type sliceIterator[T any] struct {
	items []Match[T]
	pos   int
}

func (it *sliceIterator[T]) Next() (Match[T], bool, error) {
	if it.pos >= len(it.items) {
		var zero Match[T]
		return zero, false, nil
	}
	m := it.items[it.pos]
	it.pos++
	return m, true, nil
}

func (it *sliceIterator[T]) Close() error { return nil }

// ExactSearch iterates items whose (ns, name) annotation satisfies pred.
func (s *MemoryStore[T]) ExactSearch(ns *string, name string, pred ValuePredicate) MatchIterator[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match[T]
	for _, key := range s.matchingKeys(ns, name) {
		b, ok := s.buckets[key]
		if !ok {
			continue
		}
		for _, e := range b.sorted {
			if pred.matches(e.value) {
				out = append(out, Match[T]{Item: e.item, Anno: types.Annotation{Key: key, Val: e.value}})
			}
		}
	}
	return &sliceIterator[T]{items: out}
}

// literalPrefix returns the literal prefix every match of pattern
// (anchored to the whole value) must begin with, using the stdlib
// regexp/syntax walker since Go's regexp package does not expose Rust's
// regex::Regex::literal_prefix directly. See DESIGN.md for why this stays
// on the standard library.
func literalPrefix(pattern string) (string, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", err
	}
	re = re.Simplify()
	return leadingLiteral(re), nil
}

func leadingLiteral(re *syntax.Regexp) string {
	switch re.Op {
	case syntax.OpLiteral:
		return string(re.Rune)
	case syntax.OpConcat:
		var prefix string
		for _, sub := range re.Sub {
			if sub.Op == syntax.OpLiteral {
				prefix += string(sub.Rune)
				continue
			}
			// Anchors and empty-width assertions don't consume input;
			// keep scanning past them for more literal prefix.
			if sub.Op == syntax.OpBeginText || sub.Op == syntax.OpBeginLine {
				continue
			}
			break
		}
		return prefix
	case syntax.OpBeginText, syntax.OpBeginLine:
		return ""
	default:
		return ""
	}
}

// RegexSearch anchors pattern to the whole value (implicit \A...\z) and, for
// non-negated search, restricts the scan to the literal-prefix value range
// before filtering with the full regex.
func (s *MemoryStore[T]) RegexSearch(ns *string, name string, pattern string, negated bool) (MatchIterator[T], error) {
	anchored := "^(?:" + pattern + ")$"
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match[T]
	for _, key := range s.matchingKeys(ns, name) {
		b, ok := s.buckets[key]
		if !ok {
			continue
		}
		if negated {
			for _, e := range b.sorted {
				if !re.MatchString(e.value) {
					out = append(out, Match[T]{Item: e.item, Anno: types.Annotation{Key: key, Val: e.value}})
				}
			}
			continue
		}

		prefix, perr := literalPrefix(pattern)
		if perr != nil {
			return nil, perr
		}
		lo := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i].value >= prefix })
		for i := lo; i < len(b.sorted); i++ {
			e := b.sorted[i]
			if prefix != "" && (len(e.value) < len(prefix) || e.value[:len(prefix)] != prefix) {
				break
			}
			if re.MatchString(e.value) {
				out = append(out, Match[T]{Item: e.item, Anno: types.Annotation{Key: key, Val: e.value}})
			}
		}
	}
	return &sliceIterator[T]{items: out}, nil
}

// RangeSearch iterates items whose (ns, name) value falls in [lo, hi]
// (inclusive, byte-wise ordering).
func (s *MemoryStore[T]) RangeSearch(ns *string, name string, lo, hi string) MatchIterator[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Match[T]
	for _, key := range s.matchingKeys(ns, name) {
		b, ok := s.buckets[key]
		if !ok {
			continue
		}
		start := sort.Search(len(b.sorted), func(i int) bool { return b.sorted[i].value >= lo })
		for i := start; i < len(b.sorted) && b.sorted[i].value <= hi; i++ {
			out = append(out, Match[T]{Item: b.sorted[i].item, Anno: types.Annotation{Key: key, Val: b.sorted[i].value}})
		}
	}
	return &sliceIterator[T]{items: out}
}

// NumberOfAnnotations returns the total annotation count across all items
// and keys.
func (s *MemoryStore[T]) NumberOfAnnotations() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, b := range s.buckets {
		total += len(b.sorted)
	}
	return total
}

// NumberOfAnnotationsByName returns the count of annotations under
// (ns, name).
func (s *MemoryStore[T]) NumberOfAnnotationsByName(ns *string, name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, key := range s.matchingKeys(ns, name) {
		if b, ok := s.buckets[key]; ok {
			total += len(b.sorted)
		}
	}
	return total
}

// CalculateStatistics recomputes the sampled value histograms the guess_*
// estimators read from.
func (s *MemoryStore[T]) CalculateStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.buckets {
		sample := make([]string, len(b.sorted))
		for i, e := range b.sorted {
			sample[i] = e.value
		}
		b.stats = keyStats{count: len(sample), sampled: sample}
	}
}

// GuessMaxCount estimates, from the last CalculateStatistics snapshot, how
// many values of (ns, name) fall in [lo, hi] by binary-searching the sorted
// sample.
func (s *MemoryStore[T]) GuessMaxCount(ns *string, name string, lo, hi string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, key := range s.matchingKeys(ns, name) {
		b, ok := s.buckets[key]
		if !ok {
			continue
		}
		sample := b.stats.sampled
		if sample == nil {
			sample = sampleFromSorted(b.sorted)
		}
		start := sort.SearchStrings(sample, lo)
		end := sort.Search(len(sample), func(i int) bool { return sample[i] > hi })
		if end > start {
			total += end - start
		}
	}
	return total
}

// GuessMaxCountRegex estimates how many values of (ns, name) match pattern,
// by scanning the last sampled snapshot (falling back to live data if
// CalculateStatistics was never called).
func (s *MemoryStore[T]) GuessMaxCountRegex(ns *string, name string, pattern string) (int, error) {
	anchored := "^(?:" + pattern + ")$"
	re, err := compileAnchoredCached(anchored)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, key := range s.matchingKeys(ns, name) {
		b, ok := s.buckets[key]
		if !ok {
			continue
		}
		sample := b.stats.sampled
		if sample == nil {
			sample = sampleFromSorted(b.sorted)
		}
		for _, v := range sample {
			if re.MatchString(v) {
				total++
			}
		}
	}
	return total, nil
}

func sampleFromSorted[T any](sorted []entry[T]) []string {
	out := make([]string, len(sorted))
	for i, e := range sorted {
		out[i] = e.value
	}
	return out
}

var _ Store[types.NodeID] = (*MemoryStore[types.NodeID])(nil)
var _ Store[types.Edge] = (*MemoryStore[types.Edge])(nil)
