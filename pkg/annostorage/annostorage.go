// Package annostorage implements the annotation store: a mapping from
// (item, annotation key) to value, for items of type T (graphstorage uses
// this for both types.NodeID and types.Edge). Two implementations are
// provided, MemoryStore and DiskStore, behind the same Store[T] interface.
//
// The in-memory implementation mirrors the indexed-map style of the
// teacher's pkg/storage/memory.go (per-label node-id sets); the disk
// implementation mirrors pkg/storage/badger.go's prefix-keyed scans, which
// is also the mechanism used here to satisfy the literal-prefix-bound
// requirement on non-negated regex search.
package annostorage

import (
	"github.com/korpling/graphannis-core/pkg/types"
)

// PredicateKind distinguishes the three shapes a value predicate can take
// in an exact-match search.
type PredicateKind int

const (
	// PredAny matches any value for the given key.
	PredAny PredicateKind = iota
	// PredSome matches only the given value.
	PredSome
	// PredNotSome matches any value other than the given one.
	PredNotSome
)

// ValuePredicate narrows an ExactSearch to a specific value, its negation,
// or no constraint at all.
type ValuePredicate struct {
	Kind  PredicateKind
	Value string
}

// Any builds the "any value" predicate.
func Any() ValuePredicate { return ValuePredicate{Kind: PredAny} }

// Some builds the "exactly this value" predicate.
func Some(v string) ValuePredicate { return ValuePredicate{Kind: PredSome, Value: v} }

// NotSome builds the "any value except this one" predicate.
func NotSome(v string) ValuePredicate { return ValuePredicate{Kind: PredNotSome, Value: v} }

func (p ValuePredicate) matches(value string) bool {
	switch p.Kind {
	case PredSome:
		return value == p.Value
	case PredNotSome:
		return value != p.Value
	default:
		return true
	}
}

// Match pairs an item of type T with one of its annotations. This is the
// per-item element type annostorage iterators yield; the query layer's
// types.Match is the NodeID-specialized case used once node annotations
// are attached to a search result.
type Match[T any] struct {
	Item T
	Anno types.Annotation
}

// MatchIterator is a pull-based, single-pass iterator over Match values.
// Next returns ok=false once exhausted; Close releases any resources held
// by disk-backed iterators (a no-op for in-memory ones).
type MatchIterator[T any] interface {
	Next() (Match[T], bool, error)
	Close() error
}

// Store is the annotation-store contract, parametric in the item type T.
// Every method observes a consistent snapshot as of when the call (or, for
// search methods, the returned iterator) began; mutations that race with an
// in-flight iterator are not required to be visible to it.
type Store[T comparable] interface {
	// Insert replaces any existing annotation under the same key on item.
	Insert(item T, anno types.Annotation)
	// Remove deletes the annotation under key on item, returning its prior
	// value if one existed.
	Remove(item T, key types.AnnoKey) (string, bool)
	// Get returns the value stored under key on item, if any.
	Get(item T, key types.AnnoKey) (string, bool)
	// AnnotationsForItem returns every annotation on item, in the order the
	// keys were first inserted for that item.
	AnnotationsForItem(item T) []types.Annotation

	// ExactSearch iterates items whose (ns, name) annotation satisfies
	// pred. ns may be nil to match the name across every namespace.
	ExactSearch(ns *string, name string, pred ValuePredicate) MatchIterator[T]
	// RegexSearch iterates items whose (ns, name) value matches pattern,
	// anchored to the whole value. When negated is false, the
	// implementation must restrict its scan to the regex's literal-prefix
	// value range before applying the full match. When negated is true the
	// domain is every value of (ns, name) for which the regex fails.
	RegexSearch(ns *string, name string, pattern string, negated bool) (MatchIterator[T], error)
	// RangeSearch iterates items whose (ns, name) value falls in [lo, hi].
	RangeSearch(ns *string, name string, lo, hi string) MatchIterator[T]

	// NumberOfAnnotations returns the total annotation count across all
	// items and keys.
	NumberOfAnnotations() int
	// NumberOfAnnotationsByName returns the count of annotations under
	// (ns, name); ns nil matches the name across namespaces.
	NumberOfAnnotationsByName(ns *string, name string) int
	// GuessMaxCount estimates, from the last CalculateStatistics snapshot,
	// how many values of (ns, name) fall in [lo, hi].
	GuessMaxCount(ns *string, name string, lo, hi string) int
	// GuessMaxCountRegex estimates how many values of (ns, name) match
	// pattern.
	GuessMaxCountRegex(ns *string, name string, pattern string) (int, error)
	// CalculateStatistics recomputes the sampled histograms GuessMaxCount*
	// read from. Statistics are never implicitly refreshed on mutation;
	// callers that depend on freshness must call this themselves.
	CalculateStatistics()
}
