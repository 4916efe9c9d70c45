// Package ops implements the C9 read/write operations of spec.md §4.7:
// get/get_raw/has_raw with reference following, insert, delete and
// clear_subtree, all against the C6 Merk trees C2 element.Element values
// are persisted in.
//
// Grounded on urkle's thin operation layer over its trie (urkle exposes
// Get/Put/Delete directly against a hash-addressed store the same way this
// package exposes Get/Insert/Delete against a path-addressed one), enriched
// with massifs' path-scoped storage-opening convention for resolving a
// logical location to a concrete storage.Context.
package ops

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
	"github.com/arborledger/grovedb/storage"
)

// MaxReferenceHops is the default reference-chain length cap spec.md §4.7
// names explicitly; a Reference's own MaxHops, when non-zero, overrides it.
const MaxReferenceHops = 10

// Store is the root of the hierarchical store: every Merk subtree is opened
// on demand from its path via storage.SubtreePrefix, scoped to ColumnMain.
type Store struct {
	eng storage.Engine
}

// NewStore wraps eng as a Store.
func NewStore(eng storage.Engine) *Store {
	return &Store{eng: eng}
}

// merkAt opens the Merk tree rooted at path. The tree's own root-key pointer
// is colocated in the same ColumnMain prefix as its nodes (mirroring
// Trillian's NodeStorage, which keeps a tree's metadata alongside its nodes
// rather than in a separate column) rather than spread across the
// dedicated ColumnRoots column storage.go reserves for it.
func (s *Store) merkAt(path [][]byte) *merk.Tree {
	prefix := storage.SubtreePrefix(path)
	sc := s.eng.Context(storage.ColumnMain, prefix[:])
	return merk.Open(sc)
}

// featureFor maps an element Kind to the Merk feature type the node storing
// it at its parent's level should carry, and the sum/count contribution
// that node makes to its enclosing tree's aggregate.
//
// CountTree/CountSumTree map to the non-provable FeatureCount/FeatureCountSum
// (aggregate tracked in the value payload only); ProvableCountTree/
// ProvableCountSumTree map to the distinct FeatureCountProvable/
// FeatureCountSumProvable, which additionally fold the aggregate into the
// node hash (spec.md §3/§4.1). BigSumTree's 128-bit aggregate is folded
// through its low 64 bits only for the Merk-level sum contribution (see
// DESIGN.md); the element's own full-width value is always preserved in
// full regardless.
func featureFor(e element.Element) (merk.FeatureType, int64, *uint64) {
	switch e.Kind {
	case element.KindSumItem, element.KindItemWithSumItem:
		return merk.FeatureSum, e.Sum, nil
	case element.KindSumTree:
		return merk.FeatureSum, e.Sum, nil
	case element.KindBigSumTree:
		return merk.FeatureSum, int64(e.BigSumLo), nil
	case element.KindCountTree:
		count := e.Count
		return merk.FeatureCount, 0, &count
	case element.KindProvableCountTree:
		count := e.Count
		return merk.FeatureCountProvable, 0, &count
	case element.KindCountSumTree:
		count := e.Count
		return merk.FeatureCountSum, e.Sum, &count
	case element.KindProvableCountSumTree:
		count := e.Count
		return merk.FeatureCountSumProvable, e.Sum, &count
	default:
		return merk.FeatureBasic, 0, nil
	}
}
