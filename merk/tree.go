package merk

import (
	"bytes"
	"context"

	"github.com/arborledger/grovedb/storage"
)

var rootPointerKey = []byte("__merk_root__")

// Tree is a balanced, authenticated key-value tree (spec.md §3/§4.1, C6).
// Every node is its own row in the backing storage.Context, keyed by the
// node's own key; the root pointer (the current root node's key, or
// absent for an empty tree) is persisted under a fixed meta key.
type Tree struct {
	sc    storage.Context
	cache *SubtreeCache
}

// Open loads a Tree over sc, wiring in a SubtreeCache the way Trillian's
// storage/cache.SubtreeCache fronts its NodeStorage (grounded on
// pphaneuf-trillian's storage/cache/subtree_cache_test.go).
func Open(sc storage.Context) *Tree {
	return &Tree{sc: sc, cache: newSubtreeCache()}
}

func (t *Tree) loadNode(ctx context.Context, key []byte) (*Node, error) {
	if n := t.cache.get(key); n != nil {
		return n, nil
	}
	raw, err := t.sc.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrCorruptedData
	}
	n, err := decodeNode(raw)
	if err != nil {
		return nil, err
	}
	t.cache.put(key, n)
	return n, nil
}

func (t *Tree) saveNode(ctx context.Context, n *Node) error {
	t.cache.put(n.Key, n)
	return t.sc.Put(ctx, n.Key, encodeNode(n))
}

func (t *Tree) deleteNode(ctx context.Context, key []byte) error {
	t.cache.invalidate(key)
	return t.sc.Delete(ctx, key)
}

func (t *Tree) rootKey(ctx context.Context) ([]byte, error) {
	return t.sc.Get(ctx, rootPointerKey)
}

func (t *Tree) setRootKey(ctx context.Context, key []byte) error {
	if key == nil {
		return t.sc.Delete(ctx, rootPointerKey)
	}
	return t.sc.Put(ctx, rootPointerKey, key)
}

// RootHash returns the hash of the current root node, or the all-zeros
// empty constant if the tree holds no entries.
func (t *Tree) RootHash(ctx context.Context) ([32]byte, error) {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return [32]byte{}, err
	}
	if rk == nil {
		return [32]byte{}, nil
	}
	root, err := t.loadNode(ctx, rk)
	if err != nil {
		return [32]byte{}, err
	}
	return root.hash(), nil
}

// RootKey returns the current root node's own key, or nil for an empty
// tree. This is the value a subtree-kind element's RootKey field stores so
// a parent Merk can address (and, during chunked replication, re-walk
// from) its child's root node directly (spec.md §3's "a subtree-kind
// element stores in its value the child's root-hash and aggregate").
func (t *Tree) RootKey(ctx context.Context) ([]byte, error) {
	return t.rootKey(ctx)
}

// RootAggregate returns the current root's subtree aggregate, or the
// zero aggregate for an empty tree.
func (t *Tree) RootAggregate(ctx context.Context) (Aggregate, error) {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return Aggregate{}, err
	}
	if rk == nil {
		return Aggregate{}, nil
	}
	root, err := t.loadNode(ctx, rk)
	if err != nil {
		return Aggregate{}, err
	}
	return root.aggregate(), nil
}

// Get returns the value stored at key.
func (t *Tree) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	rk, err := t.rootKey(ctx)
	if err != nil || rk == nil {
		return nil, false, err
	}
	cur := rk
	for cur != nil {
		n, err := t.loadNode(ctx, cur)
		if err != nil {
			return nil, false, err
		}
		switch c := bytes.Compare(key, n.Key); {
		case c == 0:
			return n.Value, true, nil
		case c < 0:
			if n.Left == nil {
				return nil, false, nil
			}
			cur = n.Left.Key
		default:
			if n.Right == nil {
				return nil, false, nil
			}
			cur = n.Right.Key
		}
	}
	return nil, false, nil
}

// PutOp is one entry of a batch passed to Apply: either a Put(value,
// feature) or a Delete, keyed by Key.
type PutOp struct {
	Key     []byte
	Delete  bool
	Value   []byte
	Feature FeatureType
	Flags   []byte
	// SumContribution is this node's own addend to the subtree sum,
	// consulted only when Feature tracks a sum (FeatureSum, FeatureCountSum
	// or FeatureCountSumProvable).
	SumContribution int64
	// CountContribution overrides this node's own addend to the subtree
	// count (consulted only when Feature tracks a count: FeatureCount,
	// FeatureCountSum or either provable variant); nil defaults to 1, the ordinary "this leaf counts
	// as one entry" case. A caller propagating a nested count subtree's
	// own aggregate upward (rather than inserting a plain counted leaf)
	// supplies the subtree's current count here instead.
	CountContribution *uint64
}

// Cost is the accounting record Apply returns: bytes added/removed and
// node touch counts, the shape spec.md §4.10 builds its estimators
// around.
type Cost struct {
	BytesAdded   uint64
	BytesRemoved uint64
	NodesTouched uint64
}

// Apply validates that batch is sorted by Key with no duplicates, then
// delegates to ApplyUnchecked (spec.md §4.1).
func (t *Tree) Apply(ctx context.Context, batch []PutOp) (Cost, error) {
	for i := 1; i < len(batch); i++ {
		if bytes.Compare(batch[i-1].Key, batch[i].Key) >= 0 {
			return Cost{}, ErrInvalidInput
		}
	}
	return t.ApplyUnchecked(ctx, batch, nil)
}

// ApplyOptions carries the optional callbacks apply_unchecked accepts
// per spec.md §4.1: an old-flag preservation function and a flag-update
// delta dispatcher. The other callbacks spec.md names (old-value-cost,
// value-defined-cost, just-in-time tree-value updater, sectioned
// removal-bytes resolver) are cost-accounting refinements layered over
// the same bytes-added/removed counters ApplyUnchecked already tracks,
// and are intentionally left for a caller to compute from the returned
// Cost rather than threaded through here.
type ApplyOptions struct {
	PreserveFlags func(oldFlags []byte) ([]byte, error)
	OnFlagsUpdate FlagsUpdate
}

// ApplyUnchecked applies batch one op at a time in the order given,
// without checking that keys are sorted or unique.
func (t *Tree) ApplyUnchecked(ctx context.Context, batch []PutOp, opts *ApplyOptions) (Cost, error) {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return Cost{}, err
	}
	var cost Cost
	for _, op := range batch {
		if op.Delete {
			newRoot, removed, err := t.delete(ctx, rk, op.Key, &cost)
			if err != nil {
				return Cost{}, err
			}
			if removed {
				rk = linkKeyOrNil(newRoot)
			}
			continue
		}
		newRoot, err := t.insert(ctx, rk, op, opts, &cost)
		if err != nil {
			return Cost{}, err
		}
		rk = newRoot.Key
	}
	if err := t.setRootKey(ctx, rk); err != nil {
		return Cost{}, err
	}
	return cost, nil
}

// Iterate walks every entry in ascending key order, calling fn with each
// key and value until it returns false or the tree is exhausted.
func (t *Tree) Iterate(ctx context.Context, fn func(key, value []byte) (bool, error)) error {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return err
	}
	_, err = t.iterateSubtree(ctx, rk, fn)
	return err
}

func (t *Tree) iterateSubtree(ctx context.Context, key []byte, fn func(key, value []byte) (bool, error)) (bool, error) {
	if key == nil {
		return true, nil
	}
	n, err := t.loadNode(ctx, key)
	if err != nil {
		return false, err
	}
	if n.Left != nil {
		cont, err := t.iterateSubtree(ctx, n.Left.Key, fn)
		if err != nil || !cont {
			return cont, err
		}
	}
	cont, err := fn(n.Key, n.Value)
	if err != nil || !cont {
		return cont, err
	}
	if n.Right != nil {
		return t.iterateSubtree(ctx, n.Right.Key, fn)
	}
	return true, nil
}

func linkKeyOrNil(l *Link) []byte {
	if l == nil {
		return nil
	}
	return l.Key
}
