// Package densetree implements the fixed-height complete binary Merkle
// tree of spec.md §3/§4.3 (C3): capacity 2^h-1, positions filled in
// strictly ascending index order, internal nodes committing to both their
// own value and both children's subtree hashes.
//
// Grounded on the teacher's mmr package for the "small functional
// primitives over explicit positions" style (mmr/indexheight.go), adapted
// from an append-*position* structure to a fixed-*capacity* one.
package densetree

import (
	"context"
	"encoding/binary"

	"github.com/arborledger/grovedb/internal/grovehash"
	"github.com/arborledger/grovedb/storage"
)

// MaxHeight bounds Height to what a uint64 position space and the wire
// format's height byte can express (spec.md §6.2: "height ∉ [1, 63]" is
// rejected).
const MaxHeight = 63

// Tree is a fixed-height dense tree backed by a storage.Context.
type Tree struct {
	sc     storage.Context
	height uint8
}

var emptyHash = grovehash.Sum32(grovehash.TagDenseEmpty)

// EmptyHash is the well-defined constant every unfilled position (and
// every out-of-range child slot) hashes to.
func EmptyHash() [32]byte { return emptyHash }

// Capacity returns 2^h - 1, the number of positions a tree of the given
// height can hold.
func Capacity(height uint8) uint64 {
	return (uint64(1) << height) - 1
}

// New opens a dense tree of the given height over sc. height must be in
// [1, MaxHeight].
func New(sc storage.Context, height uint8) (*Tree, error) {
	if height < 1 || height > MaxHeight {
		return nil, ErrInvalidHeight
	}
	return &Tree{sc: sc, height: height}, nil
}

// Height returns the tree's fixed height.
func (t *Tree) Height() uint8 { return t.height }

func leftChild(pos uint64) uint64  { return 2*pos + 1 }
func rightChild(pos uint64) uint64 { return 2*pos + 2 }

var countKey = []byte("__dense_count__")

func valueKey(pos uint64) []byte {
	var b [9]byte
	b[0] = 'v'
	binary.BigEndian.PutUint64(b[1:], pos)
	return b[:]
}

func hashKey(pos uint64) []byte {
	var b [9]byte
	b[0] = 'h'
	binary.BigEndian.PutUint64(b[1:], pos)
	return b[:]
}

// Count returns the number of currently filled positions.
func (t *Tree) Count(ctx context.Context) (uint64, error) {
	raw, err := t.sc.Get(ctx, countKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *Tree) setCount(ctx context.Context, n uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return t.sc.Put(ctx, countKey, b[:])
}

// Get returns the value stored at position, or (nil, false) if it is
// unfilled or out of range.
func (t *Tree) Get(ctx context.Context, pos uint64) ([]byte, bool, error) {
	if pos >= Capacity(t.height) {
		return nil, false, nil
	}
	raw, err := t.sc.Get(ctx, valueKey(pos))
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	return raw, true, nil
}

func (t *Tree) subtreeHash(ctx context.Context, pos uint64) ([32]byte, error) {
	if pos >= Capacity(t.height) {
		return emptyHash, nil
	}
	raw, err := t.sc.Get(ctx, hashKey(pos))
	if err != nil {
		return [32]byte{}, err
	}
	if raw == nil {
		return emptyHash, nil
	}
	var h [32]byte
	copy(h[:], raw)
	return h, nil
}

func (t *Tree) setSubtreeHash(ctx context.Context, pos uint64, h [32]byte) error {
	return t.sc.Put(ctx, hashKey(pos), h[:])
}

func ownHash(value []byte) [32]byte {
	return grovehash.Sum32(grovehash.TagDenseLeafLike, value)
}

func nodeHash(own, left, right [32]byte) [32]byte {
	return grovehash.Sum32(grovehash.TagDenseNode, own[:], left[:], right[:])
}

// recompute recomputes and stores the subtree hash at pos from its stored
// value and its children's (already-current) subtree hashes, then does the
// same for pos's ancestors up to the root.
func (t *Tree) recompute(ctx context.Context, pos uint64) error {
	for {
		value, ok, err := t.Get(ctx, pos)
		if err != nil {
			return err
		}
		var h [32]byte
		if !ok {
			h = emptyHash
		} else {
			left, err := t.subtreeHash(ctx, leftChild(pos))
			if err != nil {
				return err
			}
			right, err := t.subtreeHash(ctx, rightChild(pos))
			if err != nil {
				return err
			}
			h = nodeHash(ownHash(value), left, right)
		}
		if err := t.setSubtreeHash(ctx, pos, h); err != nil {
			return err
		}
		if pos == 0 {
			return nil
		}
		pos = (pos - 1) / 2
	}
}

// Insert stores value at the next ascending unfilled position and returns
// (new_root_hash, position) per spec.md §4.3.
func (t *Tree) Insert(ctx context.Context, value []byte) ([32]byte, uint64, error) {
	count, err := t.Count(ctx)
	if err != nil {
		return [32]byte{}, 0, err
	}
	capacity := Capacity(t.height)
	if count >= capacity {
		return [32]byte{}, 0, ErrTreeFull
	}
	pos := count
	if err := t.sc.Put(ctx, valueKey(pos), append([]byte(nil), value...)); err != nil {
		return [32]byte{}, 0, err
	}
	if err := t.recompute(ctx, pos); err != nil {
		return [32]byte{}, 0, err
	}
	if err := t.setCount(ctx, count+1); err != nil {
		return [32]byte{}, 0, err
	}
	root, err := t.RootHash(ctx)
	return root, pos, err
}

// RootHash returns the tree's current root hash.
func (t *Tree) RootHash(ctx context.Context) ([32]byte, error) {
	return t.subtreeHash(ctx, 0)
}

// Clear deletes every stored value and hash entry, resetting the tree to
// empty. Used by the Bulk Append Tree to drain its dense buffer into an
// epoch blob once it fills (spec.md §4.4 step 2).
func (t *Tree) Clear(ctx context.Context) error {
	count, err := t.Count(ctx)
	if err != nil {
		return err
	}
	for pos := uint64(0); pos < count; pos++ {
		if err := t.sc.Delete(ctx, valueKey(pos)); err != nil {
			return err
		}
		if err := t.sc.Delete(ctx, hashKey(pos)); err != nil {
			return err
		}
	}
	// Ancestor hash keys above the highest filled position may also have
	// been written by recompute; positions < count covers every ancestor
	// since ascending fill means a parent is always filled before, thus
	// numerically lower than, any of its filled children.
	return t.sc.Delete(ctx, countKey)
}
