package mmr

import "context"

// Push adds a single leaf to the MMR and back-fills any interior nodes
// "above and to the left" of it, returning the position the leaf was
// assigned at (spec.md §4.2's push(leaf) -> position).
//
// The back-fill loop is unchanged from the teacher's AddHashedLeaf: because
// of the MMR's structure, for any node appended, if the position that would
// come next is higher in the tree, the node just appended completes at
// least one new peak, and the same holds recursively for however many
// peaks complete at once.
func Push(ctx context.Context, store Store, leaf []byte) (uint64, error) {
	return pushNode(ctx, store, leafNode(leaf))
}

// PushDataLeaf adds a leaf whose hash is supplied by the caller rather than
// derived from value via the leaf domain tag — used by the Bulk Append
// Tree to record an epoch blob's hash without forcing this package to know
// about epoch-blob hashing conventions.
func PushDataLeaf(ctx context.Context, store Store, hash, value []byte) (uint64, error) {
	return pushNode(ctx, store, dataLeafNode(hash, value))
}

func pushNode(ctx context.Context, store Store, leaf Node) (uint64, error) {
	pos, err := store.Append(ctx, leaf)
	if err != nil {
		return 0, err
	}

	// i is the position the next node would take.
	i := pos + 1
	height := uint64(0)
	for IndexHeight(i) > height {
		iLeft := i - (2 << height)
		iRight := i - 1

		left, err := store.Get(ctx, iLeft)
		if err != nil {
			return 0, err
		}
		right, err := store.Get(ctx, iRight)
		if err != nil {
			return 0, err
		}

		parent := internalNode(left.Hash, right.Hash)
		if _, err = store.Append(ctx, parent); err != nil {
			return 0, err
		}
		i++
		height++
	}
	return pos, nil
}
