package merk

import "context"

// MinTrunkHeight is the minimum trunk height spec.md §4.1 references
// ("when the trunk was at least MIN_TRUNK_HEIGHT") below which restoring
// a trunk skips the child-height re-walk, since a trunk this shallow has
// no meaningful intermediate heights to reconstruct.
const MinTrunkHeight = 2

// ProduceTrunk emits the top trunkHeight levels of the tree as a proof,
// pruning every subtree at that depth to a NodeHash entry, and returns
// the ordered set of pruned boundary links — the exact (parent key,
// side) pairs a caller must request leaf chunks for next (spec.md §4.1:
// "a trunk chunk (top H/2 levels)").
func (t *Tree) ProduceTrunk(ctx context.Context, trunkHeight int) ([]Op, []TerminalRef, error) {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return nil, nil, err
	}
	if rk == nil {
		return nil, nil, ErrEmptyTree
	}
	var ops []Op
	var terminals []TerminalRef
	if _, err := t.emitSubtreeProof(ctx, rk, 0, trunkHeight, &ops, &terminals); err != nil {
		return nil, nil, err
	}
	return ops, terminals, nil
}

// ProduceLeaf emits a full, unpruned proof of the subtree rooted at key
// — the bottom chunk a Restorer slots in under a trunk boundary
// (spec.md §4.1: "a sequence of leaf chunks, each covering a bottom
// subtree under a specific trunk leaf").
func (t *Tree) ProduceLeaf(ctx context.Context, key []byte) ([]Op, error) {
	return t.GenerateProof(ctx, key, -1)
}
