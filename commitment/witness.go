package commitment

import (
	"context"

	"github.com/arborledger/grovedb/storage"
)

// WitnessTree wraps Tree with the checkpoint/witness machinery spec.md
// §4.5 describes for the "companion witness-tree": checkpointed snapshots
// of which positions are reachable for witnessing, plus a bounded retention
// window.
//
// spec.md §4.5 and §9 flag the duplicate-checkpoint-id behavior as a sharp
// edge rather than a bug: re-using an id is caller error, and the
// specification requires preserving that trap rather than silently
// tolerating it.
type WitnessTree struct {
	*Tree
	marked         map[uint64]bool
	seenIDs        map[uint64]bool
	checkpoints    []checkpointRecord
	maxCheckpoints int
}

type checkpointRecord struct {
	id     uint64
	size   uint64
	marked map[uint64]bool
}

// OpenWitnessTree opens a witness-capable commitment tree, retaining at
// most maxCheckpoints checkpoints before pruning the oldest.
func OpenWitnessTree(ctx context.Context, sc storage.Context, chunkSize uint64, maxCheckpoints int) (*WitnessTree, error) {
	base, err := Open(ctx, sc, chunkSize)
	if err != nil {
		return nil, err
	}
	return &WitnessTree{
		Tree:           base,
		marked:         make(map[uint64]bool),
		seenIDs:        make(map[uint64]bool),
		maxCheckpoints: maxCheckpoints,
	}, nil
}

// Mark records position as one whose witness may later be requested.
func (w *WitnessTree) Mark(position uint64) {
	w.marked[position] = true
}

// Checkpoint creates a new checkpoint entry iff id has not been seen
// before, snapshotting the current tree size and marked-position set. A
// duplicate id returns false and leaves the checkpoint frontier (and
// therefore witness reachability) exactly as it was — this is the hard
// trap spec.md §4.5 calls out: marks made after the last successful
// checkpoint are unreachable by witness() until a fresh id succeeds.
func (w *WitnessTree) Checkpoint(id uint64) bool {
	if w.seenIDs[id] {
		return false
	}
	w.seenIDs[id] = true
	snapshot := make(map[uint64]bool, len(w.marked))
	for p := range w.marked {
		snapshot[p] = true
	}
	w.checkpoints = append(w.checkpoints, checkpointRecord{
		id: id, size: w.TreeSize(), marked: snapshot,
	})
	if w.maxCheckpoints > 0 && len(w.checkpoints) > w.maxCheckpoints {
		w.checkpoints = w.checkpoints[len(w.checkpoints)-w.maxCheckpoints:]
	}
	return true
}

// Witness returns the authentication path for position as of the
// checkpoint checkpointDepth entries back from the most recent one (0 =
// most recent), and the anchor that path verifies against. It fails
// ErrPositionNotWitnessable if position wasn't marked by that checkpoint,
// or ErrUnknownCheckpoint if checkpointDepth exceeds retained history.
func (w *WitnessTree) Witness(ctx context.Context, position uint64, checkpointDepth uint32) ([Depth][32]byte, [32]byte, error) {
	idx := len(w.checkpoints) - 1 - int(checkpointDepth)
	if idx < 0 {
		return [Depth][32]byte{}, [32]byte{}, ErrUnknownCheckpoint
	}
	cp := w.checkpoints[idx]
	if position >= cp.size || !cp.marked[position] {
		return [Depth][32]byte{}, [32]byte{}, ErrPositionNotWitnessable
	}

	var path [Depth][32]byte
	for level := 0; level < Depth; level++ {
		siblingIndex := (position >> uint(level)) ^ 1
		siblingStart := siblingIndex << uint(level)
		h, err := w.subtree(ctx, level, siblingStart, cp.size)
		if err != nil {
			return [Depth][32]byte{}, [32]byte{}, err
		}
		path[level] = h
	}
	anchor, err := w.subtree(ctx, Depth, 0, cp.size)
	if err != nil {
		return [Depth][32]byte{}, [32]byte{}, err
	}
	return path, anchor, nil
}

// subtree recomputes the hash of the subtree of the given level rooted at
// leaf index start, treating every leaf at or beyond size as empty. This
// rebuilds a historical root as of an earlier tree size, which the live
// frontier (always advanced to the current size) cannot answer.
func (w *WitnessTree) subtree(ctx context.Context, level int, start, size uint64) ([32]byte, error) {
	if start >= size {
		return zeroHashes[level], nil
	}
	if level == 0 {
		item, ok, err := w.GetItem(ctx, start)
		if err != nil {
			return [32]byte{}, err
		}
		if !ok {
			return zeroHashes[0], nil
		}
		return leafHash(item.Cmx), nil
	}
	half := uint64(1) << uint(level-1)
	left, err := w.subtree(ctx, level-1, start, size)
	if err != nil {
		return [32]byte{}, err
	}
	right, err := w.subtree(ctx, level-1, start+half, size)
	if err != nil {
		return [32]byte{}, err
	}
	return combine(left, right), nil
}
