package commitment

import (
	"context"

	"github.com/arborledger/grovedb/bulktree"
	"github.com/arborledger/grovedb/storage"
)

// Tree is a commitment tree: a Sinsemilla frontier giving the compact
// anchor, plus a Bulk Append Tree storing the cmx‖payload records so a
// global position can be resolved back to its item (spec.md §4.5 and the
// "features recovered from original_source" note in SPEC_FULL.md §4 tying
// the anchor and the BulkAppendTree payload store into one append/result
// pair).
type Tree struct {
	sc       storage.Context
	frontier *Frontier
	payloads *bulktree.Tree
}

// AppendResult is returned by Append: the Sinsemilla anchor and the
// underlying bulk-tree state root, together with positional and cost
// metadata (SPEC_FULL.md §4's CommitmentAppendResult).
type AppendResult struct {
	SinsemillaRoot [32]byte
	BulkStateRoot  [32]byte
	GlobalPosition uint64
	HashCount      uint64
	Compacted      bool
}

// Open loads (or initializes) a commitment tree over sc. chunkSize is the
// epoch size of the underlying payload Bulk Append Tree (2^chunk_power per
// the CommitmentTree element's ChunkPower field) and must be a power of
// two.
func Open(ctx context.Context, sc storage.Context, chunkSize uint64) (*Tree, error) {
	frontier, err := LoadFrontier(ctx, storage.WithSubspace(sc, []byte("frontier")))
	if err != nil {
		return nil, err
	}
	payloads, err := bulktree.New(ctx, storage.WithSubspace(sc, []byte("payload")), chunkSize)
	if err != nil {
		return nil, err
	}
	return &Tree{sc: sc, frontier: frontier, payloads: payloads}, nil
}

// Append validates cmx as a prime-field element, folds it into the
// frontier, and records cmx‖payload in the payload store (spec.md §4.5's
// append(cmx) -> new_anchor, generalized to also return the payload's
// bulk-tree bookkeeping per SPEC_FULL.md §4).
func (t *Tree) Append(ctx context.Context, cmx, payload []byte) (AppendResult, error) {
	if err := ValidateFieldElement(cmx); err != nil {
		return AppendResult{}, err
	}

	leaf := leafHash(cmx)
	hashCount := t.frontier.Append(leaf) + 1 // +1 for the leaf hash itself
	anchor := t.frontier.Anchor()
	if err := SaveFrontier(ctx, storage.WithSubspace(t.sc, []byte("frontier")), t.frontier); err != nil {
		return AppendResult{}, err
	}

	record := make([]byte, 0, len(cmx)+len(payload))
	record = append(record, cmx...)
	record = append(record, payload...)
	bulkRes, err := t.payloads.Append(ctx, record)
	if err != nil {
		return AppendResult{}, err
	}

	return AppendResult{
		SinsemillaRoot: anchor,
		BulkStateRoot:  bulkRes.StateRoot,
		GlobalPosition: bulkRes.GlobalPos,
		HashCount:      hashCount + bulkRes.HashCount,
		Compacted:      bulkRes.Compacted,
	}, nil
}

// Anchor returns the tree's current 32-byte canonical anchor.
func (t *Tree) Anchor() [32]byte { return t.frontier.Anchor() }

// TreeSize returns the number of commitments appended.
func (t *Tree) TreeSize() uint64 { return t.frontier.Size() }

// Position is an alias for TreeSize, matching spec.md §4.5's position().
func (t *Tree) Position() uint64 { return t.TreeSize() }

// Item is a decoded cmx‖payload record.
type Item struct {
	Cmx     []byte
	Payload []byte
}

// GetItem resolves the item stored at globalPos, assuming a fixed 32-byte
// cmx prefix (spec.md §3: "Items cmx ‖ payload are ... stored in a
// count-indexed item structure where keys are 8-byte big-endian
// positions").
func (t *Tree) GetItem(ctx context.Context, globalPos uint64) (Item, bool, error) {
	raw, ok, err := t.payloads.GetValue(ctx, globalPos)
	if err != nil || !ok {
		return Item{}, ok, err
	}
	if len(raw) < 32 {
		return Item{}, false, ErrCiphertextTooShort
	}
	return Item{Cmx: raw[:32], Payload: raw[32:]}, true, nil
}
