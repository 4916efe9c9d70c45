package merk

import (
	"context"

	"github.com/arborledger/grovedb/storage"
)

// Restorer reconstructs a Merk tree from a trunk chunk followed by its
// leaf chunks, verifying each against the hash its parent declared
// before it was ever sent (spec.md §4.1's Restore contract). It must be
// given an empty context to seed into and the root hash the fully
// restored tree is expected to produce.
type Restorer struct {
	tree           *Tree
	expectedRoot   [32]byte
	trustFirstHash bool
	trunkHeight    int
	trunkApplied   bool
	pending        []TerminalRef
}

// NewRestorer constructs a Restorer over sc (which must be empty) that
// will accept a trunk, then its leaf chunks, in production order.
func NewRestorer(sc storage.Context, expectedRoot [32]byte) *Restorer {
	return &Restorer{tree: Open(sc), expectedRoot: expectedRoot}
}

// NewRestorerTrusting constructs a Restorer that accepts whatever root
// hash its first (trunk) chunk reconstructs, rather than checking it
// against a caller-supplied value. It exists for nested subtrees
// discovered mid-replication whose only authenticated reference from
// their parent is a root *key* (see DESIGN.md's note on element.Element
// not carrying a child subtree's root hash): a caller that does have an
// authentic expected hash for sc should use NewRestorer instead.
func NewRestorerTrusting(sc storage.Context) *Restorer {
	return &Restorer{tree: Open(sc), trustFirstHash: true}
}

// materialize persists the exec-tree rooted at e into storage, pruned
// children becoming placeholder Links (real hash/aggregate, no key yet)
// and revealed children recursing first so parent links can cite their
// real key/height once known.
func (t *Tree) materialize(ctx context.Context, e *execNode) (*Node, error) {
	var left, right *Link
	if e.left != nil {
		if e.left.pn.Kind == NodeHash || e.left.pn.Kind == NodeKVHash {
			h, agg := e.left.finalize()
			left = &Link{Hash: h, Aggregate: agg}
		} else {
			child, err := t.materialize(ctx, e.left)
			if err != nil {
				return nil, err
			}
			left = child.toLink()
		}
	}
	if e.right != nil {
		if e.right.pn.Kind == NodeHash || e.right.pn.Kind == NodeKVHash {
			h, agg := e.right.finalize()
			right = &Link{Hash: h, Aggregate: agg}
		} else {
			child, err := t.materialize(ctx, e.right)
			if err != nil {
				return nil, err
			}
			right = child.toLink()
		}
	}

	n := &Node{
		Key:       append([]byte(nil), e.pn.Key...),
		Value:     append([]byte(nil), e.pn.Value...),
		ValueHash: hashValue(e.pn.Value),
		Feature:   e.pn.Feature,
		Own:       e.pn.Aggregate,
		Left:      left,
		Right:     right,
	}
	if err := t.saveNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// ApplyTrunk verifies ops reproduces the Restorer's expected root hash,
// persists every revealed node, and queues terminals (in the order
// ProduceTrunk reported them) as the leaf chunks still owed.
func (r *Restorer) ApplyTrunk(ctx context.Context, ops []Op, terminals []TerminalRef, trunkHeight int) error {
	if r.trunkApplied {
		return ErrChunksOutOfOrder
	}
	root, err := Execute(ops)
	if err != nil {
		return err
	}
	rootHash, _ := root.finalize()
	if r.trustFirstHash {
		r.expectedRoot = rootHash
	} else if rootHash != r.expectedRoot {
		return ErrChunkHashMismatch
	}
	rootNode, err := r.tree.materialize(ctx, root)
	if err != nil {
		return err
	}
	if err := r.tree.setRootKey(ctx, rootNode.Key); err != nil {
		return err
	}
	r.trunkApplied = true
	r.trunkHeight = trunkHeight
	r.pending = append([]TerminalRef(nil), terminals...)
	return nil
}

// ApplyLeaf verifies ops reproduces the hash the next outstanding
// terminal declared, persists the leaf subtree, and rewrites the
// trunk-leaf-to-bottom-subtree link's key (spec.md §4.1). Leaf chunks
// must be supplied in the exact order ProduceTrunk reported them.
func (r *Restorer) ApplyLeaf(ctx context.Context, ops []Op) error {
	if !r.trunkApplied || len(r.pending) == 0 {
		return ErrChunksOutOfOrder
	}
	next := r.pending[0]

	root, err := Execute(ops)
	if err != nil {
		return err
	}
	rootHash, _ := root.finalize()
	if rootHash != next.Hash {
		return ErrChunkHashMismatch
	}
	leafRoot, err := r.tree.materialize(ctx, root)
	if err != nil {
		return err
	}

	parent, err := r.tree.loadNode(ctx, next.ParentKey)
	if err != nil {
		return err
	}
	if next.Right {
		parent.Right = leafRoot.toLink()
	} else {
		parent.Left = leafRoot.toLink()
	}
	if err := r.tree.saveNode(ctx, parent); err != nil {
		return err
	}

	r.pending = r.pending[1:]
	return nil
}

// Remaining returns the number of leaf chunks still outstanding.
func (r *Restorer) Remaining() int { return len(r.pending) }

// Finalize fails with ErrRestoreIncomplete if any leaf chunk remains
// outstanding; otherwise, when the trunk was at least MinTrunkHeight, it
// re-walks the trunk bottom-up to correct every ancestor link's cached
// child-height now that the leaves' real heights are known (spec.md
// §4.1: "rewrites child-height annotations on the trunk by re-walking").
func (r *Restorer) Finalize(ctx context.Context) (*Tree, error) {
	if len(r.pending) != 0 {
		return nil, ErrRestoreIncomplete
	}
	if r.trunkHeight >= MinTrunkHeight {
		rk, err := r.tree.rootKey(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := r.tree.reheight(ctx, rk); err != nil {
			return nil, err
		}
	}
	return r.tree, nil
}

// reheight recomputes and, where stale, rewrites the height annotation
// every link in the subtree rooted at key carries for its child, and
// returns this node's own height to its caller.
func (t *Tree) reheight(ctx context.Context, key []byte) (uint8, error) {
	if key == nil {
		return 0, nil
	}
	node, err := t.loadNode(ctx, key)
	if err != nil {
		return 0, err
	}
	lh, err := t.reheight(ctx, linkKeyOrNil(node.Left))
	if err != nil {
		return 0, err
	}
	rh, err := t.reheight(ctx, linkKeyOrNil(node.Right))
	if err != nil {
		return 0, err
	}
	mutated := false
	if node.Left != nil && node.Left.Height != lh {
		node.Left.Height = lh
		mutated = true
	}
	if node.Right != nil && node.Right.Height != rh {
		node.Right.Height = rh
		mutated = true
	}
	if mutated {
		if err := t.saveNode(ctx, node); err != nil {
			return 0, err
		}
	}
	if lh > rh {
		return lh + 1, nil
	}
	return rh + 1, nil
}
