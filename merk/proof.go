package merk

import (
	"context"

	"github.com/arborledger/grovedb/internal/grovehash"
)

// ProofNodeKind is the discriminant of one proof-carried node, the five
// base kinds spec.md §4.1 lists plus their aggregate-carrying variants
// (grounded on grovedb-merk's own proof Node enum: KV, KVValueHash,
// KVDigest, KVHash, Hash, and the *Count/*ValueHash combinations —
// _examples/original_source/merk/src/proofs/branch/mod.rs).
type ProofNodeKind uint8

const (
	// NodeKV reveals the full key and value.
	NodeKV ProofNodeKind = iota
	// NodeKVValueHash reveals the key and the value's hash, not the value.
	NodeKVValueHash
	// NodeKVDigest reveals only the key's hash and the value's hash.
	NodeKVDigest
	// NodeKVHash carries only the node's own precomputed hash, but marks
	// the position as a known key boundary (used by chunked replication
	// to later rewrite the key once a leaf chunk resolves it).
	NodeKVHash
	// NodeHash is a fully opaque pruned subtree: only its hash (and, for
	// aggregate trees, its aggregate) is known.
	NodeHash
)

// ProofNode is the payload of a Push op.
type ProofNode struct {
	Kind      ProofNodeKind
	Key       []byte
	Value     []byte
	ValueHash [32]byte
	KeyHash   [32]byte
	Hash      [32]byte
	Feature   FeatureType
	Aggregate Aggregate
}

// OpKind is the stack-machine instruction a proof op sequence is built
// from (spec.md §4.1: "Push(Node), Parent, Child, ParentInverted,
// ChildInverted").
type OpKind uint8

const (
	OpPush OpKind = iota
	OpParent
	OpChild
	OpParentInverted
	OpChildInverted
)

// Op is one instruction of a proof. Node is populated only for OpPush.
type Op struct {
	Kind OpKind
	Node *ProofNode
}

// execNode is the in-progress tree built while replaying an Op sequence.
type execNode struct {
	pn          *ProofNode
	left, right *execNode
}

// finalize recomputes this node's hash and aggregate bottom-up: for a
// NodeHash/NodeKVHash node the values are taken as given (the subtree is
// pruned and cannot be recomputed); otherwise the children are finalized
// first and folded through computeNodeHash.
func (e *execNode) finalize() ([32]byte, Aggregate) {
	if e.pn.Kind == NodeHash || e.pn.Kind == NodeKVHash {
		return e.pn.Hash, e.pn.Aggregate
	}

	var leftHash, rightHash [32]byte
	var leftAgg, rightAgg Aggregate
	if e.left != nil {
		leftHash, leftAgg = e.left.finalize()
	} else {
		leftHash = grovehash.Empty32
	}
	if e.right != nil {
		rightHash, rightAgg = e.right.finalize()
	} else {
		rightHash = grovehash.Empty32
	}

	keyHash := e.pn.KeyHash
	var valueHash [32]byte
	switch e.pn.Kind {
	case NodeKV:
		keyHash = grovehash.Sum32(grovehash.TagMerkKey, e.pn.Key)
		valueHash = hashValue(e.pn.Value)
	case NodeKVValueHash:
		keyHash = grovehash.Sum32(grovehash.TagMerkKey, e.pn.Key)
		valueHash = e.pn.ValueHash
	case NodeKVDigest:
		valueHash = e.pn.ValueHash
	}

	agg := foldAggregate(e.pn.Aggregate, leftAgg, rightAgg)
	return computeNodeHash(e.pn.Feature, keyHash, valueHash, leftHash, rightHash, agg), agg
}

// Execute replays ops against a stack machine and returns the
// reconstructed root node, or ErrProofMalformed if the sequence cannot
// be replayed to exactly one remaining stack entry.
func Execute(ops []Op) (*execNode, error) {
	var stack []*execNode
	pop := func() (*execNode, bool) {
		if len(stack) == 0 {
			return nil, false
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return n, true
	}

	for _, op := range ops {
		switch op.Kind {
		case OpPush:
			if op.Node == nil {
				return nil, ErrProofMalformed
			}
			stack = append(stack, &execNode{pn: op.Node})
		case OpParent:
			top, ok1 := pop()
			left, ok2 := pop()
			if !ok1 || !ok2 {
				return nil, ErrProofMalformed
			}
			top.left = left
			stack = append(stack, top)
		case OpChild:
			right, ok1 := pop()
			top, ok2 := pop()
			if !ok1 || !ok2 {
				return nil, ErrProofMalformed
			}
			top.right = right
			stack = append(stack, top)
		case OpParentInverted:
			top, ok1 := pop()
			right, ok2 := pop()
			if !ok1 || !ok2 {
				return nil, ErrProofMalformed
			}
			top.right = right
			stack = append(stack, top)
		case OpChildInverted:
			left, ok1 := pop()
			top, ok2 := pop()
			if !ok1 || !ok2 {
				return nil, ErrProofMalformed
			}
			top.left = left
			stack = append(stack, top)
		default:
			return nil, ErrProofMalformed
		}
	}
	if len(stack) != 1 {
		return nil, ErrProofMalformed
	}
	return stack[0], nil
}

// VerifyResult is what Verify returns: the proof's reconstructed root
// hash plus the revealed key/value pairs (from NodeKV entries only).
type VerifyResult struct {
	RootHash [32]byte
	Values   map[string][]byte
}

// Verify replays ops, folds hashes bottom-up, and collects every
// NodeKV entry's value — spec.md §4.1: "Verification executes the ops
// and returns (root_hash, result_set); a caller compares root_hash to an
// expected value."
func Verify(ops []Op) (VerifyResult, error) {
	root, err := Execute(ops)
	if err != nil {
		return VerifyResult{}, err
	}
	rootHash, _ := root.finalize()
	values := make(map[string][]byte)
	collectKV(root, values)
	return VerifyResult{RootHash: rootHash, Values: values}, nil
}

func collectKV(n *execNode, out map[string][]byte) {
	if n == nil {
		return
	}
	if n.pn.Kind == NodeKV {
		out[string(n.pn.Key)] = n.pn.Value
	}
	collectKV(n.left, out)
	collectKV(n.right, out)
}

// GenerateProof produces a full, in-order-reconstructible op sequence
// for the subtree rooted at key, revealing every key and value down to
// maxDepth levels below it (maxDepth < 0 means unbounded — reveal the
// whole subtree). Nodes at exactly maxDepth are replaced with NodeHash
// entries so the caller can defer loading them (used by chunk
// production).
func (t *Tree) GenerateProof(ctx context.Context, key []byte, maxDepth int) ([]Op, error) {
	if key == nil {
		return nil, ErrEmptyTree
	}
	var ops []Op
	_, err := t.emitSubtreeProof(ctx, key, 0, maxDepth, &ops, nil)
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// TerminalRef identifies one pruned boundary link in a trunk proof: the
// parent node's key and which side (left/right) was replaced with
// NodeHash, plus the hash and aggregate that child must verify against.
// Key is the pruned child's own storage key — meaningless to a Restorer
// (which must not trust it before the leaf chunk is verified) but what
// lets the side that still holds the full tree call ProduceLeaf for the
// matching boundary.
type TerminalRef struct {
	ParentKey []byte
	Right     bool
	Hash      [32]byte
	Aggregate Aggregate
	Key       []byte
}

// emitSubtreeProof walks the subtree rooted at key depth-first in-order,
// appending proof ops. When terminals is non-nil, one TerminalRef is
// appended for every child link pruned to NodeHash — the boundary set a
// trunk chunk reports for subsequent leaf-chunk requests.
func (t *Tree) emitSubtreeProof(ctx context.Context, key []byte, depth, maxDepth int, ops *[]Op, terminals *[]TerminalRef) (*Node, error) {
	node, err := t.loadNode(ctx, key)
	if err != nil {
		return nil, err
	}

	if maxDepth >= 0 && depth == maxDepth {
		*ops = append(*ops, Op{Kind: OpPush, Node: &ProofNode{
			Kind:      NodeHash,
			Hash:      node.hash(),
			Aggregate: node.aggregate(),
		}})
		return node, nil
	}

	hasLeft := node.Left != nil
	if hasLeft {
		if maxDepth >= 0 && depth+1 == maxDepth && terminals != nil {
			left, err := t.loadNode(ctx, node.Left.Key)
			if err != nil {
				return nil, err
			}
			*terminals = append(*terminals, TerminalRef{
				ParentKey: append([]byte(nil), node.Key...),
				Right:     false,
				Hash:      left.hash(),
				Aggregate: left.aggregate(),
				Key:       append([]byte(nil), left.Key...),
			})
		}
		if _, err := t.emitSubtreeProof(ctx, node.Left.Key, depth+1, maxDepth, ops, terminals); err != nil {
			return nil, err
		}
	}
	*ops = append(*ops, Op{Kind: OpPush, Node: &ProofNode{
		Kind:      NodeKV,
		Key:       append([]byte(nil), node.Key...),
		Value:     append([]byte(nil), node.Value...),
		Feature:   node.Feature,
		Aggregate: node.Own,
	}})
	if hasLeft {
		*ops = append(*ops, Op{Kind: OpParent})
	}
	if node.Right != nil {
		if maxDepth >= 0 && depth+1 == maxDepth && terminals != nil {
			right, err := t.loadNode(ctx, node.Right.Key)
			if err != nil {
				return nil, err
			}
			*terminals = append(*terminals, TerminalRef{
				ParentKey: append([]byte(nil), node.Key...),
				Right:     true,
				Hash:      right.hash(),
				Aggregate: right.aggregate(),
				Key:       append([]byte(nil), right.Key...),
			})
		}
		if _, err := t.emitSubtreeProof(ctx, node.Right.Key, depth+1, maxDepth, ops, terminals); err != nil {
			return nil, err
		}
		*ops = append(*ops, Op{Kind: OpChild})
	}
	return node, nil
}

// GenerateFullProof is GenerateProof over the tree's entire current
// contents, for verification scenarios that don't need chunking.
func (t *Tree) GenerateFullProof(ctx context.Context) ([]Op, error) {
	rk, err := t.rootKey(ctx)
	if err != nil {
		return nil, err
	}
	if rk == nil {
		return nil, ErrEmptyTree
	}
	return t.GenerateProof(ctx, rk, -1)
}
