package merk

import (
	"github.com/arborledger/grovedb/internal/grovehash"
)

// Node is a single Merk tree node, persisted under its key in the
// backing storage.Context. Grounded on urkle's HashLeaf/HashBranch split
// (urkle/hash.go) generalized from a fixed bit-indexed trie to a
// key-ordered balanced binary tree with polymorphic feature types.
type Node struct {
	Key       []byte
	Value     []byte
	ValueHash [32]byte
	Feature   FeatureType
	Own       Aggregate // this node's own contribution to the aggregate
	Flags     []byte    // spec.md §4.1 flags, opaque to the tree itself

	Left  *Link
	Right *Link
}

// KeyHash is the domain-tagged digest of the node's key, folded into the
// node hash alongside the value hash (spec.md §3: "each node holds ... a
// key-hash, a value-hash").
func (n *Node) KeyHash() [32]byte {
	return grovehash.Sum32(grovehash.TagMerkKey, n.Key)
}

// Link is a child reference: either a full in-memory Node (Full != nil)
// or a pruned reference carrying only what's needed to authenticate and
// re-load it (spec.md §3: "a link stores either a full child reference
// ... or a pruned hash").
type Link struct {
	Key       []byte
	Hash      [32]byte
	Height    uint8
	Aggregate Aggregate
	Full      *Node
}

func (l *Link) height() uint8 {
	if l == nil {
		return 0
	}
	return l.Height
}

func (l *Link) hash() [32]byte {
	if l == nil {
		return grovehash.Empty32
	}
	return l.Hash
}

func (l *Link) aggregate() Aggregate {
	if l == nil {
		return Aggregate{}
	}
	return l.Aggregate
}

// height returns the node's own height: 1 + max(child heights), 1 for a
// leaf (both children nil).
func (n *Node) height() uint8 {
	lh, rh := n.Left.height(), n.Right.height()
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

// balanceFactor is left height minus right height; the AVL invariant
// requires this stay within [-1, 1].
func (n *Node) balanceFactor() int {
	return int(n.Left.height()) - int(n.Right.height())
}

// aggregate is this node's subtree aggregate: its own contribution
// folded with both children's, the way spec.md §3 describes aggregate
// trees folding "children's aggregates through the parent hash".
func (n *Node) aggregate() Aggregate {
	return foldAggregate(n.Own, n.Left.aggregate(), n.Right.aggregate())
}

// hash computes this node's authenticating hash per its feature type.
// Basic, Count and CountSum nodes bind feature+key+valueHash+children
// hashes; Sum, CountProvable and CountSumProvable (FeatureType.Provable)
// additionally fold in the subtree aggregate
// (spec.md §4.1: "Provable count/sum variants additionally fold the
// aggregate value into the hash input").
func (n *Node) hash() [32]byte {
	return computeNodeHash(n.Feature, n.KeyHash(), n.ValueHash, n.Left.hash(), n.Right.hash(), n.aggregate())
}

// computeNodeHash is the single authenticating-hash formula every node in
// the tree — live or reconstructed from a proof — must agree on:
// feature-tagged fold of key-hash, value-hash and both children's
// hashes, additionally binding the subtree aggregate for provable
// feature types (spec.md §4.1).
func computeNodeHash(feature FeatureType, keyHash, valueHash, left, right [32]byte, agg Aggregate) [32]byte {
	tag := featureTag(feature)
	if feature.Provable() {
		aggHash := grovehash.Sum32(grovehash.TagMerkAggregate, encodeAggregate(agg))
		return grovehash.Sum32(tag, keyHash[:], valueHash[:], left[:], right[:], aggHash[:])
	}
	return grovehash.Sum32(tag, keyHash[:], valueHash[:], left[:], right[:])
}

func featureTag(f FeatureType) byte {
	switch f {
	case FeatureSum:
		return grovehash.TagMerkSum
	case FeatureCount:
		return grovehash.TagMerkCount
	case FeatureCountSum:
		return grovehash.TagMerkCountSum
	case FeatureCountProvable:
		return grovehash.TagMerkCountProvable
	case FeatureCountSumProvable:
		return grovehash.TagMerkCountSumProvable
	default:
		return grovehash.TagMerkBasic
	}
}

func encodeAggregate(a Aggregate) []byte {
	buf := make([]byte, 16)
	putI64(buf[0:8], a.Sum)
	putU64(buf[8:16], a.Count)
	return buf
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func putI64(b []byte, v int64) { putU64(b, uint64(v)) }

// toLink captures n as a full Link, recomputing height/hash/aggregate
// from its current children — callers must have already recomputed the
// children's links before calling this.
func (n *Node) toLink() *Link {
	return &Link{
		Key:       append([]byte(nil), n.Key...),
		Hash:      n.hash(),
		Height:    n.height(),
		Aggregate: n.aggregate(),
		Full:      n,
	}
}
