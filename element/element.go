// Package element implements the tagged-union Element model of spec.md §3:
// ordinary items, aggregated items, references and every specialized
// subtree kind, under one stable, append-only discriminant order.
//
// The package follows the teacher's own preference for pattern-matching
// over dynamic dispatch (mmr.Node's Kind byte, massifs/logformat.go's
// format-version switches) rather than an interface-per-variant hierarchy:
// spec.md §9 calls this out explicitly ("resolved by pattern-matching on
// the discriminant, not by dynamic dispatch").
package element

// Kind is the stable, append-only discriminant for an Element variant.
// Values are never reordered or reused; new variants are appended to the
// end of the list (spec.md §3's invariant).
type Kind uint8

const (
	KindItem Kind = iota
	KindReference
	KindTree
	KindSumItem
	KindSumTree
	KindBigSumTree
	KindCountTree
	KindCountSumTree
	KindProvableCountTree
	KindProvableCountSumTree
	KindItemWithSumItem
	KindCommitmentTree
	KindMmrTree
	KindBulkAppendTree
	KindDenseAppendOnlyFixedSizeTree
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "Item"
	case KindReference:
		return "Reference"
	case KindTree:
		return "Tree"
	case KindSumItem:
		return "SumItem"
	case KindSumTree:
		return "SumTree"
	case KindBigSumTree:
		return "BigSumTree"
	case KindCountTree:
		return "CountTree"
	case KindCountSumTree:
		return "CountSumTree"
	case KindProvableCountTree:
		return "ProvableCountTree"
	case KindProvableCountSumTree:
		return "ProvableCountSumTree"
	case KindItemWithSumItem:
		return "ItemWithSumItem"
	case KindCommitmentTree:
		return "CommitmentTree"
	case KindMmrTree:
		return "MmrTree"
	case KindBulkAppendTree:
		return "BulkAppendTree"
	case KindDenseAppendOnlyFixedSizeTree:
		return "DenseAppendOnlyFixedSizeTree"
	default:
		return "Unknown"
	}
}

// IsSubtree reports whether k denotes any of the Merk or specialized
// subtree variants (i.e. something ops.Insert opens a nested context for).
func (k Kind) IsSubtree() bool {
	switch k {
	case KindTree, KindSumTree, KindBigSumTree, KindCountTree, KindCountSumTree,
		KindProvableCountTree, KindProvableCountSumTree,
		KindCommitmentTree, KindMmrTree, KindBulkAppendTree, KindDenseAppendOnlyFixedSizeTree:
		return true
	default:
		return false
	}
}

// IsMerkSubtree reports whether k is one of the Merk-backed (basic/sum/
// count/count-sum) subtree kinds, as opposed to the specialized non-Merk
// subtrees (MMR, bulk-append, dense, commitment) that C10 preprocesses into
// root-replacement ops before touching Merk at all.
func (k Kind) IsMerkSubtree() bool {
	switch k {
	case KindTree, KindSumTree, KindBigSumTree, KindCountTree, KindCountSumTree,
		KindProvableCountTree, KindProvableCountSumTree:
		return true
	default:
		return false
	}
}

// IsProvable reports whether k is one of the provable count kinds
// (ProvableCountTree, ProvableCountSumTree), whose count is folded into the
// cryptographic node hash. Whether a SumTree's sum is folded is decided by
// the Merk feature type (merk.FeatureType.Provable), not by this method.
func (k Kind) IsProvable() bool {
	return k == KindProvableCountTree || k == KindProvableCountSumTree
}

// RefKind selects one of the five resolution strategies of spec.md §4.8.
type RefKind uint8

const (
	RefAbsolute RefKind = iota
	RefUpstreamRoot
	RefUpstreamFromLeaf
	RefCousin
	RefSibling
)

// Reference is the payload of a KindReference element.
type Reference struct {
	Kind RefKind
	// N is the hop count for UpstreamRoot/UpstreamFromLeaf; unused otherwise.
	N uint32
	// Path is the path argument for Absolute/UpstreamRoot/UpstreamFromLeaf.
	Path [][]byte
	// Key is the replacement last-segment for Cousin/Sibling.
	Key []byte
	// MaxHops overrides MAX_REFERENCE_HOPS for this reference if non-zero.
	MaxHops uint32
}

// Element is the tagged union of spec.md §3. Exactly the fields relevant to
// Kind are populated; callers should always switch on Kind rather than
// infer the variant from which fields are non-zero.
type Element struct {
	Kind Kind

	// KindItem / KindItemWithSumItem
	Bytes []byte

	// KindReference
	Ref Reference

	// KindTree / KindSumTree / KindBigSumTree / KindCountTree /
	// KindCountSumTree / KindProvableCountTree / KindProvableCountSumTree
	RootKey []byte // nil when the subtree is empty

	// KindSumItem / KindItemWithSumItem / KindSumTree aggregate
	Sum int64

	// KindBigSumTree aggregate (signed 128-bit, stored as two 64-bit halves)
	BigSumHi int64
	BigSumLo uint64

	// KindCountTree / KindCountSumTree / KindProvableCount* count aggregate
	Count uint64

	// KindCommitmentTree
	SinsemillaRoot [32]byte
	ChunkPower     uint8

	// KindMmrTree
	MmrSize uint64

	// KindBulkAppendTree
	StateRoot [32]byte
	EpochSize uint64

	// KindDenseAppendOnlyFixedSizeTree
	RootHash [32]byte
	Height   uint8

	// Flags is opaque caller-owned bytes carried by every variant
	// (spec.md §3: "Each element optionally carries opaque flags bytes").
	Flags []byte
}

// HasAggregate reports whether this element's variant carries an
// aggregate value alongside its subtree root key, i.e. all Merk subtree
// kinds except the plain basic Tree.
func (e Element) HasAggregate() bool {
	switch e.Kind {
	case KindSumTree, KindBigSumTree, KindCountTree, KindCountSumTree,
		KindProvableCountTree, KindProvableCountSumTree:
		return true
	default:
		return false
	}
}
