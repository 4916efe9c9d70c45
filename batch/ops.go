// Package batch implements the multi-path batch executor of spec.md §4.9
// (C10): it groups heterogeneous operations by path, preprocesses
// specialized-subtree ops (MMR/Bulk-Append/Dense/Commitment) into canonical
// Merk root-replacement ops, applies the remaining ops leaf-first, and
// propagates each child's new root hash/key/aggregate into its parent's
// stored element.
//
// Grounded on the teacher's massifcommitter.go, which plays the analogous
// role for its own log: it groups pending appends, flushes the specialized
// (MMR) structure first, then folds the resulting root into the signed
// checkpoint that sits above it. This package generalizes that "commit the
// leaf structure, then fold its root upward" shape to an arbitrary tree of
// nested subtrees instead of one fixed two-level log.
package batch

import (
	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
)

// Kind discriminates the batch op variants of spec.md §4.9.
type Kind uint8

const (
	// KindInsertOrReplace stores Element at (path, key).
	KindInsertOrReplace Kind = iota
	// KindDelete removes whatever is stored at (path, key).
	KindDelete
	// KindReplaceTreeRootKey overwrites a Merk-backed subtree element's
	// root metadata in its parent with NewElement. Preprocessing never
	// emits this kind, and leaf-first propagation writes its parent update
	// directly rather than through it.
	KindReplaceTreeRootKey
	// KindBulkAppend appends Value to the Bulk Append Tree at (path, key).
	KindBulkAppend
	// KindCommitmentTreeInsert appends Cmx‖Payload to the commitment tree
	// at (path, key).
	KindCommitmentTreeInsert
	// KindMmrTreeAppend appends Value to the MMR subtree at (path, key).
	KindMmrTreeAppend
	// KindDenseTreeInsert inserts Value into the dense fixed-size tree at
	// (path, key).
	KindDenseTreeInsert
	// KindReplaceNonMerkTreeRoot overwrites a specialized (non-Merk)
	// subtree element's top-of-subtree metadata in its parent — the
	// canonical form every non-Merk specialized op is preprocessed into.
	KindReplaceNonMerkTreeRoot
)

// Op is one qualified batch operation: (path, key, Op) per spec.md §4.9.
type Op struct {
	Kind Kind

	// KindInsertOrReplace
	Element element.Element

	// KindReplaceTreeRootKey / KindReplaceNonMerkTreeRoot: the child's new
	// root, re-expressed as a full Element so the parent's stored value can
	// simply be overwritten with it (NewElement carries the correct Kind,
	// the refreshed root-key/hash/aggregate fields, and the old Flags).
	NewElement element.Element

	// KindBulkAppend / KindDenseTreeInsert
	Value []byte

	// KindCommitmentTreeInsert
	Cmx     []byte
	Payload []byte

	// KindMmrTreeAppend
	// Value above doubles as the appended leaf value.
}

// QualifiedOp is one op together with the (path, key) it targets.
type QualifiedOp struct {
	Path [][]byte
	Key  []byte
	Op   Op
}

// isSpecialized reports whether k is one of the specialized-subtree op
// kinds (BulkAppend, CommitmentTreeInsert, MmrTreeAppend, DenseTreeInsert)
// that preprocessing groups and collapses.
func (k Kind) isSpecialized() bool {
	switch k {
	case KindBulkAppend, KindCommitmentTreeInsert, KindMmrTreeAppend, KindDenseTreeInsert:
		return true
	default:
		return false
	}
}

// Cost mirrors merk.Cost but is accumulated across every path an Execute
// call touches (spec.md §4.10's OperationCost, restricted to the fields
// this package can observe directly from Merk application; the fuller
// seek_count/storage_loaded_bytes/hash_node_calls breakdown lives in
// cost.go's estimators, which compute those without touching storage).
type Cost = merk.Cost
