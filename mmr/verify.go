package mmr

import (
	"bytes"
	"context"
	"fmt"

	"github.com/arborledger/grovedb/internal/grovehash"
)

// foldProofPath recomputes the peak hash that should commit the leaf at
// index i, given leafHash and the sibling path InclusionProof produced for
// it. It mirrors InclusionProof's own left/right decision at each step, but
// merges under the fixed BLAKE3 internal domain tag rather than committing
// the node's own position into the hash.
func foldProofPath(i uint64, leafHash []byte, path [][]byte) []byte {
	g := IndexHeight(i)
	elementHash := leafHash
	for _, sibling := range path {
		if IndexHeight(i+1) > g {
			i += 1
			elementHash = grovehash.Sum32Slice(grovehash.TagMMRInternal, sibling, elementHash)
		} else {
			i += uint64(2 << g)
			elementHash = grovehash.Sum32Slice(grovehash.TagMMRInternal, elementHash, sibling)
		}
		g += 1
	}
	return elementHash
}

// VerifyLeaf checks that leafValue, combined with proof, reproduces a peak
// of the MMR whose size is mmrSize, given that MMR's current peak hashes.
// This is the verify(root, [(position, leaf)]) -> bool contract from
// spec.md §4.2, specialized to a single (position, leaf) pair; peaks must
// come from the same accumulator the proof was generated against (e.g. via
// PeakHashes or a previously recorded checkpoint).
func VerifyLeaf(mmrSize uint64, peaks [][]byte, leafValue []byte, proof Proof) (bool, error) {
	leaf := leafNode(leafValue)
	return verifyLeafHash(mmrSize, peaks, leaf.Hash, proof)
}

// VerifyDataLeaf is VerifyLeaf for a node whose hash was supplied directly
// rather than derived from a value (see PushDataLeaf).
func VerifyDataLeaf(mmrSize uint64, peaks [][]byte, leafHash []byte, proof Proof) (bool, error) {
	return verifyLeafHash(mmrSize, peaks, leafHash, proof)
}

func verifyLeafHash(mmrSize uint64, peaks [][]byte, leafHash []byte, proof Proof) (bool, error) {
	expected, err := GetLeafProofRoot(peaks, proof.Path, mmrSize)
	if err != nil {
		return false, fmt.Errorf("%w: accumulator index for proof out of range for the provided mmr size", ErrVerifyInclusionFailed)
	}
	root := foldProofPath(proof.Position, leafHash, proof.Path)
	if !bytes.Equal(root, expected) {
		return false, fmt.Errorf("%w: proven root not present in the accumulator", ErrVerifyInclusionFailed)
	}
	return true, nil
}

// Verify is the convenience form of VerifyLeaf that fetches the current
// peaks from store itself, matching spec.md §4.2's verify(root, proof) ->
// bool where root is identified implicitly by the store's current state.
func Verify(ctx context.Context, store Store, leafValue []byte, proof Proof) (bool, error) {
	size, err := store.Size(ctx)
	if err != nil {
		return false, err
	}
	if size == 0 {
		return false, ErrGetRootOnEmpty
	}
	peaks, err := PeakHashes(ctx, storeHashGetter{store}, size)
	if err != nil {
		return false, err
	}
	return VerifyLeaf(size, peaks, leafValue, proof)
}
