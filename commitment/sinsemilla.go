// Package commitment implements the Orchard-style commitment tree of
// spec.md §3/§4.5 (C5): a Sinsemilla frontier over a sequence of prime-field
// commitments, paired with a count-indexed item store for the associated
// ciphertext payloads.
//
// spec.md §1 explicitly treats Sinsemilla as an external, black-box
// cryptographic primitive, and no Pallas/Sinsemilla implementation appears
// anywhere in the retrieved example pack (there is no zcash/pasta-curves
// or orchard crate-equivalent Go module available to this module). Rather
// than fabricate a dependency that isn't grounded in the pack, this file
// realizes the "Sinsemilla" contract with domain-tagged BLAKE3 calls
// through internal/grovehash, behind the same Anchor/O(1)-append interface
// a real Sinsemilla backend would expose. Swapping in a real
// Pallas/Sinsemilla backend later only touches this file.
package commitment

import (
	"math/big"

	"github.com/arborledger/grovedb/internal/grovehash"
)

// Depth is the fixed depth of the commitment tree, matching spec.md §8's
// "canonical empty-tree root of depth 32 under the Sinsemilla scheme".
const Depth = 32

// pallasBase is the real Pallas base field modulus, used to validate that
// a supplied cmx decodes as a value in-range for the field spec.md §4.5
// requires ("cmx must decode as a valid prime-field element").
var pallasBase, _ = new(big.Int).SetString("28948022309329048855892746252171976963363056481941560715954676764349967630337", 10)

// ValidateFieldElement reports whether b is a canonical 32-byte big-endian
// encoding of an element of the Pallas base field.
func ValidateFieldElement(b []byte) error {
	if len(b) != 32 {
		return ErrInvalidFieldElement
	}
	v := new(big.Int).SetBytes(b)
	if v.Cmp(pallasBase) >= 0 {
		return ErrInvalidFieldElement
	}
	return nil
}

func leafHash(cmx []byte) [32]byte {
	return grovehash.Sum32(grovehash.TagCommitmentLeaf, cmx)
}

func combine(left, right [32]byte) [32]byte {
	return grovehash.Sum32(grovehash.TagCommitmentInternal, left[:], right[:])
}

// zeroHashes[i] is the canonical hash of an empty subtree of height i;
// zeroHashes[0] is the empty-leaf constant and zeroHashes[Depth] is the
// anchor of a completely empty tree (spec.md §4.5's "fixed constant").
var zeroHashes = buildZeroHashes()

func buildZeroHashes() [Depth + 1][32]byte {
	var z [Depth + 1][32]byte
	z[0] = grovehash.Sum32(grovehash.TagCommitmentEmpty)
	for i := 1; i <= Depth; i++ {
		z[i] = combine(z[i-1], z[i-1])
	}
	return z
}

// EmptyAnchor is the fixed anchor of a commitment tree with no appended
// leaves.
func EmptyAnchor() [32]byte { return zeroHashes[Depth] }
