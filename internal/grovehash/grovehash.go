// Package grovehash wraps BLAKE3 with the domain-separation tags used
// throughout the store's authenticated data structures.
//
// Every specialized subtree (the MMR, the dense fixed-size tree, the Bulk
// Append Tree, the Merk layer) needs its own collision-disjoint hash space so
// that a leaf in one structure can never be mistaken for an internal node in
// another. Rather than let each package roll its own BLAKE3 calls, they all
// route through here, the way the teacher's mmr package centralizes its
// big-endian position commitments in a single small helper file
// (urkle/bytes.go's HashWriteUint64).
package grovehash

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// Size is the width, in bytes, of every hash produced by this package.
const Size = 32

// Domain tags. New tags are appended; never renumbered, mirroring the
// append-only discriminant rule for Element variants.
const (
	TagMMRLeaf     byte = 0x00
	TagMMRInternal byte = 0x01

	TagDenseEmpty    byte = 0x10
	TagDenseLeafLike byte = 0x11
	TagDenseNode     byte = 0x12

	TagBulkState byte = 0x20

	TagMerkBasic            byte = 0x30
	TagMerkSum              byte = 0x31
	TagMerkCount            byte = 0x32
	TagMerkCountSum         byte = 0x33
	TagMerkKey              byte = 0x34
	TagMerkAggregate        byte = 0x35
	TagMerkCountProvable    byte = 0x36
	TagMerkCountSumProvable byte = 0x37

	TagSubtreePrefix byte = 0x40

	// TagCommitmentLeaf and TagCommitmentInternal stand in for the
	// Sinsemilla hash the spec treats as a black-box cryptographic
	// primitive (spec.md §1, §4.5): this module has no Pallas/Sinsemilla
	// dependency available anywhere in the retrieved example pack, so the
	// commitment package composes its frontier with these domain-tagged
	// BLAKE3 calls behind the same Anchor/Append API a real Sinsemilla
	// backend would expose, and documents the substitution at the call
	// site (commitment/sinsemilla.go).
	TagCommitmentLeaf     byte = 0x50
	TagCommitmentInternal byte = 0x51
	TagCommitmentEmpty    byte = 0x52
)

// Sum32 hashes parts under the given domain tag and returns a 32-byte digest.
func Sum32(tag byte, parts ...[]byte) [Size]byte {
	h := blake3.New(Size, nil)
	h.Write([]byte{tag})
	for _, p := range parts {
		h.Write(p)
	}
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Sum32Slice is Sum32 but returns a freshly allocated slice, which is the
// shape most callers in this module want (child links, proof nodes, etc.)
func Sum32Slice(tag byte, parts ...[]byte) []byte {
	s := Sum32(tag, parts...)
	return s[:]
}

// WriteUint64BE appends the big-endian encoding of v to dst. MMR and proof
// wire formats are big-endian per the spec, in contrast to element bodies
// which are little-endian (see element/codec.go).
func WriteUint64BE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// Empty32 is the all-zeros constant merk uses as the hash of an absent
// child link.
var Empty32 = [Size]byte{}
