// Package replication implements the replication state-sync session of
// spec.md §4.11 (C11): subtree discovery, chunk request/apply against a
// local destination store, parent-link rewrite after leaf verification,
// and session finalization.
//
// Grounded on the teacher's massifs/massifreplicator.go, which drives an
// analogous pull-style "ask for the next range, verify it, append it
// locally" loop against one flat MMR log; this package generalizes that
// shape to a tree of nested Merk subtrees discovered as the sync
// progresses, using merk.Restorer (spec.md §4.1) as the per-subtree
// verification engine massifreplicator's MMR verification played there.
package replication

import (
	"encoding/binary"
)

// ProtocolVersion is the replication wire-format version this session
// speaks (spec.md §6.4's version registry, applied to the replication
// entry point).
const ProtocolVersion = 1

// GlobalChunkID identifies one chunk request end-to-end: which subtree it
// belongs to (Prefix, spec.md §6.3's subtree_prefix), that subtree's
// element root-key metadata as known at request time, and a chunk index
// local to that subtree's restorer (spec.md §6.2). LocalChunk 0 always
// means "the trunk"; LocalChunk i>=1 means "the i'th leaf chunk, in
// ProduceTrunk's terminal order".
type GlobalChunkID struct {
	Prefix     [32]byte
	RootKey    []byte
	IsSumTree  bool
	LocalChunk uint64
}

// Encode serializes id per spec.md §6.2: prefix(32) ‖
// root_key_len_varint ‖ root_key ‖ is_sum_tree(1) ‖ local_chunk_id.
func (id GlobalChunkID) Encode() []byte {
	var varintBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(varintBuf[:], uint64(len(id.RootKey)))

	buf := make([]byte, 0, 32+n+len(id.RootKey)+1+8)
	buf = append(buf, id.Prefix[:]...)
	buf = append(buf, varintBuf[:n]...)
	buf = append(buf, id.RootKey...)
	if id.IsSumTree {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	var lc [8]byte
	binary.BigEndian.PutUint64(lc[:], id.LocalChunk)
	return append(buf, lc[:]...)
}

// DecodeGlobalChunkID parses the wire form Encode produces, failing with
// ErrCorruptedData on any truncation (spec.md §4.11: "Decoding failure =>
// CorruptedData").
func DecodeGlobalChunkID(b []byte) (GlobalChunkID, error) {
	if len(b) < 32 {
		return GlobalChunkID{}, ErrCorruptedData
	}
	var id GlobalChunkID
	copy(id.Prefix[:], b[:32])
	rest := b[32:]

	rkLen, n := binary.Uvarint(rest)
	if n <= 0 {
		return GlobalChunkID{}, ErrCorruptedData
	}
	rest = rest[n:]
	if uint64(len(rest)) < rkLen+1+8 {
		return GlobalChunkID{}, ErrCorruptedData
	}
	id.RootKey = append([]byte(nil), rest[:rkLen]...)
	rest = rest[rkLen:]
	id.IsSumTree = rest[0] != 0
	id.LocalChunk = binary.BigEndian.Uint64(rest[1:9])
	return id, nil
}
