package mmr

import (
	"encoding/binary"
	"errors"

	"github.com/arborledger/grovedb/internal/grovehash"
)

// Kind distinguishes the three node flavours the wire format in spec.md
// §6.2 supports. Leaf and Internal are hashed by this package; DataLeaf
// carries a hash computed by the caller (the Bulk Append Tree uses this to
// record epoch-blob hashes without re-deriving them from the blob on every
// read).
type Kind uint8

const (
	KindInternal Kind = 0x00
	KindLeaf     Kind = 0x01
	KindDataLeaf Kind = 0x02
)

// Node is one stored MMR node: either an interior hash, a leaf hashed from
// its value, or a data-leaf carrying an externally supplied hash alongside
// its value.
type Node struct {
	Kind  Kind
	Hash  []byte // always Size bytes
	Value []byte // only present for Leaf/DataLeaf
}

var errTruncatedNode = errors.New("mmr: truncated node encoding")

// Encode serializes a Node per spec.md §6.2: flag(1) then, for leaf/data-leaf,
// hash(32) ‖ value_len(4 BE) ‖ value; for internal, hash(32) alone.
func (n Node) Encode() []byte {
	buf := make([]byte, 0, 1+grovehash.Size+4+len(n.Value))
	buf = append(buf, byte(n.Kind))
	buf = append(buf, n.Hash...)
	if n.Kind != KindInternal {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(n.Value)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, n.Value...)
	}
	return buf
}

// DecodeNode parses the wire format Encode produces. For KindDataLeaf no
// re-hash check is performed on decode, matching spec.md §6.2.
func DecodeNode(b []byte) (Node, error) {
	if len(b) < 1+grovehash.Size {
		return Node{}, errTruncatedNode
	}
	n := Node{Kind: Kind(b[0]), Hash: append([]byte(nil), b[1:1+grovehash.Size]...)}
	rest := b[1+grovehash.Size:]
	if n.Kind == KindInternal {
		return n, nil
	}
	if len(rest) < 4 {
		return Node{}, errTruncatedNode
	}
	vlen := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < vlen {
		return Node{}, errTruncatedNode
	}
	n.Value = append([]byte(nil), rest[:vlen]...)
	return n, nil
}

func leafNode(value []byte) Node {
	h := grovehash.Sum32Slice(grovehash.TagMMRLeaf, value)
	return Node{Kind: KindLeaf, Hash: h, Value: append([]byte(nil), value...)}
}

func dataLeafNode(h, value []byte) Node {
	return Node{Kind: KindDataLeaf, Hash: append([]byte(nil), h...), Value: append([]byte(nil), value...)}
}

func internalNode(left, right []byte) Node {
	h := grovehash.Sum32Slice(grovehash.TagMMRInternal, left, right)
	return Node{Kind: KindInternal, Hash: h}
}
