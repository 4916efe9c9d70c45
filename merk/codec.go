package merk

import (
	"encoding/binary"
)

// encodeNode serializes a Node's own fields and its two child links for
// persistence. Children are stored as pruned references (key, hash,
// height, aggregate); the full in-memory subtree is never serialized —
// each node is its own storage row, loaded on demand by key.
func encodeNode(n *Node) []byte {
	buf := make([]byte, 0, 64+len(n.Key)+len(n.Value)+len(n.Flags))
	buf = appendBytes(buf, n.Key)
	buf = appendBytes(buf, n.Value)
	buf = append(buf, n.ValueHash[:]...)
	buf = append(buf, byte(n.Feature))
	buf = appendI64(buf, n.Own.Sum)
	buf = appendU64(buf, n.Own.Count)
	buf = appendBytes(buf, n.Flags)
	buf = encodeLink(buf, n.Left)
	buf = encodeLink(buf, n.Right)
	return buf
}

func encodeLink(buf []byte, l *Link) []byte {
	if l == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = appendBytes(buf, l.Key)
	buf = append(buf, l.Hash[:]...)
	buf = append(buf, l.Height)
	buf = appendI64(buf, l.Aggregate.Sum)
	buf = appendU64(buf, l.Aggregate.Count)
	return buf
}

// decodeNode is the inverse of encodeNode. The returned node's Left/Right
// links carry only pruned references; Full is nil until the tree walks
// into them via loadNode.
func decodeNode(b []byte) (*Node, error) {
	n := &Node{}
	var err error
	if n.Key, b, err = takeBytes(b); err != nil {
		return nil, err
	}
	if n.Value, b, err = takeBytes(b); err != nil {
		return nil, err
	}
	if len(b) < 32 {
		return nil, ErrCorruptedData
	}
	copy(n.ValueHash[:], b[:32])
	b = b[32:]
	if len(b) < 1 {
		return nil, ErrCorruptedData
	}
	n.Feature = FeatureType(b[0])
	b = b[1:]
	if n.Own.Sum, b, err = takeI64(b); err != nil {
		return nil, err
	}
	if n.Own.Count, b, err = takeU64(b); err != nil {
		return nil, err
	}
	if n.Flags, b, err = takeBytes(b); err != nil {
		return nil, err
	}
	if n.Left, b, err = decodeLink(b); err != nil {
		return nil, err
	}
	if n.Right, b, err = decodeLink(b); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeLink(b []byte) (*Link, []byte, error) {
	if len(b) < 1 {
		return nil, nil, ErrCorruptedData
	}
	present := b[0]
	b = b[1:]
	if present == 0 {
		return nil, b, nil
	}
	l := &Link{}
	var err error
	if l.Key, b, err = takeBytes(b); err != nil {
		return nil, nil, err
	}
	if len(b) < 32+1 {
		return nil, nil, ErrCorruptedData
	}
	copy(l.Hash[:], b[:32])
	b = b[32:]
	l.Height = b[0]
	b = b[1:]
	if l.Aggregate.Sum, b, err = takeI64(b); err != nil {
		return nil, nil, err
	}
	if l.Aggregate.Count, b, err = takeU64(b); err != nil {
		return nil, nil, err
	}
	return l, b, nil
}

func appendBytes(buf, v []byte) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(v)))
	buf = append(buf, lenBuf[:n]...)
	return append(buf, v...)
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, width := binary.Uvarint(b)
	if width <= 0 {
		return nil, nil, ErrCorruptedData
	}
	rest := b[width:]
	if uint64(len(rest)) < n {
		return nil, nil, ErrCorruptedData
	}
	return append([]byte(nil), rest[:n]...), rest[n:], nil
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func takeU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrCorruptedData
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func appendI64(buf []byte, v int64) []byte { return appendU64(buf, uint64(v)) }

func takeI64(b []byte) (int64, []byte, error) {
	v, rest, err := takeU64(b)
	return int64(v), rest, err
}
