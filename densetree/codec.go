package densetree

import "encoding/binary"

// DecodeLimit bounds decoded proof size, mirroring spec.md §6.2's "bincode,
// standard + big-endian + 100 MiB decode limit" for the dense-tree proof
// wire format. There is no bincode crate equivalent in the Go ecosystem
// reachable from this pack, so (as mmr.Node.Encode/DecodeNode already do
// for the MMR wire format) the proof is hand-rolled as a flat big-endian
// byte layout rather than routed through a generic serialization library.
const DecodeLimit = 100 << 20

// Encode serializes p per spec.md §6.2: height(u8), count(u64 BE), then the
// three (position, value|hash) lists, each length-prefixed (u32 BE).
func (p *Proof) Encode() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, p.Height)
	buf = appendU64BE(buf, p.Count)

	buf = appendU32BE(buf, uint32(len(p.Entries)))
	for _, pos := range sortedKeys(p.Entries) {
		buf = appendU64BE(buf, pos)
		buf = appendBytesBE(buf, p.Entries[pos])
	}

	buf = appendU32BE(buf, uint32(len(p.NodeValues)))
	for _, pos := range sortedKeys(p.NodeValues) {
		buf = appendU64BE(buf, pos)
		buf = appendBytesBE(buf, p.NodeValues[pos])
	}

	buf = appendU32BE(buf, uint32(len(p.NodeHashes)))
	for _, pos := range sortedHashKeys(p.NodeHashes) {
		buf = appendU64BE(buf, pos)
		h := p.NodeHashes[pos]
		buf = append(buf, h[:]...)
	}
	return buf
}

// DecodeProof parses the format Encode produces, rejecting height outside
// [1, MaxHeight] and count beyond the capacity that height allows (spec.md
// §6.2).
func DecodeProof(b []byte) (*Proof, error) {
	if len(b) > DecodeLimit {
		return nil, ErrTruncated
	}
	if len(b) < 1+8 {
		return nil, ErrTruncated
	}
	height := b[0]
	if height < 1 || height > MaxHeight {
		return nil, ErrInvalidHeight
	}
	rest := b[1:]
	count, rest, err := takeU64BE(rest)
	if err != nil {
		return nil, err
	}
	if count > Capacity(height) {
		return nil, ErrCountTooLarge
	}

	entries, rest, err := takeBytesMap(rest)
	if err != nil {
		return nil, err
	}
	nodeValues, rest, err := takeBytesMap(rest)
	if err != nil {
		return nil, err
	}
	nodeHashes, _, err := takeHashMap(rest)
	if err != nil {
		return nil, err
	}

	return &Proof{
		Height: height, Count: count,
		Entries: entries, NodeValues: nodeValues, NodeHashes: nodeHashes,
	}, nil
}

func sortedKeys(m map[uint64][]byte) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys)
	return keys
}

func sortedHashKeys(m map[uint64][32]byte) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys)
	return keys
}

func insertionSort(keys []uint64) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}

func appendU32BE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func takeU32BE(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrTruncated
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

func appendU64BE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func takeU64BE(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrTruncated
	}
	return binary.BigEndian.Uint64(b), b[8:], nil
}

func appendBytesBE(buf, v []byte) []byte {
	buf = appendU32BE(buf, uint32(len(v)))
	return append(buf, v...)
}

func takeBytesBE(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeU32BE(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, ErrTruncated
	}
	return append([]byte(nil), rest[:n]...), rest[n:], nil
}

func takeBytesMap(b []byte) (map[uint64][]byte, []byte, error) {
	n, rest, err := takeU32BE(b)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[uint64][]byte, n)
	for i := uint32(0); i < n; i++ {
		var pos uint64
		var val []byte
		pos, rest, err = takeU64BE(rest)
		if err != nil {
			return nil, nil, err
		}
		val, rest, err = takeBytesBE(rest)
		if err != nil {
			return nil, nil, err
		}
		out[pos] = val
	}
	return out, rest, nil
}

func takeHashMap(b []byte) (map[uint64][32]byte, []byte, error) {
	n, rest, err := takeU32BE(b)
	if err != nil {
		return nil, nil, err
	}
	out := make(map[uint64][32]byte, n)
	for i := uint32(0); i < n; i++ {
		var pos uint64
		pos, rest, err = takeU64BE(rest)
		if err != nil {
			return nil, nil, err
		}
		if len(rest) < 32 {
			return nil, nil, ErrTruncated
		}
		var h [32]byte
		copy(h[:], rest[:32])
		rest = rest[32:]
		out[pos] = h
	}
	return out, rest, nil
}
