package element

import "encoding/binary"

// Encode serializes e per spec.md §4.6: a discriminant byte, followed by a
// variant-specific little-endian body, followed by a length-prefixed flags
// tail shared by every variant. The scheme mirrors mmr.Node.Encode's
// manual flag-byte-then-body layout rather than reaching for a generic
// serialization library, since the teacher never pulls one in for its own
// on-disk node formats.
func (e Element) Encode() []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, byte(e.Kind))

	switch e.Kind {
	case KindItem:
		buf = appendBytes(buf, e.Bytes)
	case KindItemWithSumItem:
		buf = appendBytes(buf, e.Bytes)
		buf = appendI64(buf, e.Sum)
	case KindReference:
		buf = e.Ref.encode(buf)
	case KindTree:
		buf = appendOptBytes(buf, e.RootKey)
	case KindSumItem:
		buf = appendI64(buf, e.Sum)
	case KindSumTree:
		buf = appendOptBytes(buf, e.RootKey)
		buf = appendI64(buf, e.Sum)
	case KindBigSumTree:
		buf = appendOptBytes(buf, e.RootKey)
		buf = appendI64(buf, e.BigSumHi)
		buf = appendU64(buf, e.BigSumLo)
	case KindCountTree, KindProvableCountTree:
		buf = appendOptBytes(buf, e.RootKey)
		buf = appendU64(buf, e.Count)
	case KindCountSumTree, KindProvableCountSumTree:
		buf = appendOptBytes(buf, e.RootKey)
		buf = appendU64(buf, e.Count)
		buf = appendI64(buf, e.Sum)
	case KindCommitmentTree:
		buf = appendOptBytes(buf, e.RootKey)
		buf = append(buf, e.SinsemillaRoot[:]...)
		buf = appendU64(buf, e.Count)
		buf = append(buf, e.ChunkPower)
	case KindMmrTree:
		buf = appendU64(buf, e.MmrSize)
	case KindBulkAppendTree:
		buf = append(buf, e.StateRoot[:]...)
		buf = appendU64(buf, e.Count)
		buf = appendU64(buf, e.EpochSize)
	case KindDenseAppendOnlyFixedSizeTree:
		buf = append(buf, e.RootHash[:]...)
		buf = appendU64(buf, e.Count)
		buf = append(buf, e.Height)
	}

	buf = appendBytes(buf, e.Flags)
	return buf
}

// Decode parses the format Encode produces.
func Decode(b []byte) (Element, error) {
	if len(b) < 1 {
		return Element{}, ErrTruncatedInput
	}
	kind := Kind(b[0])
	rest := b[1:]
	var e Element
	e.Kind = kind
	var err error

	switch kind {
	case KindItem:
		e.Bytes, rest, err = takeBytes(rest)
	case KindItemWithSumItem:
		e.Bytes, rest, err = takeBytes(rest)
		if err == nil {
			e.Sum, rest, err = takeI64(rest)
		}
	case KindReference:
		e.Ref, rest, err = decodeReference(rest)
	case KindTree:
		e.RootKey, rest, err = takeOptBytes(rest)
	case KindSumItem:
		e.Sum, rest, err = takeI64(rest)
	case KindSumTree:
		e.RootKey, rest, err = takeOptBytes(rest)
		if err == nil {
			e.Sum, rest, err = takeI64(rest)
		}
	case KindBigSumTree:
		e.RootKey, rest, err = takeOptBytes(rest)
		if err == nil {
			e.BigSumHi, rest, err = takeI64(rest)
		}
		if err == nil {
			e.BigSumLo, rest, err = takeU64(rest)
		}
	case KindCountTree, KindProvableCountTree:
		e.RootKey, rest, err = takeOptBytes(rest)
		if err == nil {
			e.Count, rest, err = takeU64(rest)
		}
	case KindCountSumTree, KindProvableCountSumTree:
		e.RootKey, rest, err = takeOptBytes(rest)
		if err == nil {
			e.Count, rest, err = takeU64(rest)
		}
		if err == nil {
			e.Sum, rest, err = takeI64(rest)
		}
	case KindCommitmentTree:
		e.RootKey, rest, err = takeOptBytes(rest)
		if err != nil {
			break
		}
		if len(rest) < 32 {
			err = ErrTruncatedInput
			break
		}
		copy(e.SinsemillaRoot[:], rest[:32])
		rest = rest[32:]
		e.Count, rest, err = takeU64(rest)
		if err != nil {
			break
		}
		if len(rest) < 1 {
			err = ErrTruncatedInput
			break
		}
		e.ChunkPower = rest[0]
		rest = rest[1:]
	case KindMmrTree:
		e.MmrSize, rest, err = takeU64(rest)
	case KindBulkAppendTree:
		if len(rest) < 32 {
			err = ErrTruncatedInput
			break
		}
		copy(e.StateRoot[:], rest[:32])
		rest = rest[32:]
		e.Count, rest, err = takeU64(rest)
		if err != nil {
			break
		}
		e.EpochSize, rest, err = takeU64(rest)
	case KindDenseAppendOnlyFixedSizeTree:
		if len(rest) < 32 {
			err = ErrTruncatedInput
			break
		}
		copy(e.RootHash[:], rest[:32])
		rest = rest[32:]
		e.Count, rest, err = takeU64(rest)
		if err != nil {
			break
		}
		if len(rest) < 1 {
			err = ErrTruncatedInput
			break
		}
		e.Height = rest[0]
		rest = rest[1:]
	default:
		return Element{}, ErrUnknownDiscriminant
	}
	if err != nil {
		return Element{}, err
	}

	e.Flags, rest, err = takeBytes(rest)
	if err != nil {
		return Element{}, err
	}
	_ = rest
	return e, nil
}

func (r Reference) encode(buf []byte) []byte {
	buf = append(buf, byte(r.Kind))
	buf = appendU32(buf, r.N)
	buf = appendU32(buf, r.MaxHops)
	buf = appendPathLE(buf, r.Path)
	buf = appendBytes(buf, r.Key)
	return buf
}

func decodeReference(b []byte) (Reference, []byte, error) {
	if len(b) < 1 {
		return Reference{}, nil, ErrTruncatedInput
	}
	r := Reference{Kind: RefKind(b[0])}
	rest := b[1:]
	var err error
	r.N, rest, err = takeU32(rest)
	if err != nil {
		return Reference{}, nil, err
	}
	r.MaxHops, rest, err = takeU32(rest)
	if err != nil {
		return Reference{}, nil, err
	}
	r.Path, rest, err = takePathLE(rest)
	if err != nil {
		return Reference{}, nil, err
	}
	r.Key, rest, err = takeBytes(rest)
	if err != nil {
		return Reference{}, nil, err
	}
	if r.Kind > RefSibling {
		return Reference{}, nil, ErrInvalidReferenceKind
	}
	return r, rest, nil
}

// --- little-endian primitive helpers (element bodies are LE per spec.md §4.6) ---

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func takeU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrTruncatedInput
	}
	return binary.LittleEndian.Uint32(b), b[4:], nil
}

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func takeU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrTruncatedInput
	}
	return binary.LittleEndian.Uint64(b), b[8:], nil
}

func appendI64(buf []byte, v int64) []byte {
	return appendU64(buf, uint64(v))
}

func takeI64(b []byte) (int64, []byte, error) {
	v, rest, err := takeU64(b)
	return int64(v), rest, err
}

func appendBytes(buf, v []byte) []byte {
	buf = appendU32(buf, uint32(len(v)))
	return append(buf, v...)
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := takeU32(b)
	if err != nil {
		return nil, nil, err
	}
	if uint32(len(rest)) < n {
		return nil, nil, ErrTruncatedInput
	}
	if n == 0 {
		return nil, rest, nil
	}
	out := append([]byte(nil), rest[:n]...)
	return out, rest[n:], nil
}

// appendOptBytes encodes a nil-able root key as a presence byte followed by
// the bytes, since an empty (vs absent) root key means different things for
// a freshly created subtree.
func appendOptBytes(buf, v []byte) []byte {
	if v == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendBytes(buf, v)
}

func takeOptBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 1 {
		return nil, nil, ErrTruncatedInput
	}
	present := b[0]
	rest := b[1:]
	if present == 0 {
		return nil, rest, nil
	}
	return takeBytes(rest)
}

func appendPathLE(buf []byte, path [][]byte) []byte {
	buf = appendU32(buf, uint32(len(path)))
	for _, seg := range path {
		buf = appendBytes(buf, seg)
	}
	return buf
}

func takePathLE(b []byte) ([][]byte, []byte, error) {
	n, rest, err := takeU32(b)
	if err != nil {
		return nil, nil, err
	}
	if n == 0 {
		return nil, rest, nil
	}
	path := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		var seg []byte
		seg, rest, err = takeBytes(rest)
		if err != nil {
			return nil, nil, err
		}
		path = append(path, seg)
	}
	return path, rest, nil
}
