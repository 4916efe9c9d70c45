package densetree

import (
	"context"
	"errors"
	"sort"
)

// Proof is a dense-tree inclusion proof: the requested (position, value)
// pairs, the ancestor (position, value) pairs needed to re-derive their
// node hashes (internal nodes commit to their own value, not just their
// children), and the sibling subtree hashes outside the expanded set
// (spec.md §4.3).
type Proof struct {
	Height     uint8
	Count      uint64
	Entries    map[uint64][]byte
	NodeValues map[uint64][]byte
	NodeHashes map[uint64][32]byte
}

var (
	ErrPositionOutOfRange = errors.New("densetree: position out of range for tree height")
	ErrPositionNotFilled  = errors.New("densetree: position is not filled")
)

func ancestorsInclusive(pos uint64) []uint64 {
	var out []uint64
	p := pos
	for {
		out = append(out, p)
		if p == 0 {
			return out
		}
		p = (p - 1) / 2
	}
}

// GenerateProof builds a Proof covering the requested positions (spec.md
// §4.3's generate_proof(positions)).
func (t *Tree) GenerateProof(ctx context.Context, positions []uint64) (*Proof, error) {
	capacity := Capacity(t.height)
	count, err := t.Count(ctx)
	if err != nil {
		return nil, err
	}

	expanded := map[uint64]bool{}
	entries := map[uint64][]byte{}
	for _, pos := range positions {
		if pos >= capacity {
			return nil, ErrPositionOutOfRange
		}
		val, ok, err := t.Get(ctx, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPositionNotFilled
		}
		entries[pos] = val
		for _, a := range ancestorsInclusive(pos) {
			expanded[a] = true
		}
	}

	nodeValues := map[uint64][]byte{}
	for p := range expanded {
		if _, isEntry := entries[p]; isEntry {
			continue
		}
		val, ok, err := t.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		if ok {
			nodeValues[p] = val
		}
	}

	nodeHashes := map[uint64][32]byte{}
	for p := range expanded {
		for _, c := range []uint64{leftChild(p), rightChild(p)} {
			if c >= capacity || expanded[c] {
				continue
			}
			h, err := t.subtreeHash(ctx, c)
			if err != nil {
				return nil, err
			}
			nodeHashes[c] = h
		}
	}

	return &Proof{
		Height: t.height, Count: count,
		Entries: entries, NodeValues: nodeValues, NodeHashes: nodeHashes,
	}, nil
}

// PositionValue pairs a proved position with its value.
type PositionValue struct {
	Position uint64
	Value    []byte
}

// Verify checks p against the expected root hash and returns every proved
// (position, value) pair in ascending position order (spec.md §4.3's
// verify(root) -> [(position, value)]).
func Verify(p *Proof, root [32]byte) ([]PositionValue, error) {
	capacity := Capacity(p.Height)

	value := func(pos uint64) ([]byte, bool) {
		if v, ok := p.Entries[pos]; ok {
			return v, true
		}
		v, ok := p.NodeValues[pos]
		return v, ok
	}

	computed := map[uint64][32]byte{}
	for pos, h := range p.NodeHashes {
		computed[pos] = h
	}

	var positions []uint64
	seen := map[uint64]bool{}
	for pos := range p.Entries {
		if !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}
	for pos := range p.NodeValues {
		if !seen[pos] {
			seen[pos] = true
			positions = append(positions, pos)
		}
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] > positions[j] })

	childHash := func(c uint64) ([32]byte, error) {
		if c >= capacity {
			return emptyHash, nil
		}
		if h, ok := computed[c]; ok {
			return h, nil
		}
		return [32]byte{}, ErrTruncated
	}

	for _, pos := range positions {
		val, ok := value(pos)
		if !ok {
			return nil, ErrTruncated
		}
		left, err := childHash(leftChild(pos))
		if err != nil {
			return nil, err
		}
		right, err := childHash(rightChild(pos))
		if err != nil {
			return nil, err
		}
		computed[pos] = nodeHash(ownHash(val), left, right)
	}

	got, ok := computed[0]
	if !ok {
		got = emptyHash
	}
	if got != root {
		return nil, ErrVerifyFailed
	}

	out := make([]PositionValue, 0, len(p.Entries))
	var keys []uint64
	for pos := range p.Entries {
		keys = append(keys, pos)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, pos := range keys {
		out = append(out, PositionValue{Position: pos, Value: p.Entries[pos]})
	}
	return out, nil
}
