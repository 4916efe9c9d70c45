package commitment

import (
	"context"
	"encoding/binary"

	"github.com/arborledger/grovedb/storage"
)

// Frontier is the compact incremental-tree representation spec.md §3
// calls "the frontier": a per-level array of the most recent left-hand
// node at each height plus the current leaf count, enabling O(1) amortized
// append and O(log N) anchor computation without touching individual leaf
// records. The branch/append algorithm is the standard fixed-depth
// incremental Merkle tree technique (as used by e.g. the eth2 deposit
// contract's incremental tree), adapted here to the Sinsemilla-shaped
// domain tags of sinsemilla.go.
type Frontier struct {
	size   uint64
	branch [Depth][32]byte
}

// Size is the number of leaves appended to the frontier.
func (f *Frontier) Size() uint64 { return f.size }

// Append adds a leaf (given as its already-domain-tagged leaf hash) to the
// frontier and returns the number of BLAKE3 combine calls performed, so
// callers can surface an accurate hash_count the way spec.md §4.5's
// AppendResult does.
func (f *Frontier) Append(leaf [32]byte) (hashCount uint64) {
	node := leaf
	size := f.size
	for height := 0; height < Depth; height++ {
		if (size>>uint(height))&1 == 0 {
			f.branch[height] = node
			f.size++
			return hashCount
		}
		node = combine(f.branch[height], node)
		hashCount++
	}
	f.size++
	return hashCount
}

// Anchor computes the current root: at each height, fold in either the
// retained branch node (if this height's bit of size is set) or the
// canonical empty-subtree hash for that height.
func (f *Frontier) Anchor() [32]byte {
	node := zeroHashes[0]
	size := f.size
	for height := 0; height < Depth; height++ {
		if (size>>uint(height))&1 == 1 {
			node = combine(f.branch[height], node)
		} else {
			node = combine(node, zeroHashes[height])
		}
	}
	return node
}

const frontierMagic = "SSFT"

// EncodeFrontier serializes f as a single fixed-size blob: a 4-byte magic,
// an 8-byte big-endian size, then Depth 32-byte branch slots — following
// the same fixed-width, magic-prefixed layout urkle's FrontierStateV1
// uses for its own append-only builder checkpoint (urkle/frontier.go).
func EncodeFrontier(f *Frontier) []byte {
	buf := make([]byte, 0, 4+8+Depth*32)
	buf = append(buf, frontierMagic...)
	var sizeBuf [8]byte
	binary.BigEndian.PutUint64(sizeBuf[:], f.size)
	buf = append(buf, sizeBuf[:]...)
	for i := 0; i < Depth; i++ {
		buf = append(buf, f.branch[i][:]...)
	}
	return buf
}

// DecodeFrontier parses the blob EncodeFrontier produces.
func DecodeFrontier(b []byte) (*Frontier, error) {
	if len(b) != 4+8+Depth*32 {
		return nil, ErrFrontierCorrupted
	}
	if string(b[:4]) != frontierMagic {
		return nil, ErrFrontierCorrupted
	}
	f := &Frontier{size: binary.BigEndian.Uint64(b[4:12])}
	off := 12
	for i := 0; i < Depth; i++ {
		copy(f.branch[i][:], b[off:off+32])
		off += 32
	}
	return f, nil
}

// auxFrontierKey is the per-instance aux key spec.md §6.2 fixes as
// "__ct_data__".
var auxFrontierKey = []byte("__ct_data__")

// LoadFrontier reads the persisted frontier blob from sc, returning a fresh
// empty Frontier if none has been written yet.
func LoadFrontier(ctx context.Context, sc storage.Context) (*Frontier, error) {
	raw, err := sc.Get(ctx, auxFrontierKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return &Frontier{}, nil
	}
	return DecodeFrontier(raw)
}

// SaveFrontier persists f to sc under the fixed aux key.
func SaveFrontier(ctx context.Context, sc storage.Context, f *Frontier) error {
	return sc.Put(ctx, auxFrontierKey, EncodeFrontier(f))
}
