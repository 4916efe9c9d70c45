// Package bulktree implements the Bulk Append Tree of spec.md §3/§4.4
// (C4): a dense fixed-size buffer that drains into epoch blobs stored as
// data-leaves of an internal Merkle Mountain Range once it fills.
//
// Grounded on the teacher's own two-level design for its own log: a
// massif is a fixed-size window compacted on top of an ever-growing MMR
// (massifs/massifcontext.go, massifs/massifappendcontext.go); this package
// is that same "bounded buffer feeding an append-only accumulator" shape,
// generalized from the teacher's specific tenant-log record format to an
// arbitrary caller-supplied value.
package bulktree

import (
	"context"
	"encoding/binary"
	"math/bits"

	"github.com/arborledger/grovedb/densetree"
	"github.com/arborledger/grovedb/internal/grovehash"
	"github.com/arborledger/grovedb/mmr"
	"github.com/arborledger/grovedb/storage"
)

// Tree is a Bulk Append Tree scoped to one storage.Context.
type Tree struct {
	buffer    *densetree.Tree
	mmrStore  mmr.Store
	epochs    storage.Context
	meta      storage.Context
	epochSize uint64
}

var metaCountKey = []byte("total_count")

// New opens a Bulk Append Tree over sc with the given epoch size, which
// must be a power of two (spec.md §4.4's invariant).
func New(ctx context.Context, sc storage.Context, epochSize uint64) (*Tree, error) {
	if epochSize == 0 || epochSize&(epochSize-1) != 0 {
		return nil, ErrEpochSizeNotPowerOfTwo
	}
	bufferHeight := uint8(bits.Len64(epochSize)) + 1 // capacity 4*epochSize-1 >= epochSize
	bufSC := storage.WithSubspace(sc, []byte("buf"))
	buffer, err := densetree.New(bufSC, bufferHeight)
	if err != nil {
		return nil, err
	}
	mmrSC := storage.WithSubspace(sc, []byte("mmr"))
	return &Tree{
		buffer:    buffer,
		mmrStore:  mmr.NewContextStore(ctx, mmrSC),
		epochs:    storage.WithSubspace(sc, []byte("epoch")),
		meta:      storage.WithSubspace(sc, []byte("meta")),
		epochSize: epochSize,
	}, nil
}

func epochKey(idx uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], idx)
	return b[:]
}

// TotalCount returns the total number of values ever appended.
func (t *Tree) TotalCount(ctx context.Context) (uint64, error) {
	raw, err := t.meta.Get(ctx, metaCountKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t *Tree) setTotalCount(ctx context.Context, n uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	return t.meta.Put(ctx, metaCountKey, b[:])
}

// EpochCount returns the number of fully compacted epochs.
func (t *Tree) EpochCount(ctx context.Context) (uint64, error) {
	total, err := t.TotalCount(ctx)
	if err != nil {
		return 0, err
	}
	return total / t.epochSize, nil
}

// AppendResult is returned by Append (spec.md §4.4).
type AppendResult struct {
	StateRoot [32]byte
	GlobalPos uint64
	HashCount uint64
	Compacted bool
}

// Append adds value to the buffer, compacting into a new epoch blob if the
// buffer now holds epoch_size entries, per the three-step protocol in
// spec.md §4.4.
func (t *Tree) Append(ctx context.Context, value []byte) (AppendResult, error) {
	total, err := t.TotalCount(ctx)
	if err != nil {
		return AppendResult{}, err
	}

	_, bufPos, err := t.buffer.Insert(ctx, value)
	if err != nil {
		return AppendResult{}, err
	}
	globalPos := (total/t.epochSize)*t.epochSize + bufPos

	total++
	if err := t.setTotalCount(ctx, total); err != nil {
		return AppendResult{}, err
	}

	var hashCount uint64
	compacted := false
	if total%t.epochSize == 0 {
		epochIndex := total/t.epochSize - 1
		blob, err := t.serializeBuffer(ctx)
		if err != nil {
			return AppendResult{}, err
		}
		if err := t.epochs.Put(ctx, epochKey(epochIndex), blob); err != nil {
			return AppendResult{}, err
		}
		blobHash := grovehash.Sum32Slice(grovehash.TagMMRLeaf, blob)
		if _, err := mmr.PushDataLeaf(ctx, t.mmrStore, blobHash, blob); err != nil {
			return AppendResult{}, err
		}
		hashCount = 1
		if err := t.buffer.Clear(ctx); err != nil {
			return AppendResult{}, err
		}
		compacted = true
	}

	root, err := t.StateRoot(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	return AppendResult{StateRoot: root, GlobalPos: globalPos, HashCount: hashCount, Compacted: compacted}, nil
}

// StateRoot recomputes the current state-root:
// BLAKE3("bulk_state" ‖ mmr_root ‖ dense_buffer_root), where
// dense_buffer_root is all-zeros when the buffer is empty.
func (t *Tree) StateRoot(ctx context.Context) ([32]byte, error) {
	mmrRoot, err := t.mmrStore.Size(ctx)
	if err != nil {
		return [32]byte{}, err
	}
	var mmrRootHash [32]byte
	if mmrRoot > 0 {
		h, err := mmr.GetRoot(ctx, t.mmrStore)
		if err != nil {
			return [32]byte{}, err
		}
		copy(mmrRootHash[:], h)
	}

	bufCount, err := t.buffer.Count(ctx)
	if err != nil {
		return [32]byte{}, err
	}
	var bufRoot [32]byte
	if bufCount > 0 {
		bufRoot, err = t.buffer.RootHash(ctx)
		if err != nil {
			return [32]byte{}, err
		}
	}

	return grovehash.Sum32(grovehash.TagBulkState, mmrRootHash[:], bufRoot[:]), nil
}

func (t *Tree) serializeBuffer(ctx context.Context) ([]byte, error) {
	entries, err := t.GetBuffer(ctx)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 4+len(entries)*16)
	buf = appendU32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendBytes(buf, e)
	}
	return buf, nil
}

// GetBuffer returns the current buffer entries in position order.
func (t *Tree) GetBuffer(ctx context.Context) ([][]byte, error) {
	count, err := t.buffer.Count(ctx)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, count)
	for pos := uint64(0); pos < count; pos++ {
		v, ok, err := t.buffer.Get(ctx, pos)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrBufferCorrupted
		}
		out = append(out, v)
	}
	return out, nil
}

// ChunkCount returns the number of compacted epoch blobs (i.e. MMR
// data-leaf count) currently stored.
func (t *Tree) ChunkCount(ctx context.Context) (uint64, error) {
	return t.EpochCount(ctx)
}

// GetEpoch returns the raw blob for epoch index idx, or (nil, false) if it
// has not been compacted yet.
func (t *Tree) GetEpoch(ctx context.Context, idx uint64) ([]byte, bool, error) {
	raw, err := t.epochs.Get(ctx, epochKey(idx))
	if err != nil {
		return nil, false, err
	}
	return raw, raw != nil, nil
}

func decodeBlobEntries(blob []byte) ([][]byte, error) {
	if len(blob) < 4 {
		return nil, ErrBufferCorrupted
	}
	n := binary.BigEndian.Uint32(blob)
	rest := blob[4:]
	entries := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(rest) < 4 {
			return nil, ErrBufferCorrupted
		}
		l := binary.BigEndian.Uint32(rest)
		rest = rest[4:]
		if uint32(len(rest)) < l {
			return nil, ErrBufferCorrupted
		}
		entries = append(entries, append([]byte(nil), rest[:l]...))
		rest = rest[l:]
	}
	return entries, nil
}

// GetValue resolves a global position transparently from whichever epoch
// blob (or the live buffer) currently holds it (spec.md §4.4's addressing).
func (t *Tree) GetValue(ctx context.Context, globalPos uint64) ([]byte, bool, error) {
	epochCount, err := t.EpochCount(ctx)
	if err != nil {
		return nil, false, err
	}
	boundary := epochCount * t.epochSize
	if globalPos < boundary {
		epochIdx := globalPos / t.epochSize
		offset := globalPos % t.epochSize
		blob, ok, err := t.GetEpoch(ctx, epochIdx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		entries, err := decodeBlobEntries(blob)
		if err != nil {
			return nil, false, err
		}
		if offset >= uint64(len(entries)) {
			return nil, false, nil
		}
		return entries[offset], true, nil
	}
	offset := globalPos - boundary
	return t.buffer.Get(ctx, offset)
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendBytes(buf, v []byte) []byte {
	buf = appendU32(buf, uint32(len(v)))
	return append(buf, v...)
}
