package mmr

import (
	"context"
	"math/bits"

	"github.com/arborledger/grovedb/internal/grovehash"
)

// PeaksBitmap returns a bitmap in which bit h is set iff the MMR of the
// given size has a peak of height h. Because a peak of height h roots
// exactly 2^h leaves (HeightIndexLeafCount), this bitmap's numeric value is
// simultaneously the MMR's total leaf count — the same observation the
// teacher's leafcount.go makes ("LeafCount... see also PeaksBitmap").
func PeaksBitmap(mmrSize uint64) uint64 {
	var bitmap uint64
	for _, p := range Peaks(mmrSize) {
		bitmap |= 1 << PosHeight(p)
	}
	return bitmap
}

// PeakIndex returns the position, within the list Peaks() returns (ordered
// highest-to-lowest), of the peak at the given height.
func PeakIndex(peakMap uint64, height int) int {
	return bits.OnesCount64(peakMap >> uint(height+1))
}

// PeakHashes fetches the hash of every peak of the MMR of size mmrSize,
// ordered as Peaks() orders them (highest peak first).
func PeakHashes(ctx context.Context, store indexStoreGetterCtx, mmrSize uint64) ([][]byte, error) {
	var hashes [][]byte
	for _, p := range Peaks(mmrSize) {
		h, err := store.Get(ctx, p-1)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// indexStoreGetterCtx is the context-aware counterpart of indexStoreGetter,
// used by the higher level root/verify helpers that are backed directly by
// a Store rather than a plain byte-slice lookup.
type indexStoreGetterCtx interface {
	Get(ctx context.Context, i uint64) ([]byte, error)
}

type storeHashGetter struct{ store Store }

func (g storeHashGetter) Get(ctx context.Context, i uint64) ([]byte, error) {
	n, err := g.store.Get(ctx, i)
	if err != nil {
		return nil, err
	}
	return n.Hash, nil
}

// GetRoot computes the MMR root by bagging the current peaks right-to-left
// under the internal domain tag (spec.md §4.2). It returns
// ErrGetRootOnEmpty for an empty MMR.
func GetRoot(ctx context.Context, store Store) ([]byte, error) {
	size, err := store.Size(ctx)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, ErrGetRootOnEmpty
	}
	peaks, err := PeakHashes(ctx, storeHashGetter{store}, size)
	if err != nil {
		return nil, err
	}
	return bagPeaks(peaks), nil
}

// bagPeaks folds peak hashes right-to-left under the internal merge
// function, as a degenerate one-leaf MMR's "root" is just that leaf.
func bagPeaks(peaks [][]byte) []byte {
	if len(peaks) == 0 {
		return nil
	}
	root := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		root = grovehash.Sum32Slice(grovehash.TagMMRInternal, peaks[i], root)
	}
	return root
}

// CalculateRootWithNewLeaf computes the root an MMR would have after
// appending newLeaf, given only the pre-append peak hashes the caller
// already knows (from a proof) plus the pre-append size. This lets a
// client verify a "the log has grown but my old receipt is still valid"
// claim without re-fetching every node (spec.md §4.2).
func CalculateRootWithNewLeaf(knownPeaks [][]byte, preSize uint64, newLeaf []byte) []byte {
	leaf := leafNode(newLeaf)
	peaks := append([][]byte(nil), knownPeaks...)
	i := preSize

	height := uint64(0)
	cur := leaf.Hash
	for IndexHeight(i) > height {
		// The newly completed parent merges the rightmost known peak
		// (which must be at this height) with cur.
		left := peaks[len(peaks)-1]
		peaks = peaks[:len(peaks)-1]
		cur = grovehash.Sum32Slice(grovehash.TagMMRInternal, left, cur)
		height++
		i++
	}
	peaks = append(peaks, cur)
	return bagPeaks(peaks)
}
