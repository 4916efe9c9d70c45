package storage

import "github.com/arborledger/grovedb/internal/grovehash"

// subtreePrefix digests a path's segments, length-prefixing each so that
// ["ab", "c"] and ["a", "bc"] never collide.
func subtreePrefix(path [][]byte) [32]byte {
	parts := make([][]byte, 0, len(path)*2)
	for _, seg := range path {
		parts = append(parts, grovehash.WriteUint64BE(nil, uint64(len(seg))), seg)
	}
	return grovehash.Sum32(grovehash.TagSubtreePrefix, parts...)
}
