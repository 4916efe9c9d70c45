package bulktree

import "errors"

var (
	ErrEpochSizeNotPowerOfTwo = errors.New("bulktree: epoch size must be a power of two")
	ErrBufferCorrupted        = errors.New("bulktree: buffer or epoch blob entry is corrupted")
)
