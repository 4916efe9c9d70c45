package replication

import "errors"

var (
	// ErrInternal is returned when a chunk targets an unknown or already
	// finalized subtree prefix (spec.md §4.11: "Unknown/stale prefix =>
	// InternalError").
	ErrInternal = errors.New("replication: unknown or already-finalized subtree prefix")
	// ErrCorruptedData is returned when a global chunk id fails to decode,
	// or the session's protocol version does not match the sender's
	// (spec.md §4.11: "Decoding failure => CorruptedData", "Version
	// mismatch => CorruptedData").
	ErrCorruptedData = errors.New("replication: corrupted chunk id or version mismatch")
	// ErrChunksOutOfOrder names a leaf chunk supplied before its subtree's
	// trunk, or before a prior leaf chunk it depends on. Session.ApplyChunk
	// does not return it: it passes on merk.ErrChunksOutOfOrder from the
	// subtree's Restorer instead.
	ErrChunksOutOfOrder = errors.New("replication: chunk applied out of order")
	// ErrSessionNotComplete is returned by Finalize while any subtree
	// still has outstanding chunks.
	ErrSessionNotComplete = errors.New("replication: session has incomplete subtrees")
	// ErrRootHashMismatch is returned by Finalize when the fully restored
	// root subtree's hash does not match the session's expected app root.
	ErrRootHashMismatch = errors.New("replication: restored root hash does not match expected app root")
)
