package merk

import "errors"

var (
	// ErrInvalidInput is returned by Apply when a batch's keys are not
	// sorted and unique (spec.md §4.1).
	ErrInvalidInput = errors.New("merk: batch keys must be sorted and unique")
	// ErrCorruptedData is returned when a link points at a node that is
	// missing from storage.
	ErrCorruptedData = errors.New("merk: link points to a missing node")
	// ErrRemovingFlags is returned when a mutation would strip flags from
	// an element that previously carried them.
	ErrRemovingFlags = errors.New("merk: cannot remove flags from a previously flagged element")
	// ErrKeyNotFound is returned by Get when the key does not exist.
	ErrKeyNotFound = errors.New("merk: key not found")
	// ErrEmptyTree is returned by proof and trunk generation over an empty
	// tree where the caller required a node to exist.
	ErrEmptyTree = errors.New("merk: tree is empty")
	// ErrChunksOutOfOrder is returned by a Restorer when chunks are
	// supplied in anything but production order.
	ErrChunksOutOfOrder = errors.New("merk: chunks must be applied in the order they were produced")
	// ErrChunkHashMismatch is returned by a Restorer when a chunk's
	// reconstructed hash does not match the hash its parent link declared.
	ErrChunkHashMismatch = errors.New("merk: chunk hash does not match expected value")
	// ErrRestoreIncomplete is returned by Finalize when chunks remain
	// outstanding.
	ErrRestoreIncomplete = errors.New("merk: restore finalized with chunks still outstanding")
	// ErrProofMalformed is returned by Verify when the op sequence cannot
	// be replayed (stack underflow, trailing entries, etc).
	ErrProofMalformed = errors.New("merk: proof op sequence is malformed")
)
