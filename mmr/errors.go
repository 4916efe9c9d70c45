package mmr

import "errors"

var (
	// ErrGetRootOnEmpty is returned when the root of an empty MMR is
	// requested; there is no peak to bag.
	ErrGetRootOnEmpty = errors.New("mmr: get root on empty mmr")
	// ErrNodeProofsNotSupported is returned when a proof is requested for
	// an internal node; only leaf inclusion proofs are supported.
	ErrNodeProofsNotSupported = errors.New("mmr: proofs for non-leaf nodes are not supported")
	// ErrIndexOutOfRange is returned when a requested position exceeds the
	// current mmr size.
	ErrIndexOutOfRange = errors.New("mmr: index out of range")
	// ErrVerifyInclusionFailed wraps any of the distinguishable inclusion
	// verification failures (wrong hash count, wrong peak count, root
	// mismatch) spec.md §4.2 requires verification to report rather than
	// panic on.
	ErrVerifyInclusionFailed = errors.New("mmr: verify inclusion failed")
	ErrWrongHashCount        = errors.New("mmr: proof has the wrong number of sibling hashes")
	ErrWrongPeakCount        = errors.New("mmr: wrong number of peaks for the given size")

	ErrProofLenTooLarge = errors.New("mmr: proof length value is too large")
	ErrPeakListTooShort = errors.New("mmr: the list of peak values is too short")
)
