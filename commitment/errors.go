package commitment

import "errors"

var (
	ErrInvalidFieldElement    = errors.New("commitment: cmx is not a valid field element")
	ErrFrontierCorrupted      = errors.New("commitment: frontier blob is corrupted")
	ErrPositionNotWitnessable = errors.New("commitment: position was not marked at the requested checkpoint")
	ErrUnknownCheckpoint      = errors.New("commitment: checkpoint depth exceeds retained history")
	ErrCiphertextTooShort     = errors.New("commitment: ciphertext payload is truncated")
)
