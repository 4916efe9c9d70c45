package merk

// StorageCostTransition classifies how a node's serialized size changed
// across a mutation, the three cases spec.md §4.1 names explicitly.
type StorageCostTransition uint8

const (
	OperationUpdateBiggerSize StorageCostTransition = iota
	OperationUpdateSmallerSize
	OperationUpdateSameSize
)

// FlagsUpdate is invoked whenever an element carrying flags undergoes a
// storage-cost transition, with the exact number of bytes added or
// removed (spec.md §4.1: "invokes the flag updater with the exact delta
// in added or removed bytes"). Returning an error aborts the mutation
// that triggered it.
type FlagsUpdate func(transition StorageCostTransition, oldFlags, newFlags []byte, deltaBytes int64) error

// applyFlags resolves the new flags for a node given old flags, the
// caller-supplied new flags and an optional preservation callback, and
// rejects silently dropping previously present flags (spec.md §4.1:
// "removing flags from a previously flagged element fails with a
// specific RemovingFlagsError").
func applyFlags(oldFlags, newFlags []byte, preserve func([]byte) ([]byte, error)) ([]byte, error) {
	if preserve != nil {
		resolved, err := preserve(oldFlags)
		if err != nil {
			return nil, err
		}
		newFlags = resolved
	}
	if len(oldFlags) > 0 && len(newFlags) == 0 {
		return nil, ErrRemovingFlags
	}
	return newFlags, nil
}

func transitionFor(oldLen, newLen int) (StorageCostTransition, int64) {
	delta := int64(newLen - oldLen)
	switch {
	case delta > 0:
		return OperationUpdateBiggerSize, delta
	case delta < 0:
		return OperationUpdateSmallerSize, delta
	default:
		return OperationUpdateSameSize, 0
	}
}
