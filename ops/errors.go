package ops

import "errors"

var (
	// ErrKeyNotFound is returned by Get/GetRaw when (path, key) holds nothing.
	ErrKeyNotFound = errors.New("ops: key not found")
	// ErrCyclicReference is returned when reference following revisits an
	// already-seen qualified (path, key) (spec.md §4.7).
	ErrCyclicReference = errors.New("ops: cyclic reference")
	// ErrTooManyHops is returned when reference following exceeds
	// MaxReferenceHops (or a reference's own MaxHops override).
	ErrTooManyHops = errors.New("ops: reference chain exceeds maximum hop count")
	// ErrCorruptedReferencePath is returned when a reference resolves to an
	// invalid path (bad hop count, missing cousin context) per spec.md
	// §4.7's "dedicated CorruptedReferencePath* errors".
	ErrCorruptedReferencePath = errors.New("ops: corrupted reference path")
	// ErrNotSubtree is returned by ClearSubtree when the element at
	// (path, key) is not a subtree-kind element.
	ErrNotSubtree = errors.New("ops: element is not a subtree")
	// ErrSubtreeNotEmpty is returned by Delete when
	// deleting_non_empty_trees_returns_error is set and the target subtree
	// has entries.
	ErrSubtreeNotEmpty = errors.New("ops: subtree is not empty")
)
