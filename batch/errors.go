package batch

import "errors"

var (
	// ErrElementNotSubtree is returned when a specialized op targets
	// (path, key) holding an element that is not the matching specialized
	// subtree kind.
	ErrElementNotSubtree = errors.New("batch: element at path is not the expected subtree kind")
	// ErrMixedSpecializedKinds is returned when a single (path, key) group
	// mixes specialized ops of different families (e.g. a BulkAppend and a
	// MmrTreeAppend at the same location).
	ErrMixedSpecializedKinds = errors.New("batch: specialized ops grouped at one path/key must share one kind")
	// ErrPathNotFoundInCacheForEstimatedCosts is returned by the cost
	// estimators when EstimatedLayerInformation does not cover a path the
	// batch visits (spec.md §7).
	ErrPathNotFoundInCacheForEstimatedCosts = errors.New("batch: estimated layer information does not cover a visited path")
)
