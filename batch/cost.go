package batch

import "github.com/arborledger/grovedb/merk"

// OperationCost is the accounting record spec.md §4.10 describes: per
// operation, seek and hash-call counts plus a storage-cost breakdown.
type OperationCost struct {
	SeekCount          uint64
	StorageCost        StorageCost
	StorageLoadedBytes uint64
	HashNodeCalls      uint64
}

// StorageCost is spec.md §4.10's storage_cost{added_bytes, replaced_bytes,
// removed_bytes}.
type StorageCost struct {
	AddedBytes    uint64
	ReplacedBytes uint64
	RemovedBytes  uint64
}

// Add accumulates other into c in place, so a caller summing costs across
// several paths doesn't need a package-level helper for it.
func (c *OperationCost) Add(other OperationCost) {
	c.SeekCount += other.SeekCount
	c.StorageCost.AddedBytes += other.StorageCost.AddedBytes
	c.StorageCost.ReplacedBytes += other.StorageCost.ReplacedBytes
	c.StorageCost.RemovedBytes += other.StorageCost.RemovedBytes
	c.StorageLoadedBytes += other.StorageLoadedBytes
	c.HashNodeCalls += other.HashNodeCalls
}

// GreaterOrEqual reports whether c is point-wise >= other across every
// field — the "Cost upper bound" invariant of spec.md §8 that
// AverageCaseCost/WorstCaseCost must satisfy against the real cost
// Execute observes.
func (c OperationCost) GreaterOrEqual(other OperationCost) bool {
	return c.SeekCount >= other.SeekCount &&
		c.StorageCost.AddedBytes >= other.StorageCost.AddedBytes &&
		c.StorageCost.ReplacedBytes >= other.StorageCost.ReplacedBytes &&
		c.StorageCost.RemovedBytes >= other.StorageCost.RemovedBytes &&
		c.StorageLoadedBytes >= other.StorageLoadedBytes &&
		c.HashNodeCalls >= other.HashNodeCalls
}

// FromMerkCost lifts a merk.Cost (the real, observed cost Execute's
// per-path Apply calls return) into the wider OperationCost shape the
// estimators speak, for direct comparison against an estimate.
func FromMerkCost(c merk.Cost) OperationCost {
	return OperationCost{
		StorageCost: StorageCost{
			AddedBytes:   c.BytesAdded,
			RemovedBytes: c.BytesRemoved,
		},
		HashNodeCalls: c.NodesTouched,
	}
}

// EstimatedLayerInformation is the declarative per-path input the cost
// estimators consume instead of touching storage (spec.md §4.10): how
// many levels deep the path's Merk tree is estimated to be, and the
// estimated encoded size of one element stored there.
type EstimatedLayerInformation struct {
	// EstimatedLayerCount is the estimated height of the Merk tree at this
	// path — roughly ceil(log2(estimated element count + 1)).
	EstimatedLayerCount uint32
	// EstimatedElementSize is the estimated encoded size, in bytes, of one
	// element stored at this path.
	EstimatedElementSize uint32
}

// AverageCaseCost estimates the cost of applying ops without touching
// storage, given a declarative EstimatedLayerInformation per path (keyed
// by pathOnlyKey(op.Path), the same identity Execute groups by). Every
// path referenced by ops must have an entry in layers, or
// ErrPathNotFoundInCacheForEstimatedCosts is returned.
func AverageCaseCost(ops []QualifiedOp, layers map[string]EstimatedLayerInformation) (OperationCost, error) {
	return estimate(ops, layers, false)
}

// WorstCaseCost is AverageCaseCost's pessimistic sibling: every field it
// returns is point-wise >= the corresponding AverageCaseCost field, and in
// turn >= any real cost Execute could observe for the same ops, since it
// additionally charges for a rebalancing rotation on every insert and
// never assumes a replace where an add would be cheaper to rule out.
func WorstCaseCost(ops []QualifiedOp, layers map[string]EstimatedLayerInformation) (OperationCost, error) {
	return estimate(ops, layers, true)
}

func estimate(ops []QualifiedOp, layers map[string]EstimatedLayerInformation, worst bool) (OperationCost, error) {
	var total OperationCost
	for _, qo := range ops {
		key := pathOnlyKey(qo.Path)
		info, ok := layers[key]
		if !ok {
			return OperationCost{}, ErrPathNotFoundInCacheForEstimatedCosts
		}

		// One node touched per level to find the insertion point, plus one
		// more to re-hash back up to the root.
		seeks := uint64(info.EstimatedLayerCount) + 1
		hashes := uint64(info.EstimatedLayerCount) + 1
		if worst {
			// A rebalancing rotation re-seeks and re-hashes up to two
			// extra nodes (a double rotation) beyond the ordinary
			// insertion path.
			seeks += 2
			hashes += 2
		}
		total.SeekCount += seeks
		total.HashNodeCalls += hashes
		total.StorageLoadedBytes += uint64(info.EstimatedElementSize) * uint64(info.EstimatedLayerCount)

		size := uint64(info.EstimatedElementSize)
		switch qo.Op.Kind {
		case KindDelete:
			total.StorageCost.RemovedBytes += size
		case KindInsertOrReplace, KindReplaceTreeRootKey, KindReplaceNonMerkTreeRoot:
			total.StorageCost.ReplacedBytes += size
			if worst {
				// The worst case can't know in advance whether a key is
				// already present (Replaced) or new (Added), so it charges
				// both rather than risk underestimating either field.
				total.StorageCost.AddedBytes += size
			}
		case KindBulkAppend, KindCommitmentTreeInsert, KindMmrTreeAppend, KindDenseTreeInsert:
			total.StorageCost.AddedBytes += size
		}
	}
	return total, nil
}
