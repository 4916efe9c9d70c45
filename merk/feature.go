package merk

// FeatureType is the per-node aggregation discriminator spec.md §3/§4.1
// describes ("Basic / Sum / Count / CountSum"). It is folded into the
// node hash so basic and aggregated trees sharing the same keys and
// values never collide.
type FeatureType uint8

const (
	FeatureBasic FeatureType = iota
	FeatureSum
	FeatureCount
	FeatureCountSum
	// FeatureCountProvable and FeatureCountSumProvable back
	// element.KindProvableCountTree/element.KindProvableCountSumTree:
	// same aggregation as FeatureCount/FeatureCountSum, but the aggregate
	// is additionally folded into the node hash (spec.md §3/§4.1). They
	// exist precisely so Provable (below) is a function of which element
	// variant produced the node, not just of whether it tracks a count.
	FeatureCountProvable
	FeatureCountSumProvable
)

func (f FeatureType) String() string {
	switch f {
	case FeatureBasic:
		return "basic"
	case FeatureSum:
		return "sum"
	case FeatureCount:
		return "count"
	case FeatureCountSum:
		return "count_sum"
	case FeatureCountProvable:
		return "provable_count"
	case FeatureCountSumProvable:
		return "provable_count_sum"
	default:
		return "unknown"
	}
}

// TracksCount reports whether a node of this feature type contributes a
// count to its enclosing aggregate, regardless of whether that count is
// also hash-bound.
func (f FeatureType) TracksCount() bool {
	switch f {
	case FeatureCount, FeatureCountSum, FeatureCountProvable, FeatureCountSumProvable:
		return true
	default:
		return false
	}
}

// TracksSum reports whether a node of this feature type contributes a sum
// to its enclosing aggregate.
func (f FeatureType) TracksSum() bool {
	switch f {
	case FeatureSum, FeatureCountSum, FeatureCountSumProvable:
		return true
	default:
		return false
	}
}

// Provable reports whether the feature type folds its aggregate into the
// node hash (spec.md §4.1: "Provable count/sum variants additionally fold
// the aggregate value into the hash input; non-provable variants track
// the aggregate in the value payload only"). SumTree has no non-provable
// counterpart in the element taxonomy, so FeatureSum always folds; Count
// and CountSum only fold when the element was one of the ProvableCount*
// variants, giving all four Count/CountSum combinations distinct hashing
// behavior as spec.md §3 requires.
func (f FeatureType) Provable() bool {
	switch f {
	case FeatureSum, FeatureCountProvable, FeatureCountSumProvable:
		return true
	default:
		return false
	}
}

// Aggregate is the fold value a node of an aggregated feature type
// carries: a running sum and/or count over its subtree, depending on
// FeatureType.
type Aggregate struct {
	Sum   int64
	Count uint64
}

// foldAggregate combines a node's own contribution with its two
// children's aggregates, the way an aggregated Merk node accumulates its
// subtree total bottom-up.
func foldAggregate(own, left, right Aggregate) Aggregate {
	return Aggregate{
		Sum:   own.Sum + left.Sum + right.Sum,
		Count: own.Count + left.Count + right.Count,
	}
}
