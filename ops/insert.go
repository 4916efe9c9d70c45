package ops

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
)

// Insert writes el at (path, key), per spec.md §4.7. When el is a subtree
// kind, this establishes an empty subtree the first time it is written (the
// nested Merk or specialized subtree is created lazily the first time
// something is opened under path‖key, the same way merkAt opens a Tree on
// demand) or, if a subtree already lives there, replaces its root metadata
// atomically by overwriting the parent's stored element. Reference
// elements are stored exactly as given — converting a non-absolute
// reference to absolute form happens only during batch aggregation
// (spec.md §4.7's "absolute conversion happens only during batch
// aggregation when the stored form is non-absolute"), never here.
func (s *Store) Insert(ctx context.Context, path [][]byte, key []byte, el element.Element) error {
	feature, sum, count := featureFor(el)
	op := merk.PutOp{
		Key:             key,
		Value:           el.Encode(),
		Feature:         feature,
		Flags:           el.Flags,
		SumContribution: sum,
	}
	if count != nil {
		op.CountContribution = count
	}
	_, err := s.merkAt(path).Apply(ctx, []merk.PutOp{op})
	return err
}
