package ops

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/pathref"
)

// ClearOptions controls ClearSubtree's handling of nested subtrees,
// mirroring DeleteOptions (spec.md §4.7).
type ClearOptions struct {
	AllowDeletingNonEmptyTrees        bool
	DeletingNonEmptyTreesReturnsError bool
}

// ClearSubtree empties the Merk-backed subtree element stored at
// (path, key): it optionally enumerates entries first to reject or
// recursively delete nested subtrees, clears the subtree's own Merk tree,
// then rewrites the parent's stored element to an empty-root version of
// itself and propagates the resulting (empty) root hash upward by
// re-inserting it at (path, key) (spec.md §4.7). Root-hash propagation
// across multiple ancestor levels in one batch is the batch executor's
// (C10) job; this single-subtree call only updates its own immediate
// parent entry.
func (s *Store) ClearSubtree(ctx context.Context, path [][]byte, key []byte, opts ClearOptions) error {
	el, err := s.GetRaw(ctx, path, key)
	if err != nil {
		return err
	}
	if !el.Kind.IsSubtree() {
		return ErrNotSubtree
	}

	subtreePath := pathref.Join(path, key)
	empty, err := s.subtreeEmpty(ctx, el, subtreePath)
	if err != nil {
		return err
	}
	if !empty {
		if !opts.AllowDeletingNonEmptyTrees || opts.DeletingNonEmptyTreesReturnsError {
			return ErrSubtreeNotEmpty
		}
		if err := s.clearSubtreeBFS(ctx, subtreePath); err != nil {
			return err
		}
	}

	cleared := resetSubtreeRoot(el)
	return s.Insert(ctx, path, key, cleared)
}

// resetSubtreeRoot returns a copy of el with its root-key/aggregate fields
// zeroed, i.e. the element form an empty subtree of el's own kind takes.
func resetSubtreeRoot(el element.Element) element.Element {
	out := el
	out.RootKey = nil
	out.Sum = 0
	out.BigSumHi, out.BigSumLo = 0, 0
	out.Count = 0
	return out
}
