package ops

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
	"github.com/arborledger/grovedb/pathref"
)

// DeleteOptions controls how Delete treats a subtree-kind element that
// still has entries (spec.md §4.7).
type DeleteOptions struct {
	// AllowDeletingNonEmptyTrees permits deleting a subtree that still has
	// entries, recursively clearing it first.
	AllowDeletingNonEmptyTrees bool
	// DeletingNonEmptyTreesReturnsError, when set alongside
	// AllowDeletingNonEmptyTrees, reports ErrSubtreeNotEmpty instead of
	// silently recursing (spec.md §4.7's two delete options).
	DeletingNonEmptyTreesReturnsError bool
}

// Delete removes the element at (path, key), honoring DeleteOptions.
// Deleting a non-empty subtree recursively clears every nested subtree via
// a breadth-first walk of descendant subtree paths before removing the
// Merk entry at the parent (spec.md §4.7).
func (s *Store) Delete(ctx context.Context, path [][]byte, key []byte, opts DeleteOptions) error {
	el, err := s.GetRaw(ctx, path, key)
	if err != nil {
		if err == ErrKeyNotFound {
			return nil
		}
		return err
	}

	if el.Kind.IsSubtree() {
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
	}

	_, err = s.merkAt(path).Apply(ctx, []merk.PutOp{{Key: key, Delete: true}})
	return err
}

// subtreeEmpty reports whether the subtree rooted at subtreePath holds no
// entries. Only Merk-backed subtree kinds are probed by enumerating
// entries; specialized (non-Merk) subtree kinds are append-only sequences
// that are never considered "non-empty trees" for delete purposes since
// they hold no nested Merk entries to recurse into.
func (s *Store) subtreeEmpty(ctx context.Context, el element.Element, subtreePath [][]byte) (bool, error) {
	if !el.Kind.IsMerkSubtree() {
		return true, nil
	}
	any := false
	err := s.merkAt(subtreePath).Iterate(ctx, func(key, value []byte) (bool, error) {
		any = true
		return false, nil
	})
	return !any, err
}

// clearSubtreeBFS recursively clears every nested Merk subtree found by
// walking subtreePath's entries breadth-first, then clears each level's
// own Merk tree (spec.md §4.7: "recursively clears nested subtrees via a
// BFS of descendant subtree paths").
func (s *Store) clearSubtreeBFS(ctx context.Context, subtreePath [][]byte) error {
	queue := [][][]byte{subtreePath}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		tree := s.merkAt(cur)
		var children [][][]byte
		var dels []merk.PutOp
		if err := tree.Iterate(ctx, func(key, value []byte) (bool, error) {
			child, derr := element.Decode(value)
			if derr != nil {
				return false, derr
			}
			if child.Kind.IsMerkSubtree() {
				children = append(children, pathref.Join(cur, key))
			}
			dels = append(dels, merk.PutOp{Key: append([]byte(nil), key...), Delete: true})
			return true, nil
		}); err != nil {
			return err
		}
		queue = append(queue, children...)

		if len(dels) > 0 {
			if _, err := tree.Apply(ctx, dels); err != nil {
				return err
			}
		}
	}
	return nil
}
