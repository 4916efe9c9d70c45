package ops

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/pathref"
)

// GetRaw returns the element stored at (path, key) without following
// references (spec.md §4.7).
func (s *Store) GetRaw(ctx context.Context, path [][]byte, key []byte) (element.Element, error) {
	raw, ok, err := s.merkAt(path).Get(ctx, key)
	if err != nil {
		return element.Element{}, err
	}
	if !ok {
		return element.Element{}, ErrKeyNotFound
	}
	return element.Decode(raw)
}

// HasRaw is an existence probe without reference following or caching
// (spec.md §4.7).
func (s *Store) HasRaw(ctx context.Context, path [][]byte, key []byte) (bool, error) {
	_, ok, err := s.merkAt(path).Get(ctx, key)
	return ok, err
}

// Get follows reference chains up to MAX_REFERENCE_HOPS (or a reference's
// own override), rejecting cycles via a visited-set keyed by resolved
// qualified paths, and returns the first non-reference element found along
// with the qualified (path, key) it was finally read from (spec.md §4.7).
func (s *Store) Get(ctx context.Context, path [][]byte, key []byte) (el element.Element, resolvedPath [][]byte, resolvedKey []byte, err error) {
	curPath, curKey := path, key
	visited := make(map[string]bool)

	for hops := 0; ; hops++ {
		e, err := s.GetRaw(ctx, curPath, curKey)
		if err != nil {
			return element.Element{}, nil, nil, err
		}
		if e.Kind != element.KindReference {
			return e, curPath, curKey, nil
		}

		maxHops := MaxReferenceHops
		if e.Ref.MaxHops != 0 {
			maxHops = int(e.Ref.MaxHops)
		}
		if hops >= maxHops {
			return element.Element{}, nil, nil, ErrTooManyHops
		}

		qk := pathref.QualifiedKey(curPath, curKey)
		if visited[qk] {
			return element.Element{}, nil, nil, ErrCyclicReference
		}
		visited[qk] = true

		targetPath, targetKey, rerr := pathref.Resolve(e.Ref, curPath, curKey)
		if rerr != nil {
			return element.Element{}, nil, nil, ErrCorruptedReferencePath
		}
		curPath, curKey = targetPath, targetKey
	}
}
