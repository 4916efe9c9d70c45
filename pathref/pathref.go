// Package pathref implements the hierarchical subtree path model and the
// five reference resolution strategies of spec.md §3 "Path and reference"
// and §4.8.
//
// Paths are plain [][]byte slices throughout this module (mirroring the
// teacher's own preference for raw byte slices over a wrapper type in
// massifs/tenantblobpaths.go); this package supplies the handful of pure
// functions that give that representation meaning.
package pathref

import (
	"bytes"
	"errors"

	"github.com/arborledger/grovedb/element"
)

var (
	// ErrHopCountExceedsPath is returned when an UpstreamRoot/UpstreamFromLeaf
	// reference's hop count exceeds the length of the current path.
	ErrHopCountExceedsPath = errors.New("pathref: hop count exceeds path length")
	// ErrCousinNeedsPath is returned resolving Cousin against an empty path.
	ErrCousinNeedsPath = errors.New("pathref: cousin reference requires a non-empty path")
	// ErrCousinNeedsKey is returned resolving Cousin without a current key.
	ErrCousinNeedsKey = errors.New("pathref: cousin reference requires a current key")
)

// Clone returns a deep copy of path so callers can safely mutate a
// resolved path without aliasing the caller's segments.
func Clone(path [][]byte) [][]byte {
	out := make([][]byte, len(path))
	for i, seg := range path {
		out[i] = append([]byte(nil), seg...)
	}
	return out
}

// Join appends extra segments to a clone of base.
func Join(base [][]byte, extra ...[]byte) [][]byte {
	out := Clone(base)
	return append(out, extra...)
}

// Equal reports whether two paths have identical segments.
func Equal(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Resolve computes the qualified (path, key) a reference points at, given
// the current qualified path (currentPath, currentKey) it was read from
// (spec.md §4.8).
func Resolve(ref element.Reference, currentPath [][]byte, currentKey []byte) (targetPath [][]byte, targetKey []byte, err error) {
	switch ref.Kind {
	case element.RefAbsolute:
		if len(ref.Path) == 0 {
			return nil, nil, ErrInvalidAbsolutePath
		}
		full := Clone(ref.Path)
		return full[:len(full)-1], full[len(full)-1], nil

	case element.RefUpstreamRoot:
		n := int(ref.N)
		if n > len(currentPath) {
			return nil, nil, ErrHopCountExceedsPath
		}
		base := Clone(currentPath[:n])
		full := append(base, Clone(ref.Path)...)
		if len(full) == 0 {
			return nil, nil, ErrInvalidAbsolutePath
		}
		return full[:len(full)-1], full[len(full)-1], nil

	case element.RefUpstreamFromLeaf:
		n := int(ref.N)
		if n > len(currentPath) {
			return nil, nil, ErrHopCountExceedsPath
		}
		base := Clone(currentPath[:len(currentPath)-n])
		full := append(base, Clone(ref.Path)...)
		if len(full) == 0 {
			return nil, nil, ErrInvalidAbsolutePath
		}
		return full[:len(full)-1], full[len(full)-1], nil

	case element.RefCousin:
		if len(currentPath) == 0 {
			return nil, nil, ErrCousinNeedsPath
		}
		if len(currentKey) == 0 {
			return nil, nil, ErrCousinNeedsKey
		}
		parent := Clone(currentPath[:len(currentPath)-1])
		parent = append(parent, append([]byte(nil), ref.Key...))
		return parent, append([]byte(nil), currentKey...), nil

	case element.RefSibling:
		return Clone(currentPath), append([]byte(nil), ref.Key...), nil

	default:
		return nil, nil, ErrUnknownReferenceKind
	}
}

var (
	ErrInvalidAbsolutePath  = errors.New("pathref: absolute reference path must include at least a key segment")
	ErrUnknownReferenceKind = errors.New("pathref: unknown reference kind")
)

// QualifiedKey returns a single byte string uniquely identifying
// (path, key), used as the visited-set key during reference-following
// cycle detection (spec.md §4.7).
func QualifiedKey(path [][]byte, key []byte) string {
	var buf bytes.Buffer
	for _, seg := range path {
		buf.WriteByte(0)
		buf.Write(seg)
	}
	buf.WriteByte(1)
	buf.Write(key)
	return buf.String()
}
