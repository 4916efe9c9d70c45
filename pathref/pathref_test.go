package pathref

import (
	"testing"

	"github.com/arborledger/grovedb/element"
	"github.com/stretchr/testify/require"
)

func seg(s string) []byte { return []byte(s) }

func path(ss ...string) [][]byte {
	p := make([][]byte, len(ss))
	for i, s := range ss {
		p[i] = seg(s)
	}
	return p
}

func TestResolveAbsolute(t *testing.T) {
	ref := element.Reference{Kind: element.RefAbsolute, Path: path("a", "b", "c")}
	p, k, err := Resolve(ref, path("ignored"), seg("ignored"))
	require.NoError(t, err)
	require.Equal(t, path("a", "b"), p)
	require.Equal(t, seg("c"), k)
}

func TestResolveUpstreamFromLeafScenario(t *testing.T) {
	// spec.md §8 scenario 5: path [test_leaf, innertree4]/ref3 =
	// UpstreamFromLeafHeightReference(1, [innertree, key1]) resolves to
	// [test_leaf, innertree, key1].
	cur := path("test_leaf", "innertree4")
	ref := element.Reference{Kind: element.RefUpstreamFromLeaf, N: 1, Path: path("innertree", "key1")}
	p, k, err := Resolve(ref, cur, seg("ref3"))
	require.NoError(t, err)
	require.Equal(t, path("test_leaf", "innertree"), p)
	require.Equal(t, seg("key1"), k)
}

func TestResolveUpstreamRoot(t *testing.T) {
	cur := path("a", "b", "c")
	ref := element.Reference{Kind: element.RefUpstreamRoot, N: 1, Path: path("x")}
	p, k, err := Resolve(ref, cur, seg("key"))
	require.NoError(t, err)
	require.Equal(t, path("a"), p)
	require.Equal(t, seg("x"), k)
}

func TestResolveUpstreamRootHopExceedsPath(t *testing.T) {
	cur := path("a")
	ref := element.Reference{Kind: element.RefUpstreamRoot, N: 5, Path: path("x")}
	_, _, err := Resolve(ref, cur, seg("key"))
	require.ErrorIs(t, err, ErrHopCountExceedsPath)
}

func TestResolveUpstreamFromLeafHopExceedsPath(t *testing.T) {
	cur := path("a")
	ref := element.Reference{Kind: element.RefUpstreamFromLeaf, N: 5, Path: path("x")}
	_, _, err := Resolve(ref, cur, seg("key"))
	require.ErrorIs(t, err, ErrHopCountExceedsPath)
}

func TestResolveCousin(t *testing.T) {
	cur := path("a", "b")
	ref := element.Reference{Kind: element.RefCousin, Key: seg("b2")}
	p, k, err := Resolve(ref, cur, seg("key1"))
	require.NoError(t, err)
	require.Equal(t, path("a", "b2"), p)
	require.Equal(t, seg("key1"), k)
}

func TestResolveCousinRequiresPath(t *testing.T) {
	ref := element.Reference{Kind: element.RefCousin, Key: seg("b2")}
	_, _, err := Resolve(ref, nil, seg("key1"))
	require.ErrorIs(t, err, ErrCousinNeedsPath)
}

func TestResolveCousinRequiresKey(t *testing.T) {
	ref := element.Reference{Kind: element.RefCousin, Key: seg("b2")}
	_, _, err := Resolve(ref, path("a"), nil)
	require.ErrorIs(t, err, ErrCousinNeedsKey)
}

func TestResolveSibling(t *testing.T) {
	cur := path("a", "b")
	ref := element.Reference{Kind: element.RefSibling, Key: seg("k2")}
	p, k, err := Resolve(ref, cur, seg("k1"))
	require.NoError(t, err)
	require.Equal(t, cur, p)
	require.Equal(t, seg("k2"), k)
}

func TestQualifiedKeyDistinguishesPaths(t *testing.T) {
	a := QualifiedKey(path("a", "b"), seg("c"))
	b := QualifiedKey(path("a"), seg("bc"))
	require.NotEqual(t, a, b)
}
