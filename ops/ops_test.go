package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/pathref"
	"github.com/arborledger/grovedb/storage"
)

func newTestStore() *Store {
	return NewStore(storage.NewMemoryEngine())
}

func TestInsertGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	item := element.Element{Kind: element.KindItem, Bytes: []byte("value1")}
	require.NoError(t, s.Insert(ctx, nil, []byte("key1"), item))

	got, err := s.GetRaw(ctx, nil, []byte("key1"))
	require.NoError(t, err)
	require.Equal(t, item.Bytes, got.Bytes)

	has, err := s.HasRaw(ctx, nil, []byte("key1"))
	require.NoError(t, err)
	require.True(t, has)

	_, err = s.GetRaw(ctx, nil, []byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestReferenceFollowing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Insert(ctx, nil, []byte("target"), element.Element{Kind: element.KindItem, Bytes: []byte("real value")}))
	require.NoError(t, s.Insert(ctx, nil, []byte("ref"), element.Element{
		Kind: element.KindReference,
		Ref:  element.Reference{Kind: element.RefSibling, Key: []byte("target")},
	}))

	el, path, key, err := s.Get(ctx, nil, []byte("ref"))
	require.NoError(t, err)
	require.Equal(t, element.KindItem, el.Kind)
	require.Equal(t, []byte("real value"), el.Bytes)
	require.True(t, pathref.Equal(nil, path))
	require.Equal(t, []byte("target"), key)
}

func TestReferenceCycleDetected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Insert(ctx, nil, []byte("a"), element.Element{
		Kind: element.KindReference,
		Ref:  element.Reference{Kind: element.RefSibling, Key: []byte("b")},
	}))
	require.NoError(t, s.Insert(ctx, nil, []byte("b"), element.Element{
		Kind: element.KindReference,
		Ref:  element.Reference{Kind: element.RefSibling, Key: []byte("a")},
	}))

	_, _, _, err := s.Get(ctx, nil, []byte("a"))
	require.ErrorIs(t, err, ErrCyclicReference)
}

func TestDeleteNonEmptyTreeRequiresOption(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Insert(ctx, nil, []byte("tree"), element.Element{Kind: element.KindTree}))
	require.NoError(t, s.Insert(ctx, [][]byte{[]byte("tree")}, []byte("child"), element.Element{Kind: element.KindItem, Bytes: []byte("v")}))

	err := s.Delete(ctx, nil, []byte("tree"), DeleteOptions{})
	require.ErrorIs(t, err, ErrSubtreeNotEmpty)

	require.NoError(t, s.Delete(ctx, nil, []byte("tree"), DeleteOptions{AllowDeletingNonEmptyTrees: true}))
	_, err = s.GetRaw(ctx, nil, []byte("tree"))
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestClearSubtreeResetsRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	require.NoError(t, s.Insert(ctx, nil, []byte("sum"), element.Element{Kind: element.KindSumTree}))
	require.NoError(t, s.Insert(ctx, [][]byte{[]byte("sum")}, []byte("k1"), element.Element{Kind: element.KindSumItem, Sum: 42}))

	err := s.ClearSubtree(ctx, nil, []byte("sum"), ClearOptions{})
	require.ErrorIs(t, err, ErrSubtreeNotEmpty)

	require.NoError(t, s.ClearSubtree(ctx, nil, []byte("sum"), ClearOptions{AllowDeletingNonEmptyTrees: true}))

	got, err := s.GetRaw(ctx, nil, []byte("sum"))
	require.NoError(t, err)
	require.Nil(t, got.RootKey)
	require.Zero(t, got.Sum)

	has, err := s.HasRaw(ctx, [][]byte{[]byte("sum")}, []byte("k1"))
	require.NoError(t, err)
	require.False(t, has)
}
