package element

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := map[string]Element{
		"item":               {Kind: KindItem, Bytes: []byte("hello")},
		"item no flags":      {Kind: KindItem, Bytes: []byte("x")},
		"item with flags":    {Kind: KindItem, Bytes: []byte("hello"), Flags: []byte("owner=1")},
		"item with sum":      {Kind: KindItemWithSumItem, Bytes: []byte("v"), Sum: -42},
		"sum item":           {Kind: KindSumItem, Sum: 15000},
		"tree empty":         {Kind: KindTree},
		"tree with root":     {Kind: KindTree, RootKey: []byte("rootkey")},
		"sum tree":           {Kind: KindSumTree, RootKey: []byte("r"), Sum: 100},
		"big sum tree":       {Kind: KindBigSumTree, RootKey: []byte("r"), BigSumHi: 1, BigSumLo: 2},
		"count tree":         {Kind: KindCountTree, RootKey: []byte("r"), Count: 7},
		"count sum tree":     {Kind: KindCountSumTree, RootKey: []byte("r"), Count: 7, Sum: -3},
		"provable count":     {Kind: KindProvableCountTree, RootKey: []byte("r"), Count: 7},
		"provable countsum":  {Kind: KindProvableCountSumTree, RootKey: []byte("r"), Count: 7, Sum: 3},
		"mmr tree":           {Kind: KindMmrTree, MmrSize: 11, Flags: []byte{1}},
		"bulk append tree":   {Kind: KindBulkAppendTree, StateRoot: [32]byte{1, 2, 3}, Count: 5, EpochSize: 1024},
		"dense tree":         {Kind: KindDenseAppendOnlyFixedSizeTree, RootHash: [32]byte{9}, Count: 3, Height: 3},
		"commitment tree":    {Kind: KindCommitmentTree, RootKey: []byte("r"), SinsemillaRoot: [32]byte{7}, Count: 2, ChunkPower: 4},
		"ref absolute":       {Kind: KindReference, Ref: Reference{Kind: RefAbsolute, Path: [][]byte{[]byte("a"), []byte("b")}}},
		"ref upstream root":  {Kind: KindReference, Ref: Reference{Kind: RefUpstreamRoot, N: 2, Path: [][]byte{[]byte("p")}}},
		"ref upstream leaf":  {Kind: KindReference, Ref: Reference{Kind: RefUpstreamFromLeaf, N: 1, Path: [][]byte{[]byte("p")}}},
		"ref cousin":         {Kind: KindReference, Ref: Reference{Kind: RefCousin, Key: []byte("k")}},
		"ref sibling":        {Kind: KindReference, Ref: Reference{Kind: RefSibling, Key: []byte("k")}},
		"ref with max hops":  {Kind: KindReference, Ref: Reference{Kind: RefAbsolute, Path: [][]byte{[]byte("a")}, MaxHops: 3}},
	}

	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			enc := e.Encode()
			got, err := Decode(enc)
			require.NoError(t, err)
			require.Equal(t, e.Kind, got.Kind)
			require.Equal(t, e, got)
		})
	}
}

func TestDecodeRejectsUnknownDiscriminant(t *testing.T) {
	_, err := Decode([]byte{0xFF})
	require.ErrorIs(t, err, ErrUnknownDiscriminant)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	e := Element{Kind: KindItem, Bytes: []byte("hello world")}
	enc := e.Encode()
	_, err := Decode(enc[:len(enc)-2])
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrTruncatedInput)
}

func TestKindIsSubtree(t *testing.T) {
	require.True(t, KindTree.IsSubtree())
	require.True(t, KindMmrTree.IsSubtree())
	require.True(t, KindCommitmentTree.IsSubtree())
	require.False(t, KindItem.IsSubtree())
	require.False(t, KindReference.IsSubtree())
}

func TestKindIsMerkSubtree(t *testing.T) {
	require.True(t, KindSumTree.IsMerkSubtree())
	require.False(t, KindMmrTree.IsMerkSubtree())
	require.False(t, KindBulkAppendTree.IsMerkSubtree())
}

func TestKindIsProvable(t *testing.T) {
	require.True(t, KindProvableCountTree.IsProvable())
	require.True(t, KindProvableCountSumTree.IsProvable())
	require.False(t, KindCountTree.IsProvable())
}
