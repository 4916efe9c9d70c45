package densetree

import (
	"context"
	"testing"

	"github.com/arborledger/grovedb/storage"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, height uint8) (context.Context, *Tree) {
	t.Helper()
	ctx := context.Background()
	eng := storage.NewMemoryEngine()
	sc := eng.Context(storage.ColumnMain, []byte("dense-test"))
	tr, err := New(sc, height)
	require.NoError(t, err)
	return ctx, tr
}

func TestHeightThreeFullFill(t *testing.T) {
	ctx, tr := newTestTree(t, 3)

	var lastRoot [32]byte
	for i := 0; i < 7; i++ {
		root, pos, err := tr.Insert(ctx, []byte{byte(i)})
		require.NoError(t, err)
		require.Equal(t, uint64(i), pos)
		lastRoot = root
	}

	root, err := tr.RootHash(ctx)
	require.NoError(t, err)
	require.Equal(t, lastRoot, root)

	proof, err := tr.GenerateProof(ctx, []uint64{4})
	require.NoError(t, err)
	got, err := Verify(proof, root)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, uint64(4), got[0].Position)
	require.Equal(t, []byte{4}, got[0].Value)

	// Inserting an 8th value exceeds capacity 2^3-1 = 7.
	_, _, err = tr.Insert(ctx, []byte{7})
	require.ErrorIs(t, err, ErrTreeFull)
}

func TestPositionOrderingInvariant(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	for i := 0; i < 6; i++ {
		_, pos, err := tr.Insert(ctx, []byte{byte(i)})
		require.NoError(t, err)
		require.Equal(t, uint64(i), pos)
	}
	count, err := tr.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(6), count)
	for pos := uint64(0); pos < 6; pos++ {
		_, ok, err := tr.Get(ctx, pos)
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, ok, err := tr.Get(ctx, 6)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProofRejectsTamperedValue(t *testing.T) {
	ctx, tr := newTestTree(t, 3)
	for i := 0; i < 7; i++ {
		_, _, err := tr.Insert(ctx, []byte{byte(i)})
		require.NoError(t, err)
	}
	root, err := tr.RootHash(ctx)
	require.NoError(t, err)

	proof, err := tr.GenerateProof(ctx, []uint64{4})
	require.NoError(t, err)
	proof.Entries[4] = []byte{99}
	_, err = Verify(proof, root)
	require.ErrorIs(t, err, ErrVerifyFailed)
}

func TestProofEncodeDecodeRoundTrip(t *testing.T) {
	ctx, tr := newTestTree(t, 3)
	for i := 0; i < 7; i++ {
		_, _, err := tr.Insert(ctx, []byte{byte(i)})
		require.NoError(t, err)
	}
	proof, err := tr.GenerateProof(ctx, []uint64{4, 6})
	require.NoError(t, err)

	enc := proof.Encode()
	decoded, err := DecodeProof(enc)
	require.NoError(t, err)
	require.Equal(t, proof.Height, decoded.Height)
	require.Equal(t, proof.Count, decoded.Count)
	require.Equal(t, proof.Entries, decoded.Entries)
	require.Equal(t, proof.NodeValues, decoded.NodeValues)
	require.Equal(t, proof.NodeHashes, decoded.NodeHashes)
}

func TestDecodeProofRejectsOutOfRangeHeight(t *testing.T) {
	buf := []byte{64, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := DecodeProof(buf)
	require.ErrorIs(t, err, ErrInvalidHeight)
}

func TestDecodeProofRejectsCountTooLarge(t *testing.T) {
	buf := appendU64BE([]byte{3}, 1<<20)
	_, err := DecodeProof(buf)
	require.ErrorIs(t, err, ErrCountTooLarge)
}

func TestNewRejectsInvalidHeight(t *testing.T) {
	eng := storage.NewMemoryEngine()
	sc := eng.Context(storage.ColumnMain, []byte("x"))
	_, err := New(sc, 0)
	require.ErrorIs(t, err, ErrInvalidHeight)
	_, err = New(sc, 64)
	require.ErrorIs(t, err, ErrInvalidHeight)
}

func TestEmptyTreeRootIsDeterministic(t *testing.T) {
	_, tr1 := newTestTree(t, 5)
	_, tr2 := newTestTree(t, 5)
	ctx := context.Background()
	r1, err := tr1.RootHash(ctx)
	require.NoError(t, err)
	r2, err := tr2.RootHash(ctx)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
	require.Equal(t, EmptyHash(), r1)
}
