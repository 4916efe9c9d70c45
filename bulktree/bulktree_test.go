package bulktree

import (
	"context"
	"testing"

	"github.com/arborledger/grovedb/storage"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, epochSize uint64) (context.Context, *Tree) {
	t.Helper()
	ctx := context.Background()
	eng := storage.NewMemoryEngine()
	sc := eng.Context(storage.ColumnAux, []byte("bulk-test"))
	tr, err := New(ctx, sc, epochSize)
	require.NoError(t, err)
	return ctx, tr
}

func TestAppendBelowEpochBoundary(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	for i := 0; i < 3; i++ {
		res, err := tr.Append(ctx, []byte{byte(i)})
		require.NoError(t, err)
		require.False(t, res.Compacted)
		require.Equal(t, uint64(i), res.GlobalPos)
	}
	total, err := tr.TotalCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), total)
}

func TestCompactionTriggersAtEpochBoundary(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	var last AppendResult
	for i := 0; i < 4; i++ {
		res, err := tr.Append(ctx, []byte{byte(i)})
		require.NoError(t, err)
		last = res
	}
	require.True(t, last.Compacted)
	require.Equal(t, uint64(1), last.HashCount)

	bufCount, err := tr.GetBuffer(ctx)
	require.NoError(t, err)
	require.Empty(t, bufCount)

	epoch, ok, err := tr.GetEpoch(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, epoch)
}

func TestTotalCountInvariant(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	for i := 0; i < 10; i++ {
		_, err := tr.Append(ctx, []byte{byte(i)})
		require.NoError(t, err)

		total, err := tr.TotalCount(ctx)
		require.NoError(t, err)
		epochCount, err := tr.EpochCount(ctx)
		require.NoError(t, err)
		bufLen, err := tr.GetBuffer(ctx)
		require.NoError(t, err)
		require.Equal(t, total, 4*epochCount+uint64(len(bufLen)))
	}
}

func TestGetValueAcrossEpochAndBuffer(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	values := [][]byte{{0}, {1}, {2}, {3}, {4}, {5}}
	for _, v := range values {
		_, err := tr.Append(ctx, v)
		require.NoError(t, err)
	}
	for i, want := range values {
		got, ok, err := tr.GetValue(ctx, uint64(i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestCompactedFlagExactlyAtBoundary(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	for i := 0; i < 20; i++ {
		res, err := tr.Append(ctx, []byte{byte(i)})
		require.NoError(t, err)
		want := (uint64(i)+1)%4 == 0
		require.Equal(t, want, res.Compacted, "iteration %d", i)
	}
}

func TestPastPositionStableAfterFurtherAppends(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	for i := 0; i < 4; i++ {
		_, err := tr.Append(ctx, []byte{byte(i)})
		require.NoError(t, err)
	}
	for i := 0; i < 8; i++ {
		_, err := tr.Append(ctx, []byte{byte(100 + i)})
		require.NoError(t, err)
	}
	got, ok, err := tr.GetValue(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte{2}, got)
}

func TestNewRejectsNonPowerOfTwoEpochSize(t *testing.T) {
	eng := storage.NewMemoryEngine()
	sc := eng.Context(storage.ColumnAux, []byte("x"))
	_, err := New(context.Background(), sc, 3)
	require.ErrorIs(t, err, ErrEpochSizeNotPowerOfTwo)
}

func TestStateRootChangesOnAppend(t *testing.T) {
	ctx, tr := newTestTree(t, 4)
	r0, err := tr.StateRoot(ctx)
	require.NoError(t, err)
	_, err = tr.Append(ctx, []byte{1})
	require.NoError(t, err)
	r1, err := tr.StateRoot(ctx)
	require.NoError(t, err)
	require.NotEqual(t, r0, r1)
}
