package commitment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborledger/grovedb/storage"
)

func newSC(t *testing.T) (context.Context, storage.Context) {
	t.Helper()
	ctx := context.Background()
	eng := storage.NewMemoryEngine()
	sc := eng.Context(storage.ColumnAux, []byte("commitment-test"))
	return ctx, sc
}

func TestEmptyAnchorMatchesCanonicalDerivation(t *testing.T) {
	// spec.md §8 requires the declared empty anchor be validated against
	// the canonical empty-root derivation; this pins that invariant.
	want := buildZeroHashes()[Depth]
	require.Equal(t, want, EmptyAnchor())

	ctx, root := newSC(t)
	tr, err := Open(ctx, storage.WithSubspace(root, []byte("ct")), 4)
	require.NoError(t, err)
	require.Equal(t, EmptyAnchor(), tr.Anchor())
}

func TestAppendAnchorRoundTrip(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	tr, err := Open(ctx, sc, 4)
	require.NoError(t, err)

	require.Equal(t, EmptyAnchor(), tr.Anchor())
	require.Equal(t, uint64(0), tr.TreeSize())

	cmx := make([]byte, 32)
	cmx[31] = 1
	res, err := tr.Append(ctx, cmx, []byte("payload-0"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.GlobalPosition)
	require.NotEqual(t, EmptyAnchor(), res.SinsemillaRoot)
	require.Equal(t, res.SinsemillaRoot, tr.Anchor())
	require.Equal(t, uint64(1), tr.TreeSize())

	item, ok, err := tr.GetItem(ctx, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cmx, item.Cmx)
	require.Equal(t, []byte("payload-0"), item.Payload)

	cmx2 := make([]byte, 32)
	cmx2[31] = 2
	res2, err := tr.Append(ctx, cmx2, []byte("payload-1"))
	require.NoError(t, err)
	require.NotEqual(t, res.SinsemillaRoot, res2.SinsemillaRoot)
	require.Equal(t, uint64(1), res2.GlobalPosition)
}

func TestAppendRejectsOutOfRangeFieldElement(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	tr, err := Open(ctx, sc, 4)
	require.NoError(t, err)

	tooBig := make([]byte, 32)
	for i := range tooBig {
		tooBig[i] = 0xff
	}
	_, err = tr.Append(ctx, tooBig, nil)
	require.ErrorIs(t, err, ErrInvalidFieldElement)

	_, err = tr.Append(ctx, make([]byte, 31), nil)
	require.ErrorIs(t, err, ErrInvalidFieldElement)
}

func TestCiphertextSerializeDeserializeRoundTrip(t *testing.T) {
	var c Ciphertext
	c.Epk[0] = 0xaa
	c.EncCt = make([]byte, EncCiphertextSize)
	for i := range c.EncCt {
		c.EncCt[i] = byte(i)
	}
	c.OutCt[0] = 0xbb

	blob := SerializeCiphertext(c)
	require.Len(t, blob, PayloadSize)

	got, err := DeserializeCiphertext(blob)
	require.NoError(t, err)
	require.Equal(t, c.Epk, got.Epk)
	require.Equal(t, c.EncCt, got.EncCt)
	require.Equal(t, c.OutCt, got.OutCt)
}

func TestDeserializeCiphertextRejectsWrongLength(t *testing.T) {
	_, err := DeserializeCiphertext(make([]byte, PayloadSize-1))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestFrontierEncodeDecodeRoundTrip(t *testing.T) {
	f := &Frontier{}
	f.Append(leafHash([]byte("a")))
	f.Append(leafHash([]byte("b")))
	f.Append(leafHash([]byte("c")))

	blob := EncodeFrontier(f)
	got, err := DecodeFrontier(blob)
	require.NoError(t, err)
	require.Equal(t, f.size, got.size)
	require.Equal(t, f.branch, got.branch)
	require.Equal(t, f.Anchor(), got.Anchor())
}

func TestDecodeFrontierRejectsBadMagic(t *testing.T) {
	blob := EncodeFrontier(&Frontier{})
	blob[0] ^= 0xff
	_, err := DecodeFrontier(blob)
	require.ErrorIs(t, err, ErrFrontierCorrupted)
}

// TestDuplicateCheckpointIDTrap reproduces spec.md §8's scenario 4
// verbatim: an empty witness tree appends 20 commitments marking even
// positions, checkpoints at id 2048 (succeeds), then appends 30 more
// marking further even positions and checkpoints again at the same id
// 2048 (fails as a no-op because the id was already used). Witnessing a
// position marked only after the first checkpoint must fail even though
// it's marked live, while a position marked before the first checkpoint
// must still witness successfully.
func TestDuplicateCheckpointIDTrap(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	wt, err := OpenWitnessTree(ctx, sc, 8, 16)
	require.NoError(t, err)

	appendMarking := func(n int) {
		for i := 0; i < n; i++ {
			cmx := make([]byte, 32)
			cmx[31] = byte(i + 1)
			res, err := wt.Append(ctx, cmx, nil)
			require.NoError(t, err)
			if res.GlobalPosition%2 == 0 {
				wt.Mark(res.GlobalPosition)
			}
		}
	}

	appendMarking(20)
	require.True(t, wt.Checkpoint(2048))

	appendMarking(30)
	require.False(t, wt.Checkpoint(2048)) // duplicate id: no-op

	// Position 0 was marked and checkpointed at id 2048: still witnessable.
	_, _, err = wt.Witness(ctx, 0, 0)
	require.NoError(t, err)

	// Position 20 (marked only during the second batch, after the only
	// successful checkpoint) is invisible to any retained checkpoint.
	_, _, err = wt.Witness(ctx, 20, 0)
	require.ErrorIs(t, err, ErrPositionNotWitnessable)
}

func TestWitnessPathVerifiesAgainstAnchor(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	wt, err := OpenWitnessTree(ctx, sc, 8, 4)
	require.NoError(t, err)

	var anchors [][32]byte
	for i := 0; i < 5; i++ {
		cmx := make([]byte, 32)
		cmx[31] = byte(i + 1)
		res, err := wt.Append(ctx, cmx, nil)
		require.NoError(t, err)
		wt.Mark(res.GlobalPosition)
		anchors = append(anchors, res.SinsemillaRoot)
	}
	require.True(t, wt.Checkpoint(1))

	path, anchor, err := wt.Witness(ctx, 2, 0)
	require.NoError(t, err)
	require.Equal(t, anchors[len(anchors)-1], anchor)

	// Fold the returned path with the known leaf to confirm it reproduces
	// the anchor independently of wt's own subtree() computation.
	item, ok, err := wt.GetItem(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	node := leafHash(item.Cmx)
	pos := uint64(2)
	for level := 0; level < Depth; level++ {
		if pos&1 == 0 {
			node = combine(node, path[level])
		} else {
			node = combine(path[level], node)
		}
		pos >>= 1
	}
	require.Equal(t, anchor, node)
}

func TestCheckpointUnknownDepthFails(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	wt, err := OpenWitnessTree(ctx, sc, 8, 4)
	require.NoError(t, err)
	wt.Mark(0)
	cmx := make([]byte, 32)
	_, err = wt.Append(ctx, cmx, nil)
	require.NoError(t, err)
	require.True(t, wt.Checkpoint(1))

	_, _, err = wt.Witness(ctx, 0, 1) // only one checkpoint exists
	require.ErrorIs(t, err, ErrUnknownCheckpoint)
}

func TestCheckpointPruning(t *testing.T) {
	ctx, root := newSC(t)
	sc := storage.WithSubspace(root, []byte("ct"))
	wt, err := OpenWitnessTree(ctx, sc, 8, 2)
	require.NoError(t, err)

	for id := uint64(1); id <= 5; id++ {
		require.True(t, wt.Checkpoint(id))
	}
	require.Len(t, wt.checkpoints, 2)
	require.Equal(t, uint64(4), wt.checkpoints[0].id)
	require.Equal(t, uint64(5), wt.checkpoints[1].id)
}
