package replication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
	"github.com/arborledger/grovedb/ops"
	"github.com/arborledger/grovedb/storage"
)

// driveSession pulls chunks for id from src and feeds them through sess
// until the whole replication graph sess has discovered is done, mirroring
// the request/apply/request-next loop a real transport would drive.
func driveSession(t *testing.T, ctx context.Context, sess *Session, src *merk.Tree) {
	t.Helper()
	pending := []GlobalChunkID{sess.InitialChunkID()}
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]

		var chunk Chunk
		if id.LocalChunk == 0 {
			trunkOps, terminals, err := src.ProduceTrunk(ctx, 1)
			require.NoError(t, err)
			chunk = Chunk{IsTrunk: true, Ops: trunkOps, Terminals: terminals, TrunkHeight: 1}
		} else {
			_, terminals, err := src.ProduceTrunk(ctx, 1)
			require.NoError(t, err)
			term := terminals[id.LocalChunk-1]
			leafOps, err := src.ProduceLeaf(ctx, term.Key)
			require.NoError(t, err)
			chunk = Chunk{Ops: leafOps}
		}

		next, err := sess.ApplyChunk(ctx, id, chunk)
		require.NoError(t, err)
		pending = append(pending, next...)
	}
}

func TestSessionReplicatesFlatTree(t *testing.T) {
	ctx := context.Background()

	srcEng := storage.NewMemoryEngine()
	srcStore := ops.NewStore(srcEng)
	keys := []string{"a", "b", "c", "d", "e"}
	for i, k := range keys {
		require.NoError(t, srcStore.Insert(ctx, nil, []byte(k), element.Element{Kind: element.KindItem, Bytes: []byte{byte(i)}}))
	}
	srcPrefix := storage.SubtreePrefix(nil)
	srcTree := merk.Open(srcEng.Context(storage.ColumnMain, srcPrefix[:]))
	rootHash, err := srcTree.RootHash(ctx)
	require.NoError(t, err)

	dstEng := storage.NewMemoryEngine()
	sess, err := NewSession(ctx, dstEng, ProtocolVersion, rootHash)
	require.NoError(t, err)

	driveSession(t, ctx, sess, srcTree)

	require.True(t, sess.Done())
	require.NoError(t, sess.Finalize(ctx))

	dstStore := ops.NewStore(dstEng)
	for i, k := range keys {
		got, err := dstStore.GetRaw(ctx, nil, []byte(k))
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i)}, got.Bytes)
	}
}

func TestSessionRejectsUnknownPrefix(t *testing.T) {
	ctx := context.Background()
	dstEng := storage.NewMemoryEngine()
	sess, err := NewSession(ctx, dstEng, ProtocolVersion, [32]byte{})
	require.NoError(t, err)

	bogus := GlobalChunkID{Prefix: [32]byte{0xff}, LocalChunk: 0}
	_, err = sess.ApplyChunk(ctx, bogus, Chunk{IsTrunk: true})
	require.ErrorIs(t, err, ErrInternal)
}

func TestNewSessionFromHandshake(t *testing.T) {
	ctx := context.Background()
	dstEng := storage.NewMemoryEngine()
	h := NewHandshake([32]byte{7, 7, 7})
	sess, err := NewSessionFromHandshake(ctx, dstEng, h)
	require.NoError(t, err)
	require.Equal(t, h.RootHash, sess.rootHash)
}

func TestSessionRejectsWrongProtocolVersion(t *testing.T) {
	ctx := context.Background()
	dstEng := storage.NewMemoryEngine()
	_, err := NewSession(ctx, dstEng, ProtocolVersion+1, [32]byte{})
	require.ErrorIs(t, err, ErrCorruptedData)
}

func TestSessionRejectsTrunkWithMismatchedRoot(t *testing.T) {
	ctx := context.Background()

	srcEng := storage.NewMemoryEngine()
	srcStore := ops.NewStore(srcEng)
	require.NoError(t, srcStore.Insert(ctx, nil, []byte("a"), element.Element{Kind: element.KindItem, Bytes: []byte("v")}))
	srcPrefix := storage.SubtreePrefix(nil)
	srcTree := merk.Open(srcEng.Context(storage.ColumnMain, srcPrefix[:]))

	dstEng := storage.NewMemoryEngine()
	wrongRoot := [32]byte{1, 2, 3}
	sess, err := NewSession(ctx, dstEng, ProtocolVersion, wrongRoot)
	require.NoError(t, err)

	trunkOps, terminals, err := srcTree.ProduceTrunk(ctx, 1)
	require.NoError(t, err)
	_, err = sess.ApplyChunk(ctx, sess.InitialChunkID(), Chunk{IsTrunk: true, Ops: trunkOps, Terminals: terminals, TrunkHeight: 1})
	require.ErrorIs(t, err, merk.ErrChunkHashMismatch)
}

func TestGlobalChunkIDRoundTrip(t *testing.T) {
	id := GlobalChunkID{
		Prefix:     [32]byte{9, 9, 9},
		RootKey:    []byte("root-key"),
		IsSumTree:  true,
		LocalChunk: 42,
	}
	got, err := DecodeGlobalChunkID(id.Encode())
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestDecodeGlobalChunkIDTruncated(t *testing.T) {
	_, err := DecodeGlobalChunkID([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrCorruptedData)
}
