package merk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullProofVerifiesAgainstRootHash(t *testing.T) {
	ctx, tr := newTestTree(t)
	_, err := tr.Apply(ctx, []PutOp{putOp("a", "1"), putOp("b", "2"), putOp("c", "3"), putOp("d", "4")})
	require.NoError(t, err)

	rootHash, err := tr.RootHash(ctx)
	require.NoError(t, err)

	ops, err := tr.GenerateFullProof(ctx)
	require.NoError(t, err)

	result, err := Verify(ops)
	require.NoError(t, err)
	require.Equal(t, rootHash, result.RootHash)

	for _, kv := range [][2]string{{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}} {
		v, ok := result.Values[kv[0]]
		require.True(t, ok)
		require.Equal(t, kv[1], string(v))
	}
}

func TestProofOverEmptyTreeFails(t *testing.T) {
	ctx, tr := newTestTree(t)
	_, err := tr.GenerateFullProof(ctx)
	require.ErrorIs(t, err, ErrEmptyTree)
}

func TestTamperedProofValueChangesRootHash(t *testing.T) {
	ctx, tr := newTestTree(t)
	_, err := tr.Apply(ctx, []PutOp{putOp("a", "1"), putOp("b", "2")})
	require.NoError(t, err)

	rootHash, err := tr.RootHash(ctx)
	require.NoError(t, err)

	ops, err := tr.GenerateFullProof(ctx)
	require.NoError(t, err)

	for i := range ops {
		if ops[i].Kind == OpPush && ops[i].Node.Kind == NodeKV && string(ops[i].Node.Key) == "a" {
			ops[i].Node.Value = []byte("tampered")
		}
	}

	result, err := Verify(ops)
	require.NoError(t, err)
	require.NotEqual(t, rootHash, result.RootHash)
}

func TestMalformedOpSequenceFails(t *testing.T) {
	_, err := Execute([]Op{{Kind: OpParent}})
	require.ErrorIs(t, err, ErrProofMalformed)

	_, err = Execute([]Op{
		{Kind: OpPush, Node: &ProofNode{Kind: NodeKV, Key: []byte("a"), Value: []byte("1")}},
		{Kind: OpPush, Node: &ProofNode{Kind: NodeKV, Key: []byte("b"), Value: []byte("2")}},
	})
	require.ErrorIs(t, err, ErrProofMalformed)
}

func TestProofPreservesAggregateForSumFeature(t *testing.T) {
	ctx, tr := newTestTree(t)
	batch := []PutOp{
		{Key: []byte("a"), Value: []byte("1"), Feature: FeatureSum, SumContribution: 10},
		{Key: []byte("b"), Value: []byte("2"), Feature: FeatureSum, SumContribution: 20},
		{Key: []byte("c"), Value: []byte("3"), Feature: FeatureSum, SumContribution: 5},
	}
	_, err := tr.Apply(ctx, batch)
	require.NoError(t, err)

	rootHash, err := tr.RootHash(ctx)
	require.NoError(t, err)

	ops, err := tr.GenerateFullProof(ctx)
	require.NoError(t, err)

	result, err := Verify(ops)
	require.NoError(t, err)
	require.Equal(t, rootHash, result.RootHash)
}

func TestTrunkProofPrunesBelowHeight(t *testing.T) {
	ctx, tr := newTestTree(t)
	var batch []PutOp
	for i := 0; i < 20; i++ {
		batch = append(batch, putOp(string(rune('a'+i)), "v"))
	}
	_, err := tr.Apply(ctx, batch)
	require.NoError(t, err)

	ops, terminals, err := tr.ProduceTrunk(ctx, 1)
	require.NoError(t, err)
	require.NotEmpty(t, terminals)

	root, err := Execute(ops)
	require.NoError(t, err)
	rootHash, _ := root.finalize()

	expected, err := tr.RootHash(ctx)
	require.NoError(t, err)
	require.Equal(t, expected, rootHash)
}
