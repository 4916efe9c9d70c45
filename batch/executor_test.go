package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/mmr"
	"github.com/arborledger/grovedb/ops"
	"github.com/arborledger/grovedb/storage"
)

func newExecutor() (*ops.Store, *Executor) {
	eng := storage.NewMemoryEngine()
	store := ops.NewStore(eng)
	return store, NewExecutor(store, eng)
}

func TestExecutePropagatesSumAggregateToParent(t *testing.T) {
	ctx := context.Background()
	store, ex := newExecutor()

	require.NoError(t, store.Insert(ctx, nil, []byte("sum_tree"), element.Element{Kind: element.KindSumTree}))

	sumTreePath := [][]byte{[]byte("sum_tree")}
	costs, err := ex.Execute(ctx, []QualifiedOp{
		{Path: sumTreePath, Key: []byte("key1"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindSumItem, Sum: 15000}}},
		{Path: sumTreePath, Key: []byte("key2"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindSumItem, Sum: 2500}}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, costs)

	parent, err := store.GetRaw(ctx, nil, []byte("sum_tree"))
	require.NoError(t, err)
	require.Equal(t, int64(17500), parent.Sum)
	require.NotNil(t, parent.RootKey)
}

func TestExecuteDeleteSumItemRestoresRoot(t *testing.T) {
	ctx := context.Background()
	store, ex := newExecutor()

	require.NoError(t, store.Insert(ctx, nil, []byte("sum_tree"), element.Element{Kind: element.KindSumTree}))
	sumTreePath := [][]byte{[]byte("sum_tree")}

	parentBefore, err := store.GetRaw(ctx, nil, []byte("sum_tree"))
	require.NoError(t, err)
	require.Nil(t, parentBefore.RootKey)

	_, err = ex.Execute(ctx, []QualifiedOp{
		{Path: sumTreePath, Key: []byte("key1"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindSumItem, Sum: 15000}}},
	})
	require.NoError(t, err)

	parentMid, err := store.GetRaw(ctx, nil, []byte("sum_tree"))
	require.NoError(t, err)
	require.Equal(t, int64(15000), parentMid.Sum)
	require.NotNil(t, parentMid.RootKey)

	_, err = ex.Execute(ctx, []QualifiedOp{
		{Path: sumTreePath, Key: []byte("key1"), Op: Op{Kind: KindDelete}},
	})
	require.NoError(t, err)

	parentAfter, err := store.GetRaw(ctx, nil, []byte("sum_tree"))
	require.NoError(t, err)
	require.Equal(t, int64(0), parentAfter.Sum)
	require.Nil(t, parentAfter.RootKey)
}

func TestExecutePreprocessesMmrAppend(t *testing.T) {
	ctx := context.Background()
	store, ex := newExecutor()

	require.NoError(t, store.Insert(ctx, nil, []byte("log"), element.Element{Kind: element.KindMmrTree}))
	logPath := [][]byte{}

	_, err := ex.Execute(ctx, []QualifiedOp{
		{Path: logPath, Key: []byte("log"), Op: Op{Kind: KindMmrTreeAppend, Value: []byte("v0")}},
		{Path: logPath, Key: []byte("log"), Op: Op{Kind: KindMmrTreeAppend, Value: []byte("v1")}},
		{Path: logPath, Key: []byte("log"), Op: Op{Kind: KindMmrTreeAppend, Value: []byte("v2")}},
	})
	require.NoError(t, err)

	got, err := store.GetRaw(ctx, nil, []byte("log"))
	require.NoError(t, err)
	require.Equal(t, element.KindMmrTree, got.Kind)
	require.Equal(t, uint64(3), mmr.LeafCount(got.MmrSize))
}

func TestEstimatorsUpperBoundRealCost(t *testing.T) {
	ctx := context.Background()
	store, ex := newExecutor()
	require.NoError(t, store.Insert(ctx, nil, []byte("tree"), element.Element{Kind: element.KindTree}))

	treePath := [][]byte{[]byte("tree")}
	qops := []QualifiedOp{
		{Path: treePath, Key: []byte("a"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindItem, Bytes: []byte("value-a")}}},
	}

	layers := map[string]EstimatedLayerInformation{
		pathOnlyKey(treePath): {EstimatedLayerCount: 4, EstimatedElementSize: 64},
	}
	avg, err := AverageCaseCost(qops, layers)
	require.NoError(t, err)
	worst, err := WorstCaseCost(qops, layers)
	require.NoError(t, err)
	require.True(t, worst.GreaterOrEqual(avg))

	costs, err := ex.Execute(ctx, qops)
	require.NoError(t, err)
	real := FromMerkCost(costs[pathOnlyKey(treePath)])
	require.True(t, worst.GreaterOrEqual(real))
}

func TestEstimatorMissingLayerInformation(t *testing.T) {
	qops := []QualifiedOp{{Path: [][]byte{[]byte("x")}, Key: []byte("a"), Op: Op{Kind: KindInsertOrReplace}}}
	_, err := AverageCaseCost(qops, nil)
	require.ErrorIs(t, err, ErrPathNotFoundInCacheForEstimatedCosts)
}

func TestExecuteWithIDReturnsDistinctCorrelationIDs(t *testing.T) {
	ctx := context.Background()
	store, ex := newExecutor()
	require.NoError(t, store.Insert(ctx, nil, []byte("tree"), element.Element{Kind: element.KindTree}))
	treePath := [][]byte{[]byte("tree")}

	id1, _, err := ex.ExecuteWithID(ctx, []QualifiedOp{
		{Path: treePath, Key: []byte("a"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindItem, Bytes: []byte("1")}}},
	})
	require.NoError(t, err)
	id2, _, err := ex.ExecuteWithID(ctx, []QualifiedOp{
		{Path: treePath, Key: []byte("b"), Op: Op{Kind: KindInsertOrReplace, Element: element.Element{Kind: element.KindItem, Bytes: []byte("2")}}},
	})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}
