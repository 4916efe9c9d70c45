package batch

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/arborledger/grovedb/bulktree"
	"github.com/arborledger/grovedb/commitment"
	"github.com/arborledger/grovedb/densetree"
	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
	"github.com/arborledger/grovedb/mmr"
	"github.com/arborledger/grovedb/ops"
	"github.com/arborledger/grovedb/pathref"
	"github.com/arborledger/grovedb/storage"
)

// DefaultEpochSize is the Bulk Append Tree / commitment-tree payload-store
// epoch size a preprocessing group uses when the element it is updating
// has not recorded one yet (EpochSize/ChunkPower still zero).
const DefaultEpochSize = 1024

// DefaultDenseHeight is the dense fixed-size tree height a preprocessing
// group uses when the element it is updating has not recorded one yet.
const DefaultDenseHeight = 16

// Executor applies qualified batch ops against store, preprocessing
// specialized-subtree ops into canonical Merk root-replacement ops and
// propagating each path's new root hash/key/aggregate into its parent's
// stored element (spec.md §4.9).
type Executor struct {
	store  *ops.Store
	eng    storage.Engine
	logger *slog.Logger
}

// Option configures an Executor, following the teacher's
// massifs/options.go functional-options convention.
type Option func(*Executor)

// WithLogger overrides the Executor's logger, which defaults to
// slog.Default() (spec.md's ambient stack: the executor owns storage I/O
// the way massifs.MassifCommitter owns blob I/O, so it is one of the
// packages that accepts one).
func WithLogger(l *slog.Logger) Option {
	return func(x *Executor) { x.logger = l }
}

// NewExecutor constructs an Executor over store/eng. eng must be the same
// engine store itself was built from: the executor opens Merk trees and
// specialized-subtree storage directly, alongside store's own (path, key)
// accessors.
func NewExecutor(store *ops.Store, eng storage.Engine, opts ...Option) *Executor {
	x := &Executor{store: store, eng: eng, logger: slog.Default()}
	for _, o := range opts {
		o(x)
	}
	return x
}

// ExecuteWithID is Execute wrapped with a fresh correlation id, logged
// around the call the way mmrtesting/testcontext.go tags its test-run
// logs with a uuid — useful for a caller correlating Execute's cost
// output with other log lines from the same batch.
func (x *Executor) ExecuteWithID(ctx context.Context, qualifiedOps []QualifiedOp) (uuid.UUID, map[string]Cost, error) {
	id := uuid.New()
	x.logger.Debug("batch execute starting", "batch_id", id, "op_count", len(qualifiedOps))
	costs, err := x.Execute(ctx, qualifiedOps)
	if err != nil {
		x.logger.Debug("batch execute failed", "batch_id", id, "error", err)
		return id, nil, err
	}
	x.logger.Debug("batch execute complete", "batch_id", id, "paths_touched", len(costs))
	return id, costs, nil
}

func (x *Executor) merkAt(path [][]byte) *merk.Tree {
	prefix := storage.SubtreePrefix(path)
	return merk.Open(x.eng.Context(storage.ColumnMain, prefix[:]))
}

func (x *Executor) auxAt(path [][]byte, key []byte) storage.Context {
	prefix := storage.SubtreePrefix(pathref.Join(path, key))
	return x.eng.Context(storage.ColumnAux, prefix[:])
}

func pathKey(path [][]byte, key []byte) string { return pathref.QualifiedKey(path, key) }
func pathOnlyKey(path [][]byte) string         { return pathref.QualifiedKey(path, nil) }

// Execute applies qualifiedOps: it preprocesses specialized ops into
// root-replacement ops (step 1–3 of spec.md §4.9), applies everything
// remaining leaf-first — deepest path first — and propagates each path's
// new root into its parent (the Propagation step). It returns the
// accumulated Cost per path, keyed by pathOnlyKey(path).
func (x *Executor) Execute(ctx context.Context, qualifiedOps []QualifiedOp) (map[string]Cost, error) {
	preprocessed, err := x.preprocess(ctx, qualifiedOps)
	if err != nil {
		return nil, err
	}
	return x.applyLeafFirst(ctx, preprocessed)
}

// group accumulates every specialized op sharing one (path, key) while
// preserving the caller's insertion order within the group (spec.md §4.9
// step 1: "Group by (path, key) preserving insertion order").
type group struct {
	path [][]byte
	key  []byte
	kind Kind
	ops  []Op
}

// preprocess implements spec.md §4.9 steps 1–3: groups specialized ops by
// (path, key), resolves each group against its in-memory specialized
// structure, and substitutes the whole group with the single
// root-replacement op it produced, dropping the rest (step 3: "Drop every
// other specialized op for that group from the batch"). Non-specialized
// ops pass through in their original relative order.
func (x *Executor) preprocess(ctx context.Context, in []QualifiedOp) ([]QualifiedOp, error) {
	groups := make(map[string]*group)
	var order []string

	for _, qo := range in {
		if !qo.Op.Kind.isSpecialized() {
			continue
		}
		k := pathKey(qo.Path, qo.Key)
		g, ok := groups[k]
		if !ok {
			g = &group{path: qo.Path, key: qo.Key, kind: qo.Op.Kind}
			groups[k] = g
			order = append(order, k)
		} else if g.kind != qo.Op.Kind {
			return nil, ErrMixedSpecializedKinds
		}
		g.ops = append(g.ops, qo.Op)
	}

	resolved := make(map[string]QualifiedOp, len(order))
	for _, k := range order {
		replacement, err := x.resolveGroup(ctx, groups[k])
		if err != nil {
			return nil, err
		}
		resolved[k] = replacement
	}

	emitted := make(map[string]bool, len(order))
	final := make([]QualifiedOp, 0, len(in))
	for _, qo := range in {
		if !qo.Op.Kind.isSpecialized() {
			final = append(final, qo)
			continue
		}
		k := pathKey(qo.Path, qo.Key)
		if emitted[k] {
			continue
		}
		emitted[k] = true
		final = append(final, resolved[k])
	}
	return final, nil
}

// resolveGroup loads the current element at g.path/g.key, verifies its
// kind matches g.kind's specialized family, opens that family's storage
// under the aux column, applies every grouped op in order against the
// in-memory structure, and returns the single ReplaceNonMerkTreeRoot op
// the whole group collapses to.
func (x *Executor) resolveGroup(ctx context.Context, g *group) (QualifiedOp, error) {
	el, err := x.store.GetRaw(ctx, g.path, g.key)
	if err != nil {
		return QualifiedOp{}, err
	}

	var newEl element.Element
	switch g.kind {
	case KindBulkAppend:
		if el.Kind != element.KindBulkAppendTree {
			return QualifiedOp{}, ErrElementNotSubtree
		}
		epochSize := el.EpochSize
		if epochSize == 0 {
			epochSize = DefaultEpochSize
		}
		tree, err := bulktree.New(ctx, x.auxAt(g.path, g.key), epochSize)
		if err != nil {
			return QualifiedOp{}, err
		}
		var res bulktree.AppendResult
		for _, op := range g.ops {
			if res, err = tree.Append(ctx, op.Value); err != nil {
				return QualifiedOp{}, err
			}
		}
		total, err := tree.TotalCount(ctx)
		if err != nil {
			return QualifiedOp{}, err
		}
		newEl = element.Element{
			Kind: element.KindBulkAppendTree, StateRoot: res.StateRoot,
			Count: total, EpochSize: epochSize, Flags: el.Flags,
		}

	case KindCommitmentTreeInsert:
		if el.Kind != element.KindCommitmentTree {
			return QualifiedOp{}, ErrElementNotSubtree
		}
		chunkPower := el.ChunkPower
		chunkSize := uint64(1) << chunkPower
		if chunkPower == 0 {
			chunkSize = DefaultEpochSize
		}
		tree, err := commitment.Open(ctx, x.auxAt(g.path, g.key), chunkSize)
		if err != nil {
			return QualifiedOp{}, err
		}
		var anchor [32]byte
		for _, op := range g.ops {
			res, err := tree.Append(ctx, op.Cmx, op.Payload)
			if err != nil {
				return QualifiedOp{}, err
			}
			anchor = res.SinsemillaRoot
		}
		newEl = element.Element{
			Kind: element.KindCommitmentTree, SinsemillaRoot: anchor,
			Count: tree.TreeSize(), ChunkPower: chunkPower, Flags: el.Flags,
		}

	case KindMmrTreeAppend:
		if el.Kind != element.KindMmrTree {
			return QualifiedOp{}, ErrElementNotSubtree
		}
		store := mmr.NewContextStore(ctx, x.auxAt(g.path, g.key))
		for _, op := range g.ops {
			if _, err := mmr.Push(ctx, store, op.Value); err != nil {
				return QualifiedOp{}, err
			}
		}
		size, err := store.Size(ctx)
		if err != nil {
			return QualifiedOp{}, err
		}
		newEl = element.Element{Kind: element.KindMmrTree, MmrSize: size, Flags: el.Flags}

	case KindDenseTreeInsert:
		if el.Kind != element.KindDenseAppendOnlyFixedSizeTree {
			return QualifiedOp{}, ErrElementNotSubtree
		}
		height := el.Height
		if height == 0 {
			height = DefaultDenseHeight
		}
		tree, err := densetree.New(x.auxAt(g.path, g.key), height)
		if err != nil {
			return QualifiedOp{}, err
		}
		var rootHash [32]byte
		for _, op := range g.ops {
			rootHash, _, err = tree.Insert(ctx, op.Value)
			if err != nil {
				return QualifiedOp{}, err
			}
		}
		count, err := tree.Count(ctx)
		if err != nil {
			return QualifiedOp{}, err
		}
		newEl = element.Element{
			Kind: element.KindDenseAppendOnlyFixedSizeTree, RootHash: rootHash,
			Count: count, Height: height, Flags: el.Flags,
		}

	default:
		return QualifiedOp{}, ErrMixedSpecializedKinds
	}

	return QualifiedOp{Path: g.path, Key: g.key, Op: Op{Kind: KindReplaceNonMerkTreeRoot, NewElement: newEl}}, nil
}

// applyLeafFirst groups preprocessed ops by path and applies them deepest
// path first, discovering and queuing each parent path for its own
// propagation update as a child path finishes (spec.md §4.9's Execution
// order and Propagation steps).
func (x *Executor) applyLeafFirst(ctx context.Context, preprocessed []QualifiedOp) (map[string]Cost, error) {
	pathObj := make(map[string][][]byte)
	byDepth := make(map[int][]string)
	opsAt := make(map[string][]QualifiedOp)
	maxDepth := 0

	for _, qo := range preprocessed {
		k := pathOnlyKey(qo.Path)
		if _, ok := pathObj[k]; !ok {
			pathObj[k] = qo.Path
			d := len(qo.Path)
			byDepth[d] = append(byDepth[d], k)
			if d > maxDepth {
				maxDepth = d
			}
		}
		opsAt[k] = append(opsAt[k], qo)
	}

	pending := make(map[string][]merk.PutOp)
	costs := make(map[string]Cost)

	for d := maxDepth; d >= 0; d-- {
		for _, k := range byDepth[d] {
			path := pathObj[k]
			batchOps, err := x.buildBatch(ctx, path, opsAt[k], pending[k])
			if err != nil {
				return nil, err
			}
			if len(batchOps) == 0 {
				continue
			}
			tree := x.merkAt(path)
			cost, err := tree.Apply(ctx, batchOps)
			if err != nil {
				return nil, err
			}
			costs[k] = cost

			if len(path) == 0 {
				continue
			}
			parentPath := path[:len(path)-1]
			pk := pathOnlyKey(parentPath)
			update, err := x.childUpdate(ctx, tree, path, parentPath)
			if err != nil {
				return nil, err
			}
			pending[pk] = append(pending[pk], update)
			if _, ok := pathObj[pk]; !ok {
				pathObj[pk] = parentPath
				byDepth[d-1] = append(byDepth[d-1], pk)
			}
		}
	}
	return costs, nil
}

// buildBatch merges this path's explicit ops with any pending child
// propagation updates into one sorted, unique-key merk.PutOp batch,
// absolutizing non-absolute references along the way (spec.md §4.9 step
// 2: "Convert non-absolute references to absolute using the path
// context"). Explicit ops take priority over a same-keyed pending update.
func (x *Executor) buildBatch(ctx context.Context, path [][]byte, explicit []QualifiedOp, pending []merk.PutOp) ([]merk.PutOp, error) {
	byKey := make(map[string]merk.PutOp, len(explicit)+len(pending))
	for _, p := range pending {
		byKey[string(p.Key)] = p
	}
	for _, qo := range explicit {
		put, err := x.convertOp(path, qo.Key, qo.Op)
		if err != nil {
			return nil, err
		}
		byKey[string(qo.Key)] = put
	}

	out := make([]merk.PutOp, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return string(out[i].Key) < string(out[j].Key) })
	return out, nil
}

// convertOp translates one explicit Op into a merk.PutOp, resolving
// non-absolute references against path (the Merk tree they are about to
// be stored in).
func (x *Executor) convertOp(path [][]byte, key []byte, op Op) (merk.PutOp, error) {
	switch op.Kind {
	case KindDelete:
		return merk.PutOp{Key: key, Delete: true}, nil
	case KindInsertOrReplace:
		el := op.Element
		if el.Kind == element.KindReference && el.Ref.Kind != element.RefAbsolute {
			targetPath, targetKey, err := pathref.Resolve(el.Ref, path, key)
			if err != nil {
				return merk.PutOp{}, err
			}
			el.Ref = element.Reference{
				Kind: element.RefAbsolute, Path: pathref.Join(targetPath, targetKey),
				MaxHops: el.Ref.MaxHops,
			}
		}
		return putOpFor(key, el), nil
	case KindReplaceTreeRootKey, KindReplaceNonMerkTreeRoot:
		return putOpFor(key, op.NewElement), nil
	default:
		return merk.PutOp{}, ErrElementNotSubtree
	}
}

// childUpdate resolves childTree's new root hash/key/aggregate into a
// merk.PutOp overwriting the element parentPath stores for childPath's
// last segment, preserving that element's own Kind (spec.md §4.9's
// Propagation step: "update the Merk entry at (parent_path,
// child_path_last_segment) via ReplaceTreeRootKey with the child's new
// root hash, root key, and aggregate").
func (x *Executor) childUpdate(ctx context.Context, childTree *merk.Tree, childPath, parentPath [][]byte) (merk.PutOp, error) {
	childKey := childPath[len(childPath)-1]
	parentEl, err := x.store.GetRaw(ctx, parentPath, childKey)
	if err != nil {
		return merk.PutOp{}, err
	}
	rootKey, err := childTree.RootKey(ctx)
	if err != nil {
		return merk.PutOp{}, err
	}
	agg, err := childTree.RootAggregate(ctx)
	if err != nil {
		return merk.PutOp{}, err
	}
	parentEl.RootKey = rootKey
	switch parentEl.Kind {
	case element.KindSumTree:
		parentEl.Sum = agg.Sum
	case element.KindBigSumTree:
		parentEl.BigSumLo = uint64(agg.Sum)
	case element.KindCountTree, element.KindProvableCountTree:
		parentEl.Count = agg.Count
	case element.KindCountSumTree, element.KindProvableCountSumTree:
		parentEl.Sum = agg.Sum
		parentEl.Count = agg.Count
	}
	return putOpFor(childKey, parentEl), nil
}

// putOpFor is the element-to-PutOp translation shared by every path that
// ends up writing an Element into a Merk tree (ops.Store.Insert's private
// twin, duplicated here since the two packages intentionally don't share
// an import so either can evolve its own Merk-facing policy).
func putOpFor(key []byte, el element.Element) merk.PutOp {
	feature, sum, count := featureForElement(el)
	put := merk.PutOp{Key: key, Value: el.Encode(), Feature: feature, Flags: el.Flags, SumContribution: sum}
	if count != nil {
		put.CountContribution = count
	}
	return put
}

func featureForElement(e element.Element) (merk.FeatureType, int64, *uint64) {
	switch e.Kind {
	case element.KindSumItem, element.KindItemWithSumItem:
		return merk.FeatureSum, e.Sum, nil
	case element.KindSumTree:
		return merk.FeatureSum, e.Sum, nil
	case element.KindBigSumTree:
		return merk.FeatureSum, int64(e.BigSumLo), nil
	case element.KindCountTree:
		count := e.Count
		return merk.FeatureCount, 0, &count
	case element.KindProvableCountTree:
		count := e.Count
		return merk.FeatureCountProvable, 0, &count
	case element.KindCountSumTree:
		count := e.Count
		return merk.FeatureCountSum, e.Sum, &count
	case element.KindProvableCountSumTree:
		count := e.Count
		return merk.FeatureCountSumProvable, e.Sum, &count
	default:
		return merk.FeatureBasic, 0, nil
	}
}
