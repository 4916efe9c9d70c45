package mmr

import (
	"context"
	"encoding/binary"

	"github.com/arborledger/grovedb/storage"
)

// Store is the narrow interface Push and the proof/verify helpers
// need: append a node, fetch a node by position, and report the current
// size. It mirrors the teacher's NodeAppender (mmr.NodeAppender in
// add.go) generalized from a bare hash slice to the full Node envelope so a
// DataLeaf's original value is recoverable by position, not just its hash.
type Store interface {
	Append(ctx context.Context, node Node) (pos uint64, err error)
	Get(ctx context.Context, pos uint64) (Node, error)
	Size(ctx context.Context) (uint64, error)
}

// indexStoreGetter is the read-only subset InclusionProof needs; kept distinct from Store so proof code can run against a partial
// view (e.g. a replica mid-restore) that can't yet Append.
type indexStoreGetter interface {
	Get(i uint64) ([]byte, error)
}

// hashOnlyAdapter adapts a Store to indexStoreGetter by returning just the
// node hash for a position.
type hashOnlyAdapter struct {
	ctx   context.Context
	store Store
}

func (a hashOnlyAdapter) Get(i uint64) ([]byte, error) {
	n, err := a.store.Get(a.ctx, i)
	if err != nil {
		return nil, err
	}
	return n.Hash, nil
}

// ContextStore persists MMR nodes in a storage.Context, keyed by the
// node's 8-byte big-endian position. The size is cached in a dedicated
// key so Size doesn't require a tail scan on every call.
type ContextStore struct {
	ctx context.Context
	sc  storage.Context
}

var sizeKey = []byte("__mmr_size__")

// NewContextStore wraps sc as an MMR Store scoped to one subtree prefix.
func NewContextStore(ctx context.Context, sc storage.Context) *ContextStore {
	return &ContextStore{ctx: ctx, sc: sc}
}

func posKey(pos uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], pos)
	return b[:]
}

func (s *ContextStore) Append(ctx context.Context, node Node) (uint64, error) {
	size, err := s.Size(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.sc.Put(ctx, posKey(size), node.Encode()); err != nil {
		return 0, err
	}
	size++
	if err := s.sc.Put(ctx, sizeKey, posKey(size)); err != nil {
		return 0, err
	}
	return size - 1, nil
}

func (s *ContextStore) Get(ctx context.Context, pos uint64) (Node, error) {
	raw, err := s.sc.Get(ctx, posKey(pos))
	if err != nil {
		return Node{}, err
	}
	if raw == nil {
		return Node{}, ErrIndexOutOfRange
	}
	return DecodeNode(raw)
}

func (s *ContextStore) Size(ctx context.Context) (uint64, error) {
	raw, err := s.sc.Get(ctx, sizeKey)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}
