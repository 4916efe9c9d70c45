package storage

import "context"

// WithSubspace returns a Context that namespaces every key under ns before
// delegating to parent, so one package can carve several independent
// logical stores (e.g. a Bulk Append Tree's buffer, its epoch blobs, and
// its internal MMR) out of a single storage.Context without needing direct
// access to the underlying Engine to mint new prefixes.
func WithSubspace(parent Context, ns []byte) Context {
	return &subspaceContext{parent: parent, ns: append([]byte(nil), ns...)}
}

type subspaceContext struct {
	parent Context
	ns     []byte
}

func (s *subspaceContext) nsKey(key []byte) []byte {
	out := make([]byte, 0, len(s.ns)+1+len(key))
	out = append(out, s.ns...)
	out = append(out, 0)
	return append(out, key...)
}

func (s *subspaceContext) Column() Column { return s.parent.Column() }
func (s *subspaceContext) Prefix() []byte { return append(append([]byte(nil), s.parent.Prefix()...), s.ns...) }

func (s *subspaceContext) Get(ctx context.Context, key []byte) ([]byte, error) {
	return s.parent.Get(ctx, s.nsKey(key))
}

func (s *subspaceContext) Has(ctx context.Context, key []byte) (bool, error) {
	return s.parent.Has(ctx, s.nsKey(key))
}

func (s *subspaceContext) Put(ctx context.Context, key, value []byte) error {
	return s.parent.Put(ctx, s.nsKey(key), value)
}

func (s *subspaceContext) Delete(ctx context.Context, key []byte) error {
	return s.parent.Delete(ctx, s.nsKey(key))
}

func (s *subspaceContext) Iterate(ctx context.Context, reverse bool, fn func(kv KV) (bool, error)) error {
	prefix := append(append([]byte(nil), s.ns...), 0)
	return s.parent.Iterate(ctx, reverse, func(kv KV) (bool, error) {
		if len(kv.Key) < len(prefix) || string(kv.Key[:len(prefix)]) != string(prefix) {
			return true, nil
		}
		return fn(KV{Key: kv.Key[len(prefix):], Value: kv.Value})
	})
}
