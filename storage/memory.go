package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sort"
	"sync"
)

// ErrClosed is returned by any operation attempted after Close.
var ErrClosed = errors.New("storage: engine closed")

// MemoryEngine is an in-process Engine backed by a sorted map per column. It
// exists so the rest of the module — and every test in this repository —
// has a real, deterministic Engine to run against without depending on a
// specific production KV engine, the same role massifs/storage's in-memory
// test doubles play for the teacher's blob-store abstraction.
type MemoryEngine struct {
	mu      sync.RWMutex
	columns [4]map[string][]byte
	closed  bool
}

// NewMemoryEngine constructs an empty MemoryEngine.
func NewMemoryEngine() *MemoryEngine {
	e := &MemoryEngine{}
	for i := range e.columns {
		e.columns[i] = make(map[string][]byte)
	}
	return e
}

func (e *MemoryEngine) Context(col Column, prefix []byte) Context {
	return &memoryContext{engine: e, col: col, prefix: append([]byte(nil), prefix...)}
}

func (e *MemoryEngine) BeginTxn(ctx context.Context) (Txn, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	snap := [4]map[string][]byte{}
	for i, m := range e.columns {
		cp := make(map[string][]byte, len(m))
		for k, v := range m {
			cp[k] = v
		}
		snap[i] = cp
	}
	return &memoryTxn{engine: e, snapshot: snap, writes: make(map[int]map[string][]byte)}, nil
}

func (e *MemoryEngine) NewBatch() Batch {
	return &memoryBatch{engine: e, writes: make(map[int]map[string][]byte)}
}

func (e *MemoryEngine) Checkpoint(ctx context.Context, dir string) (Checkpoint, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosed
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	// A real engine streams its SST/WAL files; here we just record that a
	// consistent snapshot was requested at this instant by writing nothing
	// further — the in-memory engine has no on-disk files to copy. Callers
	// that need a durable checkpoint should use a disk-backed Engine.
	return memoryCheckpoint{dir: dir}, nil
}

func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type memoryCheckpoint struct{ dir string }

func (c memoryCheckpoint) Dir() string { return c.dir }

func colKey(prefix, key []byte) string {
	return string(prefix) + "\x00" + string(key)
}

type memoryContext struct {
	engine *MemoryEngine
	col    Column
	prefix []byte
}

func (c *memoryContext) Column() Column { return c.col }
func (c *memoryContext) Prefix() []byte { return c.prefix }

func (c *memoryContext) Get(ctx context.Context, key []byte) ([]byte, error) {
	c.engine.mu.RLock()
	defer c.engine.mu.RUnlock()
	v, ok := c.engine.columns[c.col][colKey(c.prefix, key)]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *memoryContext) Has(ctx context.Context, key []byte) (bool, error) {
	c.engine.mu.RLock()
	defer c.engine.mu.RUnlock()
	_, ok := c.engine.columns[c.col][colKey(c.prefix, key)]
	return ok, nil
}

func (c *memoryContext) Iterate(ctx context.Context, reverse bool, fn func(kv KV) (bool, error)) error {
	c.engine.mu.RLock()
	type entry struct {
		key   []byte
		value []byte
	}
	var entries []entry
	prefixStr := string(c.prefix) + "\x00"
	for k, v := range c.engine.columns[c.col] {
		if !bytes.HasPrefix([]byte(k), []byte(prefixStr)) {
			continue
		}
		entries = append(entries, entry{key: []byte(k[len(prefixStr):]), value: append([]byte(nil), v...)})
	}
	c.engine.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	for _, e := range entries {
		cont, err := fn(KV{Key: e.key, Value: e.value})
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (c *memoryContext) Put(ctx context.Context, key, value []byte) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	c.engine.columns[c.col][colKey(c.prefix, key)] = append([]byte(nil), value...)
	return nil
}

func (c *memoryContext) Delete(ctx context.Context, key []byte) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()
	delete(c.engine.columns[c.col], colKey(c.prefix, key))
	return nil
}

// memoryBatch buffers writes per column before an atomic apply.
type memoryBatch struct {
	engine *MemoryEngine
	writes map[int]map[string][]byte // nil value-slice marks delete
}

func (b *memoryBatch) WithContext(col Column, prefix []byte) Writer {
	return &batchContext{batch: b, col: col, prefix: append([]byte(nil), prefix...)}
}

func (b *memoryBatch) Put(ctx context.Context, key, value []byte) error {
	return b.WithContext(ColumnMeta, nil).Put(ctx, key, value)
}

func (b *memoryBatch) Delete(ctx context.Context, key []byte) error {
	return b.WithContext(ColumnMeta, nil).Delete(ctx, key)
}

func (b *memoryBatch) Commit(ctx context.Context) error {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()
	if b.engine.closed {
		return ErrClosed
	}
	for col, m := range b.writes {
		for k, v := range m {
			if v == nil {
				delete(b.engine.columns[col], k)
				continue
			}
			b.engine.columns[col][k] = v
		}
	}
	return nil
}

type batchContext struct {
	batch  *memoryBatch
	col    Column
	prefix []byte
}

func (bc *batchContext) Put(ctx context.Context, key, value []byte) error {
	m := bc.batch.writes[int(bc.col)]
	if m == nil {
		m = make(map[string][]byte)
		bc.batch.writes[int(bc.col)] = m
	}
	m[colKey(bc.prefix, key)] = append([]byte(nil), value...)
	return nil
}

func (bc *batchContext) Delete(ctx context.Context, key []byte) error {
	m := bc.batch.writes[int(bc.col)]
	if m == nil {
		m = make(map[string][]byte)
		bc.batch.writes[int(bc.col)] = m
	}
	m[colKey(bc.prefix, key)] = nil
	return nil
}

// memoryTxn is a snapshot transaction: reads consult the frozen snapshot
// overlaid with this transaction's own pending writes (read-after-write
// within the transaction, per spec.md §5); writes are invisible elsewhere
// until Commit.
type memoryTxn struct {
	engine   *MemoryEngine
	snapshot [4]map[string][]byte
	writes   map[int]map[string][]byte
	done     bool
}

func (t *memoryTxn) Context(col Column, prefix []byte) Context {
	return &txnContext{txn: t, col: col, prefix: append([]byte(nil), prefix...)}
}

func (t *memoryTxn) NewBatch() Batch {
	return &txnBatch{txn: t}
}

func (t *memoryTxn) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("storage: transaction already finished")
	}
	t.done = true
	t.engine.mu.Lock()
	defer t.engine.mu.Unlock()
	if t.engine.closed {
		return ErrClosed
	}
	for col, m := range t.writes {
		for k, v := range m {
			if v == nil {
				delete(t.engine.columns[col], k)
				continue
			}
			t.engine.columns[col][k] = v
		}
	}
	return nil
}

func (t *memoryTxn) Rollback(ctx context.Context) error {
	t.done = true
	t.writes = nil
	return nil
}

type txnContext struct {
	txn    *memoryTxn
	col    Column
	prefix []byte
}

func (c *txnContext) Column() Column { return c.col }
func (c *txnContext) Prefix() []byte { return c.prefix }

func (c *txnContext) Get(ctx context.Context, key []byte) ([]byte, error) {
	k := colKey(c.prefix, key)
	if m, ok := c.txn.writes[int(c.col)]; ok {
		if v, ok := m[k]; ok {
			if v == nil {
				return nil, nil
			}
			return append([]byte(nil), v...), nil
		}
	}
	v, ok := c.txn.snapshot[c.col][k]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (c *txnContext) Has(ctx context.Context, key []byte) (bool, error) {
	v, err := c.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

func (c *txnContext) Iterate(ctx context.Context, reverse bool, fn func(kv KV) (bool, error)) error {
	merged := make(map[string][]byte)
	prefixStr := string(c.prefix) + "\x00"
	for k, v := range c.txn.snapshot[c.col] {
		if bytes.HasPrefix([]byte(k), []byte(prefixStr)) {
			merged[k] = v
		}
	}
	if m, ok := c.txn.writes[int(c.col)]; ok {
		for k, v := range m {
			if !bytes.HasPrefix([]byte(k), []byte(prefixStr)) {
				continue
			}
			if v == nil {
				delete(merged, k)
				continue
			}
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}
	for _, k := range keys {
		cont, err := fn(KV{Key: []byte(k[len(prefixStr):]), Value: append([]byte(nil), merged[k]...)})
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (c *txnContext) Put(ctx context.Context, key, value []byte) error {
	m := c.txn.writes[int(c.col)]
	if m == nil {
		m = make(map[string][]byte)
		c.txn.writes[int(c.col)] = m
	}
	m[colKey(c.prefix, key)] = append([]byte(nil), value...)
	return nil
}

func (c *txnContext) Delete(ctx context.Context, key []byte) error {
	m := c.txn.writes[int(c.col)]
	if m == nil {
		m = make(map[string][]byte)
		c.txn.writes[int(c.col)] = m
	}
	m[colKey(c.prefix, key)] = nil
	return nil
}

// txnBatch buffers writes that land directly in the owning transaction's
// pending-write set on Commit, so a batch committed mid-transaction is
// immediately visible to subsequent reads through that same transaction.
type txnBatch struct {
	txn    *memoryTxn
	writes []func()
}

func (b *txnBatch) WithContext(col Column, prefix []byte) Writer {
	return &txnBatchContext{batch: b, col: col, prefix: append([]byte(nil), prefix...)}
}

func (b *txnBatch) Put(ctx context.Context, key, value []byte) error {
	return b.WithContext(ColumnMeta, nil).Put(ctx, key, value)
}

func (b *txnBatch) Delete(ctx context.Context, key []byte) error {
	return b.WithContext(ColumnMeta, nil).Delete(ctx, key)
}

func (b *txnBatch) Commit(ctx context.Context) error {
	for _, w := range b.writes {
		w()
	}
	return nil
}

type txnBatchContext struct {
	batch  *txnBatch
	col    Column
	prefix []byte
}

func (bc *txnBatchContext) Put(ctx context.Context, key, value []byte) error {
	k, v := colKey(bc.prefix, key), append([]byte(nil), value...)
	bc.batch.writes = append(bc.batch.writes, func() {
		m := bc.batch.txn.writes[int(bc.col)]
		if m == nil {
			m = make(map[string][]byte)
			bc.batch.txn.writes[int(bc.col)] = m
		}
		m[k] = v
	})
	return nil
}

func (bc *txnBatchContext) Delete(ctx context.Context, key []byte) error {
	k := colKey(bc.prefix, key)
	bc.batch.writes = append(bc.batch.writes, func() {
		m := bc.batch.txn.writes[int(bc.col)]
		if m == nil {
			m = make(map[string][]byte)
			bc.batch.txn.writes[int(bc.col)] = m
		}
		m[k] = nil
	})
	return nil
}
