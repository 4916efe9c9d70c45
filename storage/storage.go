// Package storage adapts the store's four logical namespaces (main, aux,
// roots, meta) onto an external ordered byte-key engine.
//
// The engine itself is an out-of-scope collaborator (spec.md §1, §6.1):
// this package only specifies the shape the core needs from it — prefixed
// contexts, snapshot transactions, atomic multi-context batches, raw
// iteration, and checkpoints — and ships one concrete, in-memory
// implementation so the rest of the module (and its tests) has something
// real to run against. A production deployment swaps Engine for a RocksDB-
// or Pebble-backed one without touching anything above this package, the
// same separation the teacher draws between massifs.ObjectReader/Writer
// (an interface) and its Azure-blob-backed implementation.
package storage

import "context"

// Column names the four logical namespaces spec.md §6.3 requires.
type Column uint8

const (
	// ColumnMain holds Merk nodes keyed by subtree_prefix ‖ node_key.
	ColumnMain Column = iota
	// ColumnAux holds specialized-subtree data (commitment frontiers, bulk
	// tree metadata and buffer entries) keyed by subtree_prefix ‖ subkey.
	ColumnAux
	// ColumnRoots is reserved for per-Merk root-key pointers; nothing in
	// this module writes it, since each Merk tree keeps its pointer in
	// ColumnMain alongside its nodes (see ops.Store.merkAt).
	ColumnRoots
	// ColumnMeta holds version records and counters. Never prefixed.
	ColumnMeta
)

func (c Column) String() string {
	switch c {
	case ColumnMain:
		return "main"
	case ColumnAux:
		return "aux"
	case ColumnRoots:
		return "roots"
	case ColumnMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// KV is a single key/value pair, used by iteration and batch results.
type KV struct {
	Key   []byte
	Value []byte
}

// Reader is the read side of a prefixed context.
type Reader interface {
	Get(ctx context.Context, key []byte) ([]byte, error)
	Has(ctx context.Context, key []byte) (bool, error)
	// Iterate walks keys within the context's prefix in key order (or
	// reverse if reverse is true), calling fn until it returns false or
	// the range is exhausted.
	Iterate(ctx context.Context, reverse bool, fn func(kv KV) (bool, error)) error
}

// Writer is the write side of a prefixed context.
type Writer interface {
	Put(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error
}

// Context scopes all reads and writes to one Column and one byte prefix
// within it, mirroring massifs/storage's PathProvider-scoped access but
// generalized to arbitrary ordered-KV prefixes instead of blob paths.
type Context interface {
	Reader
	Writer
	Column() Column
	Prefix() []byte
}

// Batch collects writes across multiple contexts/columns for atomic commit,
// matching spec.md §4.9's "all writes flow through one external storage
// batch" requirement.
type Batch interface {
	Writer
	// WithContext scopes subsequent Put/Delete calls on the returned
	// Writer to col/prefix, while still committing atomically with the
	// rest of the batch.
	WithContext(col Column, prefix []byte) Writer
	// Commit applies every buffered write atomically. On error, none of
	// the writes are visible.
	Commit(ctx context.Context) error
}

// Txn is a snapshot transaction: reads observe a consistent point-in-time
// view, writes are invisible to other transactions until Commit.
type Txn interface {
	Context(col Column, prefix []byte) Context
	NewBatch() Batch
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Checkpoint is a consistent, restartable copy of the whole engine made at a
// point in time, per spec.md §6.1(f).
type Checkpoint interface {
	// Dir is the directory the checkpoint was written to.
	Dir() string
}

// Engine is the full surface the core consumes from the underlying ordered
// byte-key storage engine (spec.md §6.1).
type Engine interface {
	// Context opens a read/write prefixed context outside of any explicit
	// transaction (auto-committing per call).
	Context(col Column, prefix []byte) Context
	// BeginTxn starts a new snapshot transaction.
	BeginTxn(ctx context.Context) (Txn, error)
	// NewBatch starts a batch not bound to any transaction.
	NewBatch() Batch
	// Checkpoint writes a consistent copy of the engine to dir.
	Checkpoint(ctx context.Context, dir string) (Checkpoint, error)
	// Close releases engine resources.
	Close() error
}

// SubtreePrefix computes the stable 32-byte storage-key prefix for a path,
// per spec.md §6.3's "subtree_prefix is a 32-byte BLAKE3-style digest of the
// path segments under a domain tag, stable across restarts".
func SubtreePrefix(path [][]byte) [32]byte {
	return subtreePrefix(path)
}
