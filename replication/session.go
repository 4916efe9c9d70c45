package replication

import (
	"context"

	"github.com/arborledger/grovedb/element"
	"github.com/arborledger/grovedb/merk"
	"github.com/arborledger/grovedb/pathref"
	"github.com/arborledger/grovedb/storage"
)

// Chunk is the payload a caller supplies for one requested GlobalChunkID —
// the same Op/TerminalRef/trunk-height shape merk.ProduceTrunk/ProduceLeaf
// produce on the source side (spec.md §4.1). This package works against
// already-decoded chunks; the wire encoding of Op/TerminalRef sequences
// themselves is outside spec.md's scope, matching how massifs/massifreplicator
// consumes already-parsed log ranges rather than raw blob bytes.
type Chunk struct {
	IsTrunk     bool
	Ops         []merk.Op
	Terminals   []merk.TerminalRef
	TrunkHeight int
}

// subtreeEntry tracks one in-flight subtree restoration.
type subtreeEntry struct {
	path     [][]byte
	restorer *merk.Restorer
}

// Session drives one destination-side replication pull: given a root hash
// to reach, it discovers nested subtrees as their parents finalize and
// verifies each one's chunks against merk.Restorer, the same per-subtree
// engine C1 (§4.1) uses for chunked state sync in general.
//
// Grounded on massifs/massifreplicator.go's pull loop (ask for the next
// range, verify it, append it locally, ask what's next), generalized from
// one flat MMR log to a tree of nested Merk subtrees.
type Session struct {
	txn      storage.Txn
	rootHash [32]byte

	current   map[[32]byte]*subtreeEntry
	processed map[[32]byte]bool
}

// NewSession opens a replication session against a fresh destination txn,
// expecting the root subtree (the store's top-level Merk tree) to end up
// with hash rootHash once fully restored. version must equal ProtocolVersion.
func NewSession(ctx context.Context, eng storage.Engine, version uint32, rootHash [32]byte) (*Session, error) {
	if version != ProtocolVersion {
		return nil, ErrCorruptedData
	}
	txn, err := eng.BeginTxn(ctx)
	if err != nil {
		return nil, err
	}
	s := &Session{
		txn:       txn,
		rootHash:  rootHash,
		current:   make(map[[32]byte]*subtreeEntry),
		processed: make(map[[32]byte]bool),
	}
	s.openSubtree(nil, merk.NewRestorer(s.contextFor(nil), rootHash))
	return s, nil
}

// NewSessionFromHandshake opens a session from a received Handshake record
// (spec.md §4.11's sync setup step), rejecting a protocol-version mismatch
// the same way NewSession does for a bare version number.
func NewSessionFromHandshake(ctx context.Context, eng storage.Engine, h Handshake) (*Session, error) {
	return NewSession(ctx, eng, h.ProtocolVersion, h.RootHash)
}

func (s *Session) contextFor(path [][]byte) storage.Context {
	prefix := storage.SubtreePrefix(path)
	return s.txn.Context(storage.ColumnMain, prefix[:])
}

func (s *Session) openSubtree(path [][]byte, restorer *merk.Restorer) [32]byte {
	prefix := storage.SubtreePrefix(path)
	s.current[prefix] = &subtreeEntry{path: path, restorer: restorer}
	return prefix
}

// InitialChunkID returns the first chunk the caller should request: the
// root subtree's trunk (spec.md §4.11 step 1).
func (s *Session) InitialChunkID() GlobalChunkID {
	return GlobalChunkID{Prefix: storage.SubtreePrefix(nil), LocalChunk: 0}
}

// ApplyChunk decodes id's target subtree, applies chunk to its restorer,
// and returns the next global chunk ids the caller should request next:
// the subtree's remaining leaf chunks if its trunk just landed, the next
// subtree's trunk(s) if this subtree just finished, or nil if nothing
// further is owed for this branch (spec.md §4.11 steps 2-4).
func (s *Session) ApplyChunk(ctx context.Context, id GlobalChunkID, chunk Chunk) ([]GlobalChunkID, error) {
	entry, ok := s.current[id.Prefix]
	if !ok {
		return nil, ErrInternal
	}

	if chunk.IsTrunk {
		if err := entry.restorer.ApplyTrunk(ctx, chunk.Ops, chunk.Terminals, chunk.TrunkHeight); err != nil {
			return nil, err
		}
		remaining := entry.restorer.Remaining()
		if remaining == 0 {
			return s.finalizeSubtree(ctx, id)
		}
		next := make([]GlobalChunkID, remaining)
		for i := range next {
			next[i] = GlobalChunkID{Prefix: id.Prefix, RootKey: id.RootKey, IsSumTree: id.IsSumTree, LocalChunk: uint64(i + 1)}
		}
		return next, nil
	}

	if err := entry.restorer.ApplyLeaf(ctx, chunk.Ops); err != nil {
		return nil, err
	}
	if entry.restorer.Remaining() == 0 {
		return s.finalizeSubtree(ctx, id)
	}
	return nil, nil
}

// finalizeSubtree completes the subtree at id.Prefix, then walks its
// freshly restored entries for nested Merk-backed subtree elements
// (spec.md's specialized non-Merk subtrees replicate entirely through
// their element value, with no further chunks owed) and opens a Restorer
// for each, returning their initial trunk requests.
func (s *Session) finalizeSubtree(ctx context.Context, id GlobalChunkID) ([]GlobalChunkID, error) {
	entry := s.current[id.Prefix]
	tree, err := entry.restorer.Finalize(ctx)
	if err != nil {
		return nil, err
	}
	delete(s.current, id.Prefix)
	s.processed[id.Prefix] = true

	var next []GlobalChunkID
	err = tree.Iterate(ctx, func(key, value []byte) (bool, error) {
		el, derr := element.Decode(value)
		if derr != nil {
			return false, derr
		}
		if !el.Kind.IsMerkSubtree() {
			return true, nil
		}
		childPath := pathref.Join(entry.path, key)

		// The parent element authenticates its child's root *key*, not its
		// root *hash* (see DESIGN.md); a trusting restorer accepts the first
		// trunk chunk's reconstructed hash as authoritative for this child
		// rather than checking it against an independently known value.
		restorer := merk.NewRestorerTrusting(s.contextFor(childPath))
		childPrefix := s.openSubtree(childPath, restorer)
		next = append(next, GlobalChunkID{
			Prefix:     childPrefix,
			RootKey:    el.RootKey,
			IsSumTree:  el.Kind == element.KindSumTree,
			LocalChunk: 0,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// Done reports whether every subtree discovered so far has been fully
// restored — i.e. whether the caller has no further chunks to request.
func (s *Session) Done() bool {
	return len(s.current) == 0
}

// Finalize verifies the root subtree's restored hash matches the session's
// expected root and commits the destination transaction. It fails with
// ErrSessionNotComplete if any subtree still has outstanding chunks.
func (s *Session) Finalize(ctx context.Context) error {
	if !s.Done() {
		return ErrSessionNotComplete
	}
	got, err := merk.Open(s.contextFor(nil)).RootHash(ctx)
	if err != nil {
		return err
	}
	if got != s.rootHash {
		return ErrRootHashMismatch
	}
	return s.txn.Commit(ctx)
}
