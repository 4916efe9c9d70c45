package mmr

import (
	"bytes"
	"context"
	"testing"

	"github.com/arborledger/grovedb/internal/grovehash"
	"github.com/arborledger/grovedb/storage"
)

func newTestStore(t *testing.T) (context.Context, Store) {
	t.Helper()
	ctx := context.Background()
	eng := storage.NewMemoryEngine()
	return ctx, NewContextStore(ctx, eng.Context(storage.ColumnMain, []byte("mmr-test")))
}

func TestThreeLeafMMRRoot(t *testing.T) {
	ctx, store := newTestStore(t)

	for _, v := range [][]byte{{0}, {1}, {2}} {
		if _, err := Push(ctx, store, v); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	size, err := store.Size(ctx)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 4 {
		t.Fatalf("mmr_size = %d, want 4", size)
	}

	// Peaks() reports one-based positions; the spec's "positions 2 and 3"
	// are the zero-based indices of those same two nodes.
	peaks := Peaks(size)
	if len(peaks) != 2 || peaks[0] != 3 || peaks[1] != 4 {
		t.Fatalf("peaks = %v, want [3 4]", peaks)
	}

	root, err := GetRoot(ctx, store)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}

	n0, _ := store.Get(ctx, 0)
	n1, _ := store.Get(ctx, 1)
	n2Expected := grovehash.Sum32Slice(grovehash.TagMMRInternal, n0.Hash, n1.Hash)
	n2, _ := store.Get(ctx, 2)
	if !bytes.Equal(n2.Hash, n2Expected) {
		t.Fatalf("internal node 2 hash mismatch")
	}
	n3, _ := store.Get(ctx, 3)

	wantRoot := grovehash.Sum32Slice(grovehash.TagMMRInternal, n2.Hash, n3.Hash)
	if !bytes.Equal(root, wantRoot) {
		t.Fatalf("root mismatch: got %x want %x", root, wantRoot)
	}
}

func TestPushAndVerifyInclusion(t *testing.T) {
	ctx, store := newTestStore(t)

	var positions []uint64
	leaves := [][]byte{{0}, {1}, {2}, {3}, {4}, {5}, {6}}
	for _, v := range leaves {
		pos, err := Push(ctx, store, v)
		if err != nil {
			t.Fatalf("push: %v", err)
		}
		positions = append(positions, pos)
	}

	for i, v := range leaves {
		proof, err := GenProof(ctx, store, positions[i])
		if err != nil {
			t.Fatalf("gen proof for leaf %d: %v", i, err)
		}
		ok, err := Verify(ctx, store, v, proof)
		if err != nil {
			t.Fatalf("verify leaf %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("leaf %d did not verify", i)
		}
	}
}

func TestVerifyInclusionRejectsWrongValue(t *testing.T) {
	ctx, store := newTestStore(t)

	var pos uint64
	for _, v := range [][]byte{{0}, {1}, {2}} {
		p, err := Push(ctx, store, v)
		if err != nil {
			t.Fatalf("push: %v", err)
		}
		pos = p
	}

	proof, err := GenProof(ctx, store, pos)
	if err != nil {
		t.Fatalf("gen proof: %v", err)
	}
	ok, err := Verify(ctx, store, []byte{99}, proof)
	if err == nil || ok {
		t.Fatalf("expected verification failure for tampered value, got ok=%v err=%v", ok, err)
	}
}

func TestGetRootOnEmptyMMR(t *testing.T) {
	ctx, store := newTestStore(t)
	if _, err := GetRoot(ctx, store); err != ErrGetRootOnEmpty {
		t.Fatalf("expected ErrGetRootOnEmpty, got %v", err)
	}
}

func TestCalculateRootWithNewLeaf(t *testing.T) {
	ctx, store := newTestStore(t)

	for _, v := range [][]byte{{0}, {1}, {2}} {
		if _, err := Push(ctx, store, v); err != nil {
			t.Fatalf("push: %v", err)
		}
	}
	preSize, err := store.Size(ctx)
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	knownPeaks, err := PeakHashes(ctx, storeHashGetter{store}, preSize)
	if err != nil {
		t.Fatalf("peak hashes: %v", err)
	}

	newLeaf := []byte{3}
	if _, err := Push(ctx, store, newLeaf); err != nil {
		t.Fatalf("push: %v", err)
	}
	wantRoot, err := GetRoot(ctx, store)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}

	gotRoot := CalculateRootWithNewLeaf(knownPeaks, preSize, newLeaf)
	if !bytes.Equal(gotRoot, wantRoot) {
		t.Fatalf("calculated root mismatch: got %x want %x", gotRoot, wantRoot)
	}
}

func TestPushDataLeaf(t *testing.T) {
	ctx, store := newTestStore(t)

	h := grovehash.Sum32Slice(0xAB, []byte("epoch-blob"))
	pos, err := PushDataLeaf(ctx, store, h, []byte("epoch-blob"))
	if err != nil {
		t.Fatalf("push data leaf: %v", err)
	}
	n, err := store.Get(ctx, pos)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n.Kind != KindDataLeaf || !bytes.Equal(n.Hash, h) {
		t.Fatalf("data leaf round trip mismatch")
	}
}
