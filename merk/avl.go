package merk

import (
	"bytes"
	"context"

	"github.com/arborledger/grovedb/internal/grovehash"
)

func hashValue(value []byte) [32]byte {
	return grovehash.Sum32(grovehash.TagMerkBasic, value)
}

func ownAggregateFor(op PutOp) Aggregate {
	var a Aggregate
	if op.Feature.TracksCount() {
		a.Count = 1
		if op.CountContribution != nil {
			a.Count = *op.CountContribution
		}
	}
	if op.Feature.TracksSum() {
		a.Sum = op.SumContribution
	}
	return a
}

// insert locates the insertion point for op under the subtree rooted at
// key (nil for an empty subtree), updates or creates the target node,
// and returns the rebalanced subtree root.
func (t *Tree) insert(ctx context.Context, key []byte, op PutOp, opts *ApplyOptions, cost *Cost) (*Node, error) {
	if key == nil {
		n := &Node{
			Key:       append([]byte(nil), op.Key...),
			Value:     append([]byte(nil), op.Value...),
			ValueHash: hashValue(op.Value),
			Feature:   op.Feature,
			Own:       ownAggregateFor(op),
			Flags:     append([]byte(nil), op.Flags...),
		}
		if err := t.saveNode(ctx, n); err != nil {
			return nil, err
		}
		cost.NodesTouched++
		cost.BytesAdded += uint64(len(encodeNode(n)))
		return n, nil
	}

	node, err := t.loadNode(ctx, key)
	if err != nil {
		return nil, err
	}

	switch c := bytes.Compare(op.Key, node.Key); {
	case c == 0:
		oldLen := len(encodeNode(node))
		var preserve func([]byte) ([]byte, error)
		if opts != nil {
			preserve = opts.PreserveFlags
		}
		oldFlags := node.Flags
		newFlags, err := applyFlags(oldFlags, op.Flags, preserve)
		if err != nil {
			return nil, err
		}
		node.Value = append([]byte(nil), op.Value...)
		node.ValueHash = hashValue(op.Value)
		node.Feature = op.Feature
		node.Own = ownAggregateFor(op)
		node.Flags = newFlags
		newLen := len(encodeNode(node))
		if opts != nil && opts.OnFlagsUpdate != nil {
			transition, delta := transitionFor(oldLen, newLen)
			if err := opts.OnFlagsUpdate(transition, oldFlags, newFlags, delta); err != nil {
				return nil, err
			}
		}
		if newLen > oldLen {
			cost.BytesAdded += uint64(newLen - oldLen)
		} else if newLen < oldLen {
			cost.BytesRemoved += uint64(oldLen - newLen)
		}
		if err := t.saveNode(ctx, node); err != nil {
			return nil, err
		}
		cost.NodesTouched++
		return node, nil

	case c < 0:
		child, err := t.insert(ctx, linkKeyOrNil(node.Left), op, opts, cost)
		if err != nil {
			return nil, err
		}
		node.Left = child.toLink()

	default:
		child, err := t.insert(ctx, linkKeyOrNil(node.Right), op, opts, cost)
		if err != nil {
			return nil, err
		}
		node.Right = child.toLink()
	}

	return t.rebalance(ctx, node)
}

// delete removes target from the subtree rooted at key, returning the
// rebalanced subtree's link and whether target was actually present.
func (t *Tree) delete(ctx context.Context, key []byte, target []byte, cost *Cost) (*Link, bool, error) {
	if key == nil {
		return nil, false, nil
	}
	node, err := t.loadNode(ctx, key)
	if err != nil {
		return nil, false, err
	}

	switch c := bytes.Compare(target, node.Key); {
	case c == 0:
		cost.NodesTouched++
		cost.BytesRemoved += uint64(len(encodeNode(node)))
		switch {
		case node.Left == nil && node.Right == nil:
			if err := t.deleteNode(ctx, node.Key); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		case node.Left == nil:
			if err := t.deleteNode(ctx, node.Key); err != nil {
				return nil, false, err
			}
			return node.Right, true, nil
		case node.Right == nil:
			if err := t.deleteNode(ctx, node.Key); err != nil {
				return nil, false, err
			}
			return node.Left, true, nil
		default:
			successor, err := t.findMin(ctx, node.Right.Key)
			if err != nil {
				return nil, false, err
			}
			newRight, _, err := t.delete(ctx, node.Right.Key, successor.Key, cost)
			if err != nil {
				return nil, false, err
			}
			successor.Left = node.Left
			successor.Right = newRight
			rebalanced, err := t.rebalance(ctx, successor)
			if err != nil {
				return nil, false, err
			}
			if err := t.deleteNode(ctx, node.Key); err != nil {
				return nil, false, err
			}
			return rebalanced.toLink(), true, nil
		}

	case c < 0:
		newLeft, removed, err := t.delete(ctx, linkKeyOrNil(node.Left), target, cost)
		if err != nil {
			return nil, false, err
		}
		if !removed {
			return node.toLink(), false, nil
		}
		node.Left = newLeft
		rebalanced, err := t.rebalance(ctx, node)
		if err != nil {
			return nil, false, err
		}
		return rebalanced.toLink(), true, nil

	default:
		newRight, removed, err := t.delete(ctx, linkKeyOrNil(node.Right), target, cost)
		if err != nil {
			return nil, false, err
		}
		if !removed {
			return node.toLink(), false, nil
		}
		node.Right = newRight
		rebalanced, err := t.rebalance(ctx, node)
		if err != nil {
			return nil, false, err
		}
		return rebalanced.toLink(), true, nil
	}
}

func (t *Tree) findMin(ctx context.Context, key []byte) (*Node, error) {
	node, err := t.loadNode(ctx, key)
	if err != nil {
		return nil, err
	}
	if node.Left == nil {
		return node, nil
	}
	return t.findMin(ctx, node.Left.Key)
}

// rebalance restores the AVL invariant |left_height - right_height| <= 1
// at node via single or double rotation, then persists every node it
// touches (spec.md §4.1: "Preserves AVL balance invariant via
// single/double rotation on each mutation").
func (t *Tree) rebalance(ctx context.Context, node *Node) (*Node, error) {
	bf := node.balanceFactor()
	switch {
	case bf > 1:
		left, err := t.loadNode(ctx, node.Left.Key)
		if err != nil {
			return nil, err
		}
		if left.balanceFactor() < 0 {
			rotated, err := t.rotateLeft(ctx, left)
			if err != nil {
				return nil, err
			}
			node.Left = rotated.toLink()
		}
		return t.rotateRight(ctx, node)

	case bf < -1:
		right, err := t.loadNode(ctx, node.Right.Key)
		if err != nil {
			return nil, err
		}
		if right.balanceFactor() > 0 {
			rotated, err := t.rotateRight(ctx, right)
			if err != nil {
				return nil, err
			}
			node.Right = rotated.toLink()
		}
		return t.rotateLeft(ctx, node)

	default:
		if err := t.saveNode(ctx, node); err != nil {
			return nil, err
		}
		return node, nil
	}
}

// rotateLeft promotes node's right child to take node's position, with
// node becoming the new root's left child.
func (t *Tree) rotateLeft(ctx context.Context, node *Node) (*Node, error) {
	pivot, err := t.loadNode(ctx, node.Right.Key)
	if err != nil {
		return nil, err
	}
	node.Right = pivot.Left
	if err := t.saveNode(ctx, node); err != nil {
		return nil, err
	}
	pivot.Left = node.toLink()
	if err := t.saveNode(ctx, pivot); err != nil {
		return nil, err
	}
	return pivot, nil
}

// rotateRight promotes node's left child to take node's position, with
// node becoming the new root's right child.
func (t *Tree) rotateRight(ctx context.Context, node *Node) (*Node, error) {
	pivot, err := t.loadNode(ctx, node.Left.Key)
	if err != nil {
		return nil, err
	}
	node.Left = pivot.Right
	if err := t.saveNode(ctx, node); err != nil {
		return nil, err
	}
	pivot.Right = node.toLink()
	if err := t.saveNode(ctx, pivot); err != nil {
		return nil, err
	}
	return pivot, nil
}
