package mmr

/*

# Why a Merkle Mountain Range

Merkle Mountain Ranges give the append-only MMR subtree (spec.md §2 C2,
§4.2) the properties an append-only authenticated log needs and a plain
binary Merkle tree does not get for free:

 1. The structure is strictly append only, and that fact is itself
    provable — there is no rebalancing step that could quietly move or
    replace an existing leaf.
 2. A leaf's position is fixed forever once appended, so proofs can
    reference positions rather than paths that shift as the tree grows.
 3. Old state does not need to stay resident to keep producing valid
    proofs for new leaves: peaks from earlier append epochs are only
    ever read, never rewritten, by later appends.
 4. Going from one tree size to a larger one, the new root can be
    computed from a caller's existing knowledge of a subset of leaves
    plus the newly appended values, without walking the whole tree
    (`calculate_root_with_new_leaf`, spec.md §4.2) — useful for the
    Bulk Append Tree's epoch-compaction step (C4), which folds a full
    dense buffer into the MMR as a single data-leaf and needs to predict
    the resulting root without re-deriving everything from scratch.

"Mountain Range" names the shape: because nothing is ever inserted, only
appended, the tree decomposes into a small number of maximal complete
binary subtrees ("peaks"), with older and taller peaks never touched by
later appends and newer, smaller peaks accumulating to their right. The
whole structure is fully determined by the total node count alone —
knowing `mmr_size` is enough to derive every peak position without
walking anything.

# Approach

This package follows the lead of the mimblewimble project's Rust MMR
implementation ([pmmr.rs](https://github.com/mimblewimble/grin/blob/0ff6763ee64e5a14e70ddd4642b99789a1648a32/core/src/core/pmmr.rs)),
adapted to a Go API with an externally-supplied backing store (`Store`)
rather than a fixed in-memory vector, per spec.md §4.2's
push/get_root/gen_proof/verify contract:

  - The post-order traversal (children first, left to right, parent
    last) of the binary tree the MMR represents is identical to the
    order nodes are actually appended in, so the whole structure can be
    addressed by a single flat position index with no separate "path"
    concept.
  - Independent of a tree's current size, it is possible to navigate
    between related positions (parent, sibling, child) using only
    binary arithmetic on the position numbers — no need to materialize
    any part of the tree to move around in it.
  - The low-level navigation primitives in this package (`IndexHeight`,
    `JumpRightSibling`, `LeftChild`, `SiblingOffset`, ...) place the
    burden of valid input on the caller in the interest of simplicity:
    calling one of them on a position that has no sibling, say, yields
    a meaningless result rather than an error. The higher-level
    `Push`/`Peaks`/`GetRoot`/proof functions built on top of them are where
    spec.md's documented failure modes (`GetRootOnEmpty`,
    `NodeProofsNotSupported`, and so on) are actually enforced.

## Post-order traversal

Given a tree of 7 nodes:

       g
    c    f
  a   b d  e

Post order is children first, then the parent, siblings left to right —
flattening the tree above in that order gives:

	[a, b, c, d, e, f, g]
	[1, 2, 3, 4, 5, 6, 7]

Because an MMR only ever appends, and backfills earlier peaks as it
grows, this is exactly the order nodes are produced in. Moving around
this sequence is ordinary binary arithmetic: jumping right from c to its
sibling f, for instance, is just `3 + (2 << 1) - 1`, and that formula
holds no matter how large the tree grows.

Further background, in addition to the mimblewimble reference above:

  - https://github.com/proofchains/python-proofmarshal/blob/master/proofmarshal/mmr.py
  - https://github.com/jjyr/mmr.py/blob/master/mmr/mmr.py
  - https://github.com/zmitton/go-merklemountainrange/blob/master/mmr/mmr.go
  - https://neptune.cash/learn/mmr/
  - https://docs.grin.mw/wiki/chain-state/merkle-mountain-range/
  - https://lists.linuxfoundation.org/pipermail/bitcoin-dev/2016-May/012715.html (Peter Todd's original case for MMRs)
  - https://ethresear.ch/t/double-batched-merkle-log-accumulator/571 (Justin Drake's batched accumulator variant)

## IndexHeight

The extended derivation lives alongside the implementation in
indexheight.go. In short: the height of a node at postorder position `i`
in an infinite MMR follows the repeating sequence

	[0, 0, 1, 0, 0, 1, 2, 0, 0, 1, 0, 0, 1, 2, 3, 0, 0, 1, ...]

which is the (left, right, top)-postorder traversal of the infinite
complete binary tree. Writing each position in binary, the height of a
node is the count of leading 1-bits on the path from that position back
to the all-ones position at its own height, minus one: to find the
height of position 1101 (13 in decimal), repeatedly subtract the
position's own most-significant-bit-minus-one (`13 - (8-1) = 6`, then
`6 - (4-1) = 3`) until the result is itself all-ones in binary, then
count the ones. `IndexHeight` computes this directly rather than by
repeated subtraction; see its own comment for the closed-form version.

*/
