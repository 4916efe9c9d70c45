package merk

// SubtreeCache is a read-through, invalidate-on-mutate cache of decoded
// nodes keyed by their storage key, so a path visited repeatedly within
// one Apply (e.g. during rebalancing) issues at most one storage read per
// node. Grounded on Trillian's storage/cache.SubtreeCache, which fronts
// its NodeStorage the same way (pphaneuf-trillian's
// storage/cache/subtree_cache_test.go: "should see just one Get request"
// per subtree across repeated lookups).
type SubtreeCache struct {
	nodes map[string]*Node
}

func newSubtreeCache() *SubtreeCache {
	return &SubtreeCache{nodes: make(map[string]*Node)}
}

func (c *SubtreeCache) get(key []byte) *Node {
	return c.nodes[string(key)]
}

func (c *SubtreeCache) put(key []byte, n *Node) {
	c.nodes[string(key)] = n
}

func (c *SubtreeCache) invalidate(key []byte) {
	delete(c.nodes, string(key))
}
