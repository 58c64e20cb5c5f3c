package bplustree

import (
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/cockroachdb/errors"
)

// Stats 樹的形狀統計
type Stats struct {
	Height    int
	Leaves    int
	Internals int
	Keys      int
	Slots     int // arena 中配置中的節點
	Free      int // 可重用的空槽
}

func (t *Tree) Stats() Stats {
	s := Stats{Keys: t.size, Free: len(t.free), Slots: len(t.nodes) - 1 - len(t.free)}
	for id := t.root; ; {
		s.Height++
		n := t.nodes[id]
		if n.kind == kindLeaf {
			break
		}
		id = n.children[0]
	}
	for _, n := range t.nodes[1:] {
		switch {
		case n == nil:
		case n.kind == kindLeaf:
			s.Leaves++
		default:
			s.Internals++
		}
	}
	return s
}

type bound struct {
	set bool
	k   index.K
}

type checker struct {
	t         *Tree
	leafDepth int
	leaves    []nodeID
	keys      int
	visited   int
}

// Check 驗證佔用上下限、分隔 key 範圍、leaf 等深、leaf chain 與中序一致、
// size 與 arena 計數
func (t *Tree) Check() error {
	c := &checker{t: t, leafDepth: -1}
	if t.root == nilNode || t.nodes[t.root] == nil {
		return errors.AssertionFailedf("root %d is not allocated", t.root)
	}
	if err := c.node(t.root, 0, bound{}, bound{}); err != nil {
		return err
	}
	if c.keys != t.size {
		return errors.AssertionFailedf("leaves hold %d keys, size is %d", c.keys, t.size)
	}

	id := c.leaves[0]
	for i, want := range c.leaves {
		if id != want {
			return errors.AssertionFailedf("leaf chain position %d is #%d, in-order leaf is #%d", i, id, want)
		}
		id = t.nodes[id].next
	}
	if id != nilNode {
		return errors.AssertionFailedf("leaf chain continues past last leaf to #%d", id)
	}

	if live := len(t.nodes) - 1 - len(t.free); live != c.visited {
		return errors.AssertionFailedf("arena holds %d live nodes, %d reachable", live, c.visited)
	}
	return nil
}

func (c *checker) node(id nodeID, depth int, lo, hi bound) error {
	t := c.t
	if id <= nilNode || int(id) >= len(t.nodes) || t.nodes[id] == nil {
		return errors.AssertionFailedf("dangling child #%d at depth %d", id, depth)
	}
	n := t.nodes[id]
	c.visited++
	isRoot := id == t.root

	for i, k := range n.keys {
		if i > 0 && n.keys[i-1] >= k {
			return errors.AssertionFailedf("node #%d keys not strictly increasing at %d", id, i)
		}
		if lo.set && k < lo.k {
			return errors.AssertionFailedf("node #%d key %d below bound %d", id, k, lo.k)
		}
		if hi.set && k >= hi.k {
			return errors.AssertionFailedf("node #%d key %d not below bound %d", id, k, hi.k)
		}
	}

	if n.kind == kindLeaf {
		if len(n.keys) > t.maxLeafKeys() {
			return errors.AssertionFailedf("leaf #%d holds %d keys, max %d", id, len(n.keys), t.maxLeafKeys())
		}
		if !isRoot && len(n.keys) < t.minLeafKeys() {
			return errors.AssertionFailedf("leaf #%d holds %d keys, min %d", id, len(n.keys), t.minLeafKeys())
		}
		if c.leafDepth == -1 {
			c.leafDepth = depth
		} else if c.leafDepth != depth {
			return errors.AssertionFailedf("leaf #%d at depth %d, expected %d", id, depth, c.leafDepth)
		}
		c.leaves = append(c.leaves, id)
		c.keys += len(n.keys)
		return nil
	}

	if len(n.children) != len(n.keys)+1 {
		return errors.AssertionFailedf("internal #%d has %d keys and %d children", id, len(n.keys), len(n.children))
	}
	if len(n.children) > t.degree {
		return errors.AssertionFailedf("internal #%d has %d children, max %d", id, len(n.children), t.degree)
	}
	minChildren := t.minChildren()
	if isRoot {
		minChildren = 2
	}
	if len(n.children) < minChildren {
		return errors.AssertionFailedf("internal #%d has %d children, min %d", id, len(n.children), minChildren)
	}
	for i, child := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = bound{set: true, k: n.keys[i-1]}
		}
		if i < len(n.keys) {
			chi = bound{set: true, k: n.keys[i]}
		}
		if err := c.node(child, depth+1, clo, chi); err != nil {
			return err
		}
	}
	return nil
}
