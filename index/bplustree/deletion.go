package bplustree

import (
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// Delete 移除 key，回傳 key 是否存在。修復只沿著 leaf 到 root 的路徑進行
func (t *Tree) Delete(key index.K) bool {
	if !t.delete(t.root, key) {
		return false
	}
	if r := t.nodes[t.root]; r.kind == kindInternal && len(r.children) == 1 {
		old := t.root
		t.root = r.children[0]
		t.release(old)
		t.log.Debugf("ROOT_COLLAPSE old=%d root=%d", old, t.root)
	}
	t.size--

	if t.checks {
		index.MustCheck(t, "Delete", key)
	}
	return true
}

// delete 遞迴下降刪除；子節點 underflow 由父節點在返回時修復
func (t *Tree) delete(id nodeID, key index.K) bool {
	n := t.nodes[id]
	if n.kind == kindLeaf {
		i, found := slices.BinarySearch(n.keys, key)
		if !found {
			return false
		}
		n.keys = slices.Delete(n.keys, i, i+1)
		return true
	}

	i := childIndex(n.keys, key)
	if !t.delete(n.children[i], key) {
		return false
	}
	if t.underflow(t.nodes[n.children[i]]) {
		t.rebalance(n, i)
	}
	return true
}

// rebalance 修復 parent.children[i] 的 underflow。
// 順序固定：向左兄弟借、向右兄弟借、併入左兄弟、把右兄弟併入。
func (t *Tree) rebalance(parent *node, i int) {
	child := t.nodes[parent.children[i]]
	var left, right *node
	if i > 0 {
		left = t.nodes[parent.children[i-1]]
	}
	if i+1 < len(parent.children) {
		right = t.nodes[parent.children[i+1]]
	}

	switch {
	case left != nil && t.canLend(left):
		t.borrowFromLeft(parent, i, left, child)
	case right != nil && t.canLend(right):
		t.borrowFromRight(parent, i, child, right)
	case left != nil:
		t.merge(parent, i-1)
	case right != nil:
		t.merge(parent, i)
	}
}

func (t *Tree) borrowFromLeft(parent *node, i int, left, child *node) {
	if child.kind == kindLeaf {
		last := len(left.keys) - 1
		child.keys = slices.Insert(child.keys, 0, left.keys[last])
		left.keys = left.keys[:last]
		parent.keys[i-1] = child.keys[0]
		t.log.Debugf("LEAF_BORROW_LEFT leaf=%d from=%d sep=%d", parent.children[i], parent.children[i-1], parent.keys[i-1])
		return
	}
	// internal：分隔 key 下移到 child，左兄弟最後一個 key 上移
	lastKey, lastChild := len(left.keys)-1, len(left.children)-1
	child.keys = slices.Insert(child.keys, 0, parent.keys[i-1])
	child.children = slices.Insert(child.children, 0, left.children[lastChild])
	parent.keys[i-1] = left.keys[lastKey]
	left.keys = left.keys[:lastKey]
	left.children = left.children[:lastChild]
	t.log.Debugf("INTERNAL_BORROW_LEFT node=%d from=%d sep=%d", parent.children[i], parent.children[i-1], parent.keys[i-1])
}

func (t *Tree) borrowFromRight(parent *node, i int, child, right *node) {
	if child.kind == kindLeaf {
		child.keys = append(child.keys, right.keys[0])
		right.keys = slices.Delete(right.keys, 0, 1)
		parent.keys[i] = right.keys[0]
		t.log.Debugf("LEAF_BORROW_RIGHT leaf=%d from=%d sep=%d", parent.children[i], parent.children[i+1], parent.keys[i])
		return
	}
	child.keys = append(child.keys, parent.keys[i])
	child.children = append(child.children, right.children[0])
	parent.keys[i] = right.keys[0]
	right.keys = slices.Delete(right.keys, 0, 1)
	right.children = slices.Delete(right.children, 0, 1)
	t.log.Debugf("INTERNAL_BORROW_RIGHT node=%d from=%d sep=%d", parent.children[i], parent.children[i+1], parent.keys[i])
}

// merge 把 parent.children[li+1] 併入 parent.children[li]，移除兩者之間的分隔 key
func (t *Tree) merge(parent *node, li int) {
	lid, rid := parent.children[li], parent.children[li+1]
	left, right := t.nodes[lid], t.nodes[rid]

	if left.kind == kindLeaf {
		left.keys = append(left.keys, right.keys...)
		// leaf chain 跳過被移除的 leaf
		left.next = right.next
	} else {
		left.keys = append(left.keys, parent.keys[li])
		left.keys = append(left.keys, right.keys...)
		left.children = append(left.children, right.children...)
	}

	parent.keys = slices.Delete(parent.keys, li, li+1)
	parent.children = slices.Delete(parent.children, li+1, li+2)
	t.release(rid)
	t.log.Debugf("MERGE kind=%s into=%d removed=%d keys=%d", left.kind, lid, rid, len(left.keys))
}
