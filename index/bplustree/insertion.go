package bplustree

import (
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// Insert 插入 key；已存在的 key 視為 no-op
func (t *Tree) Insert(key index.K) {
	sep, right, inserted := t.insert(t.root, key)
	if !inserted {
		return
	}
	if right != nilNode {
		// root 分裂：新 root 恰有兩個 child
		old := t.root
		t.root = t.alloc(kindInternal)
		r := t.nodes[t.root]
		r.keys = append(r.keys, sep)
		r.children = append(r.children, old, right)
		t.log.Debugf("ROOT_SPLIT root=%d left=%d right=%d sep=%d", t.root, old, right, sep)
	}
	t.size++

	if t.checks {
		index.MustCheck(t, "Insert", key)
	}
}

// insert 遞迴下降插入。若節點分裂，回傳提升的分隔 key 與新的右節點，否則 right 為 nilNode
func (t *Tree) insert(id nodeID, key index.K) (sep index.K, right nodeID, inserted bool) {
	n := t.nodes[id]
	if n.kind == kindLeaf {
		i, found := slices.BinarySearch(n.keys, key)
		if found {
			return 0, nilNode, false
		}
		n.keys = slices.Insert(n.keys, i, key)
		if len(n.keys) <= t.maxLeafKeys() {
			return 0, nilNode, true
		}
		sep, right = t.splitLeaf(id)
		return sep, right, true
	}

	i := childIndex(n.keys, key)
	sep, right, inserted = t.insert(n.children[i], key)
	if right == nilNode {
		return 0, nilNode, inserted
	}
	n.keys = slices.Insert(n.keys, i, sep)
	n.children = slices.Insert(n.children, i+1, right)
	if len(n.children) <= t.degree {
		return 0, nilNode, true
	}
	sep, right = t.splitInternal(id)
	return sep, right, true
}

// splitLeaf 上半部移到新 leaf 並接在原 leaf 之後，新 leaf 的最小 key 往上提升
func (t *Tree) splitLeaf(id nodeID) (index.K, nodeID) {
	rid := t.alloc(kindLeaf)
	left, right := t.nodes[id], t.nodes[rid]

	mid := len(left.keys) / 2
	right.keys = append(right.keys, left.keys[mid:]...)
	left.keys = left.keys[:mid]

	right.next = left.next
	left.next = rid

	t.log.Debugf("LEAF_SPLIT leaf=%d new=%d sep=%d left=%d right=%d", id, rid, right.keys[0], len(left.keys), len(right.keys))
	return right.keys[0], rid
}

// splitInternal 以中位數 key 分裂：左邊保留 [0:mid)，key[mid] 提升，右邊取得 (mid:]
func (t *Tree) splitInternal(id nodeID) (index.K, nodeID) {
	rid := t.alloc(kindInternal)
	left, right := t.nodes[id], t.nodes[rid]

	mid := len(left.keys) / 2
	promote := left.keys[mid]

	right.keys = append(right.keys, left.keys[mid+1:]...)
	right.children = append(right.children, left.children[mid+1:]...)

	left.keys = left.keys[:mid]
	left.children = left.children[:mid+1]

	t.log.Debugf("INTERNAL_SPLIT node=%d new=%d promote=%d left=%d right=%d", id, rid, promote, len(left.children), len(right.children))
	return promote, rid
}
