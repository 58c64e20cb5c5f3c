package bplustree

import (
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// childIndex 第一個嚴格大於 key 的分隔 key 決定 child；沒有則選最後一個 child
func childIndex(keys []index.K, key index.K) int {
	i, found := slices.BinarySearch(keys, key)
	if found {
		i++
	}
	return i
}

// findLeaf 由 root 往下走到負責 key 範圍的 leaf
func (t *Tree) findLeaf(key index.K) nodeID {
	id := t.root
	for {
		n := t.nodes[id]
		if n.kind == kindLeaf {
			return id
		}
		id = n.children[childIndex(n.keys, key)]
	}
}

func (t *Tree) Contains(key index.K) bool {
	_, found := slices.BinarySearch(t.nodes[t.findLeaf(key)].keys, key)
	return found
}
