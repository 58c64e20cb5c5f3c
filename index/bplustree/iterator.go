package bplustree

import (
	"iter"
	"slices"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// Iterator 沿 leaf chain 的單向走訪
type Iterator struct {
	tree *Tree
	leaf nodeID
	pos  int
}

// SeekGE 定位到第一個 >= target 的 key
func (t *Tree) SeekGE(target index.K) *Iterator {
	it := &Iterator{tree: t, leaf: t.findLeaf(target)}
	it.pos, _ = slices.BinarySearch(t.nodes[it.leaf].keys, target)
	it.settle()
	return it
}

// settle 目前 leaf 已走完時跳到下一個非空 leaf
func (it *Iterator) settle() {
	for it.leaf != nilNode && it.pos >= len(it.tree.nodes[it.leaf].keys) {
		it.leaf = it.tree.nodes[it.leaf].next
		it.pos = 0
	}
}

func (it *Iterator) Valid() bool {
	return it.leaf != nilNode
}

func (it *Iterator) Key() index.K {
	if !it.Valid() {
		return 0
	}
	return it.tree.nodes[it.leaf].keys[it.pos]
}

// Next 前進一格，走完時回傳 false
func (it *Iterator) Next() bool {
	if !it.Valid() {
		return false
	}
	it.pos++
	it.settle()
	return it.Valid()
}

// Scan 找到起始 leaf 後沿 leaf chain 跨 leaf 收集最多 n 個 key
func (t *Tree) Scan(key index.K, n int) []index.K {
	if n <= 0 {
		return []index.K{}
	}
	out := make([]index.K, 0, min(n, t.size))
	for it := t.SeekGE(key); it.Valid() && len(out) < n; it.Next() {
		out = append(out, it.Key())
	}
	return out
}

func (t *Tree) Ascend(from index.K) iter.Seq[index.K] {
	return func(yield func(index.K) bool) {
		for it := t.SeekGE(from); it.Valid(); it.Next() {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

func (t *Tree) All() iter.Seq[index.K] {
	return t.Ascend(0)
}
