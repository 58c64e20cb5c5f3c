package bplustree

import (
	"fmt"
	"io"
	"strings"
)

// Print 深度優先輸出整棵樹，縮排與深度成正比
func (t *Tree) Print(w io.Writer) {
	fmt.Fprintf(w, "BPlusTree degree=%d size=%d\n", t.degree, t.size)
	t.printRecursive(w, t.root, 0)
}

func (t *Tree) printRecursive(w io.Writer, id nodeID, level int) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	fmt.Fprintf(w, "%s[%s #%d]", strings.Repeat("  ", level), n.kind, id)
	for _, k := range n.keys {
		fmt.Fprintf(w, " %d", k)
	}
	if n.kind == kindLeaf {
		if n.next != nilNode {
			fmt.Fprintf(w, " -> #%d", n.next)
		}
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintln(w)
	for _, c := range n.children {
		t.printRecursive(w, c, level+1)
	}
}

// PrintLevels 以 BFS 逐層輸出，每層一行
func (t *Tree) PrintLevels(w io.Writer) {
	queue := []nodeID{t.root}
	for level := 0; len(queue) > 0; level++ {
		size := len(queue)
		fmt.Fprintf(w, "Level %d:", level)
		for _, id := range queue[:size] {
			n := t.nodes[id]
			fmt.Fprintf(w, " %v", n.keys)
			queue = append(queue, n.children...)
		}
		fmt.Fprintln(w)
		queue = queue[size:]
	}
}
