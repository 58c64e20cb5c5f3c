// Structure of B+ Tree
/*
Tree
 ├── Internal Node (keys + child ids)
 │      └── Child Internal Nodes ...
 │             └── Leaf Nodes (keys + next leaf id)

- keys: sorted ascending order, unique
- internal nodes: len(children) == len(keys)+1, child i holds [keys[i-1], keys[i])
- leaf nodes linked with `next` for range scans (non-owning id, never used for lifetime)
- all leaf nodes at same depth
- nodes live in an arena owned by the tree; slot 0 is the nil link
*/
package bplustree

import (
	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/sirupsen/logrus"
)

type nodeID int32

const nilNode nodeID = 0

type nodeKind uint8

const (
	kindLeaf nodeKind = iota
	kindInternal
)

func (k nodeKind) String() string {
	if k == kindLeaf {
		return "Leaf"
	}
	return "Internal"
}

type node struct {
	kind     nodeKind
	keys     []index.K
	children []nodeID // 只有 internal 使用
	next     nodeID   // 只有 leaf 使用
}

// Tree 以 degree d 限制 fan-out：internal 最多 d 個 child，leaf 最多 d-1 個 key
type Tree struct {
	root   nodeID
	degree int
	nodes  []*node // arena，nodes[0] 永遠為 nil
	free   []nodeID
	size   int

	checks bool
	log    logrus.FieldLogger
}

type Option func(*Tree)

func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Tree) { t.log = l }
}

// WithInvariantChecks 每次變更後執行 Check，失敗即 panic
func WithInvariantChecks(enabled bool) Option {
	return func(t *Tree) { t.checks = enabled }
}

// New 建立只含一個空 leaf root 的樹；degree 必須 >= 3
func New(degree int, opts ...Option) (*Tree, error) {
	if degree < 3 {
		return nil, index.InvalidConfigf("bplustree: degree must be >= 3, got %d", degree)
	}
	t := &Tree{
		degree: degree,
		nodes:  make([]*node, 1, 64),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.alloc(kindLeaf)
	return t, nil
}

func (t *Tree) Degree() int {
	return t.degree
}

func (t *Tree) Len() int {
	return t.size
}

func (t *Tree) maxLeafKeys() int { return t.degree - 1 }

// minLeafKeys = ⌈(d-1)/2⌉
func (t *Tree) minLeafKeys() int { return t.degree / 2 }

// minChildren = ⌈d/2⌉
func (t *Tree) minChildren() int { return (t.degree + 1) / 2 }

// alloc 由 free list 取回空槽，否則擴充 arena
func (t *Tree) alloc(kind nodeKind) nodeID {
	n := &node{kind: kind, keys: make([]index.K, 0, t.degree)}
	if kind == kindInternal {
		n.children = make([]nodeID, 0, t.degree+1)
	}
	if l := len(t.free); l > 0 {
		id := t.free[l-1]
		t.free = t.free[:l-1]
		t.nodes[id] = n
		return id
	}
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

// release 將節點自 arena 移除；呼叫前節點必須已不被任何 child 或 leaf chain 參考
func (t *Tree) release(id nodeID) {
	t.nodes[id] = nil
	t.free = append(t.free, id)
}

func (t *Tree) underflow(n *node) bool {
	if n.kind == kindLeaf {
		return len(n.keys) < t.minLeafKeys()
	}
	return len(n.children) < t.minChildren()
}

// canLend 節點移出一個 key/child 後仍滿足最低佔用
func (t *Tree) canLend(n *node) bool {
	if n.kind == kindLeaf {
		return len(n.keys) > t.minLeafKeys()
	}
	return len(n.children) > t.minChildren()
}
