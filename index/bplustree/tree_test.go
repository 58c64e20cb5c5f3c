package bplustree

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/indextest"
	"github.com/cockroachdb/errors"
)

func TestTreeInterface(t *testing.T) {
	var _ index.OrderedIndex = (*Tree)(nil)
	var _ index.CheckedIndex = (*Tree)(nil)
}

func newTestTree(t testing.TB, degree int) *Tree {
	t.Helper()
	tree, err := New(degree, WithInvariantChecks(true))
	if err != nil {
		t.Fatalf("New(%d): %v", degree, err)
	}
	return tree
}

func TestTreeConformance(t *testing.T) {
	for _, d := range []int{3, 4, 5, 8, 64} {
		t.Run(fmt.Sprintf("degree=%d", d), func(t *testing.T) {
			indextest.Run(t, func(t testing.TB) index.OrderedIndex {
				return newTestTree(t, d)
			})
		})
	}
}

func TestTreeInvalidDegree(t *testing.T) {
	for _, d := range []int{-1, 0, 1, 2} {
		tree, err := New(d)
		if err == nil || tree != nil {
			t.Errorf("New(%d) = (%v, %v), want config error", d, tree, err)
			continue
		}
		if !errors.Is(err, index.ErrInvalidConfig) {
			t.Errorf("New(%d) error %v is not ErrInvalidConfig", d, err)
		}
	}
}

func TestTreeDegreeFourScenario(t *testing.T) {
	tree := newTestTree(t, 4)
	for _, k := range []index.K{10, 20, 5, 6, 12, 30, 7, 17} {
		tree.Insert(k)
	}
	var buf bytes.Buffer
	tree.PrintLevels(&buf)
	want := "Level 0: [10 20]\nLevel 1: [5 6 7] [10 12 17] [20 30]\n"
	if buf.String() != want {
		t.Fatalf("layout after inserts:\n%s\nwant:\n%s", buf.String(), want)
	}

	indextest.ExpectScan(t, tree, 6, 3, []index.K{6, 7, 10})
	if !tree.Delete(20) || tree.Contains(20) {
		t.Fatal("Delete(20) did not remove the key")
	}
	indextest.ExpectScan(t, tree, 10, 10, []index.K{10, 12, 17, 30})

	// [20 30] 剩 [30]，向左兄弟借 17
	buf.Reset()
	tree.PrintLevels(&buf)
	want = "Level 0: [10 17]\nLevel 1: [5 6 7] [10 12] [17 30]\n"
	if buf.String() != want {
		t.Fatalf("layout after Delete(20):\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestTreeMergeAndRootCollapse(t *testing.T) {
	tree := newTestTree(t, 3)
	for k := index.K(1); k <= 32; k++ {
		tree.Insert(k)
	}
	if h := tree.Stats().Height; h < 4 {
		t.Fatalf("height %d after 32 inserts at degree 3", h)
	}
	for k := index.K(32); k >= 2; k-- {
		if !tree.Delete(k) {
			t.Fatalf("Delete(%d) = false", k)
		}
	}
	s := tree.Stats()
	if s.Height != 1 || s.Leaves != 1 || s.Internals != 0 || s.Keys != 1 {
		t.Fatalf("Stats() = %+v after shrinking to one key", s)
	}
	indextest.ExpectScan(t, tree, 0, 5, []index.K{1})
}

func TestTreeArenaReusesSlots(t *testing.T) {
	tree := newTestTree(t, 4)
	for k := index.K(0); k < 200; k++ {
		tree.Insert(k)
	}
	peak := len(tree.nodes)
	for k := index.K(0); k < 200; k++ {
		tree.Delete(k)
	}
	if tree.Stats().Free == 0 {
		t.Fatal("merges released no arena slots")
	}
	for k := index.K(0); k < 200; k++ {
		tree.Insert(k)
	}
	if len(tree.nodes) > peak {
		t.Fatalf("arena grew from %d to %d slots although freed slots were available", peak, len(tree.nodes))
	}
}

func TestTreeBalanceUnderRandomLoad(t *testing.T) {
	for _, d := range []int{3, 4, 7} {
		tree := newTestTree(t, d)
		r := rand.New(rand.NewPCG(uint64(d), 99))
		for step := 0; step < 4000; step++ {
			k := index.K(r.IntN(800))
			if r.IntN(3) == 0 {
				tree.Delete(k)
			} else {
				tree.Insert(k)
			}
		}
		s := tree.Stats()
		if s.Leaves == 0 || s.Keys != tree.Len() {
			t.Fatalf("degree %d: Stats() = %+v, Len() = %d", d, s, tree.Len())
		}
	}
}

func TestTreeIterator(t *testing.T) {
	tree := newTestTree(t, 4)
	for k := index.K(0); k < 100; k += 10 {
		tree.Insert(k)
	}
	it := tree.SeekGE(35)
	var got []index.K
	for ; it.Valid(); it.Next() {
		got = append(got, it.Key())
	}
	if want := []index.K{40, 50, 60, 70, 80, 90}; !slices.Equal(got, want) {
		t.Fatalf("SeekGE(35) walk = %v, want %v", got, want)
	}
	if it.Next() || it.Key() != 0 {
		t.Fatal("exhausted iterator still advances")
	}
	if tree.SeekGE(91).Valid() {
		t.Fatal("SeekGE past the last key is valid")
	}
}

func TestTreePrint(t *testing.T) {
	tree := newTestTree(t, 3)
	for _, k := range []index.K{1, 2, 3} {
		tree.Insert(k)
	}
	var buf bytes.Buffer
	tree.Print(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Print output:\n%s", buf.String())
	}
	if !strings.HasPrefix(lines[1], "[Internal") {
		t.Errorf("root line %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "  [Leaf") || !strings.HasPrefix(lines[3], "  [Leaf") {
		t.Errorf("leaves not indented: %q %q", lines[2], lines[3])
	}
}

func TestTreeCheckDetectsCorruption(t *testing.T) {
	tree := newTestTree(t, 4)
	for k := index.K(1); k <= 20; k++ {
		tree.Insert(k)
	}
	// 截斷 leaf chain
	tree.nodes[tree.findLeaf(1)].next = nilNode

	err := tree.Check()
	if err == nil {
		t.Fatal("Check() accepted a broken leaf chain")
	}
	if !errors.HasAssertionFailure(err) {
		t.Fatalf("Check() error %v is not an assertion failure", err)
	}
}

func TestTreeInvariantModePanics(t *testing.T) {
	tree := newTestTree(t, 4)
	for k := index.K(1); k <= 20; k++ {
		tree.Insert(k)
	}
	tree.size += 3

	defer func() {
		if recover() == nil {
			t.Fatal("mutation on a corrupted tree did not panic in invariant mode")
		}
	}()
	tree.Insert(100)
}
