package filtered

import (
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/indextest"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
	"github.com/cockroachdb/errors"
)

func newTree(t testing.TB) *bplustree.Tree {
	t.Helper()
	tree, err := bplustree.New(4, bplustree.WithInvariantChecks(true))
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func wrap(t testing.TB, inner index.OrderedIndex) *Index {
	t.Helper()
	f, err := New(inner, 1024, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFilteredConformance(t *testing.T) {
	t.Run("bplustree", func(t *testing.T) {
		indextest.Run(t, func(t testing.TB) index.OrderedIndex {
			return wrap(t, newTree(t))
		})
	})
	t.Run("skiplist", func(t *testing.T) {
		indextest.Run(t, func(t testing.TB) index.OrderedIndex {
			sl, err := skiplist.New(8, 0.5, skiplist.WithSeed(3), skiplist.WithInvariantChecks(true))
			if err != nil {
				t.Fatal(err)
			}
			return wrap(t, sl)
		})
	})
}

func TestFilteredInvalidConfig(t *testing.T) {
	tree := newTree(t)
	cases := []struct {
		inner    index.OrderedIndex
		expected uint
		fp       float64
	}{
		{nil, 10, 0.01},
		{tree, 0, 0.01},
		{tree, 10, 0},
		{tree, 10, 1},
	}
	for i, c := range cases {
		if _, err := New(c.inner, c.expected, c.fp); !errors.Is(err, index.ErrInvalidConfig) {
			t.Errorf("case %d: err = %v, want ErrInvalidConfig", i, err)
		}
	}
}

func TestFilteredSkipsAbsentKeys(t *testing.T) {
	f := wrap(t, newTree(t))
	for k := index.K(0); k < 500; k++ {
		f.Insert(k * 2)
	}
	misses := 0
	for k := index.K(0); k < 500; k++ {
		if f.Contains(k*2 + 1) {
			t.Fatalf("Contains(%d) = true for absent key", k*2+1)
		}
		misses++
	}
	s := f.Stats()
	if s.Lookups != uint64(misses) {
		t.Fatalf("Lookups = %d, want %d", s.Lookups, misses)
	}
	// 1% 誤判率下絕大多數應被 filter 擋掉
	if s.Skipped < uint64(misses)*9/10 {
		t.Fatalf("filter skipped only %d of %d absent lookups", s.Skipped, misses)
	}
}

func TestFilteredLoadsExistingKeys(t *testing.T) {
	tree := newTree(t)
	for k := index.K(1); k <= 50; k++ {
		tree.Insert(k)
	}
	f := wrap(t, tree)
	for k := index.K(1); k <= 50; k++ {
		if !f.Contains(k) {
			t.Fatalf("Contains(%d) = false for a key inserted before wrapping", k)
		}
	}
	if err := f.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestFilteredRebuildsAfterDeletes(t *testing.T) {
	f := wrap(t, newTree(t))
	for k := index.K(0); k < 100; k++ {
		f.Insert(k)
	}
	before := f.Stats().Rebuilds
	for k := index.K(0); k < 60; k++ {
		if !f.Delete(k) {
			t.Fatalf("Delete(%d) = false", k)
		}
	}
	s := f.Stats()
	if s.Rebuilds != before+1 {
		t.Fatalf("Rebuilds = %d, want %d once deletes outnumber live keys", s.Rebuilds, before+1)
	}
	if s.Stale != 9 {
		t.Fatalf("Stale = %d after rebuild at 51 deletes and 9 more", s.Stale)
	}
	indextest.Verify(t, f)
}
