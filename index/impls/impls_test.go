package impls

import (
	"slices"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/indextest"
	"github.com/cockroachdb/errors"
)

func TestRegistryConformance(t *testing.T) {
	p := DefaultParams()
	p.Degree = 4
	p.MaxLevel = 8
	p.Checks = true
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			indextest.Run(t, func(t testing.TB) index.OrderedIndex {
				idx, err := New(name, p)
				if err != nil {
					t.Fatal(err)
				}
				return idx
			})
		})
	}
}

func TestNames(t *testing.T) {
	want := []string{"bplustree", "bplustree+bloom", "skiplist", "skiplist+bloom"}
	if got := Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New("btree", DefaultParams()); !errors.Is(err, ErrUnknownImpl) {
		t.Fatalf("unknown name: err = %v", err)
	}
	p := DefaultParams()
	p.Degree = 2
	if _, err := New("bplustree", p); !errors.Is(err, index.ErrInvalidConfig) {
		t.Fatalf("bad degree: err = %v", err)
	}
	p = DefaultParams()
	p.BloomFPRate = 2
	if _, err := New("skiplist+bloom", p); !errors.Is(err, index.ErrInvalidConfig) {
		t.Fatalf("bad fp rate: err = %v", err)
	}
}

func TestParseList(t *testing.T) {
	got, err := ParseList(" SkipList, bplustree ,")
	if err != nil || !slices.Equal(got, []string{"skiplist", "bplustree"}) {
		t.Fatalf("ParseList = %v, %v", got, err)
	}
	if all, _ := ParseList("all"); len(all) != len(Names()) {
		t.Fatalf("ParseList(all) = %v", all)
	}
	if _, err := ParseList("skiplist,nope"); !errors.Is(err, ErrUnknownImpl) {
		t.Fatalf("unknown entry: err = %v", err)
	}
	if _, err := ParseList(" , "); err == nil {
		t.Fatal("empty list accepted")
	}
}
