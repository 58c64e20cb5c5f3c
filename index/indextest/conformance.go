// Package indextest 提供所有 OrderedIndex 實作共用的行為測試
package indextest

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
)

// Factory 每次呼叫回傳一個新的空索引
type Factory func(t testing.TB) index.OrderedIndex

// Run 對 newIndex 建立的索引執行整套行為測試
func Run(t *testing.T, newIndex Factory) {
	t.Run("Empty", func(t *testing.T) { testEmpty(t, newIndex(t)) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newIndex(t)) })
	t.Run("DeleteCorrectness", func(t *testing.T) { testDelete(t, newIndex(t)) })
	t.Run("ScanCorrectness", func(t *testing.T) { testScan(t, newIndex(t)) })
	t.Run("DuplicateInsert", func(t *testing.T) { testDuplicateInsert(t, newIndex(t)) })
	t.Run("ConcreteScenario", func(t *testing.T) { testConcreteScenario(t, newIndex(t)) })
	t.Run("RandomizedAgainstModel", func(t *testing.T) { testAgainstModel(t, newIndex(t)) })
}

// Verify 檢查全走訪為升冪、Len 一致，並在支援時執行結構檢查
func Verify(t testing.TB, idx index.OrderedIndex) {
	t.Helper()
	var prev index.K
	n := 0
	for k := range idx.All() {
		if n > 0 && k <= prev {
			t.Fatalf("traversal out of order: %d after %d", k, prev)
		}
		prev = k
		n++
	}
	if n != idx.Len() {
		t.Fatalf("traversal yields %d keys, Len() = %d", n, idx.Len())
	}
	if c, ok := idx.(index.Checker); ok {
		if err := c.Check(); err != nil {
			t.Fatalf("structure check failed: %+v", err)
		}
	}
}

// ExpectScan 比對 Scan 結果
func ExpectScan(t testing.TB, idx index.OrderedIndex, from index.K, n int, want []index.K) {
	t.Helper()
	got := idx.Scan(from, n)
	if !slices.Equal(got, want) {
		t.Fatalf("Scan(%d, %d) = %v, want %v", from, n, got, want)
	}
}

func testEmpty(t *testing.T, idx index.OrderedIndex) {
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d on empty index", idx.Len())
	}
	if idx.Contains(0) || idx.Contains(42) {
		t.Fatal("empty index reports a key")
	}
	if idx.Delete(42) {
		t.Fatal("Delete(42) = true on empty index")
	}
	ExpectScan(t, idx, 0, 10, []index.K{})
	Verify(t, idx)
}

func testRoundTrip(t *testing.T, idx index.OrderedIndex) {
	r := rand.New(rand.NewPCG(7, 7))
	keys := make([]index.K, 0, 500)
	for range 500 {
		k := r.Uint64()
		keys = append(keys, k)
		idx.Insert(k)
		if !idx.Contains(k) {
			t.Fatalf("Contains(%d) = false right after Insert", k)
		}
	}
	for _, k := range keys {
		if !idx.Contains(k) {
			t.Fatalf("Contains(%d) = false", k)
		}
	}
	// 邊界值
	idx.Insert(0)
	idx.Insert(^index.K(0))
	if !idx.Contains(0) || !idx.Contains(^index.K(0)) {
		t.Fatal("boundary keys not found")
	}
	Verify(t, idx)
}

func testDelete(t *testing.T, idx index.OrderedIndex) {
	for k := index.K(1); k <= 200; k++ {
		idx.Insert(k * 2)
	}
	// 不存在的 key：回傳 false 且結構不變
	before := idx.Scan(0, 1000)
	for _, k := range []index.K{0, 1, 3, 401, 1000} {
		if idx.Delete(k) {
			t.Fatalf("Delete(%d) = true for absent key", k)
		}
	}
	ExpectScan(t, idx, 0, 1000, before)

	for k := index.K(1); k <= 200; k += 3 {
		if !idx.Delete(k * 2) {
			t.Fatalf("Delete(%d) = false for present key", k*2)
		}
		if idx.Contains(k * 2) {
			t.Fatalf("Contains(%d) = true after Delete", k*2)
		}
		if idx.Delete(k * 2) {
			t.Fatalf("second Delete(%d) = true", k*2)
		}
	}
	Verify(t, idx)

	for k := index.K(1); k <= 200; k++ {
		idx.Delete(k * 2)
	}
	if idx.Len() != 0 {
		t.Fatalf("Len() = %d after deleting everything", idx.Len())
	}
	ExpectScan(t, idx, 0, 10, []index.K{})
	Verify(t, idx)

	// 清空後仍可重新使用
	idx.Insert(5)
	ExpectScan(t, idx, 0, 10, []index.K{5})
	Verify(t, idx)
}

func testScan(t *testing.T, idx index.OrderedIndex) {
	for k := index.K(10); k <= 100; k += 10 {
		idx.Insert(k)
	}
	ExpectScan(t, idx, 0, 3, []index.K{10, 20, 30})
	ExpectScan(t, idx, 25, 2, []index.K{30, 40})
	ExpectScan(t, idx, 30, 2, []index.K{30, 40})
	ExpectScan(t, idx, 95, 5, []index.K{100})
	ExpectScan(t, idx, 101, 5, []index.K{})
	ExpectScan(t, idx, 50, 0, []index.K{})
	ExpectScan(t, idx, 50, -1, []index.K{})
	if idx.Scan(50, 0) == nil {
		t.Fatal("Scan(50, 0) returned nil, want an empty slice")
	}
	ExpectScan(t, idx, 0, 100, []index.K{10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
}

func testDuplicateInsert(t *testing.T, idx index.OrderedIndex) {
	idx.Insert(7)
	idx.Insert(7)
	idx.Insert(7)
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d after inserting the same key three times", idx.Len())
	}
	if !idx.Delete(7) || idx.Contains(7) {
		t.Fatal("duplicate insert left a second copy behind")
	}
	Verify(t, idx)
}

func testConcreteScenario(t *testing.T, idx index.OrderedIndex) {
	for _, k := range []index.K{10, 20, 5, 6, 12, 30, 7, 17} {
		idx.Insert(k)
	}
	for _, k := range []index.K{10, 20, 5, 6, 12, 30, 7, 17} {
		if !idx.Contains(k) {
			t.Fatalf("Contains(%d) = false", k)
		}
	}
	ExpectScan(t, idx, 6, 3, []index.K{6, 7, 10})
	if !idx.Delete(20) {
		t.Fatal("Delete(20) = false")
	}
	if idx.Contains(20) {
		t.Fatal("Contains(20) = true after Delete")
	}
	ExpectScan(t, idx, 10, 10, []index.K{10, 12, 17, 30})
	Verify(t, idx)
}

// testAgainstModel 以排序切片為模型，隨機混合四種操作
func testAgainstModel(t *testing.T, idx index.OrderedIndex) {
	r := rand.New(rand.NewPCG(2024, 1))
	var model []index.K
	const keyRange = 600

	for step := 0; step < 6000; step++ {
		k := index.K(r.IntN(keyRange))
		pos, present := slices.BinarySearch(model, k)
		switch r.IntN(10) {
		case 0, 1, 2, 3:
			idx.Insert(k)
			if !present {
				model = slices.Insert(model, pos, k)
			}
		case 4, 5, 6:
			if got := idx.Delete(k); got != present {
				t.Fatalf("step %d: Delete(%d) = %v, want %v", step, k, got, present)
			}
			if present {
				model = slices.Delete(model, pos, pos+1)
			}
		case 7, 8:
			if got := idx.Contains(k); got != present {
				t.Fatalf("step %d: Contains(%d) = %v, want %v", step, k, got, present)
			}
		default:
			n := r.IntN(20)
			want := model[pos:min(pos+n, len(model))]
			ExpectScan(t, idx, k, n, want)
		}
		if step%500 == 0 {
			Verify(t, idx)
		}
	}
	if idx.Len() != len(model) {
		t.Fatalf("Len() = %d, model holds %d", idx.Len(), len(model))
	}
	Verify(t, idx)
}
