package analyTool

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/Hakuto4838/OrderedIndex.git/index"
	"github.com/Hakuto4838/OrderedIndex.git/index/bplustree"
	"github.com/Hakuto4838/OrderedIndex.git/index/skiplist"
)

func buildList(t *testing.T, maxLevel int, n int) *skiplist.SkipList {
	t.Helper()
	sl, err := skiplist.New(maxLevel, 0.5, skiplist.WithSeed(11))
	if err != nil {
		t.Fatal(err)
	}
	for k := index.K(1); k <= index.K(n); k++ {
		sl.Insert(k)
	}
	return sl
}

func TestFindStepSingleLevel(t *testing.T) {
	sl := buildList(t, 1, 10)
	for k := index.K(1); k <= 10; k++ {
		step, levels := FindStep(sl, k)
		if step != int(k) {
			t.Errorf("FindStep(%d) = %d, want %d", k, step, k)
		}
		if len(levels) != 1 || levels[0] != int(k) {
			t.Errorf("FindStep(%d) levels = %v", k, levels)
		}
	}

	probs := map[index.K]float64{}
	for k := index.K(1); k <= 10; k++ {
		probs[k] = 0.1
	}
	avg, steps := AnalyzeStep(sl, probs)
	if math.Abs(avg-5.5) > 1e-9 {
		t.Fatalf("AnalyzeStep avg = %v, want 5.5", avg)
	}
	if len(steps) != 10 || steps[7] != 7 {
		t.Fatalf("AnalyzeStep steps = %v", steps)
	}
}

func TestAnalyzeStepMatchesFindStep(t *testing.T) {
	sl := buildList(t, 8, 300)
	probs := map[index.K]float64{}
	for k := index.K(1); k <= 300; k++ {
		probs[k] = 1.0 / 300
	}
	_, steps := AnalyzeStep(sl, probs)
	if len(steps) != 300 {
		t.Fatalf("AnalyzeStep visited %d keys, want 300", len(steps))
	}
	for k, s := range steps {
		if found, _ := FindStep(sl, k); found != s {
			t.Fatalf("key %d: AnalyzeStep %d, FindStep %d", k, s, found)
		}
	}
}

func TestCountLevelAndCheckStruct(t *testing.T) {
	sl := buildList(t, 10, 500)
	counts := CountLevel(sl)
	if counts[0] != 500 {
		t.Fatalf("level 0 holds %d nodes, want 500", counts[0])
	}
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[i-1] {
			t.Fatalf("level %d holds more nodes than level %d: %v", i, i-1, counts)
		}
	}
	if counts[len(counts)-1] == 0 {
		t.Fatalf("top level is empty: %v", counts)
	}
	if err := CheckStruct(sl); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	PrintLevelCounts(&buf, sl)
	if !strings.Contains(buf.String(), "Level  0: 500 個節點") {
		t.Fatalf("level count output:\n%s", buf.String())
	}
}

func TestCheckStructSmallAndAfterDeletes(t *testing.T) {
	one, err := skiplist.New(4, 0.5, skiplist.WithSeed(1), skiplist.WithInvariantChecks(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckStruct(one); err != nil {
		t.Fatalf("empty list: %v", err)
	}
	one.Insert(1)
	if err := CheckStruct(one); err != nil {
		t.Fatalf("one node: %v", err)
	}

	sl := buildList(t, 8, 200)
	for k := index.K(1); k <= 200; k += 3 {
		if !sl.Delete(k) {
			t.Fatalf("Delete(%d) = false", k)
		}
	}
	if err := sl.Check(); err != nil {
		t.Fatal(err)
	}
	if err := CheckStruct(sl); err != nil {
		t.Fatalf("after deletes: %v", err)
	}
	for k := index.K(1); k <= 200; k++ {
		sl.Delete(k)
	}
	if err := CheckStruct(sl); err != nil {
		t.Fatalf("emptied list: %v", err)
	}
}

func TestPrinters(t *testing.T) {
	sl := buildList(t, 1, 3)
	var buf bytes.Buffer
	PrintLink(&buf, sl, 4, 10)
	if got := buf.String(); got != "level 0 : head -> 1 -> 2 -> 3\n" {
		t.Fatalf("PrintLink = %q", got)
	}
	buf.Reset()
	PrintSkipList(&buf, sl, 4, 2)
	if got := buf.String(); got != "level 0 :   1 ->  2 ->\n" {
		t.Fatalf("PrintSkipList = %q", got)
	}
}

func TestStepMapCSV(t *testing.T) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := (StepMap{3: 2, 1: 1}).PrintToCSV(w); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "key,1,3\nsteps,1,2\n" {
		t.Fatalf("csv = %q", got)
	}
}

func TestFingerprintIgnoresRealization(t *testing.T) {
	sl := buildList(t, 6, 0)
	tree, err := bplustree.New(5)
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []index.K{9, 3, 77, 1, 42, 8} {
		sl.Insert(k)
		tree.Insert(k)
	}
	if Fingerprint(sl) != Fingerprint(tree) {
		t.Fatal("same key set produced different fingerprints")
	}
	tree.Delete(42)
	if Fingerprint(sl) == Fingerprint(tree) {
		t.Fatal("different key sets produced the same fingerprint")
	}
	if ScanFingerprint(sl.Scan(0, 3)) != ScanFingerprint(tree.Scan(0, 3)) {
		t.Fatal("equal scans hash differently")
	}
}
